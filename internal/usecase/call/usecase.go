package call

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/audiostore"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/metrics"
	"github.com/voxline/voiceqa-backend/internal/pkg/validator"
	"github.com/voxline/voiceqa-backend/internal/repository"
)

// CallUsecase implements the voice session flow: question delivery with
// synthesized audio, answer transcription and validation, and the
// end-of-call analytics flush.
type CallUsecase struct {
	sessionRepo   repository.SessionRepository
	questionRepo  repository.QuestionRepository
	answerRepo    repository.AnswerRepository
	analyticsRepo repository.AnalyticsRepository
	synthesizer   Synthesizer
	transcriber   Transcriber
	answers       *validator.AnswerValidator
	store         *audiostore.Store
	results       ResultsFetcher
	events        EventsPublisher
	webhook       WebhookNotifier
	metrics       *metrics.Metrics
	voice         entity.VoiceStyle
	introText     string
}

// NewUsecase creates a new call use case
func NewUsecase(
	sessionRepo repository.SessionRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	analyticsRepo repository.AnalyticsRepository,
	synthesizer Synthesizer,
	transcriber Transcriber,
	answers *validator.AnswerValidator,
	store *audiostore.Store,
	results ResultsFetcher,
	events EventsPublisher,
	webhook WebhookNotifier,
	voice entity.VoiceStyle,
	introText string,
) *CallUsecase {
	return &CallUsecase{
		sessionRepo:   sessionRepo,
		questionRepo:  questionRepo,
		answerRepo:    answerRepo,
		analyticsRepo: analyticsRepo,
		synthesizer:   synthesizer,
		transcriber:   transcriber,
		answers:       answers,
		store:         store,
		results:       results,
		events:        events,
		webhook:       webhook,
		metrics:       metrics.DefaultMetrics,
		voice:         voice,
		introText:     introText,
	}
}

// StartSession creates an active session sized to the seeded question list.
func (uc *CallUsecase) StartSession(ctx context.Context) (*entity.StartCallResponse, error) {
	total, err := uc.questionRepo.CountQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if total == 0 {
		return nil, fmt.Errorf("no questions seeded")
	}

	session := entity.Session{
		ID:             uuid.New().String(),
		Status:         entity.SessionStatusActive,
		TotalQuestions: total,
	}

	created, err := uc.sessionRepo.CreateSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	uc.metrics.RecordSessionStarted()
	uc.events.SessionStarted(ctx, created.ID)

	ctxzap.Info(ctx, "session started",
		zap.String("session_id", created.ID),
		zap.Int("total_questions", created.TotalQuestions))

	return &entity.StartCallResponse{
		SessionID:      created.ID,
		TotalQuestions: created.TotalQuestions,
	}, nil
}

// GetIntroduction returns the greeting text with its synthesized audio. The
// asset is shared across sessions, so after the first call it comes from the
// cache.
func (uc *CallUsecase) GetIntroduction(ctx context.Context) (*entity.IntroductionResponse, error) {
	url, err := uc.synthesizeAsset(ctx, audiostore.IntroductionKey, "", uc.introText)
	if err != nil {
		return nil, err
	}
	return &entity.IntroductionResponse{Text: uc.introText, AudioURL: url}, nil
}

// NextQuestion resolves the question at a zero-based position in the call
// script and synthesizes its audio.
func (uc *CallUsecase) NextQuestion(ctx context.Context, sessionID string, index int) (*entity.NextQuestionResponse, error) {
	session, err := uc.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	question, err := uc.questionRepo.GetQuestionAt(ctx, index)
	if err != nil {
		return nil, fmt.Errorf("get question at %d: %w", index, err)
	}

	url, err := uc.synthesizeAsset(ctx, audiostore.QuestionKey(question.ID, session.ID), session.ID, question.QuestionText)
	if err != nil {
		return nil, err
	}

	return &entity.NextQuestionResponse{
		ID:           question.ID,
		QuestionText: question.QuestionText,
		Category:     question.Category,
		IsRequired:   question.IsRequired,
		AudioURL:     url,
	}, nil
}

// SubmitAnswer transcribes and validates one recording. A rejection returns
// the fallback utterance and leaves no trace in the answers table; an
// acceptance upserts the (session, question) answer, and accepting the last
// open question flips the session to completed. Attempt counts how many
// times this question has been put to the caller and only changes the
// fallback phrasing.
func (uc *CallUsecase) SubmitAnswer(ctx context.Context, sessionID string, questionID int, audio []byte, attempt int) (*entity.SubmitAnswerResult, error) {
	start := time.Now()

	session, err := uc.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	question, err := uc.questionRepo.GetQuestionByID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("get question %d: %w", questionID, err)
	}

	if attempt < 1 {
		attempt = 1
	}

	name := audiostore.AnswerName(questionID, session.ID)
	transcription, err := uc.transcriber.Transcribe(ctx, audio, name)
	if err != nil {
		return nil, fmt.Errorf("transcribe answer: %w", err)
	}

	result := uc.answers.Validate(*question, transcription.Text, transcription.Confidence, attempt)
	processing := time.Since(start)

	if !result.Accepted {
		return uc.rejectAnswer(ctx, session, question, transcription, result, attempt, processing)
	}

	if err := uc.store.SaveUpload(ctx, name, session.ID, audio); err != nil {
		// The transcription is already in hand; losing the raw recording
		// is not worth failing the submission over.
		ctxzap.Warn(ctx, "failed to store answer recording",
			zap.String("file", name),
			zap.Error(err))
		name = ""
	}

	saved, err := uc.answerRepo.UpsertAnswer(ctx, entity.Answer{
		ID:               uuid.New().String(),
		SessionID:        session.ID,
		QuestionID:       question.ID,
		AnswerText:       transcription.Text,
		AudioFile:        name,
		Confidence:       transcription.Confidence,
		ProcessingTimeMs: processing.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}

	uc.metrics.RecordAnswerAccepted(saved.Confidence, processing.Seconds())

	completed, err := uc.maybeComplete(ctx, session)
	if err != nil {
		return nil, err
	}

	ctxzap.Info(ctx, "answer accepted",
		zap.String("session_id", session.ID),
		zap.Int("question_id", question.ID),
		zap.Float64("confidence", saved.Confidence),
		zap.Bool("session_completed", completed))

	return &entity.SubmitAnswerResult{
		Success:          true,
		QuestionID:       question.ID,
		AnswerText:       saved.AnswerText,
		Confidence:       saved.Confidence,
		SessionCompleted: completed,
	}, nil
}

// SaveCallAnalytics replaces the per-question analytics batch for a session.
// The replace makes the flush idempotent: a client that retries after a
// crash leaves one copy behind, not two. An optional terminal status flips
// the session when it is still active.
func (uc *CallUsecase) SaveCallAnalytics(ctx context.Context, req *entity.SaveCallAnalyticsRequest) (*entity.SaveCallAnalyticsResponse, error) {
	session, err := uc.sessionRepo.GetSessionByID(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	entries := make([]entity.AnalyticsEntry, len(req.Analytics))
	for i, e := range req.Analytics {
		e.ID = uuid.New().String()
		e.SessionID = session.ID
		entries[i] = e
	}

	saved, err := uc.analyticsRepo.ReplaceSessionAnalytics(ctx, session.ID, entries)
	if err != nil {
		return nil, fmt.Errorf("replace session analytics: %w", err)
	}

	if req.Status != "" {
		if err := req.Status.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
		}
		// Terminal states never change again; only an active session moves.
		if session.Status == entity.SessionStatusActive && req.Status != session.Status {
			if _, err := uc.sessionRepo.UpdateSessionStatus(ctx, session.ID, req.Status); err != nil {
				return nil, fmt.Errorf("update session status: %w", err)
			}
			if req.Status != entity.SessionStatusActive {
				uc.metrics.RecordSessionFinished(string(req.Status))
				uc.notifyFinished(ctx, session.ID, req.Status)
			}
		}
	}

	ctxzap.Info(ctx, "call analytics saved",
		zap.String("session_id", session.ID),
		zap.Int("entries", saved),
		zap.String("status", string(req.Status)))

	return &entity.SaveCallAnalyticsResponse{Success: true, Saved: saved}, nil
}

// GetQuestions lists the call script in order.
func (uc *CallUsecase) GetQuestions(ctx context.Context) ([]entity.Question, error) {
	questions, err := uc.questionRepo.GetAllQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	return questions, nil
}
