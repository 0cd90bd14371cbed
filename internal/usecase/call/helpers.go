package call

import (
	"context"
	"fmt"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/audiostore"
	"github.com/voxline/voiceqa-backend/internal/entity"
	pkgvalidator "github.com/voxline/voiceqa-backend/internal/pkg/validator"
)

// notifyTimeout bounds the detached completion/abandonment notification.
const notifyTimeout = 15 * time.Second

// activeSession loads a session and rejects terminal ones.
func (uc *CallUsecase) activeSession(ctx context.Context, sessionID string) (*entity.Session, error) {
	session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	switch session.Status {
	case entity.SessionStatusCompleted:
		return nil, fmt.Errorf("session %s: %w", sessionID, entity.ErrSessionCompleted)
	case entity.SessionStatusAbandoned:
		return nil, fmt.Errorf("session %s: %w", sessionID, entity.ErrSessionNotActive)
	}

	return session, nil
}

// synthesizeAsset returns the public URL for key, synthesizing and storing
// the audio on a cache miss.
func (uc *CallUsecase) synthesizeAsset(ctx context.Context, key, sessionID, text string) (string, error) {
	if url, ok := uc.store.Lookup(key); ok {
		return url, nil
	}

	audio, err := uc.synthesizer.Synthesize(ctx, text, uc.voice)
	if err != nil {
		return "", fmt.Errorf("synthesize %s: %w", key, err)
	}

	url, err := uc.store.Save(ctx, key, sessionID, audio)
	if err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}

	return url, nil
}

// rejectAnswer builds the validation-failure response. The fallback audio is
// best-effort: the message text always goes back to the client even when
// synthesis is down.
func (uc *CallUsecase) rejectAnswer(
	ctx context.Context,
	session *entity.Session,
	question *entity.Question,
	transcription entity.Transcription,
	result pkgvalidator.AnswerResult,
	attempt int,
	processing time.Duration,
) (*entity.SubmitAnswerResult, error) {
	if transcription.Unrecognized() {
		uc.metrics.RecordEmptyTranscript()
	}
	uc.metrics.RecordAnswerRejected(question.Category, processing.Seconds())

	fallbackURL := ""
	key := audiostore.FallbackKey(question.ID, session.ID, attempt)
	url, err := uc.synthesizeAsset(ctx, key, session.ID, result.FallbackMessage)
	if err != nil {
		ctxzap.Warn(ctx, "failed to synthesize fallback audio",
			zap.Int("question_id", question.ID),
			zap.Error(err))
	} else {
		fallbackURL = url
	}

	ctxzap.Info(ctx, "answer rejected",
		zap.String("session_id", session.ID),
		zap.Int("question_id", question.ID),
		zap.Int("attempt", attempt),
		zap.String("transcription", transcription.Text),
		zap.Float64("confidence", transcription.Confidence))

	return &entity.SubmitAnswerResult{
		ValidationFailed: true,
		QuestionID:       question.ID,
		FallbackMessage:  result.FallbackMessage,
		FallbackAudioURL: fallbackURL,
		OriginalAnswer:   transcription.Text,
	}, nil
}

// maybeComplete flips the session to completed once every question has an
// accepted answer.
func (uc *CallUsecase) maybeComplete(ctx context.Context, session *entity.Session) (bool, error) {
	count, err := uc.answerRepo.CountSessionAnswers(ctx, session.ID)
	if err != nil {
		return false, fmt.Errorf("count session answers: %w", err)
	}
	if count < session.TotalQuestions {
		return false, nil
	}

	if _, err := uc.sessionRepo.UpdateSessionStatus(ctx, session.ID, entity.SessionStatusCompleted); err != nil {
		return false, fmt.Errorf("complete session: %w", err)
	}

	uc.metrics.RecordSessionFinished(string(entity.SessionStatusCompleted))
	uc.notifyFinished(ctx, session.ID, entity.SessionStatusCompleted)

	return true, nil
}

// notifyFinished fans the terminal transition out to the event stream and
// the webhook. It runs detached so a slow subscriber cannot delay the
// caller's response.
func (uc *CallUsecase) notifyFinished(ctx context.Context, sessionID string, status entity.SessionStatus) {
	logger := ctxzap.Extract(ctx)

	go func() {
		notifyCtx, cancel := context.WithTimeout(ctxzap.ToContext(context.Background(), logger), notifyTimeout)
		defer cancel()

		results, err := uc.results.GetSessionResults(notifyCtx, sessionID)
		if err != nil {
			ctxzap.Warn(notifyCtx, "failed to assemble results for notification",
				zap.String("session_id", sessionID),
				zap.Error(err))
			return
		}

		switch status {
		case entity.SessionStatusCompleted:
			uc.events.SessionCompleted(notifyCtx, results)
			uc.webhook.NotifySessionCompleted(notifyCtx, results)
		case entity.SessionStatusAbandoned:
			uc.events.SessionAbandoned(notifyCtx, results)
			uc.webhook.NotifySessionAbandoned(notifyCtx, results)
		}
	}()
}
