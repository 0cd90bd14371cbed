package results

import (
	"context"
	"fmt"
	"math"

	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/formatter"
	"github.com/voxline/voiceqa-backend/internal/repository"
)

// ResultsUsecase builds the read-side views: per-session transcripts,
// per-session analytics and the cross-session dashboard.
type ResultsUsecase struct {
	sessionRepo   repository.SessionRepository
	questionRepo  repository.QuestionRepository
	answerRepo    repository.AnswerRepository
	analyticsRepo repository.AnalyticsRepository
	formatters    *formatter.Factory
}

// NewUsecase creates a new results use case
func NewUsecase(
	sessionRepo repository.SessionRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	analyticsRepo repository.AnalyticsRepository,
	formatters *formatter.Factory,
) *ResultsUsecase {
	return &ResultsUsecase{
		sessionRepo:   sessionRepo,
		questionRepo:  questionRepo,
		answerRepo:    answerRepo,
		analyticsRepo: analyticsRepo,
		formatters:    formatters,
	}
}

// GetSessionResults merges the question list with the session's accepted
// answers. Questions the caller never reached stay in the list with the
// answered flag down.
func (uc *ResultsUsecase) GetSessionResults(ctx context.Context, sessionID string) (*entity.SessionResults, error) {
	session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	questions, err := uc.questionRepo.GetAllQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	answers, err := uc.answerRepo.GetSessionAnswers(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("get session answers: %w", err)
	}

	byQuestion := make(map[int]entity.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	rows := make([]entity.AnsweredQuestion, 0, len(questions))
	answered := 0
	for _, q := range questions {
		row := entity.AnsweredQuestion{
			QuestionID:   q.ID,
			QuestionText: q.QuestionText,
			Category:     q.Category,
		}
		if a, ok := byQuestion[q.ID]; ok {
			row.AnswerText = a.AnswerText
			row.Confidence = a.Confidence
			row.Answered = true
			answered++
		}
		rows = append(rows, row)
	}

	return &entity.SessionResults{
		SessionID:      session.ID,
		Status:         session.Status,
		TotalQuestions: session.TotalQuestions,
		AnsweredCount:  answered,
		CreatedAt:      session.CreatedAt,
		Answers:        rows,
	}, nil
}

// GetDashboard aggregates across all sessions. The completion rate is a
// percentage of terminal sessions that reached completed.
func (uc *ResultsUsecase) GetDashboard(ctx context.Context) (*entity.DashboardStats, error) {
	counts, err := uc.sessionRepo.CountSessionsByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	questionCounts, err := uc.answerRepo.GetQuestionAnswerCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get question answer counts: %w", err)
	}

	avgConfidence, err := uc.answerRepo.GetAverageConfidence(ctx)
	if err != nil {
		return nil, fmt.Errorf("get average confidence: %w", err)
	}

	stats := &entity.DashboardStats{
		ActiveSessions:    counts[entity.SessionStatusActive],
		CompletedSessions: counts[entity.SessionStatusCompleted],
		AbandonedSessions: counts[entity.SessionStatusAbandoned],
		AverageConfidence: round2(avgConfidence),
		QuestionCounts:    questionCounts,
	}
	stats.TotalSessions = stats.ActiveSessions + stats.CompletedSessions + stats.AbandonedSessions

	if finished := stats.CompletedSessions + stats.AbandonedSessions; finished > 0 {
		stats.CompletionRate = round2(100 * float64(stats.CompletedSessions) / float64(finished))
	}

	return stats, nil
}

// GetSessionAnalytics returns the flushed analytics batch with its averages.
func (uc *ResultsUsecase) GetSessionAnalytics(ctx context.Context, sessionID string) (*entity.SessionAnalytics, error) {
	session, err := uc.sessionRepo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	entries, err := uc.analyticsRepo.GetSessionAnalytics(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("get session analytics: %w", err)
	}

	analytics := &entity.SessionAnalytics{
		SessionID: session.ID,
		Entries:   entries,
	}

	if len(entries) == 0 {
		return analytics, nil
	}

	var responseSum, durationSum int64
	var qualitySum float64
	for _, e := range entries {
		responseSum += e.ResponseTimeMs
		durationSum += e.AnswerDurationMs
		qualitySum += e.AudioQualityScore
		if e.HesitationDetected {
			analytics.HesitationCount++
		}
		if e.Completed {
			analytics.CompletedCount++
		}
	}

	n := int64(len(entries))
	analytics.AverageResponseTimeMs = responseSum / n
	analytics.AverageDurationMs = durationSum / n
	analytics.AverageQualityScore = round2(qualitySum / float64(n))

	return analytics, nil
}

// ExportResults renders the transcript in the requested format.
func (uc *ResultsUsecase) ExportResults(ctx context.Context, sessionID string, format entity.ResultFormat) (*entity.ResultsExport, error) {
	f, err := uc.formatters.Create(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
	}

	results, err := uc.GetSessionResults(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	data, err := f.Format(results)
	if err != nil {
		return nil, fmt.Errorf("format results as %s: %w", format, err)
	}

	return &entity.ResultsExport{
		Data:        data,
		ContentType: f.ContentType(),
		Filename:    entity.ExportFilename(sessionID, f.FileExtension()),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
