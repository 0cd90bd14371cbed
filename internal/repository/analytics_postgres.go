package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// AnalyticsRepository defines the interface for per-question call analytics.
// ReplaceSessionAnalytics swaps the whole batch for a session in one
// transaction, so a client that flushes twice after a crash leaves exactly
// one copy behind.
type AnalyticsRepository interface {
	ReplaceSessionAnalytics(ctx context.Context, sessionID string, entries []entity.AnalyticsEntry) (int, error)
	GetSessionAnalytics(ctx context.Context, sessionID string) ([]entity.AnalyticsEntry, error)
}

var _ AnalyticsRepository = &AnalyticsPostgres{}

// AnalyticsPostgres implements AnalyticsRepository using PostgreSQL
type AnalyticsPostgres struct {
	db *pgxpool.Pool
}

func NewAnalyticsPostgres(db *pgxpool.Pool) *AnalyticsPostgres {
	return &AnalyticsPostgres{db: db}
}

const deleteSessionAnalyticsQuery = `DELETE FROM call_analytics WHERE session_id = $1`

const insertAnalyticsQuery = `
INSERT INTO call_analytics (id, session_id, question_id, response_time_ms, answer_duration_ms,
    audio_quality_score, confidence_score, hesitation_detected, completed)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func (r *AnalyticsPostgres) ReplaceSessionAnalytics(ctx context.Context, sessionID string, entries []entity.AnalyticsEntry) (int, error) {
	sid, err := pgUUID(sessionID)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed id %q", entity.ErrSessionNotFound, sessionID)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin analytics tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, deleteSessionAnalyticsQuery, sid); err != nil {
		return 0, fmt.Errorf("clear session analytics: %w", err)
	}

	for i, e := range entries {
		entryID, err := pgUUID(e.ID)
		if err != nil {
			return 0, fmt.Errorf("invalid analytics entry ID at %d: %w", i, err)
		}
		_, err = tx.Exec(ctx, insertAnalyticsQuery,
			entryID, sid, int32(e.QuestionID), e.ResponseTimeMs, e.AnswerDurationMs,
			e.AudioQualityScore, e.ConfidenceScore, e.HesitationDetected, e.Completed)
		if err != nil {
			return 0, fmt.Errorf("insert analytics entry for question %d: %w", e.QuestionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit analytics tx: %w", err)
	}

	return len(entries), nil
}

const getSessionAnalyticsQuery = `
SELECT id, session_id, question_id, response_time_ms, answer_duration_ms,
    audio_quality_score, confidence_score, hesitation_detected, completed, created_at
FROM call_analytics
WHERE session_id = $1
ORDER BY question_id`

func (r *AnalyticsPostgres) GetSessionAnalytics(ctx context.Context, sessionID string) ([]entity.AnalyticsEntry, error) {
	sid, err := pgUUID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", entity.ErrSessionNotFound, sessionID)
	}

	rows, err := r.db.Query(ctx, getSessionAnalyticsQuery, sid)
	if err != nil {
		return nil, fmt.Errorf("get session analytics: %w", err)
	}
	defer rows.Close()

	var entries []entity.AnalyticsEntry
	for rows.Next() {
		var row analyticsRow
		if err := rows.Scan(&row.ID, &row.SessionID, &row.QuestionID, &row.ResponseTimeMs,
			&row.AnswerDurationMs, &row.AudioQualityScore, &row.ConfidenceScore,
			&row.HesitationDetected, &row.Completed, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analytics entry: %w", err)
		}
		entries = append(entries, toEntityAnalytics(&row))
	}

	return entries, rows.Err()
}
