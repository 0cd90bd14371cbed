package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// AnswerRepository defines the interface for answer persistence. UpsertAnswer
// is keyed by (session_id, question_id): resubmitting the same question
// replaces the stored answer instead of creating a second row.
type AnswerRepository interface {
	UpsertAnswer(ctx context.Context, answer entity.Answer) (*entity.Answer, error)
	GetSessionAnswers(ctx context.Context, sessionID string) ([]entity.Answer, error)
	CountSessionAnswers(ctx context.Context, sessionID string) (int, error)
	GetQuestionAnswerCounts(ctx context.Context) ([]entity.QuestionAnswerCount, error)
	GetAverageConfidence(ctx context.Context) (float64, error)
}

var _ AnswerRepository = &AnswerPostgres{}

// AnswerPostgres implements AnswerRepository using PostgreSQL
type AnswerPostgres struct {
	db *pgxpool.Pool
}

func NewAnswerPostgres(db *pgxpool.Pool) *AnswerPostgres {
	return &AnswerPostgres{db: db}
}

const upsertAnswerQuery = `
INSERT INTO answers (id, session_id, question_id, answer_text, audio_file, confidence, processing_time_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (session_id, question_id) DO UPDATE SET
    answer_text = EXCLUDED.answer_text,
    audio_file = EXCLUDED.audio_file,
    confidence = EXCLUDED.confidence,
    processing_time_ms = EXCLUDED.processing_time_ms,
    created_at = now()
RETURNING id, session_id, question_id, answer_text, audio_file, confidence, processing_time_ms, created_at`

func (r *AnswerPostgres) UpsertAnswer(ctx context.Context, answer entity.Answer) (*entity.Answer, error) {
	answerID, err := pgUUID(answer.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid answer ID: %w", err)
	}
	sessionID, err := pgUUID(answer.SessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}

	audioFile := pgtype.Text{String: answer.AudioFile, Valid: answer.AudioFile != ""}

	var row answerRow
	err = r.db.QueryRow(ctx, upsertAnswerQuery,
		answerID, sessionID, int32(answer.QuestionID), answer.AnswerText,
		audioFile, answer.Confidence, answer.ProcessingTimeMs).
		Scan(&row.ID, &row.SessionID, &row.QuestionID, &row.AnswerText,
			&row.AudioFile, &row.Confidence, &row.ProcessingTimeMs, &row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert answer: %w", err)
	}

	return toEntityAnswer(&row), nil
}

const getSessionAnswersQuery = `
SELECT id, session_id, question_id, answer_text, audio_file, confidence, processing_time_ms, created_at
FROM answers
WHERE session_id = $1
ORDER BY question_id`

func (r *AnswerPostgres) GetSessionAnswers(ctx context.Context, sessionID string) ([]entity.Answer, error) {
	sid, err := pgUUID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed id %q", entity.ErrSessionNotFound, sessionID)
	}

	rows, err := r.db.Query(ctx, getSessionAnswersQuery, sid)
	if err != nil {
		return nil, fmt.Errorf("get session answers: %w", err)
	}
	defer rows.Close()

	var answers []entity.Answer
	for rows.Next() {
		var row answerRow
		if err := rows.Scan(&row.ID, &row.SessionID, &row.QuestionID, &row.AnswerText,
			&row.AudioFile, &row.Confidence, &row.ProcessingTimeMs, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, *toEntityAnswer(&row))
	}

	return answers, rows.Err()
}

const countSessionAnswersQuery = `SELECT COUNT(*) FROM answers WHERE session_id = $1`

func (r *AnswerPostgres) CountSessionAnswers(ctx context.Context, sessionID string) (int, error) {
	sid, err := pgUUID(sessionID)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed id %q", entity.ErrSessionNotFound, sessionID)
	}

	var count int64
	if err := r.db.QueryRow(ctx, countSessionAnswersQuery, sid).Scan(&count); err != nil {
		return 0, fmt.Errorf("count session answers: %w", err)
	}
	return int(count), nil
}

const questionAnswerCountsQuery = `
SELECT q.id, q.question_text, COUNT(a.id)
FROM questions q
LEFT JOIN answers a ON a.question_id = q.id
GROUP BY q.id, q.question_text, q.ord
ORDER BY q.ord`

func (r *AnswerPostgres) GetQuestionAnswerCounts(ctx context.Context) ([]entity.QuestionAnswerCount, error) {
	rows, err := r.db.Query(ctx, questionAnswerCountsQuery)
	if err != nil {
		return nil, fmt.Errorf("get question answer counts: %w", err)
	}
	defer rows.Close()

	var counts []entity.QuestionAnswerCount
	for rows.Next() {
		var (
			c     entity.QuestionAnswerCount
			count int64
		)
		if err := rows.Scan(&c.QuestionID, &c.QuestionText, &count); err != nil {
			return nil, fmt.Errorf("scan question answer count: %w", err)
		}
		c.AnswerCount = int(count)
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

const averageConfidenceQuery = `SELECT COALESCE(AVG(confidence), 0) FROM answers`

func (r *AnswerPostgres) GetAverageConfidence(ctx context.Context) (float64, error) {
	var avg float64
	if err := r.db.QueryRow(ctx, averageConfidenceQuery).Scan(&avg); err != nil {
		return 0, fmt.Errorf("get average confidence: %w", err)
	}
	return avg, nil
}
