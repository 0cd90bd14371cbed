package repository

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// pgUUID parses a string ID into the pgx UUID type.
func pgUUID(id string) (pgtype.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("parse uuid %q: %w", id, err)
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

type sessionRow struct {
	ID             pgtype.UUID
	Status         string
	TotalQuestions int32
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

func toEntitySession(row *sessionRow) *entity.Session {
	return &entity.Session{
		ID:             uuidString(row.ID),
		Status:         entity.SessionStatus(row.Status),
		TotalQuestions: int(row.TotalQuestions),
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}

type answerRow struct {
	ID               pgtype.UUID
	SessionID        pgtype.UUID
	QuestionID       int32
	AnswerText       string
	AudioFile        pgtype.Text
	Confidence       float64
	ProcessingTimeMs int64
	CreatedAt        pgtype.Timestamptz
}

func toEntityAnswer(row *answerRow) *entity.Answer {
	return &entity.Answer{
		ID:               uuidString(row.ID),
		SessionID:        uuidString(row.SessionID),
		QuestionID:       int(row.QuestionID),
		AnswerText:       row.AnswerText,
		AudioFile:        row.AudioFile.String,
		Confidence:       row.Confidence,
		ProcessingTimeMs: row.ProcessingTimeMs,
		CreatedAt:        row.CreatedAt.Time,
	}
}

type analyticsRow struct {
	ID                 pgtype.UUID
	SessionID          pgtype.UUID
	QuestionID         int32
	ResponseTimeMs     int64
	AnswerDurationMs   int64
	AudioQualityScore  float64
	ConfidenceScore    float64
	HesitationDetected bool
	Completed          bool
	CreatedAt          pgtype.Timestamptz
}

func toEntityAnalytics(row *analyticsRow) entity.AnalyticsEntry {
	return entity.AnalyticsEntry{
		ID:                 uuidString(row.ID),
		SessionID:          uuidString(row.SessionID),
		QuestionID:         int(row.QuestionID),
		ResponseTimeMs:     row.ResponseTimeMs,
		AnswerDurationMs:   row.AnswerDurationMs,
		AudioQualityScore:  row.AudioQualityScore,
		ConfidenceScore:    row.ConfidenceScore,
		HesitationDetected: row.HesitationDetected,
		Completed:          row.Completed,
		CreatedAt:          row.CreatedAt.Time,
	}
}

type audioFileRow struct {
	Name      string
	SessionID pgtype.UUID
	CreatedAt pgtype.Timestamptz
}

func toEntityAudioFile(row *audioFileRow) entity.AudioFile {
	return entity.AudioFile{
		Name:      row.Name,
		SessionID: uuidString(row.SessionID),
		CreatedAt: row.CreatedAt.Time,
	}
}
