package entity

import (
	"fmt"
	"time"
)

type SessionStatus string

// Session status reflects how far a caller got through the question list.
const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusAbandoned SessionStatus = "abandoned"
)

func (s SessionStatus) Validate() error {
	switch s {
	case SessionStatusActive, SessionStatusCompleted, SessionStatusAbandoned:
		return nil
	default:
		return fmt.Errorf("unknown session status: %s", s)
	}
}

// Session is one call through the question list.
type Session struct {
	ID             string        `json:"session_id"`
	Status         SessionStatus `json:"status"`
	TotalQuestions int           `json:"total_questions"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Question categories drive per-answer validation rules and fallback wording.
const (
	QuestionCategoryName        = "name"
	QuestionCategorySSN         = "ssn"
	QuestionCategoryAddress     = "address"
	QuestionCategoryYesNo       = "yes_no"
	QuestionCategoryDate        = "date"
	QuestionCategoryPersonal    = "personal_info"
	QuestionCategoryEligibility = "eligibility"
)

// Question is immutable reference data. IDs are 1-based and Order fixes the
// position in the call script.
type Question struct {
	ID           int    `json:"id"`
	QuestionText string `json:"question_text"`
	Category     string `json:"category"`
	IsRequired   bool   `json:"is_required"`
	Order        int    `json:"order"`
}

// Answer is the accepted transcription for one (session, question) pair.
// The pair is unique: a rejected transcription never produces an Answer.
type Answer struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	QuestionID       int       `json:"question_id"`
	AnswerText       string    `json:"answer_text"`
	AudioFile        string    `json:"audio_file,omitempty"`
	Confidence       float64   `json:"confidence"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// AnalyticsEntry carries per-question timing and quality signals. Entries are
// collected client-side and flushed once at the end of the call.
type AnalyticsEntry struct {
	ID                 string    `json:"id,omitempty"`
	SessionID          string    `json:"session_id,omitempty"`
	QuestionID         int       `json:"question_id"`
	ResponseTimeMs     int64     `json:"response_time_ms"`
	AnswerDurationMs   int64     `json:"answer_duration_ms"`
	AudioQualityScore  float64   `json:"audio_quality_score"`
	ConfidenceScore    float64   `json:"confidence_score"`
	HesitationDetected bool      `json:"hesitation_detected"`
	Completed          bool      `json:"completed"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
}

// AudioFile is a registry row for a synthesized asset on disk, used by the
// background cleanup job.
type AudioFile struct {
	Name      string    `json:"name"`
	SessionID string    `json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
