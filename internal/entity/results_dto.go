package entity

import (
	"fmt"
	"time"
)

type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

// AnsweredQuestion pairs a question with its accepted answer for a session.
// Answer fields are empty when the question was never answered.
type AnsweredQuestion struct {
	QuestionID   int     `json:"question_id"`
	QuestionText string  `json:"question_text"`
	Category     string  `json:"category"`
	AnswerText   string  `json:"answer_text,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Answered     bool    `json:"answered"`
}

// SessionResults is the full transcript view of a session.
type SessionResults struct {
	SessionID      string             `json:"session_id"`
	Status         SessionStatus      `json:"status"`
	TotalQuestions int                `json:"total_questions"`
	AnsweredCount  int                `json:"answered_count"`
	CreatedAt      time.Time          `json:"created_at"`
	Answers        []AnsweredQuestion `json:"answers"`
}

// QuestionAnswerCount is a dashboard aggregate row.
type QuestionAnswerCount struct {
	QuestionID   int    `json:"question_id"`
	QuestionText string `json:"question_text"`
	AnswerCount  int    `json:"answer_count"`
}

// DashboardStats aggregates across all sessions.
type DashboardStats struct {
	TotalSessions     int                   `json:"total_sessions"`
	ActiveSessions    int                   `json:"active_sessions"`
	CompletedSessions int                   `json:"completed_sessions"`
	AbandonedSessions int                   `json:"abandoned_sessions"`
	CompletionRate    float64               `json:"completion_rate"`
	AverageConfidence float64               `json:"average_confidence"`
	QuestionCounts    []QuestionAnswerCount `json:"question_counts"`
}

// SessionAnalytics is the per-session analytics view.
type SessionAnalytics struct {
	SessionID             string           `json:"session_id"`
	Entries               []AnalyticsEntry `json:"entries"`
	AverageResponseTimeMs int64            `json:"average_response_time_ms"`
	AverageDurationMs     int64            `json:"average_answer_duration_ms"`
	AverageQualityScore   float64          `json:"average_quality_score"`
	HesitationCount       int              `json:"hesitation_count"`
	CompletedCount        int              `json:"completed_count"`
}

// ResultsExport is a rendered transcript ready for download.
type ResultsExport struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ExportFilename builds the download name for a results export.
func ExportFilename(sessionID string, ext string) string {
	return fmt.Sprintf("call-results-%s%s", sessionID, ext)
}
