package entity

// StartCallResponse is returned by POST /api/start-session.
type StartCallResponse struct {
	SessionID      string `json:"session_id"`
	TotalQuestions int    `json:"total_questions"`
}

// NextQuestionResponse is returned by GET /api/next-question. AudioURL points
// at a synthesized asset under /static/audio/.
type NextQuestionResponse struct {
	ID           int    `json:"id"`
	QuestionText string `json:"question_text"`
	Category     string `json:"category"`
	IsRequired   bool   `json:"is_required"`
	AudioURL     string `json:"audio_url"`
}

// IntroductionResponse is returned by GET /api/introduction.
type IntroductionResponse struct {
	Text     string `json:"text"`
	AudioURL string `json:"audio_url"`
}

// SubmitAnswerResult is returned by POST /api/submit-answer for both
// outcomes. Success carries the accepted transcription; a validation failure
// carries the fallback utterance to play before re-recording.
type SubmitAnswerResult struct {
	Success          bool    `json:"success"`
	QuestionID       int     `json:"question_id,omitempty"`
	AnswerText       string  `json:"answer_text,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	SessionCompleted bool    `json:"session_completed,omitempty"`

	ValidationFailed bool   `json:"validation_failed,omitempty"`
	FallbackMessage  string `json:"fallback_message,omitempty"`
	FallbackAudioURL string `json:"fallback_audio_url,omitempty"`
	OriginalAnswer   string `json:"original_answer,omitempty"`
}

// SaveCallAnalyticsRequest is the end-of-call batch flush. Status is optional
// and, when present, flips the session to completed or abandoned.
type SaveCallAnalyticsRequest struct {
	SessionID string           `json:"session_id"`
	Status    SessionStatus    `json:"status,omitempty"`
	Analytics []AnalyticsEntry `json:"analytics"`
}

type SaveCallAnalyticsResponse struct {
	Success bool `json:"success"`
	Saved   int  `json:"saved"`
}
