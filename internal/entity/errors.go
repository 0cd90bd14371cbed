package entity

import "errors"

// Domain errors
var (
	// Session errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionNotActive = errors.New("session is not active")
	ErrSessionCompleted = errors.New("session is already completed")

	// Question errors
	ErrQuestionNotFound = errors.New("question not found")
	ErrIndexOutOfRange  = errors.New("question index out of range")

	// Answer errors
	ErrAnswerNotFound = errors.New("answer not found")

	// Synthesis errors. ErrSynthesisMisconfigured means the offline engine
	// itself failed, which is a deployment defect rather than bad luck.
	ErrSynthesisMisconfigured = errors.New("offline synthesis engine failed")

	// Transcription errors
	ErrTranscriptionUnavailable = errors.New("transcription service unavailable")

	// Audio errors
	ErrInvalidAudioFile = errors.New("invalid audio file")
	ErrAudioFileTooBig  = errors.New("audio file too large")
	ErrAudioNotFound    = errors.New("audio file not found")

	// Client-side call errors
	ErrCallAlreadyStarted = errors.New("call session already started")
	ErrSnapshotInvalid    = errors.New("call snapshot is invalid")
	ErrTooManyRejections  = errors.New("answer rejected too many times")
	ErrDeviceUnavailable  = errors.New("audio capture device unavailable")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)
