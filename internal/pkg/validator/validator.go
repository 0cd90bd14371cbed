package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
)

// Validator checks incoming request shapes before they reach the usecases.
type Validator struct {
	cfg config.UploadConfig
}

func NewValidator(cfg config.UploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

// MaxUploadSize is the multipart parse ceiling for answer submissions. Configs
// built by hand may leave it zero; the audio cap plus form overhead covers
// that case.
func (v *Validator) MaxUploadSize() int64 {
	if v.cfg.MaxUploadSize > 0 {
		return v.cfg.MaxUploadSize
	}
	return v.cfg.MaxAudioFileSize + 1<<20
}

// ValidateSubmitAnswer checks the multipart fields of an answer submission.
func (v *Validator) ValidateSubmitAnswer(sessionID string, questionID int, file *multipart.FileHeader) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}
	if questionID <= 0 {
		return fmt.Errorf("%w: question_id must be positive, got %d", entity.ErrInvalidParameter, questionID)
	}
	if file == nil {
		return fmt.Errorf("%w: audio_file", entity.ErrMissingField)
	}
	return v.ValidateAudioFile(file)
}

// ValidateAudioFile validates audio file uploads (WAV format only)
func (v *Validator) ValidateAudioFile(file *multipart.FileHeader) error {
	if file == nil {
		return fmt.Errorf("%w: audio_file", entity.ErrMissingField)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".wav" {
		return fmt.Errorf("%w: %s (only .wav files are allowed)", entity.ErrInvalidAudioFile, ext)
	}

	if file.Size > v.cfg.MaxAudioFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrAudioFileTooBig, file.Filename, file.Size, v.cfg.MaxAudioFileSize)
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" &&
		contentType != "audio/wav" &&
		contentType != "audio/x-wav" &&
		contentType != "application/octet-stream" {
		return fmt.Errorf("%w: content type '%s' (expected audio/wav, audio/x-wav or application/octet-stream)", entity.ErrInvalidAudioFile, contentType)
	}

	return nil
}

// ValidateSaveAnalytics checks the end-of-call analytics flush.
func (v *Validator) ValidateSaveAnalytics(req *entity.SaveCallAnalyticsRequest) error {
	if req.SessionID == "" {
		return fmt.Errorf("%w: session_id", entity.ErrMissingField)
	}
	if req.Status != "" {
		if err := req.Status.Validate(); err != nil {
			return fmt.Errorf("%w: status %q", entity.ErrInvalidParameter, req.Status)
		}
	}
	for i, e := range req.Analytics {
		if e.QuestionID <= 0 {
			return fmt.Errorf("%w: analytics[%d].question_id", entity.ErrInvalidParameter, i)
		}
	}
	return nil
}
