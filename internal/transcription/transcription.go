// Package transcription converts recorded answers to text. Recoverable
// recognizer failures surface as the unrecognized sentinel rather than as
// errors: an error would abort the call, while an unrecognized answer just
// re-prompts the caller.
package transcription

import (
	"context"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// Recognizer transcribes one audio payload with a specific backend.
type Recognizer interface {
	// Name identifies the recognizer in logs and metrics.
	Name() string

	// Transcribe converts audio to text. Errors are retried by the
	// service and eventually collapsed into the unrecognized sentinel.
	Transcribe(ctx context.Context, audio []byte, filename string) (entity.Transcription, error)
}
