package call

import (
	"context"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, style entity.VoiceStyle) (*entity.SpeechAudio, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (entity.Transcription, error)
	Name() string
}

type EventsPublisher interface {
	SessionStarted(ctx context.Context, sessionID string)
	SessionCompleted(ctx context.Context, results *entity.SessionResults)
	SessionAbandoned(ctx context.Context, results *entity.SessionResults)
}

type WebhookNotifier interface {
	NotifySessionCompleted(ctx context.Context, results *entity.SessionResults)
	NotifySessionAbandoned(ctx context.Context, results *entity.SessionResults)
}

// ResultsFetcher assembles the question/answer transcript used in completion
// and abandonment notifications.
type ResultsFetcher interface {
	GetSessionResults(ctx context.Context, sessionID string) (*entity.SessionResults, error)
}
