// Package synthesis turns question text into speech through a cascade of
// providers: hosted APIs first, then a local engine that always produces
// something playable.
package synthesis

import (
	"context"

	"github.com/voxline/voiceqa-backend/internal/entity"
)

// Provider synthesizes speech with one backend.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Synthesize renders text as audio. The context carries the attempt
	// deadline; implementations must respect it.
	Synthesize(ctx context.Context, text string, style entity.VoiceStyle) (*entity.SpeechAudio, error)
}
