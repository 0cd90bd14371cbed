package synthesis

import (
	"context"
	"fmt"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/metrics"
	"go.uber.org/zap"
)

// Dispatcher tries providers in order and returns the first successful
// result. Every provider gets exactly one attempt per call, bounded by the
// per-provider timeout. The last provider is expected to be the offline
// engine, which only fails when the deployment is broken.
type Dispatcher struct {
	providers []Provider
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewDispatcher(providers []Provider, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		providers: providers,
		timeout:   timeout,
		logger:    logger,
		metrics:   m,
	}
}

// Synthesize runs the provider cascade for text.
func (d *Dispatcher) Synthesize(ctx context.Context, text string, style entity.VoiceStyle) (*entity.SpeechAudio, error) {
	if len(d.providers) == 0 {
		return nil, fmt.Errorf("no synthesis providers configured: %w", entity.ErrSynthesisMisconfigured)
	}

	var lastErr error
	for _, provider := range d.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		start := time.Now()
		audio, err := provider.Synthesize(attemptCtx, text, style)
		cancel()

		d.metrics.RecordSynthesis(provider.Name(), err, time.Since(start).Seconds())

		if err == nil {
			ctxzap.Debug(ctx, "speech synthesized",
				zap.String("provider", provider.Name()),
				zap.Int("text_length", len(text)),
				zap.Int("audio_bytes", len(audio.Data)),
			)
			return audio, nil
		}

		lastErr = err
		ctxzap.Warn(ctx, "synthesis provider failed, trying next",
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)

		// The caller is gone; no point finishing the cascade.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("all synthesis providers failed (last: %v): %w", lastErr, entity.ErrSynthesisMisconfigured)
}

// Probe exercises the terminal provider once. The builder calls it at boot so
// a broken offline engine fails deployment instead of a live call.
func (d *Dispatcher) Probe(ctx context.Context) error {
	if len(d.providers) == 0 {
		return fmt.Errorf("no synthesis providers configured: %w", entity.ErrSynthesisMisconfigured)
	}

	terminal := d.providers[len(d.providers)-1]

	probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	audio, err := terminal.Synthesize(probeCtx, "System check.", entity.DefaultVoiceStyle())
	if err != nil {
		return fmt.Errorf("synthesis probe via %s failed (%v): %w", terminal.Name(), err, entity.ErrSynthesisMisconfigured)
	}
	if len(audio.Data) == 0 {
		return fmt.Errorf("synthesis probe via %s produced no audio: %w", terminal.Name(), entity.ErrSynthesisMisconfigured)
	}

	d.logger.Info("synthesis probe passed",
		zap.String("provider", terminal.Name()),
		zap.Int("audio_bytes", len(audio.Data)),
	)
	return nil
}
