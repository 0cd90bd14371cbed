package transcription

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/metrics"
	pkgRetry "github.com/voxline/voiceqa-backend/internal/pkg/retry"
	"go.uber.org/zap"
)

// Service wraps a recognizer with bounded retries and the unrecognized
// sentinel contract: after the retry budget is spent, failures come back as
// an empty transcription, not an error. Only context cancellation escapes.
type Service struct {
	recognizer Recognizer
	retryCfg   pkgRetry.RetryConfig
	metrics    *metrics.Metrics
}

func NewService(recognizer Recognizer, retryCfg pkgRetry.RetryConfig, m *metrics.Metrics) *Service {
	return &Service{
		recognizer: recognizer,
		retryCfg:   retryCfg,
		metrics:    m,
	}
}

// Name reports the underlying recognizer.
func (s *Service) Name() string {
	return s.recognizer.Name()
}

func (s *Service) Transcribe(ctx context.Context, audio []byte, filename string) (entity.Transcription, error) {
	// Forced submissions carry no samples; there is nothing to recognize.
	if len(audio) == 0 {
		return entity.UnrecognizedTranscription(), nil
	}

	opts := append(s.retryCfg.ToRetryOptions(), retry.Context(ctx))

	start := time.Now()
	result, err := retry.DoWithData(func() (entity.Transcription, error) {
		return s.recognizer.Transcribe(ctx, audio, filename)
	}, opts...)
	s.metrics.RecordTranscription(s.recognizer.Name(), err, time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return entity.Transcription{}, ctx.Err()
		}

		ctxzap.Warn(ctx, "transcription failed, treating answer as unrecognized",
			zap.String("recognizer", s.recognizer.Name()),
			zap.String("filename", filename),
			zap.Int("audio_bytes", len(audio)),
			zap.Error(err),
		)
		return entity.UnrecognizedTranscription(), nil
	}

	return result, nil
}
