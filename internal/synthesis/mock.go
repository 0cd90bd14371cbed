package synthesis

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/wav"
	"go.uber.org/zap"
)

// MockProvider returns a short silent WAV for any input. Used when mocks are
// enabled so the call flow can be exercised without hosted TTS credentials.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Synthesize(ctx context.Context, text string, style entity.VoiceStyle) (*entity.SpeechAudio, error) {
	ctxzap.Info(ctx, "[MOCK] synthesizing speech",
		zap.Int("text_length", len(text)),
		zap.String("voice", style.Voice),
	)

	// 200ms of silence at 16kHz.
	return &entity.SpeechAudio{
		Data:     wav.Encode(make([]int16, 3200), 16000),
		MIMEType: "audio/wav",
		Provider: m.Name(),
	}, nil
}
