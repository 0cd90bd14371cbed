package asr

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"go.uber.org/zap"
)

// MockConnector is the mock recognizer used when mocks are enabled.
type MockConnector struct{}

func NewMockConnector() *MockConnector {
	return &MockConnector{}
}

func (m *MockConnector) Name() string {
	return "mock"
}

// Transcribe returns a fixed phrase that satisfies every validation category
// (two or more words, nine digits, a yes token), so a mocked call can run the
// whole question list end to end.
func (m *MockConnector) Transcribe(ctx context.Context, audio []byte, filename string) (entity.Transcription, error) {
	if len(audio) == 0 {
		return entity.Transcription{}, fmt.Errorf("empty audio data provided")
	}

	ctxzap.Info(ctx, "[MOCK] transcribing audio",
		zap.String("filename", filename),
		zap.Int("size", len(audio)),
	)

	return entity.Transcription{
		Text:       "yes John Smith at Main Street 123456789",
		Confidence: 0.95,
	}, nil
}
