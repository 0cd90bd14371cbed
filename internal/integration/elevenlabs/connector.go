package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/integration/common"
	pkghttp "github.com/voxline/voiceqa-backend/pkg/http"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.elevenlabs.io"

type Connector struct {
	config    config.ElevenLabsConfig
	connector *pkghttp.Connector
}

func NewConnector(cfg config.ElevenLabsConfig) *Connector {
	if cfg.Url == "" {
		cfg.Url = defaultBaseURL
	}

	return &Connector{
		connector: common.NewBaseConnectorWithOpts(cfg.HTTPClientConfig,
			pkghttp.WithAPIKeyAuth("xi-api-key", cfg.APIKey),
		),
		config: cfg,
	}
}

func (c *Connector) Name() string {
	return "elevenlabs"
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize renders text through the ElevenLabs text-to-speech API and
// returns the MP3 payload.
func (c *Connector) Synthesize(ctx context.Context, text string, style entity.VoiceStyle) (*entity.SpeechAudio, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text provided")
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: c.config.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	endpoint := fmt.Sprintf("/v1/text-to-speech/%s", c.config.VoiceID)

	data, err := c.connector.DoRawRequest(ctx, http.MethodPost, endpoint, "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs synthesis: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}

	ctxzap.Info(ctx, "speech synthesized via ElevenLabs",
		zap.String("voice_id", c.config.VoiceID),
		zap.Int("text_length", len(text)),
		zap.Int("audio_bytes", len(data)),
	)

	return &entity.SpeechAudio{
		Data:     data,
		MIMEType: "audio/mpeg",
		Provider: c.Name(),
	}, nil
}
