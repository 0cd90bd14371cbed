package azurespeech

import (
	"context"
	"fmt"
	"html"
	"net/http"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/integration/common"
	pkghttp "github.com/voxline/voiceqa-backend/pkg/http"
	"go.uber.org/zap"
)

const ttsEndpoint = "/cognitiveservices/v1"

type Connector struct {
	config    config.AzureSpeechConfig
	connector *pkghttp.Connector
}

func NewConnector(cfg config.AzureSpeechConfig) *Connector {
	if cfg.Url == "" {
		cfg.Url = fmt.Sprintf("https://%s.tts.speech.microsoft.com", cfg.Region)
	}

	return &Connector{
		connector: common.NewBaseConnectorWithOpts(cfg.HTTPClientConfig,
			pkghttp.WithAPIKeyAuth("Ocp-Apim-Subscription-Key", cfg.SubscriptionKey),
		),
		config: cfg,
	}
}

func (c *Connector) Name() string {
	return "azure"
}

// Synthesize renders text through Azure Cognitive Services TTS. The request
// body is SSML; the voice and output format come from config, the prosody
// rate from the requested style.
func (c *Connector) Synthesize(ctx context.Context, text string, style entity.VoiceStyle) (*entity.SpeechAudio, error) {
	if text == "" {
		return nil, fmt.Errorf("empty text provided")
	}

	ssml := buildSSML(text, c.config.Voice, style)

	data, err := c.connector.DoRawRequest(ctx, http.MethodPost, ttsEndpoint, "application/ssml+xml", []byte(ssml),
		pkghttp.WithHeader("X-Microsoft-OutputFormat", c.config.OutputFormat),
		pkghttp.WithHeader("User-Agent", "voiceqa-backend"),
	)
	if err != nil {
		return nil, fmt.Errorf("azure synthesis: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("azure returned empty audio")
	}

	ctxzap.Info(ctx, "speech synthesized via Azure",
		zap.String("voice", c.config.Voice),
		zap.Int("text_length", len(text)),
		zap.Int("audio_bytes", len(data)),
	)

	return &entity.SpeechAudio{
		Data:     data,
		MIMEType: "audio/mpeg",
		Provider: c.Name(),
	}, nil
}

func buildSSML(text, voice string, style entity.VoiceStyle) string {
	speed := style.Speed
	if speed <= 0 {
		speed = 1.0
	}
	rate := fmt.Sprintf("%+.0f%%", (speed-1)*100)

	lang := style.Language
	if lang == "" {
		lang = "en-US"
	}

	return fmt.Sprintf(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="http://www.w3.org/2001/mstts" xml:lang=%q>`+
		`<voice name=%q><prosody rate=%q pitch="+0%%" volume="+0%%">%s</prosody></voice></speak>`,
		lang, voice, rate, html.EscapeString(text))
}
