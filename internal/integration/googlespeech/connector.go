// Package googlespeech adapts Google Cloud Speech-to-Text to the recognizer
// contract. Answers are short, so the synchronous Recognize API is enough; no
// streaming session is held across requests.
package googlespeech

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/wav"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type Connector struct {
	client *speech.Client
	config config.GoogleSpeechConfig
}

func NewConnector(ctx context.Context, cfg config.GoogleSpeechConfig) (*Connector, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	return &Connector{
		client: client,
		config: cfg,
	}, nil
}

func (c *Connector) Name() string {
	return "google"
}

// Transcribe sends the answer as LINEAR16 content. The WAV container is
// stripped first; the API wants raw frames plus an explicit sample rate.
func (c *Connector) Transcribe(ctx context.Context, audio []byte, filename string) (entity.Transcription, error) {
	if len(audio) == 0 {
		return entity.Transcription{}, fmt.Errorf("empty audio data provided")
	}

	pcm, rate, err := wav.Decode(audio)
	if err != nil {
		return entity.Transcription{}, fmt.Errorf("decode answer wav: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	resp, err := c.client.Recognize(reqCtx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(rate),
			LanguageCode:    c.config.Language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcmBytes(pcm)},
		},
	})
	if err != nil {
		return entity.Transcription{}, fmt.Errorf("google recognize: %w", err)
	}

	var (
		text       strings.Builder
		confidence float64
		n          int
	)
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		alt := result.Alternatives[0]
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(alt.Transcript)
		confidence += float64(alt.Confidence)
		n++
	}

	if n == 0 {
		ctxzap.Info(ctx, "google recognized nothing", zap.String("filename", filename))
		return entity.UnrecognizedTranscription(), nil
	}

	transcription := entity.Transcription{
		Text:       strings.TrimSpace(text.String()),
		Confidence: confidence / float64(n),
	}

	ctxzap.Info(ctx, "audio transcribed via google",
		zap.String("filename", filename),
		zap.Int("transcription_length", len(transcription.Text)),
		zap.Float64("confidence", transcription.Confidence),
	)

	return transcription, nil
}

// Close releases the underlying gRPC connection.
func (c *Connector) Close() error {
	return c.client.Close()
}

func pcmBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
