package asr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/integration/common"
	pkghttp "github.com/voxline/voiceqa-backend/pkg/http"
	"go.uber.org/zap"
)

// Connector talks to the external HTTP speech recognition service.
type Connector struct {
	config    config.ASRConnectorConfig
	connector *pkghttp.Connector
}

func NewConnector(cfg config.ASRConnectorConfig) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig),
		config:    cfg,
	}
}

func (c *Connector) Name() string {
	return "http"
}

// Transcribe uploads the recorded answer and returns the recognized text
// with its confidence score.
func (c *Connector) Transcribe(ctx context.Context, audio []byte, filename string) (entity.Transcription, error) {
	if len(audio) == 0 {
		return entity.Transcription{}, fmt.Errorf("empty audio data provided")
	}

	hash := sha256.Sum256(audio)
	checksum := hex.EncodeToString(hash[:])

	ctxzap.Info(ctx, "transcribing audio via ASR service",
		zap.String("filename", filename),
		zap.String("checksum", checksum),
		zap.Int("size", len(audio)),
	)

	prepareBody := func(writer *multipart.Writer) error {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return fmt.Errorf("create form file: %w", err)
		}

		if _, err := part.Write(audio); err != nil {
			return fmt.Errorf("write file content: %w", err)
		}

		if err := writer.WriteField("checksum", checksum); err != nil {
			return fmt.Errorf("write checksum field: %w", err)
		}

		return nil
	}

	var resp entity.ASRTranscribeResponse
	err := c.connector.DoMultipartRequest(ctx, http.MethodPost, c.config.TranscribeEndpoint, prepareBody, &resp)
	if err != nil {
		return entity.Transcription{}, fmt.Errorf("failed to transcribe audio: %w", err)
	}

	ctxzap.Info(ctx, "audio transcribed",
		zap.Int("transcription_length", len(resp.Text)),
		zap.Float64("confidence", resp.Confidence),
	)

	return entity.Transcription{
		Text:       resp.Text,
		Confidence: resp.Confidence,
	}, nil
}
