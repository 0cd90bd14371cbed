// Package webhook posts session lifecycle notifications to an external
// HTTP endpoint. Delivery is best effort: failures are retried a few times,
// then logged and dropped, never failing the call flow that triggered them.
package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/integration/common"
	pkghttp "github.com/voxline/voiceqa-backend/pkg/http"
)

type Connector struct {
	config    config.WebhookConfig
	connector *pkghttp.Connector
}

func NewConnector(cfg config.WebhookConfig) *Connector {
	return &Connector{
		config:    cfg,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig),
	}
}

// NotifySessionCompleted posts the final transcript of a finished call.
func (c *Connector) NotifySessionCompleted(ctx context.Context, results *entity.SessionResults) {
	event := entity.CallEvent{
		Event:     entity.CallEventSessionCompleted,
		SessionID: results.SessionID,
		Results:   results,
	}
	if err := c.send(ctx, event); err != nil {
		ctxzap.Error(ctx, "failed to deliver session completed webhook",
			zap.String("session_id", results.SessionID),
			zap.Error(err))
	}
}

// NotifySessionAbandoned posts the partial transcript of a call that ended
// before the caller reached the last question.
func (c *Connector) NotifySessionAbandoned(ctx context.Context, results *entity.SessionResults) {
	event := entity.CallEvent{
		Event:     entity.CallEventSessionAbandoned,
		SessionID: results.SessionID,
		Results:   results,
	}
	if err := c.send(ctx, event); err != nil {
		ctxzap.Error(ctx, "failed to deliver session abandoned webhook",
			zap.String("session_id", results.SessionID),
			zap.Error(err))
	}
}

func (c *Connector) send(ctx context.Context, event entity.CallEvent) error {
	if !c.config.Enabled {
		ctxzap.Debug(ctx, "webhook disabled, dropping event",
			zap.String("event", string(event.Event)),
			zap.String("session_id", event.SessionID))
		return nil
	}

	event.Timestamp = time.Now().UTC().Format(time.RFC3339)

	ctxzap.Debug(ctx, "delivering webhook event",
		zap.String("event", string(event.Event)),
		zap.String("session_id", event.SessionID),
		zap.String("url", c.config.Url))

	opts := append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))
	err := retry.Do(func() error {
		return c.connector.DoRequest(ctx, http.MethodPost, "", event, nil,
			pkghttp.WithHeader("X-Session-ID", event.SessionID))
	}, opts...)
	if err != nil {
		return err
	}

	ctxzap.Info(ctx, "webhook event delivered",
		zap.String("event", string(event.Event)),
		zap.String("session_id", event.SessionID))
	return nil
}
