// Package events publishes call lifecycle events to Kafka. When publishing
// is disabled the publisher degrades to log-only mode, so the call flow
// behaves identically in environments without a broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/voxline/voiceqa-backend/internal/config"
	"github.com/voxline/voiceqa-backend/internal/entity"
	"github.com/voxline/voiceqa-backend/internal/pkg/metrics"
)

type Publisher struct {
	writer  *kafka.Writer
	topic   string
	source  string
	enabled bool
	metrics *metrics.Metrics
}

func NewPublisher(cfg config.EventsConfig, logger *zap.Logger) *Publisher {
	m := metrics.DefaultMetrics

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info("event publishing disabled, using log-only mode")
		return &Publisher{
			topic:   cfg.Topic,
			source:  cfg.Source,
			enabled: false,
			metrics: m,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{Dial: dialer.DialFunc},
	}

	logger.Info("event publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.String("source", cfg.Source))

	return &Publisher{
		writer:  writer,
		topic:   cfg.Topic,
		source:  cfg.Source,
		enabled: true,
		metrics: m,
	}
}

// SessionStarted announces a new call. Only the session ID is carried.
func (p *Publisher) SessionStarted(ctx context.Context, sessionID string) {
	p.publish(ctx, entity.CallEvent{
		Event:     entity.CallEventSessionStarted,
		SessionID: sessionID,
	})
}

// SessionCompleted announces a call that reached the end of the question list.
func (p *Publisher) SessionCompleted(ctx context.Context, results *entity.SessionResults) {
	p.publish(ctx, entity.CallEvent{
		Event:     entity.CallEventSessionCompleted,
		SessionID: results.SessionID,
		Results:   results,
	})
}

// SessionAbandoned announces a call that ended before the last question.
func (p *Publisher) SessionAbandoned(ctx context.Context, results *entity.SessionResults) {
	p.publish(ctx, entity.CallEvent{
		Event:     entity.CallEventSessionAbandoned,
		SessionID: results.SessionID,
		Results:   results,
	})
}

// publish is best effort: errors are counted and logged, never propagated.
func (p *Publisher) publish(ctx context.Context, event entity.CallEvent) {
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)

	payload, err := json.Marshal(event)
	if err != nil {
		ctxzap.Error(ctx, "failed to marshal call event",
			zap.String("event", string(event.Event)),
			zap.Error(err))
		p.metrics.RecordEventPublish(string(event.Event), err)
		return
	}

	if !p.enabled || p.writer == nil {
		ctxzap.Debug(ctx, "event publishing disabled, logging only",
			zap.String("event", string(event.Event)),
			zap.String("session_id", event.SessionID),
			zap.ByteString("payload", payload))
		p.metrics.RecordEventPublish(string(event.Event), nil)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.Event)},
			{Key: "source", Value: []byte(p.source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		ctxzap.Error(ctx, "failed to publish call event",
			zap.String("event", string(event.Event)),
			zap.String("session_id", event.SessionID),
			zap.String("topic", p.topic),
			zap.Error(err))
		p.metrics.RecordEventPublish(string(event.Event), err)
		return
	}

	p.metrics.RecordEventPublish(string(event.Event), nil)
	ctxzap.Debug(ctx, "call event published",
		zap.String("event", string(event.Event)),
		zap.String("session_id", event.SessionID),
		zap.String("topic", p.topic))
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
