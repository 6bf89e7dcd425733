package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-overlay-engine/internal/config"
)

// Publisher produces hazard feed payloads. The fixture generator uses it
// to push synthetic scenes onto the feed topic a running sim consumes.
type Publisher struct {
	writer *kafkago.Writer
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewPublisher creates a producer for the configured feed topic.
func NewPublisher(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaFeedTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, clock: clock, logger: logger}
}

// Publish sends one GeoJSON feed payload keyed by scene name.
func (p *Publisher) Publish(ctx context.Context, key string, payload []byte) error {
	msg := wrapMessage(key, payload, p.clock.Now())
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish feed payload: %w", err)
	}
	p.logger.Info("feed payload published", "key", key, "bytes", len(payload))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// wrapMessage wraps a serialized payload into a keyed, headered message.
func wrapMessage(key string, payload []byte, at time.Time) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  at,
		Headers: []kafkago.Header{
			{Key: "content_type", Value: []byte("application/geo+json")},
			{Key: "produced_at", Value: []byte(at.Format(time.RFC3339))},
		},
	}
}
