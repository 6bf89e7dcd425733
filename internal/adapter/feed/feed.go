// Package feed consumes the hazard feed and storm report topics and turns
// their messages into whole-state hazard deliveries for the overlay manager.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/storm-overlay-engine/internal/config"
	"github.com/couchcryptid/storm-overlay-engine/internal/hazard"
	"github.com/couchcryptid/storm-overlay-engine/internal/observability"
)

const (
	// reportTTL bounds how long a storm report keeps its detection zone
	// alive without the feed confirming it.
	reportTTL = 15 * time.Minute

	// maxReports caps the report roster; the oldest entry falls off first.
	maxReports = 32
)

// Applier receives composed hazard deliveries. *overlay.Manager satisfies it.
type Applier interface {
	Apply(hazard.Update) error
}

// Subscriber consumes the GeoJSON hazard feed and the transformed storm
// report stream. Feed payloads replace the whole hazard state; storm
// reports layer short-lived detection zones on top of the latest state.
type Subscriber struct {
	reader  *kafkago.Reader
	applier Applier
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	feedTopic   string
	reportTopic string

	// Consumption state; only the Run goroutine touches these.
	base       hazard.Update
	roster     []rosterEntry
	observedAt time.Time
}

type rosterEntry struct {
	zone hazard.DetectionZone
	at   time.Time
}

// NewSubscriber creates a consumer group over the feed and report topics.
func NewSubscriber(cfg *config.Config, applier Applier, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Subscriber {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		GroupTopics: []string{cfg.KafkaFeedTopic, cfg.KafkaReportTopic},
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.LastOffset,
		MaxBytes:    10e6,
	})
	return &Subscriber{
		reader:      r,
		applier:     applier,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
		feedTopic:   cfg.KafkaFeedTopic,
		reportTopic: cfg.KafkaReportTopic,
	}
}

// Run consumes messages until the context is canceled or the reader is
// closed. Malformed payloads are dropped and counted, never fatal.
func (s *Subscriber) Run(ctx context.Context) error {
	s.logger.Info("feed subscriber started",
		"feed_topic", s.feedTopic,
		"report_topic", s.reportTopic)

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				s.logger.Info("feed subscriber stopped")
				return nil
			}
			return fmt.Errorf("fetch feed message: %w", err)
		}

		s.handle(msg)

		// Deliveries are whole-state, so redelivering a dropped message
		// buys nothing; commit regardless of how handling went.
		if err := s.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			s.logger.Warn("offset commit failed",
				"topic", msg.Topic, "offset", msg.Offset, "error", err)
		}
	}
}

// handle dispatches one message by topic and, if it changed anything,
// delivers the recomposed state.
func (s *Subscriber) handle(msg kafkago.Message) {
	var changed bool
	switch msg.Topic {
	case s.feedTopic:
		changed = s.handleFeed(msg)
	case s.reportTopic:
		changed = s.handleReport(msg)
	default:
		s.logger.Debug("message on unexpected topic", "topic", msg.Topic)
	}
	if changed {
		s.deliver()
	}
}

func (s *Subscriber) handleFeed(msg kafkago.Message) bool {
	u, stats, err := hazard.DecodeUpdate(msg.Value, s.messageTime(msg))
	if err != nil {
		s.metrics.FeedErrors.Inc()
		s.logger.Warn("feed payload dropped", "offset", msg.Offset, "error", err)
		return false
	}
	if stats.Dropped > 0 {
		s.logger.Debug("feed features dropped",
			"dropped", stats.Dropped, "offset", msg.Offset)
	}
	s.base = u
	s.observedAt = u.ObservedAt
	return true
}

func (s *Subscriber) handleReport(msg kafkago.Message) bool {
	r, err := hazard.DecodeReport(msg.Value)
	if err != nil {
		s.metrics.FeedErrors.Inc()
		s.logger.Warn("storm report dropped", "offset", msg.Offset, "error", err)
		return false
	}
	zone, ok := hazard.DetectionFromReport(r)
	if !ok {
		s.logger.Debug("storm report without usable position", "id", r.ID)
		return false
	}
	s.upsert(zone)
	s.observedAt = s.messageTime(msg)
	return true
}

// deliver prunes expired reports, merges the rest under the feed state,
// and hands the result to the applier. On ID collision the feed wins.
func (s *Subscriber) deliver() {
	s.prune()

	u := s.base
	u.ObservedAt = s.observedAt
	if len(s.roster) > 0 {
		seen := make(map[string]bool, len(u.Detections))
		for _, d := range u.Detections {
			seen[d.ID] = true
		}
		merged := make([]hazard.DetectionZone, len(u.Detections), len(u.Detections)+len(s.roster))
		copy(merged, u.Detections)
		for _, e := range s.roster {
			if !seen[e.zone.ID] {
				merged = append(merged, e.zone)
			}
		}
		u.Detections = merged
	}

	if err := s.applier.Apply(u); err != nil {
		s.metrics.FeedErrors.Inc()
		s.logger.Warn("hazard update apply failed", "error", err)
	}
}

// upsert replaces a roster entry with the same ID or appends, evicting
// the oldest entry when the roster is full.
func (s *Subscriber) upsert(zone hazard.DetectionZone) {
	now := s.clock.Now()
	for i := range s.roster {
		if s.roster[i].zone.ID == zone.ID {
			s.roster[i] = rosterEntry{zone: zone, at: now}
			return
		}
	}
	if len(s.roster) >= maxReports {
		s.roster = s.roster[1:]
	}
	s.roster = append(s.roster, rosterEntry{zone: zone, at: now})
}

func (s *Subscriber) prune() {
	cutoff := s.clock.Now().Add(-reportTTL)
	kept := s.roster[:0]
	for _, e := range s.roster {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	s.roster = kept
}

func (s *Subscriber) messageTime(msg kafkago.Message) time.Time {
	if msg.Time.IsZero() {
		return s.clock.Now()
	}
	return msg.Time
}

// Close stops the underlying reader; a blocked Run returns once it drains.
func (s *Subscriber) Close() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("close feed reader: %w", err)
	}
	return nil
}
