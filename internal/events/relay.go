package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"storefront/internal/logger"
	outboxrepo "storefront/internal/repository/outbox"
)

const (
	defaultInterval = time.Second
	defaultBatch    = 100
)

// MessageWriter is the subset of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter returns a writer that hashes keys so events of one order
// stay on one partition.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// PublishRecorder observes each publish attempt.
type PublishRecorder interface {
	RecordPublished(ok bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordPublished(bool) {}

// Relay publishes outbox events at least once.
type Relay struct {
	repo     outboxrepo.Repository
	writer   MessageWriter
	recorder PublishRecorder
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

func NewRelay(repo outboxrepo.Repository, writer MessageWriter, l *slog.Logger) *Relay {
	return &Relay{
		repo:     repo,
		writer:   writer,
		recorder: noopRecorder{},
		interval: defaultInterval,
		batch:    defaultBatch,
		logger:   logger.OrDiscard(l),
	}
}

// WithRecorder reports publish results to rec.
func (r *Relay) WithRecorder(rec PublishRecorder) *Relay {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// Run polls until ctx is cancelled, then closes the writer.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer func() {
		if err := r.writer.Close(); err != nil {
			r.logger.Error("outbox relay: close writer", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.publishPending(ctx)
		}
	}
}

// publishPending sends one batch and returns how many events were marked.
func (r *Relay) publishPending(ctx context.Context) int {
	pending, err := r.repo.FetchUnpublished(ctx, r.batch)
	if err != nil {
		r.logger.Error("outbox relay: fetch", "error", err)
		return 0
	}

	published := 0
	for _, ev := range pending {
		msg := kafka.Message{
			Key:   []byte(ev.AggregateID),
			Value: ev.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(ev.EventType)},
			},
		}
		if err := r.writer.WriteMessages(ctx, msg); err != nil {
			r.recorder.RecordPublished(false)
			r.logger.Error("outbox relay: publish", "event_id", ev.ID, "error", err)
			return published
		}
		if err := r.repo.MarkPublished(ctx, ev.ID); err != nil {
			r.logger.Error("outbox relay: mark published", "event_id", ev.ID, "error", err)
			continue
		}
		r.recorder.RecordPublished(true)
		published++
	}
	if published > 0 {
		r.logger.Debug("outbox relay: published", "count", published)
	}
	return published
}
