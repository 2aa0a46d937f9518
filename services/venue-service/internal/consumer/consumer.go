package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/venuebook/libs/kafkax"
	"github.com/md-rashed-zaman/venuebook/services/venue-service/internal/inbox"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// MessageReader is the subset of *kafka.Reader the consumer needs. Offsets
// are committed explicitly once a message has been handled.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  MessageReader
	logger  *slog.Logger
	inbox   inbox.Recorder
	handler Handler
	backoff time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

// NewKafkaReader returns nil when no brokers are configured.
func NewKafkaReader(cfg Config) *kafka.Reader {
	brokers := kafkax.SplitBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

func New(logger *slog.Logger, recorder inbox.Recorder, reader MessageReader, handler Handler) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   recorder,
		handler: handler,
		backoff: time.Second,
	}
}

// Run reads until ctx is done. A message is committed only after it has been
// handled and recorded in the inbox; a failed message is retried in place, so
// delivery is at-least-once and the inbox drops copies already applied.
func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !c.wait(ctx) {
				return
			}
			continue
		}
		if !c.process(ctx, msg) {
			return
		}
	}
}

// process retries msg until it is handled. It returns false when ctx ends
// first; the message then stays uncommitted and is redelivered.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	for {
		err := c.handle(ctx, msg)
		if err == nil {
			break
		}
		c.logger.Error("message failed, retrying", "err", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		if !c.wait(ctx) {
			return false
		}
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.logger.Error("kafka commit failed", "err", err, "offset", msg.Offset)
	}
	return true
}

func (c *Consumer) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	key := dedupeKey(msg, meta)

	seen, err := c.inbox.Seen(ctxSpan, key)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("inbox lookup: %w", err)
	}
	if seen {
		c.logger.Info("duplicate event ignored", "event_id", key, "event_type", meta.EventType)
		return nil
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		span.RecordError(err)
		return err
	}
	if _, err := c.inbox.Record(ctxSpan, key, meta.EventType); err != nil {
		span.RecordError(err)
		return fmt.Errorf("inbox record: %w", err)
	}
	return nil
}

// dedupeKey falls back to the log position when the producer set neither an
// event_id header nor a message key.
func dedupeKey(msg kafka.Message, meta kafkax.EventMeta) string {
	if meta.EventID != "" {
		return meta.EventID
	}
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}
