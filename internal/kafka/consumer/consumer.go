// Package consumer wraps a Sarama consumer group, delivering records to a
// handler with explicit acknowledgement on success.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

const defaultConsumeBackoff = time.Second

// Handler is invoked for every record delivered by the consumer. Returning
// nil acknowledges nothing by itself: the handler marks the record via
// Record.Commit once it has durably processed it.
type Handler func(ctx context.Context, record *Record) error

// Option customises the consumer during construction.
type Option func(*options)

type options struct {
	config *sarama.Config
}

// WithConfig allows callers to supply a preconfigured Sarama config.
func WithConfig(cfg *sarama.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// Record represents a Kafka message delivered by the consumer.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	session sarama.ConsumerGroupSession
	message *sarama.ConsumerMessage
}

// Commit marks the record as processed so its offset is committed.
func (r *Record) Commit() error {
	if r.session == nil || r.message == nil {
		return errors.New("kafka consumer: record is not commitable")
	}
	r.session.MarkMessage(r.message, "")
	return nil
}

// Consumer joins a consumer group and feeds records to a handler.
type Consumer struct {
	logger  zerolog.Logger
	group   sarama.ConsumerGroup
	groupID string
}

// New constructs a consumer for the supplied brokers and consumer group.
func New(brokers []string, groupID string, logger zerolog.Logger, opts ...Option) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka consumer: at least one broker is required")
	}
	if groupID == "" {
		return nil, errors.New("kafka consumer: group id is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	settings := &options{config: defaultConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}

	group, err := sarama.NewConsumerGroup(brokers, groupID, settings.config)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: create consumer group: %w", err)
	}

	return &Consumer{logger: logger, group: group, groupID: groupID}, nil
}

// Consume joins the group and processes records until ctx is cancelled.
func (c *Consumer) Consume(ctx context.Context, topics []string, handler Handler) error {
	if len(topics) == 0 {
		return errors.New("kafka consumer: at least one topic is required")
	}
	if handler == nil {
		return errors.New("kafka consumer: handler is required")
	}

	gh := &groupHandler{logger: c.logger, handler: handler}
	for {
		if err := c.group.Consume(ctx, topics, gh); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error().Err(err).Msg("consumer session failed, retrying")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Brief pause so a misbehaving cluster does not spin the loop.
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(defaultConsumeBackoff):
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	logger  zerolog.Logger
	handler Handler
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		record := recordFromMessage(session, msg)
		if err := h.handler(session.Context(), record); err != nil {
			h.logger.Error().
				Str("topic", msg.Topic).
				Int32("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Err(err).
				Msg("record handler failed; offset left uncommitted")
		}
		if session.Context().Err() != nil {
			return nil
		}
	}
	return nil
}

func recordFromMessage(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) *Record {
	var headers map[string][]byte
	if len(msg.Headers) > 0 {
		headers = make(map[string][]byte, len(msg.Headers))
		for _, h := range msg.Headers {
			if h != nil {
				headers[string(h.Key)] = h.Value
			}
		}
	}
	return &Record{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
		Timestamp: msg.Timestamp,
		Headers:   headers,
		session:   session,
		message:   msg,
	}
}

func defaultConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Return.Errors = false
	return cfg
}
