// Package publisher emits completed dispatch batches as events on a Kafka
// topic for downstream consumers (reporting, billing, reconciliation).
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/example/sms-dispatch/internal/models"
)

var errProducerNotInitialised = errors.New("kafka publisher: producer not initialised")

// SyncProducer captures the subset of producer behaviour the publisher needs.
type SyncProducer interface {
	PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error
}

// OutcomePublisher writes batch events to the outcomes topic.
type OutcomePublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewOutcomePublisher constructs an OutcomePublisher instance.
func NewOutcomePublisher(prod SyncProducer, topic string, logger zerolog.Logger) *OutcomePublisher {
	if prod == nil {
		return nil
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &OutcomePublisher{producer: prod, topic: topic, logger: logger}
}

// PublishOutcome writes the supplied batch event to Kafka synchronously.
// Records are keyed by dispatch id so one batch's events stay ordered.
func (p *OutcomePublisher) PublishOutcome(_ context.Context, event models.BatchEvent) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal batch event: %w", err)
	}

	headers := map[string][]byte{
		"content-type": []byte("application/json"),
	}
	if err := p.producer.PublishSync(p.topic, []byte(event.DispatchID), headers, payload); err != nil {
		return fmt.Errorf("kafka publisher: publish batch event: %w", err)
	}

	p.logger.Debug().
		Str("dispatch_id", event.DispatchID).
		Int("sent", event.Sent).
		Int("failed", event.Failed).
		Msg("batch event published")
	return nil
}
