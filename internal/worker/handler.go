package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/sms-dispatch/internal/dispatch"
	"github.com/example/sms-dispatch/internal/kafka/consumer"
	"github.com/example/sms-dispatch/internal/models"
)

// Dispatcher is the engine surface the handler depends on.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (*models.BatchResult, error)
}

// OutcomePublisher emits the batch event for a processed request.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, event models.BatchEvent) error
}

// Config tunes the handler.
type Config struct {
	// RequestTimeout bounds one whole dispatch call. Zero means no bound
	// beyond the consumer session context.
	RequestTimeout time.Duration
}

// Handler processes bulk-send request records.
type Handler struct {
	dispatcher Dispatcher
	publisher  OutcomePublisher
	cfg        Config
	logger     zerolog.Logger
	now        func() time.Time
}

// NewHandler constructs a Handler. The publisher may be nil when no outcome
// topic is configured; outcomes are then only logged.
func NewHandler(dispatcher Dispatcher, publisher OutcomePublisher, cfg Config, logger zerolog.Logger) (*Handler, error) {
	if dispatcher == nil {
		return nil, errors.New("worker: dispatcher dependency is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Handler{
		dispatcher: dispatcher,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger.With().Str("component", "dispatch_handler").Logger(),
		now:        time.Now,
	}, nil
}

// Handle decodes one request record, dispatches it, and publishes the
// outcome. A nil return means the record is fully processed and may be
// committed; errors indicate infrastructure failures worth a redelivery.
func (h *Handler) Handle(ctx context.Context, key, value []byte) error {
	dispatchID := string(key)
	if dispatchID == "" {
		dispatchID = uuid.NewString()
	}
	logger := h.logger.With().Str("dispatch_id", dispatchID).Logger()

	var req BulkSendRequest
	if err := json.Unmarshal(value, &req); err != nil {
		// Poison record: log and let the caller commit it.
		logger.Warn().Err(err).Msg("discarding malformed dispatch request")
		return nil
	}

	callCtx := ctx
	if h.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, h.cfg.RequestTimeout)
		defer cancel()
	}

	sender := req.ServiceID
	if sender == "" {
		sender = req.From
	}

	res, err := h.dispatcher.Dispatch(callCtx, req.toEngineRequest())
	if err != nil {
		// Call-level errors are caller mistakes, not broker problems:
		// publish the failure and commit the record.
		logger.Warn().Err(err).Msg("dispatch request rejected")
		return h.publish(ctx, models.BatchEvent{
			DispatchID:   dispatchID,
			Sender:       sender,
			ValidateOnly: req.ValidateOnly,
			Error:        err.Error(),
			CompletedAt:  h.now().UTC(),
		})
	}

	logger.Info().
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Bool("cancelled", res.Cancelled).
		Msg("dispatch request processed")

	return h.publish(ctx, models.BatchEvent{
		DispatchID:   dispatchID,
		Sender:       sender,
		ValidateOnly: req.ValidateOnly,
		Sent:         res.Sent,
		Failed:       res.Failed,
		Cancelled:    res.Cancelled,
		Results:      res.Results,
		CompletedAt:  h.now().UTC(),
	})
}

// Bridge adapts the handler to the consumer's record callback, committing
// records the handler fully processed.
func (h *Handler) Bridge() consumer.Handler {
	return func(ctx context.Context, record *consumer.Record) error {
		if err := h.Handle(ctx, record.Key, record.Value); err != nil {
			return err
		}
		if err := record.Commit(); err != nil {
			return fmt.Errorf("worker: commit record: %w", err)
		}
		return nil
	}
}

func (h *Handler) publish(ctx context.Context, event models.BatchEvent) error {
	if h.publisher == nil {
		return nil
	}
	if err := h.publisher.PublishOutcome(ctx, event); err != nil {
		return fmt.Errorf("worker: publish outcome: %w", err)
	}
	return nil
}
