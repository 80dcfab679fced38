// Package dispatch implements the bulk send core: recipient normalization,
// delivery-option validation, and bounded concurrent fan-out to a transport
// with partial-failure isolation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/sms-dispatch/internal/models"
	"github.com/example/sms-dispatch/internal/phone"
	"github.com/example/sms-dispatch/internal/transport"
)

// DefaultConcurrency bounds simultaneous transport calls when the
// configuration does not say otherwise.
const DefaultConcurrency = 10

// Call-level errors. These abort the whole invocation before any transport
// work starts; per-recipient failures never surface here.
var (
	ErrEmptyMessage = errors.New("dispatch: message body is required")
	ErrNoRecipients = errors.New("dispatch: at least one recipient is required")
	ErrNilTransport = errors.New("dispatch: transport is required")
)

// Config carries engine tuning.
type Config struct {
	// DefaultRegion is the ISO region applied when a request carries no
	// region hint of its own.
	DefaultRegion string
	// Concurrency caps in-flight transport calls across all dispatch calls
	// served by this engine. Zero means DefaultConcurrency.
	Concurrency int
}

// Dependencies collects the engine's ambient collaborators.
type Dependencies struct {
	Logger zerolog.Logger
	// Now overrides the clock, mainly for tests. Nil means time.Now.
	Now func() time.Time
}

// Engine orchestrates one-or-many-recipient sends. It owns no state across
// calls; everything it builds lives for the duration of one Dispatch.
type Engine struct {
	transport transport.Transport
	cfg       Config
	logger    zerolog.Logger
	sem       *semaphore.Weighted
	now       func() time.Time
}

// New constructs an Engine around the supplied transport.
func New(tr transport.Transport, cfg Config, deps Dependencies) (*Engine, error) {
	if tr == nil {
		return nil, ErrNilTransport
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "dispatch_engine").Logger()

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		transport: tr,
		cfg:       cfg,
		logger:    logger,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		now:       now,
	}, nil
}

// Request describes one dispatch call. Exactly one of From and ServiceID
// must be set; From is a raw phone number normalized under the region hint.
type Request struct {
	Message      string
	Recipients   []string
	From         string
	ServiceID    string
	RegionHint   string
	ValidateOnly bool
	Options      *models.DeliveryOptions
}

// Dispatch normalizes every recipient, validates the shared delivery
// options once, and fans the send out to the transport with bounded
// concurrency unless the request is validate-only. The returned results
// keep the input recipient order regardless of completion order. A
// recipient failure never aborts the batch; only call-level errors do.
func (e *Engine) Dispatch(ctx context.Context, req Request) (*models.BatchResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if len(req.Recipients) == 0 {
		return nil, ErrNoRecipients
	}

	region := strings.TrimSpace(req.RegionHint)
	if region == "" {
		region = e.cfg.DefaultRegion
	}

	sender, err := e.resolveSender(req, region)
	if err != nil {
		return nil, err
	}

	if err := ValidateOptions(req.Options, e.now()); err != nil {
		return nil, err
	}

	outcomes := make([]models.RecipientOutcome, len(req.Recipients))
	numbers := make([]phone.PhoneNumber, len(req.Recipients))
	for i, raw := range req.Recipients {
		num, err := phone.Normalize(raw, region)
		if err != nil {
			outcomes[i] = normalizationOutcome(raw, err)
			continue
		}
		numbers[i] = num
		// Provisional success; the transport pass overwrites this slot.
		outcomes[i] = models.RecipientOutcome{Input: raw, PhoneNumber: num.E164(), Success: true}
	}

	if req.ValidateOnly {
		res := models.NewBatchResult(outcomes, false)
		e.logger.Debug().
			Int("recipients", len(req.Recipients)).
			Int("valid", res.Sent).
			Msg("validate-only dispatch completed")
		return res, nil
	}

	dispatchID := uuid.NewString()
	logger := e.logger.With().
		Str("dispatch_id", dispatchID).
		Str("sender", sender.String()).
		Int("recipients", len(req.Recipients)).
		Logger()

	var wg sync.WaitGroup
	cancelled := false
	for i := range req.Recipients {
		if numbers[i].IsZero() {
			continue
		}
		if err := e.sem.Acquire(ctx, 1); err != nil {
			// Cancellation: stop starting new sends, keep what finished.
			e.markNotAttempted(outcomes, numbers, i)
			cancelled = true
			break
		}
		wg.Add(1)
		go func(idx int, to phone.PhoneNumber, input string) {
			defer wg.Done()
			defer e.sem.Release(1)
			outcomes[idx] = e.sendOne(ctx, sender, to, input, req)
		}(i, numbers[i], req.Recipients[i])
	}
	wg.Wait()

	if ctx.Err() != nil {
		cancelled = true
	}

	res := models.NewBatchResult(outcomes, cancelled)
	logger.Info().
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Bool("cancelled", res.Cancelled).
		Msg("dispatch completed")
	return res, nil
}

// SendFrom sends one message from a specific originating number. It is the
// single-recipient form of Dispatch.
func (e *Engine) SendFrom(ctx context.Context, from, to, body string, opts *models.DeliveryOptions) (models.RecipientOutcome, error) {
	return e.sendOneRecipient(ctx, Request{
		Message:    body,
		Recipients: []string{to},
		From:       from,
		Options:    opts,
	})
}

// SendViaService sends one message through a managed sending service.
func (e *Engine) SendViaService(ctx context.Context, serviceID, to, body string, opts *models.DeliveryOptions) (models.RecipientOutcome, error) {
	return e.sendOneRecipient(ctx, Request{
		Message:    body,
		Recipients: []string{to},
		ServiceID:  serviceID,
		Options:    opts,
	})
}

func (e *Engine) sendOneRecipient(ctx context.Context, req Request) (models.RecipientOutcome, error) {
	res, err := e.Dispatch(ctx, req)
	if err != nil {
		return models.RecipientOutcome{}, err
	}
	return res.Results[0], nil
}

// resolveSender maps the optional From/ServiceID pair onto the sender
// union. Ambiguity is checked on the raw inputs so that supplying both
// fails before either is parsed.
func (e *Engine) resolveSender(req Request, region string) (models.SenderIdentity, error) {
	from := strings.TrimSpace(req.From)
	serviceID := strings.TrimSpace(req.ServiceID)

	if from != "" && serviceID != "" {
		return models.SenderIdentity{}, models.ErrAmbiguousSender
	}

	var num phone.PhoneNumber
	if from != "" {
		parsed, err := phone.Normalize(from, region)
		if err != nil {
			return models.SenderIdentity{}, fmt.Errorf("dispatch: sender number: %w", err)
		}
		num = parsed
	}

	return models.ResolveSender(num, serviceID)
}

// sendOne performs the transport call for one recipient and converts the
// result into an outcome. Transport failures are values here; nothing a
// single recipient does can abort its siblings.
func (e *Engine) sendOne(ctx context.Context, sender models.SenderIdentity, to phone.PhoneNumber, input string, req Request) models.RecipientOutcome {
	id, err := e.transport.Send(ctx, sender, to, req.Message, req.Options)
	if err != nil {
		out := models.RecipientOutcome{
			Input:        input,
			PhoneNumber:  to.E164(),
			ErrorMessage: err.Error(),
		}
		if transport.IsCancellation(err) {
			out.ErrorCode = models.ErrorCodeCancelled
		} else if terr, ok := transport.AsTransportError(err); ok && terr.Code != "" {
			out.ErrorCode = terr.Code
		} else {
			out.ErrorCode = models.ErrorCodeTransport
		}
		return out
	}
	return models.RecipientOutcome{
		Input:       input,
		PhoneNumber: to.E164(),
		Success:     true,
		MessageID:   id,
	}
}

// markNotAttempted fails every slot from index on whose transport call
// never started, so partial progress is reported rather than discarded.
func (e *Engine) markNotAttempted(outcomes []models.RecipientOutcome, numbers []phone.PhoneNumber, from int) {
	for i := from; i < len(numbers); i++ {
		if numbers[i].IsZero() {
			continue
		}
		outcomes[i] = models.RecipientOutcome{
			Input:        outcomes[i].Input,
			PhoneNumber:  numbers[i].E164(),
			ErrorCode:    models.ErrorCodeCancelled,
			ErrorMessage: "dispatch cancelled before send started",
		}
	}
}

func normalizationOutcome(raw string, err error) models.RecipientOutcome {
	out := models.RecipientOutcome{Input: raw, ErrorMessage: err.Error()}
	if nerr, ok := phone.AsNormalizationError(err); ok {
		out.ErrorCode = string(nerr.Reason)
	}
	return out
}
