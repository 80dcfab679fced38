package transport

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/sms-dispatch/internal/models"
	"github.com/example/sms-dispatch/internal/phone"
)

// Scenario enumerates the behaviours the mock provider can simulate.
type Scenario string

const (
	ScenarioSuccess     Scenario = "success"
	ScenarioRejected    Scenario = "rejected"
	ScenarioRateLimited Scenario = "rate_limited"
	ScenarioTimeout     Scenario = "timeout"
)

// Option customises the mock provider.
type Option func(*MockProvider)

// WithScenario sets the behaviour applied to every recipient that has no
// per-number override.
func WithScenario(s Scenario) Option {
	return func(p *MockProvider) {
		p.defaultScenario = s
	}
}

// WithScenarioFor overrides the behaviour for a specific E.164 number.
func WithScenarioFor(e164 string, s Scenario) Option {
	return func(p *MockProvider) {
		p.overrides[e164] = s
	}
}

// WithLatency configures the artificial latency injected before each send.
func WithLatency(d time.Duration) Option {
	return func(p *MockProvider) {
		if d < 0 {
			d = 0
		}
		p.latency = d
	}
}

// WithMessageIDs overrides message id generation (useful for tests).
func WithMessageIDs(next func() string) Option {
	return func(p *MockProvider) {
		if next != nil {
			p.nextID = next
		}
	}
}

// MockProvider is a deterministic in-memory Transport used by tests and the
// dry-run friendly local worker. It never performs network I/O.
type MockProvider struct {
	logger          zerolog.Logger
	defaultScenario Scenario
	overrides       map[string]Scenario
	latency         time.Duration
	nextID          func() string
}

var _ Transport = (*MockProvider)(nil)

// NewMockProvider constructs a mock transport.
func NewMockProvider(logger zerolog.Logger, opts ...Option) *MockProvider {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	p := &MockProvider{
		logger:          logger,
		defaultScenario: ScenarioSuccess,
		overrides:       map[string]Scenario{},
		nextID:          func() string { return "mock-" + uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Send simulates a provider call according to the configured scenario.
func (p *MockProvider) Send(ctx context.Context, sender models.SenderIdentity, to phone.PhoneNumber, body string, _ *models.DeliveryOptions) (string, error) {
	if sender.IsZero() {
		return "", &TransportError{Code: "invalid_sender", Message: "sender identity is required"}
	}
	if to.IsZero() {
		return "", &TransportError{Code: "invalid_recipient", Message: "recipient number is required"}
	}
	if strings.TrimSpace(body) == "" {
		return "", &TransportError{Code: "empty_body", Message: "message body is required"}
	}

	if err := p.wait(ctx, p.latency); err != nil {
		return "", err
	}

	scenario := p.defaultScenario
	if override, ok := p.overrides[to.E164()]; ok {
		scenario = override
	}

	switch scenario {
	case ScenarioSuccess:
		id := p.nextID()
		p.logger.Debug().Str("to", to.E164()).Str("message_id", id).Msg("mock transport accepted message")
		return id, nil
	case ScenarioRejected:
		return "", &TransportError{Code: "rejected", Message: "mock: recipient rejected by provider"}
	case ScenarioRateLimited:
		return "", &TransportError{Code: "rate_limited", Message: "mock: provider rate limit exceeded"}
	case ScenarioTimeout:
		<-ctx.Done()
		return "", ctx.Err()
	default:
		return "", &TransportError{Code: "unknown_scenario", Message: "mock: unknown scenario " + string(scenario)}
	}
}

func (p *MockProvider) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsCancellation reports whether err stems from context cancellation rather
// than a provider refusal.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
