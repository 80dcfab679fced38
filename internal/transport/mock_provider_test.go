package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/sms-dispatch/internal/models"
	"github.com/example/sms-dispatch/internal/phone"
)

func fixtures(t *testing.T) (models.SenderIdentity, phone.PhoneNumber) {
	t.Helper()
	sender, err := models.SenderFromService("MG1234")
	if err != nil {
		t.Fatalf("sender fixture: %v", err)
	}
	to, err := phone.Normalize("+14155552671", "")
	if err != nil {
		t.Fatalf("recipient fixture: %v", err)
	}
	return sender, to
}

func TestMockProviderSuccess(t *testing.T) {
	sender, to := fixtures(t)
	ids := 0
	provider := NewMockProvider(zerolog.Nop(), WithMessageIDs(func() string {
		ids++
		return "m-1"
	}))

	id, err := provider.Send(context.Background(), sender, to, "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "m-1" || ids != 1 {
		t.Fatalf("unexpected message id %q (generated %d)", id, ids)
	}
}

func TestMockProviderScenarios(t *testing.T) {
	sender, to := fixtures(t)

	cases := []struct {
		scenario Scenario
		code     string
	}{
		{ScenarioRejected, "rejected"},
		{ScenarioRateLimited, "rate_limited"},
	}
	for _, tc := range cases {
		provider := NewMockProvider(zerolog.Nop(), WithScenario(tc.scenario))
		_, err := provider.Send(context.Background(), sender, to, "hello", nil)
		terr, ok := AsTransportError(err)
		if !ok {
			t.Fatalf("scenario %s: expected *TransportError, got %v", tc.scenario, err)
		}
		if terr.Code != tc.code {
			t.Fatalf("scenario %s: expected code %q, got %q", tc.scenario, tc.code, terr.Code)
		}
	}
}

func TestMockProviderPerNumberOverride(t *testing.T) {
	sender, to := fixtures(t)
	other, err := phone.Normalize("+14155552672", "")
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}

	provider := NewMockProvider(zerolog.Nop(), WithScenarioFor(other.E164(), ScenarioRejected))

	if _, err := provider.Send(context.Background(), sender, to, "hello", nil); err != nil {
		t.Fatalf("default scenario should succeed: %v", err)
	}
	if _, err := provider.Send(context.Background(), sender, other, "hello", nil); err == nil {
		t.Fatal("override scenario should fail")
	}
}

func TestMockProviderHonoursCancellation(t *testing.T) {
	sender, to := fixtures(t)
	provider := NewMockProvider(zerolog.Nop(), WithScenario(ScenarioTimeout))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := provider.Send(ctx, sender, to, "hello", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if !IsCancellation(err) {
		t.Fatal("IsCancellation must classify deadline errors")
	}
}

func TestMockProviderRejectsEmptyBody(t *testing.T) {
	sender, to := fixtures(t)
	provider := NewMockProvider(zerolog.Nop())

	_, err := provider.Send(context.Background(), sender, to, "   ", nil)
	terr, ok := AsTransportError(err)
	if !ok || terr.Code != "empty_body" {
		t.Fatalf("expected empty_body transport error, got %v", err)
	}
}
