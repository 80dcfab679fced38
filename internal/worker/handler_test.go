package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/sms-dispatch/internal/dispatch"
	"github.com/example/sms-dispatch/internal/models"
)

type dispatcherStub struct {
	calls   int
	lastReq dispatch.Request
	result  *models.BatchResult
	err     error
}

func (d *dispatcherStub) Dispatch(_ context.Context, req dispatch.Request) (*models.BatchResult, error) {
	d.calls++
	d.lastReq = req
	return d.result, d.err
}

type publisherStub struct {
	events []models.BatchEvent
	err    error
}

func (p *publisherStub) PublishOutcome(_ context.Context, event models.BatchEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func newTestHandler(t *testing.T, d Dispatcher, p OutcomePublisher) *Handler {
	t.Helper()
	h, err := NewHandler(d, p, Config{RequestTimeout: time.Second}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHandler returned error: %v", err)
	}
	h.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return h
}

func encodeRequest(t *testing.T, req BulkSendRequest) []byte {
	t.Helper()
	payload, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return payload
}

func TestHandleDispatchesAndPublishes(t *testing.T) {
	sendAt := time.Date(2026, 3, 14, 13, 0, 0, 0, time.UTC)
	dispatcher := &dispatcherStub{result: &models.BatchResult{
		Sent:   2,
		Failed: 1,
		Results: []models.RecipientOutcome{
			{Input: "+14155552671", Success: true, MessageID: "mm-1"},
			{Input: "+447911123456", Success: true, MessageID: "mm-2"},
			{Input: "junk", ErrorCode: "invalid_characters"},
		},
	}}
	pub := &publisherStub{}
	h := newTestHandler(t, dispatcher, pub)

	payload := encodeRequest(t, BulkSendRequest{
		Message:    "appointment reminder",
		Recipients: []string{"+14155552671", "+447911123456", "junk"},
		ServiceID:  "svc-notify",
		Options: &RequestOptions{
			SendAt:          &sendAt,
			ValiditySeconds: 600,
		},
	})

	if err := h.Handle(context.Background(), []byte("batch-42"), payload); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if dispatcher.calls != 1 {
		t.Fatalf("dispatcher calls = %d, want 1", dispatcher.calls)
	}
	if got := dispatcher.lastReq.ServiceID; got != "svc-notify" {
		t.Fatalf("engine request ServiceID = %q, want %q", got, "svc-notify")
	}
	if dispatcher.lastReq.Options == nil {
		t.Fatal("engine request options not mapped")
	}
	if got := dispatcher.lastReq.Options.Validity; got != 10*time.Minute {
		t.Fatalf("engine request validity = %v, want 10m", got)
	}
	if !dispatcher.lastReq.Options.SendAt.Equal(sendAt) {
		t.Fatalf("engine request send_at = %v, want %v", dispatcher.lastReq.Options.SendAt, sendAt)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	event := pub.events[0]
	if event.DispatchID != "batch-42" {
		t.Fatalf("event dispatch id = %q, want %q", event.DispatchID, "batch-42")
	}
	if event.Sender != "svc-notify" {
		t.Fatalf("event sender = %q, want %q", event.Sender, "svc-notify")
	}
	if event.Sent != 2 || event.Failed != 1 {
		t.Fatalf("event counts = %d/%d, want 2/1", event.Sent, event.Failed)
	}
	if len(event.Results) != 3 {
		t.Fatalf("event carries %d results, want 3", len(event.Results))
	}
	if event.CompletedAt.IsZero() {
		t.Fatal("event completed_at is zero")
	}
}

func TestHandleCommitsMalformedRecords(t *testing.T) {
	dispatcher := &dispatcherStub{}
	pub := &publisherStub{}
	h := newTestHandler(t, dispatcher, pub)

	if err := h.Handle(context.Background(), []byte("batch-1"), []byte("{not-json")); err != nil {
		t.Fatalf("Handle returned error for malformed record: %v", err)
	}
	if dispatcher.calls != 0 {
		t.Fatalf("dispatcher called %d times for malformed record, want 0", dispatcher.calls)
	}
	if len(pub.events) != 0 {
		t.Fatalf("published %d events for malformed record, want 0", len(pub.events))
	}
}

func TestHandlePublishesCallLevelFailures(t *testing.T) {
	dispatcher := &dispatcherStub{err: dispatch.ErrNoRecipients}
	pub := &publisherStub{}
	h := newTestHandler(t, dispatcher, pub)

	payload := encodeRequest(t, BulkSendRequest{Message: "hi", From: "+14155552671"})
	if err := h.Handle(context.Background(), []byte("batch-7"), payload); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	event := pub.events[0]
	if event.Error == "" {
		t.Fatal("event error field is empty for rejected request")
	}
	if event.Sent != 0 || event.Failed != 0 {
		t.Fatalf("rejected request event counts = %d/%d, want 0/0", event.Sent, event.Failed)
	}
	if event.Sender != "+14155552671" {
		t.Fatalf("event sender = %q, want From fallback", event.Sender)
	}
}

func TestHandlePropagatesPublishFailures(t *testing.T) {
	dispatcher := &dispatcherStub{result: &models.BatchResult{Sent: 1, Results: []models.RecipientOutcome{{Input: "+14155552671", Success: true}}}}
	pub := &publisherStub{err: errors.New("broker unavailable")}
	h := newTestHandler(t, dispatcher, pub)

	payload := encodeRequest(t, BulkSendRequest{Message: "hi", Recipients: []string{"+14155552671"}, From: "+15005550006"})
	err := h.Handle(context.Background(), []byte("batch-9"), payload)
	if err == nil {
		t.Fatal("expected publish failure to propagate")
	}
}

func TestHandleGeneratesDispatchIDWhenKeyMissing(t *testing.T) {
	dispatcher := &dispatcherStub{result: &models.BatchResult{}}
	pub := &publisherStub{}
	h := newTestHandler(t, dispatcher, pub)

	payload := encodeRequest(t, BulkSendRequest{Message: "hi", Recipients: []string{"+14155552671"}, From: "+15005550006"})
	if err := h.Handle(context.Background(), nil, payload); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	if pub.events[0].DispatchID == "" {
		t.Fatal("expected generated dispatch id when record key is empty")
	}
}
