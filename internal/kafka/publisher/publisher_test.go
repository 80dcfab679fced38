package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/sms-dispatch/internal/models"
)

type producerStub struct {
	topic   string
	key     []byte
	headers map[string][]byte
	payload []byte
	err     error
	calls   int
}

func (p *producerStub) PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error {
	p.calls++
	p.topic = topic
	p.key = key
	p.headers = headers
	p.payload = payload
	return p.err
}

func TestPublishOutcome(t *testing.T) {
	stub := &producerStub{}
	pub := NewOutcomePublisher(stub, "sms.dispatch.outcomes", zerolog.Nop())
	if pub == nil {
		t.Fatal("publisher must be constructed for a valid producer")
	}

	event := models.BatchEvent{
		DispatchID:  "d-123",
		Sender:      "service:MG1234",
		Sent:        2,
		Failed:      1,
		CompletedAt: time.Unix(0, 0).UTC(),
		Results: []models.RecipientOutcome{
			{Input: "+14155552671", Success: true, MessageID: "m-1"},
		},
	}
	if err := pub.PublishOutcome(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.topic != "sms.dispatch.outcomes" {
		t.Fatalf("unexpected topic: %q", stub.topic)
	}
	if string(stub.key) != "d-123" {
		t.Fatalf("unexpected key: %q", stub.key)
	}
	if string(stub.headers["content-type"]) != "application/json" {
		t.Fatalf("unexpected headers: %v", stub.headers)
	}

	var decoded models.BatchEvent
	if err := json.Unmarshal(stub.payload, &decoded); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if decoded.DispatchID != event.DispatchID || decoded.Sent != event.Sent {
		t.Fatalf("payload round trip mismatch: %+v", decoded)
	}
}

func TestPublishOutcomeProducerFailure(t *testing.T) {
	stub := &producerStub{err: errors.New("broker down")}
	pub := NewOutcomePublisher(stub, "sms.dispatch.outcomes", zerolog.Nop())

	if err := pub.PublishOutcome(context.Background(), models.BatchEvent{DispatchID: "d-1"}); err == nil {
		t.Fatal("expected producer failure to propagate")
	}
}

func TestNewOutcomePublisherRequiresProducer(t *testing.T) {
	if pub := NewOutcomePublisher(nil, "topic", zerolog.Nop()); pub != nil {
		t.Fatal("expected nil publisher for nil producer")
	}
}
