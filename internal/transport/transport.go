// Package transport defines the outbound provider port the dispatch engine
// fans out to, plus the typed failure it reports. The real carrier-facing
// implementation lives outside this module; a deterministic mock ships for
// tests and local runs.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/sms-dispatch/internal/models"
	"github.com/example/sms-dispatch/internal/phone"
)

// Transport submits one message to one recipient and returns the
// provider-assigned message id. Implementations must be safe for
// concurrent use; the engine invokes Send from multiple goroutines.
type Transport interface {
	Send(ctx context.Context, sender models.SenderIdentity, to phone.PhoneNumber, body string, opts *models.DeliveryOptions) (string, error)
}

// TransportError is a typed provider failure. Code is machine-readable and
// optional; Message is always set.
type TransportError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("transport: %s", e.Message)
	}
	return fmt.Sprintf("transport: %s (%s)", e.Message, e.Code)
}

// AsTransportError unwraps err into a *TransportError if possible.
func AsTransportError(err error) (*TransportError, bool) {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr, true
	}
	return nil, false
}
