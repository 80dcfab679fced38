// Package models holds the value types shared across the dispatch core:
// sender identities, delivery options, per-recipient outcomes and the
// events emitted for completed batches.
package models

import (
	"errors"
	"strings"

	"github.com/example/sms-dispatch/internal/phone"
)

// Sentinel errors for sender identity resolution.
var (
	// ErrAmbiguousSender is returned when both an originating number and a
	// service id are supplied.
	ErrAmbiguousSender = errors.New("sender identity: both originating number and service id supplied")
	// ErrMissingSender is returned when neither variant is supplied.
	ErrMissingSender = errors.New("sender identity: an originating number or a service id is required")
)

// SenderIdentity is a closed union: exactly one of an originating phone
// number or a messaging-service id. The zero value is invalid; instances
// are built through the constructors, which enforce exclusivity.
type SenderIdentity struct {
	number    phone.PhoneNumber
	serviceID string
}

// SenderFromNumber builds an identity backed by a specific originating number.
func SenderFromNumber(num phone.PhoneNumber) (SenderIdentity, error) {
	if num.IsZero() {
		return SenderIdentity{}, ErrMissingSender
	}
	return SenderIdentity{number: num}, nil
}

// SenderFromService builds an identity backed by a managed sending service.
func SenderFromService(serviceID string) (SenderIdentity, error) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return SenderIdentity{}, ErrMissingSender
	}
	return SenderIdentity{serviceID: serviceID}, nil
}

// ResolveSender maps an optional number/service pair onto the union,
// rejecting ambiguous and empty combinations.
func ResolveSender(from phone.PhoneNumber, serviceID string) (SenderIdentity, error) {
	hasNumber := !from.IsZero()
	hasService := strings.TrimSpace(serviceID) != ""
	switch {
	case hasNumber && hasService:
		return SenderIdentity{}, ErrAmbiguousSender
	case hasService:
		return SenderFromService(serviceID)
	case hasNumber:
		return SenderFromNumber(from)
	default:
		return SenderIdentity{}, ErrMissingSender
	}
}

// Number returns the originating number variant when populated.
func (s SenderIdentity) Number() (phone.PhoneNumber, bool) {
	return s.number, !s.number.IsZero()
}

// ServiceID returns the sending-service variant when populated.
func (s SenderIdentity) ServiceID() (string, bool) {
	return s.serviceID, s.serviceID != ""
}

// IsZero reports whether neither variant is populated.
func (s SenderIdentity) IsZero() bool {
	return s.number.IsZero() && s.serviceID == ""
}

// String renders the populated variant for logs and events.
func (s SenderIdentity) String() string {
	if s.serviceID != "" {
		return "service:" + s.serviceID
	}
	return s.number.E164()
}
