package models

import "time"

// BatchEvent is the wire representation of a completed dispatch call,
// published to the outcomes topic for downstream consumers.
type BatchEvent struct {
	DispatchID   string             `json:"dispatch_id"`
	Sender       string             `json:"sender"`
	ValidateOnly bool               `json:"validate_only,omitempty"`
	Sent         int                `json:"sent"`
	Failed       int                `json:"failed"`
	Cancelled    bool               `json:"cancelled,omitempty"`
	Results      []RecipientOutcome `json:"results,omitempty"`
	// Error is set instead of Results when the call failed before any
	// recipient work started (invalid sender, bad options, empty batch).
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}
