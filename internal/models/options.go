package models

import "time"

// DeliveryOptions carries the optional delivery controls shared by every
// recipient of one dispatch call. A nil *DeliveryOptions means "no options".
// Values are never mutated after validation.
type DeliveryOptions struct {
	// SendAt schedules the send for a future instant. Zero means immediate.
	SendAt time.Time
	// MediaURLs lists media attachments, in order. Each must be an absolute
	// https URL; at most ten are accepted.
	MediaURLs []string
	// StatusCallbackURL receives delivery-status callbacks when set. It must
	// use https; the dispatch core only configures it, never calls it.
	StatusCallbackURL string
	// Validity bounds how long the provider may keep trying to deliver.
	// Zero means provider default.
	Validity time.Duration
}
