// Package worker bridges Kafka records to the dispatch engine: it decodes
// bulk-send requests, runs the engine, and publishes the batch outcome.
package worker

import (
	"time"

	"github.com/example/sms-dispatch/internal/dispatch"
	"github.com/example/sms-dispatch/internal/models"
)

// BulkSendRequest is the wire shape of one dispatch request record.
type BulkSendRequest struct {
	Message      string          `json:"message"`
	Recipients   []string        `json:"recipients"`
	From         string          `json:"from,omitempty"`
	ServiceID    string          `json:"service_id,omitempty"`
	RegionHint   string          `json:"region_hint,omitempty"`
	ValidateOnly bool            `json:"validate_only,omitempty"`
	Options      *RequestOptions `json:"options,omitempty"`
}

// RequestOptions is the wire shape of the optional delivery options.
type RequestOptions struct {
	SendAt            *time.Time `json:"send_at,omitempty"`
	MediaURLs         []string   `json:"media_urls,omitempty"`
	StatusCallbackURL string     `json:"status_callback_url,omitempty"`
	ValiditySeconds   int        `json:"validity_seconds,omitempty"`
}

// toEngineRequest maps the wire request onto the engine's call shape.
func (r BulkSendRequest) toEngineRequest() dispatch.Request {
	req := dispatch.Request{
		Message:      r.Message,
		Recipients:   r.Recipients,
		From:         r.From,
		ServiceID:    r.ServiceID,
		RegionHint:   r.RegionHint,
		ValidateOnly: r.ValidateOnly,
	}
	if r.Options != nil {
		opts := &models.DeliveryOptions{
			MediaURLs:         r.Options.MediaURLs,
			StatusCallbackURL: r.Options.StatusCallbackURL,
			Validity:          time.Duration(r.Options.ValiditySeconds) * time.Second,
		}
		if r.Options.SendAt != nil {
			opts.SendAt = *r.Options.SendAt
		}
		req.Options = opts
	}
	return req
}
