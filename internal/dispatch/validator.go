package dispatch

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/example/sms-dispatch/internal/models"
)

// Provider-independent policy bounds for delivery options.
const (
	// ScheduleMinLead is the minimum distance between now and a scheduled
	// send instant.
	ScheduleMinLead = 5 * time.Minute
	// MaxMediaURLs caps the number of media attachments per message.
	MaxMediaURLs = 10
	// MinValidity and MaxValidity bound the validity period.
	MinValidity = 10 * time.Second
	MaxValidity = 10 * time.Hour
)

// Sentinel errors returned by ValidateOptions, one per rule.
var (
	ErrScheduleTooSoon           = errors.New("delivery options: scheduled send time must be at least 5 minutes from now")
	ErrTooManyMedia              = errors.New("delivery options: at most 10 media urls are allowed")
	ErrInsecureOrInvalidMediaURL = errors.New("delivery options: media urls must be absolute https urls")
	ErrInsecureCallbackURL       = errors.New("delivery options: status callback url must use https")
	ErrValidityOutOfRange        = errors.New("delivery options: validity period must be between 10s and 10h")
)

// ValidateOptions checks opts against the policy bounds. Rules run in a
// fixed order and the first failure wins, so error precedence is
// deterministic. A nil opts is valid. The check is pure; it is evaluated
// once per dispatch call, not once per recipient.
func ValidateOptions(opts *models.DeliveryOptions, now time.Time) error {
	if opts == nil {
		return nil
	}

	if !opts.SendAt.IsZero() && opts.SendAt.Before(now.Add(ScheduleMinLead)) {
		return fmt.Errorf("%w: %s", ErrScheduleTooSoon, opts.SendAt.Format(time.RFC3339))
	}

	if len(opts.MediaURLs) > MaxMediaURLs {
		return fmt.Errorf("%w: got %d", ErrTooManyMedia, len(opts.MediaURLs))
	}

	for _, raw := range opts.MediaURLs {
		if !isSecureURL(raw) {
			return fmt.Errorf("%w: %q", ErrInsecureOrInvalidMediaURL, raw)
		}
	}

	if opts.StatusCallbackURL != "" && !isSecureURL(opts.StatusCallbackURL) {
		return fmt.Errorf("%w: %q", ErrInsecureCallbackURL, opts.StatusCallbackURL)
	}

	if opts.Validity != 0 && (opts.Validity < MinValidity || opts.Validity > MaxValidity) {
		return fmt.Errorf("%w: got %s", ErrValidityOutOfRange, opts.Validity)
	}

	return nil
}

// isSecureURL reports whether raw parses as an absolute https URL.
func isSecureURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Scheme == "https" && u.Host != ""
}
