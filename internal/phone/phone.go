// Package phone normalizes raw phone number input into canonical E.164
// form. Parsing is backed by the libphonenumber metadata so the region
// hint drives both calling-code inference and length plausibility.
package phone

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// Reason classifies why a raw input could not be normalized.
type Reason string

const (
	ReasonEmpty             Reason = "empty"
	ReasonTooShort          Reason = "too_short"
	ReasonTooLong           Reason = "too_long"
	ReasonInvalidCharacters Reason = "invalid_characters"
	ReasonUnknownRegion     Reason = "unknown_region"
)

// NormalizationError reports a recipient input that could not be parsed.
// It is data, not a fault: callers convert it into a per-recipient outcome
// rather than aborting a batch.
type NormalizationError struct {
	Raw    string
	Reason Reason
	cause  error
}

// Error implements the error interface.
func (e *NormalizationError) Error() string {
	return fmt.Sprintf("phone: cannot normalize %q: %s", e.Raw, e.Reason)
}

// Unwrap exposes the underlying parser error when one exists.
func (e *NormalizationError) Unwrap() error { return e.cause }

// AsNormalizationError unwraps err into a *NormalizationError if possible.
func AsNormalizationError(err error) (*NormalizationError, bool) {
	var nerr *NormalizationError
	if errors.As(err, &nerr) {
		return nerr, true
	}
	return nil, false
}

// PhoneNumber is an immutable, canonical E.164 number. The zero value is
// not a valid number; instances are produced only by Normalize.
type PhoneNumber struct {
	e164   string
	region string
}

// E164 returns the canonical international representation, e.g. "+15551234567".
func (p PhoneNumber) E164() string { return p.e164 }

// Region returns the ISO region hint that was in effect during parsing.
func (p PhoneNumber) Region() string { return p.region }

// IsZero reports whether the number was never populated by Normalize.
func (p PhoneNumber) IsZero() bool { return p.e164 == "" }

// String implements fmt.Stringer.
func (p PhoneNumber) String() string { return p.e164 }

// Normalize parses raw into a canonical PhoneNumber. Input that already
// carries a "+" prefix is parsed as international format; otherwise
// regionHint (an ISO region code such as "US") supplies the calling code.
// The function is pure: no I/O, no carrier lookups, deterministic output.
func Normalize(raw, regionHint string) (PhoneNumber, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PhoneNumber{}, &NormalizationError{Raw: raw, Reason: ReasonEmpty}
	}

	region := strings.ToUpper(strings.TrimSpace(regionHint))
	if !strings.HasPrefix(trimmed, "+") {
		if region == "" || phonenumbers.GetCountryCodeForRegion(region) == 0 {
			return PhoneNumber{}, &NormalizationError{Raw: raw, Reason: ReasonUnknownRegion}
		}
	}

	parsed, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return PhoneNumber{}, &NormalizationError{Raw: raw, Reason: classifyParseError(trimmed, err), cause: err}
	}

	switch phonenumbers.IsPossibleNumberWithReason(parsed) {
	case phonenumbers.TOO_SHORT:
		return PhoneNumber{}, &NormalizationError{Raw: raw, Reason: ReasonTooShort}
	case phonenumbers.TOO_LONG:
		return PhoneNumber{}, &NormalizationError{Raw: raw, Reason: ReasonTooLong}
	case phonenumbers.INVALID_COUNTRY_CODE:
		return PhoneNumber{}, &NormalizationError{Raw: raw, Reason: ReasonUnknownRegion}
	}

	return PhoneNumber{
		e164:   phonenumbers.Format(parsed, phonenumbers.E164),
		region: region,
	}, nil
}

// classifyParseError maps parser failures onto a Reason. The two parser
// sentinels with a precise meaning are matched directly; everything else is
// classified by how many digits the input actually carried.
func classifyParseError(raw string, err error) Reason {
	if errors.Is(err, phonenumbers.ErrInvalidCountryCode) {
		return ReasonUnknownRegion
	}
	if errors.Is(err, phonenumbers.ErrNotANumber) {
		return ReasonInvalidCharacters
	}

	digits := countDigits(raw)
	switch {
	case digits > 15:
		return ReasonTooLong
	case digits > 0 && digits < 8:
		return ReasonTooShort
	default:
		return ReasonInvalidCharacters
	}
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
