package models

// Error codes carried on failed recipient outcomes. Normalization failures
// use the normalizer's reason string instead.
const (
	// ErrorCodeTransport marks a transport failure that carried no code of
	// its own.
	ErrorCodeTransport = "transport_error"
	// ErrorCodeCancelled marks a recipient whose send was cancelled before
	// or during the transport call.
	ErrorCodeCancelled = "cancelled"
)

// RecipientOutcome records what happened to a single recipient within one
// dispatch call. It is written once and never mutated.
type RecipientOutcome struct {
	// Input is the recipient string exactly as the caller supplied it.
	Input string `json:"input"`
	// PhoneNumber is the canonical E.164 form; empty when parsing failed.
	PhoneNumber string `json:"phone_number,omitempty"`
	// Success is true when the recipient normalized and, outside dry-run
	// mode, the transport accepted the message.
	Success bool `json:"success"`
	// MessageID is the provider-assigned identifier, present only on success.
	MessageID string `json:"message_id,omitempty"`
	// ErrorCode is a machine-readable failure classifier, present only on
	// failure.
	ErrorCode string `json:"error_code,omitempty"`
	// ErrorMessage is the human-readable failure description, present only
	// on failure.
	ErrorMessage string `json:"error_message,omitempty"`
}

// BatchResult aggregates the outcomes of one dispatch call. Results keeps
// the order of the input recipient list regardless of completion order.
type BatchResult struct {
	Sent      int                `json:"sent"`
	Failed    int                `json:"failed"`
	Cancelled bool               `json:"cancelled,omitempty"`
	Results   []RecipientOutcome `json:"results"`
}

// NewBatchResult derives the sent/failed counts from the ordered outcome
// sequence. Counts are never set independently, so Sent+Failed always
// equals len(Results).
func NewBatchResult(outcomes []RecipientOutcome, cancelled bool) *BatchResult {
	res := &BatchResult{
		Cancelled: cancelled,
		Results:   outcomes,
	}
	for _, out := range outcomes {
		if out.Success {
			res.Sent++
		} else {
			res.Failed++
		}
	}
	return res
}
