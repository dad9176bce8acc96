package webhookevent

import (
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/types"
)

// WebhookEvent is the durable record of one inbound gateway notification.
// Rows are inserted at intake and flipped to processed exactly once by the
// dispatcher; they are never deleted.
type WebhookEvent struct {
	ID string `json:"id"`

	// EventID is the gateway-assigned event identifier and the dedup key.
	EventID   string                 `json:"event_id"`
	EventType types.WebhookEventType `json:"event_type"`

	// Payload is the raw request body, stored verbatim for audit and replay.
	Payload []byte `json:"payload"`

	Processed bool `json:"processed"`

	// ProcessingResult is the serialized handler outcome, set together with
	// Processed.
	ProcessingResult string `json:"processing_result,omitempty"`

	types.BaseModel
}

// Validate validates the webhook event
func (e *WebhookEvent) Validate() error {
	if e.EventID == "" {
		return ierr.NewError("event_id is required").Mark(ierr.ErrValidation)
	}
	if len(e.Payload) == 0 {
		return ierr.NewError("payload is required").Mark(ierr.ErrValidation)
	}
	return nil
}
