package dto

import (
	ierr "github.com/dinematters/dinematters/internal/errors"
)

// WebhookAckResponse is returned to the gateway on intake. Duplicates are
// acknowledged as success so the gateway stops redelivering.
type WebhookAckResponse struct {
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate,omitempty"`
	EventID   string `json:"event_id,omitempty"`
}

// StartTokenizationRequest starts a card-on-file setup charge for a
// restaurant.
type StartTokenizationRequest struct {
	AmountMinor int64 `json:"amount_minor"`
}

// Validate validates the request
func (r *StartTokenizationRequest) Validate() error {
	if r.AmountMinor <= 0 {
		return ierr.NewError("amount_minor must be positive").
			WithHint("Provide the setup charge amount in minor currency units").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// StartTokenizationResponse carries the created attempt and the gateway
// order the client checkout must reference.
type StartTokenizationResponse struct {
	AttemptID      string `json:"attempt_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
}
