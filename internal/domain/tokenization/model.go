package tokenization

import (
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/types"
)

// Attempt is a card-on-file setup charge. Kept separate from ordinary
// orders so the small test charge never pollutes order history.
type Attempt struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`

	// AmountMinor is the setup charge amount in minor currency units.
	AmountMinor int64 `json:"amount_minor"`

	Status types.TokenizationStatus `json:"status"`

	GatewayOrderID   string `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	CustomerID       string `json:"customer_id,omitempty"`
	TokenID          string `json:"token_id,omitempty"`

	Processed bool `json:"processed"`

	types.BaseModel
}

// Capture records the gateway's capture of the setup charge. Customer and
// token ids are written at most once per attempt.
func (a *Attempt) Capture(gatewayPaymentID, customerID, tokenID string) {
	a.GatewayPaymentID = gatewayPaymentID
	if a.CustomerID == "" {
		a.CustomerID = customerID
	}
	if a.TokenID == "" {
		a.TokenID = tokenID
	}
	a.Status = types.TokenizationStatusCaptured
	a.Processed = true
}

// Validate validates the tokenization attempt
func (a *Attempt) Validate() error {
	if a.RestaurantID == "" {
		return ierr.NewError("restaurant_id is required").Mark(ierr.ErrValidation)
	}
	if a.AmountMinor <= 0 {
		return ierr.NewError("amount_minor must be positive").Mark(ierr.ErrValidation)
	}
	return nil
}
