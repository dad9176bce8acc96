package restaurant

import (
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/types"
)

// Restaurant is the merchant billing configuration subset this subsystem
// reads and mutates. The full merchant document is owned elsewhere.
type Restaurant struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// GatewayAccountID links inbound webhook payloads to this merchant
	// for secret resolution.
	GatewayAccountID string `json:"gateway_account_id,omitempty"`

	// MerchantWebhookSecret overrides the site-wide webhook secret when set.
	MerchantWebhookSecret string `json:"merchant_webhook_secret,omitempty"`

	GatewayCustomerID string `json:"gateway_customer_id,omitempty"`
	GatewayTokenID    string `json:"gateway_token_id,omitempty"`

	MandateStatus types.MandateStatus `json:"mandate_status"`
	BillingStatus types.BillingStatus `json:"billing_status"`

	types.BaseModel
}

// HasStoredToken reports whether the merchant can be charged off-session.
func (r *Restaurant) HasStoredToken() bool {
	return r.GatewayCustomerID != "" && r.GatewayTokenID != ""
}

// ActivateMandate records the captured token credentials. The mandate is
// never downgraded once active, and credentials are written at most once.
func (r *Restaurant) ActivateMandate(customerID, tokenID string) {
	if r.GatewayCustomerID == "" {
		r.GatewayCustomerID = customerID
	}
	if r.GatewayTokenID == "" {
		r.GatewayTokenID = tokenID
	}
	r.MandateStatus = types.MandateStatusActive
}

// Validate validates the restaurant
func (r *Restaurant) Validate() error {
	if r.ID == "" {
		return ierr.NewError("id is required").Mark(ierr.ErrValidation)
	}
	return nil
}
