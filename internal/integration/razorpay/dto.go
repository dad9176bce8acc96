package razorpay

// CreateOrderRequest describes a gateway order to create. Notes travel to
// the gateway verbatim and come back on the captured webhook, which is how
// intent (tokenization vs ordinary payment) is signalled.
type CreateOrderRequest struct {
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// CreateOrderResponse is the created gateway order
type CreateOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// ChargeTokenRequest describes an off-session recurring charge against a
// stored customer token.
type ChargeTokenRequest struct {
	CustomerID  string            `json:"customer_id"`
	TokenID     string            `json:"token_id"`
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// ChargeTokenResponse carries the provisional gateway payment id. The
// authoritative outcome arrives later via webhook.
type ChargeTokenResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// CreatePaymentLinkRequest describes a hosted payment link for merchants
// without a stored token.
type CreatePaymentLinkRequest struct {
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// CreatePaymentLinkResponse is the created payment link
type CreatePaymentLinkResponse struct {
	PaymentLinkID string `json:"payment_link_id"`
	ShortURL      string `json:"short_url"`
}
