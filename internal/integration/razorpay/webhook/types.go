package webhook

// Envelope is the outer shape of a Razorpay webhook delivery.
type Envelope struct {
	Event     string  `json:"event"`
	EventID   string  `json:"event_id"`
	AccountID string  `json:"account_id,omitempty"`
	CreatedAt int64   `json:"created_at,omitempty"`
	Payload   Payload `json:"payload"`
}

// Payload nests the event-specific entities. Razorpay wraps each entity
// one level deep under its kind.
type Payload struct {
	Payment     *PaymentWrapper     `json:"payment,omitempty"`
	Refund      *RefundWrapper      `json:"refund,omitempty"`
	PaymentLink *PaymentLinkWrapper `json:"payment_link,omitempty"`
}

// RestaurantIDNote returns the restaurant_id note from whichever entity
// the payload carries, or empty when none is set.
func (p *Payload) RestaurantIDNote() string {
	switch {
	case p.Payment != nil:
		return p.Payment.Entity.Notes[NoteKeyRestaurantID]
	case p.Refund != nil:
		return p.Refund.Entity.Notes[NoteKeyRestaurantID]
	case p.PaymentLink != nil:
		return p.PaymentLink.Entity.Notes[NoteKeyRestaurantID]
	}
	return ""
}

type PaymentWrapper struct {
	Entity PaymentEntity `json:"entity"`
}

type RefundWrapper struct {
	Entity RefundEntity `json:"entity"`
}

type PaymentLinkWrapper struct {
	Entity PaymentLinkEntity `json:"entity"`
}

// PaymentEntity is the payment object carried by payment.captured and
// payment.failed events. Amounts are minor currency units.
type PaymentEntity struct {
	ID               string            `json:"id"`
	OrderID          string            `json:"order_id,omitempty"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"`
	Method           string            `json:"method,omitempty"`
	CustomerID       string            `json:"customer_id,omitempty"`
	TokenID          string            `json:"token_id,omitempty"`
	ErrorCode        string            `json:"error_code,omitempty"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Notes            map[string]string `json:"notes,omitempty"`
}

// RefundEntity is the refund object carried by refund.processed events.
type RefundEntity struct {
	ID        string            `json:"id"`
	PaymentID string            `json:"payment_id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes,omitempty"`
}

// PaymentLinkEntity is the payment link object carried by
// payment_link.paid events.
type PaymentLinkEntity struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Status   string            `json:"status"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Note keys recognised on payment entities.
const (
	NoteKeyType         = "type"
	NoteKeyAttemptID    = "attempt_id"
	NoteKeyRestaurantID = "restaurant_id"
	NoteKeyLedgerID     = "ledger_id"

	NoteTypeTokenization = "tokenization"
)
