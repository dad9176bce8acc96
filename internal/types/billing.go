package types

// PaymentStatus tracks an order's payment lifecycle. Transitions are
// monotonic: completed never regresses to pending, refunded is only
// reachable from completed or partially refunded.
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "pending"
	PaymentStatusCompleted         PaymentStatus = "completed"
	PaymentStatusPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentStatusRefunded          PaymentStatus = "refunded"
)

// IsSettled reports whether payment has already been applied for the order,
// in which case a captured event must be treated as a duplicate.
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentStatusCompleted ||
		s == PaymentStatusPartiallyRefunded ||
		s == PaymentStatusRefunded
}

// OrderStatus is the fulfilment status of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// LedgerPaymentStatus tracks a monthly billing ledger. The scheduler only
// ever moves between pending and retry; paid and failed are set by webhook
// handlers (and by the retry give-up path).
type LedgerPaymentStatus string

const (
	LedgerPaymentStatusPending LedgerPaymentStatus = "pending"
	LedgerPaymentStatusRetry   LedgerPaymentStatus = "retry"
	LedgerPaymentStatusPaid    LedgerPaymentStatus = "paid"
	LedgerPaymentStatusFailed  LedgerPaymentStatus = "failed"
)

// TokenizationStatus tracks a card-on-file setup charge.
type TokenizationStatus string

const (
	TokenizationStatusPending  TokenizationStatus = "pending"
	TokenizationStatusCreated  TokenizationStatus = "created"
	TokenizationStatusCaptured TokenizationStatus = "captured"
	TokenizationStatusFailed   TokenizationStatus = "failed"
)

// MandateStatus is the recurring-charge authorization state of a merchant.
type MandateStatus string

const (
	MandateStatusNone   MandateStatus = "none"
	MandateStatusActive MandateStatus = "active"
)

// BillingStatus is the merchant account standing.
type BillingStatus string

const (
	BillingStatusActive  BillingStatus = "active"
	BillingStatusOverdue BillingStatus = "overdue"
)
