package order

import (
	"time"

	"github.com/samber/lo"

	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/types"
)

// Order is the slice of the external order document this subsystem reads
// and mutates. The ordering platform owns the full document; only the
// payment-facing fields live here.
type Order struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`

	// TotalMinor is the order total in minor currency units. Treated as
	// immutable once payment is captured; refund proportions are computed
	// against it.
	TotalMinor int64 `json:"total_minor"`

	// RefundedMinor accumulates processed refund amounts.
	RefundedMinor int64 `json:"refunded_minor"`

	// AppliedRefundIDs records the gateway refund ids already folded into
	// RefundedMinor. A refund id seen here must not be applied again.
	AppliedRefundIDs []string `json:"applied_refund_ids,omitempty"`

	PaymentStatus types.PaymentStatus `json:"payment_status"`
	OrderStatus   types.OrderStatus   `json:"order_status"`

	GatewayOrderID   string `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`
	TransactionID    string `json:"transaction_id,omitempty"`

	PaidAt *time.Time `json:"paid_at,omitempty"`

	types.BaseModel
}

// HasRefund reports whether a gateway refund id was already applied.
func (o *Order) HasRefund(refundID string) bool {
	return lo.Contains(o.AppliedRefundIDs, refundID)
}

// ApplyRefund folds a refund amount into the order, recording the refund
// id and clamping at the order total. Applying a recorded id is a no-op.
func (o *Order) ApplyRefund(refundID string, amountMinor int64) {
	if refundID != "" {
		if o.HasRefund(refundID) {
			return
		}
		o.AppliedRefundIDs = append(o.AppliedRefundIDs, refundID)
	}

	o.RefundedMinor += amountMinor
	if o.RefundedMinor >= o.TotalMinor {
		o.RefundedMinor = o.TotalMinor
		o.PaymentStatus = types.PaymentStatusRefunded
		o.OrderStatus = types.OrderStatusCancelled
	} else {
		o.PaymentStatus = types.PaymentStatusPartiallyRefunded
	}
}

// Validate validates the order
func (o *Order) Validate() error {
	if o.RestaurantID == "" {
		return ierr.NewError("restaurant_id is required").Mark(ierr.ErrValidation)
	}
	if o.TotalMinor < 0 {
		return ierr.NewError("total_minor must not be negative").Mark(ierr.ErrValidation)
	}
	return nil
}
