package order

import (
	"context"
	"time"
)

// Repository defines the interface for order persistence operations.
// Updates here intentionally bypass the ordering platform's document
// validation; the gateway is the source of truth for these fields.
type Repository interface {
	// Get retrieves an order by internal id
	Get(ctx context.Context, id string) (*Order, error)

	// GetByGatewayOrderID retrieves an order by the gateway order id
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error)

	// GetByGatewayPaymentID retrieves an order by the gateway payment id
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*Order, error)

	// Update persists the payment-facing fields of the order
	Update(ctx context.Context, o *Order) error

	// SumCompletedInPeriod returns the total of completed orders for a
	// restaurant within [start, end).
	SumCompletedInPeriod(ctx context.Context, restaurantID string, start, end time.Time) (int64, error)
}
