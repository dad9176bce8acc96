package ledger

import (
	"context"
	"time"

	"github.com/dinematters/dinematters/internal/types"
)

// Repository defines the interface for billing ledger persistence
// operations. The (restaurant_id, billing_period) uniqueness constraint is
// the correctness mechanism for concurrent creation; a racing insert is
// reported as ErrAlreadyExists and callers treat it as benign.
type Repository interface {
	// Create inserts a new ledger row
	Create(ctx context.Context, l *MonthlyBillingLedger) error

	// Get retrieves a ledger by internal id
	Get(ctx context.Context, id string) (*MonthlyBillingLedger, error)

	// GetByPeriod retrieves the ledger for a restaurant and period
	GetByPeriod(ctx context.Context, restaurantID string, period types.BillingPeriod) (*MonthlyBillingLedger, error)

	// GetByGatewayPaymentID retrieves the ledger holding a charge attempt
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*MonthlyBillingLedger, error)

	// GetByPaymentLinkID retrieves the ledger a payment link was issued for
	GetByPaymentLinkID(ctx context.Context, paymentLinkID string) (*MonthlyBillingLedger, error)

	// Update persists ledger mutations
	Update(ctx context.Context, l *MonthlyBillingLedger) error

	// ListDueRetries returns ledgers in retry state whose next attempt
	// time has passed.
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*MonthlyBillingLedger, error)
}
