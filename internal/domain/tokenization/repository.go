package tokenization

import "context"

// Repository defines the interface for tokenization attempt persistence
// operations
type Repository interface {
	// Create inserts a new attempt
	Create(ctx context.Context, a *Attempt) error

	// Get retrieves an attempt by internal id
	Get(ctx context.Context, id string) (*Attempt, error)

	// GetByGatewayOrderID retrieves an attempt by the gateway order id
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Attempt, error)

	// Update persists attempt mutations
	Update(ctx context.Context, a *Attempt) error
}
