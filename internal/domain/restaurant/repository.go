package restaurant

import "context"

// Repository defines the interface for restaurant persistence operations
type Repository interface {
	// Get retrieves a restaurant by internal id
	Get(ctx context.Context, id string) (*Restaurant, error)

	// GetByGatewayAccountID retrieves a restaurant by gateway account id
	GetByGatewayAccountID(ctx context.Context, accountID string) (*Restaurant, error)

	// Update persists the billing configuration fields
	Update(ctx context.Context, r *Restaurant) error

	// ListActive returns all restaurants with active status
	ListActive(ctx context.Context) ([]*Restaurant, error)
}
