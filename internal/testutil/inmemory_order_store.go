package testutil

import (
	"context"
	"time"

	"github.com/dinematters/dinematters/internal/domain/order"
	"github.com/dinematters/dinematters/internal/types"
)

// InMemoryOrderStore implements order.Repository
type InMemoryOrderStore struct {
	*InMemoryStore[*order.Order]
}

// NewInMemoryOrderStore creates a new in-memory order store
func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{
		InMemoryStore: NewInMemoryStore[*order.Order](),
	}
}

func copyOrder(o *order.Order) *order.Order {
	if o == nil {
		return nil
	}
	copied := *o
	copied.AppliedRefundIDs = append([]string(nil), o.AppliedRefundIDs...)
	if o.PaidAt != nil {
		paidAt := *o.PaidAt
		copied.PaidAt = &paidAt
	}
	return &copied
}

// Seed inserts an order directly, for test setup
func (s *InMemoryOrderStore) Seed(ctx context.Context, o *order.Order) error {
	return s.InMemoryStore.Create(ctx, o.ID, copyOrder(o))
}

func (s *InMemoryOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyOrder(o), nil
}

func (s *InMemoryOrderStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error) {
	o, err := s.FindFirst(ctx, func(o *order.Order) bool {
		return o.GatewayOrderID == gatewayOrderID
	})
	if err != nil {
		return nil, err
	}
	return copyOrder(o), nil
}

func (s *InMemoryOrderStore) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*order.Order, error) {
	o, err := s.FindFirst(ctx, func(o *order.Order) bool {
		return o.GatewayPaymentID == gatewayPaymentID
	})
	if err != nil {
		return nil, err
	}
	return copyOrder(o), nil
}

func (s *InMemoryOrderStore) Update(ctx context.Context, o *order.Order) error {
	return s.InMemoryStore.Update(ctx, o.ID, copyOrder(o))
}

func (s *InMemoryOrderStore) SumCompletedInPeriod(ctx context.Context, restaurantID string, start, end time.Time) (int64, error) {
	matches := s.FindAll(ctx, func(o *order.Order) bool {
		if o.RestaurantID != restaurantID || o.PaidAt == nil {
			return false
		}
		settled := o.PaymentStatus == types.PaymentStatusCompleted ||
			o.PaymentStatus == types.PaymentStatusPartiallyRefunded
		return settled && !o.PaidAt.Before(start) && o.PaidAt.Before(end)
	})

	var total int64
	for _, o := range matches {
		total += o.TotalMinor - o.RefundedMinor
	}
	return total, nil
}
