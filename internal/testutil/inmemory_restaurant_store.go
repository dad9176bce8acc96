package testutil

import (
	"context"
	"sort"

	"github.com/samber/lo"

	"github.com/dinematters/dinematters/internal/domain/restaurant"
	"github.com/dinematters/dinematters/internal/types"
)

// InMemoryRestaurantStore implements restaurant.Repository
type InMemoryRestaurantStore struct {
	*InMemoryStore[*restaurant.Restaurant]
}

// NewInMemoryRestaurantStore creates a new in-memory restaurant store
func NewInMemoryRestaurantStore() *InMemoryRestaurantStore {
	return &InMemoryRestaurantStore{
		InMemoryStore: NewInMemoryStore[*restaurant.Restaurant](),
	}
}

func copyRestaurant(r *restaurant.Restaurant) *restaurant.Restaurant {
	if r == nil {
		return nil
	}
	copied := *r
	return &copied
}

// Seed inserts a restaurant directly, for test setup
func (s *InMemoryRestaurantStore) Seed(ctx context.Context, r *restaurant.Restaurant) error {
	return s.InMemoryStore.Create(ctx, r.ID, copyRestaurant(r))
}

func (s *InMemoryRestaurantStore) Get(ctx context.Context, id string) (*restaurant.Restaurant, error) {
	r, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyRestaurant(r), nil
}

func (s *InMemoryRestaurantStore) GetByGatewayAccountID(ctx context.Context, accountID string) (*restaurant.Restaurant, error) {
	r, err := s.FindFirst(ctx, func(r *restaurant.Restaurant) bool {
		return r.GatewayAccountID == accountID
	})
	if err != nil {
		return nil, err
	}
	return copyRestaurant(r), nil
}

func (s *InMemoryRestaurantStore) Update(ctx context.Context, r *restaurant.Restaurant) error {
	return s.InMemoryStore.Update(ctx, r.ID, copyRestaurant(r))
}

func (s *InMemoryRestaurantStore) ListActive(ctx context.Context) ([]*restaurant.Restaurant, error) {
	matches := s.FindAll(ctx, func(r *restaurant.Restaurant) bool {
		return r.Status == types.StatusActive
	})
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })

	return lo.Map(matches, func(r *restaurant.Restaurant, _ int) *restaurant.Restaurant {
		return copyRestaurant(r)
	}), nil
}
