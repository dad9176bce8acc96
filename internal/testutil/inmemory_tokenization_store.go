package testutil

import (
	"context"

	"github.com/dinematters/dinematters/internal/domain/tokenization"
	ierr "github.com/dinematters/dinematters/internal/errors"
)

// InMemoryTokenizationStore implements tokenization.Repository
type InMemoryTokenizationStore struct {
	*InMemoryStore[*tokenization.Attempt]
}

// NewInMemoryTokenizationStore creates a new in-memory tokenization store
func NewInMemoryTokenizationStore() *InMemoryTokenizationStore {
	return &InMemoryTokenizationStore{
		InMemoryStore: NewInMemoryStore[*tokenization.Attempt](),
	}
}

func copyAttempt(a *tokenization.Attempt) *tokenization.Attempt {
	if a == nil {
		return nil
	}
	copied := *a
	return &copied
}

func (s *InMemoryTokenizationStore) Create(ctx context.Context, a *tokenization.Attempt) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, a.ID, copyAttempt(a))
}

func (s *InMemoryTokenizationStore) Get(ctx context.Context, id string) (*tokenization.Attempt, error) {
	a, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyAttempt(a), nil
}

func (s *InMemoryTokenizationStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*tokenization.Attempt, error) {
	if gatewayOrderID == "" {
		return nil, ierr.NewError("gateway order id is empty").Mark(ierr.ErrNotFound)
	}
	a, err := s.FindFirst(ctx, func(a *tokenization.Attempt) bool {
		return a.GatewayOrderID == gatewayOrderID
	})
	if err != nil {
		return nil, err
	}
	return copyAttempt(a), nil
}

func (s *InMemoryTokenizationStore) Update(ctx context.Context, a *tokenization.Attempt) error {
	return s.InMemoryStore.Update(ctx, a.ID, copyAttempt(a))
}
