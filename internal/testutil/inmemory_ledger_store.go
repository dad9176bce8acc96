package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/dinematters/dinematters/internal/domain/ledger"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/types"
)

// InMemoryLedgerStore implements ledger.Repository
type InMemoryLedgerStore struct {
	*InMemoryStore[*ledger.MonthlyBillingLedger]
}

// NewInMemoryLedgerStore creates a new in-memory ledger store
func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		InMemoryStore: NewInMemoryStore[*ledger.MonthlyBillingLedger](),
	}
}

func copyLedger(l *ledger.MonthlyBillingLedger) *ledger.MonthlyBillingLedger {
	if l == nil {
		return nil
	}
	copied := *l
	if l.PaidAt != nil {
		paidAt := *l.PaidAt
		copied.PaidAt = &paidAt
	}
	if l.NextRetryAt != nil {
		next := *l.NextRetryAt
		copied.NextRetryAt = &next
	}
	return &copied
}

func (s *InMemoryLedgerStore) Create(ctx context.Context, l *ledger.MonthlyBillingLedger) error {
	if err := l.Validate(); err != nil {
		return err
	}

	// Mirror the unique constraint on (restaurant_id, billing_period).
	if _, err := s.GetByPeriod(ctx, l.RestaurantID, l.BillingPeriod); err == nil {
		return ierr.NewErrorf("ledger already exists for %s %s", l.RestaurantID, l.BillingPeriod).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, l.ID, copyLedger(l))
}

func (s *InMemoryLedgerStore) Get(ctx context.Context, id string) (*ledger.MonthlyBillingLedger, error) {
	l, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyLedger(l), nil
}

func (s *InMemoryLedgerStore) GetByPeriod(ctx context.Context, restaurantID string, period types.BillingPeriod) (*ledger.MonthlyBillingLedger, error) {
	l, err := s.FindFirst(ctx, func(l *ledger.MonthlyBillingLedger) bool {
		return l.RestaurantID == restaurantID && l.BillingPeriod == period
	})
	if err != nil {
		return nil, err
	}
	return copyLedger(l), nil
}

func (s *InMemoryLedgerStore) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*ledger.MonthlyBillingLedger, error) {
	if gatewayPaymentID == "" {
		return nil, ierr.NewError("gateway payment id is empty").Mark(ierr.ErrNotFound)
	}
	l, err := s.FindFirst(ctx, func(l *ledger.MonthlyBillingLedger) bool {
		return l.GatewayPaymentID == gatewayPaymentID
	})
	if err != nil {
		return nil, err
	}
	return copyLedger(l), nil
}

func (s *InMemoryLedgerStore) GetByPaymentLinkID(ctx context.Context, paymentLinkID string) (*ledger.MonthlyBillingLedger, error) {
	if paymentLinkID == "" {
		return nil, ierr.NewError("payment link id is empty").Mark(ierr.ErrNotFound)
	}
	l, err := s.FindFirst(ctx, func(l *ledger.MonthlyBillingLedger) bool {
		return l.PaymentLinkID == paymentLinkID
	})
	if err != nil {
		return nil, err
	}
	return copyLedger(l), nil
}

func (s *InMemoryLedgerStore) Update(ctx context.Context, l *ledger.MonthlyBillingLedger) error {
	return s.InMemoryStore.Update(ctx, l.ID, copyLedger(l))
}

func (s *InMemoryLedgerStore) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*ledger.MonthlyBillingLedger, error) {
	matches := s.FindAll(ctx, func(l *ledger.MonthlyBillingLedger) bool {
		return l.PaymentStatus == types.LedgerPaymentStatusRetry &&
			l.NextRetryAt != nil && !l.NextRetryAt.After(now)
	})

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].NextRetryAt.Before(*matches[j].NextRetryAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*ledger.MonthlyBillingLedger, len(matches))
	for i, l := range matches {
		out[i] = copyLedger(l)
	}
	return out, nil
}
