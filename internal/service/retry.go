package service

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// RetryService sweeps billing ledgers due for another charge attempt.
type RetryService interface {
	// SweepDueRetries charges every ledger whose next retry time has
	// passed and returns how many were attempted.
	SweepDueRetries(ctx context.Context, now time.Time) (int, error)
}

type retryService struct {
	ServiceParams
	billing BillingService
}

// NewRetryService creates a new retry service
func NewRetryService(params ServiceParams, billing BillingService) RetryService {
	return &retryService{ServiceParams: params, billing: billing}
}

func (s *retryService) SweepDueRetries(ctx context.Context, now time.Time) (int, error) {
	due, err := s.LedgerRepo.ListDueRetries(ctx, now, 500)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	s.Logger.Infow("retry sweep starting", "due", len(due))

	workers := s.Config.Billing.RetrySweepWorkers
	if workers <= 0 {
		workers = 1
	}

	p := pool.New().WithMaxGoroutines(workers)
	for _, l := range due {
		l := l
		p.Go(func() {
			if err := s.billing.ChargeLedger(ctx, l); err != nil {
				s.Logger.Errorw("charge attempt errored",
					"ledger_id", l.ID,
					"restaurant_id", l.RestaurantID,
					"error", err,
				)
			}
		})
	}
	p.Wait()

	return len(due), nil
}
