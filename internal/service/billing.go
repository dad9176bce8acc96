package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dinematters/dinematters/internal/domain/ledger"
	"github.com/dinematters/dinematters/internal/domain/restaurant"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/integration/razorpay"
	rzpwebhook "github.com/dinematters/dinematters/internal/integration/razorpay/webhook"
	"github.com/dinematters/dinematters/internal/types"
)

// BillingService owns the monthly billing ledger: creation, GMV
// accumulation, fee computation and recurring charge attempts.
type BillingService interface {
	// EnsureLedger returns the ledger for the restaurant and period,
	// creating it if absent. A racing create is a benign duplicate.
	EnsureLedger(ctx context.Context, restaurantID string, period types.BillingPeriod) (*ledger.MonthlyBillingLedger, error)

	// RecordOrderPayment folds a captured order amount into the
	// current-period ledger.
	RecordOrderPayment(ctx context.Context, restaurantID string, amountMinor int64, capturedAt time.Time) error

	// ReverseRefund backs a refunded amount out of the ledger for the
	// period the payment landed in, flooring at zero.
	ReverseRefund(ctx context.Context, restaurantID string, amountMinor int64, paidAt time.Time) error

	// CreateLedgersForElapsedPeriod creates one ledger per active
	// restaurant for the month before now. Idempotent re-run.
	CreateLedgersForElapsedPeriod(ctx context.Context, now time.Time) (int, error)

	// ChargeLedger attempts to collect a ledger's final amount using the
	// restaurant's stored token. Failure schedules a backoff retry;
	// success leaves the ledger pending until the webhook confirms.
	ChargeLedger(ctx context.Context, l *ledger.MonthlyBillingLedger) error
}

type billingService struct {
	ServiceParams
}

// NewBillingService creates a new billing service
func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

func (s *billingService) feeSchedule() ledger.FeeSchedule {
	return ledger.NewFeeSchedule(
		s.Config.Billing.FeeRate,
		s.Config.Billing.MinFee,
		s.Config.Billing.MaxFee,
	)
}

func (s *billingService) EnsureLedger(ctx context.Context, restaurantID string, period types.BillingPeriod) (*ledger.MonthlyBillingLedger, error) {
	existing, err := s.LedgerRepo.GetByPeriod(ctx, restaurantID, period)
	if err == nil {
		return existing, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	l := &ledger.MonthlyBillingLedger{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER),
		RestaurantID:  restaurantID,
		BillingPeriod: period,
		PaymentStatus: types.LedgerPaymentStatusPending,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	l.RecomputeFee(s.feeSchedule())

	if err := s.LedgerRepo.Create(ctx, l); err != nil {
		if ierr.IsAlreadyExists(err) {
			// Lost the race; the winner's row is the ledger.
			return s.LedgerRepo.GetByPeriod(ctx, restaurantID, period)
		}
		return nil, err
	}

	s.Logger.Infow("created billing ledger",
		"ledger_id", l.ID,
		"restaurant_id", restaurantID,
		"billing_period", period,
	)
	return l, nil
}

func (s *billingService) RecordOrderPayment(ctx context.Context, restaurantID string, amountMinor int64, capturedAt time.Time) error {
	period := types.BillingPeriodFromTime(capturedAt)

	l, err := s.EnsureLedger(ctx, restaurantID, period)
	if err != nil {
		return err
	}

	l.AddGMV(amountMinor, s.feeSchedule())
	if err := s.LedgerRepo.Update(ctx, l); err != nil {
		return err
	}

	s.Logger.Debugw("accumulated order payment into ledger",
		"ledger_id", l.ID,
		"amount", amountMinor,
		"total_gmv", l.TotalGMV,
	)
	return nil
}

func (s *billingService) ReverseRefund(ctx context.Context, restaurantID string, amountMinor int64, paidAt time.Time) error {
	period := types.BillingPeriodFromTime(paidAt)

	l, err := s.LedgerRepo.GetByPeriod(ctx, restaurantID, period)
	if err != nil {
		if ierr.IsNotFound(err) {
			// Nothing accumulated for the period; nothing to reverse.
			s.Logger.Warnw("refund for period without a ledger",
				"restaurant_id", restaurantID,
				"billing_period", period,
			)
			return nil
		}
		return err
	}

	l.ReverseGMV(amountMinor, s.feeSchedule())
	return s.LedgerRepo.Update(ctx, l)
}

func (s *billingService) CreateLedgersForElapsedPeriod(ctx context.Context, now time.Time) (int, error) {
	period := types.PreviousBillingPeriod(now)
	start, end, err := period.Bounds()
	if err != nil {
		return 0, err
	}

	restaurants, err := s.RestaurantRepo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, rest := range restaurants {
		made, err := s.createPeriodLedger(ctx, rest, period, start, end)
		if err != nil {
			s.Logger.Errorw("failed to create ledger",
				"restaurant_id", rest.ID, "error", err)
			continue
		}
		if made {
			created++
		}
	}

	s.Logger.Infow("monthly ledger creation finished",
		"billing_period", period,
		"created", created,
		"restaurants", len(restaurants),
	)
	return created, nil
}

// createPeriodLedger runs one restaurant's check-then-insert inside a
// transaction holding an advisory lock, so two overlapping job runs
// cannot both pass the existence check. The unique constraint on
// (restaurant_id, billing_period) stays as the backstop.
func (s *billingService) createPeriodLedger(ctx context.Context, rest *restaurant.Restaurant, period types.BillingPeriod, start, end time.Time) (bool, error) {
	created := false
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		lockKey := fmt.Sprintf("ledger_create:%s:%s", rest.ID, period)
		if err := s.DB.LockKey(ctx, lockKey, 5*time.Second); err != nil {
			return err
		}

		if _, err := s.LedgerRepo.GetByPeriod(ctx, rest.ID, period); err == nil {
			return nil
		} else if !ierr.IsNotFound(err) {
			return err
		}

		gmv, err := s.OrderRepo.SumCompletedInPeriod(ctx, rest.ID, start, end)
		if err != nil {
			return err
		}

		l := &ledger.MonthlyBillingLedger{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER),
			RestaurantID:  rest.ID,
			BillingPeriod: period,
			TotalGMV:      gmv,
			PaymentStatus: types.LedgerPaymentStatusPending,
			BaseModel:     types.GetDefaultBaseModel(ctx),
		}
		l.RecomputeFee(s.feeSchedule())

		if err := s.LedgerRepo.Create(ctx, l); err != nil {
			if ierr.IsAlreadyExists(err) {
				return nil
			}
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (s *billingService) ChargeLedger(ctx context.Context, l *ledger.MonthlyBillingLedger) error {
	// Reload so the decision runs against current state, not the sweep's
	// snapshot.
	current, err := s.LedgerRepo.Get(ctx, l.ID)
	if err != nil {
		return err
	}

	if current.PaymentStatus == types.LedgerPaymentStatusPaid {
		return nil
	}
	if current.PaymentStatus == types.LedgerPaymentStatusFailed {
		return nil
	}

	rest, err := s.RestaurantRepo.Get(ctx, current.RestaurantID)
	if err != nil {
		return err
	}

	if !rest.HasStoredToken() {
		return s.createPaymentLinkFallback(ctx, current, rest.Name)
	}

	resp, err := s.Gateway.ChargeToken(ctx, &razorpay.ChargeTokenRequest{
		CustomerID:  rest.GatewayCustomerID,
		TokenID:     rest.GatewayTokenID,
		AmountMinor: current.FinalAmount,
		Currency:    s.Config.Billing.Currency,
		Description: fmt.Sprintf("Platform fee %s", current.BillingPeriod),
		Notes: map[string]string{
			rzpwebhook.NoteKeyLedgerID:     current.ID,
			rzpwebhook.NoteKeyRestaurantID: current.RestaurantID,
		},
	})
	if err != nil {
		return s.recordChargeFailure(ctx, current, err)
	}

	// The charge call is provisional. The captured/failed webhook is the
	// authoritative outcome, so the ledger goes back to pending.
	current.GatewayPaymentID = resp.PaymentID
	current.PaymentStatus = types.LedgerPaymentStatusPending
	current.NextRetryAt = nil
	if err := s.LedgerRepo.Update(ctx, current); err != nil {
		return err
	}

	s.Logger.Infow("recurring charge submitted",
		"ledger_id", current.ID,
		"payment_id", resp.PaymentID,
		"amount", current.FinalAmount,
	)
	return nil
}

func (s *billingService) recordChargeFailure(ctx context.Context, l *ledger.MonthlyBillingLedger, cause error) error {
	now := time.Now().UTC()

	if l.RetryCount+1 >= s.Config.Billing.MaxRetryCount {
		l.RetryCount++
		l.PaymentStatus = types.LedgerPaymentStatusFailed
		l.NextRetryAt = nil
		if err := s.LedgerRepo.Update(ctx, l); err != nil {
			return err
		}
		if err := s.markRestaurantOverdue(ctx, l.RestaurantID); err != nil {
			return err
		}
		s.Logger.Errorw("ledger charge abandoned after max retries",
			"ledger_id", l.ID,
			"retry_count", l.RetryCount,
			"error", cause,
		)
		return nil
	}

	l.ScheduleRetry(now, s.Config.Billing.RetryBackoffCapMin)
	if err := s.LedgerRepo.Update(ctx, l); err != nil {
		return err
	}

	s.Logger.Warnw("ledger charge failed, scheduled retry",
		"ledger_id", l.ID,
		"retry_count", l.RetryCount,
		"next_retry_at", l.NextRetryAt,
		"error", cause,
	)
	return nil
}

// createPaymentLinkFallback issues a hosted payment link when the merchant
// has no stored token; payment_link.paid settles the ledger.
func (s *billingService) createPaymentLinkFallback(ctx context.Context, l *ledger.MonthlyBillingLedger, restaurantName string) error {
	if l.PaymentLinkID != "" {
		// A link is already outstanding; do not issue another.
		return nil
	}

	resp, err := s.Gateway.CreatePaymentLink(ctx, &razorpay.CreatePaymentLinkRequest{
		AmountMinor:  l.FinalAmount,
		Currency:     s.Config.Billing.Currency,
		Description:  fmt.Sprintf("Platform fee %s", l.BillingPeriod),
		CustomerName: restaurantName,
		Notes: map[string]string{
			rzpwebhook.NoteKeyLedgerID:     l.ID,
			rzpwebhook.NoteKeyRestaurantID: l.RestaurantID,
		},
	})
	if err != nil {
		return s.recordChargeFailure(ctx, l, err)
	}

	l.PaymentLinkID = resp.PaymentLinkID
	l.PaymentStatus = types.LedgerPaymentStatusPending
	l.NextRetryAt = nil
	if err := s.LedgerRepo.Update(ctx, l); err != nil {
		return err
	}

	s.Logger.Infow("issued payment link for ledger",
		"ledger_id", l.ID,
		"payment_link_id", resp.PaymentLinkID,
	)
	return nil
}

func (s *billingService) markRestaurantOverdue(ctx context.Context, restaurantID string) error {
	rest, err := s.RestaurantRepo.Get(ctx, restaurantID)
	if err != nil {
		return err
	}
	if rest.BillingStatus == types.BillingStatusOverdue {
		return nil
	}
	rest.BillingStatus = types.BillingStatusOverdue
	return s.RestaurantRepo.Update(ctx, rest)
}
