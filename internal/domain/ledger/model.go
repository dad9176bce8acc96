package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/types"
)

// FeeSchedule is the platform fee policy applied to a ledger. Amounts are
// minor currency units.
type FeeSchedule struct {
	Rate   decimal.Decimal
	MinFee int64
	MaxFee int64
}

// NewFeeSchedule builds a schedule from raw configuration values.
func NewFeeSchedule(rate float64, minFee, maxFee int64) FeeSchedule {
	return FeeSchedule{
		Rate:   decimal.NewFromFloat(rate),
		MinFee: minFee,
		MaxFee: maxFee,
	}
}

// MonthlyBillingLedger is the per-restaurant, per-period billing record.
// Identity is unique on (restaurant_id, billing_period).
type MonthlyBillingLedger struct {
	ID            string              `json:"id"`
	RestaurantID  string              `json:"restaurant_id"`
	BillingPeriod types.BillingPeriod `json:"billing_period"`

	// TotalGMV is the sum of completed order totals in the period, minor
	// currency units.
	TotalGMV      int64 `json:"total_gmv"`
	CalculatedFee int64 `json:"calculated_fee"`
	FinalAmount   int64 `json:"final_amount"`

	PaymentStatus    types.LedgerPaymentStatus `json:"payment_status"`
	GatewayPaymentID string                    `json:"gateway_payment_id,omitempty"`
	PaymentLinkID    string                    `json:"payment_link_id,omitempty"`
	PaidAt           *time.Time                `json:"paid_at,omitempty"`

	RetryCount  int        `json:"retry_count"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`

	types.BaseModel
}

// RecomputeFee derives the fee columns from TotalGMV. The calculated fee
// is floor(gmv * rate); the final amount clamps it into [MinFee, MaxFee].
func (l *MonthlyBillingLedger) RecomputeFee(fees FeeSchedule) {
	gmv := decimal.NewFromInt(l.TotalGMV)
	l.CalculatedFee = gmv.Mul(fees.Rate).Floor().IntPart()

	final := l.CalculatedFee
	if final < fees.MinFee {
		final = fees.MinFee
	}
	if final > fees.MaxFee {
		final = fees.MaxFee
	}
	l.FinalAmount = final
}

// AddGMV folds a captured order amount into the period total.
func (l *MonthlyBillingLedger) AddGMV(amount int64, fees FeeSchedule) {
	l.TotalGMV += amount
	l.RecomputeFee(fees)
}

// ReverseGMV backs a refunded amount out of the period total, flooring
// at zero so an oversized or out-of-order refund can never drive the
// ledger negative.
func (l *MonthlyBillingLedger) ReverseGMV(amount int64, fees FeeSchedule) {
	l.TotalGMV -= amount
	if l.TotalGMV < 0 {
		l.TotalGMV = 0
	}
	l.RecomputeFee(fees)
}

// RetryDelay returns the backoff delay for a given retry count:
// 2^retryCount minutes, capped.
func RetryDelay(retryCount int, capMinutes int) time.Duration {
	capped := time.Duration(capMinutes) * time.Minute
	if retryCount >= 31 {
		return capped
	}
	delay := time.Duration(1<<uint(retryCount)) * time.Minute
	if delay > capped {
		return capped
	}
	return delay
}

// ScheduleRetry records a failed charge attempt and computes the next
// attempt time with exponential backoff.
func (l *MonthlyBillingLedger) ScheduleRetry(now time.Time, capMinutes int) {
	l.RetryCount++
	next := now.Add(RetryDelay(l.RetryCount, capMinutes))
	l.NextRetryAt = &next
	l.PaymentStatus = types.LedgerPaymentStatusRetry
}

// IsSettled reports whether the ledger has reached a terminal state.
func (l *MonthlyBillingLedger) IsSettled() bool {
	return l.PaymentStatus == types.LedgerPaymentStatusPaid ||
		l.PaymentStatus == types.LedgerPaymentStatusFailed
}

// Validate validates the ledger
func (l *MonthlyBillingLedger) Validate() error {
	if l.RestaurantID == "" {
		return ierr.NewError("restaurant_id is required").Mark(ierr.ErrValidation)
	}
	if err := l.BillingPeriod.Validate(); err != nil {
		return err
	}
	if l.TotalGMV < 0 {
		return ierr.NewError("total_gmv must not be negative").Mark(ierr.ErrValidation)
	}
	return nil
}
