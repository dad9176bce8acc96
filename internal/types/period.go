package types

import (
	"time"

	ierr "github.com/dinematters/dinematters/internal/errors"
)

// BillingPeriod identifies a calendar month, formatted YYYY-MM.
type BillingPeriod string

const billingPeriodLayout = "2006-01"

// BillingPeriodFromTime returns the period containing t.
func BillingPeriodFromTime(t time.Time) BillingPeriod {
	return BillingPeriod(t.UTC().Format(billingPeriodLayout))
}

// PreviousBillingPeriod returns the fully elapsed period as of t, i.e. the
// month before the one containing t.
func PreviousBillingPeriod(t time.Time) BillingPeriod {
	t = t.UTC()
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return BillingPeriodFromTime(firstOfMonth.AddDate(0, 0, -1))
}

func (p BillingPeriod) String() string {
	return string(p)
}

// Validate checks the YYYY-MM format.
func (p BillingPeriod) Validate() error {
	if _, err := time.Parse(billingPeriodLayout, string(p)); err != nil {
		return ierr.NewErrorf("invalid billing period %q", p).
			WithHint("Billing periods must be formatted YYYY-MM").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Bounds returns the [start, end) time range covered by the period.
func (p BillingPeriod) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(billingPeriodLayout, string(p))
	if err != nil {
		return time.Time{}, time.Time{}, ierr.NewErrorf("invalid billing period %q", p).
			Mark(ierr.ErrValidation)
	}
	return start, start.AddDate(0, 1, 0), nil
}
