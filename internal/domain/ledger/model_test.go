package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dinematters/dinematters/internal/types"
)

func testFees() FeeSchedule {
	return NewFeeSchedule(0.01, 99900, 399900)
}

func TestRecomputeFeeClamp(t *testing.T) {
	tests := []struct {
		name          string
		totalGMV      int64
		wantFee       int64
		wantFinal     int64
	}{
		{name: "zero gmv clamps to min", totalGMV: 0, wantFee: 0, wantFinal: 99900},
		{name: "small gmv clamps to min", totalGMV: 500000, wantFee: 5000, wantFinal: 99900},
		{name: "mid gmv within band", totalGMV: 20000000, wantFee: 200000, wantFinal: 200000},
		{name: "large gmv clamps to max", totalGMV: 100000000, wantFee: 1000000, wantFinal: 399900},
		{name: "fee floors fractional result", totalGMV: 12345, wantFee: 123, wantFinal: 99900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &MonthlyBillingLedger{TotalGMV: tt.totalGMV}
			l.RecomputeFee(testFees())
			assert.Equal(t, tt.wantFee, l.CalculatedFee)
			assert.Equal(t, tt.wantFinal, l.FinalAmount)
			assert.GreaterOrEqual(t, l.FinalAmount, int64(99900))
			assert.LessOrEqual(t, l.FinalAmount, int64(399900))
		})
	}
}

func TestReverseGMVFloorsAtZero(t *testing.T) {
	l := &MonthlyBillingLedger{TotalGMV: 50000}
	l.ReverseGMV(80000, testFees())

	assert.Equal(t, int64(0), l.TotalGMV)
	assert.Equal(t, int64(0), l.CalculatedFee)
	assert.Equal(t, int64(99900), l.FinalAmount)
}

func TestAddThenReverseGMV(t *testing.T) {
	l := &MonthlyBillingLedger{}
	l.AddGMV(50000, testFees())
	assert.Equal(t, int64(50000), l.TotalGMV)

	l.ReverseGMV(50000, testFees())
	assert.Equal(t, int64(0), l.TotalGMV)
}

func TestRetryDelayGrowth(t *testing.T) {
	capMinutes := 1440

	var prev time.Duration
	for count := 1; count <= 10; count++ {
		delay := RetryDelay(count, capMinutes)
		assert.GreaterOrEqual(t, delay, prev, "delay must never shrink")
		assert.LessOrEqual(t, delay, 24*time.Hour, "delay must never exceed the cap")
		prev = delay
	}

	assert.Equal(t, 2*time.Minute, RetryDelay(1, capMinutes))
	assert.Equal(t, 4*time.Minute, RetryDelay(2, capMinutes))
	assert.Equal(t, 1024*time.Minute, RetryDelay(10, capMinutes))
	assert.Equal(t, 1440*time.Minute, RetryDelay(11, capMinutes))
	assert.Equal(t, 1440*time.Minute, RetryDelay(40, capMinutes))
}

func TestScheduleRetry(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	l := &MonthlyBillingLedger{PaymentStatus: types.LedgerPaymentStatusPending}

	l.ScheduleRetry(now, 1440)
	assert.Equal(t, 1, l.RetryCount)
	assert.Equal(t, types.LedgerPaymentStatusRetry, l.PaymentStatus)
	assert.Equal(t, now.Add(2*time.Minute), *l.NextRetryAt)

	l.ScheduleRetry(now, 1440)
	assert.Equal(t, 2, l.RetryCount)
	assert.Equal(t, now.Add(4*time.Minute), *l.NextRetryAt)
}

func TestLedgerValidate(t *testing.T) {
	l := &MonthlyBillingLedger{RestaurantID: "rest_1", BillingPeriod: "2025-02"}
	assert.NoError(t, l.Validate())

	assert.Error(t, (&MonthlyBillingLedger{BillingPeriod: "2025-02"}).Validate())
	assert.Error(t, (&MonthlyBillingLedger{RestaurantID: "rest_1", BillingPeriod: "bad"}).Validate())
	assert.Error(t, (&MonthlyBillingLedger{RestaurantID: "rest_1", BillingPeriod: "2025-02", TotalGMV: -1}).Validate())
}
