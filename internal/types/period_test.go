package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBillingPeriodFromTime(t *testing.T) {
	ts := time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, BillingPeriod("2025-03"), BillingPeriodFromTime(ts))
}

func TestPreviousBillingPeriod(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want BillingPeriod
	}{
		{
			name: "mid month",
			now:  time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
			want: "2025-02",
		},
		{
			name: "first of month",
			now:  time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
			want: "2025-02",
		},
		{
			name: "january rolls to previous year",
			now:  time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
			want: "2024-12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PreviousBillingPeriod(tt.now))
		})
	}
}

func TestBillingPeriodValidate(t *testing.T) {
	assert.NoError(t, BillingPeriod("2025-03").Validate())
	assert.Error(t, BillingPeriod("2025-13").Validate())
	assert.Error(t, BillingPeriod("march").Validate())
	assert.Error(t, BillingPeriod("").Validate())
}

func TestBillingPeriodBounds(t *testing.T) {
	start, end, err := BillingPeriod("2025-02").Bounds()
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestParseWebhookEventType(t *testing.T) {
	assert.Equal(t, WebhookEventPaymentCaptured, ParseWebhookEventType("payment.captured"))
	assert.Equal(t, WebhookEventRefundProcessed, ParseWebhookEventType("refund.processed"))
	assert.Equal(t, WebhookEventUnhandled, ParseWebhookEventType("order.paid"))
	assert.Equal(t, WebhookEventUnhandled, ParseWebhookEventType(""))
}
