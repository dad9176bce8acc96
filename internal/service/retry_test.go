package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dinematters/dinematters/internal/domain/ledger"
	"github.com/dinematters/dinematters/internal/domain/restaurant"
	"github.com/dinematters/dinematters/internal/testutil"
	"github.com/dinematters/dinematters/internal/types"
)

type RetryServiceSuite struct {
	testutil.BaseServiceTestSuite
	retry   RetryService
	gateway *testutil.MockGateway
	ctx     context.Context
}

func TestRetryService(t *testing.T) {
	suite.Run(t, new(RetryServiceSuite))
}

func (s *RetryServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.ctx = context.Background()
	s.gateway = testutil.NewMockGateway()

	params := ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		WebhookEventRepo: s.GetStores().WebhookEventRepo,
		OrderRepo:        s.GetStores().OrderRepo,
		RestaurantRepo:   s.GetStores().RestaurantRepo,
		LedgerRepo:       s.GetStores().LedgerRepo,
		TokenizationRepo: s.GetStores().TokenizationRepo,
		Gateway:          s.gateway,
		PubSub:           s.GetPubSub(),
		Cache:            s.GetCache(),
	}
	s.retry = NewRetryService(params, NewBillingService(params))
}

func (s *RetryServiceSuite) seedRestaurantWithToken(id string) {
	s.Require().NoError(s.GetStores().RestaurantRepo.Seed(s.ctx, &restaurant.Restaurant{
		ID:                id,
		Name:              "Spice Route",
		GatewayCustomerID: "cust_1",
		GatewayTokenID:    "token_1",
		MandateStatus:     types.MandateStatusActive,
		BillingStatus:     types.BillingStatusActive,
		BaseModel:         types.GetDefaultBaseModel(s.ctx),
	}))
}

func (s *RetryServiceSuite) seedRetryLedger(id string, retryCount int, nextRetryAt time.Time) {
	l := &ledger.MonthlyBillingLedger{
		ID:            id,
		RestaurantID:  "rest_1",
		BillingPeriod: "2025-02",
		TotalGMV:      20000000,
		PaymentStatus: types.LedgerPaymentStatusRetry,
		RetryCount:    retryCount,
		NextRetryAt:   &nextRetryAt,
		BaseModel:     types.GetDefaultBaseModel(s.ctx),
	}
	l.RecomputeFee(ledger.NewFeeSchedule(
		s.GetConfig().Billing.FeeRate,
		s.GetConfig().Billing.MinFee,
		s.GetConfig().Billing.MaxFee,
	))
	s.Require().NoError(s.GetStores().LedgerRepo.Create(s.ctx, l))
}

func (s *RetryServiceSuite) TestSweepSkipsLedgersNotYetDue() {
	s.seedRestaurantWithToken("rest_1")
	s.seedRetryLedger("mbl_1", 1, time.Now().UTC().Add(time.Hour))

	attempted, err := s.retry.SweepDueRetries(s.ctx, time.Now().UTC())
	s.NoError(err)
	s.Equal(0, attempted)
	s.Empty(s.gateway.ChargeCalls)
}

func (s *RetryServiceSuite) TestSweepRetriesUntilChargeSucceeds() {
	s.seedRestaurantWithToken("rest_1")
	s.seedRetryLedger("mbl_1", 1, time.Now().UTC().Add(-time.Minute))

	// First sweep hits a declining gateway: backoff doubles.
	s.gateway.FailCharges = 1
	before := time.Now().UTC()
	attempted, err := s.retry.SweepDueRetries(s.ctx, time.Now().UTC())
	s.NoError(err)
	s.Equal(1, attempted)

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusRetry, got.PaymentStatus)
	s.Equal(2, got.RetryCount)
	s.Require().NotNil(got.NextRetryAt)
	s.WithinDuration(before.Add(4*time.Minute), *got.NextRetryAt, 5*time.Second)

	// Second sweep past the scheduled time succeeds and parks the ledger
	// pending until the webhook confirms.
	attempted, err = s.retry.SweepDueRetries(s.ctx, got.NextRetryAt.Add(time.Second))
	s.NoError(err)
	s.Equal(1, attempted)

	got, err = s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusPending, got.PaymentStatus)
	s.Equal(s.gateway.NextPaymentID, got.GatewayPaymentID)
	s.Nil(got.NextRetryAt)
	s.Len(s.gateway.ChargeCalls, 2)
}

func (s *RetryServiceSuite) TestSweepAbandonsLedgerAfterMaxRetries() {
	s.seedRestaurantWithToken("rest_1")
	s.seedRetryLedger("mbl_1", s.GetConfig().Billing.MaxRetryCount-1, time.Now().UTC().Add(-time.Minute))
	s.gateway.FailCharges = 1

	attempted, err := s.retry.SweepDueRetries(s.ctx, time.Now().UTC())
	s.NoError(err)
	s.Equal(1, attempted)

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusFailed, got.PaymentStatus)
	s.Nil(got.NextRetryAt)

	rest, err := s.GetStores().RestaurantRepo.Get(s.ctx, "rest_1")
	s.NoError(err)
	s.Equal(types.BillingStatusOverdue, rest.BillingStatus)
}

func (s *RetryServiceSuite) TestSweepReloadsStateBeforeCharging() {
	s.seedRestaurantWithToken("rest_1")
	s.seedRetryLedger("mbl_1", 1, time.Now().UTC().Add(-time.Minute))

	// Settle between listing and charging: the sweep must notice.
	due, err := s.GetStores().LedgerRepo.ListDueRetries(s.ctx, time.Now().UTC(), 10)
	s.Require().NoError(err)
	s.Require().Len(due, 1)

	settled := due[0]
	now := time.Now().UTC()
	settled.PaymentStatus = types.LedgerPaymentStatusPaid
	settled.PaidAt = &now
	settled.NextRetryAt = nil
	s.Require().NoError(s.GetStores().LedgerRepo.Update(s.ctx, settled))

	_, err = s.retry.SweepDueRetries(s.ctx, time.Now().UTC())
	s.NoError(err)
	s.Empty(s.gateway.ChargeCalls)
}
