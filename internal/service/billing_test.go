package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dinematters/dinematters/internal/domain/ledger"
	"github.com/dinematters/dinematters/internal/domain/order"
	"github.com/dinematters/dinematters/internal/domain/restaurant"
	"github.com/dinematters/dinematters/internal/testutil"
	"github.com/dinematters/dinematters/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	billing BillingService
	gateway *testutil.MockGateway
	ctx     context.Context
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.ctx = context.Background()
	s.gateway = testutil.NewMockGateway()
	s.billing = NewBillingService(ServiceParams{
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
	})
}

func (s *BillingServiceSuite) seedRestaurant(id string, withToken bool) *restaurant.Restaurant {
	r := &restaurant.Restaurant{
		ID:            id,
		Name:          "Spice Route",
		MandateStatus: types.MandateStatusNone,
		BillingStatus: types.BillingStatusActive,
		BaseModel:     types.GetDefaultBaseModel(s.ctx),
	}
	if withToken {
		r.GatewayCustomerID = "cust_1"
		r.GatewayTokenID = "token_1"
		r.MandateStatus = types.MandateStatusActive
	}
	s.Require().NoError(s.GetStores().RestaurantRepo.Seed(s.ctx, r))
	return r
}

func (s *BillingServiceSuite) TestEnsureLedgerCreatesOnce() {
	first, err := s.billing.EnsureLedger(s.ctx, "rest_1", "2025-02")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusPending, first.PaymentStatus)
	s.Equal(int64(0), first.TotalGMV)
	s.Equal(s.GetConfig().Billing.MinFee, first.FinalAmount)

	second, err := s.billing.EnsureLedger(s.ctx, "rest_1", "2025-02")
	s.NoError(err)
	s.Equal(first.ID, second.ID)
}

func (s *BillingServiceSuite) TestEnsureLedgerReturnsConcurrentWinner() {
	existing := &ledger.MonthlyBillingLedger{
		ID:            "mbl_winner",
		RestaurantID:  "rest_1",
		BillingPeriod: "2025-02",
		PaymentStatus: types.LedgerPaymentStatusPending,
		BaseModel:     types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().LedgerRepo.Create(s.ctx, existing))

	got, err := s.billing.EnsureLedger(s.ctx, "rest_1", "2025-02")
	s.NoError(err)
	s.Equal("mbl_winner", got.ID)
}

func (s *BillingServiceSuite) TestRecordOrderPaymentAccumulates() {
	capturedAt := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)

	s.NoError(s.billing.RecordOrderPayment(s.ctx, "rest_1", 15000000, capturedAt))
	s.NoError(s.billing.RecordOrderPayment(s.ctx, "rest_1", 5000000, capturedAt))

	l, err := s.GetStores().LedgerRepo.GetByPeriod(s.ctx, "rest_1", "2025-02")
	s.NoError(err)
	s.Equal(int64(20000000), l.TotalGMV)
	s.Equal(int64(200000), l.CalculatedFee)
	s.Equal(int64(200000), l.FinalAmount)
}

func (s *BillingServiceSuite) TestReverseRefundWithoutLedgerIsNoOp() {
	s.NoError(s.billing.ReverseRefund(s.ctx, "rest_1", 5000, time.Now().UTC()))
}

func (s *BillingServiceSuite) TestCreateLedgersForElapsedPeriod() {
	s.seedRestaurant("rest_1", true)
	s.seedRestaurant("rest_2", true)

	inPeriod := time.Date(2025, time.February, 15, 10, 0, 0, 0, time.UTC)
	outOfPeriod := time.Date(2025, time.March, 2, 10, 0, 0, 0, time.UTC)

	seedPaid := func(id, restaurantID string, total, refunded int64, paidAt time.Time, status types.PaymentStatus) {
		s.Require().NoError(s.GetStores().OrderRepo.Seed(s.ctx, &order.Order{
			ID:            id,
			RestaurantID:  restaurantID,
			TotalMinor:    total,
			RefundedMinor: refunded,
			PaymentStatus: status,
			OrderStatus:   types.OrderStatusConfirmed,
			PaidAt:        &paidAt,
			BaseModel:     types.GetDefaultBaseModel(s.ctx),
		}))
	}
	seedPaid("ord_1", "rest_1", 12000000, 0, inPeriod, types.PaymentStatusCompleted)
	seedPaid("ord_2", "rest_1", 10000000, 2000000, inPeriod, types.PaymentStatusPartiallyRefunded)
	seedPaid("ord_3", "rest_1", 7000000, 0, outOfPeriod, types.PaymentStatusCompleted)
	seedPaid("ord_4", "rest_2", 3000000, 0, inPeriod, types.PaymentStatusCompleted)

	now := time.Date(2025, time.March, 1, 0, 30, 0, 0, time.UTC)
	created, err := s.billing.CreateLedgersForElapsedPeriod(s.ctx, now)
	s.NoError(err)
	s.Equal(2, created)

	l1, err := s.GetStores().LedgerRepo.GetByPeriod(s.ctx, "rest_1", "2025-02")
	s.NoError(err)
	s.Equal(int64(20000000), l1.TotalGMV)
	s.Equal(int64(200000), l1.FinalAmount)

	l2, err := s.GetStores().LedgerRepo.GetByPeriod(s.ctx, "rest_2", "2025-02")
	s.NoError(err)
	s.Equal(int64(3000000), l2.TotalGMV)
	s.Equal(s.GetConfig().Billing.MinFee, l2.FinalAmount)
}

func (s *BillingServiceSuite) TestCreateLedgersIsIdempotent() {
	s.seedRestaurant("rest_1", true)
	now := time.Date(2025, time.March, 1, 0, 30, 0, 0, time.UTC)

	created, err := s.billing.CreateLedgersForElapsedPeriod(s.ctx, now)
	s.NoError(err)
	s.Equal(1, created)

	created, err = s.billing.CreateLedgersForElapsedPeriod(s.ctx, now)
	s.NoError(err)
	s.Equal(0, created)
}

func (s *BillingServiceSuite) chargeableLedger(id string) *ledger.MonthlyBillingLedger {
	l := &ledger.MonthlyBillingLedger{
		ID:            id,
		RestaurantID:  "rest_1",
		BillingPeriod: "2025-02",
		TotalGMV:      20000000,
		PaymentStatus: types.LedgerPaymentStatusPending,
		BaseModel:     types.GetDefaultBaseModel(s.ctx),
	}
	l.RecomputeFee(ledger.NewFeeSchedule(
		s.GetConfig().Billing.FeeRate,
		s.GetConfig().Billing.MinFee,
		s.GetConfig().Billing.MaxFee,
	))
	s.Require().NoError(s.GetStores().LedgerRepo.Create(s.ctx, l))
	return l
}

func (s *BillingServiceSuite) TestChargeLedgerSubmitsTokenCharge() {
	s.seedRestaurant("rest_1", true)
	l := s.chargeableLedger("mbl_1")

	s.NoError(s.billing.ChargeLedger(s.ctx, l))

	s.Len(s.gateway.ChargeCalls, 1)
	s.Equal(int64(200000), s.gateway.ChargeCalls[0].AmountMinor)
	s.Equal("cust_1", s.gateway.ChargeCalls[0].CustomerID)

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusPending, got.PaymentStatus)
	s.Equal(s.gateway.NextPaymentID, got.GatewayPaymentID)
	s.Nil(got.NextRetryAt)
}

func (s *BillingServiceSuite) TestChargeLedgerSkipsSettled() {
	s.seedRestaurant("rest_1", true)
	l := s.chargeableLedger("mbl_1")

	l.PaymentStatus = types.LedgerPaymentStatusPaid
	s.Require().NoError(s.GetStores().LedgerRepo.Update(s.ctx, l))

	s.NoError(s.billing.ChargeLedger(s.ctx, l))
	s.Empty(s.gateway.ChargeCalls)
}

func (s *BillingServiceSuite) TestChargeLedgerFailureSchedulesRetry() {
	s.seedRestaurant("rest_1", true)
	l := s.chargeableLedger("mbl_1")
	s.gateway.FailCharges = 1

	before := time.Now().UTC()
	s.NoError(s.billing.ChargeLedger(s.ctx, l))

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusRetry, got.PaymentStatus)
	s.Equal(1, got.RetryCount)
	s.Require().NotNil(got.NextRetryAt)
	s.WithinDuration(before.Add(2*time.Minute), *got.NextRetryAt, 5*time.Second)
}

func (s *BillingServiceSuite) TestChargeLedgerGivesUpAfterMaxRetries() {
	r := s.seedRestaurant("rest_1", true)
	l := s.chargeableLedger("mbl_1")

	next := time.Now().UTC().Add(-time.Minute)
	l.PaymentStatus = types.LedgerPaymentStatusRetry
	l.RetryCount = s.GetConfig().Billing.MaxRetryCount - 1
	l.NextRetryAt = &next
	s.Require().NoError(s.GetStores().LedgerRepo.Update(s.ctx, l))

	s.gateway.FailCharges = 1
	s.NoError(s.billing.ChargeLedger(s.ctx, l))

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusFailed, got.PaymentStatus)
	s.Equal(s.GetConfig().Billing.MaxRetryCount, got.RetryCount)
	s.Nil(got.NextRetryAt)

	rest, err := s.GetStores().RestaurantRepo.Get(s.ctx, r.ID)
	s.NoError(err)
	s.Equal(types.BillingStatusOverdue, rest.BillingStatus)
}

func (s *BillingServiceSuite) TestChargeLedgerWithoutTokenIssuesPaymentLink() {
	s.seedRestaurant("rest_1", false)
	l := s.chargeableLedger("mbl_1")

	s.NoError(s.billing.ChargeLedger(s.ctx, l))

	s.Empty(s.gateway.ChargeCalls)
	s.Len(s.gateway.PaymentLinkCalls, 1)
	s.Equal(int64(200000), s.gateway.PaymentLinkCalls[0].AmountMinor)

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(s.gateway.NextPaymentLinkID, got.PaymentLinkID)
	s.Equal(types.LedgerPaymentStatusPending, got.PaymentStatus)

	// A second attempt must not issue another link.
	s.NoError(s.billing.ChargeLedger(s.ctx, got))
	s.Len(s.gateway.PaymentLinkCalls, 1)
}
