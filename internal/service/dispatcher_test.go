package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/dinematters/dinematters/internal/domain/ledger"
	"github.com/dinematters/dinematters/internal/domain/order"
	"github.com/dinematters/dinematters/internal/domain/restaurant"
	"github.com/dinematters/dinematters/internal/domain/tokenization"
	"github.com/dinematters/dinematters/internal/domain/webhookevent"
	"github.com/dinematters/dinematters/internal/testutil"
	"github.com/dinematters/dinematters/internal/types"
)

type DispatcherServiceSuite struct {
	testutil.BaseServiceTestSuite
	dispatcher DispatcherService
	ctx        context.Context
	eventSeq   int
}

func TestDispatcherService(t *testing.T) {
	suite.Run(t, new(DispatcherServiceSuite))
}

func (s *DispatcherServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.ctx = context.Background()
	s.eventSeq = 0

	params := ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		WebhookEventRepo: s.GetStores().WebhookEventRepo,
		OrderRepo:        s.GetStores().OrderRepo,
		RestaurantRepo:   s.GetStores().RestaurantRepo,
		LedgerRepo:       s.GetStores().LedgerRepo,
		TokenizationRepo: s.GetStores().TokenizationRepo,
		Gateway:          testutil.NewMockGateway(),
		PubSub:           s.GetPubSub(),
		Cache:            s.GetCache(),
	}
	s.dispatcher = NewDispatcherService(params, NewBillingService(params))
}

// enqueueEvent persists an event row the way the intake service would and
// returns its row id.
func (s *DispatcherServiceSuite) enqueueEvent(rawEvent string, payloadBody string) string {
	s.eventSeq++
	event := &webhookevent.WebhookEvent{
		ID:        fmt.Sprintf("evt_row_%03d", s.eventSeq),
		EventID:   fmt.Sprintf("evt_gw_%03d", s.eventSeq),
		EventType: types.ParseWebhookEventType(rawEvent),
		Payload:   []byte(fmt.Sprintf(`{"event":%q,"event_id":"evt_gw_%03d","payload":%s}`, rawEvent, s.eventSeq, payloadBody)),
		BaseModel: types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().WebhookEventRepo.Create(s.ctx, event))
	return event.ID
}

func (s *DispatcherServiceSuite) seedRestaurant(id string) *restaurant.Restaurant {
	r := &restaurant.Restaurant{
		ID:            id,
		Name:          "Spice Route",
		MandateStatus: types.MandateStatusNone,
		BillingStatus: types.BillingStatusActive,
		BaseModel:     types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().RestaurantRepo.Seed(s.ctx, r))
	return r
}

func (s *DispatcherServiceSuite) seedOrder(id, restaurantID, gatewayOrderID string, totalMinor int64) *order.Order {
	o := &order.Order{
		ID:             id,
		RestaurantID:   restaurantID,
		TotalMinor:     totalMinor,
		PaymentStatus:  types.PaymentStatusPending,
		OrderStatus:    types.OrderStatusPending,
		GatewayOrderID: gatewayOrderID,
		BaseModel:      types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().OrderRepo.Seed(s.ctx, o))
	return o
}

func (s *DispatcherServiceSuite) TestPaymentCapturedCompletesOrderAndAccruesGMV() {
	s.seedRestaurant("rest_1")
	s.seedOrder("ord_1", "rest_1", "order_gw_1", 250000)

	id := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_gw_1","amount":250000,"status":"captured"}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	o, err := s.GetStores().OrderRepo.Get(s.ctx, "ord_1")
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, o.PaymentStatus)
	s.Equal(types.OrderStatusConfirmed, o.OrderStatus)
	s.Equal("pay_1", o.GatewayPaymentID)
	s.NotNil(o.PaidAt)

	period := types.BillingPeriodFromTime(*o.PaidAt)
	l, err := s.GetStores().LedgerRepo.GetByPeriod(s.ctx, "rest_1", period)
	s.NoError(err)
	s.Equal(int64(250000), l.TotalGMV)

	event, err := s.GetStores().WebhookEventRepo.Get(s.ctx, id)
	s.NoError(err)
	s.True(event.Processed)
	s.Contains(event.ProcessingResult, `"ok"`)
}

func (s *DispatcherServiceSuite) TestProcessedEventIsNoOpOnRedelivery() {
	s.seedRestaurant("rest_1")
	o := s.seedOrder("ord_1", "rest_1", "order_gw_1", 100000)

	id := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_gw_1","amount":100000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	paid, err := s.GetStores().OrderRepo.Get(s.ctx, o.ID)
	s.NoError(err)
	l, err := s.GetStores().LedgerRepo.GetByPeriod(s.ctx, "rest_1", types.BillingPeriodFromTime(*paid.PaidAt))
	s.NoError(err)
	s.Equal(int64(100000), l.TotalGMV, "redelivery must not double count")
}

func (s *DispatcherServiceSuite) TestDuplicateCaptureForSettledOrderDoesNotDoubleCount() {
	s.seedRestaurant("rest_1")
	s.seedOrder("ord_1", "rest_1", "order_gw_1", 100000)

	first := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_gw_1","amount":100000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, first))

	// Same capture delivered under a fresh gateway event id.
	second := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_gw_1","amount":100000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, second))

	o, err := s.GetStores().OrderRepo.Get(s.ctx, "ord_1")
	s.NoError(err)
	l, err := s.GetStores().LedgerRepo.GetByPeriod(s.ctx, "rest_1", types.BillingPeriodFromTime(*o.PaidAt))
	s.NoError(err)
	s.Equal(int64(100000), l.TotalGMV)

	event, err := s.GetStores().WebhookEventRepo.Get(s.ctx, second)
	s.NoError(err)
	s.True(event.Processed)
	s.Contains(event.ProcessingResult, "already settled")
}

func (s *DispatcherServiceSuite) TestCaptureForUnknownOrderIsRecordedNoOp() {
	id := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_missing","amount":100000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	event, err := s.GetStores().WebhookEventRepo.Get(s.ctx, id)
	s.NoError(err)
	s.True(event.Processed)
	s.Contains(event.ProcessingResult, "unknown order")
}

func (s *DispatcherServiceSuite) TestFullRefundReversesLedgerAndCancelsOrder() {
	s.seedRestaurant("rest_1")
	s.seedOrder("ord_1", "rest_1", "order_gw_1", 80000)

	capture := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_gw_1","amount":80000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, capture))

	refund := s.enqueueEvent("refund.processed",
		`{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":80000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, refund))

	o, err := s.GetStores().OrderRepo.Get(s.ctx, "ord_1")
	s.NoError(err)
	s.Equal(types.PaymentStatusRefunded, o.PaymentStatus)
	s.Equal(types.OrderStatusCancelled, o.OrderStatus)
	s.Equal(int64(80000), o.RefundedMinor)

	l, err := s.GetStores().LedgerRepo.GetByPeriod(s.ctx, "rest_1", types.BillingPeriodFromTime(*o.PaidAt))
	s.NoError(err)
	s.Equal(int64(0), l.TotalGMV)
}

func (s *DispatcherServiceSuite) TestPartialRefundKeepsOrderPartiallyRefunded() {
	s.seedRestaurant("rest_1")
	s.seedOrder("ord_1", "rest_1", "order_gw_1", 80000)

	capture := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_gw_1","amount":80000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, capture))

	refund := s.enqueueEvent("refund.processed",
		`{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":30000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, refund))

	o, err := s.GetStores().OrderRepo.Get(s.ctx, "ord_1")
	s.NoError(err)
	s.Equal(types.PaymentStatusPartiallyRefunded, o.PaymentStatus)
	s.Equal(int64(30000), o.RefundedMinor)

	l, err := s.GetStores().LedgerRepo.GetByPeriod(s.ctx, "rest_1", types.BillingPeriodFromTime(*o.PaidAt))
	s.NoError(err)
	s.Equal(int64(50000), l.TotalGMV)
}

func (s *DispatcherServiceSuite) TestRefundExceedingTotalClampsToTotal() {
	s.seedRestaurant("rest_1")
	s.seedOrder("ord_1", "rest_1", "order_gw_1", 80000)

	capture := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_gw_1","amount":80000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, capture))

	refund := s.enqueueEvent("refund.processed",
		`{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":120000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, refund))

	o, err := s.GetStores().OrderRepo.Get(s.ctx, "ord_1")
	s.NoError(err)
	s.Equal(int64(80000), o.RefundedMinor)
	s.Equal(types.PaymentStatusRefunded, o.PaymentStatus)
}

func (s *DispatcherServiceSuite) TestRefundAfterFullRefundIsNoOp() {
	s.seedRestaurant("rest_1")
	s.seedOrder("ord_1", "rest_1", "order_gw_1", 80000)

	capture := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_gw_1","amount":80000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, capture))
	refund := s.enqueueEvent("refund.processed",
		`{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":80000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, refund))

	again := s.enqueueEvent("refund.processed",
		`{"refund":{"entity":{"id":"rfnd_2","payment_id":"pay_1","amount":80000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, again))

	o, err := s.GetStores().OrderRepo.Get(s.ctx, "ord_1")
	s.NoError(err)
	s.Equal(int64(80000), o.RefundedMinor)
}

func (s *DispatcherServiceSuite) TestPartialRefundRetryAfterCrashAppliesOnce() {
	s.seedRestaurant("rest_1")
	s.seedOrder("ord_1", "rest_1", "order_gw_1", 80000)

	capture := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_1","order_id":"order_gw_1","amount":80000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, capture))

	refund := s.enqueueEvent("refund.processed",
		`{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":30000}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, refund))

	// Crash window: the refund was applied but the worker died before the
	// event row was marked processed, so the redelivery reprocesses it.
	event, err := s.GetStores().WebhookEventRepo.Get(s.ctx, refund)
	s.Require().NoError(err)
	event.Processed = false
	event.ProcessingResult = ""
	s.Require().NoError(s.GetStores().WebhookEventRepo.InMemoryStore.Update(s.ctx, event.ID, event))

	s.NoError(s.dispatcher.ProcessEvent(s.ctx, refund))

	o, err := s.GetStores().OrderRepo.Get(s.ctx, "ord_1")
	s.NoError(err)
	s.Equal(int64(30000), o.RefundedMinor, "same refund id must not debit twice")
	s.Equal(types.PaymentStatusPartiallyRefunded, o.PaymentStatus)

	l, err := s.GetStores().LedgerRepo.GetByPeriod(s.ctx, "rest_1", types.BillingPeriodFromTime(*o.PaidAt))
	s.NoError(err)
	s.Equal(int64(50000), l.TotalGMV)

	event, err = s.GetStores().WebhookEventRepo.Get(s.ctx, refund)
	s.NoError(err)
	s.True(event.Processed)
	s.Contains(event.ProcessingResult, "already applied")
}

func (s *DispatcherServiceSuite) TestTokenizationCaptureActivatesMandate() {
	s.seedRestaurant("rest_1")
	attempt := &tokenization.Attempt{
		ID:             "tok_1",
		RestaurantID:   "rest_1",
		AmountMinor:    500,
		Status:         types.TokenizationStatusCreated,
		GatewayOrderID: "order_tok_1",
		BaseModel:      types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().TokenizationRepo.Create(s.ctx, attempt))

	id := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_tok_1","order_id":"order_tok_1","amount":500,"customer_id":"cust_1","token_id":"token_1","notes":{"type":"tokenization","attempt_id":"tok_1","restaurant_id":"rest_1"}}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	got, err := s.GetStores().TokenizationRepo.Get(s.ctx, "tok_1")
	s.NoError(err)
	s.Equal(types.TokenizationStatusCaptured, got.Status)
	s.True(got.Processed)
	s.Equal("cust_1", got.CustomerID)
	s.Equal("token_1", got.TokenID)

	rest, err := s.GetStores().RestaurantRepo.Get(s.ctx, "rest_1")
	s.NoError(err)
	s.Equal(types.MandateStatusActive, rest.MandateStatus)
	s.Equal("cust_1", rest.GatewayCustomerID)
	s.Equal("token_1", rest.GatewayTokenID)
}

func (s *DispatcherServiceSuite) TestTokenizationRedeliveryNeverOverwritesCredentials() {
	s.seedRestaurant("rest_1")
	attempt := &tokenization.Attempt{
		ID:             "tok_1",
		RestaurantID:   "rest_1",
		AmountMinor:    500,
		Status:         types.TokenizationStatusCreated,
		GatewayOrderID: "order_tok_1",
		BaseModel:      types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().TokenizationRepo.Create(s.ctx, attempt))

	first := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_tok_1","order_id":"order_tok_1","amount":500,"customer_id":"cust_1","token_id":"token_1","notes":{"type":"tokenization","attempt_id":"tok_1"}}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, first))

	// Redelivery with different entity ids must not rewrite anything.
	second := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_tok_2","order_id":"order_tok_1","amount":500,"customer_id":"cust_other","token_id":"token_other","notes":{"type":"tokenization","attempt_id":"tok_1"}}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, second))

	rest, err := s.GetStores().RestaurantRepo.Get(s.ctx, "rest_1")
	s.NoError(err)
	s.Equal("cust_1", rest.GatewayCustomerID)
	s.Equal("token_1", rest.GatewayTokenID)
}

func (s *DispatcherServiceSuite) TestPaymentLinkPaidSettlesLedger() {
	s.seedRestaurant("rest_1")
	l := &ledger.MonthlyBillingLedger{
		ID:            "mbl_1",
		RestaurantID:  "rest_1",
		BillingPeriod: "2025-02",
		TotalGMV:      20000000,
		PaymentStatus: types.LedgerPaymentStatusPending,
		PaymentLinkID: "plink_1",
		BaseModel:     types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().LedgerRepo.Create(s.ctx, l))

	id := s.enqueueEvent("payment_link.paid",
		`{"payment_link":{"entity":{"id":"plink_1","status":"paid"}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusPaid, got.PaymentStatus)
	s.NotNil(got.PaidAt)
	s.Nil(got.NextRetryAt)
}

func (s *DispatcherServiceSuite) TestLedgerCaptureRestoresOverdueRestaurant() {
	r := s.seedRestaurant("rest_1")
	r.BillingStatus = types.BillingStatusOverdue
	s.Require().NoError(s.GetStores().RestaurantRepo.Update(s.ctx, r))

	l := &ledger.MonthlyBillingLedger{
		ID:               "mbl_1",
		RestaurantID:     "rest_1",
		BillingPeriod:    "2025-02",
		PaymentStatus:    types.LedgerPaymentStatusRetry,
		GatewayPaymentID: "pay_fee_1",
		BaseModel:        types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().LedgerRepo.Create(s.ctx, l))

	id := s.enqueueEvent("payment.captured",
		`{"payment":{"entity":{"id":"pay_fee_1","order_id":"","amount":99900}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusPaid, got.PaymentStatus)

	rest, err := s.GetStores().RestaurantRepo.Get(s.ctx, "rest_1")
	s.NoError(err)
	s.Equal(types.BillingStatusActive, rest.BillingStatus)
}

func (s *DispatcherServiceSuite) TestPaymentFailedMarksLedgerAndRestaurantOverdue() {
	s.seedRestaurant("rest_1")
	l := &ledger.MonthlyBillingLedger{
		ID:               "mbl_1",
		RestaurantID:     "rest_1",
		BillingPeriod:    "2025-02",
		PaymentStatus:    types.LedgerPaymentStatusPending,
		GatewayPaymentID: "pay_fee_1",
		BaseModel:        types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().LedgerRepo.Create(s.ctx, l))

	id := s.enqueueEvent("payment.failed",
		`{"payment":{"entity":{"id":"pay_fee_1","order_id":"","error_code":"BAD_REQUEST_ERROR"}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusFailed, got.PaymentStatus)

	rest, err := s.GetStores().RestaurantRepo.Get(s.ctx, "rest_1")
	s.NoError(err)
	s.Equal(types.BillingStatusOverdue, rest.BillingStatus)
}

func (s *DispatcherServiceSuite) TestStaleFailureAfterCaptureIsIgnored() {
	s.seedRestaurant("rest_1")
	paidAt := time.Now().UTC()
	l := &ledger.MonthlyBillingLedger{
		ID:               "mbl_1",
		RestaurantID:     "rest_1",
		BillingPeriod:    "2025-02",
		PaymentStatus:    types.LedgerPaymentStatusPaid,
		GatewayPaymentID: "pay_fee_1",
		PaidAt:           &paidAt,
		BaseModel:        types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().LedgerRepo.Create(s.ctx, l))

	id := s.enqueueEvent("payment.failed",
		`{"payment":{"entity":{"id":"pay_fee_1","order_id":""}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	got, err := s.GetStores().LedgerRepo.Get(s.ctx, "mbl_1")
	s.NoError(err)
	s.Equal(types.LedgerPaymentStatusPaid, got.PaymentStatus)

	rest, err := s.GetStores().RestaurantRepo.Get(s.ctx, "rest_1")
	s.NoError(err)
	s.Equal(types.BillingStatusActive, rest.BillingStatus)
}

func (s *DispatcherServiceSuite) TestPaymentFailedForTokenizationAttempt() {
	s.seedRestaurant("rest_1")
	attempt := &tokenization.Attempt{
		ID:             "tok_1",
		RestaurantID:   "rest_1",
		AmountMinor:    500,
		Status:         types.TokenizationStatusCreated,
		GatewayOrderID: "order_tok_1",
		BaseModel:      types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().TokenizationRepo.Create(s.ctx, attempt))

	id := s.enqueueEvent("payment.failed",
		`{"payment":{"entity":{"id":"pay_tok_1","order_id":"order_tok_1","error_code":"BAD_REQUEST_ERROR"}}}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	got, err := s.GetStores().TokenizationRepo.Get(s.ctx, "tok_1")
	s.NoError(err)
	s.Equal(types.TokenizationStatusFailed, got.Status)
}

func (s *DispatcherServiceSuite) TestUnhandledEventTypeIsRecordedIgnored() {
	id := s.enqueueEvent("order.paid", `{}`)
	s.NoError(s.dispatcher.ProcessEvent(s.ctx, id))

	event, err := s.GetStores().WebhookEventRepo.Get(s.ctx, id)
	s.NoError(err)
	s.True(event.Processed)
	s.Contains(event.ProcessingResult, "ignored")
}

func (s *DispatcherServiceSuite) TestMalformedPayloadIsTerminal() {
	event := &webhookevent.WebhookEvent{
		ID:        "evt_row_bad",
		EventID:   "evt_gw_bad",
		EventType: types.WebhookEventPaymentCaptured,
		Payload:   []byte(`{broken`),
		BaseModel: types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.GetStores().WebhookEventRepo.Create(s.ctx, event))

	s.NoError(s.dispatcher.ProcessEvent(s.ctx, event.ID))

	got, err := s.GetStores().WebhookEventRepo.Get(s.ctx, event.ID)
	s.NoError(err)
	s.True(got.Processed)
	s.Contains(got.ProcessingResult, "malformed payload")
}
