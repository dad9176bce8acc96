package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dinematters/dinematters/internal/api/dto"
	"github.com/dinematters/dinematters/internal/domain/restaurant"
	ierr "github.com/dinematters/dinematters/internal/errors"
	rzpwebhook "github.com/dinematters/dinematters/internal/integration/razorpay/webhook"
	"github.com/dinematters/dinematters/internal/testutil"
	"github.com/dinematters/dinematters/internal/types"
)

type TokenizationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service TokenizationService
	gateway *testutil.MockGateway
	ctx     context.Context
}

func TestTokenizationService(t *testing.T) {
	suite.Run(t, new(TokenizationServiceSuite))
}

func (s *TokenizationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.ctx = context.Background()
	s.gateway = testutil.NewMockGateway()
	s.service = NewTokenizationService(ServiceParams{
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

func (s *TokenizationServiceSuite) TestStartTokenization() {
	s.Require().NoError(s.GetStores().RestaurantRepo.Seed(s.ctx, &restaurant.Restaurant{
		ID:            "rest_1",
		Name:          "Spice Route",
		MandateStatus: types.MandateStatusNone,
		BillingStatus: types.BillingStatusActive,
		BaseModel:     types.GetDefaultBaseModel(s.ctx),
	}))

	resp, err := s.service.StartTokenization(s.ctx, "rest_1", &dto.StartTokenizationRequest{AmountMinor: 500})
	s.NoError(err)
	s.Equal(s.gateway.NextOrderID, resp.GatewayOrderID)
	s.Equal(int64(500), resp.AmountMinor)

	attempt, err := s.GetStores().TokenizationRepo.Get(s.ctx, resp.AttemptID)
	s.NoError(err)
	s.Equal(types.TokenizationStatusCreated, attempt.Status)
	s.Equal(s.gateway.NextOrderID, attempt.GatewayOrderID)
	s.False(attempt.Processed)

	// Gateway notes must carry enough to route the capture webhook back.
	s.Require().Len(s.gateway.OrderCalls, 1)
	notes := s.gateway.OrderCalls[0].Notes
	s.Equal(rzpwebhook.NoteTypeTokenization, notes[rzpwebhook.NoteKeyType])
	s.Equal(resp.AttemptID, notes[rzpwebhook.NoteKeyAttemptID])
	s.Equal("rest_1", notes[rzpwebhook.NoteKeyRestaurantID])
}

func (s *TokenizationServiceSuite) TestStartTokenizationUnknownRestaurant() {
	_, err := s.service.StartTokenization(s.ctx, "rest_missing", &dto.StartTokenizationRequest{AmountMinor: 500})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *TokenizationServiceSuite) TestStartTokenizationInvalidAmount() {
	_, err := s.service.StartTokenization(s.ctx, "rest_1", &dto.StartTokenizationRequest{AmountMinor: 0})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *TokenizationServiceSuite) TestStartTokenizationInactiveRestaurant() {
	r := &restaurant.Restaurant{
		ID:            "rest_1",
		Name:          "Closed Kitchen",
		MandateStatus: types.MandateStatusNone,
		BillingStatus: types.BillingStatusActive,
		BaseModel:     types.GetDefaultBaseModel(s.ctx),
	}
	r.Status = types.StatusArchived
	s.Require().NoError(s.GetStores().RestaurantRepo.Seed(s.ctx, r))

	_, err := s.service.StartTokenization(s.ctx, "rest_1", &dto.StartTokenizationRequest{AmountMinor: 500})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}
