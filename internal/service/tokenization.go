package service

import (
	"context"

	"github.com/dinematters/dinematters/internal/api/dto"
	"github.com/dinematters/dinematters/internal/domain/tokenization"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/integration/razorpay"
	rzpwebhook "github.com/dinematters/dinematters/internal/integration/razorpay/webhook"
	"github.com/dinematters/dinematters/internal/types"
)

// TokenizationService starts card-on-file setup charges. The captured
// webhook completes them asynchronously.
type TokenizationService interface {
	// StartTokenization creates an attempt and the small gateway order
	// the client checkout charges against.
	StartTokenization(ctx context.Context, restaurantID string, req *dto.StartTokenizationRequest) (*dto.StartTokenizationResponse, error)
}

type tokenizationService struct {
	ServiceParams
}

// NewTokenizationService creates a new tokenization service
func NewTokenizationService(params ServiceParams) TokenizationService {
	return &tokenizationService{ServiceParams: params}
}

func (s *tokenizationService) StartTokenization(ctx context.Context, restaurantID string, req *dto.StartTokenizationRequest) (*dto.StartTokenizationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rest, err := s.RestaurantRepo.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	if rest.Status != types.StatusActive {
		return nil, ierr.NewErrorf("restaurant %s is not active", restaurantID).
			WithHint("Tokenization is only available for active restaurants").
			Mark(ierr.ErrValidation)
	}

	attempt := &tokenization.Attempt{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TOKENIZATION_ATTEMPT),
		RestaurantID: rest.ID,
		AmountMinor:  req.AmountMinor,
		Status:       types.TokenizationStatusPending,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	if err := s.TokenizationRepo.Create(ctx, attempt); err != nil {
		return nil, err
	}

	order, err := s.Gateway.CreateOrder(ctx, &razorpay.CreateOrderRequest{
		AmountMinor: req.AmountMinor,
		Currency:    s.Config.Billing.Currency,
		Receipt:     attempt.ID,
		Notes: map[string]string{
			rzpwebhook.NoteKeyType:         rzpwebhook.NoteTypeTokenization,
			rzpwebhook.NoteKeyAttemptID:    attempt.ID,
			rzpwebhook.NoteKeyRestaurantID: rest.ID,
		},
	})
	if err != nil {
		return nil, err
	}

	attempt.GatewayOrderID = order.OrderID
	attempt.Status = types.TokenizationStatusCreated
	if err := s.TokenizationRepo.Update(ctx, attempt); err != nil {
		return nil, err
	}

	s.Logger.Infow("tokenization attempt started",
		"attempt_id", attempt.ID,
		"restaurant_id", rest.ID,
		"gateway_order_id", order.OrderID,
	)

	return &dto.StartTokenizationResponse{
		AttemptID:      attempt.ID,
		GatewayOrderID: order.OrderID,
		AmountMinor:    req.AmountMinor,
		Currency:       s.Config.Billing.Currency,
	}, nil
}
