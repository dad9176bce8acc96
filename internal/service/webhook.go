package service

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"

	"github.com/dinematters/dinematters/internal/api/dto"
	"github.com/dinematters/dinematters/internal/cache"
	"github.com/dinematters/dinematters/internal/domain/restaurant"
	"github.com/dinematters/dinematters/internal/domain/webhookevent"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/integration/razorpay"
	rzpwebhook "github.com/dinematters/dinematters/internal/integration/razorpay/webhook"
	"github.com/dinematters/dinematters/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WebhookService is the intake side of webhook processing: verify, dedup,
// persist, enqueue, acknowledge.
type WebhookService interface {
	// ReceiveWebhook handles one inbound delivery. Signature failures
	// reject before any persistence; duplicates acknowledge without
	// re-enqueueing.
	ReceiveWebhook(ctx context.Context, body []byte, signatureHeader string) (*dto.WebhookAckResponse, error)

	// ReclaimStuck republishes unprocessed events older than the
	// configured age. Safety net for enqueues lost after the row was
	// persisted.
	ReclaimStuck(ctx context.Context) (int, error)
}

type webhookService struct {
	ServiceParams
}

// NewWebhookService creates a new webhook intake service
func NewWebhookService(params ServiceParams) WebhookService {
	return &webhookService{ServiceParams: params}
}

func (s *webhookService) ReceiveWebhook(ctx context.Context, body []byte, signatureHeader string) (*dto.WebhookAckResponse, error) {
	var envelope rzpwebhook.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Webhook body is not valid JSON").
			Mark(ierr.ErrValidation)
	}

	secret, err := s.resolveSecret(ctx, &envelope)
	if err != nil {
		return nil, err
	}
	if err := razorpay.VerifyWebhookSignature(body, signatureHeader, secret); err != nil {
		return nil, err
	}

	if envelope.EventID == "" {
		return nil, ierr.NewError("webhook event id is missing").
			WithHint("Deliveries without an event id cannot be deduplicated").
			Mark(ierr.ErrValidation)
	}

	// Fast duplicate check before attempting the insert. The unique
	// constraint on event_id is what actually guarantees exactly one row
	// under concurrent redelivery.
	if existing, err := s.WebhookEventRepo.GetByEventID(ctx, envelope.EventID); err == nil && existing != nil {
		s.Logger.Infow("duplicate webhook delivery",
			"event_id", envelope.EventID,
			"event_type", existing.EventType,
		)
		return &dto.WebhookAckResponse{Success: true, Duplicate: true, EventID: envelope.EventID}, nil
	} else if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	event := &webhookevent.WebhookEvent{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventID:   envelope.EventID,
		EventType: types.ParseWebhookEventType(envelope.Event),
		Payload:   body,
		Processed: false,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}

	if err := s.WebhookEventRepo.Create(ctx, event); err != nil {
		if ierr.IsAlreadyExists(err) {
			return &dto.WebhookAckResponse{Success: true, Duplicate: true, EventID: envelope.EventID}, nil
		}
		return nil, err
	}

	if err := s.enqueue(ctx, event.ID); err != nil {
		// The row stays unprocessed and the reclaim sweep picks it up;
		// the gateway still gets a success response.
		s.Logger.Errorw("failed to enqueue webhook event after persisting",
			"event_id", envelope.EventID,
			"id", event.ID,
			"error", err,
		)
	}

	return &dto.WebhookAckResponse{Success: true, EventID: envelope.EventID}, nil
}

// resolveSecret picks the merchant webhook secret when the payload names
// the merchant, either through the top-level account id or through a
// restaurant_id note on the carried entity. Falls back to the site-wide
// default when neither resolves to a configured merchant secret.
func (s *webhookService) resolveSecret(ctx context.Context, envelope *rzpwebhook.Envelope) (string, error) {
	if envelope.AccountID != "" {
		secret, err := s.merchantSecret(ctx, "account:"+envelope.AccountID, func(ctx context.Context) (*restaurant.Restaurant, error) {
			return s.RestaurantRepo.GetByGatewayAccountID(ctx, envelope.AccountID)
		})
		if err != nil || secret != "" {
			return secret, err
		}
	}

	if restaurantID := envelope.Payload.RestaurantIDNote(); restaurantID != "" {
		secret, err := s.merchantSecret(ctx, "restaurant:"+restaurantID, func(ctx context.Context) (*restaurant.Restaurant, error) {
			return s.RestaurantRepo.Get(ctx, restaurantID)
		})
		if err != nil || secret != "" {
			return secret, err
		}
	}

	return s.Config.Razorpay.WebhookSecret, nil
}

// merchantSecret resolves and caches one merchant's webhook secret. An
// unknown merchant or an empty configured secret yields "" so the caller
// falls through the resolution chain.
func (s *webhookService) merchantSecret(ctx context.Context, key string, lookup func(ctx context.Context) (*restaurant.Restaurant, error)) (string, error) {
	cacheKey := "webhook_secret:" + key
	if cached, ok := cache.TypedGet[string](ctx, s.Cache, cacheKey); ok {
		return *cached, nil
	}

	rest, err := lookup(ctx)
	if err != nil {
		if ierr.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}

	secret := rest.MerchantWebhookSecret
	s.Cache.Set(ctx, cacheKey, &secret, cache.ExpiryWebhookSecret)
	return secret, nil
}

// enqueue publishes the event row id for async processing with bounded
// retry; publishing to the in-process queue should only fail on shutdown.
func (s *webhookService) enqueue(ctx context.Context, id string) error {
	msg := message.NewMessage(id, []byte(id))
	if requestID := types.GetRequestID(ctx); requestID != "" {
		msg.Metadata.Set("request_id", requestID)
	}

	policy := backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(),
		uint64(s.Config.Webhook.PublishMaxRetries),
	)
	return backoff.Retry(func() error {
		return s.PubSub.Publish(ctx, s.Config.Webhook.Topic, msg)
	}, backoff.WithContext(policy, ctx))
}

func (s *webhookService) ReclaimStuck(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(s.Config.Webhook.ReclaimAfterMin) * time.Minute)

	events, err := s.WebhookEventRepo.ListUnprocessed(ctx, cutoff, 100)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, event := range events {
		if err := s.enqueue(ctx, event.ID); err != nil {
			s.Logger.Errorw("failed to republish stuck webhook event",
				"id", event.ID,
				"event_id", event.EventID,
				"error", err,
			)
			continue
		}
		reclaimed++
	}

	if reclaimed > 0 {
		s.Logger.Infow("reclaimed stuck webhook events", "count", reclaimed)
	}
	return reclaimed, nil
}
