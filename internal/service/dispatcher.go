package service

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/dinematters/dinematters/internal/config"
	"github.com/dinematters/dinematters/internal/domain/tokenization"
	"github.com/dinematters/dinematters/internal/domain/webhookevent"
	ierr "github.com/dinematters/dinematters/internal/errors"
	rzpwebhook "github.com/dinematters/dinematters/internal/integration/razorpay/webhook"
	pubsubRouter "github.com/dinematters/dinematters/internal/pubsub/router"
	"github.com/dinematters/dinematters/internal/types"
)

// DispatcherService consumes queued webhook events, routes them by type to
// the matching handler and records a terminal outcome exactly once.
type DispatcherService interface {
	// RegisterHandler attaches the dispatcher to the webhook topic
	RegisterHandler(router *pubsubRouter.Router, cfg *config.Configuration)

	// ProcessEvent runs one event end to end. Safe to call repeatedly
	// for the same id; a processed event is a no-op.
	ProcessEvent(ctx context.Context, id string) error
}

type dispatcherService struct {
	ServiceParams
	billing BillingService
}

// NewDispatcherService creates a new dispatcher service
func NewDispatcherService(params ServiceParams, billing BillingService) DispatcherService {
	return &dispatcherService{ServiceParams: params, billing: billing}
}

func (s *dispatcherService) RegisterHandler(router *pubsubRouter.Router, cfg *config.Configuration) {
	throttle := middleware.NewThrottle(int64(cfg.Webhook.RateLimitPerSec), time.Second)

	router.AddNoPublishHandler(
		"webhook_event_dispatcher",
		cfg.Webhook.Topic,
		s.PubSub,
		s.processMessage,
		throttle.Middleware,
	)

	s.Logger.Infow("registered webhook event dispatcher",
		"topic", cfg.Webhook.Topic,
		"rate_limit", cfg.Webhook.RateLimitPerSec,
	)
}

func (s *dispatcherService) processMessage(msg *message.Message) error {
	ctx := msg.Context()
	id := string(msg.Payload)

	s.Logger.Debugw("processing webhook event from queue",
		"message_uuid", msg.UUID,
		"id", id,
	)
	return s.ProcessEvent(ctx, id)
}

// processingResult is the serialized outcome stored on the event row.
type processingResult struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *dispatcherService) ProcessEvent(ctx context.Context, id string) error {
	event, err := s.WebhookEventRepo.Get(ctx, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Logger.Errorw("queued webhook event not found", "id", id)
			return nil
		}
		return err
	}

	if event.Processed {
		return nil
	}

	var envelope rzpwebhook.Envelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		// The payload passed signature verification, so a decode failure
		// is permanent; retrying cannot help.
		return s.finish(ctx, event, processingResult{Status: "error", Detail: "malformed payload: " + err.Error()})
	}

	result, err := s.dispatch(ctx, event, &envelope)
	if err != nil {
		if ierr.IsNotFound(err) {
			// The referenced entity will never appear; record the miss
			// and stop redelivering.
			return s.finish(ctx, event, processingResult{Status: "error", Detail: ierr.Hint(err) + ": " + err.Error()})
		}
		// Transient failure: leave processed=false so the retry
		// middleware or the reclaim sweep runs the handler again.
		s.Logger.Errorw("webhook handler failed",
			"id", event.ID,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err,
		)
		return err
	}

	return s.finish(ctx, event, result)
}

// finish records the outcome and flips processed. This is the terminal
// step so a crash anywhere earlier leaves the event safe to reprocess.
func (s *dispatcherService) finish(ctx context.Context, event *webhookevent.WebhookEvent, result processingResult) error {
	serialized, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := s.WebhookEventRepo.MarkProcessed(ctx, event.ID, string(serialized)); err != nil {
		return err
	}

	s.Logger.Infow("webhook event processed",
		"id", event.ID,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"result", result.Status,
	)
	return nil
}

func (s *dispatcherService) dispatch(ctx context.Context, event *webhookevent.WebhookEvent, envelope *rzpwebhook.Envelope) (processingResult, error) {
	switch event.EventType {
	case types.WebhookEventPaymentCaptured:
		return s.handlePaymentCaptured(ctx, envelope)
	case types.WebhookEventRefundProcessed:
		return s.handleRefundProcessed(ctx, envelope)
	case types.WebhookEventPaymentLinkPaid:
		return s.handlePaymentLinkPaid(ctx, envelope)
	case types.WebhookEventPaymentFailed:
		return s.handlePaymentFailed(ctx, envelope)
	default:
		s.Logger.Infow("unhandled webhook event type",
			"event_id", event.EventID,
			"raw_event", envelope.Event,
		)
		return processingResult{Status: "ignored", Detail: "unhandled event type " + envelope.Event}, nil
	}
}

func (s *dispatcherService) handlePaymentCaptured(ctx context.Context, envelope *rzpwebhook.Envelope) (processingResult, error) {
	if envelope.Payload.Payment == nil {
		return processingResult{Status: "error", Detail: "payment entity missing"}, nil
	}
	pay := envelope.Payload.Payment.Entity

	// Tokenization setup charges are flagged through gateway notes and
	// never touch order history.
	if pay.Notes[rzpwebhook.NoteKeyType] == rzpwebhook.NoteTypeTokenization ||
		pay.Notes[rzpwebhook.NoteKeyAttemptID] != "" {
		return s.applyTokenizationCapture(ctx, &pay)
	}

	// A ledger holding this payment id means this capture settles a
	// recurring platform-fee charge.
	if l, err := s.LedgerRepo.GetByGatewayPaymentID(ctx, pay.ID); err == nil {
		return s.settleLedger(ctx, l.ID)
	} else if !ierr.IsNotFound(err) {
		return processingResult{}, err
	}

	// Ordinary customer payment for an order.
	o, err := s.OrderRepo.GetByGatewayOrderID(ctx, pay.OrderID)
	if err != nil {
		if ierr.IsNotFound(err) {
			// Unknown order: log and record, never fabricate state.
			s.Logger.Warnw("captured payment references unknown order",
				"gateway_order_id", pay.OrderID,
				"payment_id", pay.ID,
			)
			return processingResult{Status: "error", Detail: "unknown order " + pay.OrderID}, nil
		}
		return processingResult{}, err
	}

	if o.PaymentStatus.IsSettled() {
		return processingResult{Status: "ok", Detail: "order already settled"}, nil
	}

	now := time.Now().UTC()
	o.GatewayPaymentID = pay.ID
	o.TransactionID = pay.ID
	o.PaymentStatus = types.PaymentStatusCompleted
	o.OrderStatus = types.OrderStatusConfirmed
	o.PaidAt = &now
	if err := s.OrderRepo.Update(ctx, o); err != nil {
		return processingResult{}, err
	}

	if err := s.billing.RecordOrderPayment(ctx, o.RestaurantID, o.TotalMinor, now); err != nil {
		return processingResult{}, err
	}

	return processingResult{Status: "ok", Detail: "order " + o.ID + " completed"}, nil
}

func (s *dispatcherService) applyTokenizationCapture(ctx context.Context, pay *rzpwebhook.PaymentEntity) (processingResult, error) {
	attempt, err := s.resolveAttempt(ctx, pay)
	if err != nil {
		if ierr.IsNotFound(err) {
			return processingResult{Status: "error", Detail: "unknown tokenization attempt"}, nil
		}
		return processingResult{}, err
	}

	if attempt.Processed {
		return processingResult{Status: "ok", Detail: "tokenization already captured"}, nil
	}

	attempt.Capture(pay.ID, pay.CustomerID, pay.TokenID)
	if err := s.TokenizationRepo.Update(ctx, attempt); err != nil {
		return processingResult{}, err
	}

	rest, err := s.RestaurantRepo.Get(ctx, attempt.RestaurantID)
	if err != nil {
		return processingResult{}, err
	}
	rest.ActivateMandate(attempt.CustomerID, attempt.TokenID)
	if err := s.RestaurantRepo.Update(ctx, rest); err != nil {
		return processingResult{}, err
	}

	return processingResult{Status: "ok", Detail: "tokenization captured for " + attempt.RestaurantID}, nil
}

func (s *dispatcherService) resolveAttempt(ctx context.Context, pay *rzpwebhook.PaymentEntity) (*tokenization.Attempt, error) {
	if attemptID := pay.Notes[rzpwebhook.NoteKeyAttemptID]; attemptID != "" {
		if attempt, err := s.TokenizationRepo.Get(ctx, attemptID); err == nil {
			return attempt, nil
		} else if !ierr.IsNotFound(err) {
			return nil, err
		}
	}
	return s.TokenizationRepo.GetByGatewayOrderID(ctx, pay.OrderID)
}

func (s *dispatcherService) settleLedger(ctx context.Context, ledgerID string) (processingResult, error) {
	l, err := s.LedgerRepo.Get(ctx, ledgerID)
	if err != nil {
		return processingResult{}, err
	}
	if l.PaymentStatus == types.LedgerPaymentStatusPaid {
		return processingResult{Status: "ok", Detail: "ledger already paid"}, nil
	}

	now := time.Now().UTC()
	l.PaymentStatus = types.LedgerPaymentStatusPaid
	l.PaidAt = &now
	l.NextRetryAt = nil
	if err := s.LedgerRepo.Update(ctx, l); err != nil {
		return processingResult{}, err
	}

	if err := s.restoreRestaurantStanding(ctx, l.RestaurantID); err != nil {
		return processingResult{}, err
	}
	return processingResult{Status: "ok", Detail: "ledger " + l.ID + " paid"}, nil
}

func (s *dispatcherService) handleRefundProcessed(ctx context.Context, envelope *rzpwebhook.Envelope) (processingResult, error) {
	if envelope.Payload.Refund == nil {
		return processingResult{Status: "error", Detail: "refund entity missing"}, nil
	}
	refund := envelope.Payload.Refund.Entity

	o, err := s.OrderRepo.GetByGatewayPaymentID(ctx, refund.PaymentID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return processingResult{Status: "error", Detail: "unknown payment " + refund.PaymentID}, nil
		}
		return processingResult{}, err
	}

	// The refund id ledger is the idempotency guard: a crash after the
	// order update but before the event is marked processed re-runs this
	// handler with the same refund.
	if o.HasRefund(refund.ID) {
		return processingResult{Status: "ok", Detail: "refund " + refund.ID + " already applied"}, nil
	}
	if o.PaymentStatus == types.PaymentStatusRefunded {
		return processingResult{Status: "ok", Detail: "order already fully refunded"}, nil
	}

	// Proportion is computed against the order total at capture time;
	// totals are immutable once paid.
	o.ApplyRefund(refund.ID, refund.Amount)

	paidAt := time.Now().UTC()
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.OrderRepo.Update(ctx, o); err != nil {
			return err
		}
		return s.billing.ReverseRefund(ctx, o.RestaurantID, refund.Amount, paidAt)
	})
	if err != nil {
		return processingResult{}, err
	}

	return processingResult{Status: "ok", Detail: "refund applied to order " + o.ID}, nil
}

func (s *dispatcherService) handlePaymentLinkPaid(ctx context.Context, envelope *rzpwebhook.Envelope) (processingResult, error) {
	if envelope.Payload.PaymentLink == nil {
		return processingResult{Status: "error", Detail: "payment link entity missing"}, nil
	}
	link := envelope.Payload.PaymentLink.Entity

	l, err := s.LedgerRepo.GetByPaymentLinkID(ctx, link.ID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return processingResult{Status: "error", Detail: "unknown payment link " + link.ID}, nil
		}
		return processingResult{}, err
	}
	return s.settleLedger(ctx, l.ID)
}

func (s *dispatcherService) handlePaymentFailed(ctx context.Context, envelope *rzpwebhook.Envelope) (processingResult, error) {
	if envelope.Payload.Payment == nil {
		return processingResult{Status: "error", Detail: "payment entity missing"}, nil
	}
	pay := envelope.Payload.Payment.Entity

	l, err := s.LedgerRepo.GetByGatewayPaymentID(ctx, pay.ID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return processingResult{}, err
		}
		// Not a recurring-fee charge; a failed tokenization setup charge
		// is recorded on its attempt.
		attempt, aerr := s.TokenizationRepo.GetByGatewayOrderID(ctx, pay.OrderID)
		if aerr != nil {
			if ierr.IsNotFound(aerr) {
				return processingResult{Status: "ignored", Detail: "failed payment matches no ledger or attempt"}, nil
			}
			return processingResult{}, aerr
		}
		attempt.Status = types.TokenizationStatusFailed
		if err := s.TokenizationRepo.Update(ctx, attempt); err != nil {
			return processingResult{}, err
		}
		return processingResult{Status: "ok", Detail: "tokenization attempt failed"}, nil
	}

	if l.PaymentStatus == types.LedgerPaymentStatusPaid {
		// A capture already won; the failure notice is stale.
		return processingResult{Status: "ok", Detail: "ledger already paid"}, nil
	}

	l.PaymentStatus = types.LedgerPaymentStatusFailed
	l.NextRetryAt = nil
	if err := s.LedgerRepo.Update(ctx, l); err != nil {
		return processingResult{}, err
	}

	rest, err := s.RestaurantRepo.Get(ctx, l.RestaurantID)
	if err != nil {
		return processingResult{}, err
	}
	rest.BillingStatus = types.BillingStatusOverdue
	if err := s.RestaurantRepo.Update(ctx, rest); err != nil {
		return processingResult{}, err
	}

	return processingResult{Status: "ok", Detail: "ledger " + l.ID + " failed, restaurant overdue"}, nil
}

func (s *dispatcherService) restoreRestaurantStanding(ctx context.Context, restaurantID string) error {
	rest, err := s.RestaurantRepo.Get(ctx, restaurantID)
	if err != nil {
		return err
	}
	if rest.BillingStatus != types.BillingStatusOverdue {
		return nil
	}
	rest.BillingStatus = types.BillingStatusActive
	return s.RestaurantRepo.Update(ctx, rest)
}
