package types

// WebhookEventType is the closed set of gateway notification kinds this
// system routes. Anything else maps to WebhookEventUnhandled and is a
// recorded no-op rather than an error.
type WebhookEventType string

const (
	WebhookEventPaymentCaptured WebhookEventType = "payment.captured"
	WebhookEventRefundProcessed WebhookEventType = "refund.processed"
	WebhookEventPaymentLinkPaid WebhookEventType = "payment_link.paid"
	WebhookEventPaymentFailed   WebhookEventType = "payment.failed"
	WebhookEventUnhandled       WebhookEventType = "unhandled"
)

// ParseWebhookEventType maps a raw gateway event string onto the closed
// enum. Unknown strings collapse to WebhookEventUnhandled so that string
// typos in routing cannot silently drop a known kind.
func ParseWebhookEventType(raw string) WebhookEventType {
	switch WebhookEventType(raw) {
	case WebhookEventPaymentCaptured,
		WebhookEventRefundProcessed,
		WebhookEventPaymentLinkPaid,
		WebhookEventPaymentFailed:
		return WebhookEventType(raw)
	default:
		return WebhookEventUnhandled
	}
}
