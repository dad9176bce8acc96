package cache

import "time"

const (
	ExpiryDefaultInMemory = 30 * time.Minute

	// Webhook secrets rarely change; keep them warm between deliveries.
	ExpiryWebhookSecret = 15 * time.Minute
)
