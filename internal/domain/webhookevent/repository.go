package webhookevent

import (
	"context"
	"time"
)

// Repository defines the interface for webhook event persistence operations
type Repository interface {
	// Create inserts a new event row. A row with the same EventID already
	// existing is reported as ErrAlreadyExists so intake can treat the
	// delivery as a duplicate.
	Create(ctx context.Context, event *WebhookEvent) error

	// Get retrieves an event by internal id
	Get(ctx context.Context, id string) (*WebhookEvent, error)

	// GetByEventID retrieves an event by the gateway event id
	GetByEventID(ctx context.Context, eventID string) (*WebhookEvent, error)

	// MarkProcessed sets processed=true and stores the handler result.
	// This must be the terminal write of a dispatch cycle.
	MarkProcessed(ctx context.Context, id string, result string) error

	// ListUnprocessed returns events still pending dispatch that were
	// created before the given cutoff, oldest first.
	ListUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]*WebhookEvent, error)
}
