package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/dinematters/dinematters/internal/domain/webhookevent"
	ierr "github.com/dinematters/dinematters/internal/errors"
)

// InMemoryWebhookEventStore implements webhookevent.Repository
type InMemoryWebhookEventStore struct {
	*InMemoryStore[*webhookevent.WebhookEvent]
}

// NewInMemoryWebhookEventStore creates a new in-memory webhook event store
func NewInMemoryWebhookEventStore() *InMemoryWebhookEventStore {
	return &InMemoryWebhookEventStore{
		InMemoryStore: NewInMemoryStore[*webhookevent.WebhookEvent](),
	}
}

func copyWebhookEvent(e *webhookevent.WebhookEvent) *webhookevent.WebhookEvent {
	if e == nil {
		return nil
	}
	copied := *e
	copied.Payload = append([]byte(nil), e.Payload...)
	return &copied
}

func (s *InMemoryWebhookEventStore) Create(ctx context.Context, event *webhookevent.WebhookEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	// Mirror the unique constraint on event_id.
	if _, err := s.GetByEventID(ctx, event.EventID); err == nil {
		return ierr.NewErrorf("webhook event %s already recorded", event.EventID).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, event.ID, copyWebhookEvent(event))
}

func (s *InMemoryWebhookEventStore) Get(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	event, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyWebhookEvent(event), nil
}

func (s *InMemoryWebhookEventStore) GetByEventID(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	event, err := s.FindFirst(ctx, func(e *webhookevent.WebhookEvent) bool {
		return e.EventID == eventID
	})
	if err != nil {
		return nil, err
	}
	return copyWebhookEvent(event), nil
}

func (s *InMemoryWebhookEventStore) MarkProcessed(ctx context.Context, id string, result string) error {
	event, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	updated := copyWebhookEvent(event)
	updated.Processed = true
	updated.ProcessingResult = result
	updated.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, id, updated)
}

func (s *InMemoryWebhookEventStore) ListUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]*webhookevent.WebhookEvent, error) {
	matches := s.FindAll(ctx, func(e *webhookevent.WebhookEvent) bool {
		return !e.Processed && e.CreatedAt.Before(olderThan)
	})

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*webhookevent.WebhookEvent, len(matches))
	for i, e := range matches {
		out[i] = copyWebhookEvent(e)
	}
	return out, nil
}
