package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/dinematters/dinematters/internal/domain/webhookevent"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/postgres"
)

type webhookEventRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

// NewWebhookEventRepository creates a postgres-backed webhook event store
func NewWebhookEventRepository(client *postgres.Client, log *logger.Logger) webhookevent.Repository {
	return &webhookEventRepository{client: client, logger: log}
}

func (r *webhookEventRepository) Create(ctx context.Context, event *webhookevent.WebhookEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO webhook_events
			(id, event_id, event_type, payload, processed, processing_result, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		event.ID,
		event.EventID,
		string(event.EventType),
		event.Payload,
		event.Processed,
		event.ProcessingResult,
		string(event.Status),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Webhook event already recorded").
				WithReportableDetails(map[string]interface{}{
					"event_id": event.EventID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to insert webhook event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *webhookEventRepository) Get(ctx context.Context, id string) (*webhookevent.WebhookEvent, error) {
	query := selectWebhookEvent + ` WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *webhookEventRepository) GetByEventID(ctx context.Context, eventID string) (*webhookevent.WebhookEvent, error) {
	query := selectWebhookEvent + ` WHERE event_id = $1`
	return r.scanOne(ctx, query, eventID)
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id string, result string) error {
	query := `
		UPDATE webhook_events
		SET processed = true, processing_result = $2, updated_at = $3
		WHERE id = $1`

	res, err := r.client.Querier(ctx).ExecContext(ctx, query, id, result, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark webhook event processed").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewErrorf("webhook event %s not found", id).Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *webhookEventRepository) ListUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]*webhookevent.WebhookEvent, error) {
	query := selectWebhookEvent + `
		WHERE processed = false AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list unprocessed webhook events").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var events []*webhookevent.WebhookEvent
	for rows.Next() {
		event, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return events, nil
}

const selectWebhookEvent = `
	SELECT id, event_id, event_type, payload, processed, processing_result, status, created_at, updated_at
	FROM webhook_events`

func (r *webhookEventRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*webhookevent.WebhookEvent, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, query, args...)
	event, err := scanWebhookEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("webhook event not found").Mark(ierr.ErrNotFound)
		}
		return nil, err
	}
	return event, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWebhookEvent(row rowScanner) (*webhookevent.WebhookEvent, error) {
	var e webhookevent.WebhookEvent
	var eventType, status string
	var result sql.NullString

	err := row.Scan(
		&e.ID,
		&e.EventID,
		&eventType,
		&e.Payload,
		&e.Processed,
		&result,
		&status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to scan webhook event").
			Mark(ierr.ErrDatabase)
	}

	e.EventType = parseEventType(eventType)
	e.Status = parseStatus(status)
	e.ProcessingResult = result.String
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
