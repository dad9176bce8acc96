package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dinematters/dinematters/internal/domain/tokenization"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/postgres"
	"github.com/dinematters/dinematters/internal/types"
)

type tokenizationRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

// NewTokenizationRepository creates a postgres-backed tokenization
// attempt store
func NewTokenizationRepository(client *postgres.Client, log *logger.Logger) tokenization.Repository {
	return &tokenizationRepository{client: client, logger: log}
}

const selectAttempt = `
	SELECT id, restaurant_id, amount_minor, attempt_status, gateway_order_id,
		gateway_payment_id, customer_id, token_id, processed, status, created_at, updated_at
	FROM tokenization_attempts`

func (r *tokenizationRepository) Create(ctx context.Context, a *tokenization.Attempt) error {
	if err := a.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tokenization_attempts
			(id, restaurant_id, amount_minor, attempt_status, gateway_order_id,
			gateway_payment_id, customer_id, token_id, processed, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		a.ID,
		a.RestaurantID,
		a.AmountMinor,
		string(a.Status),
		nullString(a.GatewayOrderID),
		nullString(a.GatewayPaymentID),
		nullString(a.CustomerID),
		nullString(a.TokenID),
		a.Processed,
		string(a.BaseModel.Status),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to insert tokenization attempt").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *tokenizationRepository) Get(ctx context.Context, id string) (*tokenization.Attempt, error) {
	return r.scanOne(ctx, selectAttempt+` WHERE id = $1`, id)
}

func (r *tokenizationRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*tokenization.Attempt, error) {
	return r.scanOne(ctx, selectAttempt+` WHERE gateway_order_id = $1`, gatewayOrderID)
}

func (r *tokenizationRepository) Update(ctx context.Context, a *tokenization.Attempt) error {
	query := `
		UPDATE tokenization_attempts
		SET attempt_status = $2,
			gateway_order_id = $3,
			gateway_payment_id = $4,
			customer_id = $5,
			token_id = $6,
			processed = $7,
			updated_at = $8
		WHERE id = $1`

	res, err := r.client.Querier(ctx).ExecContext(ctx, query,
		a.ID,
		string(a.Status),
		nullString(a.GatewayOrderID),
		nullString(a.GatewayPaymentID),
		nullString(a.CustomerID),
		nullString(a.TokenID),
		a.Processed,
		time.Now().UTC(),
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update tokenization attempt").
			WithReportableDetails(map[string]interface{}{"attempt_id": a.ID}).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewErrorf("tokenization attempt %s not found", a.ID).Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *tokenizationRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*tokenization.Attempt, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, query, args...)

	var a tokenization.Attempt
	var attemptStatus, status string
	var gatewayOrderID, gatewayPaymentID, customerID, tokenID sql.NullString

	err := row.Scan(
		&a.ID,
		&a.RestaurantID,
		&a.AmountMinor,
		&attemptStatus,
		&gatewayOrderID,
		&gatewayPaymentID,
		&customerID,
		&tokenID,
		&a.Processed,
		&status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("tokenization attempt not found").Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to scan tokenization attempt").
			Mark(ierr.ErrDatabase)
	}

	a.Status = types.TokenizationStatus(attemptStatus)
	a.GatewayOrderID = gatewayOrderID.String
	a.GatewayPaymentID = gatewayPaymentID.String
	a.CustomerID = customerID.String
	a.TokenID = tokenID.String
	a.BaseModel.Status = parseStatus(status)
	return &a, nil
}
