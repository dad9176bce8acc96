package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dinematters/dinematters/internal/domain/restaurant"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/postgres"
	"github.com/dinematters/dinematters/internal/types"
)

type restaurantRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

// NewRestaurantRepository creates a postgres-backed restaurant store
func NewRestaurantRepository(client *postgres.Client, log *logger.Logger) restaurant.Repository {
	return &restaurantRepository{client: client, logger: log}
}

const selectRestaurant = `
	SELECT id, name, gateway_account_id, merchant_webhook_secret, gateway_customer_id,
		gateway_token_id, mandate_status, billing_status, status, created_at, updated_at
	FROM restaurants`

func (r *restaurantRepository) Get(ctx context.Context, id string) (*restaurant.Restaurant, error) {
	return r.scanOne(ctx, selectRestaurant+` WHERE id = $1`, id)
}

func (r *restaurantRepository) GetByGatewayAccountID(ctx context.Context, accountID string) (*restaurant.Restaurant, error) {
	return r.scanOne(ctx, selectRestaurant+` WHERE gateway_account_id = $1`, accountID)
}

func (r *restaurantRepository) Update(ctx context.Context, rest *restaurant.Restaurant) error {
	query := `
		UPDATE restaurants
		SET gateway_customer_id = $2,
			gateway_token_id = $3,
			mandate_status = $4,
			billing_status = $5,
			updated_at = $6
		WHERE id = $1`

	res, err := r.client.Querier(ctx).ExecContext(ctx, query,
		rest.ID,
		nullString(rest.GatewayCustomerID),
		nullString(rest.GatewayTokenID),
		string(rest.MandateStatus),
		string(rest.BillingStatus),
		time.Now().UTC(),
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update restaurant").
			WithReportableDetails(map[string]interface{}{"restaurant_id": rest.ID}).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewErrorf("restaurant %s not found", rest.ID).Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *restaurantRepository) ListActive(ctx context.Context) ([]*restaurant.Restaurant, error) {
	query := selectRestaurant + ` WHERE status = $1 ORDER BY id`

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query, string(types.StatusActive))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list active restaurants").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var restaurants []*restaurant.Restaurant
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, rest)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return restaurants, nil
}

func (r *restaurantRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*restaurant.Restaurant, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, query, args...)
	rest, err := scanRestaurant(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("restaurant not found").Mark(ierr.ErrNotFound)
		}
		return nil, err
	}
	return rest, nil
}

func scanRestaurant(row rowScanner) (*restaurant.Restaurant, error) {
	var rest restaurant.Restaurant
	var accountID, webhookSecret, customerID, tokenID sql.NullString
	var mandateStatus, billingStatus, status string

	err := row.Scan(
		&rest.ID,
		&rest.Name,
		&accountID,
		&webhookSecret,
		&customerID,
		&tokenID,
		&mandateStatus,
		&billingStatus,
		&status,
		&rest.CreatedAt,
		&rest.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to scan restaurant").
			Mark(ierr.ErrDatabase)
	}

	rest.GatewayAccountID = accountID.String
	rest.MerchantWebhookSecret = webhookSecret.String
	rest.GatewayCustomerID = customerID.String
	rest.GatewayTokenID = tokenID.String
	rest.MandateStatus = types.MandateStatus(mandateStatus)
	rest.BillingStatus = types.BillingStatus(billingStatus)
	rest.Status = parseStatus(status)
	return &rest, nil
}
