package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dinematters/dinematters/internal/domain/ledger"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/postgres"
	"github.com/dinematters/dinematters/internal/types"
)

type ledgerRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

// NewLedgerRepository creates a postgres-backed billing ledger store
func NewLedgerRepository(client *postgres.Client, log *logger.Logger) ledger.Repository {
	return &ledgerRepository{client: client, logger: log}
}

const selectLedger = `
	SELECT id, restaurant_id, billing_period, total_gmv, calculated_fee, final_amount,
		payment_status, gateway_payment_id, payment_link_id, paid_at, retry_count,
		next_retry_at, status, created_at, updated_at
	FROM monthly_billing_ledgers`

func (r *ledgerRepository) Create(ctx context.Context, l *ledger.MonthlyBillingLedger) error {
	if err := l.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO monthly_billing_ledgers
			(id, restaurant_id, billing_period, total_gmv, calculated_fee, final_amount,
			payment_status, gateway_payment_id, payment_link_id, paid_at, retry_count,
			next_retry_at, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		l.ID,
		l.RestaurantID,
		l.BillingPeriod.String(),
		l.TotalGMV,
		l.CalculatedFee,
		l.FinalAmount,
		string(l.PaymentStatus),
		nullString(l.GatewayPaymentID),
		nullString(l.PaymentLinkID),
		nullTime(l.PaidAt),
		l.RetryCount,
		nullTime(l.NextRetryAt),
		string(l.Status),
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("Ledger already exists for this restaurant and period").
				WithReportableDetails(map[string]interface{}{
					"restaurant_id":  l.RestaurantID,
					"billing_period": l.BillingPeriod,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to insert billing ledger").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *ledgerRepository) Get(ctx context.Context, id string) (*ledger.MonthlyBillingLedger, error) {
	return r.scanOne(ctx, selectLedger+` WHERE id = $1`, id)
}

func (r *ledgerRepository) GetByPeriod(ctx context.Context, restaurantID string, period types.BillingPeriod) (*ledger.MonthlyBillingLedger, error) {
	return r.scanOne(ctx, selectLedger+` WHERE restaurant_id = $1 AND billing_period = $2`, restaurantID, period.String())
}

func (r *ledgerRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*ledger.MonthlyBillingLedger, error) {
	return r.scanOne(ctx, selectLedger+` WHERE gateway_payment_id = $1`, gatewayPaymentID)
}

func (r *ledgerRepository) GetByPaymentLinkID(ctx context.Context, paymentLinkID string) (*ledger.MonthlyBillingLedger, error) {
	return r.scanOne(ctx, selectLedger+` WHERE payment_link_id = $1`, paymentLinkID)
}

func (r *ledgerRepository) Update(ctx context.Context, l *ledger.MonthlyBillingLedger) error {
	query := `
		UPDATE monthly_billing_ledgers
		SET total_gmv = $2,
			calculated_fee = $3,
			final_amount = $4,
			payment_status = $5,
			gateway_payment_id = $6,
			payment_link_id = $7,
			paid_at = $8,
			retry_count = $9,
			next_retry_at = $10,
			updated_at = $11
		WHERE id = $1`

	res, err := r.client.Querier(ctx).ExecContext(ctx, query,
		l.ID,
		l.TotalGMV,
		l.CalculatedFee,
		l.FinalAmount,
		string(l.PaymentStatus),
		nullString(l.GatewayPaymentID),
		nullString(l.PaymentLinkID),
		nullTime(l.PaidAt),
		l.RetryCount,
		nullTime(l.NextRetryAt),
		time.Now().UTC(),
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update billing ledger").
			WithReportableDetails(map[string]interface{}{"ledger_id": l.ID}).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewErrorf("ledger %s not found", l.ID).Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *ledgerRepository) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*ledger.MonthlyBillingLedger, error) {
	query := selectLedger + `
		WHERE payment_status = $1 AND next_retry_at IS NOT NULL AND next_retry_at <= $2
		ORDER BY next_retry_at ASC
		LIMIT $3`

	rows, err := r.client.Querier(ctx).QueryContext(ctx, query,
		string(types.LedgerPaymentStatusRetry), now, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list due retries").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var ledgers []*ledger.MonthlyBillingLedger
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, l)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return ledgers, nil
}

func (r *ledgerRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*ledger.MonthlyBillingLedger, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, query, args...)
	l, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("billing ledger not found").Mark(ierr.ErrNotFound)
		}
		return nil, err
	}
	return l, nil
}

func scanLedger(row rowScanner) (*ledger.MonthlyBillingLedger, error) {
	var l ledger.MonthlyBillingLedger
	var period, paymentStatus, status string
	var gatewayPaymentID, paymentLinkID sql.NullString
	var paidAt, nextRetryAt sql.NullTime

	err := row.Scan(
		&l.ID,
		&l.RestaurantID,
		&period,
		&l.TotalGMV,
		&l.CalculatedFee,
		&l.FinalAmount,
		&paymentStatus,
		&gatewayPaymentID,
		&paymentLinkID,
		&paidAt,
		&l.RetryCount,
		&nextRetryAt,
		&status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to scan billing ledger").
			Mark(ierr.ErrDatabase)
	}

	l.BillingPeriod = types.BillingPeriod(period)
	l.PaymentStatus = types.LedgerPaymentStatus(paymentStatus)
	l.GatewayPaymentID = gatewayPaymentID.String
	l.PaymentLinkID = paymentLinkID.String
	l.PaidAt = timePtr(paidAt)
	l.NextRetryAt = timePtr(nextRetryAt)
	l.Status = parseStatus(status)
	return &l, nil
}
