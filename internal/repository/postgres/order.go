package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/dinematters/dinematters/internal/domain/order"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/logger"
	"github.com/dinematters/dinematters/internal/postgres"
	"github.com/dinematters/dinematters/internal/types"
)

type orderRepository struct {
	client *postgres.Client
	logger *logger.Logger
}

// NewOrderRepository creates a postgres-backed order store
func NewOrderRepository(client *postgres.Client, log *logger.Logger) order.Repository {
	return &orderRepository{client: client, logger: log}
}

const selectOrder = `
	SELECT id, restaurant_id, total_minor, refunded_minor, applied_refund_ids, payment_status, order_status,
		gateway_order_id, gateway_payment_id, transaction_id, paid_at, status, created_at, updated_at
	FROM orders`

func (r *orderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.scanOne(ctx, selectOrder+` WHERE id = $1`, id)
}

func (r *orderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*order.Order, error) {
	return r.scanOne(ctx, selectOrder+` WHERE gateway_order_id = $1`, gatewayOrderID)
}

func (r *orderRepository) GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (*order.Order, error) {
	return r.scanOne(ctx, selectOrder+` WHERE gateway_payment_id = $1`, gatewayPaymentID)
}

func (r *orderRepository) Update(ctx context.Context, o *order.Order) error {
	query := `
		UPDATE orders
		SET refunded_minor = $2,
			applied_refund_ids = $3,
			payment_status = $4,
			order_status = $5,
			gateway_order_id = $6,
			gateway_payment_id = $7,
			transaction_id = $8,
			paid_at = $9,
			updated_at = $10
		WHERE id = $1`

	res, err := r.client.Querier(ctx).ExecContext(ctx, query,
		o.ID,
		o.RefundedMinor,
		pq.Array(o.AppliedRefundIDs),
		string(o.PaymentStatus),
		string(o.OrderStatus),
		nullString(o.GatewayOrderID),
		nullString(o.GatewayPaymentID),
		nullString(o.TransactionID),
		nullTime(o.PaidAt),
		time.Now().UTC(),
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update order").
			WithReportableDetails(map[string]interface{}{"order_id": o.ID}).
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewErrorf("order %s not found", o.ID).Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *orderRepository) SumCompletedInPeriod(ctx context.Context, restaurantID string, start, end time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(total_minor - refunded_minor), 0)
		FROM orders
		WHERE restaurant_id = $1
			AND payment_status IN ('completed', 'partially_refunded')
			AND paid_at >= $2 AND paid_at < $3`

	var total int64
	err := r.client.Querier(ctx).QueryRowContext(ctx, query, restaurantID, start, end).Scan(&total)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to sum completed orders").
			Mark(ierr.ErrDatabase)
	}
	return total, nil
}

func (r *orderRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*order.Order, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, query, args...)

	var o order.Order
	var paymentStatus, orderStatus, status string
	var appliedRefundIDs pq.StringArray
	var gatewayOrderID, gatewayPaymentID, transactionID sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(
		&o.ID,
		&o.RestaurantID,
		&o.TotalMinor,
		&o.RefundedMinor,
		&appliedRefundIDs,
		&paymentStatus,
		&orderStatus,
		&gatewayOrderID,
		&gatewayPaymentID,
		&transactionID,
		&paidAt,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("order not found").Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to scan order").
			Mark(ierr.ErrDatabase)
	}

	o.AppliedRefundIDs = appliedRefundIDs
	o.PaymentStatus = types.PaymentStatus(paymentStatus)
	o.OrderStatus = types.OrderStatus(orderStatus)
	o.Status = parseStatus(status)
	o.GatewayOrderID = gatewayOrderID.String
	o.GatewayPaymentID = gatewayPaymentID.String
	o.TransactionID = transactionID.String
	o.PaidAt = timePtr(paidAt)
	return &o, nil
}
