package razorpay

import (
	"context"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/dinematters/dinematters/internal/config"
	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/logger"
)

// Gateway defines the outbound payment gateway operations. The client is
// treated as opaque; retries happen at the application level, never inside
// the gateway call itself.
type Gateway interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error)
	ChargeToken(ctx context.Context, req *ChargeTokenRequest) (*ChargeTokenResponse, error)
	CreatePaymentLink(ctx context.Context, req *CreatePaymentLinkRequest) (*CreatePaymentLinkResponse, error)
}

// Client implements Gateway against the Razorpay API
type Client struct {
	rz     *razorpay.Client
	logger *logger.Logger
}

// NewClient creates a new Razorpay gateway client
func NewClient(cfg *config.Configuration, log *logger.Logger) Gateway {
	return &Client{
		rz:     razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret),
		logger: log,
	}
}

// CreateOrder creates a gateway order
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
	}
	if req.Receipt != "" {
		data["receipt"] = req.Receipt
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := c.rz.Order.Create(data, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create gateway order").
			WithReportableDetails(map[string]interface{}{
				"amount":   req.AmountMinor,
				"currency": req.Currency,
			}).
			Mark(ierr.ErrGateway)
	}

	resp := &CreateOrderResponse{
		OrderID: stringField(body, "id"),
		Status:  stringField(body, "status"),
	}
	c.logger.Infow("created gateway order", "order_id", resp.OrderID, "amount", req.AmountMinor)
	return resp, nil
}

// ChargeToken attempts an off-session charge against a stored token
func (c *Client) ChargeToken(ctx context.Context, req *ChargeTokenRequest) (*ChargeTokenResponse, error) {
	data := map[string]interface{}{
		"amount":      req.AmountMinor,
		"currency":    req.Currency,
		"customer_id": req.CustomerID,
		"token":       req.TokenID,
		"recurring":   "1",
	}
	if req.Description != "" {
		data["description"] = req.Description
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := c.rz.Payment.CreateRecurringPayment(data, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Recurring charge attempt failed at the gateway").
			WithReportableDetails(map[string]interface{}{
				"customer_id": req.CustomerID,
				"amount":      req.AmountMinor,
			}).
			Mark(ierr.ErrGateway)
	}

	resp := &ChargeTokenResponse{
		PaymentID: stringField(body, "razorpay_payment_id"),
		Status:    stringField(body, "status"),
	}
	if resp.PaymentID == "" {
		resp.PaymentID = stringField(body, "id")
	}
	c.logger.Infow("submitted recurring charge", "payment_id", resp.PaymentID, "amount", req.AmountMinor)
	return resp, nil
}

// CreatePaymentLink creates a hosted payment link
func (c *Client) CreatePaymentLink(ctx context.Context, req *CreatePaymentLinkRequest) (*CreatePaymentLinkResponse, error) {
	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
	}
	if req.Description != "" {
		data["description"] = req.Description
	}
	customer := map[string]interface{}{}
	if req.CustomerName != "" {
		customer["name"] = req.CustomerName
	}
	if req.CustomerEmail != "" {
		customer["email"] = req.CustomerEmail
	}
	if len(customer) > 0 {
		data["customer"] = customer
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := c.rz.PaymentLink.Create(data, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create gateway payment link").
			Mark(ierr.ErrGateway)
	}

	resp := &CreatePaymentLinkResponse{
		PaymentLinkID: stringField(body, "id"),
		ShortURL:      stringField(body, "short_url"),
	}
	c.logger.Infow("created payment link", "payment_link_id", resp.PaymentLinkID)
	return resp, nil
}

func stringField(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}
