package testutil

import (
	"context"
	"sync"

	ierr "github.com/dinematters/dinematters/internal/errors"
	"github.com/dinematters/dinematters/internal/integration/razorpay"
)

// MockGateway is a scriptable payment gateway for tests.
type MockGateway struct {
	mu sync.Mutex

	// FailCharges makes ChargeToken fail while > 0, decrementing per call.
	FailCharges int

	ChargeCalls      []*razorpay.ChargeTokenRequest
	OrderCalls       []*razorpay.CreateOrderRequest
	PaymentLinkCalls []*razorpay.CreatePaymentLinkRequest

	NextPaymentID     string
	NextOrderID       string
	NextPaymentLinkID string
}

// NewMockGateway creates a new mock gateway
func NewMockGateway() *MockGateway {
	return &MockGateway{
		NextPaymentID:     "pay_mock001",
		NextOrderID:       "order_mock001",
		NextPaymentLinkID: "plink_mock001",
	}
}

var _ razorpay.Gateway = (*MockGateway)(nil)

func (g *MockGateway) CreateOrder(ctx context.Context, req *razorpay.CreateOrderRequest) (*razorpay.CreateOrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.OrderCalls = append(g.OrderCalls, req)
	return &razorpay.CreateOrderResponse{OrderID: g.NextOrderID, Status: "created"}, nil
}

func (g *MockGateway) ChargeToken(ctx context.Context, req *razorpay.ChargeTokenRequest) (*razorpay.ChargeTokenResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ChargeCalls = append(g.ChargeCalls, req)
	if g.FailCharges > 0 {
		g.FailCharges--
		return nil, ierr.NewError("gateway declined the charge").Mark(ierr.ErrGateway)
	}
	return &razorpay.ChargeTokenResponse{PaymentID: g.NextPaymentID, Status: "created"}, nil
}

func (g *MockGateway) CreatePaymentLink(ctx context.Context, req *razorpay.CreatePaymentLinkRequest) (*razorpay.CreatePaymentLinkResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.PaymentLinkCalls = append(g.PaymentLinkCalls, req)
	return &razorpay.CreatePaymentLinkResponse{PaymentLinkID: g.NextPaymentLinkID, ShortURL: "https://rzp.io/l/mock"}, nil
}
