package types

import "context"

type ContextKey string

const (
	CtxRequestID    ContextKey = "ctx_request_id"
	CtxRestaurantID ContextKey = "ctx_restaurant_id"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderSignature = "X-Razorpay-Signature"
)

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(CtxRequestID).(string); ok {
		return v
	}
	return ""
}

func SetRestaurantID(ctx context.Context, restaurantID string) context.Context {
	return context.WithValue(ctx, CtxRestaurantID, restaurantID)
}

func GetRestaurantID(ctx context.Context) string {
	if v, ok := ctx.Value(CtxRestaurantID).(string); ok {
		return v
	}
	return ""
}
