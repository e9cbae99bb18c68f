package middleware

import "context"

type contextKey string

const (
	ctxShopperID contextKey = "shopper_id"
	ctxRequestID contextKey = "request_id"
)

func ShopperIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxShopperID)
}

// WithShopperID injects the shopper identifier into the context.
func WithShopperID(ctx context.Context, shopperID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxShopperID, shopperID)
}

func RequestIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxRequestID)
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
