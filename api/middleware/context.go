package middleware

import "context"

type contextKey string

const (
	ctxCustomerID contextKey = "customer_id"
	ctxPrivileged contextKey = "privileged"
)

func CustomerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxCustomerID).(string); ok {
		return v
	}
	return ""
}

func PrivilegedFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if v, ok := ctx.Value(ctxPrivileged).(bool); ok {
		return v
	}
	return false
}

// WithCustomerID injects the customer identifier into the context.
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCustomerID, customerID)
}

// WithPrivileged marks the context as carrying a staff token.
func WithPrivileged(ctx context.Context, privileged bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxPrivileged, privileged)
}
