package middleware

import (
	"context"
)

type ctxKey string

const (
	ctxCorrelationID ctxKey = "correlation_id"
	ctxBearerToken   ctxKey = "bearer_token"
)

func GetCorrelationID(ctx context.Context) string {
	if v := ctx.Value(ctxCorrelationID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, ctxCorrelationID, cid)
}

// GetBearerToken returns the caller's upstream token, without the scheme.
func GetBearerToken(ctx context.Context) string {
	if v := ctx.Value(ctxBearerToken); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxBearerToken, token)
}
