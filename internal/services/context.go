package services

import (
	"context"

	"goa.design/goa/v3/middleware"
)

// requestID returns the id set by the goa RequestID middleware, if any.
func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}
