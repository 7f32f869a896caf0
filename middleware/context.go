package middleware

import (
	"context"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// TenantIDKey is the context key for the tenant scoping a request
	TenantIDKey contextKey = "tenant_id"
)

// TenantHeader carries the tenant identifier on every API request
const TenantHeader = "X-Tenant-ID"

// GetRequestIDFromContext retrieves the request ID from context.
// Falls back to the id set by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetTenantIDFromContext retrieves the tenant ID from context
func GetTenantIDFromContext(ctx context.Context) string {
	if val := ctx.Value(TenantIDKey); val != nil {
		if tenantID, ok := val.(string); ok {
			return tenantID
		}
	}
	return ""
}

// WithTenantID adds a tenant ID to the context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

// ParseTenantHeader normalises the raw header value.
// Browser clients send "undefined" or "null" when no tenant is selected.
func ParseTenantHeader(value string) string {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "undefined", "null":
		return ""
	}
	return value
}

// Tenant copies the X-Tenant-ID header into the request context.
// A missing tenant is not rejected here; the services decide what that means.
func Tenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if tenantID := ParseTenantHeader(r.Header.Get(TenantHeader)); tenantID != "" {
			ctx = WithTenantID(ctx, tenantID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
