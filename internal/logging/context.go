package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type requestIDKey struct{}

type tenantIDKey struct{}

// WithRequestID stores the request id so loggers derived with Ctx carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// WithTenant stores the tenant the request acts on.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey{}, tenantID)
}

func TenantID(ctx context.Context) string {
	id, _ := ctx.Value(tenantIDKey{}).(string)
	return id
}

// Component returns a child logger tagged with the component name.
func Component(base *zerolog.Logger, name string) *zerolog.Logger {
	l := base.With().Str("component", name).Logger()
	return &l
}

// Ctx returns base with the request and tenant ids found in ctx. base is
// returned as is when ctx holds neither.
func Ctx(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	requestID, tenantID := RequestID(ctx), TenantID(ctx)
	if requestID == "" && tenantID == "" {
		return base
	}
	c := base.With()
	if requestID != "" {
		c = c.Str("request_id", requestID)
	}
	if tenantID != "" {
		c = c.Str("tenant_id", tenantID)
	}
	l := c.Logger()
	return &l
}
