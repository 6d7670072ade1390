package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	tenantIDKey  contextKey = "tenant_id"
	schemaKey    contextKey = "schema"
)

// WithContext attaches a logger to the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the attached logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and returns a logger bound to it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	bound := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, bound), bound
}

// WithTenantID stores the tenant id and returns a logger bound to it
func WithTenantID(ctx context.Context, logger *zap.Logger, tenantID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, tenantIDKey, tenantID)
	bound := logger.With(zap.String("tenant_id", tenantID))
	return WithContext(ctx, bound), bound
}

// WithSchema stores the resolved schema name and returns a logger
// bound to it. Set by the tenant resolution middleware so every
// downstream log line (including SQL traces) carries the schema.
func WithSchema(ctx context.Context, logger *zap.Logger, schema string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, schemaKey, schema)
	bound := logger.With(zap.String("schema", schema))
	return WithContext(ctx, bound), bound
}

// GetRequestID returns the request id stored in the context, or ""
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// GetTenantID returns the tenant id stored in the context, or ""
func GetTenantID(ctx context.Context) string {
	if v, ok := ctx.Value(tenantIDKey).(string); ok {
		return v
	}
	return ""
}

// GetSchema returns the schema name stored in the context, or ""
func GetSchema(ctx context.Context) string {
	if v, ok := ctx.Value(schemaKey).(string); ok {
		return v
	}
	return ""
}
