package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	apptenancy "github.com/gridpos/backend/internal/application/tenancy"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/infrastructure/logger"
	"github.com/gridpos/backend/internal/interfaces/http/dto"
)

// Tenant context keys
const (
	ResolutionKey        = "tenant_resolution"
	TenantIDKey          = "tenant_id"
	TenantCodeKey        = "tenant_code"
	SchemaNameKey        = "schema_name"
	TenantOverrideHeader = "X-Tenant-Code"
)

// TenantResolver resolves the request host to a tenant before any
// handler runs. Resolution failures abort the request; nothing
// downstream ever executes without a pinned tenant context. Platform
// operators may target a tenant explicitly via X-Tenant-Code.
func TenantResolver(resolver *apptenancy.ResolverService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		override := c.GetHeader(TenantOverrideHeader)
		resolution, err := resolver.Resolve(ctx, c.Request.Host, override, IsPlatformAdmin(c))
		if err != nil {
			abortResolution(c, err)
			return
		}

		c.Set(ResolutionKey, resolution)
		if resolution.Shared {
			c.Next()
			return
		}

		c.Set(TenantIDKey, resolution.TenantID.String())
		c.Set(TenantCodeKey, resolution.TenantCode)
		c.Set(SchemaNameKey, resolution.SchemaName)

		log := logger.FromContext(ctx)
		if requestID := c.GetString("request_id"); requestID != "" {
			ctx, log = logger.WithRequestID(ctx, log, requestID)
		}
		ctx, log = logger.WithTenantID(ctx, log, resolution.TenantID.String())
		ctx, _ = logger.WithSchema(ctx, log, resolution.SchemaName)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetResolution retrieves the tenant resolution from gin.Context
func GetResolution(c *gin.Context) *apptenancy.Resolution {
	if v, exists := c.Get(ResolutionKey); exists {
		if r, ok := v.(*apptenancy.Resolution); ok {
			return r
		}
	}
	return nil
}

func abortResolution(c *gin.Context, err error) {
	requestID := c.GetString("request_id")

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.AbortWithStatusJSON(dto.GetHTTPStatus(code),
			dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeInternal),
		dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "Tenant resolution failed", requestID))
}
