package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gridpos/backend/internal/infrastructure/auth"
	"github.com/gridpos/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey     = "jwt_claims"
	JWTOperatorIDKey = "jwt_operator_id"
	PlatformAdminKey = "platform_admin"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// OperatorAuth guards the platform operator API. Every route behind it
// requires a valid token with the platform_admin claim.
func OperatorAuth(jwtService *auth.JWTService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, dto.ErrCodeTokenInvalid, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			abortUnauthorized(c, dto.ErrCodeTokenInvalid, "Missing token")
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			if logger != nil {
				logger.Warn("operator token rejected",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path),
				)
			}
			switch err {
			case auth.ErrExpiredToken:
				abortUnauthorized(c, dto.ErrCodeTokenExpired, "Token has expired")
			case auth.ErrNotPlatformAdmin:
				abortForbidden(c, "Platform operator role required")
			default:
				abortUnauthorized(c, dto.ErrCodeTokenInvalid, "Invalid token")
			}
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTOperatorIDKey, claims.Subject)
		c.Set(PlatformAdminKey, true)
		c.Next()
	}
}

// OptionalOperatorAuth extracts operator claims when a token is present
// but never rejects the request. Used on tenant-facing routes so a
// platform operator can use the X-Tenant-Code override.
func OptionalOperatorAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" || !strings.HasPrefix(authHeader, BearerPrefix) {
			c.Next()
			return
		}
		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.Next()
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTOperatorIDKey, claims.Subject)
		c.Set(PlatformAdminKey, true)
		c.Next()
	}
}

// IsPlatformAdmin reports whether the request carries validated
// operator claims
func IsPlatformAdmin(c *gin.Context) bool {
	admin, exists := c.Get(PlatformAdminKey)
	if !exists {
		return false
	}
	v, ok := admin.(bool)
	return ok && v
}

// GetOperatorID retrieves the operator ID from validated claims
func GetOperatorID(c *gin.Context) string {
	if id, exists := c.Get(JWTOperatorIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

func abortUnauthorized(c *gin.Context, code, message string) {
	requestID := c.GetString("request_id")
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, requestID))
}

func abortForbidden(c *gin.Context, message string) {
	requestID := c.GetString("request_id")
	c.AbortWithStatusJSON(http.StatusForbidden,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, message, requestID))
}
