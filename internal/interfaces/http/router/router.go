package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gridpos/backend/internal/infrastructure/auth"
	"github.com/gridpos/backend/internal/interfaces/http/handler"
	"github.com/gridpos/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler wired into the router
type Handlers struct {
	System          *handler.SystemHandler
	Tenant          *handler.TenantHandler
	Billing         *handler.BillingHandler
	PaymentCallback *handler.PaymentCallbackHandler
}

// Config holds router wiring inputs
type Config struct {
	JWTService     *auth.JWTService
	TenantResolver gin.HandlerFunc
	MaxBodySize    int64
	Logger         *zap.Logger
}

// Setup registers all routes on the engine. Three surfaces share the
// engine: the operator API (JWT), the payment callback endpoint
// (signature-verified) and the tenant API (host-resolved).
func Setup(engine *gin.Engine, h Handlers, cfg Config) {
	engine.Use(middleware.RequestID())
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	api := engine.Group("/api/v1")

	// Payment callbacks authenticate by body signature only; they must
	// work for suspended tenants, so no resolution middleware here.
	api.POST("/billing/callbacks/:provider", h.PaymentCallback.Handle)

	// Self-serve signup happens before any tenant exists.
	api.POST("/signup", h.Tenant.Signup)

	// Plan catalog is public.
	api.GET("/plans", h.Billing.ListPlans)

	// Operator API: tenant management behind platform-admin tokens.
	operator := api.Group("/operator")
	operator.Use(middleware.OperatorAuth(cfg.JWTService, cfg.Logger))
	{
		operator.GET("/tenants", h.Tenant.List)
		operator.GET("/tenants/:id", h.Tenant.GetByID)
		operator.POST("/tenants/:id/suspend", h.Tenant.Suspend)
		operator.POST("/tenants/:id/activate", h.Tenant.Activate)
		operator.POST("/tenants/:id/archive", h.Tenant.Archive)
		operator.POST("/tenants/:id/provision", h.Tenant.Provision)
		operator.POST("/tenants/:id/domains", h.Tenant.AddDomain)
		operator.POST("/plans", h.Billing.UpsertPlan)
		operator.GET("/payment-events", h.PaymentCallback.ListUnprocessed)
	}

	// Tenant API: every route below resolves the request host to a
	// tenant first. Operators may override the host with X-Tenant-Code.
	tenant := api.Group("/tenant")
	tenant.Use(middleware.OptionalOperatorAuth(cfg.JWTService), cfg.TenantResolver)
	{
		tenant.GET("/subscription", h.Billing.GetSubscription)
		tenant.POST("/subscription/change-plan", h.Billing.ChangePlan)
		tenant.POST("/subscription/cancel", h.Billing.CancelSubscription)
		tenant.GET("/entitlements", h.Billing.GetEntitlements)
		tenant.GET("/invoices", h.Billing.ListInvoices)
	}
}
