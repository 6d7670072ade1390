package handler

import (
	"github.com/gin-gonic/gin"
	appbilling "github.com/gridpos/backend/internal/application/billing"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/interfaces/http/dto"
)

// BillingHandler serves the tenant-facing billing surface: plan
// catalog, the tenant's subscription, entitlements and invoices.
// These routes stay reachable for suspended tenants so payment
// recovery is possible.
type BillingHandler struct {
	BaseHandler
	planService  *appbilling.PlanService
	lifecycle    *appbilling.LifecycleService
	entitlements *appbilling.EntitlementService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(
	planService *appbilling.PlanService,
	lifecycle *appbilling.LifecycleService,
	entitlements *appbilling.EntitlementService,
) *BillingHandler {
	return &BillingHandler{
		planService:  planService,
		lifecycle:    lifecycle,
		entitlements: entitlements,
	}
}

// ListPlans returns the current version of every offered plan
func (h *BillingHandler) ListPlans(c *gin.Context) {
	plans, err := h.planService.ListPlans(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, plans)
}

// UpsertPlan publishes a new plan version. Operator-only; existing
// subscriptions keep the version they already reference.
func (h *BillingHandler) UpsertPlan(c *gin.Context) {
	var req appbilling.UpsertPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	plan, err := h.planService.UpsertPlan(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, plan)
}

// GetSubscription returns the resolved tenant's live subscription
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Request is not bound to a tenant")
		return
	}

	sub, err := h.planService.GetSubscription(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// GetEntitlements returns the effective entitlement snapshot
func (h *BillingHandler) GetEntitlements(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Request is not bound to a tenant")
		return
	}

	ent, err := h.entitlements.Entitlements(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ent)
}

// ChangePlan switches the tenant to another plan; the new price
// applies from the next period
func (h *BillingHandler) ChangePlan(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Request is not bound to a tenant")
		return
	}

	var req appbilling.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	sub, err := h.lifecycle.ChangePlan(c.Request.Context(), tenantID, billing.PlanCode(req.PlanCode))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// CancelSubscription cancels immediately or schedules a cancellation
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Request is not bound to a tenant")
		return
	}

	var req appbilling.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	sub, err := h.lifecycle.CancelSubscription(c.Request.Context(), tenantID, req.At)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// ListInvoices returns the tenant's invoices, newest first
func (h *BillingHandler) ListInvoices(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Request is not bound to a tenant")
		return
	}

	var query dto.ListRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}
	query.Normalize()

	invoices, total, err := h.planService.ListInvoices(c.Request.Context(), tenantID, query.Offset(), query.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, query.Page, query.PageSize)
}
