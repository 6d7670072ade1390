package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apptenancy "github.com/gridpos/backend/internal/application/tenancy"
	"github.com/gridpos/backend/internal/interfaces/http/middleware"
)

// TenantHandler handles tenant signup and the operator management API
type TenantHandler struct {
	BaseHandler
	tenantService *apptenancy.TenantService
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantService *apptenancy.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// Signup registers a new tenant and starts schema provisioning in the
// background. Returns 202 because the tenant is not usable until
// provisioning completes.
func (h *TenantHandler) Signup(c *gin.Context) {
	var req apptenancy.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenant, err := h.tenantService.Signup(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Accepted(c, tenant)
}

// GetByID retrieves a tenant with its domain bindings
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	tenant, err := h.tenantService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, tenant)
}

// List returns a paginated list of tenants, optionally by status
func (h *TenantHandler) List(c *gin.Context) {
	var query struct {
		Status string `form:"status" binding:"omitempty,oneof=provisioning active suspended archived"`
		Offset int    `form:"offset" binding:"omitempty,min=0"`
		Limit  int    `form:"limit" binding:"omitempty,min=1,max=200"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	list, err := h.tenantService.List(c.Request.Context(), query.Status, query.Offset, query.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, list)
}

// Suspend blocks a tenant for operational reasons
func (h *TenantHandler) Suspend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	if err := h.tenantService.Suspend(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Activate lifts a suspension
func (h *TenantHandler) Activate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	if err := h.tenantService.Activate(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Provision retries schema provisioning after a failed attempt
func (h *TenantHandler) Provision(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	if err := h.tenantService.Provision(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Archive deprovisions a tenant. The schema survives until the
// retention window expires, then the reaper drops it.
func (h *TenantHandler) Archive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	if err := h.tenantService.Archive(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// AddDomain binds an extra hostname to a tenant
func (h *TenantHandler) AddDomain(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req apptenancy.AddDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.tenantService.AddDomain(c.Request.Context(), id, req.Hostname); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
