package tenancy

import (
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/tenancy"
)

// SignupRequest creates a new tenant with its trial subscription
type SignupRequest struct {
	Code         string `json:"code" binding:"required,min=2,max=50,tenantcode"`
	Name         string `json:"name" binding:"required,max=200"`
	ContactEmail string `json:"contact_email" binding:"required,email"`
	PlanCode     string `json:"plan_code" binding:"required,oneof=basic pro enterprise"`
	BillingCycle string `json:"billing_cycle" binding:"omitempty,oneof=monthly yearly"`
}

// AddDomainRequest binds an extra hostname to a tenant
type AddDomainRequest struct {
	Hostname string `json:"hostname" binding:"required,hostname_rfc1123"`
}

// TenantResponse is the admin API view of a tenant
type TenantResponse struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	SchemaName   string     `json:"schema_name,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
	Domains      []string   `json:"domains,omitempty"`
	ArchivedAt   *time.Time `json:"archived_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTenantResponse converts a tenant (and optional binding) to a response
func NewTenantResponse(t *tenancy.Tenant, binding *tenancy.SchemaBinding) *TenantResponse {
	resp := &TenantResponse{
		ID:           t.ID,
		Code:         t.Code,
		Name:         t.Name,
		Status:       string(t.Status),
		SchemaName:   t.SchemaName,
		ContactEmail: t.ContactEmail,
		ArchivedAt:   t.ArchivedAt,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if binding != nil {
		for _, d := range binding.Domains {
			resp.Domains = append(resp.Domains, d.Hostname)
		}
	}
	return resp
}

// TenantListResponse is a paginated list of tenants
type TenantListResponse struct {
	Tenants []*TenantResponse `json:"tenants"`
	Total   int64             `json:"total"`
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
}
