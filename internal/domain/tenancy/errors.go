package tenancy

import "github.com/gridpos/backend/internal/domain/shared"

// Resolution and provisioning errors. Resolution errors must stay
// distinguishable so callers can map them to the correct access-denied
// response instead of a generic failure.
var (
	ErrUnknownTenant          = shared.NewDomainError("UNKNOWN_TENANT", "No tenant is bound to this domain")
	ErrTenantSuspended        = shared.NewDomainError("TENANT_SUSPENDED", "Tenant is suspended")
	ErrTenantArchived         = shared.NewDomainError("TENANT_ARCHIVED", "Tenant is archived")
	ErrProvisioningInProgress = shared.NewDomainError("PROVISIONING_IN_PROGRESS", "Tenant is still being provisioned")
	ErrProvisioningFailed     = shared.NewDomainError("PROVISIONING_FAILED", "Tenant provisioning failed")
	ErrAlreadyProvisioned     = shared.NewDomainError("ALREADY_PROVISIONED", "Tenant already has an active schema")
	ErrDuplicateDomain        = shared.NewDomainError("DUPLICATE_DOMAIN", "Domain is already bound to another tenant")
	ErrDuplicateSchema        = shared.NewDomainError("DUPLICATE_SCHEMA", "Schema name is already registered")
	ErrInvalidSchemaName      = shared.NewDomainError("INVALID_SCHEMA_NAME", "Schema name contains invalid characters")
)
