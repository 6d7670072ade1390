package tenancy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantRepository persists tenants in the shared partition
type TenantRepository interface {
	Save(ctx context.Context, tenant *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindByCode(ctx context.Context, code string) (*Tenant, error)
	List(ctx context.Context, status TenantStatus, offset, limit int) ([]*Tenant, int64, error)
	// FindArchivedBefore returns archived tenants whose retention
	// window has elapsed relative to the given cutoff.
	FindArchivedBefore(ctx context.Context, cutoff time.Time) ([]*Tenant, error)
}

// SchemaRegistry is the source of truth for tenant/schema/domain
// bindings. Registration is transactional: a partially visible binding
// must never be observable by concurrent resolvers.
type SchemaRegistry interface {
	// Register creates a binding for the tenant. Fails with
	// ErrDuplicateDomain or ErrDuplicateSchema on conflicts.
	Register(ctx context.Context, tenantID uuid.UUID, schemaName string, domains []string) (*SchemaBinding, error)

	// ResolveByDomain returns the active binding for a hostname, or
	// ErrUnknownTenant.
	ResolveByDomain(ctx context.Context, hostname string) (*SchemaBinding, error)

	// FindByTenant returns the active binding for a tenant, or
	// shared.ErrNotFound.
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*SchemaBinding, error)

	// SaveBinding persists changes to an existing binding, including
	// newly added domains. Fails with ErrDuplicateDomain when a
	// hostname is already bound elsewhere.
	SaveBinding(ctx context.Context, binding *SchemaBinding) error

	// Deactivate removes the tenant's binding from resolution while
	// keeping the schema name reserved.
	Deactivate(ctx context.Context, tenantID uuid.UUID) error

	// IsSchemaNameTaken reports whether a schema name is registered,
	// active or still inside its retention window.
	IsSchemaNameTaken(ctx context.Context, schemaName string) (bool, error)

	// PurgeBinding deletes a deactivated binding, releasing the schema
	// name for reuse. Called after the retention window elapses.
	PurgeBinding(ctx context.Context, tenantID uuid.UUID) error
}
