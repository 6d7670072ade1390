package tenancy

import (
	"github.com/gridpos/backend/internal/domain/shared"
)

// Event types published by the tenancy aggregates
const (
	EventTypeTenantCreated       = "tenancy.tenant.created"
	EventTypeTenantStatusChanged = "tenancy.tenant.status_changed"
	EventTypeSchemaProvisioned   = "tenancy.schema.provisioned"
	EventTypeSchemaArchived      = "tenancy.schema.archived"
)

// TenantCreatedEvent is published when a new tenant signs up
type TenantCreatedEvent struct {
	shared.BaseDomainEvent
	Code string `json:"code"`
	Name string `json:"name"`
}

// NewTenantCreatedEvent creates a TenantCreatedEvent
func NewTenantCreatedEvent(t *Tenant) *TenantCreatedEvent {
	return &TenantCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantCreated, "Tenant", t.ID, t.ID),
		Code:            t.Code,
		Name:            t.Name,
	}
}

// TenantStatusChangedEvent is published on every lifecycle transition
type TenantStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus TenantStatus `json:"old_status"`
	NewStatus TenantStatus `json:"new_status"`
}

// NewTenantStatusChangedEvent creates a TenantStatusChangedEvent
func NewTenantStatusChangedEvent(t *Tenant, oldStatus, newStatus TenantStatus) *TenantStatusChangedEvent {
	return &TenantStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantStatusChanged, "Tenant", t.ID, t.ID),
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// SchemaProvisionedEvent is published when provisioning completes
type SchemaProvisionedEvent struct {
	shared.BaseDomainEvent
	SchemaName string `json:"schema_name"`
}

// NewSchemaProvisionedEvent creates a SchemaProvisionedEvent
func NewSchemaProvisionedEvent(b *SchemaBinding) *SchemaProvisionedEvent {
	return &SchemaProvisionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSchemaProvisioned, "SchemaBinding", b.ID, b.TenantID),
		SchemaName:      b.SchemaName,
	}
}

// SchemaArchivedEvent is published when a binding leaves resolution
type SchemaArchivedEvent struct {
	shared.BaseDomainEvent
	SchemaName string `json:"schema_name"`
}

// NewSchemaArchivedEvent creates a SchemaArchivedEvent
func NewSchemaArchivedEvent(b *SchemaBinding) *SchemaArchivedEvent {
	return &SchemaArchivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSchemaArchived, "SchemaBinding", b.ID, b.TenantID),
		SchemaName:      b.SchemaName,
	}
}
