package tenancy

import (
	"strings"
	"time"

	"github.com/gridpos/backend/internal/domain/shared"
)

// TenantStatus represents the lifecycle status of a tenant
type TenantStatus string

const (
	TenantStatusProvisioning TenantStatus = "provisioning"
	TenantStatusActive       TenantStatus = "active"
	TenantStatusSuspended    TenantStatus = "suspended"
	TenantStatusArchived     TenantStatus = "archived"
)

// IsValid returns true if the status is a known lifecycle status
func (s TenantStatus) IsValid() bool {
	switch s {
	case TenantStatusProvisioning, TenantStatusActive, TenantStatusSuspended, TenantStatusArchived:
		return true
	}
	return false
}

// Tenant represents one isolated customer organization on the platform.
// It is the aggregate root for tenant lifecycle operations. Business
// data lives in the tenant's own schema; this record lives in the
// shared partition.
type Tenant struct {
	shared.BaseAggregateRoot
	Code         string       `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name         string       `gorm:"type:varchar(200);not null"`
	Status       TenantStatus `gorm:"type:varchar(20);not null;default:'provisioning'"`
	SchemaName   string       `gorm:"type:varchar(63);uniqueIndex"`
	ContactEmail string       `gorm:"type:varchar(200)"`
	ArchivedAt   *time.Time   `gorm:"index"`
	Notes        string       `gorm:"type:text"`
	// ProvisionAttempts counts provisioning runs so retries can stop
	// after the configured maximum.
	ProvisionAttempts int `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a new tenant in provisioning status. The schema
// binding is established later by the provisioning engine.
func NewTenant(code, name string) (*Tenant, error) {
	if err := validateTenantCode(code); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Tenant name cannot exceed 200 characters")
	}

	tenant := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToLower(code),
		Name:              name,
		Status:            TenantStatusProvisioning,
	}

	tenant.AddDomainEvent(NewTenantCreatedEvent(tenant))

	return tenant, nil
}

// MarkProvisioned records the schema allocated for this tenant and
// moves it to active status.
func (t *Tenant) MarkProvisioned(schemaName string) error {
	if t.Status == TenantStatusArchived {
		return shared.ErrInvalidState
	}
	if schemaName == "" {
		return ErrInvalidSchemaName
	}

	t.SchemaName = schemaName
	t.Status = TenantStatusActive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, TenantStatusProvisioning, TenantStatusActive))

	return nil
}

// RecordProvisionAttempt counts one provisioning run
func (t *Tenant) RecordProvisionAttempt() {
	t.ProvisionAttempts++
	t.UpdatedAt = time.Now()
}

// ProvisioningExhausted reports whether provisioning should stop retrying
func (t *Tenant) ProvisioningExhausted(maxRetries int) bool {
	return t.Status == TenantStatusProvisioning && t.ProvisionAttempts >= maxRetries
}

// Suspend suspends the tenant. Resolution still succeeds for a
// suspended tenant but entitlement checks deny everything except
// billing recovery.
func (t *Tenant) Suspend() error {
	if t.Status == TenantStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}
	if t.Status == TenantStatusArchived {
		return shared.ErrInvalidState
	}

	oldStatus := t.Status
	t.Status = TenantStatusSuspended
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusSuspended))

	return nil
}

// Activate returns a suspended or provisioning tenant to active status
func (t *Tenant) Activate() error {
	if t.Status == TenantStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Tenant is already active")
	}
	if t.Status == TenantStatusArchived {
		return shared.ErrInvalidState
	}

	oldStatus := t.Status
	t.Status = TenantStatusActive
	t.UpdatedAt = time.Now()
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusActive))

	return nil
}

// Archive soft-deletes the tenant. The schema is retained for the
// configured retention window before physical deletion.
func (t *Tenant) Archive() error {
	if t.Status == TenantStatusArchived {
		return shared.NewDomainError("ALREADY_ARCHIVED", "Tenant is already archived")
	}

	oldStatus := t.Status
	now := time.Now()
	t.Status = TenantStatusArchived
	t.ArchivedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()

	t.AddDomainEvent(NewTenantStatusChangedEvent(t, oldStatus, TenantStatusArchived))

	return nil
}

// IsActive returns true if the tenant is active
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// IsSuspended returns true if the tenant is suspended
func (t *Tenant) IsSuspended() bool {
	return t.Status == TenantStatusSuspended
}

// IsArchived returns true if the tenant is archived
func (t *Tenant) IsArchived() bool {
	return t.Status == TenantStatusArchived
}

// RetentionElapsed returns true if the tenant has been archived longer
// than the given retention window and its schema may be purged.
func (t *Tenant) RetentionElapsed(retention time.Duration, now time.Time) bool {
	if t.Status != TenantStatusArchived || t.ArchivedAt == nil {
		return false
	}
	return now.Sub(*t.ArchivedAt) >= retention
}

func validateTenantCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Tenant code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Tenant code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}
