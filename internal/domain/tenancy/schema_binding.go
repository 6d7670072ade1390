package tenancy

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
)

// schemaNamePattern is deliberately strict: schema names are
// interpolated into SET search_path statements and must never carry
// anything but a plain identifier.
var schemaNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// ValidateSchemaName rejects anything that is not a plain lowercase
// SQL identifier. Resolution fails closed on an invalid name.
func ValidateSchemaName(name string) error {
	if !schemaNamePattern.MatchString(name) {
		return ErrInvalidSchemaName
	}
	return nil
}

// SchemaBinding maps a tenant to its physical schema and the domains
// that resolve to it. Exactly one active binding exists per tenant;
// archived bindings keep their schema name reserved until the
// retention window elapses so names are never reused against a stale
// reference.
type SchemaBinding struct {
	shared.BaseAggregateRoot
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_bindings_tenant_active,where:is_active"`
	SchemaName string     `gorm:"type:varchar(63);not null;uniqueIndex"`
	IsActive   bool       `gorm:"not null;default:true"`
	ArchivedAt *time.Time `gorm:"index"`
	Domains    []Domain   `gorm:"foreignKey:BindingID"`
}

// TableName returns the table name for GORM
func (SchemaBinding) TableName() string {
	return "schema_bindings"
}

// Domain is one hostname bound to a tenant schema. Domains are unique
// across all tenants.
type Domain struct {
	shared.BaseEntity
	BindingID uuid.UUID `gorm:"type:uuid;not null;index"`
	Hostname  string    `gorm:"type:varchar(253);not null;uniqueIndex"`
	IsPrimary bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Domain) TableName() string {
	return "tenant_domains"
}

// NewSchemaBinding creates a binding between a tenant and a schema
// with the given domains. The first domain becomes the primary one.
func NewSchemaBinding(tenantID uuid.UUID, schemaName string, hostnames []string) (*SchemaBinding, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if err := ValidateSchemaName(schemaName); err != nil {
		return nil, err
	}
	if len(hostnames) == 0 {
		return nil, shared.NewDomainError("INVALID_DOMAIN", "At least one domain is required")
	}

	binding := &SchemaBinding{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		SchemaName:        schemaName,
		IsActive:          true,
	}

	seen := make(map[string]struct{}, len(hostnames))
	for i, h := range hostnames {
		hostname, err := normalizeHostname(h)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[hostname]; dup {
			return nil, ErrDuplicateDomain
		}
		seen[hostname] = struct{}{}
		binding.Domains = append(binding.Domains, Domain{
			BaseEntity: shared.NewBaseEntity(),
			BindingID:  binding.ID,
			Hostname:   hostname,
			IsPrimary:  i == 0,
		})
	}

	return binding, nil
}

// AddDomain binds an additional hostname to this schema
func (b *SchemaBinding) AddDomain(hostname string) error {
	if !b.IsActive {
		return shared.ErrInvalidState
	}
	normalized, err := normalizeHostname(hostname)
	if err != nil {
		return err
	}
	for _, d := range b.Domains {
		if d.Hostname == normalized {
			return ErrDuplicateDomain
		}
	}
	b.Domains = append(b.Domains, Domain{
		BaseEntity: shared.NewBaseEntity(),
		BindingID:  b.ID,
		Hostname:   normalized,
	})
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// Deactivate excludes the binding from resolution while keeping the
// schema name reserved.
func (b *SchemaBinding) Deactivate() {
	if !b.IsActive {
		return
	}
	now := time.Now()
	b.IsActive = false
	b.ArchivedAt = &now
	b.UpdatedAt = now
	b.IncrementVersion()
}

// NameReusable reports whether the schema name may be handed out again
func (b *SchemaBinding) NameReusable(retention time.Duration, now time.Time) bool {
	if b.IsActive || b.ArchivedAt == nil {
		return false
	}
	return now.Sub(*b.ArchivedAt) >= retention
}

func normalizeHostname(hostname string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(hostname))
	if h == "" || len(h) > 253 || strings.ContainsAny(h, " /\\") {
		return "", shared.NewDomainError("INVALID_DOMAIN", "Invalid domain name")
	}
	return h, nil
}
