package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"gorm.io/gorm"
)

// GormSchemaRegistry implements tenancy.SchemaRegistry using GORM. All
// rows live in the shared partition.
type GormSchemaRegistry struct {
	db *gorm.DB
}

// NewGormSchemaRegistry creates a new GormSchemaRegistry
func NewGormSchemaRegistry(db *gorm.DB) *GormSchemaRegistry {
	return &GormSchemaRegistry{db: db}
}

// Register creates a binding with its domains in one transaction so a
// concurrent resolver never observes a binding without its domains.
func (r *GormSchemaRegistry) Register(ctx context.Context, tenantID uuid.UUID, schemaName string, domains []string) (*tenancy.SchemaBinding, error) {
	binding, err := tenancy.NewSchemaBinding(tenantID, schemaName, domains)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&tenancy.SchemaBinding{}).
			Where("schema_name = ?", schemaName).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return tenancy.ErrDuplicateSchema
		}

		if err := tx.Create(binding).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			// The unique index decides which of the two keys collided.
			if r.domainTaken(ctx, domains) {
				return nil, tenancy.ErrDuplicateDomain
			}
			return nil, tenancy.ErrDuplicateSchema
		}
		return nil, err
	}
	return binding, nil
}

func (r *GormSchemaRegistry) domainTaken(ctx context.Context, domains []string) bool {
	lowered := make([]string, len(domains))
	for i, d := range domains {
		lowered[i] = strings.ToLower(strings.TrimSpace(d))
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&tenancy.Domain{}).
		Where("hostname IN ?", lowered).
		Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// SaveBinding persists an existing binding and its domains
func (r *GormSchemaRegistry) SaveBinding(ctx context.Context, binding *tenancy.SchemaBinding) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Domains").Save(binding).Error; err != nil {
			return err
		}
		for i := range binding.Domains {
			d := &binding.Domains[i]
			if err := tx.Where("id = ?", d.ID).FirstOrCreate(d).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return tenancy.ErrDuplicateDomain
		}
		return err
	}
	return nil
}

// ResolveByDomain returns the active binding serving a hostname
func (r *GormSchemaRegistry) ResolveByDomain(ctx context.Context, hostname string) (*tenancy.SchemaBinding, error) {
	normalized := strings.ToLower(strings.TrimSpace(hostname))

	var domain tenancy.Domain
	if err := r.db.WithContext(ctx).
		Where("hostname = ?", normalized).
		First(&domain).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenancy.ErrUnknownTenant
		}
		return nil, err
	}

	var binding tenancy.SchemaBinding
	if err := r.db.WithContext(ctx).
		Preload("Domains").
		Where("id = ? AND is_active = ?", domain.BindingID, true).
		First(&binding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenancy.ErrUnknownTenant
		}
		return nil, err
	}
	return &binding, nil
}

// FindByTenant returns the tenant's active binding
func (r *GormSchemaRegistry) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*tenancy.SchemaBinding, error) {
	var binding tenancy.SchemaBinding
	if err := r.db.WithContext(ctx).
		Preload("Domains").
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		First(&binding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &binding, nil
}

// Deactivate removes the tenant's binding from resolution. The schema
// name stays reserved until the row is purged after retention.
func (r *GormSchemaRegistry) Deactivate(ctx context.Context, tenantID uuid.UUID) error {
	binding, err := r.FindByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	binding.Deactivate()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&tenancy.SchemaBinding{}).
			Where("id = ?", binding.ID).
			Updates(map[string]any{
				"is_active":   false,
				"archived_at": binding.ArchivedAt,
				"updated_at":  binding.UpdatedAt,
				"version":     binding.Version,
			}).Error; err != nil {
			return err
		}
		// Domains are removed so the hostnames free up immediately.
		return tx.Where("binding_id = ?", binding.ID).Delete(&tenancy.Domain{}).Error
	})
}

// IsSchemaNameTaken reports whether any binding row holds the name.
// Deactivated bindings count until they are purged.
func (r *GormSchemaRegistry) IsSchemaNameTaken(ctx context.Context, schemaName string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&tenancy.SchemaBinding{}).
		Where("schema_name = ?", schemaName).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// PurgeBinding deletes a deactivated binding row, releasing the schema
// name. Called by the reaper after the retention window.
func (r *GormSchemaRegistry) PurgeBinding(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, false).
		Delete(&tenancy.SchemaBinding{}).Error
}
