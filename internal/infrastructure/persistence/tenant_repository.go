package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"gorm.io/gorm"
)

// GormTenantRepository implements tenancy.TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// Save persists a tenant
func (r *GormTenantRepository) Save(ctx context.Context, tenant *tenancy.Tenant) error {
	if err := r.db.WithContext(ctx).Save(tenant).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	var tenant tenancy.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// FindByCode finds a tenant by its code
func (r *GormTenantRepository) FindByCode(ctx context.Context, code string) (*tenancy.Tenant, error) {
	var tenant tenancy.Tenant
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToLower(code)).
		First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// List returns tenants, optionally filtered by status
func (r *GormTenantRepository) List(ctx context.Context, status tenancy.TenantStatus, offset, limit int) ([]*tenancy.Tenant, int64, error) {
	query := r.db.WithContext(ctx).Model(&tenancy.Tenant{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tenants []*tenancy.Tenant
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&tenants).Error; err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

// FindArchivedBefore returns archived tenants past the retention cutoff
func (r *GormTenantRepository) FindArchivedBefore(ctx context.Context, cutoff time.Time) ([]*tenancy.Tenant, error) {
	var tenants []*tenancy.Tenant
	if err := r.db.WithContext(ctx).
		Where("status = ? AND archived_at IS NOT NULL AND archived_at <= ?", tenancy.TenantStatusArchived, cutoff).
		Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}
