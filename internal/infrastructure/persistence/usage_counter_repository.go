package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormUsageCounterRepository implements billing.UsageCounterRepository
// using GORM. The limit check and the increment happen in one
// conditional UPDATE so two concurrent creations cannot both pass a
// read-then-write check.
type GormUsageCounterRepository struct {
	db *gorm.DB
}

// NewGormUsageCounterRepository creates a new GormUsageCounterRepository
func NewGormUsageCounterRepository(db *gorm.DB) *GormUsageCounterRepository {
	return &GormUsageCounterRepository{db: db}
}

// TryIncrement atomically applies delta when count+delta stays within
// the limit. A negative limit means unlimited.
func (r *GormUsageCounterRepository) TryIncrement(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, delta, limit int64) error {
	if delta <= 0 {
		return shared.ErrInvalidInput
	}

	applied, err := r.conditionalIncrement(ctx, tenantID, kind, delta, limit)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	// No row was updated: the counter may not exist yet, or the limit
	// blocked the increment.
	exists, err := r.counterExists(ctx, tenantID, kind)
	if err != nil {
		return err
	}
	if exists {
		// The row may have been created after the first conditional
		// update missed it; retry once against the row before denying.
		applied, err := r.conditionalIncrement(ctx, tenantID, kind, delta, limit)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		return billing.ErrPlanLimitExceeded
	}

	if limit >= 0 && delta > limit {
		return billing.ErrPlanLimitExceeded
	}

	counter, err := billing.NewUsageCounter(tenantID, kind)
	if err != nil {
		return err
	}
	counter.Count = delta
	if err := r.db.WithContext(ctx).Create(counter).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the race to create the row; retry the conditional
			// update against it.
			applied, err := r.conditionalIncrement(ctx, tenantID, kind, delta, limit)
			if err != nil {
				return err
			}
			if !applied {
				return billing.ErrPlanLimitExceeded
			}
			return nil
		}
		return err
	}
	return nil
}

func (r *GormUsageCounterRepository) conditionalIncrement(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, delta, limit int64) (bool, error) {
	query := r.db.WithContext(ctx).Model(&billing.UsageCounter{}).
		Where("tenant_id = ? AND resource_kind = ?", tenantID, kind)
	if limit >= 0 {
		query = query.Where("count + ? <= ?", delta, limit)
	}
	result := query.Updates(map[string]any{
		"count":      gorm.Expr("count + ?", delta),
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormUsageCounterRepository) counterExists(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&billing.UsageCounter{}).
		Where("tenant_id = ? AND resource_kind = ?", tenantID, kind).
		Count(&count).Error
	return count > 0, err
}

// Decrement releases usage, clamped at zero
func (r *GormUsageCounterRepository) Decrement(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, delta int64) error {
	if delta <= 0 {
		return shared.ErrInvalidInput
	}
	return r.db.WithContext(ctx).Model(&billing.UsageCounter{}).
		Where("tenant_id = ? AND resource_kind = ?", tenantID, kind).
		Updates(map[string]any{
			"count":      gorm.Expr("CASE WHEN count - ? < 0 THEN 0 ELSE count - ? END", delta, delta),
			"updated_at": time.Now(),
		}).Error
}

// Get returns the counter for a tenant resource
func (r *GormUsageCounterRepository) Get(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind) (*billing.UsageCounter, error) {
	var counter billing.UsageCounter
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND resource_kind = ?", tenantID, kind).
		First(&counter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &counter, nil
}
