package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPlanRepository implements billing.PlanRepository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// Save persists a plan version
func (r *GormPlanRepository) Save(ctx context.Context, plan *billing.SubscriptionPlan) error {
	if err := r.db.WithContext(ctx).Save(plan).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a plan version by its ID
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.SubscriptionPlan, error) {
	var plan billing.SubscriptionPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// FindCurrentByCode returns the current version of a plan code
func (r *GormPlanRepository) FindCurrentByCode(ctx context.Context, code billing.PlanCode) (*billing.SubscriptionPlan, error) {
	var plan billing.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("code = ? AND is_current = ?", code, true).
		Order("plan_version DESC").
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

// ListCurrent returns the current version of every plan
func (r *GormPlanRepository) ListCurrent(ctx context.Context) ([]*billing.SubscriptionPlan, error) {
	var plans []*billing.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("is_current = ?", true).
		Order("monthly_price ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// SeedDefaults inserts the stock plans for codes that have no version
// yet. Safe to call on every startup.
func (r *GormPlanRepository) SeedDefaults(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, plan := range billing.DefaultPlans() {
			var count int64
			if err := tx.Model(&billing.SubscriptionPlan{}).
				Where("code = ?", plan.Code).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(plan).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
