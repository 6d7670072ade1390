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

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Save persists a subscription
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		if isUniqueViolation(err) {
			// The partial unique index enforces one live subscription
			// per tenant.
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a subscription by its ID
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := r.db.WithContext(ctx).First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindLiveByTenant returns the tenant's non-canceled subscription
func (r *GormSubscriptionRepository) FindLiveByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND state <> ?", tenantID, billing.StateCanceled).
		First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// FindDueForEvaluation returns live subscriptions with a pending
// lifecycle deadline: trial end, period end or scheduled cancellation.
// Grace window expiry is evaluated in memory by the sweeper since the
// deadline depends on configuration.
func (r *GormSubscriptionRepository) FindDueForEvaluation(ctx context.Context, now time.Time, limit int) ([]*billing.Subscription, error) {
	var subs []*billing.Subscription
	if err := r.db.WithContext(ctx).
		Where("state <> ?", billing.StateCanceled).
		Where(
			r.db.Where("trial_end IS NOT NULL AND trial_end <= ? AND state = ?", now, billing.StateTrialing).
				Or("current_period_end <= ? AND state IN ?", now, []billing.SubscriptionState{billing.StateActive, billing.StatePastDue}).
				Or("cancel_at IS NOT NULL AND cancel_at <= ?", now).
				Or("state = ?", billing.StatePastDue),
		).
		Order("current_period_end ASC").
		Limit(limit).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
