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

// GormPaymentEventRepository implements billing.PaymentEventRepository
// using GORM. The (provider, external_id) unique index is the dedup
// authority; the cache in front of it is only a fast path.
type GormPaymentEventRepository struct {
	db *gorm.DB
}

// NewGormPaymentEventRepository creates a new GormPaymentEventRepository
func NewGormPaymentEventRepository(db *gorm.DB) *GormPaymentEventRepository {
	return &GormPaymentEventRepository{db: db}
}

// Insert appends a new event, mapping the unique violation to
// ErrDuplicateBillingEvent.
func (r *GormPaymentEventRepository) Insert(ctx context.Context, event *billing.PaymentEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if isUniqueViolation(err) {
			return billing.ErrDuplicateBillingEvent
		}
		return err
	}
	return nil
}

// FindByDedupKey looks up an event by its dedup key
func (r *GormPaymentEventRepository) FindByDedupKey(ctx context.Context, provider, externalID string) (*billing.PaymentEvent, error) {
	var event billing.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// MarkProcessed flips the processed flag and links the settled
// invoice. A Nil invoice ID records a consumed event with no
// settlement (failed or chargeback outcomes).
func (r *GormPaymentEventRepository) MarkProcessed(ctx context.Context, eventID, invoiceID, tenantID uuid.UUID) error {
	updates := map[string]any{
		"processed":  true,
		"tenant_ref": tenantID,
		"updated_at": time.Now(),
	}
	if invoiceID != uuid.Nil {
		updates["invoice_ref"] = invoiceID
	}
	result := r.db.WithContext(ctx).Model(&billing.PaymentEvent{}).
		Where("id = ? AND processed = ?", eventID, false).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListUnprocessed returns events awaiting manual review, oldest first
func (r *GormPaymentEventRepository) ListUnprocessed(ctx context.Context, offset, limit int) ([]*billing.PaymentEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&billing.PaymentEvent{}).Where("processed = ?", false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []*billing.PaymentEvent
	if err := query.Order("received_at ASC").Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
