package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PlanRepository persists subscription plans in the shared partition
type PlanRepository interface {
	Save(ctx context.Context, plan *SubscriptionPlan) error
	FindByID(ctx context.Context, id uuid.UUID) (*SubscriptionPlan, error)
	FindCurrentByCode(ctx context.Context, code PlanCode) (*SubscriptionPlan, error)
	ListCurrent(ctx context.Context) ([]*SubscriptionPlan, error)
	// SeedDefaults inserts the stock plans if no current version of
	// the code exists. Idempotent.
	SeedDefaults(ctx context.Context) error
}

// SubscriptionRepository persists subscriptions in the shared partition
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	// FindLiveByTenant returns the tenant's one non-canceled
	// subscription, or shared.ErrNotFound.
	FindLiveByTenant(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	// FindDueForEvaluation returns live subscriptions whose trial end,
	// period end or cancel_at has passed.
	FindDueForEvaluation(ctx context.Context, now time.Time, limit int) ([]*Subscription, error)
}

// InvoiceRepository persists invoices in the shared partition
type InvoiceRepository interface {
	Save(ctx context.Context, inv *Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindOpenBySubscription returns the newest open invoice for a
	// subscription, or shared.ErrNotFound.
	FindOpenBySubscription(ctx context.Context, subscriptionID uuid.UUID) (*Invoice, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]*Invoice, int64, error)
}

// PaymentEventRepository is append-only storage for gateway callbacks
type PaymentEventRepository interface {
	// Insert stores a new event. Returns ErrDuplicateBillingEvent when
	// (provider, external id) was seen before.
	Insert(ctx context.Context, event *PaymentEvent) error
	FindByDedupKey(ctx context.Context, provider, externalID string) (*PaymentEvent, error)
	// MarkProcessed flips the processed flag and links the settled
	// invoice. The only permitted mutation.
	MarkProcessed(ctx context.Context, eventID, invoiceID, tenantID uuid.UUID) error
	ListUnprocessed(ctx context.Context, offset, limit int) ([]*PaymentEvent, int64, error)
}

// UsageCounterRepository maintains per-tenant resource counts. The
// check-and-increment must be a single atomic conditional update so
// that concurrent creations cannot jointly pass a limit check.
type UsageCounterRepository interface {
	// TryIncrement atomically applies delta if count+delta <= limit
	// (limit < 0 means unlimited). Returns ErrPlanLimitExceeded when
	// the condition fails; creates the counter row on first use.
	TryIncrement(ctx context.Context, tenantID uuid.UUID, kind ResourceKind, delta, limit int64) error

	// Decrement releases usage (e.g. on resource deletion); never goes
	// below zero.
	Decrement(ctx context.Context, tenantID uuid.UUID, kind ResourceKind, delta int64) error

	Get(ctx context.Context, tenantID uuid.UUID, kind ResourceKind) (*UsageCounter, error)
}
