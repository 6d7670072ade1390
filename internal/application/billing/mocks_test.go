package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/stretchr/testify/mock"
)

// Mock implementations

type mockTenantRepository struct {
	mock.Mock
}

func (m *mockTenantRepository) Save(ctx context.Context, tenant *tenancy.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *mockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.Tenant), args.Error(1)
}

func (m *mockTenantRepository) FindByCode(ctx context.Context, code string) (*tenancy.Tenant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenancy.Tenant), args.Error(1)
}

func (m *mockTenantRepository) List(ctx context.Context, status tenancy.TenantStatus, offset, limit int) ([]*tenancy.Tenant, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*tenancy.Tenant), args.Get(1).(int64), args.Error(2)
}

func (m *mockTenantRepository) FindArchivedBefore(ctx context.Context, cutoff time.Time) ([]*tenancy.Tenant, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tenancy.Tenant), args.Error(1)
}

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) FindLiveByTenant(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) FindDueForEvaluation(ctx context.Context, now time.Time, limit int) ([]*billing.Subscription, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Subscription), args.Error(1)
}

type mockPlanRepository struct {
	mock.Mock
}

func (m *mockPlanRepository) Save(ctx context.Context, plan *billing.SubscriptionPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *mockPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.SubscriptionPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionPlan), args.Error(1)
}

func (m *mockPlanRepository) FindCurrentByCode(ctx context.Context, code billing.PlanCode) (*billing.SubscriptionPlan, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionPlan), args.Error(1)
}

func (m *mockPlanRepository) ListCurrent(ctx context.Context) ([]*billing.SubscriptionPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.SubscriptionPlan), args.Error(1)
}

func (m *mockPlanRepository) SeedDefaults(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) Save(ctx context.Context, inv *billing.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) FindOpenBySubscription(ctx context.Context, subscriptionID uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]*billing.Invoice, int64, error) {
	args := m.Called(ctx, tenantID, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*billing.Invoice), args.Get(1).(int64), args.Error(2)
}

type mockPaymentEventRepository struct {
	mock.Mock
}

func (m *mockPaymentEventRepository) Insert(ctx context.Context, event *billing.PaymentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPaymentEventRepository) FindByDedupKey(ctx context.Context, provider, externalID string) (*billing.PaymentEvent, error) {
	args := m.Called(ctx, provider, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentEvent), args.Error(1)
}

func (m *mockPaymentEventRepository) MarkProcessed(ctx context.Context, eventID, invoiceID, tenantID uuid.UUID) error {
	args := m.Called(ctx, eventID, invoiceID, tenantID)
	return args.Error(0)
}

func (m *mockPaymentEventRepository) ListUnprocessed(ctx context.Context, offset, limit int) ([]*billing.PaymentEvent, int64, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*billing.PaymentEvent), args.Get(1).(int64), args.Error(2)
}

type mockUsageCounterRepository struct {
	mock.Mock
}

func (m *mockUsageCounterRepository) TryIncrement(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, delta, limit int64) error {
	args := m.Called(ctx, tenantID, kind, delta, limit)
	return args.Error(0)
}

func (m *mockUsageCounterRepository) Decrement(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, delta int64) error {
	args := m.Called(ctx, tenantID, kind, delta)
	return args.Error(0)
}

func (m *mockUsageCounterRepository) Get(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind) (*billing.UsageCounter, error) {
	args := m.Called(ctx, tenantID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.UsageCounter), args.Error(1)
}

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}
