package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/gridpos/backend/internal/infrastructure/config"
)

// EntitlementService answers "may this tenant do X right now". Checks
// combine tenant lifecycle status, subscription state and plan
// contents. Resource consumption goes through the atomic counter so a
// limit cannot be overshot by concurrent requests.
type EntitlementService struct {
	tenantRepo tenancy.TenantRepository
	subRepo    billing.SubscriptionRepository
	planRepo   billing.PlanRepository
	counters   billing.UsageCounterRepository
	cfg        config.BillingConfig
}

// NewEntitlementService creates a new EntitlementService
func NewEntitlementService(
	tenantRepo tenancy.TenantRepository,
	subRepo billing.SubscriptionRepository,
	planRepo billing.PlanRepository,
	counters billing.UsageCounterRepository,
	cfg config.BillingConfig,
) *EntitlementService {
	return &EntitlementService{
		tenantRepo: tenantRepo,
		subRepo:    subRepo,
		planRepo:   planRepo,
		counters:   counters,
		cfg:        cfg,
	}
}

// CheckAccess verifies the tenant may perform an operation. Reads
// survive past_due under the read_only policy; everything else
// requires a trialing or active subscription on an active tenant.
func (s *EntitlementService) CheckAccess(ctx context.Context, tenantID uuid.UUID, write bool) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return tenancy.ErrUnknownTenant
		}
		return err
	}

	switch tenant.Status {
	case tenancy.TenantStatusArchived:
		return tenancy.ErrTenantArchived
	case tenancy.TenantStatusSuspended:
		return tenancy.ErrTenantSuspended
	case tenancy.TenantStatusProvisioning:
		return tenancy.ErrProvisioningInProgress
	}

	sub, err := s.subRepo.FindLiveByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return billing.ErrSubscriptionNotActive
		}
		return err
	}

	switch sub.State {
	case billing.StateTrialing, billing.StateActive:
		return nil
	case billing.StatePastDue:
		if s.cfg.PastDuePolicy == "block_all" {
			return billing.ErrSubscriptionNotActive
		}
		if write {
			return billing.ErrSubscriptionNotActive
		}
		return nil
	default:
		return billing.ErrSubscriptionNotActive
	}
}

// CheckCapability verifies the tenant's plan includes a feature flag
func (s *EntitlementService) CheckCapability(ctx context.Context, tenantID uuid.UUID, capability billing.Capability) error {
	if !capability.IsValid() {
		return shared.NewDomainError("INVALID_CAPABILITY", "Unknown capability flag")
	}

	_, plan, err := s.subscriptionAndPlan(ctx, tenantID)
	if err != nil {
		return err
	}
	if !plan.HasCapability(capability) {
		return billing.ErrFeatureNotInPlan
	}
	return nil
}

// ConsumeResource reserves capacity for creating delta resources of a
// kind. The check and the increment are one conditional update; on
// ErrPlanLimitExceeded nothing was consumed.
func (s *EntitlementService) ConsumeResource(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, delta int64) error {
	if err := s.CheckAccess(ctx, tenantID, true); err != nil {
		return err
	}

	_, plan, err := s.subscriptionAndPlan(ctx, tenantID)
	if err != nil {
		return err
	}

	limit := plan.Limits.LimitFor(kind)
	return s.counters.TryIncrement(ctx, tenantID, kind, delta, limit)
}

// ReleaseResource returns capacity after resources are deleted
func (s *EntitlementService) ReleaseResource(ctx context.Context, tenantID uuid.UUID, kind billing.ResourceKind, delta int64) error {
	return s.counters.Decrement(ctx, tenantID, kind, delta)
}

// Entitlements returns the effective entitlement snapshot for a tenant
func (s *EntitlementService) Entitlements(ctx context.Context, tenantID uuid.UUID) (*EntitlementResponse, error) {
	sub, plan, err := s.subscriptionAndPlan(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	writesDenied := s.CheckAccess(ctx, tenantID, true) != nil

	caps := make([]string, 0, len(plan.Capabilities))
	for _, c := range plan.Capabilities {
		caps = append(caps, string(c))
	}

	usage := make(map[string]int64)
	limits := make(map[string]int64)
	for _, kind := range billing.AllResourceKinds() {
		limits[string(kind)] = plan.Limits.LimitFor(kind)
		counter, err := s.counters.Get(ctx, tenantID, kind)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				usage[string(kind)] = 0
				continue
			}
			return nil, err
		}
		usage[string(kind)] = counter.Count
	}

	return &EntitlementResponse{
		TenantID:     tenantID,
		PlanCode:     string(plan.Code),
		State:        string(sub.State),
		WritesDenied: writesDenied,
		Capabilities: caps,
		Usage:        usage,
		Limits:       limits,
	}, nil
}

func (s *EntitlementService) subscriptionAndPlan(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, *billing.SubscriptionPlan, error) {
	sub, err := s.subRepo.FindLiveByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, billing.ErrSubscriptionNotActive
		}
		return nil, nil, err
	}
	plan, err := s.planRepo.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return sub, plan, nil
}
