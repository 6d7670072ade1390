package tenancy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/gridpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// TenantService handles tenant signup and lifecycle administration
type TenantService struct {
	tenantRepo   tenancy.TenantRepository
	registry     tenancy.SchemaRegistry
	planRepo     billing.PlanRepository
	subRepo      billing.SubscriptionRepository
	provisioning *ProvisioningService
	eventBus     shared.EventPublisher
	billingCfg   config.BillingConfig
	tenancyCfg   config.TenancyConfig
	logger       *zap.Logger
}

// NewTenantService creates a new TenantService
func NewTenantService(
	tenantRepo tenancy.TenantRepository,
	registry tenancy.SchemaRegistry,
	planRepo billing.PlanRepository,
	subRepo billing.SubscriptionRepository,
	provisioning *ProvisioningService,
	eventBus shared.EventPublisher,
	billingCfg config.BillingConfig,
	tenancyCfg config.TenancyConfig,
	logger *zap.Logger,
) *TenantService {
	return &TenantService{
		tenantRepo:   tenantRepo,
		registry:     registry,
		planRepo:     planRepo,
		subRepo:      subRepo,
		provisioning: provisioning,
		eventBus:     eventBus,
		billingCfg:   billingCfg,
		tenancyCfg:   tenancyCfg,
		logger:       logger,
	}
}

// Signup creates a tenant with its trial subscription and kicks off
// schema provisioning in the background. The tenant stays in
// provisioning status and does not resolve until the schema is ready.
func (s *TenantService) Signup(ctx context.Context, req SignupRequest) (*TenantResponse, error) {
	code := strings.ToLower(strings.TrimSpace(req.Code))
	for _, reserved := range s.tenancyCfg.ReservedSubdomains {
		if code == reserved {
			return nil, shared.NewDomainError("RESERVED_CODE", "Tenant code is reserved")
		}
	}

	if _, err := s.tenantRepo.FindByCode(ctx, code); err == nil {
		return nil, shared.ErrAlreadyExists
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	plan, err := s.planRepo.FindCurrentByCode(ctx, billing.PlanCode(req.PlanCode))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_PLAN", "Unknown plan code")
		}
		return nil, err
	}

	tenant, err := tenancy.NewTenant(code, req.Name)
	if err != nil {
		return nil, err
	}
	tenant.ContactEmail = req.ContactEmail

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}

	cycle := billing.BillingCycle(req.BillingCycle)
	if cycle == "" {
		cycle = billing.CycleMonthly
	}
	sub, err := billing.NewTrialSubscription(tenant.ID, plan, cycle, s.billingCfg.TrialDays, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}

	s.publish(ctx, tenant.GetDomainEvents())
	tenant.ClearDomainEvents()
	s.publish(ctx, sub.GetDomainEvents())
	sub.ClearDomainEvents()

	// Provisioning runs off the request path; the sweeper retries it
	// if this attempt dies with the process.
	go func(tenantID uuid.UUID) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.provisioning.Provision(ctx, tenantID); err != nil {
			s.logger.Error("background provisioning failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}(tenant.ID)

	return NewTenantResponse(tenant, nil), nil
}

// Get returns a tenant with its domains
func (s *TenantService) Get(ctx context.Context, tenantID uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	binding, err := s.registry.FindByTenant(ctx, tenantID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	return NewTenantResponse(tenant, binding), nil
}

// List returns tenants filtered by status
func (s *TenantService) List(ctx context.Context, status string, offset, limit int) (*TenantListResponse, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	tenants, total, err := s.tenantRepo.List(ctx, tenancy.TenantStatus(status), offset, limit)
	if err != nil {
		return nil, err
	}

	resp := &TenantListResponse{
		Tenants: make([]*TenantResponse, 0, len(tenants)),
		Total:   total,
		Offset:  offset,
		Limit:   limit,
	}
	for _, t := range tenants {
		resp.Tenants = append(resp.Tenants, NewTenantResponse(t, nil))
	}
	return resp, nil
}

// Suspend suspends a tenant
func (s *TenantService) Suspend(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := tenant.Suspend(); err != nil {
		return err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return err
	}
	s.publish(ctx, tenant.GetDomainEvents())
	tenant.ClearDomainEvents()
	return nil
}

// Activate reactivates a suspended tenant
func (s *TenantService) Activate(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := tenant.Activate(); err != nil {
		return err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return err
	}
	s.publish(ctx, tenant.GetDomainEvents())
	tenant.ClearDomainEvents()
	return nil
}

// Provision retries schema provisioning for a tenant whose earlier
// attempt failed. Runs synchronously so the operator sees the outcome;
// the provisioning steps are idempotent and converge on retry.
func (s *TenantService) Provision(ctx context.Context, tenantID uuid.UUID) error {
	return s.provisioning.Provision(ctx, tenantID)
}

// Archive archives a tenant and cancels its subscription. The schema
// is kept for the retention window.
func (s *TenantService) Archive(ctx context.Context, tenantID uuid.UUID) error {
	if err := s.provisioning.Deprovision(ctx, tenantID); err != nil {
		return err
	}

	sub, err := s.subRepo.FindLiveByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := sub.Cancel(time.Now()); err != nil {
		return err
	}
	if err := s.subRepo.Save(ctx, sub); err != nil {
		return err
	}
	s.publish(ctx, sub.GetDomainEvents())
	sub.ClearDomainEvents()
	return nil
}

// AddDomain binds an extra hostname to a tenant's schema
func (s *TenantService) AddDomain(ctx context.Context, tenantID uuid.UUID, hostname string) error {
	binding, err := s.registry.FindByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := binding.AddDomain(hostname); err != nil {
		return err
	}
	// Re-registering through the registry keeps the uniqueness checks
	// in one place.
	return s.registry.SaveBinding(ctx, binding)
}

func (s *TenantService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish events", zap.Error(err))
	}
}
