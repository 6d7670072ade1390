package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/gridpos/backend/internal/domain/tenancy"
	"github.com/gridpos/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// LifecycleService drives time-based subscription transitions: trial
// expiry, period rollover with invoice generation, grace window expiry
// and scheduled cancellations. Suspension happens here and only here;
// payment failure events never suspend directly.
type LifecycleService struct {
	subRepo     billing.SubscriptionRepository
	planRepo    billing.PlanRepository
	invoiceRepo billing.InvoiceRepository
	tenantRepo  tenancy.TenantRepository
	eventBus    shared.EventPublisher
	cfg         config.BillingConfig
	logger      *zap.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(
	subRepo billing.SubscriptionRepository,
	planRepo billing.PlanRepository,
	invoiceRepo billing.InvoiceRepository,
	tenantRepo tenancy.TenantRepository,
	eventBus shared.EventPublisher,
	cfg config.BillingConfig,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		subRepo:     subRepo,
		planRepo:    planRepo,
		invoiceRepo: invoiceRepo,
		tenantRepo:  tenantRepo,
		eventBus:    eventBus,
		cfg:         cfg,
		logger:      logger,
	}
}

// EvaluateDue sweeps subscriptions with a pending lifecycle deadline
// and applies whatever transitions the clock demands. Returns the
// number of subscriptions that changed.
func (s *LifecycleService) EvaluateDue(ctx context.Context, now time.Time, batchSize int) (int, error) {
	subs, err := s.subRepo.FindDueForEvaluation(ctx, now, batchSize)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, sub := range subs {
		if err := s.evaluateOne(ctx, sub, now); err != nil {
			s.logger.Error("subscription evaluation failed",
				zap.String("subscription_id", sub.ID.String()),
				zap.String("tenant_id", sub.TenantID.String()),
				zap.Error(err),
			)
			continue
		}
		changed++
	}
	return changed, nil
}

func (s *LifecycleService) evaluateOne(ctx context.Context, sub *billing.Subscription, now time.Time) error {
	before := sub.State

	if err := sub.EvaluateScheduledCancellation(now); err != nil {
		return err
	}

	if sub.State == billing.StateTrialing {
		if err := sub.EvaluateTrialEnd(now); err != nil {
			return err
		}
		if sub.State != billing.StateTrialing {
			// Trial just ended; open the first paid period.
			if err := s.openNextPeriod(ctx, sub, now); err != nil {
				return err
			}
		}
	}

	if sub.State == billing.StateActive && sub.PeriodElapsed(now) {
		open, err := s.invoiceRepo.FindOpenBySubscription(ctx, sub.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if open != nil && open.CoversPeriod(sub.CurrentPeriodStart, sub.CurrentPeriodEnd) {
			// The elapsed period was never paid.
			if err := sub.MarkPastDue(now); err != nil {
				return err
			}
		} else {
			if err := s.openNextPeriod(ctx, sub, now); err != nil {
				return err
			}
		}
	}

	if sub.State == billing.StatePastDue {
		if err := sub.EvaluateGraceWindow(s.cfg.GraceWindow, now); err != nil {
			return err
		}
		if sub.State == billing.StateSuspended {
			if err := s.suspendTenant(ctx, sub.TenantID); err != nil {
				return err
			}
		}
	}

	if err := s.subRepo.Save(ctx, sub); err != nil {
		return err
	}
	s.publish(ctx, sub.GetDomainEvents())
	sub.ClearDomainEvents()

	if sub.State != before {
		s.logger.Info("subscription transitioned",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("tenant_id", sub.TenantID.String()),
			zap.String("from", string(before)),
			zap.String("to", string(sub.State)),
		)
	}
	return nil
}

// openNextPeriod rolls the billing period forward and opens its invoice
func (s *LifecycleService) openNextPeriod(ctx context.Context, sub *billing.Subscription, now time.Time) error {
	plan, err := s.planRepo.FindByID(ctx, sub.PlanID)
	if err != nil {
		return err
	}

	sub.RolloverPeriod(now)

	invoice, err := billing.NewInvoice(sub, plan, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	if err != nil {
		return err
	}
	return s.invoiceRepo.Save(ctx, invoice)
}

// suspendTenant mirrors a subscription suspension onto the tenant so
// resolution-level checks deny the tenant too.
func (s *LifecycleService) suspendTenant(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.IsSuspended() || tenant.IsArchived() {
		return nil
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

// ChangePlan switches a live subscription to the current version of
// another plan. The new price applies from the next period; the state
// machine is untouched.
func (s *LifecycleService) ChangePlan(ctx context.Context, tenantID uuid.UUID, code billing.PlanCode) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindLiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.planRepo.FindCurrentByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	sub.PlanID = plan.ID
	sub.PlanCode = plan.Code
	sub.UpdatedAt = time.Now()
	sub.IncrementVersion()

	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return NewSubscriptionResponse(sub), nil
}

// CancelSubscription schedules or executes a cancellation
func (s *LifecycleService) CancelSubscription(ctx context.Context, tenantID uuid.UUID, at *time.Time) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindLiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if at == nil {
		if err := sub.Cancel(time.Now()); err != nil {
			return nil, err
		}
	} else {
		if err := sub.ScheduleCancellation(*at); err != nil {
			return nil, err
		}
	}

	if err := s.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	s.publish(ctx, sub.GetDomainEvents())
	sub.ClearDomainEvents()
	return NewSubscriptionResponse(sub), nil
}

func (s *LifecycleService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish events", zap.Error(err))
	}
}
