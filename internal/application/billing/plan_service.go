package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/gridpos/backend/internal/domain/shared"
)

// PlanService exposes the plan catalog and subscription views
type PlanService struct {
	planRepo    billing.PlanRepository
	subRepo     billing.SubscriptionRepository
	invoiceRepo billing.InvoiceRepository
}

// NewPlanService creates a new PlanService
func NewPlanService(planRepo billing.PlanRepository, subRepo billing.SubscriptionRepository, invoiceRepo billing.InvoiceRepository) *PlanService {
	return &PlanService{
		planRepo:    planRepo,
		subRepo:     subRepo,
		invoiceRepo: invoiceRepo,
	}
}

// ListPlans returns the current version of every offered plan
func (s *PlanService) ListPlans(ctx context.Context) ([]*PlanResponse, error) {
	plans, err := s.planRepo.ListCurrent(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, NewPlanResponse(p))
	}
	return out, nil
}

// UpsertPlan publishes a new version of a plan. The first version is
// created outright; later calls supersede the current version so rows
// referenced by live subscriptions are never edited in place.
func (s *PlanService) UpsertPlan(ctx context.Context, req UpsertPlanRequest) (*PlanResponse, error) {
	caps := make([]billing.Capability, 0, len(req.Capabilities))
	for _, c := range req.Capabilities {
		caps = append(caps, billing.Capability(c))
	}

	current, err := s.planRepo.FindCurrentByCode(ctx, billing.PlanCode(req.Code))
	if errors.Is(err, shared.ErrNotFound) {
		plan, err := billing.NewSubscriptionPlan(
			billing.PlanCode(req.Code), req.Name,
			req.MonthlyPrice, req.YearlyPrice, req.Limits, caps...,
		)
		if err != nil {
			return nil, err
		}
		if err := s.planRepo.Save(ctx, plan); err != nil {
			return nil, err
		}
		return NewPlanResponse(plan), nil
	}
	if err != nil {
		return nil, err
	}

	next, err := current.Supersede(req.Name, req.MonthlyPrice, req.YearlyPrice, req.Limits, caps...)
	if err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, current); err != nil {
		return nil, err
	}
	if err := s.planRepo.Save(ctx, next); err != nil {
		return nil, err
	}
	return NewPlanResponse(next), nil
}

// GetSubscription returns the tenant's live subscription
func (s *PlanService) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*SubscriptionResponse, error) {
	sub, err := s.subRepo.FindLiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return NewSubscriptionResponse(sub), nil
}

// ListInvoices returns the tenant's invoices, newest first
func (s *PlanService) ListInvoices(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]*InvoiceResponse, int64, error) {
	invoices, total, err := s.invoiceRepo.ListByTenant(ctx, tenantID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, NewInvoiceResponse(inv))
	}
	return out, total, nil
}
