package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
)

// SubscriptionState is the lifecycle state of a subscription
type SubscriptionState string

const (
	StateTrialing  SubscriptionState = "trialing"
	StateActive    SubscriptionState = "active"
	StatePastDue   SubscriptionState = "past_due"
	StateSuspended SubscriptionState = "suspended"
	StateCanceled  SubscriptionState = "canceled"
)

// IsValid returns true for a known state
func (s SubscriptionState) IsValid() bool {
	switch s {
	case StateTrialing, StateActive, StatePastDue, StateSuspended, StateCanceled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are possible
func (s SubscriptionState) IsTerminal() bool {
	return s == StateCanceled
}

// BillingCycle is the invoicing period of a subscription
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleYearly  BillingCycle = "yearly"
)

// IsValid returns true for a known cycle
func (c BillingCycle) IsValid() bool {
	return c == CycleMonthly || c == CycleYearly
}

// PeriodAfter returns the end of a billing period starting at the
// given time.
func (c BillingCycle) PeriodAfter(start time.Time) time.Time {
	if c == CycleYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// ErrSubscriptionNotActive is returned by entitlement checks when the
// subscription state forbids the operation.
var ErrSubscriptionNotActive = shared.NewDomainError("SUBSCRIPTION_NOT_ACTIVE", "Subscription is not active")

// ErrInvalidTransition is returned on a state machine violation
var ErrInvalidTransition = shared.NewDomainError("INVALID_TRANSITION", "Subscription state transition not allowed")

// Subscription tracks a tenant's plan, billing cycle and lifecycle
// state. Exactly one non-archived subscription exists per tenant.
//
// State machine:
//
//	trialing -> active    (payment on file at trial end)
//	trialing -> past_due  (trial ended unpaid)
//	active   -> past_due  (period invoice unpaid past grace start)
//	past_due -> active    (payment recovered)
//	past_due -> suspended (grace window elapsed)
//	suspended -> active   (payment recovered)
//	any      -> canceled  (explicit or cancel_at reached; terminal)
type Subscription struct {
	shared.BaseAggregateRoot
	TenantID           uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_subscriptions_tenant_live,where:state <> 'canceled'"`
	PlanID             uuid.UUID         `gorm:"type:uuid;not null;index"`
	PlanCode           PlanCode          `gorm:"type:varchar(20);not null"`
	State              SubscriptionState `gorm:"type:varchar(20);not null;default:'trialing'"`
	Cycle              BillingCycle      `gorm:"type:varchar(10);not null;default:'monthly'"`
	TrialEnd           *time.Time        `gorm:"index"`
	CurrentPeriodStart time.Time         `gorm:"not null"`
	CurrentPeriodEnd   time.Time         `gorm:"not null;index"`
	PastDueSince       *time.Time
	CancelAt           *time.Time `gorm:"index"`
	CanceledAt         *time.Time
	PaymentOnFile      bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// NewTrialSubscription starts a subscription in trialing state
func NewTrialSubscription(tenantID uuid.UUID, plan *SubscriptionPlan, cycle BillingCycle, trialDays int, now time.Time) (*Subscription, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if plan == nil {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan is required")
	}
	if !cycle.IsValid() {
		return nil, shared.NewDomainError("INVALID_CYCLE", "Unknown billing cycle")
	}
	if trialDays <= 0 {
		return nil, shared.NewDomainError("INVALID_TRIAL_DAYS", "Trial days must be positive")
	}

	trialEnd := now.AddDate(0, 0, trialDays)
	sub := &Subscription{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		TenantID:           tenantID,
		PlanID:             plan.ID,
		PlanCode:           plan.Code,
		State:              StateTrialing,
		Cycle:              cycle,
		TrialEnd:           &trialEnd,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   trialEnd,
	}
	sub.AddDomainEvent(NewSubscriptionStateChangedEvent(sub, "", StateTrialing))
	return sub, nil
}

// transition applies a state change after checking it is legal
func (s *Subscription) transition(to SubscriptionState, now time.Time) error {
	if s.State.IsTerminal() {
		return ErrInvalidTransition
	}
	legal := map[SubscriptionState][]SubscriptionState{
		StateTrialing:  {StateActive, StatePastDue, StateCanceled},
		StateActive:    {StatePastDue, StateCanceled},
		StatePastDue:   {StateActive, StateSuspended, StateCanceled},
		StateSuspended: {StateActive, StateCanceled},
	}
	for _, allowed := range legal[s.State] {
		if allowed == to {
			from := s.State
			s.State = to
			s.UpdatedAt = now
			s.IncrementVersion()
			s.AddDomainEvent(NewSubscriptionStateChangedEvent(s, from, to))
			return nil
		}
	}
	return ErrInvalidTransition
}

// MarkPaid records a successful payment for the current period and
// drives the recovery transitions.
func (s *Subscription) MarkPaid(now time.Time) error {
	s.PaymentOnFile = true
	s.PastDueSince = nil

	switch s.State {
	case StateTrialing, StatePastDue, StateSuspended:
		return s.transition(StateActive, now)
	case StateActive:
		// Already active, payment just renews the period.
		s.UpdatedAt = now
		s.IncrementVersion()
		return nil
	}
	return ErrInvalidTransition
}

// EvaluateTrialEnd moves an expired trial to active or past_due
// depending on whether a payment method is on file.
func (s *Subscription) EvaluateTrialEnd(now time.Time) error {
	if s.State != StateTrialing || s.TrialEnd == nil || now.Before(*s.TrialEnd) {
		return nil
	}
	if s.PaymentOnFile {
		return s.transition(StateActive, now)
	}
	since := *s.TrialEnd
	s.PastDueSince = &since
	return s.transition(StatePastDue, now)
}

// MarkPastDue records an unpaid period
func (s *Subscription) MarkPastDue(now time.Time) error {
	if s.State != StateActive {
		return ErrInvalidTransition
	}
	since := now
	s.PastDueSince = &since
	return s.transition(StatePastDue, now)
}

// EvaluateGraceWindow suspends a past_due subscription once the grace
// window has elapsed unpaid.
func (s *Subscription) EvaluateGraceWindow(grace time.Duration, now time.Time) error {
	if s.State != StatePastDue || s.PastDueSince == nil {
		return nil
	}
	if now.Sub(*s.PastDueSince) < grace {
		return nil
	}
	return s.transition(StateSuspended, now)
}

// RolloverPeriod advances the billing period after a period boundary.
// The caller is responsible for issuing the new period's invoice.
func (s *Subscription) RolloverPeriod(now time.Time) {
	s.CurrentPeriodStart = s.CurrentPeriodEnd
	s.CurrentPeriodEnd = s.Cycle.PeriodAfter(s.CurrentPeriodStart)
	s.UpdatedAt = now
	s.IncrementVersion()
}

// Cancel terminates the subscription immediately
func (s *Subscription) Cancel(now time.Time) error {
	if err := s.transition(StateCanceled, now); err != nil {
		return err
	}
	canceled := now
	s.CanceledAt = &canceled
	return nil
}

// ScheduleCancellation cancels at a future instant
func (s *Subscription) ScheduleCancellation(at time.Time) error {
	if s.State.IsTerminal() {
		return ErrInvalidTransition
	}
	s.CancelAt = &at
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// EvaluateScheduledCancellation cancels when cancel_at is reached
func (s *Subscription) EvaluateScheduledCancellation(now time.Time) error {
	if s.CancelAt == nil || now.Before(*s.CancelAt) || s.State.IsTerminal() {
		return nil
	}
	return s.Cancel(now)
}

// PeriodElapsed reports whether the current period has ended
func (s *Subscription) PeriodElapsed(now time.Time) bool {
	return !now.Before(s.CurrentPeriodEnd)
}

// IsLive returns true unless the subscription is canceled
func (s *Subscription) IsLive() bool {
	return s.State != StateCanceled
}
