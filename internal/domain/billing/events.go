package billing

import (
	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
)

// Event types published by the billing aggregates
const (
	EventTypeSubscriptionStateChanged = "billing.subscription.state_changed"
	EventTypeInvoicePaid              = "billing.invoice.paid"
	EventTypePaymentEventUnmatched    = "billing.payment_event.unmatched"
)

// SubscriptionStateChangedEvent is published on every state machine
// transition.
type SubscriptionStateChangedEvent struct {
	shared.BaseDomainEvent
	OldState SubscriptionState `json:"old_state"`
	NewState SubscriptionState `json:"new_state"`
	PlanCode PlanCode          `json:"plan_code"`
}

// NewSubscriptionStateChangedEvent creates a SubscriptionStateChangedEvent
func NewSubscriptionStateChangedEvent(s *Subscription, from, to SubscriptionState) *SubscriptionStateChangedEvent {
	return &SubscriptionStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSubscriptionStateChanged, "Subscription", s.ID, s.TenantID),
		OldState:        from,
		NewState:        to,
		PlanCode:        s.PlanCode,
	}
}

// InvoicePaidEvent is published when an invoice settles
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// NewInvoicePaidEvent creates an InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, "Invoice", inv.ID, inv.TenantID),
		Amount:          inv.Amount.String(),
		Currency:        inv.Currency,
	}
}

// PaymentEventUnmatchedEvent flags a gateway callback that could not
// be reconciled automatically.
type PaymentEventUnmatchedEvent struct {
	shared.BaseDomainEvent
	Provider   string `json:"provider"`
	ExternalID string `json:"external_id"`
}

// NewPaymentEventUnmatchedEvent creates a PaymentEventUnmatchedEvent
func NewPaymentEventUnmatchedEvent(pe *PaymentEvent) *PaymentEventUnmatchedEvent {
	tenantID := uuid.Nil
	if pe.TenantRef != nil {
		tenantID = *pe.TenantRef
	}
	return &PaymentEventUnmatchedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentEventUnmatched, "PaymentEvent", pe.ID, tenantID),
		Provider:        pe.Provider,
		ExternalID:      pe.ExternalID,
	}
}
