package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// CallbackRequest is the normalized body of a payment gateway callback.
// Gateway-specific field mapping happens at the edge; by the time a
// callback reaches the ingest service it has this shape.
type CallbackRequest struct {
	ExternalID string          `json:"external_id" binding:"required,max=200"`
	TenantCode string          `json:"tenant_code" binding:"omitempty,max=50"`
	InvoiceID  *uuid.UUID      `json:"invoice_id" binding:"omitempty"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Currency   string          `json:"currency" binding:"required,len=3"`
	Outcome    string          `json:"outcome" binding:"required,oneof=succeeded failed chargeback"`
	OccurredAt time.Time       `json:"occurred_at" binding:"required"`
}

// CallbackResult reports how a callback was handled
type CallbackResult struct {
	EventID   uuid.UUID `json:"event_id"`
	Duplicate bool      `json:"duplicate"`
	Matched   bool      `json:"matched"`
	InvoiceID uuid.UUID `json:"invoice_id,omitempty"`
}

// PlanResponse is the API view of a subscription plan
type PlanResponse struct {
	ID           uuid.UUID          `json:"id"`
	Code         string             `json:"code"`
	Version      int                `json:"version"`
	Name         string             `json:"name"`
	MonthlyPrice decimal.Decimal    `json:"monthly_price"`
	YearlyPrice  decimal.Decimal    `json:"yearly_price"`
	Currency     string             `json:"currency"`
	Limits       billing.PlanLimits `json:"limits"`
	Capabilities []string           `json:"capabilities"`
}

// NewPlanResponse converts a plan to a response
func NewPlanResponse(p *billing.SubscriptionPlan) *PlanResponse {
	caps := make([]string, 0, len(p.Capabilities))
	for _, c := range p.Capabilities {
		caps = append(caps, string(c))
	}
	return &PlanResponse{
		ID:           p.ID,
		Code:         string(p.Code),
		Version:      p.PlanVersion,
		Name:         p.Name,
		MonthlyPrice: p.MonthlyPrice,
		YearlyPrice:  p.YearlyPrice,
		Currency:     p.Currency,
		Limits:       p.Limits,
		Capabilities: caps,
	}
}

// UpsertPlanRequest publishes a new version of a plan. When a current
// version exists it is superseded; subscriptions keep the version they
// reference.
type UpsertPlanRequest struct {
	Code         string             `json:"code" binding:"required,oneof=basic pro enterprise"`
	Name         string             `json:"name" binding:"required,max=100"`
	MonthlyPrice decimal.Decimal    `json:"monthly_price" binding:"required"`
	YearlyPrice  decimal.Decimal    `json:"yearly_price" binding:"required"`
	Limits       billing.PlanLimits `json:"limits"`
	Capabilities []string           `json:"capabilities" binding:"omitempty,dive,oneof=advanced_reports api_access offline_support"`
}

// SubscriptionResponse is the API view of a subscription
type SubscriptionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           uuid.UUID  `json:"tenant_id"`
	PlanCode           string     `json:"plan_code"`
	State              string     `json:"state"`
	Cycle              string     `json:"cycle"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`
	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	PastDueSince       *time.Time `json:"past_due_since,omitempty"`
	CancelAt           *time.Time `json:"cancel_at,omitempty"`
}

// NewSubscriptionResponse converts a subscription to a response
func NewSubscriptionResponse(s *billing.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:                 s.ID,
		TenantID:           s.TenantID,
		PlanCode:           string(s.PlanCode),
		State:              string(s.State),
		Cycle:              string(s.Cycle),
		TrialEnd:           s.TrialEnd,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		PastDueSince:       s.PastDueSince,
		CancelAt:           s.CancelAt,
	}
}

// EntitlementResponse is the effective entitlement snapshot for a tenant
type EntitlementResponse struct {
	TenantID     uuid.UUID        `json:"tenant_id"`
	PlanCode     string           `json:"plan_code"`
	State        string           `json:"state"`
	WritesDenied bool             `json:"writes_denied"`
	Capabilities []string         `json:"capabilities"`
	Usage        map[string]int64 `json:"usage"`
	Limits       map[string]int64 `json:"limits"`
}

// ChangePlanRequest switches a tenant's subscription to another plan
type ChangePlanRequest struct {
	PlanCode string `json:"plan_code" binding:"required,oneof=basic pro enterprise"`
}

// CancelRequest cancels a subscription, optionally at a future time
type CancelRequest struct {
	At *time.Time `json:"at" binding:"omitempty"`
}

// InvoiceResponse is the API view of an invoice
type InvoiceResponse struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Status      string          `json:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
}

// NewInvoiceResponse converts an invoice to a response
func NewInvoiceResponse(i *billing.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:          i.ID,
		TenantID:    i.TenantID,
		Amount:      i.Amount,
		Currency:    i.Currency,
		PeriodStart: i.PeriodStart,
		PeriodEnd:   i.PeriodEnd,
		Status:      string(i.Status),
		PaidAt:      i.PaidAt,
	}
}

// PaymentEventResponse is the reconciliation view of a stored callback
type PaymentEventResponse struct {
	ID         uuid.UUID       `json:"id"`
	Provider   string          `json:"provider"`
	ExternalID string          `json:"external_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Outcome    string          `json:"outcome"`
	ReceivedAt time.Time       `json:"received_at"`
	Processed  bool            `json:"processed"`
	InvoiceID  *uuid.UUID      `json:"invoice_id,omitempty"`
	TenantID   *uuid.UUID      `json:"tenant_id,omitempty"`
}

// NewPaymentEventResponse converts a payment event to a response
func NewPaymentEventResponse(e *billing.PaymentEvent) *PaymentEventResponse {
	return &PaymentEventResponse{
		ID:         e.ID,
		Provider:   e.Provider,
		ExternalID: e.ExternalID,
		Amount:     e.Amount,
		Currency:   e.Currency,
		Outcome:    string(e.Outcome),
		ReceivedAt: e.ReceivedAt,
		Processed:  e.Processed,
		InvoiceID:  e.InvoiceRef,
		TenantID:   e.TenantRef,
	}
}
