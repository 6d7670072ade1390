package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentOutcome is the gateway-reported result of a payment attempt
type PaymentOutcome string

const (
	OutcomeSucceeded  PaymentOutcome = "succeeded"
	OutcomeFailed     PaymentOutcome = "failed"
	OutcomeChargeback PaymentOutcome = "chargeback"
)

// IsValid returns true for a known outcome
func (o PaymentOutcome) IsValid() bool {
	switch o {
	case OutcomeSucceeded, OutcomeFailed, OutcomeChargeback:
		return true
	}
	return false
}

// Billing event processing errors
var (
	ErrDuplicateBillingEvent  = shared.NewDomainError("DUPLICATE_BILLING_EVENT", "Billing event was already processed")
	ErrUnmatchedBillingEvent  = shared.NewDomainError("UNMATCHED_BILLING_EVENT", "Billing event matches no invoice or subscription")
	ErrAuthenticityCheckFailed = shared.NewDomainError("AUTHENTICITY_CHECK_FAILED", "Callback signature verification failed")
)

// PaymentEvent is the append-only record of one gateway callback.
// (Provider, ExternalID) is the dedup key. Rows are never mutated
// after insert except for the processed flag.
type PaymentEvent struct {
	shared.BaseEntity
	Provider   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_events_dedup"`
	ExternalID string          `gorm:"type:varchar(200);not null;uniqueIndex:idx_payment_events_dedup"`
	Amount     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency   string          `gorm:"type:varchar(3);not null"`
	Outcome    PaymentOutcome  `gorm:"type:varchar(20);not null"`
	ReceivedAt time.Time       `gorm:"not null"`
	Processed  bool            `gorm:"not null;default:false;index"`
	InvoiceRef *uuid.UUID      `gorm:"type:uuid;index"`
	TenantRef  *uuid.UUID      `gorm:"type:uuid;index"`
	RawPayload string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentEvent) TableName() string {
	return "payment_events"
}

// NewPaymentEvent records a verified gateway callback
func NewPaymentEvent(provider, externalID string, amount decimal.Decimal, currency string, outcome PaymentOutcome, rawPayload string, receivedAt time.Time) (*PaymentEvent, error) {
	if provider == "" || externalID == "" {
		return nil, shared.NewDomainError("INVALID_EVENT", "Provider and external transaction ID are required")
	}
	if !outcome.IsValid() {
		return nil, shared.NewDomainError("INVALID_EVENT", "Unknown payment outcome")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_EVENT", "Payment amount cannot be negative")
	}

	return &PaymentEvent{
		BaseEntity: shared.NewBaseEntity(),
		Provider:   provider,
		ExternalID: externalID,
		Amount:     amount,
		Currency:   currency,
		Outcome:    outcome,
		ReceivedAt: receivedAt,
		RawPayload: rawPayload,
	}, nil
}

// MarkProcessed links the event to the invoice it settled. The only
// permitted post-insert mutation.
func (e *PaymentEvent) MarkProcessed(invoiceID, tenantID uuid.UUID) {
	e.Processed = true
	e.InvoiceRef = &invoiceID
	e.TenantRef = &tenantID
	e.UpdatedAt = time.Now()
}

// DedupKey returns the idempotency key for this event
func (e *PaymentEvent) DedupKey() string {
	return e.Provider + ":" + e.ExternalID
}
