package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the settlement status of an invoice
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceOpen          InvoiceStatus = "open"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceVoid          InvoiceStatus = "void"
	InvoiceUncollectible InvoiceStatus = "uncollectible"
)

// IsValid returns true for a known status
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceDraft, InvoiceOpen, InvoicePaid, InvoiceVoid, InvoiceUncollectible:
		return true
	}
	return false
}

// ErrInvoiceImmutable is returned on any mutation of a paid invoice
var ErrInvoiceImmutable = shared.NewDomainError("INVOICE_IMMUTABLE", "Paid invoices cannot be modified")

// Invoice bills one subscription period. Generated at period
// boundaries; immutable once paid.
type Invoice struct {
	shared.BaseAggregateRoot
	SubscriptionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	PeriodStart    time.Time       `gorm:"not null"`
	PeriodEnd      time.Time       `gorm:"not null"`
	Status         InvoiceStatus   `gorm:"type:varchar(20);not null;default:'open'"`
	PaidAt         *time.Time
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice opens an invoice for one billing period of a subscription
func NewInvoice(sub *Subscription, plan *SubscriptionPlan, periodStart, periodEnd time.Time) (*Invoice, error) {
	if sub == nil || plan == nil {
		return nil, shared.ErrInvalidInput
	}
	if !periodEnd.After(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Invoice period end must be after start")
	}

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SubscriptionID:    sub.ID,
		TenantID:          sub.TenantID,
		Amount:            plan.PriceFor(sub.Cycle),
		Currency:          plan.Currency,
		PeriodStart:       periodStart,
		PeriodEnd:         periodEnd,
		Status:            InvoiceOpen,
	}, nil
}

// MarkPaid settles the invoice. Paid is a terminal, immutable state.
func (i *Invoice) MarkPaid(at time.Time) error {
	if i.Status == InvoicePaid {
		return ErrInvoiceImmutable
	}
	if i.Status != InvoiceOpen && i.Status != InvoiceDraft {
		return shared.ErrInvalidState
	}
	i.Status = InvoicePaid
	i.PaidAt = &at
	i.UpdatedAt = at
	i.IncrementVersion()
	i.AddDomainEvent(NewInvoicePaidEvent(i))
	return nil
}

// Void cancels an unpaid invoice
func (i *Invoice) Void() error {
	if i.Status == InvoicePaid {
		return ErrInvoiceImmutable
	}
	i.Status = InvoiceVoid
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// MarkUncollectible writes off an unpaid invoice
func (i *Invoice) MarkUncollectible() error {
	if i.Status == InvoicePaid {
		return ErrInvoiceImmutable
	}
	i.Status = InvoiceUncollectible
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// IsOpen reports whether the invoice still awaits payment
func (i *Invoice) IsOpen() bool {
	return i.Status == InvoiceOpen
}

// CoversPeriod reports whether the invoice bills the given period
func (i *Invoice) CoversPeriod(start, end time.Time) bool {
	return i.PeriodStart.Equal(start) && i.PeriodEnd.Equal(end)
}
