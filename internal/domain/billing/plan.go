package billing

import (
	"time"

	"github.com/gridpos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PlanCode identifies a subscription plan
type PlanCode string

const (
	PlanBasic      PlanCode = "basic"
	PlanPro        PlanCode = "pro"
	PlanEnterprise PlanCode = "enterprise"
)

// IsValid returns true for a known plan code
func (c PlanCode) IsValid() bool {
	switch c {
	case PlanBasic, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Capability is a closed set of plan feature flags. Checks are
// exhaustive over this set rather than a loose bag of booleans.
type Capability string

const (
	CapabilityAdvancedReports Capability = "advanced_reports"
	CapabilityAPIAccess       Capability = "api_access"
	CapabilityOfflineSupport  Capability = "offline_support"
)

// IsValid returns true for a known capability
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityAdvancedReports, CapabilityAPIAccess, CapabilityOfflineSupport:
		return true
	}
	return false
}

// PlanLimits are the resource ceilings a plan grants. -1 means
// unlimited.
type PlanLimits struct {
	MaxUsers      int64 `json:"max_users"`
	MaxProducts   int64 `json:"max_products"`
	MaxWarehouses int64 `json:"max_warehouses"`
	MaxBranches   int64 `json:"max_branches"`
}

// LimitFor returns the ceiling for a resource kind, or -1 when the
// kind is not limited by plans.
func (l PlanLimits) LimitFor(kind ResourceKind) int64 {
	switch kind {
	case ResourceUsers:
		return l.MaxUsers
	case ResourceProducts:
		return l.MaxProducts
	case ResourceWarehouses:
		return l.MaxWarehouses
	case ResourceBranches:
		return l.MaxBranches
	}
	return -1
}

// SubscriptionPlan is an immutable pricing tier. Once referenced by a
// live subscription it is never edited in place; changes create a new
// version that supersedes the old row.
type SubscriptionPlan struct {
	shared.BaseAggregateRoot
	Code         PlanCode        `gorm:"type:varchar(20);not null;uniqueIndex:idx_plans_code_version"`
	PlanVersion  int             `gorm:"not null;default:1;uniqueIndex:idx_plans_code_version"`
	Name         string          `gorm:"type:varchar(100);not null"`
	MonthlyPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	YearlyPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Limits       PlanLimits      `gorm:"embedded;embeddedPrefix:limit_"`
	Capabilities []Capability    `gorm:"serializer:json"`
	IsCurrent    bool            `gorm:"not null;default:true"`
	SupersededAt *time.Time
}

// TableName returns the table name for GORM
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// NewSubscriptionPlan creates the first version of a plan
func NewSubscriptionPlan(code PlanCode, name string, monthly, yearly decimal.Decimal, limits PlanLimits, capabilities ...Capability) (*SubscriptionPlan, error) {
	if !code.IsValid() {
		return nil, shared.NewDomainError("INVALID_PLAN", "Unknown plan code")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Plan name cannot be empty")
	}
	if monthly.IsNegative() || yearly.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Plan price cannot be negative")
	}
	for _, c := range capabilities {
		if !c.IsValid() {
			return nil, shared.NewDomainError("INVALID_CAPABILITY", "Unknown capability flag")
		}
	}

	return &SubscriptionPlan{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		PlanVersion:       1,
		Name:              name,
		MonthlyPrice:      monthly,
		YearlyPrice:       yearly,
		Currency:          "USD",
		Limits:            limits,
		Capabilities:      capabilities,
		IsCurrent:         true,
	}, nil
}

// Supersede produces the next version of this plan and retires the
// current one. Existing subscriptions keep the version they reference.
func (p *SubscriptionPlan) Supersede(name string, monthly, yearly decimal.Decimal, limits PlanLimits, capabilities ...Capability) (*SubscriptionPlan, error) {
	next, err := NewSubscriptionPlan(p.Code, name, monthly, yearly, limits, capabilities...)
	if err != nil {
		return nil, err
	}
	next.PlanVersion = p.PlanVersion + 1
	next.Currency = p.Currency

	now := time.Now()
	p.IsCurrent = false
	p.SupersededAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()

	return next, nil
}

// HasCapability checks a feature flag against the closed set
func (p *SubscriptionPlan) HasCapability(c Capability) bool {
	for _, have := range p.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// PriceFor returns the price for a billing cycle
func (p *SubscriptionPlan) PriceFor(cycle BillingCycle) decimal.Decimal {
	if cycle == CycleYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

// DefaultPlans returns the three stock plans seeded at install time
func DefaultPlans() []*SubscriptionPlan {
	basic, _ := NewSubscriptionPlan(PlanBasic, "Basic",
		decimal.NewFromInt(29), decimal.NewFromInt(290),
		PlanLimits{MaxUsers: 5, MaxProducts: 500, MaxWarehouses: 1, MaxBranches: 1})
	pro, _ := NewSubscriptionPlan(PlanPro, "Pro",
		decimal.NewFromInt(79), decimal.NewFromInt(790),
		PlanLimits{MaxUsers: 25, MaxProducts: 10000, MaxWarehouses: 5, MaxBranches: 5},
		CapabilityAdvancedReports, CapabilityAPIAccess)
	enterprise, _ := NewSubscriptionPlan(PlanEnterprise, "Enterprise",
		decimal.NewFromInt(199), decimal.NewFromInt(1990),
		PlanLimits{MaxUsers: -1, MaxProducts: -1, MaxWarehouses: -1, MaxBranches: -1},
		CapabilityAdvancedReports, CapabilityAPIAccess, CapabilityOfflineSupport)
	return []*SubscriptionPlan{basic, pro, enterprise}
}
