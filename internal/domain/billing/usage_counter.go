package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/gridpos/backend/internal/domain/shared"
)

// ErrPlanLimitExceeded is returned when usage plus the requested delta
// would exceed the plan limit.
var ErrPlanLimitExceeded = shared.NewDomainError("PLAN_LIMIT_EXCEEDED", "Plan resource limit exceeded")

// ErrFeatureNotInPlan is returned when the plan lacks a capability
var ErrFeatureNotInPlan = shared.NewDomainError("FEATURE_NOT_IN_PLAN", "Feature is not included in the current plan")

// UsageCounter tracks the running count of one resource kind for one
// tenant. The counter must never silently exceed the plan limit: all
// increments go through an atomic conditional update in the
// repository, never read-modify-write.
type UsageCounter struct {
	shared.BaseEntity
	TenantID     uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_usage_counters_tenant_kind"`
	ResourceKind ResourceKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_usage_counters_tenant_kind"`
	Count        int64        `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (UsageCounter) TableName() string {
	return "usage_counters"
}

// NewUsageCounter creates a zeroed counter for a tenant resource
func NewUsageCounter(tenantID uuid.UUID, kind ResourceKind) (*UsageCounter, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESOURCE_KIND", "Unknown resource kind")
	}
	return &UsageCounter{
		BaseEntity:   shared.NewBaseEntity(),
		TenantID:     tenantID,
		ResourceKind: kind,
	}, nil
}

// WouldExceed reports whether applying delta would cross the limit.
// A limit of -1 means unlimited.
func (c *UsageCounter) WouldExceed(delta, limit int64) bool {
	if limit < 0 {
		return false
	}
	return c.Count+delta > limit
}

// Apply adjusts the in-memory count. Persistence uses the atomic
// conditional update; this is for freshly loaded aggregates only.
func (c *UsageCounter) Apply(delta int64) {
	c.Count += delta
	if c.Count < 0 {
		c.Count = 0
	}
	c.UpdatedAt = time.Now()
}
