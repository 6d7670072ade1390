package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscriptionPlan(t *testing.T) {
	t.Run("creates first plan version", func(t *testing.T) {
		plan, err := NewSubscriptionPlan(PlanBasic, "Basic",
			decimal.NewFromInt(29), decimal.NewFromInt(290),
			PlanLimits{MaxUsers: 5, MaxProducts: 500, MaxWarehouses: 1, MaxBranches: 1})

		require.NoError(t, err)
		assert.Equal(t, PlanBasic, plan.Code)
		assert.Equal(t, 1, plan.PlanVersion)
		assert.Equal(t, "USD", plan.Currency)
		assert.True(t, plan.IsCurrent)
		assert.Nil(t, plan.SupersededAt)
	})

	t.Run("fails with unknown plan code", func(t *testing.T) {
		plan, err := NewSubscriptionPlan(PlanCode("platinum"), "Platinum",
			decimal.NewFromInt(999), decimal.NewFromInt(9990), PlanLimits{})

		assert.Error(t, err)
		assert.Nil(t, plan)
	})

	t.Run("fails with empty name", func(t *testing.T) {
		plan, err := NewSubscriptionPlan(PlanBasic, "",
			decimal.NewFromInt(29), decimal.NewFromInt(290), PlanLimits{})

		assert.Error(t, err)
		assert.Nil(t, plan)
	})

	t.Run("fails with negative price", func(t *testing.T) {
		plan, err := NewSubscriptionPlan(PlanBasic, "Basic",
			decimal.NewFromInt(-1), decimal.NewFromInt(290), PlanLimits{})

		assert.Error(t, err)
		assert.Nil(t, plan)
	})

	t.Run("fails with unknown capability", func(t *testing.T) {
		plan, err := NewSubscriptionPlan(PlanBasic, "Basic",
			decimal.NewFromInt(29), decimal.NewFromInt(290), PlanLimits{},
			Capability("time_travel"))

		assert.Error(t, err)
		assert.Nil(t, plan)
	})
}

func TestSubscriptionPlan_Supersede(t *testing.T) {
	t.Run("creates next version and retires current", func(t *testing.T) {
		plan, err := NewSubscriptionPlan(PlanPro, "Pro",
			decimal.NewFromInt(79), decimal.NewFromInt(790),
			PlanLimits{MaxUsers: 25}, CapabilityAPIAccess)
		require.NoError(t, err)

		next, err := plan.Supersede("Pro",
			decimal.NewFromInt(89), decimal.NewFromInt(890),
			PlanLimits{MaxUsers: 30}, CapabilityAPIAccess, CapabilityAdvancedReports)

		require.NoError(t, err)
		assert.Equal(t, PlanPro, next.Code)
		assert.Equal(t, 2, next.PlanVersion)
		assert.True(t, next.IsCurrent)
		assert.True(t, next.MonthlyPrice.Equal(decimal.NewFromInt(89)))

		assert.False(t, plan.IsCurrent)
		require.NotNil(t, plan.SupersededAt)
		// The retired version keeps its original pricing.
		assert.True(t, plan.MonthlyPrice.Equal(decimal.NewFromInt(79)))
	})

	t.Run("rejects invalid replacement", func(t *testing.T) {
		plan, _ := NewSubscriptionPlan(PlanPro, "Pro",
			decimal.NewFromInt(79), decimal.NewFromInt(790), PlanLimits{})

		next, err := plan.Supersede("", decimal.NewFromInt(89), decimal.NewFromInt(890), PlanLimits{})

		assert.Error(t, err)
		assert.Nil(t, next)
		assert.True(t, plan.IsCurrent)
	})
}

func TestSubscriptionPlan_HasCapability(t *testing.T) {
	plan, _ := NewSubscriptionPlan(PlanPro, "Pro",
		decimal.NewFromInt(79), decimal.NewFromInt(790),
		PlanLimits{}, CapabilityAdvancedReports, CapabilityAPIAccess)

	assert.True(t, plan.HasCapability(CapabilityAdvancedReports))
	assert.True(t, plan.HasCapability(CapabilityAPIAccess))
	assert.False(t, plan.HasCapability(CapabilityOfflineSupport))
}

func TestSubscriptionPlan_PriceFor(t *testing.T) {
	plan, _ := NewSubscriptionPlan(PlanBasic, "Basic",
		decimal.NewFromInt(29), decimal.NewFromInt(290), PlanLimits{})

	assert.True(t, plan.PriceFor(CycleMonthly).Equal(decimal.NewFromInt(29)))
	assert.True(t, plan.PriceFor(CycleYearly).Equal(decimal.NewFromInt(290)))
}

func TestPlanLimits_LimitFor(t *testing.T) {
	limits := PlanLimits{MaxUsers: 5, MaxProducts: 500, MaxWarehouses: 1, MaxBranches: 2}

	assert.Equal(t, int64(5), limits.LimitFor(ResourceUsers))
	assert.Equal(t, int64(500), limits.LimitFor(ResourceProducts))
	assert.Equal(t, int64(1), limits.LimitFor(ResourceWarehouses))
	assert.Equal(t, int64(2), limits.LimitFor(ResourceBranches))
	assert.Equal(t, int64(-1), limits.LimitFor(ResourceKind("gift_cards")))
}

func TestDefaultPlans(t *testing.T) {
	plans := DefaultPlans()

	require.Len(t, plans, 3)
	codes := map[PlanCode]*SubscriptionPlan{}
	for _, p := range plans {
		codes[p.Code] = p
	}

	require.Contains(t, codes, PlanBasic)
	require.Contains(t, codes, PlanPro)
	require.Contains(t, codes, PlanEnterprise)

	assert.False(t, codes[PlanBasic].HasCapability(CapabilityAPIAccess))
	assert.True(t, codes[PlanPro].HasCapability(CapabilityAPIAccess))
	assert.True(t, codes[PlanEnterprise].HasCapability(CapabilityOfflineSupport))

	// Enterprise is unlimited on every resource.
	for _, kind := range AllResourceKinds() {
		assert.Equal(t, int64(-1), codes[PlanEnterprise].Limits.LimitFor(kind))
	}
}
