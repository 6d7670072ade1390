package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlan(t *testing.T) *SubscriptionPlan {
	t.Helper()
	plans := DefaultPlans()
	require.NotEmpty(t, plans)
	return plans[0]
}

func newTrialSub(t *testing.T, now time.Time) *Subscription {
	t.Helper()
	sub, err := NewTrialSubscription(uuid.New(), newTestPlan(t), CycleMonthly, 30, now)
	require.NoError(t, err)
	sub.ClearDomainEvents()
	return sub
}

func TestNewTrialSubscription(t *testing.T) {
	now := time.Now()

	t.Run("starts in trialing state", func(t *testing.T) {
		plan := newTestPlan(t)
		sub, err := NewTrialSubscription(uuid.New(), plan, CycleMonthly, 30, now)

		require.NoError(t, err)
		assert.Equal(t, StateTrialing, sub.State)
		assert.Equal(t, plan.ID, sub.PlanID)
		assert.Equal(t, plan.Code, sub.PlanCode)
		require.NotNil(t, sub.TrialEnd)
		assert.Equal(t, now.AddDate(0, 0, 30), *sub.TrialEnd)
		assert.Equal(t, *sub.TrialEnd, sub.CurrentPeriodEnd)
		assert.False(t, sub.PaymentOnFile)
		assert.Len(t, sub.GetDomainEvents(), 1)
	})

	t.Run("fails with nil tenant", func(t *testing.T) {
		sub, err := NewTrialSubscription(uuid.Nil, newTestPlan(t), CycleMonthly, 30, now)

		assert.Error(t, err)
		assert.Nil(t, sub)
	})

	t.Run("fails with nil plan", func(t *testing.T) {
		sub, err := NewTrialSubscription(uuid.New(), nil, CycleMonthly, 30, now)

		assert.Error(t, err)
		assert.Nil(t, sub)
	})

	t.Run("fails with invalid cycle", func(t *testing.T) {
		sub, err := NewTrialSubscription(uuid.New(), newTestPlan(t), BillingCycle("weekly"), 30, now)

		assert.Error(t, err)
		assert.Nil(t, sub)
	})

	t.Run("fails with non-positive trial days", func(t *testing.T) {
		sub, err := NewTrialSubscription(uuid.New(), newTestPlan(t), CycleMonthly, 0, now)

		assert.Error(t, err)
		assert.Nil(t, sub)
	})
}

func TestSubscription_EvaluateTrialEnd(t *testing.T) {
	now := time.Now()

	t.Run("no-op before trial end", func(t *testing.T) {
		sub := newTrialSub(t, now)

		err := sub.EvaluateTrialEnd(now.AddDate(0, 0, 10))

		require.NoError(t, err)
		assert.Equal(t, StateTrialing, sub.State)
	})

	t.Run("activates when payment is on file", func(t *testing.T) {
		sub := newTrialSub(t, now)
		sub.PaymentOnFile = true

		err := sub.EvaluateTrialEnd(now.AddDate(0, 0, 31))

		require.NoError(t, err)
		assert.Equal(t, StateActive, sub.State)
	})

	t.Run("goes past_due without payment", func(t *testing.T) {
		sub := newTrialSub(t, now)

		err := sub.EvaluateTrialEnd(now.AddDate(0, 0, 31))

		require.NoError(t, err)
		assert.Equal(t, StatePastDue, sub.State)
		require.NotNil(t, sub.PastDueSince)
		assert.Equal(t, *sub.TrialEnd, *sub.PastDueSince)
	})
}

func TestSubscription_MarkPaid(t *testing.T) {
	now := time.Now()

	t.Run("recovers from past_due", func(t *testing.T) {
		sub := newTrialSub(t, now)
		require.NoError(t, sub.EvaluateTrialEnd(now.AddDate(0, 0, 31)))
		require.Equal(t, StatePastDue, sub.State)

		err := sub.MarkPaid(now.AddDate(0, 0, 32))

		require.NoError(t, err)
		assert.Equal(t, StateActive, sub.State)
		assert.Nil(t, sub.PastDueSince)
		assert.True(t, sub.PaymentOnFile)
	})

	t.Run("recovers from suspended", func(t *testing.T) {
		sub := newTrialSub(t, now)
		require.NoError(t, sub.EvaluateTrialEnd(now.AddDate(0, 0, 31)))
		require.NoError(t, sub.EvaluateGraceWindow(time.Hour, now.AddDate(0, 0, 40)))
		require.Equal(t, StateSuspended, sub.State)

		err := sub.MarkPaid(now.AddDate(0, 0, 41))

		require.NoError(t, err)
		assert.Equal(t, StateActive, sub.State)
	})

	t.Run("renews an already active subscription", func(t *testing.T) {
		sub := newTrialSub(t, now)
		sub.PaymentOnFile = true
		require.NoError(t, sub.EvaluateTrialEnd(now.AddDate(0, 0, 31)))
		versionBefore := sub.Version

		err := sub.MarkPaid(now.AddDate(0, 1, 0))

		require.NoError(t, err)
		assert.Equal(t, StateActive, sub.State)
		assert.Equal(t, versionBefore+1, sub.Version)
	})

	t.Run("fails on canceled subscription", func(t *testing.T) {
		sub := newTrialSub(t, now)
		require.NoError(t, sub.Cancel(now))

		err := sub.MarkPaid(now)

		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestSubscription_MarkPastDue(t *testing.T) {
	now := time.Now()

	t.Run("active goes past_due", func(t *testing.T) {
		sub := newTrialSub(t, now)
		require.NoError(t, sub.MarkPaid(now))

		err := sub.MarkPastDue(now.AddDate(0, 1, 1))

		require.NoError(t, err)
		assert.Equal(t, StatePastDue, sub.State)
		assert.NotNil(t, sub.PastDueSince)
	})

	t.Run("fails from trialing", func(t *testing.T) {
		sub := newTrialSub(t, now)

		err := sub.MarkPastDue(now)

		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestSubscription_EvaluateGraceWindow(t *testing.T) {
	now := time.Now()
	grace := 14 * 24 * time.Hour

	t.Run("no-op while inside the window", func(t *testing.T) {
		sub := newTrialSub(t, now)
		require.NoError(t, sub.EvaluateTrialEnd(now.AddDate(0, 0, 31)))

		err := sub.EvaluateGraceWindow(grace, now.AddDate(0, 0, 32))

		require.NoError(t, err)
		assert.Equal(t, StatePastDue, sub.State)
	})

	t.Run("suspends once the window elapses", func(t *testing.T) {
		sub := newTrialSub(t, now)
		require.NoError(t, sub.EvaluateTrialEnd(now.AddDate(0, 0, 31)))

		err := sub.EvaluateGraceWindow(grace, now.AddDate(0, 0, 31+15))

		require.NoError(t, err)
		assert.Equal(t, StateSuspended, sub.State)
	})

	t.Run("no-op for non past_due states", func(t *testing.T) {
		sub := newTrialSub(t, now)

		err := sub.EvaluateGraceWindow(grace, now.AddDate(1, 0, 0))

		require.NoError(t, err)
		assert.Equal(t, StateTrialing, sub.State)
	})
}

func TestSubscription_Cancel(t *testing.T) {
	now := time.Now()

	t.Run("cancels from any live state", func(t *testing.T) {
		sub := newTrialSub(t, now)

		err := sub.Cancel(now)

		require.NoError(t, err)
		assert.Equal(t, StateCanceled, sub.State)
		assert.NotNil(t, sub.CanceledAt)
		assert.False(t, sub.IsLive())
	})

	t.Run("cancel is terminal", func(t *testing.T) {
		sub := newTrialSub(t, now)
		require.NoError(t, sub.Cancel(now))

		assert.ErrorIs(t, sub.Cancel(now), ErrInvalidTransition)
		assert.ErrorIs(t, sub.MarkPaid(now), ErrInvalidTransition)
		assert.ErrorIs(t, sub.ScheduleCancellation(now.Add(time.Hour)), ErrInvalidTransition)
	})

	t.Run("scheduled cancellation fires at cancel_at", func(t *testing.T) {
		sub := newTrialSub(t, now)
		cancelAt := now.AddDate(0, 0, 10)
		require.NoError(t, sub.ScheduleCancellation(cancelAt))

		require.NoError(t, sub.EvaluateScheduledCancellation(now.AddDate(0, 0, 5)))
		assert.Equal(t, StateTrialing, sub.State)

		require.NoError(t, sub.EvaluateScheduledCancellation(cancelAt))
		assert.Equal(t, StateCanceled, sub.State)
	})
}

func TestSubscription_RolloverPeriod(t *testing.T) {
	now := time.Now()
	sub := newTrialSub(t, now)
	require.NoError(t, sub.MarkPaid(now))
	periodEnd := sub.CurrentPeriodEnd

	sub.RolloverPeriod(periodEnd)

	assert.Equal(t, periodEnd, sub.CurrentPeriodStart)
	assert.Equal(t, periodEnd.AddDate(0, 1, 0), sub.CurrentPeriodEnd)
	assert.False(t, sub.PeriodElapsed(periodEnd))
	assert.True(t, sub.PeriodElapsed(sub.CurrentPeriodEnd))
}

func TestBillingCycle_PeriodAfter(t *testing.T) {
	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, start.AddDate(0, 1, 0), CycleMonthly.PeriodAfter(start))
	assert.Equal(t, start.AddDate(1, 0, 0), CycleYearly.PeriodAfter(start))
}
