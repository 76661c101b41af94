package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanTypeFromPlanID(t *testing.T) {
	cases := map[string]PlanType{
		"gold_plan":            PlanTypeCandidate,
		"platinum_plan":        PlanTypeCandidate,
		"ward_highlight_7d":    PlanTypeHighlight,
		"HIGHLIGHT_PREMIUM":    PlanTypeHighlight,
		"home_carousel_30":     PlanTypeCarousel,
		"":                     PlanTypeCandidate,
		"carousel_highlight_x": PlanTypeHighlight,
	}
	for planID, want := range cases {
		require.Equal(t, want, PlanTypeFromPlanID(planID), planID)
	}
}

func TestOrderStatusOnlyMovesForward(t *testing.T) {
	require.True(t, OrderStatusCreated.CanTransitionTo(OrderStatusPaid))
	require.True(t, OrderStatusCreated.CanTransitionTo(OrderStatusFailed))
	require.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusCreated))
	require.False(t, OrderStatusPaid.CanTransitionTo(OrderStatusFailed))
	require.False(t, OrderStatusFailed.CanTransitionTo(OrderStatusPaid))
	require.False(t, OrderStatusCreated.CanTransitionTo(OrderStatusCreated))
}

func TestParsePaymentStateDefaultsToNew(t *testing.T) {
	state, err := ParsePaymentState("")
	require.NoError(t, err)
	require.Equal(t, PaymentStateNew, state)

	_, err = ParsePaymentState("refunded")
	require.Error(t, err)
}

func TestParseOutboxEventType(t *testing.T) {
	got, err := ParseOutboxEventType("subscription_activated")
	require.NoError(t, err)
	require.Equal(t, EventSubscriptionActivated, got)

	_, err = ParseOutboxEventType("order_created")
	require.Error(t, err)
}
