package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/internal/subscriptions"
	"github.com/netaconnect/billing-backend/internal/users"
	"github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/db/dbtest"
	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/logger"
)

func newWarningJob(t *testing.T, client *db.Client, sender *recordingSender, leads ...time.Duration) *expiryWarningJob {
	t.Helper()
	jobIface, err := NewExpiryWarningJob(ExpiryWarningJobParams{
		Logger:        logger.Nop(),
		Subscriptions: subscriptions.NewRepository(client.DB()),
		Users:         users.NewRepository(client.DB()),
		Notifier:      newFanout(t, sender),
		LeadTimes:     leads,
	})
	require.NoError(t, err)
	job := jobIface.(*expiryWarningJob)
	job.now = func() time.Time { return fixedNow }
	return job
}

func TestExpiryWarningSendsOncePerLeadTime(t *testing.T) {
	client := dbtest.Open(t)
	sender := &recordingSender{}
	job := newWarningJob(t, client, sender)
	ctx := context.Background()

	seedUser(t, client, "u1", "tok-1")
	seedUser(t, client, "u2", "tok-2")
	soon := seedSubscription(t, client, "u1", "gold_plan", enums.PlanTypeCandidate, fixedNow.Add(20*time.Hour))
	later := seedSubscription(t, client, "u2", "basic_plan", enums.PlanTypeCandidate, fixedNow.Add(10*24*time.Hour))

	report, err := job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report["warnings_claimed"])
	require.Equal(t, 2, report["notifications_sent"])

	labels := map[string]bool{}
	for _, n := range sender.sent {
		require.Equal(t, "tok-1", n.Token)
		require.Equal(t, "subscription_warning", n.Data["type"])
		labels[n.Data["expiresIn"]] = true
	}
	require.Equal(t, map[string]bool{"3 days": true, "1 day": true}, labels)

	got := reloadSubscription(t, client, soon.ID)
	require.True(t, got.WarningSent72h)
	require.True(t, got.WarningSent24h)
	require.False(t, got.WarningSent1h)
	require.False(t, reloadSubscription(t, client, later.ID).WarningSent72h)

	// a later run inside the same window sends nothing new
	again, err := job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, again["warnings_claimed"])
	require.Len(t, sender.sent, 2)

	// an hour before expiry the last warning goes out once
	job.now = func() time.Time { return soon.ExpiresAt.Add(-30 * time.Minute) }
	final, err := job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, final["warnings_claimed"])
	require.Equal(t, "1 hour", sender.sent[2].Data["expiresIn"])
}

func TestExpiryWarningSkipsUsersWithoutToken(t *testing.T) {
	client := dbtest.Open(t)
	sender := &recordingSender{}
	job := newWarningJob(t, client, sender, 24*time.Hour)

	seedUser(t, client, "u1", "")
	sub := seedSubscription(t, client, "u1", "gold_plan", enums.PlanTypeCandidate, fixedNow.Add(2*time.Hour))

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report["warnings_claimed"])
	require.Empty(t, sender.sent)
	require.False(t, reloadSubscription(t, client, sub.ID).WarningSent24h)
}

func TestExpiryWarningIgnoresLeadWithoutFlag(t *testing.T) {
	client := dbtest.Open(t)
	sender := &recordingSender{}
	job := newWarningJob(t, client, sender, 12*time.Hour)

	seedUser(t, client, "u1", "tok-1")
	seedSubscription(t, client, "u1", "gold_plan", enums.PlanTypeCandidate, fixedNow.Add(2*time.Hour))

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report["warnings_claimed"])
	require.Empty(t, sender.sent)
}
