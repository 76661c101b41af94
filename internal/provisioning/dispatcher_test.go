package provisioning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/internal/candidates"
	"github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/db/dbtest"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/outbox/payloads"
)

var fixedNow = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func newTestDispatcher(t *testing.T) (*Dispatcher, *db.Client) {
	t.Helper()
	client := dbtest.Open(t)
	d, err := NewDispatcher(DispatcherParams{
		DB:         client,
		Repo:       NewRepository(client.DB()),
		Candidates: candidates.NewRepository(client.DB()),
		Clock:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return d, client
}

func seedCandidate(t *testing.T, client *db.Client, userID string, located bool) {
	t.Helper()
	row := &models.Candidate{ID: "cand_" + userID, UserID: userID, Name: "Asha", DeleteStorage: pq.StringArray{}}
	if located {
		row.DistrictID, row.BodyID, row.WardID = strPtr("d1"), strPtr("b1"), strPtr("w1")
	}
	require.NoError(t, client.DB().Create(row).Error)
}

func activated(planID string, planType enums.PlanType, days int) payloads.SubscriptionActivatedEvent {
	return payloads.SubscriptionActivatedEvent{
		SubscriptionID: uuid.New(),
		UserID:         "u1",
		PlanID:         planID,
		PlanType:       planType,
		ValidityDays:   days,
		PurchasedAt:    fixedNow,
		ExpiresAt:      fixedNow.Add(time.Duration(days) * 24 * time.Hour),
	}
}

func TestProvisionPlatinumCreatesExclusivePlacementAndAnnouncement(t *testing.T) {
	d, client := newTestDispatcher(t)
	seedCandidate(t, client, "u1", true)

	outcome, err := d.Provision(context.Background(), activated("platinum_plan", enums.PlanTypeCandidate, 30))
	require.NoError(t, err)
	require.Equal(t, OutcomeExclusivePlacement, outcome)

	var placements []models.Highlight
	require.NoError(t, client.DB().Find(&placements).Error)
	require.Len(t, placements, 1)
	require.True(t, placements[0].Exclusive)
	require.False(t, placements[0].Rotation)
	require.Equal(t, enums.PlacementPriorityHigh, placements[0].Priority)
	require.Equal(t, "w1", placements[0].WardID)

	var posts []models.FeedPost
	require.NoError(t, client.DB().Find(&posts).Error)
	require.Len(t, posts, 1)
	require.Equal(t, enums.FeedPostKindAnnouncement, posts[0].Kind)
	require.NotNil(t, posts[0].ExpiresAt)
	require.True(t, posts[0].ExpiresAt.Equal(fixedNow.Add(72*time.Hour)))
}

func TestProvisionSkipsWithoutCandidateOrLocation(t *testing.T) {
	d, client := newTestDispatcher(t)

	outcome, err := d.Provision(context.Background(), activated("platinum_plan", enums.PlanTypeCandidate, 30))
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, outcome)

	seedCandidate(t, client, "u1", false)
	outcome, err = d.Provision(context.Background(), activated("ward_highlight", enums.PlanTypeHighlight, 7))
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, outcome)

	var count int64
	require.NoError(t, client.DB().Model(&models.Highlight{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestProvisionHighlightCreatesThenExtendsFromCurrentExpiry(t *testing.T) {
	d, client := newTestDispatcher(t)
	seedCandidate(t, client, "u1", true)
	ctx := context.Background()

	outcome, err := d.Provision(ctx, activated("ward_highlight_7d", enums.PlanTypeHighlight, 7))
	require.NoError(t, err)
	require.Equal(t, OutcomePlacementCreated, outcome)

	outcome, err = d.Provision(ctx, activated("ward_highlight_7d", enums.PlanTypeHighlight, 7))
	require.NoError(t, err)
	require.Equal(t, OutcomePlacementExtended, outcome)

	var placements []models.Highlight
	require.NoError(t, client.DB().Find(&placements).Error)
	require.Len(t, placements, 1)
	require.True(t, placements[0].Rotation)
	require.False(t, placements[0].Exclusive)
	require.True(t, placements[0].ExpiresAt.Equal(fixedNow.Add(14*24*time.Hour)))

	var posts []models.FeedPost
	require.NoError(t, client.DB().Find(&posts).Error)
	require.Len(t, posts, 1)
	require.Equal(t, enums.FeedPostKindWelcome, posts[0].Kind)
}

func TestProvisionHighlightExtendsLapsedPlacementFromNow(t *testing.T) {
	d, client := newTestDispatcher(t)
	seedCandidate(t, client, "u1", true)
	lapsed := &models.Highlight{
		ID: uuid.New(), CandidateID: "cand_u1", UserID: "u1", DistrictID: "d1", BodyID: "b1", WardID: "w1",
		Package: "ward_highlight_7d", Priority: enums.PlacementPriorityNormal, Rotation: true,
		SubscriptionID: uuid.New(), StartsAt: fixedNow.Add(-10 * 24 * time.Hour),
		ExpiresAt: fixedNow.Add(-3 * 24 * time.Hour), IsActive: true,
	}
	require.NoError(t, client.DB().Create(lapsed).Error)

	outcome, err := d.Provision(context.Background(), activated("ward_highlight_7d", enums.PlanTypeHighlight, 7))
	require.NoError(t, err)
	require.Equal(t, OutcomePlacementExtended, outcome)

	var row models.Highlight
	require.NoError(t, client.DB().First(&row, "id = ?", lapsed.ID).Error)
	require.True(t, row.ExpiresAt.Equal(fixedNow.Add(7*24*time.Hour)))
}

func TestProvisionCarouselAndBaseCandidateAreNoops(t *testing.T) {
	d, client := newTestDispatcher(t)
	seedCandidate(t, client, "u1", true)

	for _, evt := range []payloads.SubscriptionActivatedEvent{
		activated("home_carousel_30", enums.PlanTypeCarousel, 30),
		activated("gold_plan", enums.PlanTypeCandidate, 30),
	} {
		outcome, err := d.Provision(context.Background(), evt)
		require.NoError(t, err)
		require.Equal(t, OutcomeNoop, outcome)
	}

	var count int64
	require.NoError(t, client.DB().Model(&models.Highlight{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestProvisionReplayOfSameSubscriptionIsNoop(t *testing.T) {
	d, client := newTestDispatcher(t)
	seedCandidate(t, client, "u1", true)
	ctx := context.Background()

	highlight := activated("ward_highlight_7d", enums.PlanTypeHighlight, 7)
	outcome, err := d.Provision(ctx, highlight)
	require.NoError(t, err)
	require.Equal(t, OutcomePlacementCreated, outcome)

	outcome, err = d.Provision(ctx, highlight)
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyProvisioned, outcome)

	var placement models.Highlight
	require.NoError(t, client.DB().First(&placement).Error)
	require.True(t, placement.ExpiresAt.Equal(fixedNow.Add(7*24*time.Hour)))

	platinum := activated("platinum_plan", enums.PlanTypeCandidate, 30)
	_, err = d.Provision(ctx, platinum)
	require.NoError(t, err)
	outcome, err = d.Provision(ctx, platinum)
	require.NoError(t, err)
	require.Equal(t, OutcomeAlreadyProvisioned, outcome)

	var exclusive, posts, marks int64
	require.NoError(t, client.DB().Model(&models.Highlight{}).Where("exclusive = ?", true).Count(&exclusive).Error)
	require.NoError(t, client.DB().Model(&models.FeedPost{}).Count(&posts).Error)
	require.NoError(t, client.DB().Model(&models.ProvisionedSubscription{}).Count(&marks).Error)
	require.EqualValues(t, 1, exclusive)
	require.EqualValues(t, 2, posts)
	require.EqualValues(t, 2, marks)
}
