package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/netaconnect/billing-backend/internal/notifications"
	"github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/notify"
)

var fixedNow = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Notification
	fail map[string]bool
}

func (s *recordingSender) Send(_ context.Context, n notify.Notification) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[n.Token] {
		return "", errors.New("unregistered token")
	}
	s.sent = append(s.sent, n)
	return "msg-" + n.Token, nil
}

func (s *recordingSender) tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, n := range s.sent {
		out = append(out, n.Token)
	}
	return out
}

func newFanout(t *testing.T, sender *recordingSender) *notifications.Fanout {
	t.Helper()
	fan, err := notifications.NewFanout(sender, nil)
	require.NoError(t, err)
	return fan
}

func seedUser(t *testing.T, client *db.Client, id, token string) {
	t.Helper()
	user := models.User{ID: id}
	if token != "" {
		user.FCMToken = &token
	}
	require.NoError(t, client.DB().Create(&user).Error)
}

func seedSubscription(t *testing.T, client *db.Client, userID, planID string, planType enums.PlanType, expiresAt time.Time) models.Subscription {
	t.Helper()
	sub := models.Subscription{
		ID:           uuid.New(),
		UserID:       userID,
		PlanID:       planID,
		PlanType:     planType,
		ValidityDays: 30,
		AmountPaid:   decimal.NewFromInt(500),
		Currency:     "INR",
		PurchasedAt:  expiresAt.Add(-30 * 24 * time.Hour),
		ExpiresAt:    expiresAt,
		IsActive:     true,
		PaymentID:    "pay_" + uuid.NewString(),
	}
	require.NoError(t, client.DB().Create(&sub).Error)
	return sub
}

func reloadSubscription(t *testing.T, client *db.Client, id uuid.UUID) models.Subscription {
	t.Helper()
	var sub models.Subscription
	require.NoError(t, client.DB().First(&sub, "id = ?", id).Error)
	return sub
}
