package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/netaconnect/billing-backend/internal/notifications"
	"github.com/netaconnect/billing-backend/internal/subscriptions"
	"github.com/netaconnect/billing-backend/internal/users"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/logger"
)

type ExpiryWarningJobParams struct {
	Logger        *logger.Logger
	Subscriptions *subscriptions.Repository
	Users         *users.Repository
	Notifier      deliverer
	// LeadTimes are processed in the given order; config hands them longest first.
	LeadTimes []time.Duration
}

func NewExpiryWarningJob(params ExpiryWarningJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil || params.Users == nil {
		return nil, fmt.Errorf("subscription and user repositories required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	leads := params.LeadTimes
	if len(leads) == 0 {
		leads = []time.Duration{72 * time.Hour, 24 * time.Hour, time.Hour}
	}
	return &expiryWarningJob{
		logg:     params.Logger,
		subs:     params.Subscriptions,
		users:    params.Users,
		notifier: params.Notifier,
		leads:    leads,
		now:      time.Now,
	}, nil
}

type expiryWarningJob struct {
	logg     *logger.Logger
	subs     *subscriptions.Repository
	users    *users.Repository
	notifier deliverer
	leads    []time.Duration
	now      func() time.Time
}

func (j *expiryWarningJob) Name() string { return JobExpiryWarning }

func (j *expiryWarningJob) Run(ctx context.Context) (Report, error) {
	now := j.now().UTC()
	var deliveries []notifications.Delivery
	for _, lead := range j.leads {
		column, ok := subscriptions.WarningColumn(lead)
		if !ok {
			j.logg.Warn(j.logg.WithField(ctx, "lead", lead.String()), "no warning flag for lead time; skipping")
			continue
		}
		batch, err := j.claim(ctx, now, lead, column)
		if err != nil {
			return nil, fmt.Errorf("warnings for %s: %w", lead, err)
		}
		deliveries = append(deliveries, batch...)
	}

	report := Report{"warnings_claimed": len(deliveries)}
	sent, err := j.notifier.SendAll(ctx, deliveries)
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "failed", sent.Failed), "some expiry warnings failed")
	}
	report["notifications_sent"] = sent.Sent
	report["notifications_failed"] = sent.Failed
	return report, nil
}

// claim flips the lead's flag for every expiring subscription whose user can
// be reached and returns the notifications to send. Users without a token
// stay unflagged and are reconsidered next run.
func (j *expiryWarningJob) claim(ctx context.Context, now time.Time, lead time.Duration, column string) ([]notifications.Delivery, error) {
	rows, err := j.subs.ListExpiring(ctx, now, now.Add(lead), column)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	tokens, err := j.tokens(ctx, rows)
	if err != nil {
		return nil, err
	}

	var out []notifications.Delivery
	for _, sub := range rows {
		token, ok := tokens[sub.UserID]
		if !ok {
			continue
		}
		claimed, err := j.subs.ClaimWarning(ctx, sub.ID, column, now)
		if err != nil {
			j.logg.Error(j.logg.WithSubscriptionID(ctx, sub.ID.String()), "failed to claim expiry warning", err)
			continue
		}
		if !claimed {
			continue
		}
		out = append(out, notifications.Delivery{
			UserID:       sub.UserID,
			Notification: notifications.Warning(token, sub.PlanID, sub.UserID, lead),
		})
	}
	return out, nil
}

func (j *expiryWarningJob) tokens(ctx context.Context, rows []models.Subscription) (map[string]string, error) {
	ids := make([]string, 0, len(rows))
	for _, sub := range rows {
		ids = append(ids, sub.UserID)
	}
	found, err := j.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	tokens := make(map[string]string, len(found))
	for _, u := range found {
		if u.FCMToken != nil && *u.FCMToken != "" {
			tokens[u.ID] = *u.FCMToken
		}
	}
	return tokens, nil
}
