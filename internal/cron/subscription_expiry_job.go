package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/netaconnect/billing-backend/internal/notifications"
	"github.com/netaconnect/billing-backend/internal/subscriptions"
	"github.com/netaconnect/billing-backend/internal/users"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/outbox"
	"github.com/netaconnect/billing-backend/pkg/outbox/payloads"
)

// deliverer fans notifications out to users.
type deliverer interface {
	SendAll(ctx context.Context, deliveries []notifications.Delivery) (notifications.Report, error)
}

type SubscriptionExpiryJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Subscriptions *subscriptions.Repository
	Users         *users.Repository
	Outbox        outbox.Emitter
	Notifier      deliverer
}

func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Subscriptions == nil || params.Users == nil {
		return nil, fmt.Errorf("subscription and user repositories required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &subscriptionExpiryJob{
		logg:     params.Logger,
		db:       params.DB,
		subs:     params.Subscriptions,
		users:    params.Users,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		now:      time.Now,
	}, nil
}

type subscriptionExpiryJob struct {
	logg     *logger.Logger
	db       txRunner
	subs     *subscriptions.Repository
	users    *users.Repository
	outbox   outbox.Emitter
	notifier deliverer
	now      func() time.Time
}

func (j *subscriptionExpiryJob) Name() string { return JobSubscriptionExpiry }

// Run expires lapsed subscriptions in one transaction, then downgrades the
// affected users and tells them. Only the first step can fail the run before
// anything is written.
func (j *subscriptionExpiryJob) Run(ctx context.Context) (Report, error) {
	now := j.now().UTC()
	expired, err := j.expire(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("expire subscriptions: %w", err)
	}
	report := Report{"expired": len(expired)}
	if len(expired) == 0 {
		return report, nil
	}

	// one entry per user; the first expired plan names the notification
	byUser := make(map[string]models.Subscription, len(expired))
	var userIDs []string
	for _, sub := range expired {
		if _, seen := byUser[sub.UserID]; seen {
			continue
		}
		byUser[sub.UserID] = sub
		userIDs = append(userIDs, sub.UserID)
	}

	downgraded, downgradeErr := j.downgrade(ctx, expired, now)
	report["users_downgraded"] = downgraded

	deliveries, err := j.deliveries(ctx, userIDs, byUser)
	if err != nil {
		j.logg.Error(ctx, "failed to load users for expiry notifications", err)
	}
	sent, notifyErr := j.notifier.SendAll(ctx, deliveries)
	if notifyErr != nil {
		j.logg.Warn(j.logg.WithField(ctx, "failed", sent.Failed), "some expiry notifications failed")
	}
	report["notifications_sent"] = sent.Sent
	report["notifications_failed"] = sent.Failed

	return report, downgradeErr
}

func (j *subscriptionExpiryJob) expire(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var flipped []models.Subscription
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.subs.WithTx(tx)
		rows, err := repo.ListExpired(ctx, now)
		if err != nil {
			return err
		}
		for _, sub := range rows {
			ok, err := repo.MarkExpired(ctx, sub.ID, now)
			if err != nil {
				return fmt.Errorf("mark %s expired: %w", sub.ID, err)
			}
			if !ok {
				continue
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventSubscriptionExpired,
				AggregateType: enums.AggregateSubscription,
				AggregateID:   sub.ID,
				OccurredAt:    now,
				Data: payloads.SubscriptionExpiredEvent{
					SubscriptionID: sub.ID,
					UserID:         sub.UserID,
					PlanID:         sub.PlanID,
					PlanType:       sub.PlanType,
					ExpiresAt:      sub.ExpiresAt,
					ExpiredAt:      now,
				},
			}
			if err := j.outbox.Emit(ctx, tx, event); err != nil {
				return fmt.Errorf("emit expiry for %s: %w", sub.ID, err)
			}
			flipped = append(flipped, sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flipped, nil
}

// downgrade clears candidate-plan entitlements for users whose candidate
// plan lapsed. Highlight and carousel expiries leave the user row alone.
func (j *subscriptionExpiryJob) downgrade(ctx context.Context, expired []models.Subscription, now time.Time) (int, error) {
	targets := map[string]struct{}{}
	for _, sub := range expired {
		if sub.PlanType == enums.PlanTypeCandidate {
			targets[sub.UserID] = struct{}{}
		}
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		count int
		errs  error
	)
	for userID := range targets {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			changed, err := j.users.DowngradeCandidatePlan(ctx, userID, now)
			logCtx := j.logg.WithUserID(ctx, userID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("downgrade %s: %w", userID, err))
				j.logg.Error(logCtx, "failed to downgrade user", err)
				return
			}
			if !changed {
				j.logg.Info(logCtx, "user renewed before downgrade; entitlement kept")
				return
			}
			count++
		}(userID)
	}
	wg.Wait()
	return count, errs
}

func (j *subscriptionExpiryJob) deliveries(ctx context.Context, userIDs []string, byUser map[string]models.Subscription) ([]notifications.Delivery, error) {
	rows, err := j.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	out := make([]notifications.Delivery, 0, len(rows))
	for _, u := range rows {
		if u.FCMToken == nil || *u.FCMToken == "" {
			continue
		}
		sub := byUser[u.ID]
		out = append(out, notifications.Delivery{
			UserID:       u.ID,
			Notification: notifications.Expired(*u.FCMToken, sub.PlanID, u.ID),
		})
	}
	return out, nil
}
