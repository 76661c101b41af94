package provisioning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/netaconnect/billing-backend/internal/subscriptions"
	dbpkg "github.com/netaconnect/billing-backend/pkg/db"
	"github.com/netaconnect/billing-backend/pkg/db/models"
	"github.com/netaconnect/billing-backend/pkg/enums"
	"github.com/netaconnect/billing-backend/pkg/logger"
	"github.com/netaconnect/billing-backend/pkg/outbox/payloads"
)

const defaultAnnouncementTTL = 72 * time.Hour

// Outcome names what Provision did.
type Outcome string

const (
	OutcomeExclusivePlacement Outcome = "exclusive_placement"
	OutcomePlacementCreated   Outcome = "placement_created"
	OutcomePlacementExtended  Outcome = "placement_extended"
	OutcomeSkipped            Outcome = "skipped"
	OutcomeNoop               Outcome = "noop"
	OutcomeAlreadyProvisioned Outcome = "already_provisioned"
)

var errAlreadyProvisioned = errors.New("subscription already provisioned")

type candidateFinder interface {
	FindByUserID(ctx context.Context, userID string) (*models.Candidate, error)
}

// DispatcherParams wires a Dispatcher. Clock is optional.
type DispatcherParams struct {
	DB              dbpkg.TxRunner
	Repo            *Repository
	Candidates      candidateFinder
	Logger          *logger.Logger
	AnnouncementTTL time.Duration
	Clock           func() time.Time
}

// Dispatcher applies the side effects of an activated plan.
type Dispatcher struct {
	db              dbpkg.TxRunner
	repo            *Repository
	candidates      candidateFinder
	logg            *logger.Logger
	announcementTTL time.Duration
	now             func() time.Time
}

func NewDispatcher(p DispatcherParams) (*Dispatcher, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if p.Repo == nil {
		return nil, fmt.Errorf("provisioning repository required")
	}
	if p.Candidates == nil {
		return nil, fmt.Errorf("candidate lookup required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	ttl := p.AnnouncementTTL
	if ttl <= 0 {
		ttl = defaultAnnouncementTTL
	}
	clock := p.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Dispatcher{
		db:              p.DB,
		repo:            p.Repo,
		candidates:      p.Candidates,
		logg:            logg,
		announcementTTL: ttl,
		now:             func() time.Time { return clock().UTC() },
	}, nil
}

// Provision routes an activated subscription by plan family. Each branch
// commits in its own transaction and never touches the entitlement. A
// subscription is applied at most once; replays report
// OutcomeAlreadyProvisioned.
func (d *Dispatcher) Provision(ctx context.Context, evt payloads.SubscriptionActivatedEvent) (Outcome, error) {
	ctx = d.logg.WithFields(ctx, map[string]any{
		"subscription_id": evt.SubscriptionID.String(),
		"user_id":         evt.UserID,
		"plan_id":         evt.PlanID,
	})
	planType := evt.PlanType
	if planType == "" {
		planType = subscriptions.DerivePlanType(evt.PlanID)
	}

	switch {
	case planType == enums.PlanTypeCandidate && strings.Contains(strings.ToLower(evt.PlanID), "platinum"):
		return d.provisionExclusive(ctx, evt)
	case planType == enums.PlanTypeHighlight:
		return d.provisionRotating(ctx, evt)
	default:
		d.logg.Info(ctx, "plan has no placement to provision")
		return OutcomeNoop, nil
	}
}

func (d *Dispatcher) locate(ctx context.Context, userID string) (*models.Candidate, string, string, string, bool, error) {
	candidate, err := d.candidates.FindByUserID(ctx, userID)
	if err != nil {
		return nil, "", "", "", false, err
	}
	if candidate == nil {
		d.logg.Warn(ctx, "no candidate profile for user, skipping placement")
		return nil, "", "", "", false, nil
	}
	district, body, ward, ok := candidate.LocationPath()
	if !ok {
		d.logg.Warn(d.logg.WithField(ctx, "candidate_id", candidate.ID), "candidate location incomplete, skipping placement")
		return nil, "", "", "", false, nil
	}
	return candidate, district, body, ward, true, nil
}

func (d *Dispatcher) provisionExclusive(ctx context.Context, evt payloads.SubscriptionActivatedEvent) (Outcome, error) {
	candidate, district, body, ward, ok, err := d.locate(ctx, evt.UserID)
	if err != nil || !ok {
		return OutcomeSkipped, err
	}
	now := d.now()
	expiresAt := evt.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(time.Duration(evt.ValidityDays) * 24 * time.Hour)
	}
	announcementExpiry := now.Add(d.announcementTTL)

	err = d.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)
		if err := d.markProvisioned(ctx, repo, evt, now); err != nil {
			return err
		}
		if err := repo.CreateHighlight(ctx, &models.Highlight{
			CandidateID:    candidate.ID,
			UserID:         evt.UserID,
			DistrictID:     district,
			BodyID:         body,
			WardID:         ward,
			Package:        evt.PlanID,
			Priority:       enums.PlacementPriorityHigh,
			Exclusive:      true,
			Rotation:       false,
			SubscriptionID: evt.SubscriptionID,
			StartsAt:       now,
			ExpiresAt:      expiresAt,
			IsActive:       true,
		}); err != nil {
			return err
		}
		return repo.CreateFeedPost(ctx, &models.FeedPost{
			CandidateID: candidate.ID,
			UserID:      evt.UserID,
			DistrictID:  district,
			BodyID:      body,
			WardID:      ward,
			Kind:        enums.FeedPostKindAnnouncement,
			Title:       fmt.Sprintf("%s is now a Platinum candidate", candidate.Name),
			Body:        fmt.Sprintf("%s is featured in your ward. Tap to see their profile.", candidate.Name),
			ExpiresAt:   &announcementExpiry,
		})
	})
	if errors.Is(err, errAlreadyProvisioned) {
		d.logg.Info(ctx, "subscription already provisioned")
		return OutcomeAlreadyProvisioned, nil
	}
	if err != nil {
		return "", err
	}
	d.logg.Info(ctx, "exclusive placement provisioned")
	return OutcomeExclusivePlacement, nil
}

func (d *Dispatcher) provisionRotating(ctx context.Context, evt payloads.SubscriptionActivatedEvent) (Outcome, error) {
	candidate, district, body, ward, ok, err := d.locate(ctx, evt.UserID)
	if err != nil || !ok {
		return OutcomeSkipped, err
	}
	now := d.now()
	validity := time.Duration(evt.ValidityDays) * 24 * time.Hour

	outcome := OutcomePlacementCreated
	err = d.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)
		if err := d.markProvisioned(ctx, repo, evt, now); err != nil {
			return err
		}
		current, err := repo.FindRotatingPlacement(ctx, candidate.ID, ward)
		if err != nil {
			return err
		}
		if current != nil {
			outcome = OutcomePlacementExtended
			base := current.ExpiresAt
			if base.Before(now) {
				base = now
			}
			return repo.ExtendHighlight(ctx, current.ID, evt.PlanID, evt.SubscriptionID, base.Add(validity), now)
		}
		if err := repo.CreateHighlight(ctx, &models.Highlight{
			CandidateID:    candidate.ID,
			UserID:         evt.UserID,
			DistrictID:     district,
			BodyID:         body,
			WardID:         ward,
			Package:        evt.PlanID,
			Priority:       enums.PlacementPriorityNormal,
			Exclusive:      false,
			Rotation:       true,
			SubscriptionID: evt.SubscriptionID,
			StartsAt:       now,
			ExpiresAt:      now.Add(validity),
			IsActive:       true,
		}); err != nil {
			return err
		}
		return repo.CreateFeedPost(ctx, &models.FeedPost{
			CandidateID: candidate.ID,
			UserID:      evt.UserID,
			DistrictID:  district,
			BodyID:      body,
			WardID:      ward,
			Kind:        enums.FeedPostKindWelcome,
			Title:       fmt.Sprintf("Meet %s", candidate.Name),
			Body:        fmt.Sprintf("%s is now highlighted in your ward.", candidate.Name),
		})
	})
	if errors.Is(err, errAlreadyProvisioned) {
		d.logg.Info(ctx, "subscription already provisioned")
		return OutcomeAlreadyProvisioned, nil
	}
	if err != nil {
		return "", err
	}
	d.logg.Info(d.logg.WithField(ctx, "outcome", string(outcome)), "rotating placement provisioned")
	return outcome, nil
}

func (d *Dispatcher) markProvisioned(ctx context.Context, repo *Repository, evt payloads.SubscriptionActivatedEvent, now time.Time) error {
	inserted, err := repo.MarkProvisioned(ctx, &models.ProvisionedSubscription{
		SubscriptionID: evt.SubscriptionID,
		UserID:         evt.UserID,
		PlanID:         evt.PlanID,
		ProvisionedAt:  now,
	})
	if err != nil {
		return err
	}
	if !inserted {
		return errAlreadyProvisioned
	}
	return nil
}
