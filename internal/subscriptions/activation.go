package subscriptions

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/netaconnect/billing-backend/pkg/enums"
)

// DefaultValidityDays applies when the order notes carry no usable validityDays.
const DefaultValidityDays = 30

// ErrSkipActivation marks a captured payment that does not describe a plan
// purchase. Callers log it and move on.
var ErrSkipActivation = errors.New("payment notes do not describe a plan purchase")

// Activation is the plan purchase described by a payment's notes.
type Activation struct {
	PlanID       string
	UserID       string
	PlanType     enums.PlanType
	ElectionType string
	ValidityDays int
}

// ParseActivation reads the activation fields from payment notes using the
// default validity of 30 days.
func ParseActivation(notes map[string]string) (Activation, error) {
	return parseActivation(notes, DefaultValidityDays)
}

func parseActivation(notes map[string]string, defaultDays int) (Activation, error) {
	if defaultDays <= 0 {
		defaultDays = DefaultValidityDays
	}
	planID := strings.TrimSpace(notes["planId"])
	userID := strings.TrimSpace(notes["userId"])
	switch {
	case planID == "" && userID == "":
		return Activation{}, fmt.Errorf("%w: planId and userId missing", ErrSkipActivation)
	case planID == "":
		return Activation{}, fmt.Errorf("%w: planId missing", ErrSkipActivation)
	case userID == "":
		return Activation{}, fmt.Errorf("%w: userId missing", ErrSkipActivation)
	}

	days := defaultDays
	if raw := strings.TrimSpace(notes["validityDays"]); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}

	return Activation{
		PlanID:       planID,
		UserID:       userID,
		PlanType:     DerivePlanType(planID),
		ElectionType: strings.TrimSpace(notes["electionType"]),
		ValidityDays: days,
	}, nil
}

// DerivePlanType maps a plan id onto its family.
func DerivePlanType(planID string) enums.PlanType {
	return enums.PlanTypeFromPlanID(planID)
}

// PlanDisplayName is the short plan name used in notification titles.
func PlanDisplayName(planID string) string {
	switch planID {
	case "gold_plan":
		return "Gold"
	case "platinum_plan":
		return "Platinum"
	case "basic_plan":
		return "Basic"
	default:
		return "Premium"
	}
}
