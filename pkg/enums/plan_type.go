package enums

import (
	"fmt"
	"strings"
)

// PlanType maps to the plan_type enum in Postgres.
type PlanType string

const (
	PlanTypeCandidate PlanType = "candidate"
	PlanTypeHighlight PlanType = "highlight"
	PlanTypeCarousel  PlanType = "carousel"
)

var validPlanTypes = []PlanType{
	PlanTypeCandidate,
	PlanTypeHighlight,
	PlanTypeCarousel,
}

func (p PlanType) String() string {
	return string(p)
}

func (p PlanType) IsValid() bool {
	for _, candidate := range validPlanTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// PlanTypeFromPlanID derives the plan family from the plan id. Anything that
// is neither a highlight nor a carousel plan is a candidate plan.
func PlanTypeFromPlanID(planID string) PlanType {
	id := strings.ToLower(planID)
	switch {
	case strings.Contains(id, "highlight"):
		return PlanTypeHighlight
	case strings.Contains(id, "carousel"):
		return PlanTypeCarousel
	default:
		return PlanTypeCandidate
	}
}

func ParsePlanType(value string) (PlanType, error) {
	for _, candidate := range validPlanTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan type %q", value)
}
