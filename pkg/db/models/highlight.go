package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/netaconnect/billing-backend/pkg/enums"
)

// Highlight is a promotional placement for a candidate within a ward.
type Highlight struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CandidateID    string                  `gorm:"column:candidate_id;not null"`
	UserID         string                  `gorm:"column:user_id;not null"`
	DistrictID     string                  `gorm:"column:district_id;not null"`
	BodyID         string                  `gorm:"column:body_id;not null"`
	WardID         string                  `gorm:"column:ward_id;not null"`
	Package        string                  `gorm:"column:package;not null"`
	Priority       enums.PlacementPriority `gorm:"column:priority;not null"`
	Exclusive      bool                    `gorm:"column:exclusive;not null"`
	Rotation       bool                    `gorm:"column:rotation;not null"`
	SubscriptionID uuid.UUID               `gorm:"column:subscription_id;type:uuid;not null"`
	StartsAt       time.Time               `gorm:"column:starts_at;not null"`
	ExpiresAt      time.Time               `gorm:"column:expires_at;not null"`
	IsActive       bool                    `gorm:"column:is_active;not null"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
