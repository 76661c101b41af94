package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/netaconnect/billing-backend/pkg/enums"
)

// FeedPost is a system-authored entry in a ward's feed.
type FeedPost struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CandidateID string             `gorm:"column:candidate_id;not null"`
	UserID      string             `gorm:"column:user_id;not null"`
	DistrictID  string             `gorm:"column:district_id;not null"`
	BodyID      string             `gorm:"column:body_id;not null"`
	WardID      string             `gorm:"column:ward_id;not null"`
	Kind        enums.FeedPostKind `gorm:"column:kind;not null"`
	Title       string             `gorm:"column:title;not null"`
	Body        string             `gorm:"column:body;not null"`
	ExpiresAt   *time.Time         `gorm:"column:expires_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
}
