package models

import (
	"time"

	"github.com/lib/pq"
)

// Candidate is the public profile a user runs for office with. Location ids
// form the state/district/body/ward path placements are scoped to.
type Candidate struct {
	ID            string         `gorm:"column:id;primaryKey"`
	UserID        string         `gorm:"column:user_id;not null"`
	Name          string         `gorm:"column:name;not null"`
	StateID       *string        `gorm:"column:state_id"`
	DistrictID    *string        `gorm:"column:district_id"`
	BodyID        *string        `gorm:"column:body_id"`
	WardID        *string        `gorm:"column:ward_id"`
	DeleteStorage pq.StringArray `gorm:"column:delete_storage;type:text[]"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// LocationPath returns district, body and ward ids, and false when any is missing.
func (c Candidate) LocationPath() (district, body, ward string, ok bool) {
	if c.DistrictID == nil || c.BodyID == nil || c.WardID == nil {
		return "", "", "", false
	}
	if *c.DistrictID == "" || *c.BodyID == "" || *c.WardID == "" {
		return "", "", "", false
	}
	return *c.DistrictID, *c.BodyID, *c.WardID, true
}
