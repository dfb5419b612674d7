package models

import (
	"time"
)

// User is the local snapshot of a listener/artist. Identity and profile data
// are owned upstream; this service owns the competition columns.
type User struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string           `gorm:"not null" json:"name"`
	Competition CompetitionState `gorm:"embedded;embeddedPrefix:competition_" json:"competition"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// ExpiredMatchup is a checked-out competition whose matchup outlived the expiry window.
type ExpiredMatchup struct {
	UserID   int64  `gorm:"column:user_id"`
	Track1ID *int64 `gorm:"column:track1_id"`
	Track2ID *int64 `gorm:"column:track2_id"`
}

// TrackIDs returns the non-null competitor ids.
func (m ExpiredMatchup) TrackIDs() []int64 {
	ids := make([]int64, 0, 2)
	if m.Track1ID != nil {
		ids = append(ids, *m.Track1ID)
	}
	if m.Track2ID != nil {
		ids = append(ids, *m.Track2ID)
	}
	return ids
}
