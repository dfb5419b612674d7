package models

import (
	"time"

	"gorm.io/datatypes"
)

// Award is granted to every eligible track of a finalized day.
type Award struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TrackID           int64          `gorm:"index;not null" json:"track_id"`
	Date              datatypes.Date `gorm:"index;not null" json:"date"`
	Wins              int            `gorm:"not null" json:"wins"`
	Losses            int            `gorm:"not null" json:"losses"`
	Place             int            `gorm:"not null" json:"place"`
	TotalParticipants int            `gorm:"not null" json:"total_participants"`
	Genre             Genre          `gorm:"type:varchar(32);index;not null" json:"genre"`
	Acknowledged      bool           `gorm:"not null;default:false" json:"acknowledged"`
	CreatedAt         time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// CompetitionResult is one leaderboard row of a finalized day.
type CompetitionResult struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TrackID      int64          `gorm:"index;not null" json:"track_id"`
	Date         datatypes.Date `gorm:"index;not null" json:"date"`
	Wins         int            `gorm:"not null" json:"wins"`
	Losses       int            `gorm:"not null" json:"losses"`
	Place        int            `gorm:"not null" json:"place"`
	Entries      int            `gorm:"not null" json:"entries"`
	Genre        Genre          `gorm:"type:varchar(32);index;not null" json:"genre"`
	Acknowledged bool           `gorm:"not null;default:false" json:"acknowledged"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// SkippedTrack carries an under-played track's tally into the next finalization.
type SkippedTrack struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TrackID   int64          `gorm:"index;not null" json:"track_id"`
	Date      datatypes.Date `gorm:"index;not null" json:"date"`
	Wins      int            `gorm:"not null" json:"wins"`
	Losses    int            `gorm:"not null" json:"losses"`
	Entries   int            `gorm:"not null" json:"entries"`
	Genre     Genre          `gorm:"type:varchar(32);index;not null" json:"genre"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// FinalizeRun is the ledger row of a completed finalization.
type FinalizeRun struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Date      datatypes.Date `gorm:"uniqueIndex;not null" json:"date"`
	Metrics   datatypes.JSON `json:"metrics"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
}
