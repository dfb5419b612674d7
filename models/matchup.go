package models

import "time"

// Matchup is the durable, append-only record of one decided matchup. It is
// the only input to scoring.
type Matchup struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WinningTrackID  int64     `gorm:"index;not null" json:"winning_track_id"`
	LosingTrackID   int64     `gorm:"index;not null" json:"losing_track_id"`
	WinningTrackKey TrackKey  `gorm:"type:varchar(16);not null" json:"winning_track_key"`
	Genre           Genre     `gorm:"type:varchar(32);index:idx_matchup_genre_time;not null" json:"genre"`
	EnteredTrackID  *int64    `gorm:"index" json:"entered_track_id"`
	UserID          int64     `gorm:"index;not null" json:"user_id"`
	TimestampAdded  time.Time `gorm:"index:idx_matchup_genre_time;not null" json:"timestamp_added"`
}
