package models

// Track is an uploaded audio track. Upload, storage and profile CRUD live
// elsewhere; the competition only needs ownership, liveness and display data.
// Deleted tracks keep their row (soft delete) so history still resolves.
type Track struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64   `gorm:"index;not null" json:"user_id"`
	Name      *string `json:"name"`
	StreamURL *string `json:"stream_url"`
	Duration  *int    `json:"duration"`

	Timestamps
}

// TrackDetails joins a track with its artist for playback responses.
type TrackDetails struct {
	TrackID        int64  `gorm:"column:track_id" json:"trackId"`
	TrackTitle     string `gorm:"column:track_title" json:"trackTitle"`
	TrackStreamURL string `gorm:"column:track_stream_url" json:"trackStreamUrl"`
	ArtistID       int64  `gorm:"column:artist_id" json:"artistId"`
	ArtistName     string `gorm:"column:artist_name" json:"artistName"`
}

// QueueCandidate is a track eligible to be placed back on a queue, tagged with its owner.
type QueueCandidate struct {
	TrackID int64 `gorm:"column:track_id"`
	UserID  int64 `gorm:"column:user_id"`
}

// TrackTally is one track's wins and losses over a window of matchups.
type TrackTally struct {
	TrackID int64
	UserID  int64
	Wins    int64
	Losses  int64
}

// Plays is the number of decided matchups the track appeared in.
func (t TrackTally) Plays() int64 {
	return t.Wins + t.Losses
}

// Score is the win ratio, 0 when unplayed.
func (t TrackTally) Score() float64 {
	if t.Plays() == 0 {
		return 0
	}
	return float64(t.Wins) / float64(t.Plays())
}
