package models

import "time"

// TrackKey names a slot of a user's current matchup.
type TrackKey string

const (
	TrackKeyTrack1 TrackKey = "track1"
	TrackKeyTrack2 TrackKey = "track2"
	TrackKeyWinner TrackKey = "winner"
)

// MatchupTrackKeys are the two competing slots.
func MatchupTrackKeys() []TrackKey {
	return []TrackKey{TrackKeyTrack1, TrackKeyTrack2}
}

// AllTrackKeys are the competing slots plus the winner replay.
func AllTrackKeys() []TrackKey {
	return append(MatchupTrackKeys(), TrackKeyWinner)
}

func (k TrackKey) IsMatchupKey() bool {
	return k == TrackKeyTrack1 || k == TrackKeyTrack2
}

// MatchupTrack is one competing slot of a matchup.
type MatchupTrack struct {
	ID        *int64     `gorm:"column:id" json:"id"`
	IsPlayed  bool       `gorm:"column:is_played;not null;default:false" json:"isPlayed"`
	StartedAt *time.Time `gorm:"column:start" json:"startedAt"`
}

// MatchupWinner holds the chosen key and the winner's details, denormalized
// so the winner replay needs no joins.
type MatchupWinner struct {
	Key        *TrackKey `gorm:"column:key;type:varchar(16)" json:"key"`
	ArtistName *string   `gorm:"column:artist_name" json:"artistName"`
	TrackTitle *string   `gorm:"column:track_title" json:"trackTitle"`
	ArtistID   *int64    `gorm:"column:artist_id" json:"artistId"`
	IsPlayed   bool      `gorm:"column:is_played;not null;default:false" json:"isPlayed"`
}

// CompetitionState is a user's current matchup. It is stored on the user row
// (columns prefixed competition_) and its stage is always derived, never stored.
type CompetitionState struct {
	Track1 MatchupTrack  `gorm:"embedded;embeddedPrefix:track_1_" json:"track1"`
	Track2 MatchupTrack  `gorm:"embedded;embeddedPrefix:track_2_" json:"track2"`
	Winner MatchupWinner `gorm:"embedded;embeddedPrefix:winner_" json:"winner"`

	// Durations are copied from config when a matchup starts so config
	// changes never alter a matchup in flight.
	MatchupDurationSeconds int `gorm:"column:matchup_duration;not null;default:0" json:"matchupDuration"`
	WinnerDurationSeconds  int `gorm:"column:winner_duration;not null;default:0" json:"winnerDuration"`

	EnteredTrackID   *int64     `gorm:"column:entered_track_id" json:"enteredTrackId"`
	Genre            *Genre     `gorm:"column:genre;type:varchar(32);index" json:"genre"`
	TracksCheckedOut bool       `gorm:"column:tracks_checked_out;not null;default:false;index" json:"tracksCheckedOut"`
	StartTimestamp   *time.Time `gorm:"column:timestamp_start" json:"startTimestamp"`
	ForceReset       bool       `gorm:"column:force_reset;not null;default:false" json:"forceReset"`
}

// Durations are the per-matchup preview lengths, in seconds.
type Durations struct {
	MatchupSeconds int
	WinnerSeconds  int
}

// InitialCompetitionState is the READY state with every field defaulted.
func InitialCompetitionState(d Durations) CompetitionState {
	return CompetitionState{
		MatchupDurationSeconds: d.MatchupSeconds,
		WinnerDurationSeconds:  d.WinnerSeconds,
	}
}

// Track returns the slot addressed by key. For the winner key it returns the
// slot the winner key points at, or nil when no winner is chosen.
func (s *CompetitionState) Track(key TrackKey) *MatchupTrack {
	switch key {
	case TrackKeyTrack1:
		return &s.Track1
	case TrackKeyTrack2:
		return &s.Track2
	case TrackKeyWinner:
		if s.Winner.Key == nil || !s.Winner.Key.IsMatchupKey() {
			return nil
		}
		return s.Track(*s.Winner.Key)
	}
	return nil
}

// HasEntry reports whether the user entered a track and may be matched.
func (s CompetitionState) HasEntry() bool {
	return s.Genre != nil && s.Genre.Valid()
}

// StartMatchup writes track 1 of a new matchup and checks the matchup out.
func (s *CompetitionState) StartMatchup(trackID int64, now time.Time, d Durations) {
	entered, genre := s.EnteredTrackID, s.Genre
	*s = InitialCompetitionState(d)
	s.EnteredTrackID, s.Genre = entered, genre

	s.Track1 = MatchupTrack{ID: &trackID, StartedAt: &now}
	s.StartTimestamp = &now
	s.TracksCheckedOut = true
}

// SetTrack2 writes the second competitor.
func (s *CompetitionState) SetTrack2(trackID int64, now time.Time) {
	s.Track2 = MatchupTrack{ID: &trackID, StartedAt: &now}
}

// MarkPlayed flags a slot as played. It reports false when the slot is empty.
func (s *CompetitionState) MarkPlayed(key TrackKey) bool {
	switch key {
	case TrackKeyTrack1, TrackKeyTrack2:
		t := s.Track(key)
		if t.ID == nil {
			return false
		}
		t.IsPlayed = true
		return true
	case TrackKeyWinner:
		if s.Winner.Key == nil {
			return false
		}
		s.Winner.IsPlayed = true
		return true
	}
	return false
}

// WinnerDetails is the denormalized data copied onto the row when a winner is chosen.
type WinnerDetails struct {
	ArtistName string
	TrackTitle string
	ArtistID   int64
}

// SetWinner records the chosen key; the winner replay is pending afterwards.
func (s *CompetitionState) SetWinner(key TrackKey, d WinnerDetails) {
	k := key
	s.Winner = MatchupWinner{
		Key:        &k,
		ArtistName: &d.ArtistName,
		TrackTitle: &d.TrackTitle,
		ArtistID:   &d.ArtistID,
		IsPlayed:   false,
	}
}

// CompleteMatchup returns the row to READY, keeping the entry so the user
// can judge the next matchup for the same entered track.
func (s *CompetitionState) CompleteMatchup(d Durations) {
	entered, genre := s.EnteredTrackID, s.Genre
	*s = InitialCompetitionState(d)
	s.EnteredTrackID, s.Genre = entered, genre
}

// Enter resets the row to READY for a new competition entry.
func (s *CompetitionState) Enter(trackID int64, genre Genre, d Durations) {
	*s = InitialCompetitionState(d)
	s.EnteredTrackID = &trackID
	s.Genre = &genre
}

// ForcedReset is the defaulted row flagged so the client is told to restart.
func ForcedReset(d Durations) CompetitionState {
	s := InitialCompetitionState(d)
	s.ForceReset = true
	return s
}

// Columns maps every competition column to its value, for full-row updates
// that must also write zero values.
func (s CompetitionState) Columns() map[string]interface{} {
	var winnerKey interface{}
	if s.Winner.Key != nil {
		winnerKey = string(*s.Winner.Key)
	}
	var genre interface{}
	if s.Genre != nil {
		genre = string(*s.Genre)
	}
	return map[string]interface{}{
		ColTrack1ID:         s.Track1.ID,
		ColTrack1IsPlayed:   s.Track1.IsPlayed,
		ColTrack1Start:      s.Track1.StartedAt,
		ColTrack2ID:         s.Track2.ID,
		ColTrack2IsPlayed:   s.Track2.IsPlayed,
		ColTrack2Start:      s.Track2.StartedAt,
		ColWinnerKey:        winnerKey,
		ColWinnerArtistName: s.Winner.ArtistName,
		ColWinnerTrackTitle: s.Winner.TrackTitle,
		ColWinnerArtistID:   s.Winner.ArtistID,
		ColWinnerIsPlayed:   s.Winner.IsPlayed,
		ColMatchupDuration:  s.MatchupDurationSeconds,
		ColWinnerDuration:   s.WinnerDurationSeconds,
		ColEnteredTrackID:   s.EnteredTrackID,
		ColGenre:            genre,
		ColTracksCheckedOut: s.TracksCheckedOut,
		ColStartTimestamp:   s.StartTimestamp,
		ColForceReset:       s.ForceReset,
	}
}

// Column names of the competition state on the users table.
const (
	ColTrack1ID         = "competition_track_1_id"
	ColTrack1IsPlayed   = "competition_track_1_is_played"
	ColTrack1Start      = "competition_track_1_start"
	ColTrack2ID         = "competition_track_2_id"
	ColTrack2IsPlayed   = "competition_track_2_is_played"
	ColTrack2Start      = "competition_track_2_start"
	ColWinnerKey        = "competition_winner_key"
	ColWinnerArtistName = "competition_winner_artist_name"
	ColWinnerTrackTitle = "competition_winner_track_title"
	ColWinnerArtistID   = "competition_winner_artist_id"
	ColWinnerIsPlayed   = "competition_winner_is_played"
	ColMatchupDuration  = "competition_matchup_duration"
	ColWinnerDuration   = "competition_winner_duration"
	ColEnteredTrackID   = "competition_entered_track_id"
	ColGenre            = "competition_genre"
	ColTracksCheckedOut = "competition_tracks_checked_out"
	ColStartTimestamp   = "competition_timestamp_start"
	ColForceReset       = "competition_force_reset"
)
