package models

// Stage is the derived phase of a user's current matchup.
type Stage string

const (
	StageReady  Stage = "READY"
	StageTrack1 Stage = "TRACK_1"
	StageTrack2 Stage = "TRACK_2"
	StageWinner Stage = "WINNER"
)

// Stage derives the phase from the row. A played track 1 with no track 2 yet
// is still TRACK_1.
func (s CompetitionState) Stage() Stage {
	switch {
	case s.Winner.Key != nil && !s.Winner.IsPlayed:
		return StageWinner
	case s.Track2.ID != nil && s.Track1.IsPlayed:
		return StageTrack2
	case s.Track1.ID != nil && s.Track2.ID == nil:
		return StageTrack1
	}
	return StageReady
}

// PlayingTrack is the slot the listener should hear now, nil when READY.
func (s *CompetitionState) PlayingTrack() (TrackKey, *MatchupTrack) {
	switch s.Stage() {
	case StageWinner:
		return TrackKeyWinner, s.Track(TrackKeyWinner)
	case StageTrack2:
		return TrackKeyTrack2, &s.Track2
	case StageTrack1:
		return TrackKeyTrack1, &s.Track1
	}
	return "", nil
}

// NonPlayingTrack mirrors PlayingTrack: the competitor not currently heard.
// In TRACK_1 it is nil until track 2 is assigned.
func (s *CompetitionState) NonPlayingTrack() *MatchupTrack {
	switch s.Stage() {
	case StageWinner:
		if *s.Winner.Key == TrackKeyTrack1 {
			return &s.Track2
		}
		return &s.Track1
	case StageTrack2:
		return &s.Track1
	case StageTrack1:
		if s.Track2.ID != nil {
			return &s.Track2
		}
	}
	return nil
}
