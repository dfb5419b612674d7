package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"soundarena-competition/metrics"
	"soundarena-competition/models"
	"soundarena-competition/queue"
	"soundarena-competition/repository"
	"soundarena-competition/utils"
)

var (
	ErrNoCompetitionEntry  = errors.New("no competition entry")
	ErrInvalidTrackKey     = errors.New("invalid track key")
	ErrMatchupIncomplete   = errors.New("matchup incomplete")
	ErrWinnerAlreadyChosen = errors.New("winner already chosen")
	ErrTrackNotOwned       = errors.New("track not owned by user")
)

// CompetitionResetError reports that the matchup was discarded because one
// of its tracks no longer exists.
type CompetitionResetError struct {
	Competition models.CompetitionState
}

func (e *CompetitionResetError) Error() string { return "competition reset" }

// CompetitionStore persists competition rows and decided matchups.
type CompetitionStore interface {
	GetCompetitionState(ctx context.Context, userID int64) (models.CompetitionState, error)
	SaveCompetitionState(ctx context.Context, userID int64, state models.CompetitionState) error
	ClearForceReset(ctx context.Context, userID int64) error
	ResetCompetitionsForTrack(ctx context.Context, trackID int64, reset models.CompetitionState) (int64, error)
	InsertMatchup(ctx context.Context, m *models.Matchup) error
}

// TrackCatalog resolves tracks and their artists.
type TrackCatalog interface {
	GetTrack(ctx context.Context, trackID int64) (models.Track, error)
	GetTrackDetails(ctx context.Context, trackID int64) (models.TrackDetails, error)
	DeleteTrack(ctx context.Context, trackID int64) error
}

// TrackQueue is the part of TrackQueueService the lifecycle drives.
type TrackQueue interface {
	NextTrack(ctx context.Context, genre models.Genre, excludeTrackID int64) (queue.Entry, error)
	EnqueueTrack(ctx context.Context, trackID, userID int64, genre models.Genre) error
	PushTrack(ctx context.Context, trackID, userID int64, genre models.Genre) error
	SetTrackInHash(ctx context.Context, trackID, userID int64, genre models.Genre) error
}

// MatchupService drives the per-user competition state machine.
type MatchupService struct {
	competitions CompetitionStore
	tracks       TrackCatalog
	queue        TrackQueue
	durations    models.Durations
	clock        utils.Clock
	logger       *slog.Logger
}

func NewMatchupService(competitions CompetitionStore, tracks TrackCatalog, q TrackQueue, durations models.Durations, clock utils.Clock, logger *slog.Logger) *MatchupService {
	return &MatchupService{
		competitions: competitions,
		tracks:       tracks,
		queue:        q,
		durations:    durations,
		clock:        clock,
		logger:       logger,
	}
}

// PlayingTrack is the track a listener should hear for the current stage.
type PlayingTrack struct {
	TrackKey        models.TrackKey     `json:"trackKey"`
	Stage           models.Stage        `json:"stage"`
	DurationSeconds int                 `json:"duration"`
	Track           models.TrackDetails `json:"track"`
}

func (s *MatchupService) GetCompetitionState(ctx context.Context, userID int64) (models.CompetitionState, error) {
	return s.competitions.GetCompetitionState(ctx, userID)
}

func (s *MatchupService) ClearForceReset(ctx context.Context, userID int64) error {
	return s.competitions.ClearForceReset(ctx, userID)
}

// GetMatchupTrack returns the current track, first filling an empty slot
// from the genre queue: track 1 when READY, track 2 once track 1 is played.
func (s *MatchupService) GetMatchupTrack(ctx context.Context, userID int64) (PlayingTrack, error) {
	state, err := s.competitions.GetCompetitionState(ctx, userID)
	if err != nil {
		return PlayingTrack{}, err
	}
	if !state.HasEntry() {
		return PlayingTrack{}, ErrNoCompetitionEntry
	}
	genre := *state.Genre
	now := s.clock.Now().UTC()

	switch {
	case state.Stage() == models.StageReady:
		entry, err := s.queue.NextTrack(ctx, genre, 0)
		if err != nil {
			return PlayingTrack{}, err
		}
		state.StartMatchup(entry.TrackID, now, s.durations)
		if err := s.competitions.SaveCompetitionState(ctx, userID, state); err != nil {
			s.requeue(ctx, genre, entry.TrackID, entry.UserID, s.queue.PushTrack)
			return PlayingTrack{}, err
		}
	case state.Stage() == models.StageTrack1 && state.Track1.IsPlayed:
		entry, err := s.queue.NextTrack(ctx, genre, *state.Track1.ID)
		if err != nil {
			return PlayingTrack{}, err
		}
		state.SetTrack2(entry.TrackID, now)
		if err := s.competitions.SaveCompetitionState(ctx, userID, state); err != nil {
			s.requeue(ctx, genre, entry.TrackID, entry.UserID, s.queue.PushTrack)
			return PlayingTrack{}, err
		}
	}

	key, playing := state.PlayingTrack()
	if playing == nil || playing.ID == nil {
		return PlayingTrack{}, ErrMatchupIncomplete
	}
	details, err := s.tracks.GetTrackDetails(ctx, *playing.ID)
	if err != nil {
		return PlayingTrack{}, s.resetIfMissing(ctx, userID, err)
	}

	duration := state.MatchupDurationSeconds
	if key == models.TrackKeyWinner {
		duration = state.WinnerDurationSeconds
	}
	return PlayingTrack{
		TrackKey:        key,
		Stage:           state.Stage(),
		DurationSeconds: duration,
		Track:           details,
	}, nil
}

// SetTrackIsPlayed flags a slot as heard. Hearing the winner replay ends the
// matchup; the entry is kept so the next read starts a new one.
func (s *MatchupService) SetTrackIsPlayed(ctx context.Context, userID int64, key models.TrackKey) (models.CompetitionState, error) {
	if key != models.TrackKeyWinner && !key.IsMatchupKey() {
		return models.CompetitionState{}, ErrInvalidTrackKey
	}
	state, err := s.competitions.GetCompetitionState(ctx, userID)
	if err != nil {
		return models.CompetitionState{}, err
	}
	if !state.MarkPlayed(key) {
		return models.CompetitionState{}, ErrMatchupIncomplete
	}
	if key == models.TrackKeyWinner {
		state.CompleteMatchup(s.durations)
	}
	if err := s.competitions.SaveCompetitionState(ctx, userID, state); err != nil {
		return models.CompetitionState{}, err
	}
	return state, nil
}

// SetWinner records the decided matchup, stores the winner details for the
// replay and returns both tracks to the back of their queues.
func (s *MatchupService) SetWinner(ctx context.Context, userID int64, key models.TrackKey) (models.CompetitionState, error) {
	if !key.IsMatchupKey() {
		return models.CompetitionState{}, ErrInvalidTrackKey
	}
	state, err := s.competitions.GetCompetitionState(ctx, userID)
	if err != nil {
		return models.CompetitionState{}, err
	}
	if !state.HasEntry() {
		return models.CompetitionState{}, ErrNoCompetitionEntry
	}
	if state.Winner.Key != nil {
		return models.CompetitionState{}, ErrWinnerAlreadyChosen
	}
	t1, t2 := state.Track1, state.Track2
	if t1.ID == nil || t2.ID == nil || !t1.IsPlayed || !t2.IsPlayed {
		return models.CompetitionState{}, ErrMatchupIncomplete
	}

	winnerID, loserID := *t1.ID, *t2.ID
	if key == models.TrackKeyTrack2 {
		winnerID, loserID = loserID, winnerID
	}
	winner, err := s.tracks.GetTrackDetails(ctx, winnerID)
	if err != nil {
		return models.CompetitionState{}, s.resetIfMissing(ctx, userID, err)
	}

	// State first, then the record. A failed insert restores the undecided row.
	genre := *state.Genre
	decided := state
	decided.SetWinner(key, models.WinnerDetails{
		ArtistName: winner.ArtistName,
		TrackTitle: winner.TrackTitle,
		ArtistID:   winner.ArtistID,
	})
	decided.TracksCheckedOut = false
	if err := s.competitions.SaveCompetitionState(ctx, userID, decided); err != nil {
		return models.CompetitionState{}, err
	}

	if err := s.competitions.InsertMatchup(ctx, &models.Matchup{
		WinningTrackID:  winnerID,
		LosingTrackID:   loserID,
		WinningTrackKey: key,
		Genre:           genre,
		EnteredTrackID:  state.EnteredTrackID,
		UserID:          userID,
		TimestampAdded:  s.clock.Now().UTC(),
	}); err != nil {
		if rbErr := s.competitions.SaveCompetitionState(ctx, userID, state); rbErr != nil {
			s.logger.Error("winner not rolled back", "user_id", userID, "error", rbErr)
		}
		return models.CompetitionState{}, err
	}
	metrics.MatchupsRecorded.Inc()

	s.requeue(ctx, genre, winnerID, winner.ArtistID, s.queue.EnqueueTrack)
	if loser, err := s.tracks.GetTrack(ctx, loserID); err == nil {
		s.requeue(ctx, genre, loserID, loser.UserID, s.queue.EnqueueTrack)
	} else {
		s.logger.Warn("requeue skipped", "genre", genre, "track_id", loserID, "error", err)
	}
	return decided, nil
}

// CancelMatchup abandons the current matchup. The competitor not being heard
// goes back to the front of its queue; in the winner replay both tracks were
// already returned when the winner was chosen.
func (s *MatchupService) CancelMatchup(ctx context.Context, userID int64) (models.CompetitionState, error) {
	state, err := s.competitions.GetCompetitionState(ctx, userID)
	if err != nil {
		return models.CompetitionState{}, err
	}
	if state.Stage() == models.StageReady && !state.TracksCheckedOut {
		return state, nil
	}
	s.returnNonPlaying(ctx, state)

	state.CompleteMatchup(s.durations)
	if err := s.competitions.SaveCompetitionState(ctx, userID, state); err != nil {
		return models.CompetitionState{}, err
	}
	return state, nil
}

// EnterCompetition queues the caller's track and makes it the entry every
// following matchup is credited to.
func (s *MatchupService) EnterCompetition(ctx context.Context, userID, trackID int64, genre models.Genre) (models.CompetitionState, error) {
	if !genre.Valid() {
		return models.CompetitionState{}, &InvalidEntryError{Field: "genre"}
	}
	track, err := s.tracks.GetTrack(ctx, trackID)
	if err != nil {
		return models.CompetitionState{}, err
	}
	if track.UserID != userID {
		return models.CompetitionState{}, ErrTrackNotOwned
	}
	state, err := s.competitions.GetCompetitionState(ctx, userID)
	if err != nil {
		return models.CompetitionState{}, err
	}
	if state.TracksCheckedOut {
		s.returnNonPlaying(ctx, state)
	}

	if err := s.queue.EnqueueTrack(ctx, trackID, userID, genre); err != nil {
		return models.CompetitionState{}, err
	}
	if err := s.queue.SetTrackInHash(ctx, trackID, userID, genre); err != nil {
		return models.CompetitionState{}, err
	}

	state.Enter(trackID, genre, s.durations)
	if err := s.competitions.SaveCompetitionState(ctx, userID, state); err != nil {
		return models.CompetitionState{}, err
	}
	return state, nil
}

// DeleteTrack tombstones the caller's track and force-resets every in-flight
// competition that references it. It returns the number of reset rows.
func (s *MatchupService) DeleteTrack(ctx context.Context, userID, trackID int64) (int64, error) {
	track, err := s.tracks.GetTrack(ctx, trackID)
	if err != nil {
		return 0, err
	}
	if track.UserID != userID {
		return 0, ErrTrackNotOwned
	}
	if err := s.tracks.DeleteTrack(ctx, trackID); err != nil {
		return 0, err
	}
	n, err := s.competitions.ResetCompetitionsForTrack(ctx, trackID, models.ForcedReset(s.durations))
	if err != nil {
		return 0, err
	}
	if err := s.clearOwnEntry(ctx, userID, trackID); err != nil {
		return 0, err
	}
	s.logger.Info("track deleted", "track_id", trackID, "user_id", userID, "competitions_reset", n)
	return n, nil
}

// clearOwnEntry withdraws the owner's entry when it is the deleted track.
func (s *MatchupService) clearOwnEntry(ctx context.Context, userID, trackID int64) error {
	state, err := s.competitions.GetCompetitionState(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if state.EnteredTrackID == nil || *state.EnteredTrackID != trackID {
		return nil
	}
	if state.TracksCheckedOut {
		s.returnNonPlaying(ctx, state)
	}
	return s.competitions.SaveCompetitionState(ctx, userID, models.InitialCompetitionState(s.durations))
}

func (s *MatchupService) returnNonPlaying(ctx context.Context, state models.CompetitionState) {
	stage := state.Stage()
	if stage != models.StageTrack1 && stage != models.StageTrack2 {
		return
	}
	other := state.NonPlayingTrack()
	if other == nil || other.ID == nil || state.Genre == nil {
		return
	}
	track, err := s.tracks.GetTrack(ctx, *other.ID)
	if err != nil {
		s.logger.Warn("requeue skipped", "genre", *state.Genre, "track_id", *other.ID, "error", err)
		return
	}
	s.requeue(ctx, *state.Genre, track.ID, track.UserID, s.queue.PushTrack)
}

func (s *MatchupService) requeue(ctx context.Context, genre models.Genre, trackID, ownerID int64, push func(context.Context, int64, int64, models.Genre) error) {
	if err := push(ctx, trackID, ownerID, genre); err != nil {
		s.logger.Error("requeue failed", "genre", genre, "track_id", trackID, "user_id", ownerID, "error", err)
	}
}

// resetIfMissing discards the matchup when err says a track is gone. The
// reset is reported now, so the stored flag stays down.
func (s *MatchupService) resetIfMissing(ctx context.Context, userID int64, err error) error {
	var missing *repository.TrackDoesNotExistError
	if !errors.As(err, &missing) {
		return err
	}
	reset := models.InitialCompetitionState(s.durations)
	if saveErr := s.competitions.SaveCompetitionState(ctx, userID, reset); saveErr != nil {
		return fmt.Errorf("reset competition after %v: %w", err, saveErr)
	}
	s.logger.Warn("competition reset", "user_id", userID, "track_id", missing.TrackID)
	return &CompetitionResetError{Competition: reset}
}
