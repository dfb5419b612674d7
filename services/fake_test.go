package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"soundarena-competition/models"
	"soundarena-competition/queue"
	"soundarena-competition/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ------------------------
// Fake Play History
// ------------------------

type FakePlayHistory struct {
	trace []string

	TrackPlayCountFunc          func(ctx context.Context, genre models.Genre, trackID int64, from, to time.Time) (int64, error)
	DailyTalliesFunc            func(ctx context.Context, genre models.Genre, from, to time.Time) ([]models.TrackTally, error)
	PreviouslyEnteredTracksFunc func(ctx context.Context, genre models.Genre, limit int) ([]models.QueueCandidate, error)
}

func (f *FakePlayHistory) record(step string) { f.trace = append(f.trace, step) }

func (f *FakePlayHistory) Trace() []string { return f.trace }

func (f *FakePlayHistory) TrackPlayCount(ctx context.Context, genre models.Genre, trackID int64, from, to time.Time) (int64, error) {
	f.record("TrackPlayCount")
	if f.TrackPlayCountFunc != nil {
		return f.TrackPlayCountFunc(ctx, genre, trackID, from, to)
	}
	return 0, nil
}

func (f *FakePlayHistory) DailyTallies(ctx context.Context, genre models.Genre, from, to time.Time) ([]models.TrackTally, error) {
	f.record("DailyTallies")
	if f.DailyTalliesFunc != nil {
		return f.DailyTalliesFunc(ctx, genre, from, to)
	}
	return nil, nil
}

func (f *FakePlayHistory) PreviouslyEnteredTracks(ctx context.Context, genre models.Genre, limit int) ([]models.QueueCandidate, error) {
	f.record("PreviouslyEnteredTracks")
	if f.PreviouslyEnteredTracksFunc != nil {
		return f.PreviouslyEnteredTracksFunc(ctx, genre, limit)
	}
	return nil, nil
}

// ------------------------
// Fake Competition Store
// ------------------------

// FakeCompetitionStore keeps rows in memory so state flows between calls.
type FakeCompetitionStore struct {
	trace    []string
	States   map[int64]models.CompetitionState
	Matchups []models.Matchup

	SaveErr   error
	InsertErr error
	Resets    []int64
}

func NewFakeCompetitionStore() *FakeCompetitionStore {
	return &FakeCompetitionStore{States: map[int64]models.CompetitionState{}}
}

func (f *FakeCompetitionStore) record(step string) { f.trace = append(f.trace, step) }

func (f *FakeCompetitionStore) Trace() []string { return f.trace }

func (f *FakeCompetitionStore) GetCompetitionState(_ context.Context, userID int64) (models.CompetitionState, error) {
	f.record("GetCompetitionState")
	s, ok := f.States[userID]
	if !ok {
		return models.CompetitionState{}, repository.ErrUserNotFound
	}
	return s, nil
}

func (f *FakeCompetitionStore) SaveCompetitionState(_ context.Context, userID int64, state models.CompetitionState) error {
	f.record("SaveCompetitionState")
	if f.SaveErr != nil {
		return f.SaveErr
	}
	f.States[userID] = state
	return nil
}

func (f *FakeCompetitionStore) ClearForceReset(_ context.Context, userID int64) error {
	f.record("ClearForceReset")
	s := f.States[userID]
	s.ForceReset = false
	f.States[userID] = s
	return nil
}

func (f *FakeCompetitionStore) ResetCompetitionsForTrack(_ context.Context, trackID int64, reset models.CompetitionState) (int64, error) {
	f.record("ResetCompetitionsForTrack")
	f.Resets = append(f.Resets, trackID)
	var n int64
	for id, s := range f.States {
		refs := (s.Track1.ID != nil && *s.Track1.ID == trackID) || (s.Track2.ID != nil && *s.Track2.ID == trackID)
		if refs && !s.Winner.IsPlayed && (s.TracksCheckedOut || s.Winner.Key != nil) {
			f.States[id] = reset
			n++
		}
	}
	return n, nil
}

func (f *FakeCompetitionStore) InsertMatchup(_ context.Context, m *models.Matchup) error {
	f.record("InsertMatchup")
	if f.InsertErr != nil {
		return f.InsertErr
	}
	f.Matchups = append(f.Matchups, *m)
	return nil
}

// ------------------------
// Fake Track Catalog
// ------------------------

type FakeTrackCatalog struct {
	trace  []string
	Tracks map[int64]models.Track
	Users  map[int64]string
}

func NewFakeTrackCatalog() *FakeTrackCatalog {
	return &FakeTrackCatalog{Tracks: map[int64]models.Track{}, Users: map[int64]string{}}
}

func (f *FakeTrackCatalog) Add(trackID, userID int64, artist string) {
	name := "track"
	f.Tracks[trackID] = models.Track{ID: trackID, UserID: userID, Name: &name}
	f.Users[userID] = artist
}

func (f *FakeTrackCatalog) record(step string) { f.trace = append(f.trace, step) }

func (f *FakeTrackCatalog) GetTrack(_ context.Context, trackID int64) (models.Track, error) {
	f.record("GetTrack")
	t, ok := f.Tracks[trackID]
	if !ok {
		return models.Track{}, &repository.TrackDoesNotExistError{TrackID: trackID}
	}
	return t, nil
}

func (f *FakeTrackCatalog) GetTrackDetails(ctx context.Context, trackID int64) (models.TrackDetails, error) {
	t, err := f.GetTrack(ctx, trackID)
	if err != nil {
		return models.TrackDetails{}, err
	}
	return models.TrackDetails{
		TrackID:    t.ID,
		TrackTitle: *t.Name,
		ArtistID:   t.UserID,
		ArtistName: f.Users[t.UserID],
	}, nil
}

func (f *FakeTrackCatalog) DeleteTrack(_ context.Context, trackID int64) error {
	f.record("DeleteTrack")
	if _, ok := f.Tracks[trackID]; !ok {
		return &repository.TrackDoesNotExistError{TrackID: trackID}
	}
	delete(f.Tracks, trackID)
	return nil
}

// ------------------------
// Fake Track Queue
// ------------------------

type queueCall struct {
	Op      string
	TrackID int64
	UserID  int64
	Genre   models.Genre
}

// FakeTrackQueue pops from Next in order, honoring the exclusion.
type FakeTrackQueue struct {
	Next  []queue.Entry
	Calls []queueCall
	Pops  []int64 // excluded ids seen by NextTrack
}

func (f *FakeTrackQueue) NextTrack(_ context.Context, genre models.Genre, excludeTrackID int64) (queue.Entry, error) {
	f.Pops = append(f.Pops, excludeTrackID)
	for i, e := range f.Next {
		if excludeTrackID == 0 || e.TrackID != excludeTrackID {
			f.Next = append(f.Next[:i:i], f.Next[i+1:]...)
			return e, nil
		}
	}
	return queue.Entry{}, ErrOutOfTracks
}

func (f *FakeTrackQueue) EnqueueTrack(_ context.Context, trackID, userID int64, genre models.Genre) error {
	f.Calls = append(f.Calls, queueCall{Op: "enqueue", TrackID: trackID, UserID: userID, Genre: genre})
	return nil
}

func (f *FakeTrackQueue) PushTrack(_ context.Context, trackID, userID int64, genre models.Genre) error {
	f.Calls = append(f.Calls, queueCall{Op: "push", TrackID: trackID, UserID: userID, Genre: genre})
	return nil
}

func (f *FakeTrackQueue) SetTrackInHash(_ context.Context, trackID, userID int64, genre models.Genre) error {
	f.Calls = append(f.Calls, queueCall{Op: "hash", TrackID: trackID, UserID: userID, Genre: genre})
	return nil
}
