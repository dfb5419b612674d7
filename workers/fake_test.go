package workers

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"gorm.io/datatypes"

	"soundarena-competition/models"
	"soundarena-competition/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ------------------------
// Fake Results Store
// ------------------------

type FakeResultsStore struct {
	mu sync.Mutex

	Matchups map[models.Genre][]models.Matchup
	Skipped  []models.SkippedTrack
	Awards   []models.Award
	Results  []models.CompetitionResult
	Runs     []models.FinalizeRun

	MatchupsErr map[models.Genre]error
	AwardErr    func(a *models.Award) error
}

func NewFakeResultsStore() *FakeResultsStore {
	return &FakeResultsStore{
		Matchups:    map[models.Genre][]models.Matchup{},
		MatchupsErr: map[models.Genre]error{},
	}
}

func onOrAfter(d, since datatypes.Date) bool {
	return !time.Time(d).Before(time.Time(since))
}

func (f *FakeResultsStore) CountResultsSince(_ context.Context, date datatypes.Date) (repository.ResultCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c repository.ResultCounts
	for _, a := range f.Awards {
		if onOrAfter(a.Date, date) {
			c.Awards++
		}
	}
	for _, r := range f.Results {
		if onOrAfter(r.Date, date) {
			c.CompetitionResults++
		}
	}
	for _, s := range f.Skipped {
		if onOrAfter(s.Date, date) {
			c.SkippedTracks++
		}
	}
	for _, r := range f.Runs {
		if onOrAfter(r.Date, date) {
			c.Runs++
		}
	}
	return c, nil
}

func (f *FakeResultsStore) MatchupsBetween(_ context.Context, genre models.Genre, from, to time.Time) ([]models.Matchup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.MatchupsErr[genre]; err != nil {
		return nil, err
	}
	var out []models.Matchup
	for _, m := range f.Matchups[genre] {
		if !m.TimestampAdded.Before(from) && m.TimestampAdded.Before(to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *FakeResultsStore) SkippedTracks(_ context.Context, genre models.Genre) ([]models.SkippedTrack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.SkippedTrack
	for _, s := range f.Skipped {
		if s.Genre == genre {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *FakeResultsStore) InsertAward(_ context.Context, a *models.Award) error {
	if f.AwardErr != nil {
		if err := f.AwardErr(a); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Awards = append(f.Awards, *a)
	return nil
}

func (f *FakeResultsStore) InsertCompetitionResult(_ context.Context, r *models.CompetitionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results = append(f.Results, *r)
	return nil
}

func (f *FakeResultsStore) InsertSkippedTrack(_ context.Context, st *models.SkippedTrack) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Skipped = append(f.Skipped, *st)
	return nil
}

func (f *FakeResultsStore) DeleteSkippedBefore(_ context.Context, genre models.Genre, date datatypes.Date) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var (
		kept    []models.SkippedTrack
		deleted int64
	)
	for _, s := range f.Skipped {
		if s.Genre == genre && time.Time(s.Date).Before(time.Time(date)) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	f.Skipped = kept
	return deleted, nil
}

func (f *FakeResultsStore) RecordFinalizeRun(_ context.Context, run *models.FinalizeRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Runs = append(f.Runs, *run)
	return nil
}

func (f *FakeResultsStore) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Awards) + len(f.Results) + len(f.Skipped) + len(f.Runs)
}

// ------------------------
// Fake Archive
// ------------------------

type FakeArchive struct {
	Keys   []string
	Bodies [][]byte
	Err    error
}

func (f *FakeArchive) PutReport(_ context.Context, key string, body []byte) error {
	f.Keys = append(f.Keys, key)
	f.Bodies = append(f.Bodies, body)
	return f.Err
}

// ------------------------
// Fake Track Returner
// ------------------------

type pushCall struct {
	TrackID int64
	UserID  int64
	Genre   models.Genre
}

type FakeTrackReturner struct {
	Calls   []pushCall
	FailFor map[int64]error
}

func (f *FakeTrackReturner) PushTrack(_ context.Context, trackID, userID int64, genre models.Genre) error {
	if err := f.FailFor[trackID]; err != nil {
		return err
	}
	f.Calls = append(f.Calls, pushCall{TrackID: trackID, UserID: userID, Genre: genre})
	return nil
}
