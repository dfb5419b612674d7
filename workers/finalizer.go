package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"soundarena-competition/metrics"
	"soundarena-competition/models"
	"soundarena-competition/repository"
	"soundarena-competition/utils"
)

// ErrDuplicateCompetitionResults means yesterday was already finalized.
var ErrDuplicateCompetitionResults = errors.New("competition already finalized")

// ResultsStore is the storage the daily rollup reads and writes.
type ResultsStore interface {
	CountResultsSince(ctx context.Context, date datatypes.Date) (repository.ResultCounts, error)
	MatchupsBetween(ctx context.Context, genre models.Genre, from, to time.Time) ([]models.Matchup, error)
	SkippedTracks(ctx context.Context, genre models.Genre) ([]models.SkippedTrack, error)
	InsertAward(ctx context.Context, a *models.Award) error
	InsertCompetitionResult(ctx context.Context, r *models.CompetitionResult) error
	InsertSkippedTrack(ctx context.Context, st *models.SkippedTrack) error
	DeleteSkippedBefore(ctx context.Context, genre models.Genre, date datatypes.Date) (int64, error)
	RecordFinalizeRun(ctx context.Context, run *models.FinalizeRun) error
}

// ReportArchive keeps a copy of each finalize report.
type ReportArchive interface {
	PutReport(ctx context.Context, key string, body []byte) error
}

type FinalizeSettings struct {
	MinimumEntries         int
	MinimumEntriesConsumed int
	DummyTrackID           int64
	Location               *time.Location
	Concurrency            int
}

// GenreMetrics are the per-genre counters of one run.
type GenreMetrics struct {
	PrevSkippedCount              int   `json:"prevSkippedCount"`
	YesterdayMatchupsCount        int   `json:"yesterdayMatchupsCount"`
	YesterdayTotalTrackCount      int   `json:"yesterdayTotalTrackCount"`
	DeletedPrevSkippedTracksCount int64 `json:"deletedPrevSkippedTracksCount"`
	NewSkippedTracksCount         int   `json:"newSkippedTracksCount"`
	EligibleTracksCount           int   `json:"eligibleTracksCount"`
	YesterdayMatchupsErrorCount   int   `json:"yesterdayMatchupsErrorCount"`
}

// FinalizeReport maps each genre to its counters.
type FinalizeReport map[models.Genre]GenreMetrics

// Finalizer rolls yesterday's matchups up into awards, leaderboard rows and
// skipped-track carry-overs.
type Finalizer struct {
	store    ResultsStore
	archive  ReportArchive
	settings FinalizeSettings
	clock    utils.Clock
	logger   *slog.Logger
}

// NewFinalizer builds the job. archive may be nil.
func NewFinalizer(store ResultsStore, archive ReportArchive, settings FinalizeSettings, clock utils.Clock, logger *slog.Logger) *Finalizer {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 1
	}
	return &Finalizer{
		store:    store,
		archive:  archive,
		settings: settings,
		clock:    clock,
		logger:   logger,
	}
}

// Finalize processes every genre for yesterday. It performs no writes and
// returns ErrDuplicateCompetitionResults when the day already has results.
// All row writes complete before it returns.
func (f *Finalizer) Finalize(ctx context.Context) (FinalizeReport, error) {
	from, to := utils.Yesterday(f.clock.Now(), f.settings.Location)
	date := utils.CalendarDate(from, f.settings.Location)

	counts, err := f.store.CountResultsSince(ctx, date)
	if err != nil {
		return nil, err
	}
	if counts.Any() {
		return nil, ErrDuplicateCompetitionResults
	}

	var (
		mu     sync.Mutex
		report = make(FinalizeReport)
		g      errgroup.Group
	)
	g.SetLimit(f.settings.Concurrency)
	for _, genre := range models.Genres() {
		g.Go(func() error {
			m, err := f.finalizeGenre(ctx, genre, from, to, date)
			if err != nil {
				m.YesterdayMatchupsErrorCount++
				f.logger.Error("FINALIZE_COMPETITION", "genre", genre, "error", err)
			}
			mu.Lock()
			report[genre] = m
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	body, err := json.Marshal(report)
	if err != nil {
		return report, fmt.Errorf("encode finalize report: %w", err)
	}
	run := &models.FinalizeRun{ID: uuid.NewString(), Date: date, Metrics: datatypes.JSON(body)}
	if err := f.store.RecordFinalizeRun(ctx, run); err != nil {
		f.logger.Warn("finalize run not recorded", "run_id", run.ID, "error", err)
	}
	f.archiveReport(ctx, from, body)

	f.logger.Info("FINALIZE_COMPETITION", "run_id", run.ID, "date", from.Format(time.DateOnly), "report", json.RawMessage(body))
	return report, nil
}

type trackTally struct {
	id      int64
	wins    int
	losses  int
	entries int
}

func (t *trackTally) plays() int { return t.wins + t.losses }

func (t *trackTally) ratio() float64 {
	if t.plays() == 0 {
		return 0
	}
	return float64(t.wins) / float64(t.plays())
}

func (f *Finalizer) finalizeGenre(ctx context.Context, genre models.Genre, from, to time.Time, date datatypes.Date) (GenreMetrics, error) {
	var m GenreMetrics

	matchups, err := f.store.MatchupsBetween(ctx, genre, from, to)
	if err != nil {
		return m, err
	}
	m.YesterdayMatchupsCount = len(matchups)

	tallies := make(map[int64]*trackTally)
	tally := func(id int64) *trackTally {
		t, ok := tallies[id]
		if !ok {
			t = &trackTally{id: id}
			tallies[id] = t
		}
		return t
	}
	for _, mu := range matchups {
		if !f.isDummy(mu.WinningTrackID) {
			tally(mu.WinningTrackID).wins++
		}
		if !f.isDummy(mu.LosingTrackID) {
			tally(mu.LosingTrackID).losses++
		}
		if mu.EnteredTrackID != nil && !f.isDummy(*mu.EnteredTrackID) {
			tally(*mu.EnteredTrackID).entries++
		}
	}
	m.YesterdayTotalTrackCount = len(tallies)

	skipped, err := f.store.SkippedTracks(ctx, genre)
	if err != nil {
		return m, err
	}
	m.PrevSkippedCount = len(skipped)
	for _, st := range skipped {
		if f.isDummy(st.TrackID) {
			continue
		}
		t := tally(st.TrackID)
		t.wins += st.Wins
		t.losses += st.Losses
		t.entries += st.Entries
	}

	var eligible, underPlayed []*trackTally
	for _, t := range tallies {
		if t.entries < f.settings.MinimumEntries {
			continue
		}
		if t.plays() >= f.settings.MinimumEntriesConsumed {
			eligible = append(eligible, t)
		} else {
			underPlayed = append(underPlayed, t)
		}
	}
	rank(eligible)
	sort.Slice(underPlayed, func(i, j int) bool { return underPlayed[i].id < underPlayed[j].id })
	m.EligibleTracksCount = len(eligible)

	for i, t := range eligible {
		place := i + 1
		award := &models.Award{
			TrackID:           t.id,
			Date:              date,
			Wins:              t.wins,
			Losses:            t.losses,
			Place:             place,
			TotalParticipants: len(eligible),
			Genre:             genre,
		}
		result := &models.CompetitionResult{
			TrackID: t.id,
			Date:    date,
			Wins:    t.wins,
			Losses:  t.losses,
			Place:   place,
			Entries: t.entries,
			Genre:   genre,
		}
		if err := f.store.InsertAward(ctx, award); err != nil {
			f.rowFailed(&m, genre, t.id, err)
			continue
		}
		if err := f.store.InsertCompetitionResult(ctx, result); err != nil {
			f.rowFailed(&m, genre, t.id, err)
			continue
		}
		metrics.FinalizeTracks.WithLabelValues(string(genre), metrics.OutcomeEligible).Inc()
	}

	for _, t := range underPlayed {
		err := f.store.InsertSkippedTrack(ctx, &models.SkippedTrack{
			TrackID: t.id,
			Date:    date,
			Wins:    t.wins,
			Losses:  t.losses,
			Entries: t.entries,
			Genre:   genre,
		})
		if err != nil {
			f.rowFailed(&m, genre, t.id, err)
			continue
		}
		m.NewSkippedTracksCount++
		metrics.FinalizeTracks.WithLabelValues(string(genre), metrics.OutcomeSkipped).Inc()
	}

	deleted, err := f.store.DeleteSkippedBefore(ctx, genre, date)
	if err != nil {
		return m, err
	}
	m.DeletedPrevSkippedTracksCount = deleted
	return m, nil
}

// rank orders by win ratio, then wins, then track id, all descending except id.
func rank(tracks []*trackTally) {
	sort.Slice(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if a.ratio() != b.ratio() {
			return a.ratio() > b.ratio()
		}
		if a.wins != b.wins {
			return a.wins > b.wins
		}
		return a.id < b.id
	})
}

func (f *Finalizer) rowFailed(m *GenreMetrics, genre models.Genre, trackID int64, err error) {
	m.YesterdayMatchupsErrorCount++
	metrics.FinalizeTracks.WithLabelValues(string(genre), metrics.OutcomeError).Inc()
	f.logger.Error("FINALIZE_COMPETITION", "genre", genre, "track_id", trackID, "error", err)
}

func (f *Finalizer) archiveReport(ctx context.Context, day time.Time, body []byte) {
	if f.archive == nil {
		return
	}
	key := fmt.Sprintf("finalize/%s.json", day.Format(time.DateOnly))
	if err := f.archive.PutReport(ctx, key, body); err != nil {
		f.logger.Warn("finalize report not archived", "key", key, "error", err)
	}
}

func (f *Finalizer) isDummy(trackID int64) bool {
	return f.settings.DummyTrackID != 0 && trackID == f.settings.DummyTrackID
}
