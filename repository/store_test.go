package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"soundarena-competition/models"
)

var testDurations = models.Durations{MatchupSeconds: 30, WinnerSeconds: 15}

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return New(db), db
}

func seedUser(t *testing.T, db *gorm.DB, id int64, name string) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{
		ID:          id,
		Name:        name,
		Competition: models.InitialCompetitionState(testDurations),
	}).Error)
}

func seedTrack(t *testing.T, db *gorm.DB, id, userID int64, name string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Track{ID: id, UserID: userID, Name: &name}).Error)
}

func ptr[T any](v T) *T { return &v }

func TestStore_CompetitionStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, db := newTestStore(t)
	seedUser(t, db, 1, "listener")

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	state := models.InitialCompetitionState(testDurations)
	state.Enter(9, models.GenreRapHipHop, testDurations)
	state.StartMatchup(216, now, testDurations)

	require.NoError(t, store.SaveCompetitionState(ctx, 1, state))

	got, err := store.GetCompetitionState(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StageTrack1, got.Stage())
	assert.Equal(t, int64(216), *got.Track1.ID)
	assert.Equal(t, models.GenreRapHipHop, *got.Genre)
	assert.True(t, got.TracksCheckedOut)
	assert.True(t, now.Equal(*got.StartTimestamp))

	got.CompleteMatchup(testDurations)
	require.NoError(t, store.SaveCompetitionState(ctx, 1, got))
	got, err = store.GetCompetitionState(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got.Track1.ID, "zero values are written too")
	assert.False(t, got.TracksCheckedOut)
	assert.Equal(t, int64(9), *got.EnteredTrackID)
}

func TestStore_UserNotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.GetCompetitionState(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
	err = store.SaveCompetitionState(ctx, 404, models.CompetitionState{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore_ResetCompetitionsForTrack(t *testing.T) {
	ctx := context.Background()
	store, db := newTestStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	inFlight := models.InitialCompetitionState(testDurations)
	inFlight.Enter(1, models.GenreRock, testDurations)
	inFlight.StartMatchup(77, now, testDurations)

	replayed := inFlight
	replayed.TracksCheckedOut = false
	replayed.Winner = models.MatchupWinner{Key: ptr(models.TrackKeyTrack1), IsPlayed: true}

	other := inFlight
	other.Track1 = models.MatchupTrack{ID: ptr(int64(78))}

	for id, s := range map[int64]models.CompetitionState{1: inFlight, 2: replayed, 3: other} {
		seedUser(t, db, id, "u")
		require.NoError(t, store.SaveCompetitionState(ctx, id, s))
	}

	n, err := store.ResetCompetitionsForTrack(ctx, 77, models.ForcedReset(testDurations))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.GetCompetitionState(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.ForceReset)
	assert.Nil(t, got.Track1.ID)

	require.NoError(t, store.ClearForceReset(ctx, 1))
	got, err = store.GetCompetitionState(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.ForceReset)

	got, err = store.GetCompetitionState(ctx, 2)
	require.NoError(t, err)
	assert.False(t, got.ForceReset, "winner already replayed")
}

func TestStore_ExpiredMatchups(t *testing.T) {
	ctx := context.Background()
	store, db := newTestStore(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-30 * time.Minute)

	start := func(userID int64, genre models.Genre, startedAt time.Time, track2 bool) {
		seedUser(t, db, userID, "u")
		s := models.InitialCompetitionState(testDurations)
		s.Enter(1, genre, testDurations)
		s.StartMatchup(userID*10, startedAt, testDurations)
		if track2 {
			s.MarkPlayed(models.TrackKeyTrack1)
			s.SetTrack2(userID*10+1, startedAt)
		}
		require.NoError(t, store.SaveCompetitionState(ctx, userID, s))
	}
	start(1, models.GenreRock, now.Add(-31*time.Minute), true)
	start(2, models.GenreRock, now.Add(-29*time.Minute), false)
	start(3, models.GenreJazz, now.Add(-2*time.Hour), false)
	start(4, models.GenreRock, now.Add(-45*time.Minute), false)

	rows, err := store.ExpiredMatchups(ctx, models.GenreRock, cutoff)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].UserID)
	assert.Equal(t, []int64{10, 11}, rows[0].TrackIDs())
	assert.Equal(t, []int64{40}, rows[1].TrackIDs())

	// user 4 starts a new matchup between scan and release
	restarted, err := store.GetCompetitionState(ctx, 4)
	require.NoError(t, err)
	restarted.StartMatchup(99, now, testDurations)
	require.NoError(t, store.SaveCompetitionState(ctx, 4, restarted))

	n, err := store.ReleaseExpiredMatchups(ctx, models.GenreRock, cutoff, []int64{1, 4})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := store.GetCompetitionState(ctx, 4)
	require.NoError(t, err)
	assert.True(t, got.TracksCheckedOut)
	got, err = store.GetCompetitionState(ctx, 2)
	require.NoError(t, err)
	assert.True(t, got.TracksCheckedOut, "within expiry window")
}

func TestStore_TracksAndMatchups(t *testing.T) {
	ctx := context.Background()
	store, db := newTestStore(t)
	dayStart := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	seedUser(t, db, 1, "artist one")
	seedUser(t, db, 2, "artist two")
	seedTrack(t, db, 216, 1, "first")
	seedTrack(t, db, 243, 2, "second")
	seedTrack(t, db, 300, 2, "gone")

	details, err := store.GetTrackDetails(ctx, 216)
	require.NoError(t, err)
	assert.Equal(t, "first", details.TrackTitle)
	assert.Equal(t, "artist one", details.ArtistName)
	assert.Equal(t, int64(1), details.ArtistID)

	require.NoError(t, store.DeleteTrack(ctx, 300))
	_, err = store.GetTrack(ctx, 300)
	var missing *TrackDoesNotExistError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, int64(300), missing.TrackID)
	assert.ErrorAs(t, store.DeleteTrack(ctx, 300), &missing)

	insert := func(win, lose int64, entered int64, at time.Time) {
		require.NoError(t, store.InsertMatchup(ctx, &models.Matchup{
			WinningTrackID:  win,
			LosingTrackID:   lose,
			WinningTrackKey: models.TrackKeyTrack1,
			Genre:           models.GenreRock,
			EnteredTrackID:  ptr(entered),
			UserID:          1,
			TimestampAdded:  at,
		}))
	}
	insert(216, 243, 216, dayStart.Add(time.Hour))
	insert(216, 243, 243, dayStart.Add(2*time.Hour))
	insert(243, 216, 216, dayStart.Add(3*time.Hour))
	insert(300, 216, 216, dayStart.Add(4*time.Hour))
	insert(216, 243, 216, dayStart.Add(-time.Hour))

	rows, err := store.MatchupsBetween(ctx, models.GenreRock, dayStart, dayEnd)
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	count, err := store.TrackPlayCount(ctx, models.GenreRock, 216, dayStart, dayEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	require.NoError(t, store.InsertSkippedTrack(ctx, &models.SkippedTrack{
		TrackID: 216, Date: datatypes.Date(dayStart.AddDate(0, 0, -1)), Wins: 2, Losses: 1, Entries: 10, Genre: models.GenreRock,
	}))
	count, err = store.TrackPlayCount(ctx, models.GenreRock, 216, dayStart, dayEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)

	tallies, err := store.DailyTallies(ctx, models.GenreRock, dayStart, dayEnd)
	require.NoError(t, err)
	byTrack := map[int64]models.TrackTally{}
	for _, tt := range tallies {
		byTrack[tt.TrackID] = tt
	}
	require.Len(t, byTrack, 2, "deleted track 300 is left out")
	assert.Equal(t, models.TrackTally{TrackID: 216, UserID: 1, Wins: 2, Losses: 2}, byTrack[216])
	assert.Equal(t, models.TrackTally{TrackID: 243, UserID: 2, Wins: 1, Losses: 2}, byTrack[243])

	entered, err := store.PreviouslyEnteredTracks(ctx, models.GenreRock, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.QueueCandidate{{TrackID: 216, UserID: 1}, {TrackID: 243, UserID: 2}}, entered)

	owners, err := store.TrackOwners(ctx, []int64{243, 300, 216})
	require.NoError(t, err)
	assert.Equal(t, []models.QueueCandidate{{TrackID: 216, UserID: 1}, {TrackID: 243, UserID: 2}}, owners)
}

func TestStore_Results(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	yesterday := datatypes.Date(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	older := datatypes.Date(time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC))

	counts, err := store.CountResultsSince(ctx, yesterday)
	require.NoError(t, err)
	assert.False(t, counts.Any())

	require.NoError(t, store.InsertSkippedTrack(ctx, &models.SkippedTrack{TrackID: 1, Date: older, Genre: models.GenreRock}))
	require.NoError(t, store.InsertSkippedTrack(ctx, &models.SkippedTrack{TrackID: 2, Date: older, Genre: models.GenreJazz}))
	counts, err = store.CountResultsSince(ctx, yesterday)
	require.NoError(t, err)
	assert.False(t, counts.Any(), "older rows do not count")

	require.NoError(t, store.InsertAward(ctx, &models.Award{TrackID: 3, Date: yesterday, Place: 1, Genre: models.GenreRock}))
	require.NoError(t, store.InsertCompetitionResult(ctx, &models.CompetitionResult{TrackID: 3, Date: yesterday, Place: 1, Genre: models.GenreRock}))
	require.NoError(t, store.InsertSkippedTrack(ctx, &models.SkippedTrack{TrackID: 4, Date: yesterday, Genre: models.GenreRock}))

	counts, err = store.CountResultsSince(ctx, yesterday)
	require.NoError(t, err)
	assert.Equal(t, ResultCounts{Awards: 1, CompetitionResults: 1, SkippedTracks: 1}, counts)

	skipped, err := store.SkippedTracks(ctx, models.GenreRock)
	require.NoError(t, err)
	assert.Len(t, skipped, 2)

	n, err := store.DeleteSkippedBefore(ctx, models.GenreRock, yesterday)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	skipped, err = store.SkippedTracks(ctx, models.GenreJazz)
	require.NoError(t, err)
	assert.Len(t, skipped, 1, "other genres untouched")

	run := &models.FinalizeRun{ID: "run-1", Date: yesterday, Metrics: datatypes.JSON(`{}`)}
	require.NoError(t, store.RecordFinalizeRun(ctx, run))
	err = store.RecordFinalizeRun(ctx, &models.FinalizeRun{ID: "run-2", Date: yesterday, Metrics: datatypes.JSON(`{}`)})
	assert.ErrorIs(t, err, ErrFinalizeRunExists)
}
