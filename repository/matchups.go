package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"soundarena-competition/models"
)

// InsertMatchup appends a decided matchup.
func (s *Store) InsertMatchup(ctx context.Context, m *models.Matchup) error {
	if m.TimestampAdded.IsZero() {
		m.TimestampAdded = time.Now()
	}
	m.TimestampAdded = m.TimestampAdded.UTC()
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert matchup: %w", err)
	}
	return nil
}

// MatchupsBetween returns the genre's matchups added in [from, to).
func (s *Store) MatchupsBetween(ctx context.Context, genre models.Genre, from, to time.Time) ([]models.Matchup, error) {
	var rows []models.Matchup
	err := s.db.WithContext(ctx).
		Where("genre = ? AND timestamp_added >= ? AND timestamp_added < ?", genre, from.UTC(), to.UTC()).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query matchups for %s: %w", genre, err)
	}
	return rows, nil
}

// TrackPlayCount counts the track's decided matchups in [from, to) plus the
// plays it carries in skipped-track rows of the genre.
func (s *Store) TrackPlayCount(ctx context.Context, genre models.Genre, trackID int64, from, to time.Time) (int64, error) {
	var matchups int64
	err := s.db.WithContext(ctx).Model(&models.Matchup{}).
		Where("genre = ? AND timestamp_added >= ? AND timestamp_added < ?", genre, from.UTC(), to.UTC()).
		Where("winning_track_id = ? OR losing_track_id = ?", trackID, trackID).
		Count(&matchups).Error
	if err != nil {
		return 0, fmt.Errorf("count matchups for track %d: %w", trackID, err)
	}

	var skipped struct{ Plays int64 }
	err = s.db.WithContext(ctx).Model(&models.SkippedTrack{}).
		Select("COALESCE(SUM(wins + losses), 0) AS plays").
		Where("genre = ? AND track_id = ?", genre, trackID).
		Scan(&skipped).Error
	if err != nil {
		return 0, fmt.Errorf("count skipped plays for track %d: %w", trackID, err)
	}
	return matchups + skipped.Plays, nil
}

type trackCount struct {
	TrackID int64 `gorm:"column:track_id"`
	Count   int64 `gorm:"column:count"`
}

// DailyTallies aggregates wins and losses per track for the genre's matchups
// in [from, to), restricted to live tracks and tagged with their owner.
// Tracks that never won are omitted.
func (s *Store) DailyTallies(ctx context.Context, genre models.Genre, from, to time.Time) ([]models.TrackTally, error) {
	window := s.db.WithContext(ctx).Model(&models.Matchup{}).
		Where("genre = ? AND timestamp_added >= ? AND timestamp_added < ?", genre, from.UTC(), to.UTC())

	var wins, losses []trackCount
	if err := window.Session(&gorm.Session{}).
		Select("winning_track_id AS track_id, COUNT(*) AS count").
		Group("winning_track_id").
		Scan(&wins).Error; err != nil {
		return nil, fmt.Errorf("tally wins for %s: %w", genre, err)
	}
	if err := window.Session(&gorm.Session{}).
		Select("losing_track_id AS track_id, COUNT(*) AS count").
		Group("losing_track_id").
		Scan(&losses).Error; err != nil {
		return nil, fmt.Errorf("tally losses for %s: %w", genre, err)
	}
	if len(wins) == 0 {
		return nil, nil
	}

	lossByTrack := make(map[int64]int64, len(losses))
	for _, l := range losses {
		lossByTrack[l.TrackID] = l.Count
	}
	ids := make([]int64, 0, len(wins))
	for _, w := range wins {
		ids = append(ids, w.TrackID)
	}
	owners, err := s.TrackOwners(ctx, ids)
	if err != nil {
		return nil, err
	}
	ownerByTrack := make(map[int64]int64, len(owners))
	for _, o := range owners {
		ownerByTrack[o.TrackID] = o.UserID
	}

	tallies := make([]models.TrackTally, 0, len(wins))
	for _, w := range wins {
		owner, ok := ownerByTrack[w.TrackID]
		if !ok {
			continue
		}
		tallies = append(tallies, models.TrackTally{
			TrackID: w.TrackID,
			UserID:  owner,
			Wins:    w.Count,
			Losses:  lossByTrack[w.TrackID],
		})
	}
	return tallies, nil
}

// PreviouslyEnteredTracks lists distinct live tracks that were ever entered
// into the genre, tagged with their owner.
func (s *Store) PreviouslyEnteredTracks(ctx context.Context, genre models.Genre, limit int) ([]models.QueueCandidate, error) {
	var rows []models.QueueCandidate
	err := s.db.WithContext(ctx).Table("matchups AS m").
		Distinct("m.entered_track_id AS track_id", "t.user_id AS user_id").
		Joins("JOIN tracks AS t ON t.id = m.entered_track_id AND t.deleted_at IS NULL").
		Where("m.genre = ? AND m.entered_track_id IS NOT NULL", genre).
		Order("m.entered_track_id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query previously entered tracks for %s: %w", genre, err)
	}
	return rows, nil
}
