package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"soundarena-competition/models"
)

// ResultCounts are the rows already written for a finalized day.
type ResultCounts struct {
	Awards             int64
	CompetitionResults int64
	SkippedTracks      int64
	Runs               int64
}

// Any reports whether the day has already been finalized.
func (c ResultCounts) Any() bool {
	return c.Awards > 0 || c.CompetitionResults > 0 || c.SkippedTracks > 0 || c.Runs > 0
}

// CountResultsSince counts award, result, skipped and run rows dated on or
// after date.
func (s *Store) CountResultsSince(ctx context.Context, date datatypes.Date) (ResultCounts, error) {
	var c ResultCounts
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Award{}).Where("date >= ?", date).Count(&c.Awards).Error; err != nil {
		return c, fmt.Errorf("count awards: %w", err)
	}
	if err := db.Model(&models.CompetitionResult{}).Where("date >= ?", date).Count(&c.CompetitionResults).Error; err != nil {
		return c, fmt.Errorf("count competition results: %w", err)
	}
	if err := db.Model(&models.SkippedTrack{}).Where("date >= ?", date).Count(&c.SkippedTracks).Error; err != nil {
		return c, fmt.Errorf("count skipped tracks: %w", err)
	}
	if err := db.Model(&models.FinalizeRun{}).Where("date >= ?", date).Count(&c.Runs).Error; err != nil {
		return c, fmt.Errorf("count finalize runs: %w", err)
	}
	return c, nil
}

// SkippedTracks returns every carry-over row of the genre.
func (s *Store) SkippedTracks(ctx context.Context, genre models.Genre) ([]models.SkippedTrack, error) {
	var rows []models.SkippedTrack
	if err := s.db.WithContext(ctx).Where("genre = ?", genre).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query skipped tracks for %s: %w", genre, err)
	}
	return rows, nil
}

func (s *Store) InsertAward(ctx context.Context, a *models.Award) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("insert award for track %d: %w", a.TrackID, err)
	}
	return nil
}

func (s *Store) InsertCompetitionResult(ctx context.Context, r *models.CompetitionResult) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("insert competition result for track %d: %w", r.TrackID, err)
	}
	return nil
}

func (s *Store) InsertSkippedTrack(ctx context.Context, st *models.SkippedTrack) error {
	if err := s.db.WithContext(ctx).Create(st).Error; err != nil {
		return fmt.Errorf("insert skipped track %d: %w", st.TrackID, err)
	}
	return nil
}

// DeleteSkippedBefore deletes the genre's carry-over rows dated strictly before date.
func (s *Store) DeleteSkippedBefore(ctx context.Context, genre models.Genre, date datatypes.Date) (int64, error) {
	res := s.db.WithContext(ctx).Where("genre = ? AND date < ?", genre, date).Delete(&models.SkippedTrack{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete skipped tracks for %s: %w", genre, res.Error)
	}
	return res.RowsAffected, nil
}

// ErrFinalizeRunExists is returned when the day already has a ledger row.
var ErrFinalizeRunExists = errors.New("finalize run already recorded")

// RecordFinalizeRun writes the ledger row of a completed run.
func (s *Store) RecordFinalizeRun(ctx context.Context, run *models.FinalizeRun) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.FinalizeRun{}).Where("date = ?", run.Date).Count(&n).Error; err != nil {
		return fmt.Errorf("check finalize run: %w", err)
	}
	if n > 0 {
		return ErrFinalizeRunExists
	}
	err := s.db.WithContext(ctx).Create(run).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrFinalizeRunExists
	}
	if err != nil {
		return fmt.Errorf("record finalize run: %w", err)
	}
	return nil
}
