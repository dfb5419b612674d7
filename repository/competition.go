package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"soundarena-competition/models"
)

// GetCompetitionState reads a user's competition row.
func (s *Store) GetCompetitionState(ctx context.Context, userID int64) (models.CompetitionState, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CompetitionState{}, ErrUserNotFound
	}
	if err != nil {
		return models.CompetitionState{}, fmt.Errorf("query competition state: %w", err)
	}
	return user.Competition, nil
}

// SaveCompetitionState overwrites every competition column of the user row.
// Reads and writes are not transactional: a user is assumed to drive one
// request at a time.
func (s *Store) SaveCompetitionState(ctx context.Context, userID int64, state models.CompetitionState) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(state.Columns())
	if res.Error != nil {
		return fmt.Errorf("update competition state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearForceReset lowers the one-shot reset flag.
func (s *Store) ClearForceReset(ctx context.Context, userID int64) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update(models.ColForceReset, false).Error
	if err != nil {
		return fmt.Errorf("clear force reset: %w", err)
	}
	return nil
}

// ResetCompetitionsForTrack overwrites every in-flight competition that
// references trackID with reset. A competition is in flight while checked out
// or while its winner replay is pending.
func (s *Store) ResetCompetitionsForTrack(ctx context.Context, trackID int64, reset models.CompetitionState) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("("+models.ColTrack1ID+" = ? OR "+models.ColTrack2ID+" = ?)", trackID, trackID).
		Where(models.ColWinnerIsPlayed+" = ?", false).
		Where("("+models.ColTracksCheckedOut+" = ? OR "+models.ColWinnerKey+" IS NOT NULL)", true).
		Updates(reset.Columns())
	if res.Error != nil {
		return 0, fmt.Errorf("reset competitions for track %d: %w", trackID, res.Error)
	}
	return res.RowsAffected, nil
}

// ExpiredMatchups lists checked-out competitions of a genre started before cutoff.
func (s *Store) ExpiredMatchups(ctx context.Context, genre models.Genre, cutoff time.Time) ([]models.ExpiredMatchup, error) {
	var rows []models.ExpiredMatchup
	err := s.expiredScope(s.db.WithContext(ctx).Model(&models.User{}), genre, cutoff).
		Select("id AS user_id, " + models.ColTrack1ID + " AS track1_id, " + models.ColTrack2ID + " AS track2_id").
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query expired matchups: %w", err)
	}
	return rows, nil
}

// ReleaseExpiredMatchups clears the checkout flag of the given rows, but only
// where they still match the expiry predicate. A row checked out again since
// the scan has a newer start and is left alone.
func (s *Store) ReleaseExpiredMatchups(ctx context.Context, genre models.Genre, cutoff time.Time, userIDs []int64) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res := s.expiredScope(s.db.WithContext(ctx).Model(&models.User{}), genre, cutoff).
		Where("id IN ?", userIDs).
		Update(models.ColTracksCheckedOut, false)
	if res.Error != nil {
		return 0, fmt.Errorf("release expired matchups: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) expiredScope(tx *gorm.DB, genre models.Genre, cutoff time.Time) *gorm.DB {
	return tx.
		Where(models.ColTracksCheckedOut+" = ?", true).
		Where(models.ColGenre+" = ?", string(genre)).
		Where(models.ColStartTimestamp+" < ?", cutoff.UTC())
}
