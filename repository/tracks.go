package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"soundarena-competition/models"
)

// GetTrack returns a live track.
func (s *Store) GetTrack(ctx context.Context, trackID int64) (models.Track, error) {
	var track models.Track
	err := s.db.WithContext(ctx).First(&track, trackID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Track{}, &TrackDoesNotExistError{TrackID: trackID}
	}
	if err != nil {
		return models.Track{}, fmt.Errorf("query track %d: %w", trackID, err)
	}
	return track, nil
}

// GetTrackDetails joins a live track with its artist.
func (s *Store) GetTrackDetails(ctx context.Context, trackID int64) (models.TrackDetails, error) {
	var details []models.TrackDetails
	err := s.db.WithContext(ctx).Model(&models.Track{}).
		Select(`tracks.id AS track_id,
			COALESCE(tracks.name, '') AS track_title,
			COALESCE(tracks.stream_url, '') AS track_stream_url,
			users.id AS artist_id,
			users.name AS artist_name`).
		Joins("JOIN users ON users.id = tracks.user_id").
		Where("tracks.id = ?", trackID).
		Limit(1).
		Scan(&details).Error
	if err != nil {
		return models.TrackDetails{}, fmt.Errorf("query track details %d: %w", trackID, err)
	}
	if len(details) == 0 {
		return models.TrackDetails{}, &TrackDoesNotExistError{TrackID: trackID}
	}
	return details[0], nil
}

// TrackOwners resolves the owners of the live tracks among ids.
func (s *Store) TrackOwners(ctx context.Context, ids []int64) ([]models.QueueCandidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.QueueCandidate
	err := s.db.WithContext(ctx).Model(&models.Track{}).
		Select("id AS track_id, user_id").
		Where("id IN ?", ids).
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query track owners: %w", err)
	}
	return rows, nil
}

// DeleteTrack tombstones a track.
func (s *Store) DeleteTrack(ctx context.Context, trackID int64) error {
	res := s.db.WithContext(ctx).Delete(&models.Track{}, trackID)
	if res.Error != nil {
		return fmt.Errorf("delete track %d: %w", trackID, res.Error)
	}
	if res.RowsAffected == 0 {
		return &TrackDoesNotExistError{TrackID: trackID}
	}
	return nil
}
