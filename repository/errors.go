package repository

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when no user row matches.
var ErrUserNotFound = errors.New("user not found")

// TrackDoesNotExistError is returned for missing or deleted tracks.
type TrackDoesNotExistError struct {
	TrackID int64
}

func (e *TrackDoesNotExistError) Error() string {
	return fmt.Sprintf("track %d does not exist", e.TrackID)
}
