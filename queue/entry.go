package queue

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"soundarena-competition/models"
)

// Entry is a queued track tagged with the user that owns it.
type Entry struct {
	TrackID int64
	UserID  int64
}

// ErrMalformedEntry is returned for tokens that are not "trackId|userId".
var ErrMalformedEntry = errors.New("malformed queue entry")

// String encodes the entry as the opaque "trackId|userId" token.
func (e Entry) String() string {
	return strconv.FormatInt(e.TrackID, 10) + "|" + strconv.FormatInt(e.UserID, 10)
}

// ParseEntry decodes a "trackId|userId" token.
func ParseEntry(token string) (Entry, error) {
	trackPart, userPart, ok := strings.Cut(token, "|")
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrMalformedEntry, token)
	}
	trackID, err := strconv.ParseInt(trackPart, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: track id %q", ErrMalformedEntry, trackPart)
	}
	userID, err := strconv.ParseInt(userPart, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: user id %q", ErrMalformedEntry, userPart)
	}
	return Entry{TrackID: trackID, UserID: userID}, nil
}

// Keys is the per-genre key namespace.
type Keys struct {
	Priority string
	Backup   string
	Hash     string
}

// KeysFor builds the keys of a genre from its slug, e.g. "rap-hip-hop-priority".
func KeysFor(genre models.Genre) Keys {
	base := genre.Slug()
	return Keys{
		Priority: base + "-priority",
		Backup:   base + "-backup",
		Hash:     base + "-hash",
	}
}
