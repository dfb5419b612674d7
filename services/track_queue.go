package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"soundarena-competition/metrics"
	"soundarena-competition/models"
	"soundarena-competition/queue"
	"soundarena-competition/utils"
)

// ErrOutOfTracks means every queue of the genre is empty even after a refill.
var ErrOutOfTracks = errors.New("out of tracks")

// InvalidEntryError rejects a queue call with a missing argument.
type InvalidEntryError struct {
	Field string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid queue entry: %s is required", e.Field)
}

// QueueStore is the atomic list/hash store behind the genre queues.
type QueueStore interface {
	PopExcluding(ctx context.Context, key string, excludeTrackID int64) (queue.Entry, bool, error)
	PushFront(ctx context.Context, key string, e queue.Entry) error
	PushBack(ctx context.Context, key string, e queue.Entry) error
	Exists(ctx context.Context, key string, e queue.Entry) (bool, error)
	SetInHash(ctx context.Context, key string, e queue.Entry) error
	InHash(ctx context.Context, key string, e queue.Entry) (bool, error)
}

// PlayHistory is the read side of matchup history the queues route on.
type PlayHistory interface {
	TrackPlayCount(ctx context.Context, genre models.Genre, trackID int64, from, to time.Time) (int64, error)
	DailyTallies(ctx context.Context, genre models.Genre, from, to time.Time) ([]models.TrackTally, error)
	PreviouslyEnteredTracks(ctx context.Context, genre models.Genre, limit int) ([]models.QueueCandidate, error)
}

// QueueSettings tune routing and refill.
type QueueSettings struct {
	// MinimumEntriesConsumed is the same-day play count that moves a track
	// from the priority queue to the backup queue.
	MinimumEntriesConsumed int
	// MinimumEntries caps the extra refill entries a winner earns.
	MinimumEntries int
	RefillMinScore float64
	RefillLimit    int
	DummyTrackID   int64
	Location       *time.Location
}

// TrackQueueService is the genre-scoped API over the queue store.
type TrackQueueService struct {
	store    QueueStore
	history  PlayHistory
	settings QueueSettings
	clock    utils.Clock
	logger   *slog.Logger
}

func NewTrackQueueService(store QueueStore, history PlayHistory, settings QueueSettings, clock utils.Clock, logger *slog.Logger) *TrackQueueService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &TrackQueueService{
		store:    store,
		history:  history,
		settings: settings,
		clock:    clock,
		logger:   logger,
	}
}

func validateEntry(trackID, userID int64, genre models.Genre) error {
	switch {
	case trackID <= 0:
		return &InvalidEntryError{Field: "trackId"}
	case userID <= 0:
		return &InvalidEntryError{Field: "userId"}
	case !genre.Valid():
		return &InvalidEntryError{Field: "genre"}
	}
	return nil
}

// ResolveQueueKey routes a track to the backup queue once its same-day play
// count reaches the threshold, and to the priority queue otherwise.
func (s *TrackQueueService) ResolveQueueKey(ctx context.Context, trackID int64, genre models.Genre) (string, error) {
	from, to := utils.Today(s.clock.Now(), s.settings.Location)
	count, err := s.history.TrackPlayCount(ctx, genre, trackID, from, to)
	if err != nil {
		return "", fmt.Errorf("resolve queue for track %d: %w", trackID, err)
	}
	keys := queue.KeysFor(genre)
	if count >= int64(s.settings.MinimumEntriesConsumed) {
		return keys.Backup, nil
	}
	return keys.Priority, nil
}

// EnqueueTrack appends the track to the end of its resolved queue.
func (s *TrackQueueService) EnqueueTrack(ctx context.Context, trackID, userID int64, genre models.Genre) error {
	if err := validateEntry(trackID, userID, genre); err != nil {
		return err
	}
	key, err := s.ResolveQueueKey(ctx, trackID, genre)
	if err != nil {
		return err
	}
	return s.store.PushBack(ctx, key, queue.Entry{TrackID: trackID, UserID: userID})
}

// PushTrack puts the track at the front of its resolved queue.
func (s *TrackQueueService) PushTrack(ctx context.Context, trackID, userID int64, genre models.Genre) error {
	if err := validateEntry(trackID, userID, genre); err != nil {
		return err
	}
	key, err := s.ResolveQueueKey(ctx, trackID, genre)
	if err != nil {
		return err
	}
	return s.store.PushFront(ctx, key, queue.Entry{TrackID: trackID, UserID: userID})
}

// EnqueueTrackInPriorityQueue puts the track at the front of the priority
// queue regardless of its play count.
func (s *TrackQueueService) EnqueueTrackInPriorityQueue(ctx context.Context, trackID, userID int64, genre models.Genre) error {
	if err := validateEntry(trackID, userID, genre); err != nil {
		return err
	}
	return s.store.PushFront(ctx, queue.KeysFor(genre).Priority, queue.Entry{TrackID: trackID, UserID: userID})
}

// IsTrackEntryInQueue reports whether the entry waits in the priority queue.
func (s *TrackQueueService) IsTrackEntryInQueue(ctx context.Context, trackID, userID int64, genre models.Genre) (bool, error) {
	if err := validateEntry(trackID, userID, genre); err != nil {
		return false, err
	}
	return s.store.Exists(ctx, queue.KeysFor(genre).Priority, queue.Entry{TrackID: trackID, UserID: userID})
}

func (s *TrackQueueService) SetTrackInHash(ctx context.Context, trackID, userID int64, genre models.Genre) error {
	if err := validateEntry(trackID, userID, genre); err != nil {
		return err
	}
	return s.store.SetInHash(ctx, queue.KeysFor(genre).Hash, queue.Entry{TrackID: trackID, UserID: userID})
}

func (s *TrackQueueService) IsTrackInHash(ctx context.Context, trackID, userID int64, genre models.Genre) (bool, error) {
	if err := validateEntry(trackID, userID, genre); err != nil {
		return false, err
	}
	return s.store.InHash(ctx, queue.KeysFor(genre).Hash, queue.Entry{TrackID: trackID, UserID: userID})
}

// NextTrack pops the next entry of the genre, never returning excludeTrackID.
// Priority is tried first, then backup, then backup once more after a refill.
func (s *TrackQueueService) NextTrack(ctx context.Context, genre models.Genre, excludeTrackID int64) (queue.Entry, error) {
	if !genre.Valid() {
		return queue.Entry{}, &InvalidEntryError{Field: "genre"}
	}
	keys := queue.KeysFor(genre)

	attempts := []struct {
		key    string
		label  string
		refill bool
	}{
		{key: keys.Priority, label: metrics.QueuePriority},
		{key: keys.Backup, label: metrics.QueueBackup},
		{key: keys.Backup, label: metrics.QueueRefill, refill: true},
	}
	for _, a := range attempts {
		if a.refill {
			if _, err := s.RefillBackupQueue(ctx, genre); err != nil {
				return queue.Entry{}, err
			}
		}
		entry, ok, err := s.pop(ctx, genre, a.key, excludeTrackID)
		if err != nil {
			return queue.Entry{}, err
		}
		if ok {
			metrics.QueuePops.WithLabelValues(a.label).Inc()
			return entry, nil
		}
	}

	metrics.OutOfTracks.Inc()
	return queue.Entry{}, ErrOutOfTracks
}

// pop retries once when the popped token is unreadable. The token is already
// off the list by then, so a retry sees the next entry.
func (s *TrackQueueService) pop(ctx context.Context, genre models.Genre, key string, excludeTrackID int64) (queue.Entry, bool, error) {
	entry, ok, err := s.store.PopExcluding(ctx, key, excludeTrackID)
	if errors.Is(err, queue.ErrMalformedEntry) {
		s.logger.Warn("malformed queue entry dropped", "genre", genre, "queue", key, "error", err)
		entry, ok, err = s.store.PopExcluding(ctx, key, excludeTrackID)
	}
	return entry, ok, err
}

// RefillBackupQueue appends today's best tracks to the backup queue, topped
// up with previously entered tracks, in random order. It returns the number
// of entries added.
func (s *TrackQueueService) RefillBackupQueue(ctx context.Context, genre models.Genre) (int, error) {
	limit := s.settings.RefillLimit
	candidates, err := s.refillCandidates(ctx, genre, limit)
	if err != nil {
		s.logger.Error("REFILL_QUEUE_EVENT", "genre", genre, "error", err, "fallback", "previous_entries")
		candidates, err = s.history.PreviouslyEnteredTracks(ctx, genre, limit)
		if err != nil {
			return 0, fmt.Errorf("refill %s: %w", genre, err)
		}
	}
	utils.Shuffle(candidates)

	key := queue.KeysFor(genre).Backup
	added := 0
	for _, c := range candidates {
		if s.isDummy(c.TrackID) {
			continue
		}
		if err := s.store.PushBack(ctx, key, queue.Entry{TrackID: c.TrackID, UserID: c.UserID}); err != nil {
			return added, err
		}
		added++
	}

	metrics.QueueRefills.Inc()
	s.logger.Info("REFILL_QUEUE_EVENT", "genre", genre, "entries", added)
	return added, nil
}

func (s *TrackQueueService) refillCandidates(ctx context.Context, genre models.Genre, limit int) ([]models.QueueCandidate, error) {
	from, to := utils.Today(s.clock.Now(), s.settings.Location)
	tallies, err := s.history.DailyTallies(ctx, genre, from, to)
	if err != nil {
		return nil, err
	}

	winners := tallies[:0:0]
	for _, t := range tallies {
		if s.isDummy(t.TrackID) || t.Wins == 0 || t.Score() < s.settings.RefillMinScore {
			continue
		}
		winners = append(winners, t)
	}
	sort.SliceStable(winners, func(i, j int) bool {
		if winners[i].Score() != winners[j].Score() {
			return winners[i].Score() > winners[j].Score()
		}
		if winners[i].Wins != winners[j].Wins {
			return winners[i].Wins > winners[j].Wins
		}
		return winners[i].TrackID < winners[j].TrackID
	})
	if len(winners) > limit {
		winners = winners[:limit]
	}

	var out []models.QueueCandidate
	for _, w := range winners {
		multiplier := min(w.Plays(), int64(s.settings.MinimumEntries))
		n := int(math.Ceil(w.Score() * float64(multiplier)))
		for i := 0; i < n; i++ {
			out = append(out, models.QueueCandidate{TrackID: w.TrackID, UserID: w.UserID})
		}
	}

	if len(out) < limit {
		previous, err := s.history.PreviouslyEnteredTracks(ctx, genre, limit-len(out))
		if err != nil {
			return nil, err
		}
		out = append(out, previous...)
	}
	return out, nil
}

func (s *TrackQueueService) isDummy(trackID int64) bool {
	return s.settings.DummyTrackID != 0 && trackID == s.settings.DummyTrackID
}
