package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"soundarena-competition/metrics"
	"soundarena-competition/models"
	"soundarena-competition/utils"
)

// ReclaimStore finds and releases abandoned matchups.
type ReclaimStore interface {
	ExpiredMatchups(ctx context.Context, genre models.Genre, cutoff time.Time) ([]models.ExpiredMatchup, error)
	TrackOwners(ctx context.Context, ids []int64) ([]models.QueueCandidate, error)
	ReleaseExpiredMatchups(ctx context.Context, genre models.Genre, cutoff time.Time, userIDs []int64) (int64, error)
}

// TrackReturner puts a track back at the front of its resolved queue.
type TrackReturner interface {
	PushTrack(ctx context.Context, trackID, userID int64, genre models.Genre) error
}

// ReclaimReport totals one reclaim run.
type ReclaimReport struct {
	ExpiredMatchupsCount     int   `json:"expiredMatchupsCount"`
	MatchupRecordsResetCount int64 `json:"matchupRecordsResetCount"`
	SkippedTracksCount       int   `json:"skippedTracksCount"`
}

// Reclaimer returns the tracks of checked-out matchups that outlived the
// expiry window and clears their checkout flag.
type Reclaimer struct {
	store  ReclaimStore
	queue  TrackReturner
	expiry time.Duration
	clock  utils.Clock
	logger *slog.Logger
}

func NewReclaimer(store ReclaimStore, q TrackReturner, expiry time.Duration, clock utils.Clock, logger *slog.Logger) *Reclaimer {
	return &Reclaimer{store: store, queue: q, expiry: expiry, clock: clock, logger: logger}
}

// Reclaim runs every genre against one cutoff. A genre that fails is logged
// and reported in the returned error; the others still run.
func (r *Reclaimer) Reclaim(ctx context.Context) (ReclaimReport, error) {
	cutoff := r.clock.Now().Add(-r.expiry)

	var (
		report ReclaimReport
		errs   []error
	)
	for _, genre := range models.Genres() {
		if err := r.reclaimGenre(ctx, genre, cutoff, &report); err != nil {
			r.logger.Error("RETURN_ABANDONED_TRACKS", "genre", genre, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", genre, err))
		}
	}

	r.logger.Info("RETURN_ABANDONED_TRACKS",
		"expired_matchups", report.ExpiredMatchupsCount,
		"rows_reset", report.MatchupRecordsResetCount,
		"tracks_returned", report.SkippedTracksCount,
	)
	return report, errors.Join(errs...)
}

func (r *Reclaimer) reclaimGenre(ctx context.Context, genre models.Genre, cutoff time.Time, report *ReclaimReport) error {
	expired, err := r.store.ExpiredMatchups(ctx, genre, cutoff)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}
	report.ExpiredMatchupsCount += len(expired)

	var trackIDs []int64
	for _, m := range expired {
		trackIDs = append(trackIDs, m.TrackIDs()...)
	}
	report.SkippedTracksCount += len(trackIDs)

	owners, err := r.store.TrackOwners(ctx, trackIDs)
	if err != nil {
		return err
	}
	ownerOf := make(map[int64]int64, len(owners))
	for _, o := range owners {
		ownerOf[o.TrackID] = o.UserID
	}

	// Every expired row is released in this run. A track whose push fails
	// is logged and dropped rather than pushed again next run.
	release := make([]int64, 0, len(expired))
	for _, m := range expired {
		for _, id := range m.TrackIDs() {
			owner, ok := ownerOf[id]
			if !ok {
				continue // deleted since the matchup started
			}
			if err := r.queue.PushTrack(ctx, id, owner, genre); err != nil {
				r.logger.Error("RETURN_ABANDONED_TRACKS", "genre", genre, "track_id", id, "user_id", m.UserID, "outcome", "track lost", "error", err)
				continue
			}
			metrics.ReclaimedTracks.Inc()
		}
		release = append(release, m.UserID)
	}

	n, err := r.store.ReleaseExpiredMatchups(ctx, genre, cutoff, release)
	if err != nil {
		return err
	}
	report.MatchupRecordsResetCount += n
	return nil
}
