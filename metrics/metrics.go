package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QueuePops = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "competition_queue_pops_total", Help: "Tracks popped from a genre queue"},
		[]string{"queue"},
	)
	OutOfTracks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "competition_out_of_tracks_total", Help: "Pops that found every queue empty after refill"},
	)
	QueueRefills = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "competition_queue_refills_total", Help: "Backup queue refills"},
	)
	MatchupsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "competition_matchups_recorded_total", Help: "Decided matchups persisted"},
	)
	FinalizeTracks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "competition_finalize_tracks_total", Help: "Tracks processed by finalization"},
		[]string{"genre", "outcome"},
	)
	ReclaimedTracks = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "competition_reclaimed_tracks_total", Help: "Tracks returned from abandoned matchups"},
	)
)

// Queue labels.
const (
	QueuePriority = "priority"
	QueueBackup   = "backup"
	QueueRefill   = "refill"
)

// Finalize outcomes.
const (
	OutcomeEligible = "eligible"
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"
)

func Register() {
	prometheus.MustRegister(QueuePops, OutOfTracks, QueueRefills, MatchupsRecorded, FinalizeTracks, ReclaimedTracks)
}
