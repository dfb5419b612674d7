package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"soundarena-competition/models"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Port           string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	JobToken       string
	AllowedOrigins []string
	LogLevel       slog.Level

	Competition Competition
	Scheduler   Scheduler
	Archive     Archive
}

// Competition holds the tunables of queueing and finalization.
type Competition struct {
	MatchupExpiry          time.Duration
	MinimumEntries         int
	MinimumEntriesConsumed int
	RefillMinScore         float64
	RefillLimit            int
	MatchupDurationSeconds int
	WinnerDurationSeconds  int
	DummyTrackID           int64
	Location               *time.Location
	FinalizeConcurrency    int
}

// Durations are the preview lengths copied onto each new matchup.
func (c Competition) Durations() models.Durations {
	return models.Durations{MatchupSeconds: c.MatchupDurationSeconds, WinnerSeconds: c.WinnerDurationSeconds}
}

type Scheduler struct {
	Enabled         bool
	FinalizeCron    string
	ReclaimInterval time.Duration
}

// Archive is the S3-compatible bucket finalize reports are copied to.
// Disabled when Bucket is empty. Endpoint overrides the R2 account endpoint.
type Archive struct {
	Bucket          string
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Endpoint        string
}

func (a Archive) Enabled() bool { return a.Bucket != "" }

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Port:          p.str("PORT", "5200"),
		DatabaseURL:   p.required("DATABASE_URL"),
		RedisAddr:     p.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword: p.str("REDIS_PASSWORD", ""),
		RedisDB:       p.int("REDIS_DB", 0),
		JobToken:      p.required("JOB_SERVICE_TOKEN"),
		LogLevel:      p.level("LOG_LEVEL", slog.LevelInfo),
		Competition: Competition{
			MatchupExpiry:          time.Duration(p.int("MATCHUP_EXPIRY_IN_MINUTES", 30)) * time.Minute,
			MinimumEntries:         p.int("MINIMUM_COMPETITION_ENTRIES", 15),
			MinimumEntriesConsumed: p.int("MINIMUM_COMPETITION_ENTRIES_CONSUMED", 10),
			RefillMinScore:         p.float("REFILL_QUEUE_MIN_SCORE", 0),
			RefillLimit:            p.int("REFILL_QUEUE_LIMIT", 20),
			MatchupDurationSeconds: p.int("MATCHUP_DURATION_IN_SECONDS", 30),
			WinnerDurationSeconds:  p.int("WINNER_DURATION_IN_SECONDS", 15),
			DummyTrackID:           int64(p.int("DUMMY_TRACK_ID", 0)),
			Location:               p.location("COMPETITION_TIMEZONE", time.UTC),
			FinalizeConcurrency:    p.int("FINALIZE_CONCURRENCY", 4),
		},
		Scheduler: Scheduler{
			Enabled:         p.bool("SCHEDULER_ENABLED", true),
			FinalizeCron:    p.str("FINALIZE_CRON", "5 0 * * *"),
			ReclaimInterval: time.Duration(p.int("RECLAIM_INTERVAL_MINUTES", 15)) * time.Minute,
		},
		Archive: Archive{
			Bucket:          p.str("REPORT_BUCKET", ""),
			AccountID:       p.str("R2_ACCOUNT_ID", ""),
			AccessKeyID:     p.str("R2_ACCESS_KEY_ID", ""),
			AccessKeySecret: p.str("R2_ACCESS_KEY_SECRET", ""),
			Endpoint:        p.str("R2_ENDPOINT", ""),
		},
	}

	for _, origin := range strings.Split(p.str("ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	if cfg.Competition.RefillLimit <= 0 {
		p.errs = append(p.errs, errors.New("REFILL_QUEUE_LIMIT must be positive"))
	}
	if cfg.Competition.FinalizeConcurrency <= 0 {
		p.errs = append(p.errs, errors.New("FINALIZE_CONCURRENCY must be positive"))
	}
	if cfg.Archive.Enabled() && cfg.Archive.AccountID == "" && cfg.Archive.Endpoint == "" {
		p.errs = append(p.errs, errors.New("R2_ACCOUNT_ID or R2_ENDPOINT is required when REPORT_BUCKET is set"))
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) required(key string) string {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		p.errs = append(p.errs, fmt.Errorf("%s is required", key))
	}
	return v
}

func (p *parser) int(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) location(key string, def *time.Location) *time.Location {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return loc
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return lvl
}
