package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/baechuer/property-recs/internal/application/recommend"
	"github.com/baechuer/property-recs/internal/domain"
	"github.com/baechuer/property-recs/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UserSource enumerates users with recent activity.
type UserSource interface {
	UsersWithActivitySince(ctx context.Context, since time.Time, perUser int) ([]domain.ActiveUser, error)
}

// Recommender produces the ranked candidates for one user.
type Recommender interface {
	Recommend(ctx context.Context, user domain.ActiveUser, since time.Time) ([]domain.CandidateResult, error)
}

type Config struct {
	Interval       time.Duration
	StartupDelay   time.Duration
	ActivityWindow time.Duration
	UserTimeout    time.Duration
	Concurrency    int
}

// Report summarises one sweep.
type Report struct {
	RunID     string
	Users     int
	Delivered int
	Empty     int
	Skipped   int
	Failed    int
	Canceled  bool
	Duration  time.Duration
}

// Scheduler runs the recommendation sweep on a fixed interval. Ticks never
// overlap: the next wait starts only after a sweep has fully finished.
type Scheduler struct {
	users    UserSource
	engine   Recommender
	notifier domain.Notifier
	cfg      Config

	state atomic.Int32
	now   func() time.Time
	lg    zerolog.Logger

	mu   sync.Mutex
	last Report
}

func NewScheduler(users UserSource, engine Recommender, notifier domain.Notifier, cfg Config, lg zerolog.Logger) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Scheduler{
		users:    users,
		engine:   engine,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		lg:       lg.With().Str("component", "recs_sweep").Logger(),
	}
}

func (s *Scheduler) State() State { return State(s.state.Load()) }

func (s *Scheduler) LastReport() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Run waits for the startup delay, then sweeps every interval until ctx is
// done. Sweep errors are logged and never end the loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.lg.Info().
		Dur("startup_delay", s.cfg.StartupDelay).
		Dur("interval", s.cfg.Interval).
		Msg("recommendation scheduler started")

	timer := time.NewTimer(s.cfg.StartupDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.lg.Info().Msg("recommendation scheduler stopped")
			return
		case <-timer.C:
		}

		if _, err := s.RunOnce(ctx); err != nil {
			s.lg.Error().Err(err).Msg("sweep failed; waiting for next interval")
		}
		s.state.Store(int32(StateIdle))
		timer.Reset(s.cfg.Interval)
	}
}

// RunOnce performs a single sweep. It returns an error only when the user
// list cannot be read; per-user failures are counted in the report.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	s.state.Store(int32(StateRunning))
	start := s.now()
	rep := Report{RunID: uuid.NewString()}
	lg := s.lg.With().Str("run_id", rep.RunID).Logger()

	since := start.Add(-s.cfg.ActivityWindow)
	users, err := s.users.UsersWithActivitySince(ctx, since, recommend.MaxReferences)
	if err != nil {
		rep.Duration = time.Since(start)
		s.finish(StateFailed, rep)
		metrics.RecordSweep("failed", rep.Duration)
		return rep, fmt.Errorf("enumerate active users: %w", err)
	}
	rep.Users = len(users)
	lg.Info().Int("users", len(users)).Time("since", since).Msg("sweep started")

	var (
		mu       sync.Mutex
		canceled atomic.Bool
	)
	tally := func(o outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case outcomeDelivered:
			rep.Delivered++
		case outcomeEmpty:
			rep.Empty++
		case outcomeSkipped:
			rep.Skipped++
		case outcomeFailed:
			rep.Failed++
		}
		metrics.RecordUser(string(o))
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, u := range users {
		if ctx.Err() != nil {
			canceled.Store(true)
			break
		}
		g.Go(func() error {
			// a slot may free up after shutdown was requested
			if ctx.Err() != nil {
				canceled.Store(true)
				return nil
			}
			tally(s.processUser(ctx, lg, rep.RunID, since, u))
			return nil
		})
	}
	_ = g.Wait()

	rep.Canceled = canceled.Load()
	rep.Duration = time.Since(start)
	s.finish(StateSuccess, rep)
	metrics.RecordSweep("success", rep.Duration)

	lg.Info().
		Int("users", rep.Users).
		Int("delivered", rep.Delivered).
		Int("empty", rep.Empty).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Bool("canceled", rep.Canceled).
		Dur("duration", rep.Duration).
		Msg("sweep finished")
	return rep, nil
}

func (s *Scheduler) finish(st State, rep Report) {
	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()
	s.state.Store(int32(st))
}

type outcome string

const (
	outcomeDelivered outcome = "delivered"
	outcomeEmpty     outcome = "empty"
	outcomeSkipped   outcome = "skipped"
	outcomeFailed    outcome = "failed"
)

// processUser runs one user's pipeline to completion. It is detached from
// shutdown so a started user is never cut mid-way, but bounded by UserTimeout.
func (s *Scheduler) processUser(parent context.Context, lg zerolog.Logger, runID string, since time.Time, u domain.ActiveUser) (out outcome) {
	ulg := lg.With().Int64("user_id", u.UserID).Logger()

	if !u.HasRecipient() {
		ulg.Debug().Msg("user has no email; skipped")
		return outcomeSkipped
	}

	ctx := context.WithoutCancel(parent)
	if s.cfg.UserTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.UserTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			ulg.Error().Interface("panic", r).Msg("user pipeline failed")
			out = outcomeFailed
		}
	}()

	ranked, err := s.engine.Recommend(ctx, u, since)
	if err != nil {
		ulg.Error().Err(err).Bool("timeout", errors.Is(err, context.DeadlineExceeded)).Msg("user pipeline failed")
		return outcomeFailed
	}
	if len(ranked) == 0 {
		return outcomeEmpty
	}

	batch := domain.RecommendationBatch{
		RunID:       runID,
		UserID:      u.UserID,
		Recipient:   u.Email,
		DisplayName: u.DisplayName(),
		Listings:    recommend.Listings(ranked),
		GeneratedAt: s.now().UTC(),
	}
	if err := s.notifier.Deliver(ctx, batch); err != nil {
		ulg.Error().Err(err).Msg("user pipeline failed")
		return outcomeFailed
	}

	ulg.Debug().Int("listings", len(batch.Listings)).Msg("recommendations delivered")
	return outcomeDelivered
}
