package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/casamack/tibber-refiner/internal/journal"
	"github.com/casamack/tibber-refiner/internal/metrics"
	"github.com/casamack/tibber-refiner/internal/pipeline"
	"github.com/casamack/tibber-refiner/internal/refiner"
)

// Logger defines the logging interface used by the Scheduler.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Runner runs the pipeline for one date.
type Runner interface {
	Run(ctx context.Context, date string, trigger journal.Trigger) (*pipeline.Result, error)
}

// RefinedSource returns cached refined hours.
type RefinedSource interface {
	RefinedHour(ctx context.Context, date string, hour int) (*refiner.Refined, error)
}

// CurrentPublisher publishes the refined values of the current hour.
type CurrentPublisher interface {
	PublishCurrent(ctx context.Context, r refiner.Refined) error
}

// RunHistory looks up earlier runs.
type RunHistory interface {
	LastSuccessful(ctx context.Context, date string) (*journal.Run, error)
}

// Config holds scheduler settings.
type Config struct {
	Hour       int
	Minute     int
	RunOnStart bool
	Location   *time.Location
}

// Request asks for a run. An empty Date means today.
type Request struct {
	Trigger journal.Trigger
	Date    string
}

// Status is a snapshot of the scheduler state.
type Status struct {
	Running   bool      `json:"running"`
	Busy      bool      `json:"busy"`
	NextRun   time.Time `json:"next_run"`
	LastRun   time.Time `json:"last_run"`
	LastRunID string    `json:"last_run_id,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler runs the pipeline daily and on request.
type Scheduler struct {
	config    Config
	runner    Runner
	source    RefinedSource
	publisher CurrentPublisher
	history   RunHistory
	metrics   *metrics.Metrics
	logger    Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	requests chan Request

	mu      sync.RWMutex
	running bool
	busy    bool
	nextRun time.Time
	lastRun time.Time
	lastID  string
	lastErr error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Scheduler. A nil location means time.Local.
func New(cfg Config, runner Runner) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		config:   cfg,
		runner:   runner,
		logger:   noopLogger{},
		now:      time.Now,
		after:    time.After,
		requests: make(chan Request, 1),
	}
}

// SetLogger sets the logger for the scheduler.
func (s *Scheduler) SetLogger(logger Logger) {
	s.logger = logger
}

// SetMetrics sets the metrics updated when the current hour is published.
func (s *Scheduler) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetCurrentPublisher enables hourly publishing of the current hour.
func (s *Scheduler) SetCurrentPublisher(source RefinedSource, publisher CurrentPublisher) {
	s.source = source
	s.publisher = publisher
}

// SetHistory lets the startup run be skipped when today's scheduled run
// already succeeded before a restart.
func (s *Scheduler) SetHistory(history RunHistory) {
	s.history = history
}

// Start launches the scheduling goroutines. They stop when ctx is cancelled
// or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("scheduler started",
		"update_time", time.Date(0, 1, 1, s.config.Hour, s.config.Minute, 0, 0, time.UTC).Format("15:04"),
		"timezone", s.config.Location.String(),
		"run_on_start", s.config.RunOnStart,
	)

	s.wg.Add(1)
	go s.loop(ctx)

	if s.source != nil && s.publisher != nil {
		s.wg.Add(1)
		go s.currentLoop(ctx)
	}
	return nil
}

// Stop cancels the scheduler and waits for a run in progress to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// Trigger requests a run. It reports false when a request is already pending.
func (s *Scheduler) Trigger(req Request) bool {
	select {
	case s.requests <- req:
		s.logger.Debug("run requested", "trigger", req.Trigger, "date", req.Date)
		return true
	default:
		s.logger.Debug("run already pending, request dropped", "trigger", req.Trigger)
		return false
	}
}

// Status returns the current scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Running:   s.running,
		Busy:      s.busy,
		NextRun:   s.nextRun,
		LastRun:   s.lastRun,
		LastRunID: s.lastID,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		s.logger.Info("scheduler stopped")
	}()

	if s.config.RunOnStart && !s.ranToday(ctx) {
		s.execute(ctx, Request{Trigger: journal.TriggerStartup})
	}

	for {
		now := s.now()
		next := NextRun(now.In(s.config.Location), s.config.Hour, s.config.Minute)
		s.mu.Lock()
		s.nextRun = next
		s.mu.Unlock()
		s.logger.Debug("next scheduled run", "at", next)

		timer := s.after(next.Sub(now))

		select {
		case <-ctx.Done():
			return
		case <-timer:
			s.execute(ctx, Request{Trigger: journal.TriggerSchedule})
		case req := <-s.requests:
			s.execute(ctx, req)
		}
	}
}

// ranToday reports whether a run for today succeeded at or after today's
// update time. Earlier successes may predate tomorrow's prices.
func (s *Scheduler) ranToday(ctx context.Context) bool {
	if s.history == nil {
		return false
	}

	now := s.now().In(s.config.Location)
	date := Today(now, s.config.Location)
	last, err := s.history.LastSuccessful(ctx, date)
	if err != nil {
		if !errors.Is(err, journal.ErrRunNotFound) {
			s.logger.Warn("failed to read run history", "date", date, "error", err)
		}
		return false
	}

	due := time.Date(now.Year(), now.Month(), now.Day(), s.config.Hour, s.config.Minute, 0, 0, s.config.Location)
	if last.StartedAt.Before(due) {
		return false
	}
	s.logger.Info("startup run skipped, today's run already succeeded",
		"date", date,
		"run_id", last.ID,
		"started_at", last.StartedAt,
	)
	return true
}

// execute runs the pipeline once. Retries happen inside the runner; a
// failure here means the retry budget is spent and the next run is tomorrow.
func (s *Scheduler) execute(ctx context.Context, req Request) {
	date := req.Date
	if date == "" {
		date = Today(s.now(), s.config.Location)
	}

	s.mu.Lock()
	s.busy = true
	s.mu.Unlock()

	result, err := s.runner.Run(ctx, date, req.Trigger)

	s.mu.Lock()
	s.busy = false
	s.lastRun = s.now()
	s.lastErr = err
	if result != nil {
		s.lastID = result.RunID
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Warn("run failed, waiting for next scheduled run",
			"date", date,
			"trigger", req.Trigger,
			"error", err,
		)
		return
	}

	s.publishCurrent(ctx)
}

func (s *Scheduler) currentLoop(ctx context.Context) {
	defer s.wg.Done()

	s.publishCurrent(ctx)
	for {
		now := s.now()
		wait := nextHour(now, s.config.Location).Sub(now)

		select {
		case <-ctx.Done():
			return
		case <-s.after(wait):
			s.publishCurrent(ctx)
		}
	}
}

// publishCurrent publishes the cached refined values of the current hour.
func (s *Scheduler) publishCurrent(ctx context.Context) {
	if s.source == nil || s.publisher == nil {
		return
	}

	date, hour := CurrentHour(s.now(), s.config.Location)
	r, err := s.source.RefinedHour(ctx, date, hour)
	if err != nil {
		s.logger.Debug("no refined values for current hour", "date", date, "hour", hour, "error", err)
		return
	}

	s.metrics.SetCurrentPrice(r.Price)
	if err := s.publisher.PublishCurrent(ctx, *r); err != nil {
		s.logger.Warn("failed to publish current hour", "date", date, "hour", hour, "error", err)
		return
	}
	s.logger.Debug("current hour published", "date", date, "hour", hour, "price", r.Price)
}
