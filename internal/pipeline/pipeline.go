package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/casamack/tibber-refiner/internal/credentials"
	"github.com/casamack/tibber-refiner/internal/infrastructure/influxdb"
	"github.com/casamack/tibber-refiner/internal/journal"
	"github.com/casamack/tibber-refiner/internal/metrics"
	"github.com/casamack/tibber-refiner/internal/refiner"
	"github.com/casamack/tibber-refiner/internal/tibber"
)

// Logger defines the logging interface used by the Pipeline.
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

// PriceFetcher fetches prices from Tibber.
type PriceFetcher interface {
	FetchPrices(ctx context.Context) (*tibber.PriceInfo, error)
}

// PriceStore stores fetched prices.
type PriceStore interface {
	WritePrices(ctx context.Context, prices []tibber.PricePoint, loc *time.Location) error
}

// DayRefiner refines one day.
type DayRefiner interface {
	Refine(ctx context.Context, date string) ([]refiner.Refined, error)
}

// Journal records runs and caches refined hours.
type Journal interface {
	StartRun(ctx context.Context, date string, trigger journal.Trigger) (*journal.Run, error)
	UpdateRun(ctx context.Context, run *journal.Run) error
	FinishRun(ctx context.Context, run *journal.Run, runErr error) error
	SaveRefined(ctx context.Context, hours []refiner.Refined) error
}

// Publisher publishes refined hours.
type Publisher interface {
	PublishRefined(ctx context.Context, hours []refiner.Refined) error
}

// ErrTokenUnavailable marks a token source that failed for a reason other
// than a missing token, such as an unreadable credentials file.
var ErrTokenUnavailable = errors.New("resolving tibber token")

// TokenFunc returns the Tibber token, or credentials.ErrNoToken.
type TokenFunc func(ctx context.Context) (string, error)

// FetcherFunc creates a PriceFetcher for a token.
type FetcherFunc func(token string) PriceFetcher

// Deps holds the collaborators of a Pipeline. Publisher and Metrics are optional.
type Deps struct {
	Token      TokenFunc
	NewFetcher FetcherFunc
	Prices     PriceStore
	Refiner    DayRefiner
	Journal    Journal
	Publisher  Publisher
	Metrics    *metrics.Metrics
	Logger     Logger
	Location   *time.Location
}

// RetryPolicy controls retries of failed attempts.
type RetryPolicy struct {
	// Retries is the number of attempts after the first one.
	Retries int
	// InitialInterval is the wait before the first retry; it doubles after each.
	InitialInterval time.Duration
}

// DefaultRetryPolicy waits 1s, 2s, 4s, ... between ten retries.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Retries: 10, InitialInterval: time.Second}
}

// Result summarises a finished run.
type Result struct {
	RunID         string            `json:"run_id"`
	Date          string            `json:"date"`
	Attempts      int               `json:"attempts"`
	PricesWritten int               `json:"prices_written"`
	HoursWritten  int               `json:"hours_written"`
	RefineOnly    bool              `json:"refine_only"`
	Hours         []refiner.Refined `json:"-"`
}

// Pipeline runs fetch-and-refine cycles.
type Pipeline struct {
	deps  Deps
	retry RetryPolicy

	mu      sync.Mutex
	fetcher PriceFetcher
}

// New creates a Pipeline.
func New(deps Deps, retry RetryPolicy) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = time.Second
	}
	if retry.Retries < 0 {
		retry.Retries = 0
	}
	return &Pipeline{deps: deps, retry: retry}
}

// Run executes the pipeline for date, retrying failed attempts.
//
// Parameters:
//   - ctx: Context for cancellation; cancelling stops retries
//   - date: Day to refine, YYYY-MM-DD in the pipeline location
//   - trigger: What started the run, recorded in the journal
//
// Returns:
//   - *Result: Counters of the last attempt, also on failure
//   - error: The error of the last attempt
func (p *Pipeline) Run(ctx context.Context, date string, trigger journal.Trigger) (*Result, error) {
	start := time.Now()

	run, err := p.deps.Journal.StartRun(ctx, date, trigger)
	if err != nil {
		return nil, fmt.Errorf("starting run: %w", err)
	}
	result := &Result{RunID: run.ID, Date: date}
	log := p.deps.Logger

	log.Info("run started", "run_id", run.ID, "date", date, "trigger", trigger)

	operation := func() error {
		result.Attempts++
		run.Attempts = result.Attempts
		p.deps.Metrics.Attempt()

		err := p.attempt(ctx, date, result)

		run.PricesWritten = result.PricesWritten
		run.HoursWritten = result.HoursWritten
		if err != nil {
			run.Error = err.Error()
		}
		if uerr := p.deps.Journal.UpdateRun(ctx, run); uerr != nil {
			log.Warn("failed to update run", "run_id", run.ID, "error", uerr)
		}

		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		log.Warn("attempt failed, retrying",
			"run_id", run.ID,
			"attempt", result.Attempts,
			"next_try_in", next,
			"error", err,
		)
	}

	runErr := backoff.RetryNotify(operation, p.backoff(ctx), notify)

	// The run context may already be cancelled; the journal entry should
	// still be closed.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.deps.Journal.FinishRun(finishCtx, run, runErr); err != nil {
		log.Warn("failed to finish run", "run_id", run.ID, "error", err)
	}

	p.deps.Metrics.ObserveRun(runErr, time.Since(start), time.Now())

	if runErr != nil {
		log.Error("giving up on run",
			"run_id", run.ID,
			"date", date,
			"attempts", result.Attempts,
			"error", runErr,
		)
		return result, runErr
	}

	log.Info("run succeeded",
		"run_id", run.ID,
		"date", date,
		"attempts", result.Attempts,
		"prices_written", result.PricesWritten,
		"hours_written", result.HoursWritten,
		"refine_only", result.RefineOnly,
		"duration", time.Since(start),
	)
	return result, nil
}

func (p *Pipeline) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retry.InitialInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Duration(1<<20) * p.retry.InitialInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.retry.Retries)), ctx) //nolint:gosec // Retries is clamped to >= 0 in New
}

// attempt runs every step once.
func (p *Pipeline) attempt(ctx context.Context, date string, result *Result) error {
	log := p.deps.Logger

	fetcher, err := p.priceFetcher(ctx)
	switch {
	case errors.Is(err, credentials.ErrNoToken):
		result.RefineOnly = true
		log.Warn("no tibber token, refining stored prices only", "date", date)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
	default:
		result.RefineOnly = false
		if err := p.fetchAndStore(ctx, fetcher, result); err != nil {
			return err
		}
	}

	hours, err := p.deps.Refiner.Refine(ctx, date)
	result.HoursWritten = len(hours)
	result.Hours = hours
	p.deps.Metrics.PointsAdded(influxdb.MeasurementRefined, len(hours))
	if err != nil {
		return fmt.Errorf("refining %s: %w", date, err)
	}

	if err := p.deps.Journal.SaveRefined(ctx, hours); err != nil {
		log.Warn("failed to cache refined hours", "date", date, "error", err)
	}

	if p.deps.Publisher != nil {
		if err := p.deps.Publisher.PublishRefined(ctx, hours); err != nil {
			log.Warn("failed to publish refined hours", "date", date, "error", err)
		}
	}

	return nil
}

func (p *Pipeline) fetchAndStore(ctx context.Context, fetcher PriceFetcher, result *Result) error {
	info, err := fetcher.FetchPrices(ctx)
	p.deps.Metrics.TibberRequest(err)
	if err != nil {
		if errors.Is(err, tibber.ErrUnauthorized) {
			p.resetFetcher()
		}
		return fmt.Errorf("fetching prices: %w", err)
	}

	prices := info.All()
	if err := p.deps.Prices.WritePrices(ctx, prices, p.deps.Location); err != nil {
		return fmt.Errorf("writing prices: %w", err)
	}
	result.PricesWritten = len(prices)
	p.deps.Metrics.PointsAdded(influxdb.MeasurementPrices, len(prices))

	p.deps.Logger.Info("prices stored",
		"home_id", info.HomeID,
		"today", len(info.Today),
		"tomorrow", len(info.Tomorrow),
	)
	return nil
}

// priceFetcher resolves the token once and caches the fetcher built from it.
func (p *Pipeline) priceFetcher(ctx context.Context) (PriceFetcher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fetcher != nil {
		return p.fetcher, nil
	}
	if p.deps.Token == nil || p.deps.NewFetcher == nil {
		return nil, credentials.ErrNoToken
	}

	token, err := p.deps.Token(ctx)
	if err != nil {
		return nil, err
	}
	p.fetcher = p.deps.NewFetcher(token)
	return p.fetcher, nil
}

// resetFetcher drops a rejected token so the next run resolves it again.
func (p *Pipeline) resetFetcher() {
	p.mu.Lock()
	p.fetcher = nil
	p.mu.Unlock()
}

// isPermanent reports errors that retrying cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, tibber.ErrUnauthorized) ||
		errors.Is(err, tibber.ErrNoHome) ||
		errors.Is(err, ErrTokenUnavailable) ||
		errors.Is(err, refiner.ErrInvalidDate)
}
