package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"testing"
	"time"

	"github.com/casamack/tibber-refiner/internal/credentials"
	"github.com/casamack/tibber-refiner/internal/journal"
	"github.com/casamack/tibber-refiner/internal/metrics"
	"github.com/casamack/tibber-refiner/internal/refiner"
	"github.com/casamack/tibber-refiner/internal/tibber"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	errs  []error
	info  *tibber.PriceInfo
}

func (f *fakeFetcher) FetchPrices(context.Context) (*tibber.PriceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.info, nil
}

type fakeStore struct {
	written int
	err     error
}

func (s *fakeStore) WritePrices(_ context.Context, prices []tibber.PricePoint, _ *time.Location) error {
	if s.err != nil {
		return s.err
	}
	s.written += len(prices)
	return nil
}

type fakeRefiner struct {
	calls int
	err   error
}

func (r *fakeRefiner) Refine(_ context.Context, date string) ([]refiner.Refined, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	hours := make([]refiner.Refined, 24)
	for h := range hours {
		hours[h] = refiner.Refined{Date: date, Hour: h}
	}
	return hours, nil
}

type fakeJournal struct {
	mu      sync.Mutex
	runs    map[string]journal.Run
	updates int
	saved   int
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{runs: make(map[string]journal.Run)}
}

func (j *fakeJournal) StartRun(_ context.Context, date string, trigger journal.Trigger) (*journal.Run, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	run := &journal.Run{ID: "run-1", Date: date, Trigger: trigger, Status: journal.StatusRunning}
	j.runs[run.ID] = *run
	return run, nil
}

func (j *fakeJournal) UpdateRun(_ context.Context, run *journal.Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.updates++
	j.runs[run.ID] = *run
	return nil
}

func (j *fakeJournal) FinishRun(ctx context.Context, run *journal.Run, runErr error) error {
	run.Status = journal.StatusSucceeded
	run.Error = ""
	if runErr != nil {
		run.Status = journal.StatusFailed
		run.Error = runErr.Error()
	}
	return j.UpdateRun(ctx, run)
}

func (j *fakeJournal) SaveRefined(_ context.Context, hours []refiner.Refined) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.saved += len(hours)
	return nil
}

func (j *fakeJournal) run(id string) journal.Run {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs[id]
}

type fakePublisher struct {
	published int
	err       error
}

func (p *fakePublisher) PublishRefined(_ context.Context, hours []refiner.Refined) error {
	p.published += len(hours)
	return p.err
}

func samplePrices() *tibber.PriceInfo {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	info := &tibber.PriceInfo{HomeID: "home-1"}
	for h := 0; h < 24; h++ {
		info.Today = append(info.Today, tibber.PricePoint{StartsAt: start.Add(time.Duration(h) * time.Hour), Total: float64(h)})
	}
	return info
}

type fixture struct {
	fetcher   *fakeFetcher
	store     *fakeStore
	refiner   *fakeRefiner
	journal   *fakeJournal
	publisher *fakePublisher
	tokens    int
	deps      Deps
}

func newFixture(token string) *fixture {
	f := &fixture{
		fetcher:   &fakeFetcher{info: samplePrices()},
		store:     &fakeStore{},
		refiner:   &fakeRefiner{},
		journal:   newFakeJournal(),
		publisher: &fakePublisher{},
	}
	f.deps = Deps{
		Token: func(context.Context) (string, error) {
			f.tokens++
			if token == "" {
				return "", credentials.ErrNoToken
			}
			return token, nil
		},
		NewFetcher: func(string) PriceFetcher { return f.fetcher },
		Prices:     f.store,
		Refiner:    f.refiner,
		Journal:    f.journal,
		Publisher:  f.publisher,
		Metrics:    metrics.New(),
		Location:   time.UTC,
	}
	return f
}

func fastRetry(retries int) RetryPolicy {
	return RetryPolicy{Retries: retries, InitialInterval: time.Millisecond}
}

func TestRunSucceeds(t *testing.T) {
	f := newFixture("secret")
	p := New(f.deps, fastRetry(3))

	result, err := p.Run(context.Background(), "2026-03-10", journal.TriggerStartup)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if result.PricesWritten != 24 || f.store.written != 24 {
		t.Errorf("PricesWritten = %d, store = %d, want 24", result.PricesWritten, f.store.written)
	}
	if result.HoursWritten != 24 {
		t.Errorf("HoursWritten = %d, want 24", result.HoursWritten)
	}
	if result.RefineOnly {
		t.Error("RefineOnly = true, want false")
	}
	if f.journal.saved != 24 {
		t.Errorf("saved = %d, want 24", f.journal.saved)
	}
	if f.publisher.published != 24 {
		t.Errorf("published = %d, want 24", f.publisher.published)
	}

	run := f.journal.run(result.RunID)
	if run.Status != journal.StatusSucceeded {
		t.Errorf("run status = %q, want succeeded", run.Status)
	}
	if run.Attempts != 1 {
		t.Errorf("run attempts = %d, want 1", run.Attempts)
	}
}

func TestRunRetriesTransientFailures(t *testing.T) {
	f := newFixture("secret")
	f.fetcher.errs = []error{tibber.ErrAPI, tibber.ErrAPI}
	p := New(f.deps, fastRetry(5))

	result, err := p.Run(context.Background(), "2026-03-10", journal.TriggerSchedule)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if f.fetcher.calls != 3 {
		t.Errorf("fetch calls = %d, want 3", f.fetcher.calls)
	}
	if f.tokens != 1 {
		t.Errorf("token resolved %d times, want 1", f.tokens)
	}
	if got := f.journal.run(result.RunID).Attempts; got != 3 {
		t.Errorf("journal attempts = %d, want 3", got)
	}
}

func TestRunGivesUpAfterRetries(t *testing.T) {
	f := newFixture("secret")
	f.store.err = errors.New("influx down")
	p := New(f.deps, fastRetry(2))

	result, err := p.Run(context.Background(), "2026-03-10", journal.TriggerSchedule)
	if err == nil {
		t.Fatal("Run() error = nil, want error")
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if f.refiner.calls != 0 {
		t.Errorf("refiner calls = %d, want 0", f.refiner.calls)
	}

	run := f.journal.run(result.RunID)
	if run.Status != journal.StatusFailed {
		t.Errorf("run status = %q, want failed", run.Status)
	}
	if run.Error == "" {
		t.Error("run error is empty")
	}
}

func TestRunUnauthorizedIsPermanent(t *testing.T) {
	f := newFixture("bad")
	f.fetcher.errs = []error{tibber.ErrUnauthorized}
	p := New(f.deps, fastRetry(5))

	result, err := p.Run(context.Background(), "2026-03-10", journal.TriggerAPI)
	if !errors.Is(err, tibber.ErrUnauthorized) {
		t.Fatalf("Run() error = %v, want ErrUnauthorized", err)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}

	// The rejected token is resolved again on the next run.
	if _, err := p.Run(context.Background(), "2026-03-10", journal.TriggerAPI); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if f.tokens != 2 {
		t.Errorf("token resolved %d times, want 2", f.tokens)
	}
}

func TestRunUnreadableCredentialsIsPermanent(t *testing.T) {
	f := newFixture("secret")
	f.deps.Token = func(context.Context) (string, error) {
		f.tokens++
		return "", fmt.Errorf("opening credentials file: %w", fs.ErrPermission)
	}
	p := New(f.deps, fastRetry(3))

	result, err := p.Run(context.Background(), "2026-03-10", journal.TriggerSchedule)
	if !errors.Is(err, fs.ErrPermission) || !errors.Is(err, ErrTokenUnavailable) {
		t.Fatalf("Run() error = %v, want ErrTokenUnavailable wrapping fs.ErrPermission", err)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if f.tokens != 1 {
		t.Errorf("token resolved %d times, want 1", f.tokens)
	}
	if f.refiner.calls != 0 {
		t.Errorf("refiner calls = %d, want 0", f.refiner.calls)
	}
	if run := f.journal.run(result.RunID); run.Status != journal.StatusFailed {
		t.Errorf("run status = %q, want failed", run.Status)
	}
}

func TestRunRefineOnlyWithoutToken(t *testing.T) {
	f := newFixture("")
	p := New(f.deps, fastRetry(1))

	result, err := p.Run(context.Background(), "2026-03-10", journal.TriggerStartup)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.RefineOnly {
		t.Error("RefineOnly = false, want true")
	}
	if f.fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0", f.fetcher.calls)
	}
	if result.HoursWritten != 24 {
		t.Errorf("HoursWritten = %d, want 24", result.HoursWritten)
	}
}

func TestRunPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture("secret")
	f.publisher.err = errors.New("broker gone")
	p := New(f.deps, fastRetry(0))

	if _, err := p.Run(context.Background(), "2026-03-10", journal.TriggerMQTT); err != nil {
		t.Fatalf("Run() error = %v, want nil", err)
	}
}

func TestRunInvalidDateIsPermanent(t *testing.T) {
	f := newFixture("secret")
	f.refiner.err = refiner.ErrInvalidDate
	p := New(f.deps, fastRetry(5))

	result, err := p.Run(context.Background(), "not-a-date", journal.TriggerAPI)
	if !errors.Is(err, refiner.ErrInvalidDate) {
		t.Fatalf("Run() error = %v, want ErrInvalidDate", err)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture("secret")
	f.store.err = errors.New("influx down")
	p := New(f.deps, RetryPolicy{Retries: 10, InitialInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx, "2026-03-10", journal.TriggerSchedule)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run() error = nil after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if got := f.journal.run("run-1").Status; got != journal.StatusFailed {
		t.Errorf("run status = %q, want failed", got)
	}
}
