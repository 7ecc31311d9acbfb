package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casamack/tibber-refiner/internal/refiner"
)

// Trigger tells what started a run.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerSchedule Trigger = "schedule"
	TriggerAPI      Trigger = "api"
	TriggerMQTT     Trigger = "mqtt"
)

// Status is the state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one execution of the fetch-and-refine pipeline.
type Run struct {
	ID            string     `json:"id"`
	Date          string     `json:"date"`
	Trigger       Trigger    `json:"trigger"`
	Status        Status     `json:"status"`
	Attempts      int        `json:"attempts"`
	PricesWritten int        `json:"prices_written"`
	HoursWritten  int        `json:"hours_written"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Journal stores runs and refined hours.
type Journal struct {
	db *sql.DB
}

// New creates a Journal on an open, migrated database.
func New(db *sql.DB) *Journal {
	return &Journal{db: db}
}

// StartRun inserts a running run for date and returns it.
func (j *Journal) StartRun(ctx context.Context, date string, trigger Trigger) (*Run, error) {
	run := &Run{
		ID:        "run-" + uuid.NewString(),
		Date:      date,
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, date, run_trigger, status, attempts, prices_written, hours_written, error, started_at)
		 VALUES (?, ?, ?, ?, 0, 0, 0, '', ?)`,
		run.ID, run.Date, string(run.Trigger), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return run, nil
}

// UpdateRun stores the progress counters and error of a run.
// A run with a final status also gets its finish time set.
func (j *Journal) UpdateRun(ctx context.Context, run *Run) error {
	var finished any
	if run.Status != StatusRunning {
		if run.FinishedAt == nil {
			now := time.Now().UTC()
			run.FinishedAt = &now
		}
		finished = formatTime(*run.FinishedAt)
	}

	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, attempts = ?, prices_written = ?, hours_written = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(run.Status), run.Attempts, run.PricesWritten, run.HoursWritten, run.Error, finished, run.ID,
	)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRunNotFound
	}
	return nil
}

// FinishRun marks a run succeeded, or failed when runErr is not nil.
func (j *Journal) FinishRun(ctx context.Context, run *Run, runErr error) error {
	run.Status = StatusSucceeded
	run.Error = ""
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	}
	return j.UpdateRun(ctx, run)
}

const runColumns = `id, date, run_trigger, status, attempts, prices_written, hours_written, error, started_at, finished_at`

// GetRun returns the run with the given ID.
func (j *Journal) GetRun(ctx context.Context, id string) (*Run, error) {
	row := j.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. The limit defaults to 50
// and is capped at 200.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := j.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// LastSuccessful returns the latest succeeded run for date.
func (j *Journal) LastSuccessful(ctx context.Context, date string) (*Run, error) {
	row := j.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE date = ? AND status = ? ORDER BY started_at DESC, rowid DESC LIMIT 1",
		date, string(StatusSucceeded))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var run Run
	var trigger, status, startedAt string
	var finishedAt sql.NullString

	if err := s.Scan(&run.ID, &run.Date, &trigger, &status, &run.Attempts,
		&run.PricesWritten, &run.HoursWritten, &run.Error, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	run.Trigger = Trigger(trigger)
	run.Status = Status(status)

	t, err := parseTime(startedAt)
	if err != nil {
		return nil, err
	}
	run.StartedAt = t

	if finishedAt.Valid && finishedAt.String != "" {
		f, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &f
	}
	return &run, nil
}

// SaveRefined replaces the cached refined hours of each hour's day.
func (j *Journal) SaveRefined(ctx context.Context, hours []refiner.Refined) error {
	if len(hours) == 0 {
		return nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	now := formatTime(time.Now().UTC())
	for _, r := range hours {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshalling refined hour %s/%d: %w", r.Date, r.Hour, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO refined_hours (date, hour, data, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(date, hour) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			r.Date, r.Hour, string(data), now,
		); err != nil {
			return fmt.Errorf("saving refined hour %s/%d: %w", r.Date, r.Hour, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing refined hours: %w", err)
	}
	return nil
}

// Refined returns the cached refined hours of date ordered by hour.
func (j *Journal) Refined(ctx context.Context, date string) ([]refiner.Refined, error) {
	rows, err := j.db.QueryContext(ctx, "SELECT data FROM refined_hours WHERE date = ? ORDER BY hour", date)
	if err != nil {
		return nil, fmt.Errorf("querying refined hours: %w", err)
	}
	defer rows.Close()

	var hours []refiner.Refined
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning refined hour: %w", err)
		}
		var r refiner.Refined
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decoding refined hour: %w", err)
		}
		hours = append(hours, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating refined hours: %w", err)
	}
	if len(hours) == 0 {
		return nil, ErrRefinedNotFound
	}
	return hours, nil
}

// RefinedHour returns the cached refined values of one hour.
func (j *Journal) RefinedHour(ctx context.Context, date string, hour int) (*refiner.Refined, error) {
	var data string
	err := j.db.QueryRowContext(ctx,
		"SELECT data FROM refined_hours WHERE date = ? AND hour = ?", date, hour).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRefinedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying refined hour: %w", err)
	}

	var r refiner.Refined
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decoding refined hour: %w", err)
	}
	return &r, nil
}

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
