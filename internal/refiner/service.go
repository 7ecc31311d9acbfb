package refiner

import (
	"context"
	"fmt"
	"time"
)

// Logger defines the logging interface used by the Refiner.
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

// PriceReader loads the hourly prices of a day, ordered by time.
type PriceReader interface {
	DayPrices(ctx context.Context, date string) ([]float64, error)
}

// RefinedWriter stores refined hours.
type RefinedWriter interface {
	WriteRefined(ctx context.Context, hours []Refined) error
}

// Refiner reads a day's prices, refines them and writes the result.
type Refiner struct {
	reader PriceReader
	writer RefinedWriter
	loc    *time.Location
	logger Logger
}

// New creates a Refiner. A nil location means time.Local.
func New(reader PriceReader, writer RefinedWriter, loc *time.Location, logger Logger) *Refiner {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Refiner{reader: reader, writer: writer, loc: loc, logger: logger}
}

// Refine refines every hour of date and writes the hours that succeeded.
//
// Returns:
//   - []Refined: The refined hours that were written
//   - error: If reading fails, any hour fails, or writing fails
func (r *Refiner) Refine(ctx context.Context, date string) ([]Refined, error) {
	prices, err := r.reader.DayPrices(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("reading prices for %s: %w", date, err)
	}
	r.logger.Debug("prices loaded", "date", date, "hours", len(prices))

	hours, refineErr := RefineDay(date, prices, r.loc)
	if refineErr != nil {
		r.logger.Error("refining failed for some hours", "date", date, "error", refineErr)
	}

	if len(hours) > 0 {
		if err := r.writer.WriteRefined(ctx, hours); err != nil {
			return nil, fmt.Errorf("writing refined hours for %s: %w", date, err)
		}
	}
	if refineErr != nil {
		return hours, refineErr
	}

	r.logger.Info("day refined", "date", date, "hours", len(hours))
	return hours, nil
}
