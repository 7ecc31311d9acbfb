package influxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	influxdb1 "github.com/influxdata/influxdb1-client/v2"

	"github.com/casamack/tibber-refiner/internal/refiner"
)

// DayPrices returns the hourly prices stored for date, ordered by time.
//
// Every row must carry a numeric price. A gap would shift the hours that
// follow it, so a null or malformed price fails the whole day.
//
// Parameters:
//   - ctx: Context for cancellation
//   - date: Calendar day as YYYY-MM-DD
//
// Returns:
//   - []float64: Prices, index = hour ordinal within the day
//   - error: ErrNoData when no prices are stored, ErrQueryFailed on server
//     errors or unusable rows
func (c *Client) DayPrices(ctx context.Context, date string) ([]float64, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	// Validating the layout also keeps the value safe to quote.
	if _, err := time.Parse(refiner.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: %q", refiner.ErrInvalidDate, date)
	}

	cmd := fmt.Sprintf("SELECT price FROM %s WHERE date = '%s' ORDER BY time ASC", MeasurementPrices, date)
	columns, values, err := c.query(ctx, cmd)
	if err != nil {
		return nil, err
	}

	col := -1
	for i, name := range columns {
		if name == "price" {
			col = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: no price column", ErrQueryFailed)
	}

	prices := make([]float64, 0, len(values))
	for i, row := range values {
		if col >= len(row) || row[col] == nil {
			return nil, fmt.Errorf("%w: %s row %d has no price", ErrQueryFailed, date, i)
		}
		num, ok := row[col].(json.Number)
		if !ok {
			return nil, fmt.Errorf("%w: %s row %d: price %v is not numeric", ErrQueryFailed, date, i, row[col])
		}
		v, err := num.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: price %q: %w", ErrQueryFailed, num, err)
		}
		prices = append(prices, v)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: %s has no prices for %s", ErrNoData, MeasurementPrices, date)
	}
	return prices, nil
}

// query runs one InfluxQL statement and returns the columns and rows of its
// first series. Times come back as epoch seconds.
func (c *Client) query(ctx context.Context, cmd string) ([]string, [][]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	q := influxdb1.Query{
		Command:         cmd,
		Database:        c.cfg.Database,
		RetentionPolicy: c.cfg.RetentionPolicy,
		Precision:       "s",
	}
	resp, err := c.reader.Query(q)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	if err := resp.Error(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	if len(resp.Results) < 1 || len(resp.Results[0].Series) < 1 {
		return nil, nil, ErrNoData
	}

	series := resp.Results[0].Series[0]
	return series.Columns, series.Values, nil
}
