package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/casamack/tibber-refiner/internal/refiner"
	"github.com/casamack/tibber-refiner/internal/tibber"
)

// Measurement names.
const (
	MeasurementPrices  = "price_info"
	MeasurementRefined = "refined"
)

// WritePrices writes one price_info point per hour. The date and hour tags
// are the local calendar day and clock hour in loc; the timestamp is the
// start of the hour.
//
// Parameters:
//   - ctx: Context for cancellation
//   - prices: Hourly prices, typically today's and tomorrow's
//   - loc: Location the date and hour tags are computed in (nil means time.Local)
//
// Returns:
//   - error: ErrNotConnected or ErrWriteFailed (wrapped)
func (c *Client) WritePrices(ctx context.Context, prices []tibber.PricePoint, loc *time.Location) error {
	if len(prices) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	points := make([]*write.Point, 0, len(prices))
	for _, p := range prices {
		local := p.StartsAt.In(loc)
		points = append(points, write.NewPoint(
			MeasurementPrices,
			map[string]string{
				"date": local.Format(refiner.DateLayout),
				"hour": strconv.Itoa(local.Hour()),
			},
			map[string]interface{}{
				"price":    p.Total,
				"energy":   p.Energy,
				"tax":      p.Tax,
				"level":    p.Level,
				"currency": p.Currency,
			},
			p.StartsAt,
		))
	}

	return c.writePoints(ctx, points)
}

// WriteRefined writes one refined point per hour, stamped at the start of
// the hour.
func (c *Client) WriteRefined(ctx context.Context, hours []refiner.Refined) error {
	if len(hours) == 0 {
		return nil
	}

	points := make([]*write.Point, 0, len(hours))
	for _, r := range hours {
		points = append(points, write.NewPoint(
			MeasurementRefined,
			map[string]string{
				"date": r.Date,
				"hour": r.HourTag(),
			},
			refinedFields(r),
			r.Time,
		))
	}

	return c.writePoints(ctx, points)
}

func refinedFields(r refiner.Refined) map[string]interface{} {
	return map[string]interface{}{
		"pris_snitt_24":   r.Average,
		"pris_time":       r.Price,
		"pris_forhold_24": r.Ratio,
		"pris_max":        int64(r.MaxHour),
		"pris_min":        int64(r.MinHour),
		"in_6_l_8":        r.In6Of8,
		"in_0_6_high":     r.In0To6High,
		"in_6_12_high":    r.In6To12High,
		"in_12_18_high":   r.In12To18High,
		"in_18_24_high":   r.In18To24High,
		"t0_60":           r.T0To60,
		"t60_90":          r.T60To90,
		"t90_115":         r.T90To115,
		"t115_140":        r.T115To140,
		"t140_999":        r.T140To999,
		"i8h_low":         r.In8Low,
	}
}

func (c *Client) writePoints(ctx context.Context, points []*write.Point) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := c.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
