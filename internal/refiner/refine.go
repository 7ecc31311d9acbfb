package refiner

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// DateLayout is the layout of the date tag written with every point.
const DateLayout = "2006-01-02"

// Relative price bands as percentages of the day average.
var bands = []struct {
	low, high float64
}{
	{0, 60},
	{60, 90},
	{90, 115},
	{115, 140},
	{140, 999},
}

// Refined holds the features of one hour. JSON names match the InfluxDB
// field names of the refined measurement.
type Refined struct {
	Date string    `json:"date"`
	Hour int       `json:"hour"`
	Time time.Time `json:"time"`

	Average float64 `json:"pris_snitt_24"`
	Price   float64 `json:"pris_time"`
	Ratio   float64 `json:"pris_forhold_24"`
	MaxHour int     `json:"pris_max"`
	MinHour int     `json:"pris_min"`

	In6Of8       bool `json:"in_6_l_8"`
	In0To6High   bool `json:"in_0_6_high"`
	In6To12High  bool `json:"in_6_12_high"`
	In12To18High bool `json:"in_12_18_high"`
	In18To24High bool `json:"in_18_24_high"`

	T0To60    bool `json:"t0_60"`
	T60To90   bool `json:"t60_90"`
	T90To115  bool `json:"t90_115"`
	T115To140 bool `json:"t115_140"`
	T140To999 bool `json:"t140_999"`

	In8Low bool `json:"i8h_low"`
}

// HourTag returns the hour formatted for the InfluxDB tag.
func (r Refined) HourTag() string {
	return strconv.Itoa(r.Hour)
}

// ParseDate parses a YYYY-MM-DD date as midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

// HourStart returns the instant the given hour ordinal of date begins.
// Ordinals count elapsed hours since midnight, so DST days map cleanly.
func HourStart(date string, hour int, loc *time.Location) (time.Time, error) {
	midnight, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return midnight.Add(time.Duration(hour) * time.Hour), nil
}

// RefineHour computes every feature of one hour.
func RefineHour(date string, hour int, prices []float64, loc *time.Location) (Refined, error) {
	start, err := HourStart(date, hour, loc)
	if err != nil {
		return Refined{}, err
	}

	r := Refined{Date: date, Hour: hour, Time: start}

	if r.Price, err = PriceAt(hour, prices); err != nil {
		return Refined{}, err
	}
	if r.Average, err = Average(prices); err != nil {
		return Refined{}, err
	}
	if r.Ratio, err = Ratio(hour, prices); err != nil {
		return Refined{}, err
	}

	maxHour, err := Max(prices)
	if err != nil {
		return Refined{}, err
	}
	minHour, err := Min(prices)
	if err != nil {
		return Refined{}, err
	}
	r.MaxHour, r.MinHour = maxHour.Hour, minHour.Hour

	if r.In6Of8, err = In6Of8(hour, prices); err != nil {
		return Refined{}, err
	}
	if r.In8Low, err = In8Low(hour, prices); err != nil {
		return Refined{}, err
	}

	quarters := []*bool{&r.In0To6High, &r.In6To12High, &r.In12To18High, &r.In18To24High}
	for i, dst := range quarters {
		if *dst, err = InTop(hour, i*6, (i+1)*6, prices); err != nil {
			return Refined{}, err
		}
	}

	thresholds := []*bool{&r.T0To60, &r.T60To90, &r.T90To115, &r.T115To140, &r.T140To999}
	for i, dst := range thresholds {
		if *dst, err = WithinThreshold(hour, bands[i].low, bands[i].high, prices); err != nil {
			return Refined{}, err
		}
	}

	return r, nil
}

// RefineDay refines every hour of the day concurrently. The result is
// ordered by hour and contains only the hours that succeeded; the error
// joins every per-hour failure.
func RefineDay(date string, prices []float64, loc *time.Location) ([]Refined, error) {
	if len(prices) == 0 {
		return nil, ErrNoPrices
	}
	if _, err := ParseDate(date, loc); err != nil {
		return nil, err
	}

	results := make([]Refined, len(prices))
	errs := make([]error, len(prices))

	var wg sync.WaitGroup
	for hour := range prices {
		wg.Add(1)
		go func(hour int) {
			defer wg.Done()
			r, err := RefineHour(date, hour, prices, loc)
			if err != nil {
				errs[hour] = fmt.Errorf("refining hour %d: %w", hour, err)
				return
			}
			results[hour] = r
		}(hour)
	}
	wg.Wait()

	refined := make([]Refined, 0, len(prices))
	for hour := range results {
		if errs[hour] == nil {
			refined = append(refined, results[hour])
		}
	}
	return refined, errors.Join(errs...)
}
