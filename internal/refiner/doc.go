// Package refiner derives per-hour decision features from a day's electricity
// price curve.
//
// The input is the day's hourly prices ordered by time, where the slice index
// is the hour ordinal within the day. For each hour the package computes the
// day average, this hour's price and its ratio to the average, the hours of
// the daily maximum and minimum, whether the hour is among the most expensive
// hours of its six-hour quarter, relative price bands and the cheap-night
// flags used by the heating automations.
//
// The feature functions are pure. Refiner wires them to a PriceReader and a
// RefinedWriter so a whole day can be refined in one call:
//
//	r := refiner.New(influx, influx, loc, logger)
//	hours, err := r.Refine(ctx, "2026-10-18")
package refiner
