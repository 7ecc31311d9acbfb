package refiner

import "errors"

var (
	// ErrNoPrices indicates the price slice is empty.
	ErrNoPrices = errors.New("refiner: no prices")

	// ErrHourOutOfRange indicates an hour outside the price slice.
	ErrHourOutOfRange = errors.New("refiner: hour out of range")

	// ErrInvalidDate indicates a date that is not formatted as YYYY-MM-DD.
	ErrInvalidDate = errors.New("refiner: invalid date")
)
