package refiner

import (
	"fmt"
	"sort"
)

// HourPrice pairs an hour ordinal with its price.
type HourPrice struct {
	Hour  int     `json:"hour"`
	Price float64 `json:"price"`
}

// Quarter boundaries and ranking sizes used by RefineHour.
const (
	topCount = 3

	nightStart    = 0
	nightStop     = 8
	nightTopCount = 8
	nightPeak     = 2
	nightLowCount = 8
)

// Average returns the mean price of the day.
func Average(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return 0, ErrNoPrices
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices)), nil
}

// PriceAt returns the price of the given hour.
func PriceAt(hour int, prices []float64) (float64, error) {
	if hour < 0 || hour >= len(prices) {
		return 0, fmt.Errorf("%w: hour %d of %d", ErrHourOutOfRange, hour, len(prices))
	}
	return prices[hour], nil
}

// Ratio returns the price of hour divided by the day average.
func Ratio(hour int, prices []float64) (float64, error) {
	price, err := PriceAt(hour, prices)
	if err != nil {
		return 0, err
	}
	avg, err := Average(prices)
	if err != nil {
		return 0, err
	}
	if avg == 0 {
		return 0, nil
	}
	return price / avg, nil
}

// window returns the hours in [start, stop) clamped to the slice.
func window(prices []float64, start, stop int) []HourPrice {
	if start < 0 {
		start = 0
	}
	if stop > len(prices) {
		stop = len(prices)
	}
	if start >= stop {
		return nil
	}
	out := make([]HourPrice, 0, stop-start)
	for h := start; h < stop; h++ {
		out = append(out, HourPrice{Hour: h, Price: prices[h]})
	}
	return out
}

// Highest returns the count most expensive hours in [start, stop), most
// expensive first. Equal prices keep hour order.
func Highest(prices []float64, count, start, stop int) []HourPrice {
	hours := window(prices, start, stop)
	sort.SliceStable(hours, func(i, j int) bool {
		return hours[i].Price > hours[j].Price
	})
	return head(hours, count)
}

// Lowest returns the count cheapest hours in [start, stop), cheapest first.
// Equal prices keep hour order.
func Lowest(prices []float64, count, start, stop int) []HourPrice {
	hours := window(prices, start, stop)
	sort.SliceStable(hours, func(i, j int) bool {
		return hours[i].Price < hours[j].Price
	})
	return head(hours, count)
}

func head(hours []HourPrice, count int) []HourPrice {
	if count < 0 {
		count = 0
	}
	if count < len(hours) {
		return hours[:count]
	}
	return hours
}

// Max returns the most expensive hour of the day.
func Max(prices []float64) (HourPrice, error) {
	top := Highest(prices, 1, 0, len(prices))
	if len(top) == 0 {
		return HourPrice{}, ErrNoPrices
	}
	return top[0], nil
}

// Min returns the cheapest hour of the day.
func Min(prices []float64) (HourPrice, error) {
	bottom := Lowest(prices, 1, 0, len(prices))
	if len(bottom) == 0 {
		return HourPrice{}, ErrNoPrices
	}
	return bottom[0], nil
}

// WithinThreshold reports whether the price of hour lies strictly between
// low and high times the day average. Thresholds above 1 are percentages,
// so 90 and 0.9 mean the same.
func WithinThreshold(hour int, low, high float64, prices []float64) (bool, error) {
	price, err := PriceAt(hour, prices)
	if err != nil {
		return false, err
	}
	avg, err := Average(prices)
	if err != nil {
		return false, err
	}
	if low > 1 {
		low /= 100
	}
	if high > 1 {
		high /= 100
	}
	return low*avg < price && price < high*avg, nil
}

// InTop reports whether hour is one of the three most expensive hours in
// [start, stop).
func InTop(hour, start, stop int, prices []float64) (bool, error) {
	if _, err := PriceAt(hour, prices); err != nil {
		return false, err
	}
	return containsHour(Highest(prices, topCount, start, stop), hour), nil
}

// In6Of8 reports whether hour is a night hour (00-08) that is not one of
// the two most expensive night hours.
func In6Of8(hour int, prices []float64) (bool, error) {
	if _, err := PriceAt(hour, prices); err != nil {
		return false, err
	}
	peak := Highest(prices, nightPeak, nightStart, nightStop)
	night := Highest(prices, nightTopCount, nightStart, nightStop)
	return containsHour(night, hour) && !containsHour(peak, hour), nil
}

// In8Low reports whether the price of hour equals one of the eight cheapest
// night prices. Any hour of the day can match.
func In8Low(hour int, prices []float64) (bool, error) {
	price, err := PriceAt(hour, prices)
	if err != nil {
		return false, err
	}
	for _, hp := range Lowest(prices, nightLowCount, nightStart, nightStop) {
		if hp.Price == price {
			return true, nil
		}
	}
	return false, nil
}

func containsHour(hours []HourPrice, hour int) bool {
	for _, hp := range hours {
		if hp.Hour == hour {
			return true
		}
	}
	return false
}
