package tibber

import "time"

// PricePoint is the price of one hour as published by Tibber.
type PricePoint struct {
	StartsAt time.Time `json:"startsAt"`
	// Total is the price including energy, taxes and fees.
	Total    float64 `json:"total"`
	Energy   float64 `json:"energy"`
	Tax      float64 `json:"tax"`
	Level    string  `json:"level"`
	Currency string  `json:"currency"`
}

// PriceInfo holds the prices of one home.
type PriceInfo struct {
	HomeID   string
	Today    []PricePoint
	Tomorrow []PricePoint
}

// All returns today's and tomorrow's prices in time order.
func (p *PriceInfo) All() []PricePoint {
	all := make([]PricePoint, 0, len(p.Today)+len(p.Tomorrow))
	all = append(all, p.Today...)
	return append(all, p.Tomorrow...)
}

// GraphQL wire types.

type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type viewerData struct {
	Viewer struct {
		Homes []home `json:"homes"`
	} `json:"viewer"`
}

type home struct {
	ID                  string        `json:"id"`
	CurrentSubscription *subscription `json:"currentSubscription"`
}

type subscription struct {
	PriceInfo *struct {
		Today    []PricePoint `json:"today"`
		Tomorrow []PricePoint `json:"tomorrow"`
	} `json:"priceInfo"`
}
