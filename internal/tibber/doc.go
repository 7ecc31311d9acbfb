// Package tibber fetches hourly electricity prices from the Tibber GraphQL API.
//
// The client asks for today's and tomorrow's prices of the configured home's
// current subscription. Tomorrow's prices are published around 13:00 local
// time, so earlier requests return only today.
//
// Usage:
//
//	client := tibber.NewClient(tibber.Config{Token: token})
//	info, err := client.FetchPrices(ctx)
//	if errors.Is(err, tibber.ErrUnauthorized) {
//	    // retrying will not help
//	}
package tibber
