package tibber

import "errors"

var (
	// ErrUnauthorized indicates the access token was rejected.
	ErrUnauthorized = errors.New("tibber: unauthorized")

	// ErrAPI indicates the API answered with GraphQL errors or an unexpected status.
	ErrAPI = errors.New("tibber: api error")

	// ErrNoHome indicates no home with an active subscription was found.
	ErrNoHome = errors.New("tibber: no home with a price subscription")

	// ErrNoToken indicates the client was created without an access token.
	ErrNoToken = errors.New("tibber: access token is required")
)
