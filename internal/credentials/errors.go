package credentials

import "errors"

var (
	// ErrNoToken indicates no source provided a token.
	ErrNoToken = errors.New("credentials: no tibber token available")

	// ErrEmptyInput indicates the prompt was answered with an empty line.
	ErrEmptyInput = errors.New("credentials: empty token entered")
)
