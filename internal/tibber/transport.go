package tibber

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// classifyingTransport maps Tibber responses the GraphQL client would
// otherwise only see as opaque decode failures or messages: non-2xx
// statuses and errors carrying the UNAUTHENTICATED extension code. It also
// caps the body size.
type classifyingTransport struct {
	base http.RoundTripper
}

func (t *classifyingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	res, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	res.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnauthorized, res.StatusCode)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, fmt.Errorf("%w: HTTP %d", ErrAPI, res.StatusCode)
	}

	if msgs, ok := unauthenticated(raw); ok {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, strings.Join(msgs, "; "))
	}

	res.Body = io.NopCloser(bytes.NewReader(raw))
	res.ContentLength = int64(len(raw))
	return res, nil
}

// unauthenticated reports whether any GraphQL error in body carries the
// UNAUTHENTICATED code, returning all error messages when it does.
func unauthenticated(body []byte) ([]string, bool) {
	var envelope struct {
		Errors []graphqlError `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false
	}

	found := false
	msgs := make([]string, 0, len(envelope.Errors))
	for _, e := range envelope.Errors {
		msgs = append(msgs, e.Message)
		if e.Extensions.Code == "UNAUTHENTICATED" {
			found = true
		}
	}
	return msgs, found
}
