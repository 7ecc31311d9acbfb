package tibber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/machinebox/graphql"
)

const (
	// DefaultEndpoint is the public Tibber GraphQL endpoint.
	DefaultEndpoint = "https://api.tibber.com/v1-beta/gql"

	defaultTimeout  = 30 * time.Second
	maxResponseSize = 1 << 20

	priceQuery = `{
  viewer {
    homes {
      id
      currentSubscription {
        priceInfo {
          today { total energy tax startsAt level currency }
          tomorrow { total energy tax startsAt level currency }
        }
      }
    }
  }
}`
)

// Config contains Tibber client settings.
type Config struct {
	Endpoint string
	Token    string
	// HomeID selects a home; empty means the first home with a subscription.
	HomeID  string
	Timeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	UserAgent  string
}

// Client queries the Tibber API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	gql        *graphql.Client
}

// NewClient creates a Client, filling in defaults for empty settings.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "tibber_refiner"
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		httpClient = &copied
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	httpClient.Transport = &classifyingTransport{base: base}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		gql:        graphql.NewClient(cfg.Endpoint, graphql.WithHTTPClient(httpClient)),
	}
}

// FetchPrices returns today's and tomorrow's prices of the selected home.
//
// Returns:
//   - *PriceInfo: Prices of the home
//   - error: ErrUnauthorized, ErrAPI or ErrNoHome (wrapped), or a transport error
func (c *Client) FetchPrices(ctx context.Context) (*PriceInfo, error) {
	if c.cfg.Token == "" {
		return nil, ErrNoToken
	}

	data, err := c.query(ctx, priceQuery)
	if err != nil {
		return nil, err
	}

	for _, h := range data.Viewer.Homes {
		if c.cfg.HomeID != "" && h.ID != c.cfg.HomeID {
			continue
		}
		if h.CurrentSubscription == nil || h.CurrentSubscription.PriceInfo == nil {
			continue
		}
		pi := h.CurrentSubscription.PriceInfo
		return &PriceInfo{HomeID: h.ID, Today: pi.Today, Tomorrow: pi.Tomorrow}, nil
	}

	if c.cfg.HomeID != "" {
		return nil, fmt.Errorf("%w: home %s", ErrNoHome, c.cfg.HomeID)
	}
	return nil, ErrNoHome
}

func (c *Client) query(ctx context.Context, query string) (*viewerData, error) {
	req := graphql.NewRequest(query)
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	// A JSON null "data" leaves the pointer nil.
	var data *viewerData
	err := c.gql.Run(ctx, req, &data)

	var urlErr *url.Error
	switch {
	case err == nil:
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrAPI):
		return nil, unwrapURLError(err)
	case ctx.Err() != nil:
		return nil, fmt.Errorf("tibber request failed: %w", ctx.Err())
	case errors.As(err, &urlErr):
		return nil, fmt.Errorf("tibber request failed: %w", err)
	default:
		// GraphQL errors and undecodable bodies.
		return nil, fmt.Errorf("%w: %s", ErrAPI, strings.TrimPrefix(err.Error(), "graphql: "))
	}

	if data == nil {
		return nil, fmt.Errorf("%w: empty response", ErrAPI)
	}
	return data, nil
}

// unwrapURLError strips the method and URL that net/http adds to transport errors.
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
