package influxdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	influxdb1 "github.com/influxdata/influxdb1-client/v2"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/casamack/tibber-refiner/internal/infrastructure/config"
)

// Default timeouts for InfluxDB operations.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
)

// Client wraps the InfluxDB client for the price and refined measurements.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Writes are blocking; each call returns once the server accepted the points.
//   - Reads go through the 1.x InfluxQL client, writes through the v2 compatibility API.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	reader   influxdb1.Client
	cfg      config.InfluxDBConfig

	connected bool
	mu        sync.RWMutex
}

// Connect creates the client and verifies the server answers /ping.
//
// Parameters:
//   - ctx: Context bounding the connectivity check
//   - cfg: InfluxDB configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrConnectionFailed (wrapped) if the server is unreachable
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	cfg.Addr = strings.TrimSuffix(cfg.Addr, "/")

	// #nosec G115 -- timeout is positive
	client := influxdb2.NewClientWithOptions(
		cfg.Addr,
		authToken(cfg),
		influxdb2.DefaultOptions().
			SetHTTPRequestTimeout(uint(timeout/time.Second)).
			SetApplicationName("tibber_refiner"),
	)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	reader, err := influxdb1.NewHTTPClient(influxdb1.HTTPConfig{
		Addr:      cfg.Addr,
		Username:  cfg.Username,
		Password:  cfg.Password,
		UserAgent: "tibber_refiner",
		Timeout:   timeout,
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: creating query client: %w", ErrConnectionFailed, err)
	}

	return &Client{
		client:    client,
		writeAPI:  client.WriteAPIBlocking("", bucket(cfg)),
		reader:    reader,
		cfg:       cfg,
		connected: true,
	}, nil
}

// authToken builds the 1.x compatibility token. An empty token disables auth.
func authToken(cfg config.InfluxDBConfig) string {
	if cfg.Username == "" && cfg.Password == "" {
		return ""
	}
	return cfg.Username + ":" + cfg.Password
}

// bucket maps database and retention policy to a v2 bucket name.
func bucket(cfg config.InfluxDBConfig) string {
	if cfg.RetentionPolicy == "" {
		return cfg.Database
	}
	return cfg.Database + "/" + cfg.RetentionPolicy
}

// Close releases the underlying client. Safe to call more than once.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	c.client.Close()
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
