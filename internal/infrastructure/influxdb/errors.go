package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, influxdb.ErrNoData) {
//	    // prices for the day have not been written yet
//	}
var (
	// ErrNotConnected indicates the client is closed or was never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed indicates a blocking write was rejected.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrQueryFailed indicates an InfluxQL query returned an error.
	ErrQueryFailed = errors.New("influxdb: query failed")

	// ErrNoData indicates a query matched no series.
	ErrNoData = errors.New("influxdb: no data")
)
