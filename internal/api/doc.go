// Package api implements the HTTP API of tibber_refiner.
//
// This package provides:
//   - Health of the journal database, InfluxDB and the MQTT broker
//   - Run history from the journal and manual run requests
//   - Cached refined hours per day and per hour
//   - Prometheus metrics on /metrics
//
// # Graceful Degradation
//
// Every dependency except the journal is optional. Without a scheduler,
// POST /api/v1/runs answers 503; without metrics, /metrics is not mounted.
package api
