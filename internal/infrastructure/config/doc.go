// Package config handles loading and validating tibber_refiner configuration.
//
// This package manages:
//   - Default values matching the container deployment
//   - An optional YAML file (TIBBER_REFINER_CONFIG)
//   - Environment variable overrides (INFLUXDB_ADDR, RETRIES, ...)
//   - Validation of required fields
//
// Security Considerations:
//   - The Tibber token and InfluxDB/MQTT passwords should come from the
//     environment or the credentials file, never from a committed YAML file
//
// Usage:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.InfluxDB.Addr)
package config
