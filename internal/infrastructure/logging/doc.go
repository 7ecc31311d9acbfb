// Package logging provides structured logging for tibber_refiner.
//
// This package wraps Go's standard log/slog package and writes to a
// size-rotated file (the container mounts /var/log as a named volume),
// to stdout/stderr, or to both.
//
// # Configuration
//
//	logging:
//	  level: "info"      # trace, debug, info, warn, error (LOG_LEVEL)
//	  format: "text"     # text, json (LOG_FORMAT)
//	  output: "both"     # file, stdout, stderr, both (LOG_OUTPUT)
//	  file:
//	    path: "/var/log/tibber_refiner.log"
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("prices written", "date", "2026-10-18", "points", 24)
//
// # Security
//
// Never log the Tibber token or database passwords.
package logging
