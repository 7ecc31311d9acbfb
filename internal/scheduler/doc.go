// Package scheduler decides when the refining pipeline runs.
//
// The Scheduler runs the pipeline once at start (optional), then every day
// at the configured update time. Manual runs requested through Trigger are
// executed on the same goroutine, so runs never overlap; a request made
// while another is pending is dropped.
//
// When a publisher is configured, the refined values of the current hour are
// published at the start of every hour and after every run.
package scheduler
