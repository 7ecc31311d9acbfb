// Package pipeline runs one fetch-and-refine cycle.
//
// A run fetches prices from Tibber, stores them in InfluxDB, refines the
// requested day, caches the refined hours in the journal and publishes them
// over MQTT. Failed attempts are retried with exponential backoff; every
// attempt is recorded on the same journal run.
//
// Without a Tibber token the pipeline runs refine-only: it skips the fetch
// and refines whatever prices are already stored.
package pipeline
