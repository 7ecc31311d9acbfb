// tibber_refiner fetches hourly electricity prices from Tibber, stores them
// in InfluxDB and writes per-hour decision features ("refined" points) for
// home automation rules.
//
// Configuration comes from the environment; a YAML file can be layered
// underneath by setting TIBBER_REFINER_CONFIG.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/casamack/tibber-refiner/migrations"

	"github.com/casamack/tibber-refiner/internal/api"
	"github.com/casamack/tibber-refiner/internal/credentials"
	"github.com/casamack/tibber-refiner/internal/infrastructure/config"
	"github.com/casamack/tibber-refiner/internal/infrastructure/database"
	"github.com/casamack/tibber-refiner/internal/infrastructure/influxdb"
	"github.com/casamack/tibber-refiner/internal/infrastructure/logging"
	"github.com/casamack/tibber-refiner/internal/infrastructure/mqtt"
	"github.com/casamack/tibber-refiner/internal/journal"
	"github.com/casamack/tibber-refiner/internal/metrics"
	"github.com/casamack/tibber-refiner/internal/pipeline"
	"github.com/casamack/tibber-refiner/internal/refiner"
	"github.com/casamack/tibber-refiner/internal/scheduler"
	"github.com/casamack/tibber-refiner/internal/tibber"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// configEnv names the optional YAML configuration file.
const configEnv = "TIBBER_REFINER_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting tibber_refiner",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := os.Getenv(configEnv)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	defer func() {
		//nolint:errcheck // nothing to report to once the log file is gone
		log.Close()
	}()
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"update_time", cfg.Schedule.UpdateTime,
		"retries", cfg.Schedule.Retries,
	)

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}
	hour, minute, err := scheduler.ParseUpdateTime(cfg.Schedule.UpdateTime)
	if err != nil {
		return fmt.Errorf("parsing update time: %w", err)
	}

	// Journal database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	runJournal := journal.New(db.DB)
	m := metrics.New()

	// InfluxDB
	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	defer func() {
		log.Info("closing InfluxDB connection")
		if closeErr := influxClient.Close(); closeErr != nil {
			log.Error("error closing InfluxDB", "error", closeErr)
		}
	}()
	log.Info("InfluxDB connected", "addr", cfg.InfluxDB.Addr, "database", cfg.InfluxDB.Database)

	// MQTT is optional; the service keeps refining without a broker.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, continuing without publishing", "error", err)
			mqttClient = nil
		} else {
			mqttClient.SetLogger(log.With("component", "mqtt"))
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			log.Info("MQTT connected",
				"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
				"client_id", cfg.MQTT.Broker.ClientID,
			)
		}
	}

	deps := pipeline.Deps{
		Token:      tokenResolver(cfg, log),
		NewFetcher: fetcherFactory(cfg),
		Prices:     influxClient,
		Refiner:    refiner.New(influxClient, influxClient, loc, log.With("component", "refiner")),
		Journal:    runJournal,
		Metrics:    m,
		Logger:     log.With("component", "pipeline"),
		Location:   loc,
	}
	if mqttClient != nil {
		deps.Publisher = mqttClient
	}
	pipe := pipeline.New(deps, pipeline.RetryPolicy{
		Retries:         cfg.Schedule.Retries,
		InitialInterval: time.Second,
	})

	sched := scheduler.New(scheduler.Config{
		Hour:       hour,
		Minute:     minute,
		RunOnStart: cfg.Schedule.RunOnStart,
		Location:   loc,
	}, pipe)
	sched.SetLogger(log.With("component", "scheduler"))
	sched.SetMetrics(m)
	sched.SetHistory(runJournal)

	if mqttClient != nil {
		sched.SetCurrentPublisher(runJournal, mqttClient)
		if subErr := mqttClient.OnRefresh(func() {
			sched.Trigger(scheduler.Request{Trigger: journal.TriggerMQTT})
		}); subErr != nil {
			log.Warn("failed to subscribe to refresh command", "error", subErr)
		}
	}

	if startErr := sched.Start(ctx); startErr != nil {
		return fmt.Errorf("starting scheduler: %w", startErr)
	}
	defer sched.Stop()

	if cfg.API.Enabled {
		checks := []api.Check{
			{Name: "database", Checker: db},
			{Name: "influxdb", Checker: influxClient},
		}
		if mqttClient != nil {
			checks = append(checks, api.Check{Name: "mqtt", Checker: mqttClient})
		}

		server, apiErr := api.New(api.Deps{
			Config:    cfg.API,
			Logger:    log.With("component", "api"),
			Store:     runJournal,
			Scheduler: sched,
			Metrics:   m,
			Checks:    checks,
			Location:  loc,
			Version:   version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("tibber_refiner running")
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// tokenResolver returns the lazy token lookup used by the pipeline.
func tokenResolver(cfg *config.Config, log *logging.Logger) pipeline.TokenFunc {
	return func(ctx context.Context) (string, error) {
		token, source, err := credentials.Resolve(ctx, credentials.Options{
			Token:       cfg.Tibber.Token,
			File:        cfg.Tibber.CredentialsFile,
			Interactive: cfg.Tibber.Interactive,
		})
		if err != nil {
			if !errors.Is(err, credentials.ErrNoToken) {
				log.Warn("resolving tibber token failed", "error", err)
			}
			return "", err
		}
		log.Info("tibber token resolved", "source", source)
		return token, nil
	}
}

// fetcherFactory builds Tibber clients for resolved tokens.
func fetcherFactory(cfg *config.Config) pipeline.FetcherFunc {
	return func(token string) pipeline.PriceFetcher {
		return tibber.NewClient(tibber.Config{
			Endpoint:  cfg.Tibber.Endpoint,
			Token:     token,
			HomeID:    cfg.Tibber.HomeID,
			Timeout:   cfg.GetTibberTimeout(),
			UserAgent: "tibber_refiner/" + version,
		})
	}
}
