// GripID tracker server.
//
// gripid serves the device registry and audit trail over HTTP. It opens
// the SQLite database, applies migrations, connects the optional MQTT and
// InfluxDB event sinks, and runs the API server and event dispatcher
// until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/gripid/tracker-core/migrations"

	"github.com/gripid/tracker-core/internal/api"
	"github.com/gripid/tracker-core/internal/audit"
	"github.com/gripid/tracker-core/internal/device"
	"github.com/gripid/tracker-core/internal/events"
	"github.com/gripid/tracker-core/internal/infrastructure/config"
	"github.com/gripid/tracker-core/internal/infrastructure/database"
	"github.com/gripid/tracker-core/internal/infrastructure/influxdb"
	"github.com/gripid/tracker-core/internal/infrastructure/logging"
	"github.com/gripid/tracker-core/internal/infrastructure/mqtt"
	"github.com/gripid/tracker-core/internal/tracker"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// eventBufferSize is the number of undelivered events held before new ones
// are dropped.
const eventBufferSize = 1024

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting GripID tracker",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
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
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	hub := api.NewHub(cfg.WebSocket, log)
	sinks := []events.Sink{events.NewHubSink(hub)}

	mqttClient, err := connectMQTT(cfg.MQTT, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		sinks = append(sinks, events.NewMQTTSink(mqttClient, mqttClient.Topics()))
	}

	influxClient, err := connectInfluxDB(cfg.InfluxDB, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		sinks = append(sinks, events.NewInfluxSink(influxClient))
	}

	dispatcher := events.NewDispatcher(eventBufferSize, sinks...)
	dispatcher.SetLogger(log)

	svc := tracker.NewService(
		device.NewSQLiteRepository(db.DB),
		audit.NewSQLiteRepository(db.DB),
		tracker.Options{
			DefaultPageSize: cfg.API.DefaultPageSize,
			MaxPageSize:     cfg.API.MaxPageSize,
			Notifier:        dispatcher,
		},
	)
	svc.SetLogger(log)

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Tracker:  svc,
		DB:       db,
		MQTT:     mqttClient,
		InfluxDB: influxClient,
		Events:   dispatcher,
		Hub:      hub,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		if startErr := server.Start(gctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		<-gctx.Done()
		return server.Close()
	})

	log.Info("initialisation complete, waiting for shutdown signal")

	if err := g.Wait(); err != nil {
		return err
	}

	if dropped := dispatcher.Dropped(); dropped > 0 {
		log.Warn("events dropped during run", "count", dropped)
	}
	log.Info("GripID tracker stopped")
	return nil
}

// getConfigPath returns the config file path from GRIPID_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv("GRIPID_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT connects the event broker when enabled. A broker that is
// down at startup is not fatal: the tracker runs without MQTT events.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg)
	if err != nil {
		if errors.Is(err, mqtt.ErrConnectionFailed) {
			log.Warn("MQTT unavailable, continuing without device events", "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client, nil
}

// connectInfluxDB connects the status telemetry store when enabled.
func connectInfluxDB(cfg config.InfluxDBConfig, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}

	client, err := influxdb.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.URL,
		"org", cfg.Org,
		"bucket", cfg.Bucket,
	)
	return client, nil
}
