package main

import (
	"context"
	"fmt"

	_ "github.com/gripid/tracker-core/migrations"

	"github.com/gripid/tracker-core/internal/audit"
	"github.com/gripid/tracker-core/internal/device"
	"github.com/gripid/tracker-core/internal/infrastructure/config"
	"github.com/gripid/tracker-core/internal/infrastructure/database"
	"github.com/gripid/tracker-core/internal/infrastructure/logging"
	"github.com/gripid/tracker-core/internal/tracker"
)

// openTracker loads the config, opens and migrates the database, and
// returns a tracker service over it. Logs go to stderr so command output
// stays clean. The returned func closes the database.
func openTracker(ctx context.Context, env *cliEnv) (*tracker.Service, func(), error) {
	cfg, err := config.Load(env.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log := logging.NewWithWriter(cfg.Logging, version, env.stderr)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	closeDB := func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}

	if err := db.Migrate(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	svc := tracker.NewService(
		device.NewSQLiteRepository(db.DB),
		audit.NewSQLiteRepository(db.DB),
		tracker.Options{
			DefaultPageSize: cfg.API.DefaultPageSize,
			MaxPageSize:     cfg.API.MaxPageSize,
		},
	)
	svc.SetLogger(log)
	return svc, closeDB, nil
}
