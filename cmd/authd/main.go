// authd is a minimal authentication backend.
//
// It serves registration, password login, guest sessions, and JWT
// access/refresh token issuance over a REST API backed by SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/bikeviz/authd/migrations"

	"github.com/bikeviz/authd/internal/api"
	"github.com/bikeviz/authd/internal/audit"
	"github.com/bikeviz/authd/internal/auth"
	"github.com/bikeviz/authd/internal/infrastructure/config"
	"github.com/bikeviz/authd/internal/infrastructure/database"
	"github.com/bikeviz/authd/internal/infrastructure/logging"
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

var configFlag = flag.String("config", "", "path to configuration file")

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting authd",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

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

	codec, err := auth.NewCodec(cfg.Security.JWT)
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}

	users := auth.NewSQLiteUserRepository(db)
	auditRepo := audit.NewSQLiteRepository(db.DB)
	service := auth.NewService(users, codec, auditRepo, log)
	resolver := auth.NewResolver(codec, users)

	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	log.Info("user store ready", "users", count)

	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Service:  service,
		Resolver: resolver,
		Users:    users,
		Audit:    auditRepo,
		AppName:  cfg.App.Name,
		Env:      cfg.App.Env,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server listening", "host", cfg.API.Host, "port", cfg.API.Port)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// getConfigPath returns the configuration file path. The -config flag
// wins over the AUTHD_CONFIG environment variable, which wins over the
// default.
func getConfigPath() string {
	if !flag.Parsed() {
		flag.Parse()
	}

	if *configFlag != "" {
		return *configFlag
	}
	if path := os.Getenv("AUTHD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
