package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/drugshield-risk-server/internal/api"
	"github.com/drugshield-risk-server/internal/config"
	"github.com/drugshield-risk-server/internal/database"
	"github.com/drugshield-risk-server/internal/domain"
	"github.com/drugshield-risk-server/internal/history"
	"github.com/drugshield-risk-server/internal/repository"
	"github.com/drugshield-risk-server/internal/scoring"
	"github.com/drugshield-risk-server/internal/service"
	"github.com/drugshield-risk-server/pkg/external"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host":           cfg.Server.Host,
		"port":           cfg.Server.Port,
		"engine_version": scoring.EngineVersion,
	}).Info("Starting DrugShield risk server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence: Postgres when enabled, otherwise the local sqlite log.
	store, closeStore, err := buildStore(ctx, configManager, logger)
	if err != nil {
		log.Fatalf("Failed to initialize assessment store: %v", err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	// Optional shared Redis cache for terminology responses.
	var cache *external.CacheClient
	if cfg.Cache.RedisEnabled {
		cache, err = external.NewCacheClient(cfg.Cache)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.Close()
	}

	client := external.NewResilientClient(cfg.ExternalAPI, cache, logger)

	resolver, err := service.NewMedicationResolver(client, cfg.Cache.MemoryMaxItems, logger)
	if err != nil {
		log.Fatalf("Failed to create medication resolver: %v", err)
	}

	engine, err := scoring.NewEngine(configManager.BuildPolicy(), logger)
	if err != nil {
		log.Fatalf("Failed to create scoring engine: %v", err)
	}

	analyzer := service.NewAnalyzer(resolver, client, client, engine, store, logger)
	server := api.NewServer(cfg, analyzer, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}

// buildStore wires assessment persistence. Postgres takes precedence; the
// sqlite history log is the fallback; both disabled means no persistence.
func buildStore(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) (service.AssessmentStore, func(), error) {
	cfg := configManager.GetConfig()

	if cfg.Database.Enabled {
		db, err := database.NewConnection(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}

		runner, err := database.NewMigrationRunner(
			configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if err := runner.Up(); err != nil {
			runner.Close()
			db.Close()
			return nil, nil, err
		}
		runner.Close()

		repo := repository.NewAssessmentRepository(db.Pool, logger)
		return repo, db.Close, nil
	}

	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("path", cfg.History.Path).Info("Using local assessment history")
		return store, func() { store.Close() }, nil
	}

	logger.Info("Assessment persistence disabled")
	return nil, nil, nil
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.Output == "stderr" {
		logger.SetOutput(os.Stderr)
	} else {
		logger.SetOutput(os.Stdout)
	}

	return logger
}
