package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)

	"github.com/ekaya-inc/ekaya-engine/pkg/audit"
	"github.com/ekaya-inc/ekaya-engine/pkg/config"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernel"
	"github.com/ekaya-inc/ekaya-engine/pkg/kernelapi"
	"github.com/ekaya-inc/ekaya-engine/pkg/mcp"
	mcpauth "github.com/ekaya-inc/ekaya-engine/pkg/mcp/auth"
	mcptools "github.com/ekaya-inc/ekaya-engine/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-engine/pkg/persistence"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Env == "local" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("persistence_driver", cfg.Persistence.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := kernel.NewStore()

	var pool *pgxpool.Pool
	var migrationDB *sql.DB
	if cfg.Persistence.DSN != "" {
		pool, migrationDB = mustConnectPersistence(ctx, cfg, logger)
		defer pool.Close()
		defer func() { _ = migrationDB.Close() }()

		bridge := persistence.New(pool, logger)
		if err := bridge.Load(ctx, store); err != nil {
			logger.Fatal("Failed to load persisted kernel snapshot", zap.Error(err))
		}
		logger.Info("Kernel snapshot loaded from persistence")
	} else {
		logger.Warn("No persistence DSN configured; running with an in-memory-only store")
	}

	auditor := audit.NewMutationAuditor(logger)
	facade := kernelapi.New(store, auditor, logger)
	if err := facade.Bootstrap(); err != nil {
		logger.Fatal("Failed to bootstrap relationship types", zap.Error(err))
	}

	mcpServer := mcp.NewServer("probabilistic-concept-base", cfg.Version, logger)
	registerTools(mcpServer, facade, logger)

	authMiddleware := mcpauth.NewMiddleware([]byte(cfg.Auth.SigningKey), cfg.Auth.EnableVerification, logger)

	mux := http.NewServeMux()
	mux.Handle("/mcp", authMiddleware.RequireAuth()(mcpServer.NewStreamableHTTPServer()))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf("%s:%s", cfg.BindAddr, cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting MCP server", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("HTTP server failed", zap.Error(err))
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if pool != nil {
		bridge := persistence.New(pool, logger)
		if err := bridge.Save(shutdownCtx, store); err != nil {
			logger.Error("Failed to save kernel snapshot", zap.Error(err))
		} else {
			logger.Info("Kernel snapshot saved to persistence")
		}
	}

	logger.Info("Shutdown complete")
}

func registerTools(s *mcp.Server, facade *kernelapi.Facade, logger *zap.Logger) {
	mcptools.RegisterConceptTools(s.MCP(), &mcptools.ConceptToolDeps{Facade: facade, Logger: logger})
	mcptools.RegisterRelationshipTypeTools(s.MCP(), &mcptools.RelationshipTypeToolDeps{Facade: facade, Logger: logger})
	mcptools.RegisterRelationshipTools(s.MCP(), &mcptools.RelationshipToolDeps{Facade: facade, Logger: logger})
	mcptools.RegisterInferenceTools(s.MCP(), &mcptools.InferenceToolDeps{Facade: facade, Logger: logger})
	mcptools.RegisterConnectivityTools(s.MCP(), &mcptools.ConnectivityToolDeps{Facade: facade, Logger: logger})
}

// mustConnectPersistence opens both the pgxpool the bridge reads/writes
// through and a database/sql handle for golang-migrate, which does not
// speak pgx's native pool interface.
func mustConnectPersistence(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, *sql.DB) {
	maxConnLifetime, err := time.ParseDuration(cfg.Persistence.MaxConnLifetime)
	if err != nil {
		logger.Fatal("Invalid persistence.max_conn_lifetime", zap.Error(err))
	}
	maxConnIdleTime, err := time.ParseDuration(cfg.Persistence.MaxConnIdleTime)
	if err != nil {
		logger.Fatal("Invalid persistence.max_conn_idle_time", zap.Error(err))
	}

	pool, err := persistence.Connect(ctx, persistence.PoolConfig{
		DSN:             cfg.Persistence.DSN,
		MaxConnections:  cfg.Persistence.MaxConnections,
		MaxConnLifetime: maxConnLifetime,
		MaxConnIdleTime: maxConnIdleTime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to persistence database", zap.Error(err))
	}

	migrationDB, err := sql.Open("pgx", cfg.Persistence.DSN)
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := persistence.Migrate(migrationDB, cfg.Persistence.MigrationsPath); err != nil {
		logger.Fatal("Failed to run persistence migrations", zap.Error(err))
	}

	return pool, migrationDB
}
