package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexusdb/nexusdb/internal/api"
	"github.com/nexusdb/nexusdb/internal/auth"
	"github.com/nexusdb/nexusdb/internal/config"
	"github.com/nexusdb/nexusdb/internal/crypto"
	"github.com/nexusdb/nexusdb/internal/instance"
	"github.com/nexusdb/nexusdb/internal/orchestrator"
	"github.com/nexusdb/nexusdb/internal/provider"
	"github.com/nexusdb/nexusdb/internal/reconciler"
	"github.com/nexusdb/nexusdb/internal/runtime"
	"github.com/nexusdb/nexusdb/internal/store"
	"github.com/nexusdb/nexusdb/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to metadata store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	vault, err := crypto.NewVault(cfg.EncryptionKey, cfg.EncryptionIV)
	if err != nil {
		slog.Error("failed to initialize credential vault", "error", err)
		os.Exit(1)
	}

	dockerRuntime, err := runtime.NewDockerRuntime()
	if err != nil {
		slog.Error("failed to initialize container runtime", "error", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(cfg, dockerRuntime)
	if err != nil {
		slog.Error("failed to build provider registry", "error", err)
		os.Exit(1)
	}

	instanceRepo := instance.NewRepository(db.Pool())
	userRepo := user.NewRepository(db.Pool())

	authService := auth.NewService(userRepo, cfg.JWTSecret,
		time.Duration(cfg.JWTExpiryMinutes)*time.Minute, cfg.BcryptCost)
	if err := authService.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		slog.Error("failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}

	orch := orchestrator.NewService(instanceRepo, userRepo, registry, vault,
		cfg.ContainerPrefix, slog.Default())

	rec := reconciler.New(instanceRepo, dockerRuntime,
		time.Duration(cfg.ReconcilerIntervalSeconds)*time.Second)
	go rec.Start(ctx)

	router := api.NewRouter(api.RouterDeps{
		Auth:      authService,
		Instances: orch,
		DBPinger:  db,
		Runtime:   dockerRuntime,
		Version:   cfg.Version,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting nexusdb server",
			"port", cfg.Port,
			"version", cfg.Version,
			"engines", registry.Engines())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func buildRegistry(cfg *config.Config, rt runtime.Runtime) (*provider.Registry, error) {
	opts := provider.Options{
		Runtime:       rt,
		Host:          cfg.ContainerHost,
		DataDir:       cfg.DataDir,
		Memory:        cfg.MemoryLimitMB * 1024 * 1024,
		CPUQuota:      cfg.CPUQuota,
		ReadyInterval: time.Duration(cfg.ReadyIntervalSeconds) * time.Second,
		ReadyAttempts: cfg.ReadyAttempts,
	}

	registry := provider.NewRegistry()
	providers := []provider.Provider{
		provider.NewMySQLProvider(opts),
		provider.NewPostgreSQLProvider(opts),
		provider.NewMongoDBProvider(opts),
		provider.NewSQLServerProvider(opts),
		provider.NewRedisProvider(opts),
	}
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
