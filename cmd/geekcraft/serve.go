// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xelfe/geekcraft/internal/auth"
	"github.com/xelfe/geekcraft/internal/auth/memory"
	authmongo "github.com/xelfe/geekcraft/internal/auth/mongo"
	authredis "github.com/xelfe/geekcraft/internal/auth/redis"
	"github.com/xelfe/geekcraft/internal/config"
	"github.com/xelfe/geekcraft/internal/game"
	"github.com/xelfe/geekcraft/internal/logging"
	"github.com/xelfe/geekcraft/internal/observability"
	"github.com/xelfe/geekcraft/internal/scripting"
	"github.com/xelfe/geekcraft/internal/server"
)

// shutdownTimeout bounds graceful shutdown of the HTTP listeners.
const shutdownTimeout = 5 * time.Second

// sessionSweepInterval is how often expired sessions are purged from
// stores without native TTL eviction.
const sessionSweepInterval = time.Hour

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		Long: `Start the game server: the public HTTP/WebSocket listener, the
world tick loop, and the optional metrics endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	// Flag names mirror configuration keys so posflag can layer them
	// directly over file and environment values.
	defaults := config.Default()
	cmd.Flags().String("server.addr", defaults.Server.Addr, "HTTP/WebSocket listen address")
	cmd.Flags().String("metrics.addr", defaults.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("auth.backend", defaults.Auth.Backend, "credential store backend (memory, redis, or mongodb)")
	cmd.Flags().String("redis.url", defaults.Redis.URL, "Redis connection URL")
	cmd.Flags().String("mongo.url", defaults.Mongo.URL, "MongoDB connection URL")
	cmd.Flags().String("mongo.database", defaults.Mongo.Database, "MongoDB database name")
	cmd.Flags().String("game.save_dir", defaults.Game.SaveDir, "campaign save directory")
	cmd.Flags().Int("game.tick_rate", defaults.Game.TickRate, "world ticks per second")
	cmd.Flags().String("log.format", defaults.Log.Format, "log format (json or text)")

	return cmd
}

// runServeWithDeps starts the game server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = newStore
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.Setup("geekcraft", version, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting server",
		"addr", cfg.Server.Addr,
		"backend", cfg.Auth.Backend,
		"log_format", cfg.Log.Format,
	)

	store, err := deps.StoreFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer closeCancel()
		if closeErr := store.Close(closeCtx); closeErr != nil {
			logger.Warn("error closing credential store", "error", closeErr)
		}
	}()

	logger.Info("credential store ready", "backend", cfg.Auth.Backend)

	authService, err := auth.NewServiceWithLogger(store, auth.NewBcryptHasher(), logger)
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	world := game.NewWorldWithLogger(logger)
	campaigns, err := game.NewCampaignManagerWithLogger(cfg.Game.SaveDir, logger)
	if err != nil {
		return fmt.Errorf("failed to create campaign manager: %w", err)
	}
	sandbox := scripting.NewSandbox()

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool { return true })
		metrics = obsServer.Metrics()
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return fmt.Errorf("failed to start observability server: %w", obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	srv, err := server.New(server.Options{
		Addr:        cfg.Server.Addr,
		AuthService: authService,
		World:       world,
		Campaigns:   campaigns,
		Sandbox:     sandbox,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srvErrChan, err := srv.Start()
	if err != nil {
		if obsServer != nil {
			stopObservability(obsServer, logger)
		}
		return fmt.Errorf("failed to start server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, srvErrChan, "http")

	// World tick loop; running campaign runs advance alongside.
	go world.Run(ctx, cfg.Game.TickRate, campaigns)

	// Periodic cleanup for stores without native TTL eviction.
	go sweepSessions(ctx, store, sessionSweepInterval, logger)

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Server started")
	logger.Info("server ready", "addr", srv.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping server", "error", err)
	}
	if obsServer != nil {
		stopObservability(obsServer, logger)
	}

	logger.Info("shutdown complete")
	return nil
}

// newStore opens the credential store selected by the configuration.
func newStore(ctx context.Context, cfg *config.Config) (auth.Store, error) {
	switch cfg.Auth.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendRedis:
		return authredis.NewStore(ctx, cfg.Redis.URL)
	case config.BackendMongoDB:
		return authmongo.NewStore(ctx, cfg.Mongo.URL, cfg.Mongo.Database)
	default:
		return nil, fmt.Errorf("unknown auth backend %q", cfg.Auth.Backend)
	}
}

// stopObservability stops the observability server with a bounded timeout.
func stopObservability(obsServer ObservabilityServer, logger *slog.Logger) {
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := obsServer.Stop(stopCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

// sweepSessions periodically purges expired sessions until ctx is done.
func sweepSessions(ctx context.Context, store auth.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := store.DeleteExpiredSessions(ctx)
			if err != nil {
				logger.Warn("session sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("purged expired sessions", "count", deleted)
			}
		}
	}
}

// monitorServerErrors cancels the process context when a background
// server reports an error. A closed channel means a clean stop.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
