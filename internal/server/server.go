// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GeekCraft Contributors

// Package server is the public HTTP and WebSocket boundary. It converts
// transport requests into auth service and game calls and converts errors
// into structured JSON responses, never leaking internal detail.
package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/xelfe/geekcraft/internal/auth"
	"github.com/xelfe/geekcraft/internal/game"
	"github.com/xelfe/geekcraft/internal/observability"
	"github.com/xelfe/geekcraft/internal/scripting"
)

// Server serves the REST API and the websocket gate on one listener.
type Server struct {
	addr       string
	engine     *gin.Engine
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool

	authService *auth.Service
	world       *game.World
	campaigns   *game.CampaignManager
	sandbox     *scripting.Sandbox
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// Options configures a Server. Metrics and Logger are optional.
type Options struct {
	Addr        string
	AuthService *auth.Service
	World       *game.World
	Campaigns   *game.CampaignManager
	Sandbox     *scripting.Sandbox
	Metrics     *observability.Metrics
	Logger      *slog.Logger
}

// New creates a Server. Returns an error if a required dependency is nil.
func New(opts Options) (*Server, error) {
	if opts.Addr == "" {
		return nil, oops.Errorf("listen address is required")
	}
	if opts.AuthService == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if opts.World == nil {
		return nil, oops.Errorf("world is required")
	}
	if opts.Campaigns == nil {
		return nil, oops.Errorf("campaign manager is required")
	}
	if opts.Sandbox == nil {
		return nil, oops.Errorf("sandbox is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		addr:        opts.Addr,
		authService: opts.AuthService,
		world:       opts.World,
		campaigns:   opts.Campaigns,
		sandbox:     opts.Sandbox,
		metrics:     opts.Metrics,
		logger:      logger,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.registerRoutes(engine)
	s.engine = engine

	return s, nil
}

func (s *Server) registerRoutes(engine *gin.Engine) {
	engine.Use(BodyLimit(MaxBodyBytes))

	engine.POST("/api/auth/register", s.handleRegister)
	engine.POST("/api/auth/login", s.handleLogin)
	engine.GET("/ws", s.handleWebsocket)

	protected := engine.Group("/api", RequireAuth(s.authService, s.metrics, s.logger))
	protected.POST("/auth/logout", s.handleLogout)
	protected.POST("/submit", s.handleSubmit)
	protected.GET("/players", s.handlePlayers)
	protected.GET("/gamestate", s.handleGameState)

	protected.POST("/zones/generate", s.handleGenerateZone)
	protected.GET("/zones", s.handleListZones)
	protected.GET("/zones/:id", s.handleGetZone)

	protected.POST("/campaign/start", s.handleStartRun)
	protected.POST("/campaign/stop", s.handleStopRun)
	protected.POST("/campaign/save", s.handleSaveRun)
	protected.POST("/campaign/load", s.handleLoadRun)
	protected.GET("/campaign/state", s.handleRunState)
	protected.GET("/campaign/saves", s.handleListSaves)
}

// Handler exposes the route tree. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start begins serving. It returns an error channel that receives any
// serve failure after startup; the channel closes on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down. In-flight requests get until the
// context deadline to finish.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_server").Wrap(err)
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Addr returns the bound listen address, or empty if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
