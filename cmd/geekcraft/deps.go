package main

import (
	"context"

	"github.com/xelfe/geekcraft/internal/auth"
	"github.com/xelfe/geekcraft/internal/config"
	"github.com/xelfe/geekcraft/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreFactory creates the credential store selected by the
	// configuration.
	// Default: newStore
	StoreFactory func(ctx context.Context, cfg *config.Config) (auth.Store, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// ObservabilityServer interface wraps the methods used by serve from
// observability.Server.
type ObservabilityServer interface {
	Metrics() *observability.Metrics
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
