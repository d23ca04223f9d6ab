// Package app assembles the application from its components.
//
// Setup builds everything in dependency order: tracing, storage, the
// Genkit runtime and provider plugins, the knowledge index and ingest
// pipeline, the fleet data source, the tool registry, and the agent.
// App holds the wired components; Close releases them in reverse order.
// Entry points build their own surface (the HTTP server) on top.
package app

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cargotrail/cargotrail/internal/agent"
	"github.com/cargotrail/cargotrail/internal/config"
	"github.com/cargotrail/cargotrail/internal/knowledge"
	"github.com/cargotrail/cargotrail/internal/log"
	"github.com/cargotrail/cargotrail/internal/session"
	"github.com/cargotrail/cargotrail/internal/tools"
)

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	// Pool is nil when the memory index backend is configured.
	Pool *pgxpool.Pool

	Index     knowledge.Index
	Ingestor  *knowledge.Ingestor
	Retrieval *knowledge.Retrieval
	Fleet     tools.FleetReader
	Registry  *tools.Registry
	Sessions  *session.Store
	Agent     *agent.Agent

	otelShutdown func(context.Context) error
}

// Close releases application resources. Safe to call on a partially
// initialized App after a Setup failure.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
		cancel()
	}

	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}

	return nil
}
