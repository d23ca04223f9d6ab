package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// health answers liveness probes.
func health(logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	})
}

// readiness answers readiness probes. With a pool configured it pings
// the database; without one (memory index mode) it always succeeds.
func readiness(pool *pgxpool.Pool, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", "error", err)
				writeEnvelope(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"}, logger)
				return
			}
		}
		writeEnvelope(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	})
}
