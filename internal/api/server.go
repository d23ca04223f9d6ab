package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ServerConfig configures NewServer.
type ServerConfig struct {
	Logger      *slog.Logger
	Chat        ChatService   // required
	Retrieval   SearchService // required
	Pool        *pgxpool.Pool // optional, enables DB ping in /ready
	CORSOrigins []string
	IsDev       bool
	TrustProxy  bool
	RateBurst   int // per-IP burst, 0 means 60
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires all routes and the middleware stack.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Retrieval == nil {
		return nil, errors.New("retrieval service is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ch := &chatHandler{agent: cfg.Chat, logger: logger}
	sh := &searchHandler{retrieval: cfg.Retrieval, logger: logger}
	fh := &fleetHandler{agent: cfg.Chat, logger: logger}
	fb := &feedbackHandler{logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/chat/stream", ch.stream)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", ch.clearSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}/messages", ch.getMessages)
	mux.HandleFunc("POST /api/v1/search", sh.search)
	mux.HandleFunc("POST /api/v1/search/simple", sh.simpleSearch)
	mux.HandleFunc("POST /api/v1/shipments/query", fh.queryShipments)
	mux.HandleFunc("POST /api/v1/feedback", fb.submit)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID precedes Logging so log lines carry the ID; CORS
	// precedes RateLimit so throttled preflights still get headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.Handle("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
