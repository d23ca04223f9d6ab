// Package api provides the JSON REST API for the CargoTrail assistant.
//
// # Architecture
//
// Routing uses Go 1.22+ method patterns behind a layered middleware
// stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Routes
//
// Health probes (/health, /ready) bypass the middleware stack via a
// top-level mux so they stay fast and unthrottled.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /health - liveness, returns {"status":"ok"}
//   - GET /ready  - readiness, checks the database pool when configured
//
// Chat:
//   - POST   /api/v1/chat                    - run one conversational turn
//   - POST   /api/v1/chat/stream             - same turn, reply delivered
//     as server-sent events in fixed-size chunks plus a done event
//   - GET    /api/v1/sessions/{id}/messages  - session transcript
//   - DELETE /api/v1/sessions/{id}           - clear session history
//   - POST   /api/v1/feedback                - acknowledge and log a rating
//
// Knowledge search:
//   - POST /api/v1/search        - retrieval plus a synthesized answer
//   - POST /api/v1/search/simple - raw retrieved chunks, no generation
//
// Fleet:
//   - POST /api/v1/shipments/query - natural language shipment question,
//     answered by the agent through its shipment tools in a throwaway
//     session
//
// # Error Handling
//
// All responses use an envelope format:
//
//	Success: {"data": <payload>}
//	Error:   {"error": {"code": "...", "message": "..."}}
//
// An aborted chat turn is not an HTTP error: the turn completed and
// produced the apology reply, so POST /api/v1/chat returns 200 with
// state "aborted" and an error code in the payload.
//
// # Security
//
// The middleware stack enforces per-IP rate limiting (token bucket),
// CORS with an explicit origin allowlist, security headers, and a 1MB
// request body cap on every JSON endpoint.
package api
