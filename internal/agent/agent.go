package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/cargotrail/cargotrail/internal/session"
)

// Turn limits. A round trip is one model call; the wall clock budget
// starts at the first model call of the turn.
const (
	DefaultMaxRoundTrips = 5
	DefaultBudget        = 30 * time.Second

	// parseRetryLimit is how many times an unusable model response may
	// be retried within a single turn.
	parseRetryLimit = 1
)

// ApologyMessage is the fixed reply recorded for an aborted turn.
const ApologyMessage = "I apologize, but I encountered an error processing your request. Please try again or rephrase your question."

// systemPrompt frames every conversation.
const systemPrompt = `You are CargoTrail's logistics assistant. You help users track
shipments, estimate shipping costs and delivery times, and find
warehouses. Use the available tools to look up live data instead of
guessing; if a tool reports an error, explain the problem to the user
in plain language. Keep answers short and factual.`

// TurnState is the position of a turn in the conversational state machine.
type TurnState int

const (
	// StateAwaitingModel means a model call is in flight or pending.
	StateAwaitingModel TurnState = iota
	// StateDispatchingTools means requested tools are being executed.
	StateDispatchingTools
	// StateDone means the turn produced a final text reply.
	StateDone
	// StateAborted means the turn ended with the apology reply.
	StateAborted
)

func (s TurnState) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting-model"
	case StateDispatchingTools:
		return "dispatching-tools"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Dispatcher executes a named tool with raw JSON arguments and returns
// the string result handed back to the model. Recoverable tool problems
// come back as the string itself; only an unknown tool name is an error.
type Dispatcher interface {
	Invoke(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// ToolInvocation records one tool dispatch within a turn.
type ToolInvocation struct {
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args,omitempty"`
	Result string          `json:"result"`
}

// Result is the outcome of one conversational turn.
type Result struct {
	Reply      string           `json:"reply"`
	State      TurnState        `json:"-"`
	RoundTrips int              `json:"round_trips"`
	ToolCalls  []ToolInvocation `json:"tool_calls,omitempty"`
}

// Config carries the agent's dependencies and limits.
type Config struct {
	Genkit     *genkit.Genkit
	ModelName  string
	Sessions   *session.Store
	Dispatcher Dispatcher
	ToolRefs   []ai.ToolRef
	Logger     *slog.Logger

	MaxRoundTrips int           // default DefaultMaxRoundTrips
	Budget        time.Duration // default DefaultBudget
	Temperature   float64       // 0 leaves the provider default

	// RateLimiter throttles model calls across all sessions.
	// Nil gets a default of 10 req/s with burst 30.
	RateLimiter *rate.Limiter
	Breaker     BreakerConfig
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Dispatcher == nil {
		return errors.New("tool dispatcher is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Agent is the conversational orchestrator. Configuration is captured
// immutably at construction; Chat is safe for concurrent use across
// sessions.
type Agent struct {
	g          *genkit.Genkit
	modelName  string
	sessions   *session.Store
	dispatcher Dispatcher
	toolRefs   []ai.ToolRef
	logger     *slog.Logger

	maxRoundTrips int
	budget        time.Duration
	temperature   float64

	limiter *rate.Limiter
	breaker *Breaker
}

// New creates an agent from cfg.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxRoundTrips := cfg.MaxRoundTrips
	if maxRoundTrips <= 0 {
		maxRoundTrips = DefaultMaxRoundTrips
	}
	budget := cfg.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	a := &Agent{
		g:             cfg.Genkit,
		modelName:     cfg.ModelName,
		sessions:      cfg.Sessions,
		dispatcher:    cfg.Dispatcher,
		toolRefs:      cfg.ToolRefs,
		logger:        cfg.Logger,
		maxRoundTrips: maxRoundTrips,
		budget:        budget,
		temperature:   cfg.Temperature,
		limiter:       limiter,
		breaker:       NewBreaker(cfg.Breaker),
	}
	a.logger.Info("agent initialized",
		"model", a.modelName,
		"tools", len(a.toolRefs),
		"max_round_trips", a.maxRoundTrips,
		"budget", a.budget)
	return a, nil
}

// Chat runs one conversational turn for sessionID.
//
// On success the user message and the final reply are appended to the
// session history and the result carries StateDone. On an abort the
// apology is appended instead, the result carries StateAborted, and the
// returned error is one of the taxonomy sentinels (or wraps the
// dispatcher's unknown tool error). The result is non-nil either way.
func (a *Agent) Chat(ctx context.Context, sessionID, input string) (*Result, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("input is empty")
	}
	if sessionID == "" {
		return nil, errors.New("session id is empty")
	}

	hist := a.sessions.Get(sessionID)
	messages := append(deepCopyMessages(hist.Messages()), ai.NewUserMessage(ai.NewTextPart(input)))

	res := &Result{State: StateAwaitingModel}

	if err := a.limiter.Wait(ctx); err != nil {
		return a.abort(res, hist, input, fmt.Errorf("%w: %v", ErrModelUnavailable, err))
	}

	turnCtx, cancel := context.WithTimeout(ctx, a.budget)
	defer cancel()
	start := time.Now()

	parseRetries := 0
	for trip := 1; ; trip++ {
		if trip > a.maxRoundTrips {
			return a.abort(res, hist, input,
				fmt.Errorf("%w: round trip %d exceeds limit %d", ErrBudgetExceeded, trip, a.maxRoundTrips))
		}
		res.RoundTrips = trip
		res.State = StateAwaitingModel

		if err := a.breaker.Allow(); err != nil {
			return a.abort(res, hist, input, fmt.Errorf("%w: %v", ErrModelUnavailable, err))
		}

		resp, err := a.generate(turnCtx, messages)
		if err != nil {
			a.breaker.Failure()
			if turnCtx.Err() != nil {
				return a.abort(res, hist, input,
					fmt.Errorf("%w: wall clock budget %s spent", ErrBudgetExceeded, a.budget))
			}
			return a.abort(res, hist, input, fmt.Errorf("%w: %v", ErrModelUnavailable, err))
		}
		a.breaker.Success()

		if elapsed := time.Since(start); elapsed > a.budget {
			return a.abort(res, hist, input,
				fmt.Errorf("%w: %s elapsed, budget %s", ErrBudgetExceeded, elapsed.Round(time.Millisecond), a.budget))
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				if parseRetries >= parseRetryLimit {
					return a.abort(res, hist, input, ErrModelParseFailure)
				}
				parseRetries++
				a.logger.Warn("model returned an unusable response, retrying",
					"session_id", sessionID, "round_trip", trip)
				continue
			}

			hist.Append(
				ai.NewUserMessage(ai.NewTextPart(input)),
				ai.NewModelMessage(ai.NewTextPart(text)),
			)
			res.Reply = text
			res.State = StateDone
			a.logger.Debug("turn complete",
				"session_id", sessionID, "round_trips", trip, "tool_calls", len(res.ToolCalls))
			return res, nil
		}

		res.State = StateDispatchingTools
		if resp.Message != nil {
			messages = append(messages, resp.Message)
		}

		parts := make([]*ai.Part, 0, len(requests))
		for _, req := range requests {
			raw, err := json.Marshal(req.Input)
			if err != nil {
				return a.abort(res, hist, input,
					fmt.Errorf("%w: encoding arguments for %q: %v", ErrModelParseFailure, req.Name, err))
			}

			out, err := a.dispatcher.Invoke(turnCtx, req.Name, raw)
			if err != nil {
				return a.abort(res, hist, input, fmt.Errorf("dispatching %q: %w", req.Name, err))
			}

			a.logger.Debug("tool dispatched",
				"session_id", sessionID, "tool", req.Name, "round_trip", trip)
			res.ToolCalls = append(res.ToolCalls, ToolInvocation{Name: req.Name, Args: raw, Result: out})
			parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   req.Name,
				Ref:    req.Ref,
				Output: out,
			}))
		}
		messages = append(messages, ai.NewMessage(ai.RoleTool, nil, parts...))
	}
}

// Clear wipes the history of sessionID. Unknown sessions are a no-op.
func (a *Agent) Clear(sessionID string) {
	a.sessions.Clear(sessionID)
	a.logger.Debug("session cleared", "session_id", sessionID)
}

// History returns a copy of the session's messages.
func (a *Agent) History(sessionID string) []*ai.Message {
	return a.sessions.Get(sessionID).Messages()
}

// BreakerState exposes the circuit breaker state for readiness checks.
func (a *Agent) BreakerState() BreakerState {
	return a.breaker.State()
}

func (a *Agent) generate(ctx context.Context, messages []*ai.Message) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithReturnToolRequests(true),
	}
	if len(a.toolRefs) > 0 {
		opts = append(opts, ai.WithTools(a.toolRefs...))
	}
	if a.temperature > 0 {
		opts = append(opts, ai.WithConfig(map[string]any{"temperature": a.temperature}))
	}
	return genkit.Generate(ctx, a.g, opts...)
}

// abort records the apology on the session and finalizes the result.
func (a *Agent) abort(res *Result, hist *session.History, input string, cause error) (*Result, error) {
	a.logger.Warn("turn aborted", "round_trips", res.RoundTrips, "cause", cause)
	hist.Append(
		ai.NewUserMessage(ai.NewTextPart(input)),
		ai.NewModelMessage(ai.NewTextPart(ApologyMessage)),
	)
	res.Reply = ApologyMessage
	res.State = StateAborted
	return res, cause
}
