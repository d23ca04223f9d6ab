package agent

import "errors"

// Abort causes. A turn that ends with one of these has already appended
// the apology reply to the session history; callers decide how to
// surface the cause.
var (
	// ErrModelUnavailable marks transport or provider failures,
	// including a rejecting circuit breaker.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrModelParseFailure marks a model response that carried neither
	// text nor tool requests after the retry was spent.
	ErrModelParseFailure = errors.New("model response unusable")

	// ErrBudgetExceeded marks a turn that ran past the round trip cap
	// or the wall clock budget.
	ErrBudgetExceeded = errors.New("conversation budget exceeded")
)
