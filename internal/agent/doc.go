// Package agent runs the conversational loop between users, the model,
// and the logistics tool registry.
//
// A turn walks an explicit state machine: the agent awaits the model,
// dispatches any requested tools sequentially, feeds the results back,
// and repeats until the model produces a plain text reply or a budget
// runs out. Turns are bounded by a round trip cap and a wall clock
// budget; a turn that cannot finish cleanly is aborted with a fixed
// apology so the session history stays coherent.
package agent
