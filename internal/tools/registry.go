package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/jsonschema-go/jsonschema"
)

// Definition describes one registered tool: its stable name, the
// description shown to the model, the inferred argument schema, and the
// type-erased handler.
type Definition struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema

	resolved *jsonschema.Resolved
	handler  func(context.Context, json.RawMessage) (string, error)
}

// Registry maps tool names to definitions. Registration happens once at
// startup; after that the registry is read-only and safe for concurrent
// dispatch.
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]*Definition
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger falls back to
// slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		defs:   make(map[string]*Definition),
		logger: logger,
	}
}

// Define registers a typed tool under a stable name. The argument schema
// is inferred from In's struct tags; handlers receive already-decoded
// input. When g is non-nil the tool is also defined with Genkit so the
// model sees its schema.
func Define[In any](r *Registry, g *genkit.Genkit, name, description string, handler func(context.Context, In) (string, error)) error {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return fmt.Errorf("inferring schema for %q: %w", name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolving schema for %q: %w", name, err)
	}

	erased := func(ctx context.Context, raw json.RawMessage) (string, error) {
		var in In
		if err := json.Unmarshal(raw, &in); err != nil {
			return "", fmt.Errorf("decoding arguments: %w", err)
		}
		return handler(ctx, in)
	}

	if err := r.register(&Definition{
		Name:        name,
		Description: description,
		Schema:      schema,
		resolved:    resolved,
		handler:     erased,
	}); err != nil {
		return err
	}

	if g != nil {
		genkit.DefineTool(g, name, description,
			func(tc *ai.ToolContext, in In) (string, error) {
				return handler(tc.Context, in)
			})
	}
	return nil
}

// register adds a definition, rejecting duplicates.
func (r *Registry) register(def *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Invoke validates args against the tool's schema and runs its handler.
//
// The returned string is always safe to feed back to the model: argument
// faults and handler faults are converted to descriptive result strings
// rather than errors. The only error Invoke returns is ErrUnknownTool,
// which callers must treat as fatal for the whole turn.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (string, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		r.logger.Warn("tool arguments are not valid JSON", "tool", name, "error", err)
		return invalidArguments(fmt.Sprintf("arguments for %s are not valid JSON: %v", name, err)), nil
	}

	if err := def.resolved.Validate(instance); err != nil {
		r.logger.Warn("tool arguments failed validation", "tool", name, "error", err)
		return invalidArguments(fmt.Sprintf("arguments for %s do not match its schema: %v", name, err)), nil
	}

	result, err := r.run(ctx, def, args)
	if err != nil {
		r.logger.Warn("tool execution fault", "tool", name, "error", err)
		return executionFault(fmt.Sprintf("%s failed: %v", name, err)), nil
	}
	return result, nil
}

// run executes the handler, converting panics into errors so a buggy
// handler cannot take down the orchestration loop.
func (r *Registry) run(ctx context.Context, def *Definition, args json.RawMessage) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in tool %s: %v", def.Name, rec)
		}
	}()
	return def.handler(ctx, args)
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Lookup returns the definition for name, or nil.
func (r *Registry) Lookup(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defs[name]
}

// Refs returns Genkit tool references for all registered tools, for
// passing to model calls via ai.WithTools.
func (r *Registry) Refs(g *genkit.Genkit) []ai.ToolRef {
	names := r.Names()
	refs := make([]ai.ToolRef, 0, len(names))
	for _, name := range names {
		if tool := genkit.LookupTool(g, name); tool != nil {
			refs = append(refs, tool)
		}
	}
	return refs
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
