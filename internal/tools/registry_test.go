package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cargotrail/cargotrail/internal/log"
)

type echoInput struct {
	Text  string `json:"text" jsonschema_description:"Text to echo"`
	Times int    `json:"times,omitempty" jsonschema_description:"Repeat count"`
}

func newEchoRegistry(t *testing.T, handler func(context.Context, echoInput) (string, error)) *Registry {
	t.Helper()
	r := NewRegistry(log.NewNop())
	if err := Define(r, nil, "echo", "Echo text back.", handler); err != nil {
		t.Fatalf("Define: %v", err)
	}
	return r
}

func TestInvokeReturnsHandlerResult(t *testing.T) {
	r := newEchoRegistry(t, func(_ context.Context, in echoInput) (string, error) {
		return "echo: " + in.Text, nil
	})

	got, err := r.Invoke(context.Background(), "echo", json.RawMessage(`{"text":"hello"}`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != "echo: hello" {
		t.Errorf("result = %q, want %q", got, "echo: hello")
	}
}

func TestInvokeUnknownToolIsFatal(t *testing.T) {
	r := newEchoRegistry(t, func(_ context.Context, in echoInput) (string, error) {
		return in.Text, nil
	})

	_, err := r.Invoke(context.Background(), "does_not_exist", json.RawMessage(`{}`))
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Invoke unknown tool: got %v, want ErrUnknownTool", err)
	}
}

func TestInvokeMissingRequiredArgument(t *testing.T) {
	called := false
	r := newEchoRegistry(t, func(_ context.Context, in echoInput) (string, error) {
		called = true
		return in.Text, nil
	})

	// "text" is required; "times" is not.
	got, err := r.Invoke(context.Background(), "echo", json.RawMessage(`{"times":2}`))
	if err != nil {
		t.Fatalf("argument faults must not surface as errors: %v", err)
	}
	if !strings.Contains(got, ErrTypeInvalidArguments) {
		t.Errorf("result = %q, want an %s description", got, ErrTypeInvalidArguments)
	}
	if called {
		t.Error("handler must not run on invalid arguments")
	}
}

func TestInvokeMistypedArgument(t *testing.T) {
	r := newEchoRegistry(t, func(_ context.Context, in echoInput) (string, error) {
		return in.Text, nil
	})

	got, err := r.Invoke(context.Background(), "echo", json.RawMessage(`{"text":42}`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(got, ErrTypeInvalidArguments) {
		t.Errorf("result = %q, want an %s description", got, ErrTypeInvalidArguments)
	}
}

func TestInvokeMalformedJSON(t *testing.T) {
	r := newEchoRegistry(t, func(_ context.Context, in echoInput) (string, error) {
		return in.Text, nil
	})

	got, err := r.Invoke(context.Background(), "echo", json.RawMessage(`{"text":`))
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if !strings.Contains(got, ErrTypeInvalidArguments) {
		t.Errorf("result = %q, want an %s description", got, ErrTypeInvalidArguments)
	}
}

func TestInvokeConvertsHandlerError(t *testing.T) {
	r := newEchoRegistry(t, func(_ context.Context, _ echoInput) (string, error) {
		return "", fmt.Errorf("store unavailable")
	})

	got, err := r.Invoke(context.Background(), "echo", json.RawMessage(`{"text":"hi"}`))
	if err != nil {
		t.Fatalf("handler faults must not surface as errors: %v", err)
	}
	if !strings.Contains(got, ErrTypeExecutionFault) || !strings.Contains(got, "store unavailable") {
		t.Errorf("result = %q, want %s description mentioning the fault", got, ErrTypeExecutionFault)
	}
}

func TestInvokeRecoversHandlerPanic(t *testing.T) {
	r := newEchoRegistry(t, func(_ context.Context, _ echoInput) (string, error) {
		panic("boom")
	})

	got, err := r.Invoke(context.Background(), "echo", json.RawMessage(`{"text":"hi"}`))
	if err != nil {
		t.Fatalf("panics must not surface as errors: %v", err)
	}
	if !strings.Contains(got, ErrTypeExecutionFault) {
		t.Errorf("result = %q, want %s description", got, ErrTypeExecutionFault)
	}
}

func TestInvokeEmptyArgsTreatedAsEmptyObject(t *testing.T) {
	type noArgs struct{}
	r := NewRegistry(log.NewNop())
	if err := Define(r, nil, "ping", "Ping.", func(_ context.Context, _ noArgs) (string, error) {
		return "pong", nil
	}); err != nil {
		t.Fatalf("Define: %v", err)
	}

	got, err := r.Invoke(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != "pong" {
		t.Errorf("result = %q, want pong", got)
	}
}

func TestDefineRejectsDuplicates(t *testing.T) {
	r := newEchoRegistry(t, func(_ context.Context, in echoInput) (string, error) {
		return in.Text, nil
	})

	err := Define(r, nil, "echo", "Echo again.", func(_ context.Context, in echoInput) (string, error) {
		return in.Text, nil
	})
	if err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestNamesPreserveRegistrationOrder(t *testing.T) {
	r := NewRegistry(log.NewNop())
	for _, name := range []string{"alpha", "bravo", "charlie"} {
		if err := Define(r, nil, name, name, func(_ context.Context, _ echoInput) (string, error) {
			return "", nil
		}); err != nil {
			t.Fatalf("Define(%s): %v", name, err)
		}
	}

	got := r.Names()
	want := []string{"alpha", "bravo", "charlie"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", got, want)
		}
	}
	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}
}
