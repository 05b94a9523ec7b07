package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTimeout bounds a single tool execution.
const DefaultTimeout = 30 * time.Second

// Executor runs tools with a timeout and turns every failure mode into
// observation text, so the agent loop can always feed something back to
// the model.
type Executor struct {
	registry *Registry
	timeout  time.Duration
}

// NewExecutor wraps registry with the default timeout.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{registry: registry, timeout: DefaultTimeout}
}

// WithTimeout overrides the execution timeout.
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	e.timeout = d
	return e
}

// Execute validates and runs the named tool. The returned string is always
// safe to hand to the model as an observation.
func (e *Executor) Execute(ctx context.Context, name string, params map[string]any) string {
	tool, ok := e.registry.Get(name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool '%s'", name)
	}
	if err := e.registry.Validate(name, params); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan string, 1)
	go func() {
		done <- tool.Execute(ctx, params)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			slog.Warn("tool timed out", "component", "tools", "tool", name)
			return fmt.Sprintf("Tool execution timed out after %d seconds", int(e.timeout.Seconds()))
		}
		return fmt.Sprintf("Error: tool '%s' cancelled", name)
	}
}
