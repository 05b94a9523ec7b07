package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

type sleepTool struct {
	d time.Duration
}

func (t *sleepTool) Definition() Definition {
	return Definition{Name: "sleep", Description: "test helper", InputSchema: `{"type":"object"}`}
}

func (t *sleepTool) Execute(ctx context.Context, params map[string]any) string {
	select {
	case <-time.After(t.d):
		return "done"
	case <-ctx.Done():
		// Keep sleeping past the deadline to prove the executor does
		// not wait for us.
		time.Sleep(t.d)
		return "late"
	}
}

func TestExecutorUnknownTool(t *testing.T) {
	reg, _ := newTestRegistry(t)
	exec := NewExecutor(reg)
	got := exec.Execute(context.Background(), "rm_rf", nil)
	if got != "Error: unknown tool 'rm_rf'" {
		t.Fatalf("result = %q", got)
	}
}

func TestExecutorValidationFailureIsText(t *testing.T) {
	reg, _ := newTestRegistry(t)
	exec := NewExecutor(reg)
	got := exec.Execute(context.Background(), "write_file", map[string]any{"path": "x"})
	if !strings.HasPrefix(got, "Error: invalid parameters") {
		t.Fatalf("result = %q", got)
	}
}

func TestExecutorTimeout(t *testing.T) {
	reg, _ := newTestRegistry(t)
	if err := reg.register(&sleepTool{d: 5 * time.Second}); err != nil {
		t.Fatalf("register: %v", err)
	}
	exec := NewExecutor(reg).WithTimeout(50 * time.Millisecond)

	start := time.Now()
	got := exec.Execute(context.Background(), "sleep", map[string]any{})
	if !strings.HasPrefix(got, "Tool execution timed out") {
		t.Fatalf("result = %q", got)
	}
	if time.Since(start) > time.Second {
		t.Fatal("executor waited for the stuck tool")
	}
}

func TestExecutorRunsTool(t *testing.T) {
	reg, root := newTestRegistry(t)
	writeFixture(t, root, "hello.txt", "hi")
	exec := NewExecutor(reg)
	if got := exec.Execute(context.Background(), "read_file", map[string]any{"path": "hello.txt"}); got != "hi" {
		t.Fatalf("result = %q", got)
	}
}
