package approval

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestResolveOnlyFirstCounts(t *testing.T) {
	g := NewGate()
	req := g.Submit("write_file", map[string]any{"path": "a.txt"})
	req.Resolve(true)
	req.Resolve(false)
	if !req.Await(context.Background()) {
		t.Fatal("first resolution should win")
	}
}

func TestGateResolveAnswersPending(t *testing.T) {
	g := NewGate()
	req := g.Submit("replace_lines", nil)
	done := make(chan bool, 1)
	go func() { done <- req.Await(context.Background()) }()
	if !g.Resolve(true) {
		t.Fatal("Resolve reported nothing pending")
	}
	select {
	case approved := <-done:
		if !approved {
			t.Fatal("expected approval")
		}
	case <-time.After(time.Second):
		t.Fatal("Await did not return")
	}
	if g.Resolve(true) {
		t.Fatal("second Resolve should find nothing pending")
	}
}

func TestCancelDeniesPending(t *testing.T) {
	g := NewGate()
	req := g.Submit("write_file", nil)
	g.CancelPending()
	if req.Await(context.Background()) {
		t.Fatal("cancelled request must be denied")
	}
}

func TestAwaitContextCancelDenies(t *testing.T) {
	g := NewGate()
	req := g.Submit("write_file", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if req.Await(ctx) {
		t.Fatal("context cancellation must deny")
	}
}

func TestSubmitDeniesPreviousPending(t *testing.T) {
	g := NewGate()
	old := g.Submit("write_file", nil)
	_ = g.Submit("replace_lines", nil)
	if old.Await(context.Background()) {
		t.Fatal("superseded request must be denied")
	}
}

func TestConcurrentResolveRace(t *testing.T) {
	g := NewGate()
	req := g.Submit("write_file", nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(approve bool) {
			defer wg.Done()
			req.Resolve(approve)
		}(i%2 == 0)
	}
	wg.Wait()
	// Either answer is fine; the point is no panic and exactly one wins.
	req.Await(context.Background())
}
