// Package approval mediates between the agent loop, which must block until a
// human answers, and whatever front-end collects that answer. A request can
// be resolved exactly once; every losing path resolves to denied.
package approval

import (
	"context"
	"sync"
)

// Request is one pending approval. Resolve may be called any number of
// times from any goroutine; only the first call counts.
type Request struct {
	Tool   string
	Params map[string]any

	once sync.Once
	ch   chan bool
}

func newRequest(tool string, params map[string]any) *Request {
	return &Request{Tool: tool, Params: params, ch: make(chan bool, 1)}
}

// Resolve records the decision. Later calls are ignored.
func (r *Request) Resolve(approved bool) {
	r.once.Do(func() {
		r.ch <- approved
		close(r.ch)
	})
}

// Await blocks until the request is resolved or ctx ends. Context
// cancellation counts as denial.
func (r *Request) Await(ctx context.Context) bool {
	select {
	case approved := <-r.ch:
		return approved
	case <-ctx.Done():
		r.Resolve(false)
		// Drain in case the resolver won the race.
		select {
		case approved := <-r.ch:
			return approved
		default:
			return false
		}
	}
}

// Gate holds at most one pending request. The agent loop submits, the
// front-end resolves. Submitting while another request is pending denies
// the old one first.
type Gate struct {
	mu      sync.Mutex
	pending *Request
}

// NewGate returns an empty gate.
func NewGate() *Gate { return &Gate{} }

// Submit registers a new pending request and returns it.
func (g *Gate) Submit(tool string, params map[string]any) *Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != nil {
		g.pending.Resolve(false)
	}
	g.pending = newRequest(tool, params)
	return g.pending
}

// Resolve answers the pending request, if any. Returns false when nothing
// was pending.
func (g *Gate) Resolve(approved bool) bool {
	g.mu.Lock()
	req := g.pending
	g.pending = nil
	g.mu.Unlock()
	if req == nil {
		return false
	}
	req.Resolve(approved)
	return true
}

// CancelPending denies the pending request, if any. Called on task
// cancellation so the loop never hangs on an answer that will not come.
func (g *Gate) CancelPending() {
	g.Resolve(false)
}

// HasPending reports whether a request is waiting for an answer.
func (g *Gate) HasPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}
