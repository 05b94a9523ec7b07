// Package memory keeps the working conversation window inside a token
// budget. Counting here is a cheap estimate; precise counts for reporting
// and summarization thresholds come from Tokenizer.
package memory

import (
	"sync"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

// turnOverhead covers role markers and separators per turn.
const turnOverhead = 10

// Window 持有预算内的会话窗口 / Window holds conversation turns under a
// token budget. The first turn is the seed exchange and is never evicted.
// Eviction removes the oldest user/model pair after the seed, and never
// shrinks the window below four turns.
type Window struct {
	mu       sync.Mutex
	budget   int
	turns    []chat.Message
	estimate int
}

// NewWindow creates a window with the given token budget.
func NewWindow(budget int) *Window {
	return &Window{budget: budget}
}

// Push appends a turn and prunes until the estimate fits the budget.
func (w *Window) Push(msg chat.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = append(w.turns, msg)
	w.estimate += estimateTurn(msg)
	w.prune()
}

// prune drops the oldest non-seed pair while over budget. Caller holds mu.
func (w *Window) prune() {
	for w.estimate > w.budget && len(w.turns) > 4 {
		w.estimate -= estimateTurn(w.turns[1]) + estimateTurn(w.turns[2])
		w.turns = append(w.turns[:1], w.turns[3:]...)
	}
}

// Messages returns a copy of the current turns.
func (w *Window) Messages() []chat.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]chat.Message, len(w.turns))
	copy(out, w.turns)
	return out
}

// Len returns the number of turns held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns)
}

// TokenEstimate returns the running estimate for the whole window.
func (w *Window) TokenEstimate() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.estimate
}

// Budget returns the configured token budget.
func (w *Window) Budget() int { return w.budget }

// Replace swaps the whole window content, recomputing the estimate. Used
// when loading a stored conversation.
func (w *Window) Replace(turns []chat.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = make([]chat.Message, len(turns))
	copy(w.turns, turns)
	w.estimate = 0
	for _, t := range w.turns {
		w.estimate += estimateTurn(t)
	}
	w.prune()
}

// Clear drops every turn and resets the estimate.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = nil
	w.estimate = 0
}

// estimateTurn approximates tokens as one per four characters plus a fixed
// per-turn overhead.
func estimateTurn(msg chat.Message) int {
	return len(msg.Content)/4 + turnOverhead
}
