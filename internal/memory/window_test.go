package memory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

func TestWindowPushAndEstimate(t *testing.T) {
	w := NewWindow(1000)
	w.Push(chat.User("hello there"))
	want := len("hello there")/4 + turnOverhead
	if got := w.TokenEstimate(); got != want {
		t.Fatalf("estimate = %d, want %d", got, want)
	}
	if w.Len() != 1 {
		t.Fatalf("len = %d", w.Len())
	}
}

func TestWindowPrunesOldestPairKeepsSeed(t *testing.T) {
	// Budget fits roughly five short turns, then pairs must go.
	w := NewWindow(120)
	w.Push(chat.User("seed prompt"))
	for i := 0; i < 10; i++ {
		w.Push(chat.User(fmt.Sprintf("question %d padding padding padding", i)))
		w.Push(chat.Model(fmt.Sprintf("answer %d padding padding padding", i)))
	}
	msgs := w.Messages()
	if msgs[0].Content != "seed prompt" {
		t.Fatalf("seed evicted, first turn = %q", msgs[0].Content)
	}
	if w.TokenEstimate() > 120 && len(msgs) > 4 {
		t.Fatalf("still over budget with %d turns (%d tokens)", len(msgs), w.TokenEstimate())
	}
	// Survivors must be the newest turns.
	last := msgs[len(msgs)-1].Content
	if !strings.Contains(last, "answer 9") {
		t.Fatalf("last turn = %q", last)
	}
}

func TestWindowNeverPrunesBelowFloor(t *testing.T) {
	w := NewWindow(1)
	for i := 0; i < 8; i++ {
		w.Push(chat.User(strings.Repeat("x", 400)))
	}
	if w.Len() < 3 {
		t.Fatalf("len = %d, pruned past the floor", w.Len())
	}
}

func TestWindowReplaceAndClear(t *testing.T) {
	w := NewWindow(1000)
	w.Push(chat.User("old"))
	w.Replace([]chat.Message{chat.User("a"), chat.Model("b")})
	if w.Len() != 2 {
		t.Fatalf("len after replace = %d", w.Len())
	}
	if w.TokenEstimate() != 2*turnOverhead {
		t.Fatalf("estimate after replace = %d", w.TokenEstimate())
	}
	w.Clear()
	if w.Len() != 0 || w.TokenEstimate() != 0 {
		t.Fatalf("clear left len=%d estimate=%d", w.Len(), w.TokenEstimate())
	}
}

func TestWindowMessagesIsACopy(t *testing.T) {
	w := NewWindow(1000)
	w.Push(chat.User("original"))
	msgs := w.Messages()
	msgs[0].Content = "mutated"
	if w.Messages()[0].Content != "original" {
		t.Fatal("Messages leaked internal slice")
	}
}

func TestTokenizerFallbackCounts(t *testing.T) {
	tok := NewTokenizer("cl100k_base")
	if tok.CountText("") != 0 {
		t.Fatal("empty text should count zero")
	}
	if tok.CountText("hello world, this is a test") < 1 {
		t.Fatal("count must be positive")
	}
	msgs := []chat.Message{chat.User("hi"), chat.Model("hello")}
	if tok.Count(msgs) <= tok.CountText("hi") {
		t.Fatal("message overhead missing")
	}
}
