package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

// tierServer rate-limits the given model names and serves text for the rest.
func tierServer(t *testing.T, limited map[string]bool, reply string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		for model := range limited {
			if strings.Contains(r.URL.Path, model) {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseBody(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestCascadeAgentFailsOverOnceOnRateLimit(t *testing.T) {
	srv, calls := tierServer(t, map[string]bool{"gemma-3-27b-it": true}, "fallback reply")
	keys := NewKeyManager([]string{"k1", "k2"})
	cascade := NewCascade(keys, srv.URL)

	stream, served, err := cascade.ExecuteAgent(context.Background(), "sys", []chat.Message{chat.User("go")})
	if err != nil {
		t.Fatalf("ExecuteAgent() error = %v", err)
	}
	if served != TierAdvancedChat {
		t.Fatalf("served = %v, want advanced tier", served)
	}
	if got := collect(t, stream); got != "fallback reply" {
		t.Fatalf("reply = %q", got)
	}
	if calls.Load() != 2 {
		t.Fatalf("upstream calls = %d, want exactly 2", calls.Load())
	}
	// The 429 must have rotated the shared key pool.
	if keys.Current() != "k2" {
		t.Fatalf("key = %q, want k2", keys.Current())
	}
}

func TestCascadeAgentBothTiersLimited(t *testing.T) {
	srv, calls := tierServer(t, map[string]bool{"gemma-3-27b-it": true, "gemma-3-12b-it": true}, "")
	cascade := NewCascade(NewKeyManager([]string{"k"}), srv.URL)

	_, _, err := cascade.ExecuteAgent(context.Background(), "sys", nil)
	if err == nil {
		t.Fatal("expected failure when both tiers are limited")
	}
	if calls.Load() != 2 {
		t.Fatalf("upstream calls = %d, want 2 (no third attempt)", calls.Load())
	}
}

func TestCascadeHardErrorDoesNotFailOver(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)
	cascade := NewCascade(NewKeyManager([]string{"k"}), srv.URL)

	_, _, err := cascade.ExecuteAgent(context.Background(), "sys", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("upstream calls = %d, want 1 (hard errors surface unchanged)", calls.Load())
	}
}

func TestCascadeChatServesRequestedTier(t *testing.T) {
	srv, _ := tierServer(t, nil, "hello")
	cascade := NewCascade(NewKeyManager([]string{"k"}), srv.URL)

	stream, served, err := cascade.ExecuteChat(context.Background(), TierAdvancedChat, "sys", []chat.Message{chat.User("hi")})
	if err != nil {
		t.Fatalf("ExecuteChat() error = %v", err)
	}
	if served != TierAdvancedChat {
		t.Fatalf("served = %v", served)
	}
	collect(t, stream)
}

func TestRouterHeuristics(t *testing.T) {
	// No server: the heuristics must resolve these without a model call.
	router := NewRouter(NewGemmaClient(NewKeyManager(nil), TierRouter, "http://127.0.0.1:0"))
	cases := []struct {
		input string
		want  Complexity
	}{
		{"hi", Simple},
		{"ok", Simple},
		{"please fix the failing build for me", Complex},
		{"can you explain this stack trace output", Complex},
		{"what is the capital of France???", Simple},
	}
	for _, tc := range cases {
		if got := router.Classify(context.Background(), tc.input); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestRouterModelFallbackAndErrorDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"COMPLEX"}]}}]}`)
	}))
	t.Cleanup(srv.Close)

	// Long input with no keyword or pattern hit goes to the model.
	uncertain := "quantum entanglement versus gravitational lensing phenomena"
	router := NewRouter(NewGemmaClient(NewKeyManager([]string{"k"}), TierRouter, srv.URL))
	if got := router.Classify(context.Background(), uncertain); got != Complex {
		t.Fatalf("Classify() = %v, want Complex from model", got)
	}

	// Unreachable router defaults to Simple.
	broken := NewRouter(NewGemmaClient(NewKeyManager([]string{"k"}), TierRouter, "http://127.0.0.1:0"))
	if got := broken.Classify(context.Background(), uncertain); got != Simple {
		t.Fatalf("Classify() = %v, want Simple on error", got)
	}
}

func TestCloudProviderActiveTier(t *testing.T) {
	srv, _ := tierServer(t, nil, "reply")
	p := NewCloudProvider([]string{"k"}, srv.URL)

	if tier, ok := p.ActiveTier(); !ok || tier != TierAgent {
		t.Fatalf("initial tier = %v, %v", tier, ok)
	}
	stream, err := p.Chat(context.Background(), "sys", []chat.Message{chat.User("hi")})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	collect(t, stream)
	if tier, _ := p.ActiveTier(); tier != TierBasicChat {
		t.Fatalf("tier after simple chat = %v, want basic", tier)
	}
}
