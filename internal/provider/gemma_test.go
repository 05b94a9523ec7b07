package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func sseBody(texts ...string) string {
	var sb strings.Builder
	for _, t := range texts {
		fmt.Fprintf(&sb, "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":%q}]}}]}\n\n", t)
	}
	return sb.String()
}

func collect(t *testing.T, stream Stream) string {
	t.Helper()
	var sb strings.Builder
	for chunk := range stream {
		if chunk.Err != nil {
			t.Fatalf("stream error: %v", chunk.Err)
		}
		sb.WriteString(chunk.Text)
	}
	return sb.String()
}

func TestStreamCompletionParsesSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemma-3-27b-it") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseBody("Hello", " world"))
	}))
	t.Cleanup(srv.Close)

	client := NewGemmaClient(NewKeyManager([]string{"k1"}), TierAgent, srv.URL)
	stream, err := client.StreamCompletion(context.Background(), "be helpful", []chat.Message{chat.User("hi")}, true)
	if err != nil {
		t.Fatalf("StreamCompletion() error = %v", err)
	}
	if got := collect(t, stream); got != "Hello world" {
		t.Fatalf("text = %q", got)
	}
}

func TestStreamCompletionRateLimitRotatesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	keys := NewKeyManager([]string{"k1", "k2"})
	client := NewGemmaClient(keys, TierAgent, srv.URL)
	_, err := client.StreamCompletion(context.Background(), "sys", nil, true)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if keys.Current() != "k2" {
		t.Fatalf("key = %q, want rotation to k2", keys.Current())
	}
}

func TestStreamCompletionAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewGemmaClient(NewKeyManager([]string{"k"}), TierAgent, srv.URL)
	_, err := client.StreamCompletion(context.Background(), "sys", nil, true)
	if err == nil || errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want hard API error", err)
	}
}

func TestBuildContentsRolesAndSystemPair(t *testing.T) {
	contents := buildContents("do things", []chat.Message{
		chat.User("question"),
		chat.Model("answer"),
		chat.Tool("<observation>result</observation>"),
	})
	if len(contents) != 5 {
		t.Fatalf("len = %d, want 5", len(contents))
	}
	if contents[0].Role != "user" || !strings.Contains(contents[0].Parts[0].Text, "SYSTEM INSTRUCTION:") {
		t.Fatalf("system turn = %+v", contents[0])
	}
	if contents[1].Role != "model" {
		t.Fatalf("ack role = %q", contents[1].Role)
	}
	roles := []string{contents[2].Role, contents[3].Role, contents[4].Role}
	want := []string{"user", "model", "user"}
	for i := range roles {
		if roles[i] != want[i] {
			t.Fatalf("role[%d] = %q, want %q", i, roles[i], want[i])
		}
	}
}

func TestKeyManagerRotation(t *testing.T) {
	keys := NewKeyManager([]string{"a", "b", "c"})
	if keys.Current() != "a" {
		t.Fatalf("current = %q", keys.Current())
	}
	keys.Rotate()
	keys.Rotate()
	if keys.Current() != "c" {
		t.Fatalf("current = %q, want c", keys.Current())
	}
	keys.Rotate()
	if keys.Current() != "a" {
		t.Fatalf("current = %q, want wraparound to a", keys.Current())
	}

	empty := NewKeyManager(nil)
	empty.Rotate()
	if empty.Current() != "" {
		t.Fatalf("empty pool current = %q", empty.Current())
	}
}

func TestSummarizeClipsHistory(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := jsonDecode(r, &req); err != nil {
			t.Errorf("decode: %v", err)
		}
		prompt = req.Contents[0].Parts[0].Text
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"A summary."}]}}]}`)
	}))
	t.Cleanup(srv.Close)

	client := NewGemmaClient(NewKeyManager([]string{"k"}), TierSummarizer, srv.URL)
	msgs := make([]chat.Message, 0, 8)
	for i := 0; i < 8; i++ {
		msgs = append(msgs, chat.User(fmt.Sprintf("turn %d %s", i, strings.Repeat("x", 200))))
	}
	summary, err := client.Summarize(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary != "A summary." {
		t.Fatalf("summary = %q", summary)
	}
	if !strings.HasPrefix(prompt, "Summarize in 2 sentences: ") {
		t.Fatalf("prompt = %q", prompt)
	}
	if strings.Contains(prompt, "turn 0") || strings.Contains(prompt, "turn 2") {
		t.Fatalf("old turns leaked into prompt: %q", prompt)
	}
	if !strings.Contains(prompt, "turn 3") || !strings.Contains(prompt, "turn 7") {
		t.Fatalf("recent turns missing from prompt: %q", prompt)
	}
	// Each entry is clipped to 100 characters of content.
	for _, seg := range strings.Split(strings.TrimPrefix(prompt, "Summarize in 2 sentences: "), " | ") {
		if len(seg) > 120 {
			t.Fatalf("segment not clipped: %d chars", len(seg))
		}
	}
}
