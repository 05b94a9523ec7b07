package provider

import (
	"context"
	"log/slog"
	"strings"
)

// complexKeywords mark requests that need the stronger chat tier. Checked
// before spending a model call.
var complexKeywords = []string{
	"create", "write", "modify", "edit", "fix", "debug",
	"implement", "build", "code", "function", "class",
	"file", "folder", "directory", "install", "run",
	"error", "bug", "issue", "why", "how does",
	"explain", "analyze", "compare", "difference",
}

// simplePatterns match greetings and trivia that the small tier handles.
var simplePatterns = []string{
	"hi", "hello", "hey", "thanks", "thank you",
	"bye", "goodbye", "ok", "okay", "yes", "no",
	"what is", "who is", "when",
}

// Router grades request complexity. Heuristics resolve most inputs; the
// router-tier model only sees the uncertain rest.
type Router struct {
	client *GemmaClient
}

// NewRouter builds a router on the router-tier client.
func NewRouter(client *GemmaClient) *Router {
	return &Router{client: client}
}

// Classify grades input. Never fails: classification errors degrade to
// Simple so the conversation keeps moving on the small tier.
func (r *Router) Classify(ctx context.Context, input string) Complexity {
	// Short inputs are greetings or acknowledgments.
	if len(input) < 20 {
		return Simple
	}

	lower := strings.ToLower(input)
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			return Complex
		}
	}
	for _, pat := range simplePatterns {
		if lower == pat || strings.HasPrefix(lower, pat) {
			return Simple
		}
	}

	result, err := r.client.Classify(ctx, input)
	if err != nil {
		slog.Debug("router classify failed, defaulting simple", "component", "provider", "err", err)
		return Simple
	}
	if strings.Contains(result, "COMPLEX") {
		return Complex
	}
	return Simple
}
