// Package provider abstracts the model backends. The cloud provider runs a
// tiered cascade over the Gemini API; the local provider wraps an
// OpenAI-compatible llama server. The agent loop only sees the Provider
// interface.
package provider

import (
	"context"
	"errors"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

// ErrRateLimited marks an upstream 429. Callers may retry on a fallback
// tier; the client has already rotated its API key.
var ErrRateLimited = errors.New("rate limited")

// Tier 模型梯队 / Tier identifies one model in the cascade.
type Tier int

const (
	TierRouter Tier = iota
	TierBasicChat
	TierAdvancedChat
	TierAgent
	TierSummarizer
	TierLocal
)

// ModelName returns the upstream model identifier for the tier.
func (t Tier) ModelName() string {
	switch t {
	case TierRouter:
		return "gemma-3-1b-it"
	case TierBasicChat:
		return "gemma-3-4b-it"
	case TierAdvancedChat:
		return "gemma-3-12b-it"
	case TierAgent:
		return "gemma-3-27b-it"
	case TierSummarizer:
		return "gemma-3-4b-it"
	case TierLocal:
		return "local-gguf"
	}
	return "unknown"
}

// DisplayName returns the short label shown in the UI.
func (t Tier) DisplayName() string {
	switch t {
	case TierRouter:
		return "1B"
	case TierBasicChat:
		return "4B"
	case TierAdvancedChat:
		return "12B"
	case TierAgent:
		return "27B"
	case TierSummarizer:
		return "2B"
	case TierLocal:
		return "Local"
	}
	return "?"
}

// Complexity classifies a request for tier selection.
type Complexity int

const (
	Simple Complexity = iota
	Complex
)

func (c Complexity) String() string {
	if c == Complex {
		return "COMPLEX"
	}
	return "SIMPLE"
}

// Capabilities describes what a provider can do so the agent can adapt
// instead of probing with failed calls.
type Capabilities struct {
	Tools            bool
	Streaming        bool
	Cascade          bool
	Summarization    bool
	MaxContextTokens int
}

// Chunk is one streamed fragment. A non-nil Err terminates the stream.
type Chunk struct {
	Text string
	Err  error
}

// Stream delivers completion fragments. The channel is closed when the
// response is finished or failed.
type Stream <-chan Chunk

// Provider is a model backend.
// 模型后端统一接口 / the uniform surface over cloud cascade and local model.
type Provider interface {
	Name() string
	Capabilities() Capabilities

	// Chat answers a conversational request. Cascade providers route it
	// to a tier by complexity first.
	Chat(ctx context.Context, systemPrompt string, msgs []chat.Message) (Stream, error)

	// Agent answers a tool-use request on the strongest tier available.
	Agent(ctx context.Context, systemPrompt string, msgs []chat.Message) (Stream, error)

	// Classify grades input complexity. ok is false when the provider has
	// no router.
	Classify(ctx context.Context, input string) (c Complexity, ok bool)

	// Summarize condenses recent turns. ok is false when unsupported or
	// the call failed.
	Summarize(ctx context.Context, msgs []chat.Message) (summary string, ok bool)

	// ActiveTier reports the tier the last request ran on, for display.
	ActiveTier() (Tier, bool)
}

// singleChunkStream wraps one complete response as a Stream.
func singleChunkStream(text string) Stream {
	ch := make(chan Chunk, 1)
	ch <- Chunk{Text: text}
	close(ch)
	return ch
}
