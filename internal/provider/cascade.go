package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

// Cascade 梯队执行器 / Cascade owns one client per tier and handles
// failover. Rate limits fail over exactly once, to the advanced chat tier;
// any other error surfaces unchanged. The summarizer never fails over
// because it runs in the background.
type Cascade struct {
	basic      *GemmaClient
	advanced   *GemmaClient
	agent      *GemmaClient
	summarizer *GemmaClient
}

// NewCascade builds clients for every tier over a shared key pool.
func NewCascade(keys *KeyManager, baseURL string) *Cascade {
	return &Cascade{
		basic:      NewGemmaClient(keys, TierBasicChat, baseURL),
		advanced:   NewGemmaClient(keys, TierAdvancedChat, baseURL),
		agent:      NewGemmaClient(keys, TierAgent, baseURL),
		summarizer: NewGemmaClient(keys, TierSummarizer, baseURL),
	}
}

// ExecuteChat streams a chat completion on tier, falling back to the
// advanced tier on a rate limit. Returns the tier that actually served.
func (c *Cascade) ExecuteChat(ctx context.Context, tier Tier, systemPrompt string, msgs []chat.Message) (Stream, Tier, error) {
	primary := c.basic
	if tier == TierAdvancedChat {
		primary = c.advanced
	}
	stream, err := primary.StreamCompletion(ctx, systemPrompt, msgs, false)
	if err == nil {
		return stream, primary.Tier(), nil
	}
	if !errors.Is(err, ErrRateLimited) {
		return nil, 0, err
	}

	slog.Info("chat tier rate limited, failing over",
		"component", "provider", "from", primary.Tier().DisplayName(), "to", c.advanced.Tier().DisplayName())
	stream, err = c.advanced.StreamCompletion(ctx, systemPrompt, msgs, false)
	if err != nil {
		return nil, 0, fmt.Errorf("all chat models failed: %w", err)
	}
	return stream, TierAdvancedChat, nil
}

// ExecuteAgent streams an agent completion on the top tier, falling back to
// the advanced tier on a rate limit.
func (c *Cascade) ExecuteAgent(ctx context.Context, systemPrompt string, msgs []chat.Message) (Stream, Tier, error) {
	stream, err := c.agent.StreamCompletion(ctx, systemPrompt, msgs, true)
	if err == nil {
		return stream, TierAgent, nil
	}
	if !errors.Is(err, ErrRateLimited) {
		return nil, 0, err
	}

	slog.Info("agent tier rate limited, failing over",
		"component", "provider", "from", TierAgent.DisplayName(), "to", TierAdvancedChat.DisplayName())
	stream, err = c.advanced.StreamCompletion(ctx, systemPrompt, msgs, true)
	if err != nil {
		return nil, 0, fmt.Errorf("all agent models failed: %w", err)
	}
	return stream, TierAdvancedChat, nil
}

// Summarize runs the background summarizer tier, no failover.
func (c *Cascade) Summarize(ctx context.Context, msgs []chat.Message) (string, error) {
	return c.summarizer.Summarize(ctx, msgs)
}
