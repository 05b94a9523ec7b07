package provider

import (
	"context"
	"sync"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

// CloudProvider runs the full tiered cascade over the Gemini API: a router
// tier for classification, two chat tiers, the agent tier and a background
// summarizer. One key pool serves all tiers.
type CloudProvider struct {
	router  *Router
	cascade *Cascade

	mu     sync.RWMutex
	active Tier
}

// NewCloudProvider builds the provider. baseURL is empty in production.
func NewCloudProvider(apiKeys []string, baseURL string) *CloudProvider {
	keys := NewKeyManager(apiKeys)
	return &CloudProvider{
		router:  NewRouter(NewGemmaClient(keys, TierRouter, baseURL)),
		cascade: NewCascade(keys, baseURL),
		active:  TierAgent,
	}
}

func (p *CloudProvider) Name() string { return "Gemini Cloud" }

func (p *CloudProvider) Capabilities() Capabilities {
	return Capabilities{
		Tools:            true,
		Streaming:        true,
		Cascade:          true,
		Summarization:    true,
		MaxContextTokens: 128000,
	}
}

// Chat classifies the newest user turn, picks a chat tier, and streams with
// failover.
func (p *CloudProvider) Chat(ctx context.Context, systemPrompt string, msgs []chat.Message) (Stream, error) {
	input := ""
	if len(msgs) > 0 {
		input = msgs[len(msgs)-1].Content
	}
	tier := TierBasicChat
	if p.router.Classify(ctx, input) == Complex {
		tier = TierAdvancedChat
	}
	p.setActive(tier)

	stream, served, err := p.cascade.ExecuteChat(ctx, tier, systemPrompt, msgs)
	if err != nil {
		return nil, err
	}
	p.setActive(served)
	return stream, nil
}

// Agent always starts on the strongest tier.
func (p *CloudProvider) Agent(ctx context.Context, systemPrompt string, msgs []chat.Message) (Stream, error) {
	p.setActive(TierAgent)
	stream, served, err := p.cascade.ExecuteAgent(ctx, systemPrompt, msgs)
	if err != nil {
		return nil, err
	}
	p.setActive(served)
	return stream, nil
}

func (p *CloudProvider) Classify(ctx context.Context, input string) (Complexity, bool) {
	return p.router.Classify(ctx, input), true
}

func (p *CloudProvider) Summarize(ctx context.Context, msgs []chat.Message) (string, bool) {
	summary, err := p.cascade.Summarize(ctx, msgs)
	if err != nil {
		return "", false
	}
	return summary, true
}

func (p *CloudProvider) ActiveTier() (Tier, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active, true
}

func (p *CloudProvider) setActive(t Tier) {
	p.mu.Lock()
	p.active = t
	p.mu.Unlock()
}
