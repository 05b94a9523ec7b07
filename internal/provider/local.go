package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

// LocalState tracks the local model lifecycle.
type LocalState int

const (
	LocalUnloaded LocalState = iota
	LocalLoading
	LocalReady
	LocalUnloading
	LocalError
)

func (s LocalState) String() string {
	switch s {
	case LocalUnloaded:
		return "unloaded"
	case LocalLoading:
		return "loading"
	case LocalReady:
		return "ready"
	case LocalUnloading:
		return "unloading"
	case LocalError:
		return "error"
	}
	return "unknown"
}

// LocalProvider 本地模型后端 / LocalProvider speaks the OpenAI-compatible
// API of a local llama server. The model loads lazily on first use and the
// whole response arrives as a single chunk because the small local runtime
// does not stream.
type LocalProvider struct {
	client *openai.Client
	model  string

	mu      sync.Mutex
	state   LocalState
	lastErr error
}

// NewLocalProvider builds a provider against endpoint, e.g.
// "http://127.0.0.1:8080/v1".
func NewLocalProvider(endpoint, model string) *LocalProvider {
	cfg := openai.DefaultConfig("local")
	cfg.BaseURL = endpoint
	if model == "" {
		model = TierLocal.ModelName()
	}
	return &LocalProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		state:  LocalUnloaded,
	}
}

func (p *LocalProvider) Name() string { return "Local Model" }

func (p *LocalProvider) Capabilities() Capabilities {
	return Capabilities{
		Tools:            true,
		Streaming:        false,
		Cascade:          false,
		Summarization:    false,
		MaxContextTokens: 4096,
	}
}

// State returns the current lifecycle state.
func (p *LocalProvider) State() LocalState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ensureReady lazily loads the model: probes the server once and latches
// Ready or Error. A previous Error retries from scratch.
func (p *LocalProvider) ensureReady(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case LocalReady:
		p.mu.Unlock()
		return nil
	case LocalLoading, LocalUnloading:
		err := fmt.Errorf("local model busy: %s", p.state)
		p.mu.Unlock()
		return err
	}
	p.state = LocalLoading
	p.mu.Unlock()

	slog.Info("loading local model", "component", "provider", "model", p.model)
	_, err := p.client.ListModels(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.state = LocalError
		p.lastErr = err
		return fmt.Errorf("load local model: %w", err)
	}
	p.state = LocalReady
	p.lastErr = nil
	return nil
}

// Unload releases the model so another process can have the memory.
func (p *LocalProvider) Unload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != LocalReady {
		return
	}
	p.state = LocalUnloading
	// The llama server frees the slot when the connection goes idle;
	// nothing to call remotely.
	p.state = LocalUnloaded
}

func (p *LocalProvider) complete(ctx context.Context, systemPrompt string, msgs []chat.Message, temperature float32) (string, error) {
	if err := p.ensureReady(ctx); err != nil {
		return "", err
	}
	wire := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	wire = append(wire, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == chat.RoleModel || m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		wire = append(wire, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    wire,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("local completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("local completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *LocalProvider) Chat(ctx context.Context, systemPrompt string, msgs []chat.Message) (Stream, error) {
	text, err := p.complete(ctx, systemPrompt, msgs, 0.8)
	if err != nil {
		return nil, err
	}
	return singleChunkStream(text), nil
}

func (p *LocalProvider) Agent(ctx context.Context, systemPrompt string, msgs []chat.Message) (Stream, error) {
	text, err := p.complete(ctx, systemPrompt, msgs, 0.4)
	if err != nil {
		return nil, err
	}
	return singleChunkStream(text), nil
}

func (p *LocalProvider) Classify(ctx context.Context, input string) (Complexity, bool) {
	return Simple, false
}

func (p *LocalProvider) Summarize(ctx context.Context, msgs []chat.Message) (string, bool) {
	return "", false
}

func (p *LocalProvider) ActiveTier() (Tier, bool) {
	if p.State() == LocalReady {
		return TierLocal, true
	}
	return TierLocal, false
}
