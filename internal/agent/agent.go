// Package agent runs the orchestration loop: it owns the conversation
// window, routes prompts to a provider, parses streamed responses for tool
// calls, gates risky tools behind user approval and reports progress as
// events. It holds no global state; everything it needs is injected.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sameer786ss/zoxapp/internal/approval"
	"github.com/sameer786ss/zoxapp/internal/chat"
	"github.com/sameer786ss/zoxapp/internal/history"
	"github.com/sameer786ss/zoxapp/internal/memory"
	"github.com/sameer786ss/zoxapp/internal/provider"
	"github.com/sameer786ss/zoxapp/internal/rag"
	"github.com/sameer786ss/zoxapp/internal/tools"
)

// Mode selects how a task is executed.
type Mode string

const (
	// ModeChat is conversational: one model turn, no tools.
	ModeChat Mode = "chat"
	// ModeTurbo is the tool-use loop.
	ModeTurbo Mode = "turbo"
)

// ErrQueueFull is returned by Submit when the command queue is at capacity.
var ErrQueueFull = errors.New("agent command queue is full")

// Command 指令 / Command is one unit of work for the agent loop.
type Command interface{ isCommand() }

// StartTask runs a prompt in the given mode.
type StartTask struct {
	Prompt string
	Mode   Mode
}

// CancelTask aborts the running task, if any.
type CancelTask struct{}

// SetConnectionMode switches between the cloud and local provider.
type SetConnectionMode struct {
	Offline bool
}

// UserFeedback answers a pending approval request. It is the fallback path;
// the primary path is Approve.
type UserFeedback struct {
	Approved bool
}

func (StartTask) isCommand()         {}
func (CancelTask) isCommand()        {}
func (SetConnectionMode) isCommand() {}
func (UserFeedback) isCommand()      {}

// Options configures a new Agent. Cloud and Registry are required; the rest
// default to sensible values or are optional.
type Options struct {
	Cloud    provider.Provider
	Local    provider.Provider
	Registry *tools.Registry
	Emitter  Emitter
	History  *history.Store
	Embedder rag.Embedder
	Logger   *slog.Logger

	MaxSteps            int
	QueueSize           int
	ContextWindowTokens int
	StreamBatchChars    int
	ToolTimeout         time.Duration

	// Offline selects the local provider at startup.
	Offline bool
}

// Agent 编排器 / Agent is the orchestration loop.
type Agent struct {
	registry *tools.Registry
	exec     *tools.Executor
	gate     *approval.Gate
	emitter  Emitter
	window   *memory.Window
	tok      *memory.Tokenizer
	store    *rag.Store
	embedder rag.Embedder
	history  *history.Store
	logger   *slog.Logger

	cloud provider.Provider
	local provider.Provider

	maxSteps   int
	batchChars int

	queue chan Command

	mu       sync.Mutex
	prov     provider.Provider
	conv     *history.Conversation
	summary  string
	cancelFn context.CancelFunc
}

// New builds an Agent. It starts with a fresh conversation in chat mode.
func New(opts Options) (*Agent, error) {
	if opts.Cloud == nil && opts.Local == nil {
		return nil, errors.New("agent needs at least one provider")
	}
	if opts.Registry == nil {
		return nil, errors.New("agent needs a tool registry")
	}
	if opts.Emitter == nil {
		opts.Emitter = NopEmitter{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 15
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}
	if opts.ContextWindowTokens <= 0 {
		opts.ContextWindowTokens = 28000
	}
	if opts.StreamBatchChars <= 0 {
		opts.StreamBatchChars = 100
	}

	exec := tools.NewExecutor(opts.Registry)
	if opts.ToolTimeout > 0 {
		exec = exec.WithTimeout(opts.ToolTimeout)
	}

	active := opts.Cloud
	if opts.Offline || active == nil {
		active = opts.Local
	}

	return &Agent{
		registry:   opts.Registry,
		exec:       exec,
		gate:       approval.NewGate(),
		emitter:    opts.Emitter,
		window:     memory.NewWindow(opts.ContextWindowTokens),
		tok:        memory.NewTokenizer("cl100k_base"),
		store:      rag.NewStore(),
		embedder:   opts.Embedder,
		history:    opts.History,
		logger:     opts.Logger.With("component", "agent"),
		cloud:      opts.Cloud,
		local:      opts.Local,
		maxSteps:   opts.MaxSteps,
		batchChars: opts.StreamBatchChars,
		queue:      make(chan Command, opts.QueueSize),
		prov:       active,
		conv:       history.NewConversation(string(ModeChat)),
	}, nil
}

// Submit enqueues a command without blocking.
func (a *Agent) Submit(cmd Command) error {
	select {
	case a.queue <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes commands until ctx is cancelled. Tasks execute one at a
// time in submission order.
func (a *Agent) Run(ctx context.Context) {
	a.logger.Info("agent started", "provider", a.provider().Name())
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-a.queue:
			a.dispatch(ctx, cmd)
		}
	}
}

func (a *Agent) dispatch(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case StartTask:
		a.mu.Lock()
		a.conv.Mode = string(c.Mode)
		a.mu.Unlock()

		taskCtx, cancel := context.WithCancel(ctx)
		a.mu.Lock()
		a.cancelFn = cancel
		a.mu.Unlock()

		if c.Mode == ModeTurbo {
			a.runTurbo(taskCtx, c.Prompt)
		} else {
			a.runChat(taskCtx, c.Prompt)
		}

		a.mu.Lock()
		a.cancelFn = nil
		a.mu.Unlock()
		cancel()
	case CancelTask:
		a.Cancel()
	case SetConnectionMode:
		a.setConnectionMode(c.Offline)
	case UserFeedback:
		if !a.gate.Resolve(c.Approved) {
			a.logger.Debug("feedback with no pending approval", "approved", c.Approved)
		}
	}
}

// Cancel aborts the running task and denies any pending approval. Safe to
// call from any goroutine; the loop observes the context on its next check.
func (a *Agent) Cancel() {
	a.mu.Lock()
	cancel := a.cancelFn
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.gate.CancelPending()
	a.emitStatus("Cancelled")
}

// Approve resolves the pending approval request, approving or denying it.
// It reports whether a request was pending.
func (a *Agent) Approve(approved bool) bool {
	return a.gate.Resolve(approved)
}

// Provider returns the active provider.
func (a *Agent) Provider() provider.Provider { return a.provider() }

func (a *Agent) provider() provider.Provider {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prov
}

func (a *Agent) setConnectionMode(offline bool) {
	a.mu.Lock()
	switched := false
	if offline && a.local != nil {
		a.prov = a.local
		switched = true
	} else if !offline && a.cloud != nil {
		a.prov = a.cloud
		switched = true
	}
	name := a.prov.Name()
	a.mu.Unlock()

	if !switched {
		a.emitStatus("Connection mode unavailable")
		return
	}
	a.logger.Info("connection mode switched", "offline", offline, "provider", name)
	if offline {
		a.emitStatus("Switched to offline mode")
	} else {
		a.emitStatus("Switched to cloud mode")
	}
}

// StartNewConversation discards the window and begins a fresh conversation.
func (a *Agent) StartNewConversation(mode Mode) {
	a.mu.Lock()
	a.conv = history.NewConversation(string(mode))
	a.summary = ""
	a.mu.Unlock()
	a.window.Clear()
	a.store.Clear()
}

// LoadConversation restores a stored conversation into the window.
func (a *Agent) LoadConversation(id string) error {
	if a.history == nil {
		return errors.New("history store not configured")
	}
	conv, err := a.history.Load(id)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	a.mu.Lock()
	a.conv = conv
	a.summary = ""
	a.mu.Unlock()
	a.window.Replace(conv.Turns)
	a.store.Clear()
	return nil
}

// ConversationID returns the id of the current conversation.
func (a *Agent) ConversationID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conv.ID
}

// saveAndPersist appends a turn to the window, the stored conversation and
// the retrieval index. Persistence failures are logged, never fatal.
func (a *Agent) saveAndPersist(ctx context.Context, msg chat.Message) {
	a.window.Push(msg)

	a.mu.Lock()
	a.conv.Turns = append(a.conv.Turns, msg)
	conv := a.conv
	a.mu.Unlock()

	if a.history != nil {
		if err := a.history.Save(conv); err != nil {
			a.logger.Warn("persist conversation failed", "id", conv.ID, "error", err)
		}
	}
	a.remember(ctx, msg, conv.ID)
}

// remember indexes a turn for retrieval when an embedder is configured. The
// embedded text is the chunk the store will hold, so the vector matches it
// and trivial turns never cost an embedding call.
func (a *Agent) remember(ctx context.Context, msg chat.Message, source string) {
	if a.embedder == nil {
		return
	}
	content, ok := rag.ChunkContent(msg.Content)
	if !ok {
		return
	}
	kind := rag.KindUserInput
	switch {
	case msg.Role == chat.RoleModel:
		kind = rag.KindAssistant
	case strings.HasPrefix(msg.Content, "<observation>"):
		kind = rag.KindObservation
	}
	embedding, err := a.embedder.Embed(ctx, content)
	if err != nil {
		a.logger.Debug("embedding failed", "error", err)
		return
	}
	a.store.Add(content, embedding, kind, source)
}

func (a *Agent) emitStatus(status string) {
	a.emitter.Emit(EventStatus, status)
}

func (a *Agent) emitActiveModel(p provider.Provider) {
	if tier, ok := p.ActiveTier(); ok {
		a.emitter.Emit(EventActiveModel, tier.DisplayName())
	}
}
