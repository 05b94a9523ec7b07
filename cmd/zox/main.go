package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/sameer786ss/zoxapp/internal/agent"
	"github.com/sameer786ss/zoxapp/internal/config"
	"github.com/sameer786ss/zoxapp/internal/history"
	"github.com/sameer786ss/zoxapp/internal/provider"
	"github.com/sameer786ss/zoxapp/internal/rag"
	"github.com/sameer786ss/zoxapp/internal/security"
	"github.com/sameer786ss/zoxapp/internal/tools"
)

func main() {
	var (
		configPath string
		workspace  string
		offline    bool
	)
	flag.StringVar(&configPath, "config", "", "Path to config JSON/JSONC")
	flag.StringVar(&workspace, "cwd", "", "Workspace root override")
	flag.BoolVar(&offline, "offline", false, "Start with the local provider")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	root := strings.TrimSpace(workspace)
	if root == "" {
		root = cfg.Runtime.WorkspaceRoot
	}
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolve cwd failed: %v\n", err)
			os.Exit(1)
		}
	}
	ws, err := security.NewWorkspace(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init workspace failed: %v\n", err)
		os.Exit(1)
	}

	registry, err := tools.NewRegistry(ws)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init tools failed: %v\n", err)
		os.Exit(1)
	}

	var cloud provider.Provider
	if len(cfg.Provider.APIKeys) > 0 {
		cloud = provider.NewCloudProvider(cfg.Provider.APIKeys, cfg.Provider.BaseURL)
	}
	local := provider.NewLocalProvider(cfg.Local.Endpoint, cfg.Local.Model)

	startOffline := offline || cfg.Provider.Mode == "local"
	if cloud == nil && !startOffline {
		fmt.Fprintln(os.Stderr, "no API keys configured, starting in offline mode (set ZOX_API_KEYS to enable cloud)")
		startOffline = true
	}

	var embedder rag.Embedder
	if strings.TrimSpace(cfg.Embedding.APIKey) != "" {
		embedder = rag.NewOpenAIEmbedder(rag.EmbedderConfig{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
	}

	store, err := history.NewStore(cfg.Storage.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init history failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	emitter := newConsoleEmitter(os.Stdout)

	a, err := agent.New(agent.Options{
		Cloud:               cloud,
		Local:               local,
		Registry:            registry,
		Emitter:             emitter,
		History:             store,
		Embedder:            embedder,
		Logger:              logger,
		MaxSteps:            cfg.Runtime.MaxSteps,
		QueueSize:           cfg.Runtime.CommandQueueSize,
		ContextWindowTokens: cfg.Runtime.ContextWindowTokens,
		StreamBatchChars:    cfg.Runtime.StreamBatchChars,
		ToolTimeout:         toolTimeout(cfg),
		Offline:             startOffline,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init agent failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	inputReader := newLineInput(filepath.Join(filepath.Dir(cfg.Storage.HistoryPath), "repl.history"))
	defer inputReader.Close()

	mode := agent.ModeTurbo
	fmt.Printf("zox started in workspace: %s\n", ws.Root())
	fmt.Printf("provider: %s  mode: %s  conversation: %s\n", describeProvider(a.Provider()), mode, a.ConversationID())
	printREPLCommands(os.Stdout)

	for {
		line, err := inputReader.ReadLine("> ")
		if err != nil {
			switch {
			case errors.Is(err, readline.ErrInterrupt):
				fmt.Fprintln(os.Stdout)
				continue
			case errors.Is(err, io.EOF):
				fmt.Fprintln(os.Stderr, "\nexit")
				return
			default:
				fmt.Fprintf(os.Stderr, "read input failed: %v\n", err)
				return
			}
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handled, shouldExit := handleCommand(input, os.Stdout, a, store, &mode); handled {
				if shouldExit {
					return
				}
				continue
			}
			fmt.Println("unknown command (try /help)")
			continue
		}

		runTask(a, emitter, inputReader, input, mode)
	}
}

// runTask submits a prompt and pumps events until the task ends. Approval
// requests interleave with the wait: the user answers on the same terminal.
func runTask(a *agent.Agent, emitter *consoleEmitter, input lineInput, prompt string, mode agent.Mode) {
	emitter.resetTask()
	if err := a.Submit(agent.StartTask{Prompt: prompt, Mode: mode}); err != nil {
		fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
		return
	}

	for {
		select {
		case reason := <-emitter.done:
			if reason != agent.EndComplete {
				fmt.Printf("task ended: %s\n", reason)
			}
			return
		case req := <-emitter.approvals:
			renderApproval(os.Stdout, emitter.theme, req)
			line, err := input.ReadLine("Allow once? [y/N]: ")
			if err != nil {
				a.Approve(false)
				continue
			}
			answer := strings.ToLower(strings.TrimSpace(line))
			a.Approve(answer == "y" || answer == "yes")
		}
	}
}

func toolTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.Runtime.ToolTimeoutSeconds) * time.Second
}

// newLogger builds the process logger; level and format come from config.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
