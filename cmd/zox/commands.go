package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sameer786ss/zoxapp/internal/agent"
	"github.com/sameer786ss/zoxapp/internal/history"
	"github.com/sameer786ss/zoxapp/internal/provider"
)

var replCommands = []string{
	"/help                 show commands",
	"/mode [chat|turbo]    show or set execution mode",
	"/provider [cloud|local] show or switch provider",
	"/model                show active model",
	"/history              list stored conversations",
	"/load <id>            resume a conversation",
	"/delete <id>          delete a conversation",
	"/new                  start a fresh conversation",
	"/cancel               cancel the running task",
	"/exit, /quit          leave",
}

func printREPLCommands(out io.Writer) {
	if out == nil {
		return
	}
	fmt.Fprintln(out, "commands:")
	for _, cmd := range replCommands {
		fmt.Fprintf(out, "  %s\n", cmd)
	}
}

// handleCommand processes a slash command. Returns handled and shouldExit.
func handleCommand(
	input string,
	out io.Writer,
	a *agent.Agent,
	store *history.Store,
	mode *agent.Mode,
) (bool, bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false, false
	}
	switch parts[0] {
	case "/exit", "/quit":
		return true, true
	case "/help":
		printREPLCommands(out)
		return true, false
	case "/mode":
		if len(parts) < 2 {
			fmt.Fprintf(out, "mode: %s\n", *mode)
			return true, false
		}
		switch parts[1] {
		case "chat":
			*mode = agent.ModeChat
		case "turbo":
			*mode = agent.ModeTurbo
		default:
			fmt.Fprintln(out, "usage: /mode [chat|turbo]")
			return true, false
		}
		fmt.Fprintf(out, "mode set to %s\n", *mode)
		return true, false
	case "/provider":
		if len(parts) < 2 {
			fmt.Fprintf(out, "provider: %s\n", a.Provider().Name())
			return true, false
		}
		switch parts[1] {
		case "cloud":
			a.Submit(agent.SetConnectionMode{Offline: false})
		case "local":
			a.Submit(agent.SetConnectionMode{Offline: true})
		default:
			fmt.Fprintln(out, "usage: /provider [cloud|local]")
		}
		return true, false
	case "/model":
		if tier, ok := a.Provider().ActiveTier(); ok {
			fmt.Fprintf(out, "model: %s (%s)\n", tier.DisplayName(), tier.ModelName())
		} else {
			fmt.Fprintln(out, "model: not loaded")
		}
		return true, false
	case "/history":
		listConversations(out, store)
		return true, false
	case "/load":
		if len(parts) < 2 {
			fmt.Fprintln(out, "usage: /load <id>")
			return true, false
		}
		if err := a.LoadConversation(parts[1]); err != nil {
			fmt.Fprintf(out, "load failed: %v\n", err)
			return true, false
		}
		fmt.Fprintf(out, "loaded conversation %s\n", parts[1])
		return true, false
	case "/delete":
		if len(parts) < 2 {
			fmt.Fprintln(out, "usage: /delete <id>")
			return true, false
		}
		if store == nil {
			fmt.Fprintln(out, "history not configured")
			return true, false
		}
		if err := store.Delete(parts[1]); err != nil {
			fmt.Fprintf(out, "delete failed: %v\n", err)
			return true, false
		}
		fmt.Fprintf(out, "deleted conversation %s\n", parts[1])
		return true, false
	case "/new":
		a.StartNewConversation(*mode)
		fmt.Fprintf(out, "new conversation: %s\n", a.ConversationID())
		return true, false
	case "/cancel":
		a.Cancel()
		return true, false
	}
	return false, false
}

func listConversations(out io.Writer, store *history.Store) {
	if store == nil {
		fmt.Fprintln(out, "history not configured")
		return
	}
	metas, err := store.List()
	if err != nil {
		fmt.Fprintf(out, "list failed: %v\n", err)
		return
	}
	if len(metas) == 0 {
		fmt.Fprintln(out, "no conversations")
		return
	}
	for _, meta := range metas {
		fmt.Fprintf(out, "%s  mode=%-5s  turns=%-3d  updated=%s  %s\n",
			meta.ID, meta.Mode, meta.TurnCount, meta.UpdatedAt, meta.Title)
	}
}

// describeProvider summarizes a provider for the startup banner.
func describeProvider(p provider.Provider) string {
	caps := p.Capabilities()
	attrs := make([]string, 0, 3)
	if caps.Cascade {
		attrs = append(attrs, "cascade")
	}
	if caps.Tools {
		attrs = append(attrs, "tools")
	}
	if caps.Streaming {
		attrs = append(attrs, "streaming")
	}
	if len(attrs) == 0 {
		return p.Name()
	}
	return fmt.Sprintf("%s (%s)", p.Name(), strings.Join(attrs, ", "))
}
