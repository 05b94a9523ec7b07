package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/sameer786ss/zoxapp/internal/agent"
)

// theme 控制台样式 / theme holds the console styles.
type theme struct {
	Status   lipgloss.Style
	Thinking lipgloss.Style
	Tool     lipgloss.Style
	File     lipgloss.Style
	Model    lipgloss.Style
	Error    lipgloss.Style
	Summary  lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		Status:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		Thinking: lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")).Italic(true),
		Tool:     lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")),
		File:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		Model:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		Summary:  lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
	}
}

// consoleEmitter renders agent events to the terminal and relays approval
// requests and task completion to the REPL loop. Stream chunks arrive as
// snapshots of the cleaned text so far; the emitter prints only the delta.
type consoleEmitter struct {
	out   io.Writer
	theme theme

	approvals chan agent.ApprovalPayload
	done      chan string

	mu      sync.Mutex
	printed string
}

func newConsoleEmitter(out io.Writer) *consoleEmitter {
	return &consoleEmitter{
		out:       out,
		theme:     defaultTheme(),
		approvals: make(chan agent.ApprovalPayload, 1),
		done:      make(chan string, 4),
	}
}

// terminal statuses that end a task without an agent-stream-end event.
func isErrorStatus(status string) bool {
	return status == "API Error" ||
		status == "Error connecting" ||
		status == "Error streaming" ||
		status == "Cancelled" ||
		strings.HasPrefix(status, "Error:")
}

func (c *consoleEmitter) Emit(event string, payload any) {
	switch event {
	case agent.EventStatus:
		status, _ := payload.(string)
		if isErrorStatus(status) {
			fmt.Fprintln(c.out, c.theme.Error.Render(status))
			c.signalDone("error")
			return
		}
		fmt.Fprintln(c.out, c.theme.Status.Render("["+status+"]"))
	case agent.EventStreamChunk:
		text, _ := payload.(string)
		c.printDelta(text)
	case agent.EventThinking:
		thinking, _ := payload.(string)
		fmt.Fprintln(c.out, c.theme.Thinking.Render("thinking: "+thinking))
	case agent.EventToolResult:
		tr, ok := payload.(agent.ToolResultPayload)
		if !ok {
			return
		}
		fmt.Fprintln(c.out, c.theme.Tool.Render(fmt.Sprintf("tool %s -> %s", tr.Tool, clipLine(tr.Result, 200))))
	case agent.EventFileAccess:
		fa, ok := payload.(agent.FileAccessPayload)
		if !ok {
			return
		}
		fmt.Fprintln(c.out, c.theme.File.Render(fmt.Sprintf("[%s] %s", fa.Action, fa.Path)))
	case agent.EventApprovalRequest:
		req, ok := payload.(agent.ApprovalPayload)
		if !ok {
			return
		}
		select {
		case c.approvals <- req:
		default:
		}
	case agent.EventMessageComplete:
		msg, ok := payload.(agent.MessagePayload)
		if !ok {
			return
		}
		c.flushLine()
		fmt.Fprintln(c.out, msg.Content)
	case agent.EventStreamEnd:
		reason, _ := payload.(string)
		c.flushLine()
		c.signalDone(reason)
	case agent.EventActiveModel:
		name, _ := payload.(string)
		fmt.Fprintln(c.out, c.theme.Model.Render("model: "+name))
	case agent.EventContextSummary:
		summary, _ := payload.(string)
		fmt.Fprintln(c.out, c.theme.Summary.Render("summary: "+clipLine(summary, 200)))
	}
}

// resetTask drains stale signals from a previous task and resets the
// stream delta tracking.
func (c *consoleEmitter) resetTask() {
	for {
		select {
		case <-c.done:
		case <-c.approvals:
		default:
			c.mu.Lock()
			c.printed = ""
			c.mu.Unlock()
			return
		}
	}
}

func (c *consoleEmitter) signalDone(reason string) {
	select {
	case c.done <- reason:
	default:
	}
}

// printDelta prints the unseen suffix of the snapshot. If the snapshot no
// longer extends what was printed, start a fresh line.
func (c *consoleEmitter) printDelta(snapshot string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.HasPrefix(snapshot, c.printed) {
		fmt.Fprint(c.out, snapshot[len(c.printed):])
	} else {
		fmt.Fprint(c.out, "\n"+snapshot)
	}
	c.printed = snapshot
}

// flushLine terminates the streamed line and resets delta tracking.
func (c *consoleEmitter) flushLine() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.printed != "" {
		fmt.Fprintln(c.out)
		c.printed = ""
	}
}

func clipLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

// renderApproval prints one approval request with pretty-printed parameters.
func renderApproval(out io.Writer, t theme, req agent.ApprovalPayload) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, t.File.Render("Approval required for tool="+req.Tool))
	if len(req.Parameters) > 0 {
		if data, err := json.MarshalIndent(req.Parameters, "", "  "); err == nil {
			fmt.Fprintln(out, string(data))
		}
	}
}
