package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sameer786ss/zoxapp/internal/chat"
	"github.com/sameer786ss/zoxapp/internal/parser"
	"github.com/sameer786ss/zoxapp/internal/provider"
)

// nudgeObservation is injected when the model answers with neither a tool
// call nor any text, so the loop does not burn steps on empty turns.
const nudgeObservation = "<observation>Your response was empty. Reply with a <message> or a tool call.</observation>"

// runTurbo drives the tool-use loop: prompt the model, parse for tool calls,
// execute with approval gating, feed observations back, until the model
// answers in prose or the step budget runs out.
func (a *Agent) runTurbo(ctx context.Context, prompt string) {
	p := a.provider()
	a.emitStatus("Thinking...")
	a.emitActiveModel(p)

	a.saveAndPersist(ctx, chat.User(prompt))

	step := 0
	for step < a.maxSteps && ctx.Err() == nil {
		step++
		a.logger.Debug("turbo step", "step", step, "max", a.maxSteps)

		messages := a.buildOptimizedMessages(ctx)
		sp := parser.NewStreamingTurbo()

		a.emitter.Emit(EventStreaming, true)
		stream, err := p.Agent(ctx, turboSystemPrompt, messages)
		if err != nil {
			a.logger.Error("provider request failed", "error", err)
			a.emitStatus("API Error")
			a.emitter.Emit(EventStreaming, false)
			return
		}

		full, streamErr := a.consumeStream(ctx, stream, sp, true)
		a.emitter.Emit(EventStreaming, false)
		if streamErr != nil {
			a.logger.Error("stream failed", "error", streamErr)
			a.emitStatus(fmt.Sprintf("Error: %v", streamErr))
			return
		}
		if ctx.Err() != nil {
			return
		}
		a.emitActiveModel(p)

		result := sp.Finalize()
		a.saveAndPersist(ctx, chat.Model(full))

		if !result.HasTool() {
			text := strings.TrimSpace(result.Text)
			if text == "" {
				a.saveAndPersist(ctx, chat.User(nudgeObservation))
				a.emitStatus("Thinking...")
				continue
			}
			a.emitter.Emit(EventMessageComplete, MessagePayload{Role: chat.RoleModel, Content: text})
			a.emitStatus("Ready")
			a.emitter.Emit(EventStreamEnd, EndComplete)
			return
		}

		denied := false
		for _, call := range result.Calls {
			observation, d := a.handleToolExecution(ctx, call)
			if ctx.Err() != nil {
				return
			}
			if d {
				denied = true
				break
			}
			a.emitter.Emit(EventToolResult, ToolResultPayload{
				Tool:       call.Name,
				Parameters: call.Params,
				Result:     observation,
			})
			a.saveAndPersist(ctx, chat.User(fmt.Sprintf("<observation>%s</observation>", observation)))
		}

		if denied {
			// The denial observation is already in the window. Give the
			// model one more turn to acknowledge, unless the budget is gone.
			if step >= a.maxSteps {
				a.emitStatus("Denied")
				a.emitter.Emit(EventStreamEnd, EndDenied)
				return
			}
			a.emitStatus("Responding...")
			continue
		}
		a.emitStatus("Thinking...")
	}

	if ctx.Err() != nil {
		return
	}
	a.emitStatus("Max steps reached")
	a.emitter.Emit(EventStreamEnd, EndMaxSteps)
}

// runChat answers a single conversational turn without tools.
func (a *Agent) runChat(ctx context.Context, prompt string) {
	p := a.provider()
	a.emitStatus("Thinking...")
	a.emitActiveModel(p)

	a.saveAndPersist(ctx, chat.User(prompt))

	messages := a.buildOptimizedMessages(ctx)
	sp := parser.NewStreaming()

	a.emitter.Emit(EventStreaming, true)
	stream, err := p.Chat(ctx, chatSystemPrompt, messages)
	if err != nil {
		a.logger.Error("provider request failed", "error", err)
		a.emitStatus("Error connecting")
		a.emitter.Emit(EventStreaming, false)
		return
	}

	full, streamErr := a.consumeStream(ctx, stream, sp, false)
	a.emitter.Emit(EventStreaming, false)
	if streamErr != nil {
		// A chat stream that broke mid-way still produced usable text;
		// keep what arrived.
		a.logger.Warn("stream interrupted", "error", streamErr)
		a.emitStatus("Error streaming")
	}
	if ctx.Err() != nil {
		return
	}
	a.emitActiveModel(p)

	a.saveAndPersist(ctx, chat.Model(full))
	a.emitStatus("Ready")
	a.emitter.Emit(EventStreamEnd, EndComplete)
}

// consumeStream drains a provider stream through the streaming parser,
// batching display output so the frontend is not flooded with tiny deltas.
// Every batch re-emits the cleaned text accumulated so far; consumers treat
// EventStreamChunk as a snapshot, not a delta. Tool-bearing responses in
// turbo mode are never streamed as display text.
func (a *Agent) consumeStream(ctx context.Context, stream provider.Stream, sp *parser.Streaming, turbo bool) (string, error) {
	var full strings.Builder
	buffered := 0
	lastThinking := ""

	flush := func(force bool) {
		if !force && buffered < a.batchChars {
			return
		}
		buffered = 0
		if turbo && a.looksLikeToolResponse(full.String(), sp) {
			return
		}
		if cleaned := parser.CleanDisplay(full.String()); cleaned != "" {
			a.emitter.Emit(EventStreamChunk, cleaned)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return full.String(), nil
		case chunk, ok := <-stream:
			if !ok {
				if full.Len() > 0 {
					flush(true)
				}
				return full.String(), nil
			}
			if chunk.Err != nil {
				return full.String(), chunk.Err
			}

			for _, ev := range sp.Feed(chunk.Text) {
				if ev.Kind == parser.EventToolCalls {
					a.emitStatus("Tool detected...")
				}
			}

			full.WriteString(chunk.Text)
			buffered += len(chunk.Text)

			if thinking := parser.Thinking(full.String()); thinking != "" && thinking != lastThinking {
				lastThinking = thinking
				a.emitter.Emit(EventThinking, thinking)
			}

			flush(false)
		}
	}
}

// looksLikeToolResponse guards display streaming: once the response mentions
// a tool tag or any registered tool name, nothing is shown until finalize.
func (a *Agent) looksLikeToolResponse(text string, sp *parser.Streaming) bool {
	if sp.ToolDetected() || strings.Contains(text, "<tool>") {
		return true
	}
	for _, def := range a.registry.Definitions() {
		if strings.Contains(text, def.Name) {
			return true
		}
	}
	return false
}

// handleToolExecution runs one tool call through approval and the executor.
// The second return is true when the user denied the tool; the denial
// observation has then already been persisted.
func (a *Agent) handleToolExecution(ctx context.Context, call parser.ToolCall) (string, bool) {
	a.emitStatus("Executing: " + call.Name)
	a.logger.Info("tool call", "tool", call.Name)

	if _, ok := a.registry.Get(call.Name); !ok {
		return fmt.Sprintf("Error: Tool '%s' not found", call.Name), false
	}

	if a.registry.RequiresApproval(call.Name) {
		req := a.gate.Submit(call.Name, call.Params)
		a.emitter.Emit(EventApprovalRequest, ApprovalPayload{Tool: call.Name, Parameters: call.Params})
		a.emitStatus("Waiting Approval...")

		if !req.Await(ctx) {
			a.logger.Info("tool denied", "tool", call.Name)
			a.saveAndPersist(ctx, chat.User(fmt.Sprintf(
				"<observation>User DENIED the %s tool. Acknowledge this gracefully and ask what they would like to do instead. Do not retry the tool.</observation>", call.Name)))
			return "", true
		}
	}

	a.emitFileAccess(call)

	return a.exec.Execute(ctx, call.Name, call.Params), false
}

// emitFileAccess publishes which workspace path a file tool touched.
func (a *Agent) emitFileAccess(call parser.ToolCall) {
	switch call.Name {
	case "read_file", "write_file", "replace_lines", "list_files":
	default:
		return
	}
	path, _ := call.Params["path"].(string)
	if path == "" {
		return
	}
	action := "read"
	if call.Name == "write_file" || call.Name == "replace_lines" {
		action = "write"
	}
	a.emitter.Emit(EventFileAccess, FileAccessPayload{Action: action, Path: path})
}
