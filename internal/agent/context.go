package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sameer786ss/zoxapp/internal/chat"
	"github.com/sameer786ss/zoxapp/internal/rag"
)

const (
	// optimizeThreshold is the conversation length above which the full
	// window is no longer sent verbatim.
	optimizeThreshold = 12
	// recentTurns is how many trailing turns are always sent.
	recentTurns = 8
	// retrievalK is how many retrieved chunks are prepended.
	retrievalK = 5
)

// buildOptimizedMessages selects what the model sees. Short conversations go
// through unchanged. Longer ones get semantically relevant chunks retrieved
// for the latest user turn, then the most recent turns for recency. When
// retrieval has nothing, a running summary of the older turns stands in.
func (a *Agent) buildOptimizedMessages(ctx context.Context) []chat.Message {
	all := a.window.Messages()
	if len(all) <= optimizeThreshold {
		return all
	}

	var query string
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Role == chat.RoleUser {
			query = all[i].Content
			break
		}
	}

	var optimized []chat.Message

	relevant := a.retrieve(ctx, query)
	if len(relevant) > 0 {
		optimized = append(optimized,
			chat.User(fmt.Sprintf("[Relevant Context]\n%s\n[End Context]", strings.Join(relevant, "\n---\n"))),
			chat.Model("I've reviewed the relevant context."),
		)
		a.logger.Debug("retrieval context added", "chunks", len(relevant))
	} else if summary := a.getOrCreateSummary(ctx, all); summary != "" {
		optimized = append(optimized,
			chat.User(fmt.Sprintf("[Conversation Summary]\n%s\n[End Summary]", summary)),
			chat.Model("I've reviewed the conversation summary."),
		)
	}

	recent := all
	if len(recent) > recentTurns {
		recent = recent[len(recent)-recentTurns:]
	}
	optimized = append(optimized, recent...)

	a.logger.Debug("context optimized",
		"from", len(all), "to", len(optimized),
		"tokens", a.tok.Count(optimized), "precise", a.tok.IsPrecise())
	return optimized
}

// retrieve embeds the query and returns the top matching chunks.
func (a *Agent) retrieve(ctx context.Context, query string) []string {
	if a.embedder == nil || a.store.Len() == 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	embedding, err := a.embedder.Embed(ctx, query)
	if err != nil {
		a.logger.Debug("query embedding failed", "error", err)
		return nil
	}
	return a.store.TopK(embedding, retrievalK)
}

// getOrCreateSummary returns a condensed view of everything except the most
// recent turns, regenerating it once enough new turns have accumulated.
func (a *Agent) getOrCreateSummary(ctx context.Context, all []chat.Message) string {
	p := a.provider()
	if !p.Capabilities().Summarization {
		return ""
	}

	a.mu.Lock()
	cached := a.summary
	a.mu.Unlock()

	if len(all) < 6 {
		return cached
	}
	// A fresh enough summary is reused unless the window is under token
	// pressure, then it is regenerated early.
	pressured := a.tok.Count(all) > a.window.Budget()*8/10
	if cached != "" && len(all) < 10 && !pressured {
		return cached
	}
	if len(all) <= 3 {
		return ""
	}

	a.emitter.Emit(EventSummaryPending, true)
	summary, ok := p.Summarize(ctx, all[:len(all)-3])
	a.emitter.Emit(EventSummaryPending, false)
	if !ok {
		a.logger.Warn("summarization failed")
		return cached
	}

	a.mu.Lock()
	a.summary = summary
	a.mu.Unlock()
	a.emitter.Emit(EventContextSummary, summary)
	a.indexSummary(ctx, summary)
	return summary
}

// indexSummary makes the summary retrievable after its turns are pruned.
func (a *Agent) indexSummary(ctx context.Context, summary string) {
	if a.embedder == nil {
		return
	}
	content, ok := rag.ChunkContent(summary)
	if !ok {
		return
	}
	embedding, err := a.embedder.Embed(ctx, content)
	if err != nil {
		a.logger.Debug("summary embedding failed", "error", err)
		return
	}
	a.store.Add(content, embedding, rag.KindSummary, a.ConversationID())
}
