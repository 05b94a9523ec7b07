// Package rag keeps an in-memory store of embedded context chunks and ranks
// them by cosine similarity so long conversations can pull back relevant
// history that the budgeted window already evicted.
package rag

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kinds of stored context.
const (
	KindObservation = "observation"
	KindSummary     = "summary"
	KindUserInput   = "user_input"
	KindAssistant   = "assistant"
)

// maxChunkLen bounds stored content so a single huge tool result cannot
// dominate the store.
const maxChunkLen = 512

// minChunkLen filters out fragments too short to ever be useful.
const minChunkLen = 10

// Chunk 一段带向量的上下文 / Chunk is one embedded piece of context.
type Chunk struct {
	ID        string
	Content   string
	Embedding []float32
	Kind      string
	Source    string
	Timestamp time.Time
}

// Embedder turns text into a vector. Implementations may call out to a
// remote service; errors degrade retrieval, never the conversation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store holds chunks and answers similarity queries.
type Store struct {
	mu     sync.RWMutex
	chunks []Chunk
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// ChunkContent normalizes text for storage: trimmed and truncated to
// maxChunkLen. ok is false when the text is too short to be worth keeping.
// Callers that embed before storing should embed this value, so the vector
// describes exactly what the store holds.
func ChunkContent(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if len(content) < minChunkLen {
		return "", false
	}
	if len(content) > maxChunkLen {
		content = content[:maxChunkLen]
	}
	return content, true
}

// Add stores a chunk. Content goes through ChunkContent; too-short content
// or a missing embedding makes Add a silent no-op, so callers can feed it
// everything without filtering first.
func (s *Store) Add(content string, embedding []float32, kind, source string) {
	content, ok := ChunkContent(content)
	if !ok || len(embedding) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, Chunk{
		ID:        uuid.NewString(),
		Content:   content,
		Embedding: embedding,
		Kind:      kind,
		Source:    source,
		Timestamp: time.Now().UTC(),
	})
}

// Len returns the number of stored chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Clear drops every chunk.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
}

// TopK returns the contents of the k chunks most similar to the query
// embedding, best first. Every chunk is ranked; a zero score still beats
// nothing when the store is small.
func (s *Store) TopK(query []float32, k int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 {
		return nil
	}
	type scored struct {
		score   float64
		content string
	}
	ranked := make([]scored, 0, len(s.chunks))
	for _, c := range s.chunks {
		ranked = append(ranked, scored{score: CosineSimilarity(query, c.Embedding), content: c.Content})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]string, 0, k)
	for _, r := range ranked[:k] {
		out = append(out, r.content)
	}
	return out
}

// CosineSimilarity 余弦相似度 / CosineSimilarity returns the cosine of the
// angle between two vectors, or 0 when lengths differ or either norm is 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
