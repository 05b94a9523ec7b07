package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sameer786ss/zoxapp/internal/chat"
)

// DefaultGeminiBaseURL is the production API endpoint. Tests point the
// client at an httptest server instead.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const systemAck = "I understand the system instructions. I am ready to act as the AI coding agent."

// GemmaClient 单个梯队的 HTTP 客户端 / GemmaClient calls one model tier
// over the Gemini streaming API.
type GemmaClient struct {
	httpClient *http.Client
	keys       *KeyManager
	tier       Tier
	baseURL    string
}

// NewGemmaClient builds a client for tier. An empty baseURL selects the
// production endpoint.
func NewGemmaClient(keys *KeyManager, tier Tier, baseURL string) *GemmaClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	return &GemmaClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		keys:       keys,
		tier:       tier,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Tier returns the tier this client serves.
func (c *GemmaClient) Tier() Tier { return c.tier }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64  `json:"temperature"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type streamResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *apiError `json:"error"`
}

var defaultSafety = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
}

// buildContents maps conversation turns to the two-role wire vocabulary.
// The system prompt goes in as a synthetic user message plus a fixed model
// acknowledgment because the upstream has no system role. Tool observations
// are sent as user turns so the model reads them as observations.
func buildContents(systemPrompt string, msgs []chat.Message) []geminiContent {
	contents := make([]geminiContent, 0, len(msgs)+2)
	contents = append(contents, geminiContent{
		Role: "user",
		Parts: []geminiPart{{Text: fmt.Sprintf(
			"SYSTEM INSTRUCTION:\n%s\n\nCONFIRM YOU UNDERSTAND BY ACKNOWLEDGING.", systemPrompt)}},
	})
	contents = append(contents, geminiContent{
		Role:  "model",
		Parts: []geminiPart{{Text: systemAck}},
	})
	for _, msg := range msgs {
		role := "user"
		if msg.Role == chat.RoleModel || msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}
	return contents
}

// StreamCompletion streams a completion for the conversation. A 429 rotates
// the key pool and returns ErrRateLimited so the cascade can fail over
// before anything was streamed.
func (c *GemmaClient) StreamCompletion(ctx context.Context, systemPrompt string, msgs []chat.Message, turbo bool) (Stream, error) {
	temp := 0.8
	if turbo {
		temp = 0.4
	}
	topP := 0.95
	topK := 40
	reqBody := generateRequest{
		Contents: buildContents(systemPrompt, msgs),
		GenerationConfig: generationConfig{
			Temperature:     temp,
			TopP:            &topP,
			TopK:            &topK,
			MaxOutputTokens: 8192,
		},
		SafetySettings: defaultSafety,
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s",
		c.baseURL, c.tier.ModelName(), c.keys.Current())
	resp, err := c.post(ctx, url, reqBody)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		c.keys.Rotate()
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	out := make(chan Chunk, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				if text, perr := parseSSELine(line); perr != nil {
					out <- Chunk{Err: perr}
					return
				} else if text != "" {
					select {
					case out <- Chunk{Text: text}:
					case <-ctx.Done():
						return
					}
				}
			}
			if err != nil {
				if err != io.EOF && ctx.Err() == nil {
					out <- Chunk{Err: fmt.Errorf("read stream: %w", err)}
				}
				return
			}
		}
	}()
	return out, nil
}

// parseSSELine extracts text from one "data: {...}" line. Unparseable
// payloads are skipped; an error object from the API is fatal.
func parseSSELine(line string) (string, error) {
	payload, ok := strings.CutPrefix(strings.TrimSpace(line), "data: ")
	if !ok {
		return "", nil
	}
	var sr streamResponse
	if err := json.Unmarshal([]byte(payload), &sr); err != nil {
		return "", nil
	}
	if sr.Error != nil {
		return "", fmt.Errorf("api error: %d - %s", sr.Error.Code, sr.Error.Message)
	}
	var sb strings.Builder
	for _, cand := range sr.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// Classify asks the tier to grade input as SIMPLE or COMPLEX. The prompt is
// kept to one line because the router tier is tiny.
func (c *GemmaClient) Classify(ctx context.Context, input string) (string, error) {
	short := input
	if runes := []rune(short); len(runes) > 100 {
		short = string(runes[:100])
	}
	reqBody := generateRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: fmt.Sprintf("Classify as SIMPLE or COMPLEX: %q", short)}},
		}},
		GenerationConfig: generationConfig{Temperature: 0, MaxOutputTokens: 5},
	}
	text, err := c.generateOnce(ctx, reqBody)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(text)), nil
}

// Summarize condenses the last five turns, each clipped to 100 characters.
func (c *GemmaClient) Summarize(ctx context.Context, msgs []chat.Message) (string, error) {
	start := len(msgs) - 5
	if start < 0 {
		start = 0
	}
	parts := make([]string, 0, 5)
	for _, m := range msgs[start:] {
		content := m.Content
		if runes := []rune(content); len(runes) > 100 {
			content = string(runes[:100])
		}
		parts = append(parts, m.Role+": "+content)
	}
	reqBody := generateRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: "Summarize in 2 sentences: " + strings.Join(parts, " | ")}},
		}},
		GenerationConfig: generationConfig{Temperature: 0.2, MaxOutputTokens: 100},
	}
	return c.generateOnce(ctx, reqBody)
}

// generateOnce performs a non-streaming generateContent call.
func (c *GemmaClient) generateOnce(ctx context.Context, reqBody generateRequest) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.tier.ModelName(), c.keys.Current())
	resp, err := c.post(ctx, url, reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests {
		c.keys.Rotate()
		return "", ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var sr streamResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if sr.Error != nil {
		return "", fmt.Errorf("api error: %d - %s", sr.Error.Code, sr.Error.Message)
	}
	var sb strings.Builder
	for _, cand := range sr.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

func (c *GemmaClient) post(ctx context.Context, url string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	slog.Debug("gemini request", "component", "provider", "tier", c.tier.DisplayName())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return resp, nil
}
