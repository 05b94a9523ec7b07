// Package parser turns raw model output into structured results. Small local
// models emit looser markup than a JSON tool-call API, so the parser searches
// aggressively for the XML tags the system prompt asks for instead of
// requiring a well-formed document.
package parser

import (
	"strconv"
	"strings"
)

// ToolCall is one tool invocation extracted from a response. Params values
// are int64, float64 or string depending on what the literal parses as.
type ToolCall struct {
	Name   string
	Params map[string]any
}

// Result is the outcome of parsing a complete response.
// 解析完整响应的结果 / either plain text or one or more tool calls.
type Result struct {
	// Text is the user-facing content: the whole response in chat mode, or
	// any prose that preceded the first tool call.
	Text string
	// Thinking holds the model's <thinking> block, if any.
	Thinking string
	// Calls lists every tool call found, in order of appearance.
	Calls []ToolCall
}

// HasTool reports whether the response carried at least one tool call.
func (r Result) HasTool() bool { return len(r.Calls) > 0 }

var fences = []string{"```xml", "```XML", "```json", "```JSON", "```", "~~~xml", "~~~"}

// Clean strips markdown code fences and <thinking> blocks from a response.
func Clean(response string) string {
	cleaned := response
	for _, f := range fences {
		cleaned = strings.ReplaceAll(cleaned, f, "")
	}
	for {
		start := strings.Index(cleaned, "<thinking>")
		end := strings.Index(cleaned, "</thinking>")
		if start < 0 || end < 0 || start >= end {
			break
		}
		cleaned = strings.TrimSpace(cleaned[:start]) + cleaned[end+len("</thinking>"):]
	}
	return strings.TrimSpace(cleaned)
}

// CleanDisplay prepares a response for display: fences and thinking go via
// Clean, then any remaining known tags are stripped.
func CleanDisplay(response string) string {
	return strings.TrimSpace(stripKnownTags(Clean(response)))
}

// Thinking extracts the first completed <thinking> block, "" when absent.
// Cheap enough to call on every streamed chunk.
func Thinking(response string) string {
	return tagContent(response, "thinking")
}

// Parse parses a complete response. Thinking is captured before cleanup so a
// leading <thinking> block survives into the result.
func Parse(response string) Result {
	thinking := tagContent(response, "thinking")
	cleaned := Clean(response)

	calls, before := findToolCalls(cleaned)
	if len(calls) > 0 {
		return Result{Text: strings.TrimSpace(before), Thinking: thinking, Calls: calls}
	}

	text := messageContent(cleaned)
	if text == "" {
		text = cleaned
	}
	return Result{Text: stripKnownTags(text), Thinking: thinking}
}

// findToolCalls scans for every <tool>...</tool> block in order. Each block's
// params come from the first <params> or <parameters> block between it and
// the next tool tag. Blocks with a blank name are skipped. Returns the calls
// and the prose before the first valid block.
func findToolCalls(cleaned string) ([]ToolCall, string) {
	var calls []ToolCall
	before := ""
	rest := cleaned
	first := true
	for {
		open := strings.Index(rest, "<tool>")
		if open < 0 {
			break
		}
		close := strings.Index(rest, "</tool>")
		if close < 0 || open >= close {
			break
		}
		name := strings.TrimSpace(rest[open+len("<tool>") : close])
		if first {
			before = rest[:open]
			first = false
		}
		rest = rest[close+len("</tool>"):]
		if name == "" {
			continue
		}

		// Params for this call live between its closing tag and the next
		// tool tag, if any.
		segment := rest
		if next := strings.Index(rest, "<tool>"); next >= 0 {
			segment = rest[:next]
		}
		paramsStr := tagContent(segment, "params")
		if paramsStr == "" {
			paramsStr = tagContent(segment, "parameters")
		}
		calls = append(calls, ToolCall{Name: name, Params: parseParams(paramsStr)})
	}
	return calls, before
}

// tagContent extracts the trimmed text between <tag> and </tag>, or "".
func tagContent(s, tag string) string {
	open := "<" + tag + ">"
	closeTag := "</" + tag + ">"
	start := strings.Index(s, open)
	end := strings.Index(s, closeTag)
	if start < 0 || end < 0 || start >= end {
		return ""
	}
	return strings.TrimSpace(s[start+len(open) : end])
}

// messageContent looks for the tags models use to wrap final answers.
func messageContent(s string) string {
	for _, tag := range []string{"message", "response", "content", "output"} {
		if c := tagContent(s, tag); c != "" {
			return c
		}
	}
	return ""
}

// stripKnownTags removes wrapper tags that must never reach the user.
func stripKnownTags(text string) string {
	result := text
	for _, tag := range []string{"thinking", "message", "response", "content", "output"} {
		result = strings.ReplaceAll(result, "<"+tag+">", "")
		result = strings.ReplaceAll(result, "</"+tag+">", "")
	}
	return strings.TrimSpace(result)
}

// parseParams parses nested tags like <path>main.go</path> into a map.
// Values are coerced int first, then float, then kept as string.
// 参数值按 整数→浮点→字符串 顺序尝试解析.
func parseParams(paramsStr string) map[string]any {
	params := make(map[string]any)
	remaining := paramsStr
	for {
		tagStart := strings.Index(remaining, "<")
		if tagStart < 0 {
			break
		}
		nameEnd := strings.Index(remaining[tagStart:], ">")
		if nameEnd < 0 {
			break
		}
		nameEnd += tagStart
		tagName := remaining[tagStart+1 : nameEnd]
		if tagName == "" || strings.HasPrefix(tagName, "/") {
			remaining = remaining[nameEnd+1:]
			continue
		}
		closeTag := "</" + tagName + ">"
		closePos := strings.Index(remaining, closeTag)
		if closePos < 0 {
			remaining = remaining[nameEnd+1:]
			continue
		}
		if nameEnd+1 < closePos {
			params[tagName] = coerce(strings.TrimSpace(remaining[nameEnd+1 : closePos]))
		}
		remaining = remaining[closePos+len(closeTag):]
	}
	return params
}

func coerce(value string) any {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
