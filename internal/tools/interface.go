// Package tools implements the built-in workspace tools and their registry.
// Tool output is always text: execution errors come back as observation
// strings the model can read and react to, never as Go errors that would
// abort the agent loop.
package tools

import "context"

// Definition describes one tool to the model and to the approval gate.
type Definition struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	InputSchema      string `json:"input_schema"`
	RequiresApproval bool   `json:"requires_approval"`
}

// Tool 工具接口 / Tool is one executable capability. Params arrive already
// parsed from the model response; Execute returns the observation text.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, params map[string]any) string
}

// paramString fetches a string parameter, "" when absent or mistyped.
func paramString(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

// paramInt fetches a numeric parameter accepting the coercions the response
// parser produces.
func paramInt(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}
