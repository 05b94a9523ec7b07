package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sameer786ss/zoxapp/internal/security"
)

type replaceLinesTool struct {
	ws *security.Workspace
}

func (t *replaceLinesTool) Definition() Definition {
	return Definition{
		Name:             "replace_lines",
		Description:      "Replace specific line range in a file. Lines are 1-indexed. Use for precise edits. Requires APPROVAL.",
		InputSchema:      `{"type":"object","properties":{"path":{"type":"string"},"start_line":{"type":"number"},"end_line":{"type":"number"},"new_content":{"type":"string"}},"required":["path","start_line"]}`,
		RequiresApproval: true,
	}
}

func (t *replaceLinesTool) Execute(ctx context.Context, params map[string]any) string {
	rel := paramString(params, "path")
	if rel == "" {
		return "Error: 'path' field required"
	}
	startLine := paramInt(params, "start_line", 1)
	endLine := paramInt(params, "end_line", startLine)
	newContent := paramString(params, "new_content")

	if startLine <= 0 || endLine <= 0 {
		return "Error: Lines are 1-indexed, cannot be 0"
	}
	if startLine > endLine {
		return "Error: start_line cannot be greater than end_line"
	}

	path, err := t.ws.Resolve(rel)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error reading file: %v", err)
	}

	lines := splitLines(string(data))
	total := len(lines)
	if startLine > total {
		return fmt.Sprintf("Error: start_line %d exceeds file length %d", startLine, total)
	}

	endIdx := endLine
	if endIdx > total {
		endIdx = total
	}
	result := make([]string, 0, total)
	result = append(result, lines[:startLine-1]...)
	if newContent != "" {
		result = append(result, splitLines(newContent)...)
	}
	result = append(result, lines[endIdx:]...)

	if err := os.WriteFile(path, []byte(strings.Join(result, "\n")), 0o644); err != nil {
		return fmt.Sprintf("Error writing file: %v", err)
	}
	return fmt.Sprintf("Replaced lines %d-%d in %s. File now has %d lines.", startLine, endIdx, path, len(result))
}

// splitLines splits on newlines without producing a trailing empty element
// for a final newline.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
