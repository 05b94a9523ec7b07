package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sameer786ss/zoxapp/internal/security"
)

type writeFileTool struct {
	ws *security.Workspace
}

func (t *writeFileTool) Definition() Definition {
	return Definition{
		Name:             "write_file",
		Description:      "Write content to a file. Creates directories if needed. Requires APPROVAL.",
		InputSchema:      `{"type":"object","properties":{"path":{"type":"string"},"content":{"type":"string"}},"required":["path","content"]}`,
		RequiresApproval: true,
	}
}

func (t *writeFileTool) Execute(ctx context.Context, params map[string]any) string {
	rel := paramString(params, "path")
	if rel == "" {
		return "Error: 'path' field required"
	}
	content, ok := params["content"].(string)
	if !ok {
		return "Error: 'content' field required"
	}
	path, err := t.ws.Resolve(rel)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Sprintf("Error creating directories: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Sprintf("Error writing to '%s': %v", path, err)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path)
}
