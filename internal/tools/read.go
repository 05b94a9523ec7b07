package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sameer786ss/zoxapp/internal/security"
)

type readFileTool struct {
	ws *security.Workspace
}

func (t *readFileTool) Definition() Definition {
	return Definition{
		Name:        "read_file",
		Description: "Read content of a file. Path is relative to workspace.",
		InputSchema: `{"type":"object","properties":{"path":{"type":"string"}},"required":["path"]}`,
	}
}

func (t *readFileTool) Execute(ctx context.Context, params map[string]any) string {
	// Models sometimes quote the path; strip that before resolving.
	rel := strings.Trim(strings.TrimSpace(paramString(params, "path")), `"`)
	path, err := t.ws.Resolve(rel)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Error reading '%s': %v", path, err)
	}
	return string(data)
}
