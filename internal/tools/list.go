package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sameer786ss/zoxapp/internal/security"
)

type listFilesTool struct {
	ws *security.Workspace
}

func (t *listFilesTool) Definition() Definition {
	return Definition{
		Name:        "list_files",
		Description: "List files and directories in a path.",
		InputSchema: `{"type":"object","properties":{"path":{"type":"string"}}}`,
	}
}

func (t *listFilesTool) Execute(ctx context.Context, params map[string]any) string {
	rel := paramString(params, "path")
	if rel == "" {
		rel = "."
	}
	path, err := t.ws.Resolve(rel)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return fmt.Sprintf("Error: '%s' is not a directory", path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Sprintf("Error reading directory: %v", err)
	}

	items := make([]string, 0, len(entries))
	for _, entry := range entries {
		prefix := "[file] "
		if entry.IsDir() {
			prefix = "[dir]  "
		}
		items = append(items, prefix+entry.Name())
	}
	sort.Strings(items)
	return fmt.Sprintf("Contents of %s:\n%s", path, strings.Join(items, "\n"))
}
