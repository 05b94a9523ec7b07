package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sameer786ss/zoxapp/internal/security"
)

const maxSearchMatches = 50

// skipDirs are never descended into during a search.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"target":       true,
	"vendor":       true,
}

type searchProjectTool struct {
	ws *security.Workspace
}

func (t *searchProjectTool) Definition() Definition {
	return Definition{
		Name:        "search_project",
		Description: "Search the workspace for a text pattern.",
		InputSchema: `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
	}
}

// Execute matches the query case-insensitively against both file names and
// file contents, capped at maxSearchMatches results.
func (t *searchProjectTool) Execute(ctx context.Context, params map[string]any) string {
	query := strings.TrimSpace(paramString(params, "query"))
	if query == "" {
		return "Error: 'query' cannot be empty"
	}
	lowerQuery := strings.ToLower(query)

	var out strings.Builder
	matches := 0
	scanned := 0
	root := t.ws.Root()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if matches >= maxSearchMatches {
			return filepath.SkipAll
		}
		scanned++
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = path
		}

		if strings.Contains(strings.ToLower(rel), lowerQuery) {
			fmt.Fprintf(&out, "Filename match: %s\n", rel)
			matches++
		}

		data, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if matches >= maxSearchMatches {
				break
			}
			if strings.Contains(strings.ToLower(line), lowerQuery) {
				clipped := line
				if runes := []rune(clipped); len(runes) > 100 {
					clipped = string(runes[:100])
				}
				fmt.Fprintf(&out, "%s:%d:%s\n", rel, i+1, clipped)
				matches++
			}
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll && ctx.Err() == nil {
		return fmt.Sprintf("Error searching: %v", err)
	}

	if out.Len() == 0 {
		return fmt.Sprintf("No matches found for '%s' (scanned %d files in %s)", query, scanned, root)
	}
	return fmt.Sprintf("Found %d matches:\n%s", matches, out.String())
}
