package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sameer786ss/zoxapp/internal/security"
)

// Registry 工具注册表 / Registry holds the built-in tools keyed by name and
// the compiled parameter schemas used to validate model-supplied arguments
// before anything touches the filesystem.
type Registry struct {
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
}

// NewRegistry builds the registry with every built-in tool bound to ws.
func NewRegistry(ws *security.Workspace) (*Registry, error) {
	r := &Registry{
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
	builtins := []Tool{
		&readFileTool{ws: ws},
		&writeFileTool{ws: ws},
		&replaceLinesTool{ws: ws},
		&searchProjectTool{ws: ws},
		&listFilesTool{ws: ws},
	}
	for _, tool := range builtins {
		if err := r.register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(tool Tool) error {
	def := tool.Definition()
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(def.Name+".json", strings.NewReader(def.InputSchema)); err != nil {
		return fmt.Errorf("add schema for %s: %w", def.Name, err)
	}
	schema, err := compiler.Compile(def.Name + ".json")
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", def.Name, err)
	}
	r.tools[def.Name] = tool
	r.schemas[def.Name] = schema
	return nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions lists every tool definition sorted by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// RequiresApproval reports whether the named tool gates on the user.
// Unknown names answer false; execution rejects them later anyway.
func (r *Registry) RequiresApproval(name string) bool {
	t, ok := r.tools[name]
	return ok && t.Definition().RequiresApproval
}

// Validate checks params against the tool's input schema. Params are
// round-tripped through JSON so coerced Go types validate like wire data.
func (r *Registry) Validate(name string, params map[string]any) error {
	schema, ok := r.schemas[name]
	if !ok {
		return fmt.Errorf("unknown tool %q", name)
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("unmarshal params: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
