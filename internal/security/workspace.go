// Package security confines all file access to a workspace root.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathOutsideWorkspace is returned for any path that resolves outside the
// workspace root, including escapes through symlinks.
var ErrPathOutsideWorkspace = errors.New("path outside workspace")

// Workspace 工作区根目录 / Workspace is the directory tree tools may touch.
type Workspace struct {
	root string
}

// NewWorkspace resolves root to an absolute, symlink-free path.
func NewWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs workspace root: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Root may not exist yet; keep the absolute path.
		resolved = abs
	}
	return &Workspace{root: resolved}, nil
}

// Root returns the resolved workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Resolve normalizes path component by component, follows symlinks, and
// verifies the result stays under the root. Relative paths are joined to the
// root; an empty path means the root itself. The check runs on the resolved
// path, never on the raw string, so "docs/../../etc" and symlink tricks both
// fail with ErrPathOutsideWorkspace.
func (w *Workspace) Resolve(path string) (string, error) {
	target := path
	if strings.TrimSpace(target) == "" {
		target = w.root
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(w.root, target)
	}

	clean := filepath.Clean(target)
	resolved, err := resolveWithParentSymlink(clean)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(w.root, resolved)
	if err != nil {
		return "", fmt.Errorf("relative path check: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", ErrPathOutsideWorkspace
	}
	return resolved, nil
}

// Rel returns path relative to the root for display. Falls back to the
// input when the path is not under the root.
func (w *Workspace) Rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return path
	}
	return rel
}

// resolveWithParentSymlink follows symlinks for paths that may not exist
// yet, such as the target of a file about to be written. The deepest
// existing ancestor is resolved and the remaining components re-joined.
func resolveWithParentSymlink(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("resolve symlink: %w", err)
	}

	parent := filepath.Dir(path)
	base := filepath.Base(path)
	parentResolved, perr := filepath.EvalSymlinks(parent)
	if perr != nil {
		if errors.Is(perr, os.ErrNotExist) {
			parentResolved = parent
		} else {
			return "", fmt.Errorf("resolve parent symlink: %w", perr)
		}
	}
	return filepath.Join(parentResolved, base), nil
}
