// File: internal/workspace/workspace.go
// A scratch directory with scoped acquisition and guaranteed cleanup. Stages
// that need disk (external linters, git clones) work under path-namespaced
// subdirectories so concurrent stages never interfere.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Handle owns one scratch directory for the lifetime of a run.
type Handle struct {
	root   string
	logger *zap.Logger
}

// New acquires a fresh scratch directory.
func New(logger *zap.Logger) (*Handle, error) {
	root, err := os.MkdirTemp("", "guardian_workspace_")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Handle{root: root, logger: logger.Named("workspace")}, nil
}

// Root returns the workspace root directory.
func (h *Handle) Root() string {
	return h.root
}

// StageDir returns a subdirectory reserved for the named stage, creating it
// on first use.
func (h *Handle) StageDir(stage string) (string, error) {
	dir := filepath.Join(h.root, stage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create stage dir %q: %w", stage, err)
	}
	return dir, nil
}

// WriteFiles materializes the corpus under the given stage directory and
// returns the relative-path → absolute-path mapping.
func (h *Handle) WriteFiles(stage string, files map[string]string) (map[string]string, error) {
	dir, err := h.StageDir(stage)
	if err != nil {
		return nil, err
	}

	paths := make(map[string]string, len(files))
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create dir for %q: %w", rel, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %q: %w", rel, err)
		}
		paths[rel] = full
	}
	return paths, nil
}

// Cleanup removes the workspace. Safe to call multiple times and on every
// exit path.
func (h *Handle) Cleanup() {
	if h.root == "" {
		return
	}
	if err := os.RemoveAll(h.root); err != nil {
		h.logger.Warn("Failed to remove workspace", zap.String("root", h.root), zap.Error(err))
		return
	}
	h.root = ""
}
