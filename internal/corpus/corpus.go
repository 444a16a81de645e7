// File: internal/corpus/corpus.go
// Loads the review corpus from a local directory or a remote git repository
// into the in-memory map the pipeline operates on.
package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/internal/config"
	"github.com/halcyonsec/guardian-cli/internal/workspace"
)

// Loader reads source files into memory, applying the extension and size
// filters from configuration.
type Loader struct {
	cfg    config.CorpusConfig
	logger *zap.Logger
}

func NewLoader(cfg config.CorpusConfig, logger *zap.Logger) *Loader {
	return &Loader{cfg: cfg, logger: logger.Named("corpus")}
}

// Load resolves the target to a file map. Targets beginning with a git URL
// scheme are cloned into the workspace first; everything else is treated as
// a local file or directory.
func (l *Loader) Load(ctx context.Context, target string, ws *workspace.Handle) (map[string]string, error) {
	if isGitURL(target) {
		dir, err := l.clone(ctx, target, ws)
		if err != nil {
			return nil, err
		}
		return l.loadDir(dir)
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("failed to stat target %q: %w", target, err)
	}
	if info.IsDir() {
		return l.loadDir(target)
	}
	return l.loadFile(target)
}

func isGitURL(target string) bool {
	return strings.HasPrefix(target, "http://") ||
		strings.HasPrefix(target, "https://") ||
		strings.HasPrefix(target, "git@") ||
		strings.HasPrefix(target, "ssh://")
}

func (l *Loader) clone(ctx context.Context, url string, ws *workspace.Handle) (string, error) {
	dir, err := ws.StageDir("clone")
	if err != nil {
		return "", err
	}
	l.logger.Info("Cloning repository", zap.String("url", url))
	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to clone %q: %w", url, err)
	}
	return dir, nil
}

func (l *Loader) loadFile(path string) (map[string]string, error) {
	if !l.wantExt(path) {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return map[string]string{filepath.Base(path): string(data)}, nil
}

func (l *Loader) loadDir(root string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == "node_modules" || name == "vendor" || strings.HasPrefix(name, "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if !l.wantExt(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if l.cfg.MaxFileBytes > 0 && info.Size() > l.cfg.MaxFileBytes {
			l.logger.Debug("Skipping oversized file", zap.String("path", path), zap.Int64("bytes", info.Size()))
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %q: %w", root, err)
	}
	l.logger.Info("Corpus loaded", zap.Int("files", len(files)))
	return files, nil
}

// defaultExtensions is the built-in whitelist used when configuration does
// not override it.
var defaultExtensions = []string{
	".py", ".js", ".ts", ".jsx", ".tsx", ".go", ".java", ".rb", ".php", ".c", ".cpp", ".cs",
}

func (l *Loader) wantExt(path string) bool {
	allowed := l.cfg.Extensions
	if len(allowed) == 0 {
		allowed = defaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range allowed {
		if ext == want {
			return true
		}
	}
	return false
}
