package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/internal/config"
	"github.com/halcyonsec/guardian-cli/internal/workspace"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func testLoader(cfg config.CorpusConfig) *Loader {
	return NewLoader(cfg, zap.NewNop())
}

func TestLoad_Directory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", "x = 1")
	writeFile(t, root, "pkg/util.py", "y = 2")
	writeFile(t, root, "README.md", "# docs")

	files, err := testLoader(config.CorpusConfig{}).Load(context.Background(), root, nil)
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "x = 1", files["app.py"])
	assert.Equal(t, "y = 2", files["pkg/util.py"])
}

func TestLoad_SkipsVendoredDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", "x = 1")
	writeFile(t, root, ".git/hook.py", "ignored")
	writeFile(t, root, "node_modules/dep.js", "ignored")
	writeFile(t, root, "vendor/lib.go", "ignored")
	writeFile(t, root, "__pycache__/app.cpython-311.py", "ignored")

	files, err := testLoader(config.CorpusConfig{}).Load(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files, "app.py")
}

func TestLoad_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.py", "x = 1")
	writeFile(t, root, "big.py", strings.Repeat("x", 2048))

	files, err := testLoader(config.CorpusConfig{MaxFileBytes: 1024}).Load(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files, "small.py")
}

func TestLoad_ExtensionOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", "x = 1")
	writeFile(t, root, "main.rs", "fn main() {}")

	files, err := testLoader(config.CorpusConfig{Extensions: []string{".rs"}}).Load(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files, "main.rs")
}

func TestLoad_SingleFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "script.py", "print('hi')")

	files, err := testLoader(config.CorpusConfig{}).Load(context.Background(), filepath.Join(root, "script.py"), nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "print('hi')", files["script.py"])
}

func TestLoad_SingleFileUnsupportedExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.txt", "plain text")

	_, err := testLoader(config.CorpusConfig{}).Load(context.Background(), filepath.Join(root, "notes.txt"), nil)
	assert.Error(t, err)
}

func TestLoad_MissingTarget(t *testing.T) {
	_, err := testLoader(config.CorpusConfig{}).Load(context.Background(), "/does/not/exist", nil)
	assert.Error(t, err)
}

func TestLoad_GitCloneFailureSurfaces(t *testing.T) {
	ws, err := workspace.New(zap.NewNop())
	require.NoError(t, err)
	defer ws.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = testLoader(config.CorpusConfig{}).Load(ctx, "https://invalid.invalid/repo.git", ws)
	assert.Error(t, err)
}

func TestIsGitURL(t *testing.T) {
	assert.True(t, isGitURL("https://github.com/acme/repo.git"))
	assert.True(t, isGitURL("git@github.com:acme/repo.git"))
	assert.True(t, isGitURL("ssh://git@host/repo.git"))
	assert.False(t, isGitURL("./local/dir"))
	assert.False(t, isGitURL("/abs/path"))
}
