package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func relPaths(files []SourceFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.RelPath
	}
	return paths
}

func TestScan_FiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "x = 1\n")
	writeFile(t, root, "pkg/b.py", "def b(): pass\n")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "pkg/c.txt", "text\n")

	files, err := Scan(root, Options{Extensions: []string{"py"}, StorageDir: ".coderag"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.py", "pkg/b.py"}, relPaths(files))
	assert.Equal(t, "def b(): pass\n", string(files[1].Content))
	assert.Equal(t, int64(len("def b(): pass\n")), files[1].Size)
	assert.True(t, filepath.IsAbs(files[0].Path))
}

func TestScan_SkipsStorageDir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.py", "pass\n")
	writeFile(t, root, ".coderag/leak.py", "pass\n")
	writeFile(t, root, "nested/.coderag/leak.py", "pass\n")
	// A name that merely contains the storage dir name is kept.
	writeFile(t, root, "my.coderag.d/kept.py", "pass\n")

	files, err := Scan(root, Options{Extensions: []string{".py"}, StorageDir: ".coderag"})
	require.NoError(t, err)

	assert.Equal(t, []string{"main.py", "my.coderag.d/kept.py"}, relPaths(files))
}

func TestScan_IgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "app.py", "pass\n")
	writeFile(t, root, "venv/lib/site.py", "pass\n")
	writeFile(t, root, "gen_pb2.py", "pass\n")
	writeFile(t, root, "__pycache__/app.py", "pass\n")
	writeFile(t, root, IgnoreFile, "# generated\nvenv/\n*_pb2.py\n")

	files, err := Scan(root, Options{Extensions: []string{"py"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"app.py"}, relPaths(files))
}

func TestScan_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.py", "pass\n")
	writeFile(t, root, "big.py", "x = '0123456789'\n")

	files, err := Scan(root, Options{Extensions: []string{"py"}, MaxFileSize: 8})
	require.NoError(t, err)

	assert.Equal(t, []string{"small.py"}, relPaths(files))
}

func TestScan_UnreadableFileIsSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeFile(t, root, "ok.py", "pass\n")
	writeFile(t, root, "locked.py", "pass\n")
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.py"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(filepath.Join(root, "locked.py"), 0o644) })

	files, err := Scan(root, Options{Extensions: []string{"py"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"ok.py"}, relPaths(files))
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"), Options{Extensions: []string{"py"}})
	assert.Error(t, err)
}

func TestScan_RootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "pass\n")

	_, err := Scan(filepath.Join(root, "a.py"), Options{Extensions: []string{"py"}})
	assert.Error(t, err)
}
