package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/chunkgrep/pkg/types"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.log"))
	touch(t, filepath.Join(root, "a.log"))
	touch(t, filepath.Join(root, "sub", "deep", "c.log"))
	require.NoError(t, os.Symlink(filepath.Join(root, "a.log"), filepath.Join(root, "link.log")))

	explicit := filepath.Join(root, "b.log")
	files, diags := Files([]string{explicit}, []string{root})

	assert.Empty(t, diags)
	assert.Equal(t, []string{
		explicit,
		filepath.Join(root, "a.log"),
		filepath.Join(root, "sub", "deep", "c.log"),
	}, files)
}

func TestFiles_missingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	files, diags := Files(nil, []string{missing})

	assert.Empty(t, files)
	require.Len(t, diags, 1)
	assert.Equal(t, types.DiagIO, diags[0].Kind)
	assert.Equal(t, missing, diags[0].Path)
}

func TestFiles_noDirectories(t *testing.T) {
	files, diags := Files([]string{"x", "y", "x"}, nil)
	assert.Equal(t, []string{"x", "y"}, files)
	assert.Empty(t, diags)
}
