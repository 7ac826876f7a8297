package project

import (
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved(t *testing.T, p string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(p)
	require.NoError(t, err)
	return r
}

func TestFindRoot_GitWorktree(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)
	src := filepath.Join(root, "docs", "ADR")
	require.NoError(t, os.MkdirAll(src, 0o750))

	got, err := FindRoot(src)
	require.NoError(t, err)
	assert.Equal(t, resolved(t, root), resolved(t, got))
}

func TestFindRoot_Marker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pyproject.toml"), []byte("[project]\n"), 0o600))
	src := filepath.Join(root, "docs", "guide")
	require.NoError(t, os.MkdirAll(src, 0o750))
	file := filepath.Join(src, "a.md")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	got, err := FindRoot(file)
	require.NoError(t, err)
	assert.Equal(t, resolved(t, root), resolved(t, got))
}
