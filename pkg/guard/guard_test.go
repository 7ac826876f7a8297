package guard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZone_IsProtected(t *testing.T) {
	root := t.TempDir()
	zone, err := NewZone(filepath.Join(root, SourcesDir))
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"zone root", filepath.Join(root, "docs", "tex", "sources"), true},
		{"file in zone", filepath.Join(root, "docs", "tex", "sources", "intro.tex"), true},
		{"nested in zone", filepath.Join(root, "docs", "tex", "sources", "adr", "0001.tex"), true},
		{"dot-dot back into zone", filepath.Join(root, "docs", "tex", "build", "..", "sources", "x.tex"), true},
		{"build output", filepath.Join(root, "docs", "tex", "build", "chapters", "adr", "0001.tex"), false},
		{"prefix sibling", filepath.Join(root, "docs", "tex", "sources2", "x.tex"), false},
		{"outside project", filepath.Join(t.TempDir(), "x.tex"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, zone.IsProtected(tt.path))
		})
	}
}

func TestZone_SymlinkIntoZone(t *testing.T) {
	root := t.TempDir()
	sources := filepath.Join(root, "docs", "tex", "sources")
	require.NoError(t, os.MkdirAll(sources, 0o750))
	link := filepath.Join(root, "shortcut")
	if err := os.Symlink(sources, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	zone, err := NewZone(filepath.Join(root, SourcesDir))
	require.NoError(t, err)
	assert.True(t, zone.IsProtected(filepath.Join(link, "chapter.tex")))
}

func TestZone_Check(t *testing.T) {
	root := t.TempDir()
	zone, err := NewZone(filepath.Join(root, SourcesDir))
	require.NoError(t, err)
	target := filepath.Join(root, "docs", "tex", "sources", "a.tex")

	err = zone.Check(target, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGuardViolation))
	var violation *ViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, target, violation.Target)
	assert.Contains(t, err.Error(), "without --force")

	assert.NoError(t, zone.Check(target, true))
	assert.NoError(t, zone.Check(filepath.Join(root, "docs", "tex", "build", "a.tex"), false))
}

func TestNilZoneProtectsNothing(t *testing.T) {
	var zone *Zone
	assert.False(t, zone.IsProtected("/anything"))
}
