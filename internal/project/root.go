// Package project locates the repository root that anchors the default output
// directory, the protected zone and the post-processor script.
package project

import (
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// Markers identify a project root when no git repository is found.
var Markers = []string{".git", "pyproject.toml", "setup.cfg", "go.mod"}

// FindRoot returns the project root for start, which may be a file or directory.
// The enclosing git worktree wins; otherwise the nearest ancestor holding one of
// Markers; otherwise start itself (its directory, for a file). It only reads the
// filesystem and is meant to be called once, from the entry point.
func FindRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	if st, err := os.Stat(abs); err == nil && !st.IsDir() {
		abs = filepath.Dir(abs)
	}

	if root, ok := gitWorktreeRoot(abs); ok {
		return root, nil
	}
	if root, ok := markerRoot(abs); ok {
		return root, nil
	}
	return abs, nil
}

func gitWorktreeRoot(dir string) (string, bool) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", false
	}
	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no worktree; fall back to the git dir's parent.
		if st, ok := repo.Storer.(*filesystem.Storage); ok {
			return filepath.Dir(st.Filesystem().Root()), true
		}
		return "", false
	}
	return wt.Filesystem.Root(), true
}

func markerRoot(dir string) (string, bool) {
	for current := dir; ; {
		for _, m := range Markers {
			if _, err := os.Stat(filepath.Join(current, m)); err == nil {
				return current, true
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}
