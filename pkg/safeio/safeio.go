// Package safeio holds path canonicalization and containment helpers shared by the
// protected-zone guard and the planner.
package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Canonical returns the absolute, cleaned form of p with symlinks resolved for the
// longest prefix of p that exists on disk. Non-existent trailing components are
// appended unchanged, so targets that have not been generated yet still canonicalize
// consistently with their existing parent directories.
func Canonical(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", errors.New("empty path")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	existing := abs
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			// Nothing on the path exists; the cleaned absolute form is the best we can do.
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{resolved}, rest...)...), nil
}

// Contains reports whether path lies within baseDir (baseDir itself included).
// Both arguments are expected to be canonical; see Canonical.
func Contains(baseDir, path string) bool {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
