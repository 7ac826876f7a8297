// Package guard protects the hand-edited LaTeX sources from being overwritten by
// generated output.
package guard

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fulmenhq/md2tex/pkg/safeio"
)

// ErrGuardViolation is the sentinel for writes refused because they target the protected zone.
var ErrGuardViolation = errors.New("target inside protected sources area")

// SourcesDir is the project-relative protected zone.
var SourcesDir = filepath.Join("docs", "tex", "sources")

// ViolationError names the refused target.
type ViolationError struct {
	Target string
	Zone   string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("refusing to write into protected sources area without --force: %s", e.Target)
}

// Unwrap allows errors.Is comparisons with ErrGuardViolation.
func (e *ViolationError) Unwrap() error {
	return ErrGuardViolation
}

// Zone is a directory tree whose files are maintained by hand.
type Zone struct {
	root string
}

// NewZone canonicalizes dir and returns the zone rooted there.
func NewZone(dir string) (*Zone, error) {
	root, err := safeio.Canonical(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve protected zone %q: %w", dir, err)
	}
	return &Zone{root: root}, nil
}

// IsProtected reports whether path, once canonicalized, lies inside the zone.
// Paths that cannot be canonicalized are treated as protected.
func (z *Zone) IsProtected(path string) bool {
	if z == nil {
		return false
	}
	target, err := safeio.Canonical(path)
	if err != nil {
		return true
	}
	return safeio.Contains(z.root, target)
}

// Check returns a *ViolationError when path is protected and force is not set.
func (z *Zone) Check(path string, force bool) error {
	if force || !z.IsProtected(path) {
		return nil
	}
	return &ViolationError{Target: path, Zone: z.root}
}
