package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedConfig is the sentinel for registry files that do not match the expected shape.
var ErrMalformedConfig = errors.New("malformed registry")

// Problem is one schema or syntax violation found in a registry file.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// MalformedConfigError lists every problem found while loading a registry file.
type MalformedConfigError struct {
	Path     string
	Problems []Problem
	Err      error
}

func (e *MalformedConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "malformed registry %s", e.Path)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	for _, p := range e.Problems {
		fmt.Fprintf(&b, "\n  - %s: %s", p.Field, p.Message)
	}
	return b.String()
}

// Unwrap allows errors.Is comparisons with ErrMalformedConfig.
func (e *MalformedConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedConfig, e.Err}
	}
	return []error{ErrMalformedConfig}
}

// IsMalformed reports whether err came from a registry that failed validation.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedConfig)
}
