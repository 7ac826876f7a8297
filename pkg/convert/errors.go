package convert

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConversionFailed is the sentinel for converter or post-processor failures. It is
// fatal to a build run.
var ErrConversionFailed = errors.New("conversion failed")

// FailedError describes one failed tool invocation.
type FailedError struct {
	Tool     string
	Source   string
	ExitCode int
	Output   string
	Err      error
}

func (e *FailedError) Error() string {
	var b strings.Builder
	if e.Err != nil {
		fmt.Fprintf(&b, "%s could not run for %s: %v", e.Tool, e.Source, e.Err)
	} else {
		fmt.Fprintf(&b, "%s exited with status %d for %s", e.Tool, e.ExitCode, e.Source)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		fmt.Fprintf(&b, ": %s", out)
	}
	return b.String()
}

// Unwrap allows errors.Is comparisons with ErrConversionFailed and the launch error.
func (e *FailedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConversionFailed, e.Err}
	}
	return []error{ErrConversionFailed}
}
