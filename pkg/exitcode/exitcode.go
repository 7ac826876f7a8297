// Package exitcode provides standardized exit codes for md2tex
package exitcode

import (
	"errors"
	"fmt"
)

// Exit codes for the md2tex CLI
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	FileSystemError = 4
	ToolNotFound    = 9
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case FileSystemError:
		return "File system error"
	case ToolNotFound:
		return "Tool not found"
	default:
		return "Unknown error"
	}
}

// Error carries a process exit code through cobra's RunE chain.
// Silent errors have already been reported to the user and print nothing further.
type Error struct {
	Code   int
	Err    error
	Silent bool
}

func (e *Error) Error() string {
	if e.Err == nil {
		return String(e.Code)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap attaches an exit code to err.
func Wrap(code int, err error) error {
	return &Error{Code: code, Err: err}
}

// Silent returns an exit-code-only error for outcomes already printed (e.g. stale items in check mode).
func Silent(code int, format string, args ...interface{}) error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...), Silent: true}
}

// FromError resolves the exit code for err: Success for nil, the carried code for
// *Error anywhere in the chain, GeneralError otherwise.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return GeneralError
}

// IsSilent reports whether err was already reported to the user.
func IsSilent(err error) bool {
	var coded *Error
	return errors.As(err, &coded) && coded.Silent
}
