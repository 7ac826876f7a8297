/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package tools

import (
	"context"
)

// ExecuteOptions configures a single tool invocation
type ExecuteOptions struct {
	// Tool is a command name resolved via PATH, or a path to an executable
	Tool string

	// Args to pass to the tool
	Args []string
}

// ExecuteResult contains the output of tool execution
type ExecuteResult struct {
	// ExitCode from the tool
	ExitCode int

	// Stdout contains standard output
	Stdout []byte

	// Stderr contains standard error
	Stderr []byte

	// Path is the resolved executable that was run
	Path string
}

// ToolExecutor executes external tools. A non-zero exit is reported through
// ExecuteResult.ExitCode, not as an error; errors mean the tool could not be run.
type ToolExecutor interface {
	Execute(ctx context.Context, opts ExecuteOptions) (*ExecuteResult, error)

	// IsAvailable checks if this executor can run the specified tool
	IsAvailable(tool string) bool

	// Name returns the executor name for logging
	Name() string
}
