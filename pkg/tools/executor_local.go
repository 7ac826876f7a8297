/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/md2tex/pkg/logger"
)

// ErrToolNotFound is returned when a tool cannot be located on PATH or in the extra search dirs.
var ErrToolNotFound = errors.New("tool not found")

// LocalExecutor runs tools installed on the local system
type LocalExecutor struct {
	searchDirs []string
}

// NewLocalExecutor creates a new LocalExecutor
func NewLocalExecutor() *LocalExecutor {
	return &LocalExecutor{
		searchDirs: getSearchDirectories(),
	}
}

// Name returns the executor name
func (e *LocalExecutor) Name() string {
	return "local"
}

// IsAvailable checks if the tool is available locally
func (e *LocalExecutor) IsAvailable(tool string) bool {
	return e.FindToolPath(tool) != ""
}

// Execute runs the tool locally and blocks until it exits.
func (e *LocalExecutor) Execute(ctx context.Context, opts ExecuteOptions) (*ExecuteResult, error) {
	toolPath := e.FindToolPath(opts.Tool)
	if toolPath == "" {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, opts.Tool)
	}

	// #nosec G204 - toolPath is validated via FindToolPath
	cmd := exec.CommandContext(ctx, toolPath, opts.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Trace("running tool", logger.String("tool", toolPath), logger.String("args", strings.Join(opts.Args, " ")))
	err := cmd.Run()

	result := &ExecuteResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
		Path:   toolPath,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("failed to execute %s: %w", opts.Tool, err)
	}

	return result, nil
}

// FindToolPath resolves a tool to an executable path. Names containing a path
// separator are used as given; bare names are looked up on PATH and then in
// common user install locations that CI shells often leave off PATH.
func (e *LocalExecutor) FindToolPath(toolName string) string {
	if toolName == "" {
		return ""
	}

	if strings.ContainsRune(toolName, filepath.Separator) || strings.ContainsRune(toolName, '/') {
		if st, err := os.Stat(toolName); err == nil && !st.IsDir() {
			return toolName
		}
		return ""
	}

	if path, err := exec.LookPath(toolName); err == nil {
		return path
	}

	for _, dir := range e.searchDirs {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, toolName)
		if runtime.GOOS == "windows" && !strings.HasSuffix(candidate, ".exe") {
			candidate += ".exe"
		}
		if _, err := os.Stat(candidate); err == nil {
			logger.Debug(fmt.Sprintf("found %s in %s", toolName, dir))
			return candidate
		}
	}

	return ""
}

// getSearchDirectories returns install locations used by pandoc and python
// installers (pipx, cabal, Homebrew) that may be missing from PATH.
func getSearchDirectories() []string {
	var dirs []string
	if homeDir, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(homeDir, ".local", "bin"),
			filepath.Join(homeDir, ".cabal", "bin"),
		)
	}
	if runtime.GOOS == "darwin" {
		dirs = append(dirs, "/opt/homebrew/bin", "/usr/local/bin")
	}

	existing := dirs[:0]
	for _, d := range dirs {
		if st, err := os.Stat(d); err == nil && st.IsDir() {
			existing = append(existing, d)
		}
	}
	return existing
}
