// Package convert runs the external Markdown -> LaTeX converter and the optional
// post-processor for planned work items.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fulmenhq/md2tex/pkg/digest"
	"github.com/fulmenhq/md2tex/pkg/logger"
	"github.com/fulmenhq/md2tex/pkg/registry"
	"github.com/fulmenhq/md2tex/pkg/tools"
	"github.com/fulmenhq/md2tex/pkg/work"
)

// DefaultPandoc is the converter command used when none is configured.
const DefaultPandoc = "pandoc"

// Config selects the external tools.
type Config struct {
	// Pandoc is the converter command or path.
	Pandoc string
	// Python is the interpreter that runs the post-processor.
	Python string
	// PostProcessScript is run as `<Python> <script> <artifact dir>` after each
	// conversion. Empty, or a path that does not exist, disables the step.
	PostProcessScript string
	// Tools runs the subprocesses.
	Tools tools.ToolExecutor
}

// Executor performs conversions one at a time.
type Executor struct {
	config Config
}

// New returns an Executor, filling unset tools with defaults.
func New(config Config) *Executor {
	if config.Pandoc == "" {
		config.Pandoc = DefaultPandoc
	}
	if config.Python == "" {
		config.Python = registry.DefaultPython
	}
	if config.Tools == nil {
		config.Tools = tools.NewLocalExecutor()
	}
	return &Executor{config: config}
}

// Execute converts one item and returns the registry entry describing the result.
// Any tool failure is returned as a *FailedError.
func (e *Executor) Execute(ctx context.Context, item work.Item) (registry.Entry, error) {
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(item.Target), 0o750); err != nil {
		return registry.Entry{}, fmt.Errorf("create output dir for %s: %w", item.Target, err)
	}

	args := []string{"--from=markdown", "--to=latex", "--highlight-style=pygments", item.Source, "-o", item.Target}
	if err := e.run(ctx, e.config.Pandoc, args, item.Source); err != nil {
		return registry.Entry{}, err
	}

	if err := e.postProcess(ctx, item); err != nil {
		return registry.Entry{}, err
	}

	entry, err := Record(item)
	if err != nil {
		return registry.Entry{}, err
	}
	logger.Debug("converted",
		logger.String("source", item.Name),
		logger.String("target", item.Target),
		logger.Duration("elapsed", time.Since(start)))
	return entry, nil
}

func (e *Executor) postProcess(ctx context.Context, item work.Item) error {
	script := e.config.PostProcessScript
	if script == "" {
		return nil
	}
	if _, err := os.Stat(script); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Trace("post-processor not present, skipping", logger.String("script", script))
			return nil
		}
		return fmt.Errorf("stat post-processor %s: %w", script, err)
	}
	return e.run(ctx, e.config.Python, []string{script, filepath.Dir(item.Target)}, item.Source)
}

func (e *Executor) run(ctx context.Context, tool string, args []string, source string) error {
	res, err := e.config.Tools.Execute(ctx, tools.ExecuteOptions{Tool: tool, Args: args})
	if err != nil {
		return &FailedError{Tool: tool, Source: source, Err: err}
	}
	if res.ExitCode != 0 {
		output := string(res.Stderr)
		if len(output) == 0 {
			output = string(res.Stdout)
		}
		return &FailedError{Tool: tool, Source: source, ExitCode: res.ExitCode, Output: output}
	}
	return nil
}

// Record fingerprints a converted item's source and artifact. LastConverted is the
// artifact's modification time in Unix seconds.
func Record(item work.Item) (registry.Entry, error) {
	in, err := digest.File(item.Source)
	if err != nil {
		return registry.Entry{}, err
	}
	out, err := digest.File(item.Target)
	if err != nil {
		return registry.Entry{}, err
	}
	st, err := os.Stat(item.Target)
	if err != nil {
		return registry.Entry{}, fmt.Errorf("stat %s: %w", item.Target, err)
	}
	return registry.Entry{
		TexFilepath:   item.Target,
		InputHash:     in,
		OutputHash:    out,
		LastConverted: FormatTimestamp(st.ModTime()),
	}, nil
}

// FormatTimestamp renders t as Unix seconds with up to microsecond precision.
func FormatTimestamp(t time.Time) string {
	secs := float64(t.UnixMicro()) / 1e6
	return strconv.FormatFloat(secs, 'f', -1, 64)
}
