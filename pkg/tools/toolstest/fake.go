// Package toolstest provides an in-process tools.ToolExecutor for tests that need a
// converter without installing pandoc.
package toolstest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/md2tex/pkg/tools"
)

// Call records one invocation.
type Call struct {
	Tool string
	Args []string
}

// Fake emulates pandoc's `<src> -o <target>` contract by writing a LaTeX rendering
// of the source. Any other tool (the post-processor) succeeds without side effects
// unless listed in FailTools.
type Fake struct {
	mu sync.Mutex
	// FailSources maps a source base name to the exit code pandoc should return for it.
	FailSources map[string]int
	// FailTools maps a tool name to the exit code every invocation returns.
	FailTools map[string]int
	// Missing lists tools that cannot be launched at all.
	Missing map[string]bool
	calls   []Call
}

// New returns a Fake that succeeds for everything.
func New() *Fake {
	return &Fake{FailSources: map[string]int{}, FailTools: map[string]int{}, Missing: map[string]bool{}}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) IsAvailable(tool string) bool { return !f.Missing[tool] }

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Execute implements tools.ToolExecutor.
func (f *Fake) Execute(_ context.Context, opts tools.ExecuteOptions) (*tools.ExecuteResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Tool: opts.Tool, Args: append([]string(nil), opts.Args...)})
	f.mu.Unlock()

	if f.Missing[opts.Tool] {
		return nil, fmt.Errorf("%w: %s", tools.ErrToolNotFound, opts.Tool)
	}
	if code, ok := f.FailTools[opts.Tool]; ok {
		return &tools.ExecuteResult{ExitCode: code, Stderr: []byte(opts.Tool + " failed\n")}, nil
	}

	src, target, ok := pandocArgs(opts.Args)
	if !ok {
		return &tools.ExecuteResult{}, nil
	}
	if code, fail := f.FailSources[filepath.Base(src)]; fail {
		return &tools.ExecuteResult{ExitCode: code, Stderr: []byte("pandoc: cannot convert " + src + "\n")}, nil
	}
	content, err := os.ReadFile(src) // #nosec G304 -- test helper
	if err != nil {
		return &tools.ExecuteResult{ExitCode: 1, Stderr: []byte(err.Error())}, nil
	}
	rendered := "% generated\n" + strings.ReplaceAll(string(content), "# ", "\\section{") + "\n"
	if err := os.WriteFile(target, []byte(rendered), 0o600); err != nil {
		return &tools.ExecuteResult{ExitCode: 1, Stderr: []byte(err.Error())}, nil
	}
	return &tools.ExecuteResult{}, nil
}

// pandocArgs extracts source and target from `... <src> -o <target>`.
func pandocArgs(args []string) (string, string, bool) {
	for i, a := range args {
		if a == "-o" && i > 0 && i+1 < len(args) {
			return args[i-1], args[i+1], true
		}
	}
	return "", "", false
}
