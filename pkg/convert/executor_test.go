package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fulmenhq/md2tex/pkg/digest"
	"github.com/fulmenhq/md2tex/pkg/tools"
	"github.com/fulmenhq/md2tex/pkg/tools/toolstest"
	"github.com/fulmenhq/md2tex/pkg/work"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItem(t *testing.T) work.Item {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "docs", "ADR", "0001-intro.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o750))
	require.NoError(t, os.WriteFile(src, []byte("# Intro\nbody\n"), 0o600))
	return work.Item{
		Name:   "0001-intro.md",
		Source: src,
		Target: filepath.Join(dir, "build", "chapters", "adr", "0001-intro.tex"),
		Reason: work.ReasonNew,
	}
}

func TestExecute_Success(t *testing.T) {
	item := newItem(t)
	fake := toolstest.New()
	exec := New(Config{Pandoc: "pandoc", Tools: fake})

	entry, err := exec.Execute(context.Background(), item)
	require.NoError(t, err)

	out, err := os.ReadFile(item.Target)
	require.NoError(t, err)
	wantIn, err := digest.File(item.Source)
	require.NoError(t, err)

	assert.Equal(t, item.Target, entry.TexFilepath)
	assert.Equal(t, wantIn, entry.InputHash)
	assert.Equal(t, digest.Bytes(out), entry.OutputHash)
	assert.Regexp(t, `^[0-9]+(\.[0-9]+)?$`, entry.LastConverted)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "pandoc", calls[0].Tool)
	assert.Equal(t, []string{"--from=markdown", "--to=latex", "--highlight-style=pygments", item.Source, "-o", item.Target}, calls[0].Args)
}

func TestExecute_ConverterFailure(t *testing.T) {
	item := newItem(t)
	fake := toolstest.New()
	fake.FailSources["0001-intro.md"] = 64

	_, err := New(Config{Tools: fake}).Execute(context.Background(), item)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversionFailed))

	var failed *FailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, DefaultPandoc, failed.Tool)
	assert.Equal(t, 64, failed.ExitCode)
	assert.Contains(t, err.Error(), "cannot convert")
}

func TestExecute_ConverterMissing(t *testing.T) {
	item := newItem(t)
	fake := toolstest.New()
	fake.Missing["pandoc"] = true

	_, err := New(Config{Tools: fake}).Execute(context.Background(), item)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConversionFailed))
	assert.True(t, errors.Is(err, tools.ErrToolNotFound))
}

func TestExecute_PostProcessorAbsentIsSkipped(t *testing.T) {
	item := newItem(t)
	fake := toolstest.New()
	script := filepath.Join(t.TempDir(), "clean-unicode.py")

	_, err := New(Config{Python: "python3", PostProcessScript: script, Tools: fake}).Execute(context.Background(), item)
	require.NoError(t, err)
	assert.Len(t, fake.Calls(), 1, "only the converter runs")
}

func TestExecute_PostProcessorRunsOnArtifactDir(t *testing.T) {
	item := newItem(t)
	fake := toolstest.New()
	script := filepath.Join(t.TempDir(), "clean-unicode.py")
	require.NoError(t, os.WriteFile(script, []byte("print('ok')\n"), 0o600))

	_, err := New(Config{Python: "python3.12", PostProcessScript: script, Tools: fake}).Execute(context.Background(), item)
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "python3.12", calls[1].Tool)
	assert.Equal(t, []string{script, filepath.Dir(item.Target)}, calls[1].Args)
}

func TestExecute_PostProcessorFailureIsFatal(t *testing.T) {
	item := newItem(t)
	fake := toolstest.New()
	fake.FailTools["python3"] = 2
	script := filepath.Join(t.TempDir(), "clean-unicode.py")
	require.NoError(t, os.WriteFile(script, []byte(""), 0o600))

	_, err := New(Config{PostProcessScript: script, Tools: fake}).Execute(context.Background(), item)
	require.Error(t, err)
	var failed *FailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "python3", failed.Tool)
	assert.Equal(t, 2, failed.ExitCode)
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Unix(1712345678, 250000000)
	assert.Equal(t, "1712345678.25", FormatTimestamp(ts))
	assert.Equal(t, "1712345678", FormatTimestamp(time.Unix(1712345678, 0)))
}

func TestFailedError_Message(t *testing.T) {
	err := &FailedError{Tool: "pandoc", Source: "a.md", ExitCode: 1, Output: "  boom \n"}
	assert.Equal(t, "pandoc exited with status 1 for a.md: boom", err.Error())

	launch := &FailedError{Tool: "pandoc", Source: "a.md", Err: errors.New("exec format error")}
	assert.Equal(t, "pandoc could not run for a.md: exec format error", launch.Error())
}
