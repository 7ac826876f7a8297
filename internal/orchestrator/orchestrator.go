// Package orchestrator runs one incremental conversion pass over a source directory:
// load the registry, plan, then check, preview or build.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fulmenhq/md2tex/pkg/config"
	"github.com/fulmenhq/md2tex/pkg/convert"
	"github.com/fulmenhq/md2tex/pkg/guard"
	"github.com/fulmenhq/md2tex/pkg/logger"
	"github.com/fulmenhq/md2tex/pkg/registry"
	"github.com/fulmenhq/md2tex/pkg/tools"
	"github.com/fulmenhq/md2tex/pkg/work"
	"github.com/google/uuid"
)

// ErrDirectoryNotFound is returned when the source directory is missing or not a directory.
var ErrDirectoryNotFound = errors.New("markdown dir not found")

// Mode selects what a run does with its plan.
type Mode int

const (
	// ModeBuild converts every planned item and persists the registry.
	ModeBuild Mode = iota
	// ModeCheck reports stale items without side effects.
	ModeCheck
	// ModeDryRun previews the conversions a build would perform.
	ModeDryRun
)

func (m Mode) String() string {
	switch m {
	case ModeCheck:
		return "check"
	case ModeDryRun:
		return "dry-run"
	default:
		return "build"
	}
}

// Config holds everything a run needs. Root is resolved by the caller.
type Config struct {
	Root      string
	SourceDir string
	// ConfigPath defaults to the registry file inside SourceDir.
	ConfigPath string
	// OutDir, Pandoc and Python override the registry defaults when set.
	OutDir string
	Pandoc string
	Python string
	// PostProcessScript and GuardDir default to the settings paths under Root.
	PostProcessScript string
	GuardDir          string
	Force             bool
	Mode              Mode
	Verbose           bool
	Stdout            io.Writer
	Stderr            io.Writer
	// Settings supplies tool fallbacks below the registry defaults; nil means built-ins.
	Settings *config.Settings
	Store    *registry.Store
	Tools    tools.ToolExecutor
}

// Report summarizes a finished run.
type Report struct {
	RunID      string
	Mode       Mode
	ConfigPath string
	Plan       *work.Plan
	// Built lists the names converted in this run, in order.
	Built []string
	// Saved is true when the registry was written.
	Saved bool
}

// Stale reports whether the plan contained any work.
func (r *Report) Stale() bool {
	return r != nil && !r.Plan.Empty()
}

// Orchestrator wires the registry, planner and executor for one source directory.
type Orchestrator struct {
	cfg Config
}

// New validates cfg and fills unset collaborators.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.SourceDir == "" {
		return nil, errors.New("source directory is required")
	}
	if cfg.Root == "" {
		return nil, errors.New("project root is required")
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Settings == nil {
		s := config.Defaults()
		cfg.Settings = &s
	}
	if cfg.Store == nil {
		cfg.Store = registry.OSStore()
	}
	if cfg.Tools == nil {
		cfg.Tools = tools.NewLocalExecutor()
	}

	var err error
	if cfg.Root, err = filepath.Abs(cfg.Root); err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if cfg.SourceDir, err = filepath.Abs(cfg.SourceDir); err != nil {
		return nil, fmt.Errorf("resolve source dir: %w", err)
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(cfg.SourceDir, registry.FileName)
	}
	// The registry store is rooted at "/", so every path it sees must be absolute.
	if cfg.ConfigPath, err = filepath.Abs(cfg.ConfigPath); err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if cfg.GuardDir == "" {
		cfg.GuardDir = cfg.Settings.GuardPath(cfg.Root)
	}
	if cfg.PostProcessScript == "" {
		cfg.PostProcessScript = cfg.Settings.PostProcessPath(cfg.Root)
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Config returns the resolved configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// Run performs one pass. On a conversion failure the error is printed with an
// "[error]" prefix, returned, and the registry is left untouched.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	cfg := o.cfg
	report := &Report{RunID: uuid.NewString(), Mode: cfg.Mode, ConfigPath: cfg.ConfigPath}
	start := time.Now()
	logger.Debug("run started",
		logger.String("run_id", report.RunID),
		logger.String("mode", cfg.Mode.String()),
		logger.String("source_dir", cfg.SourceDir))

	reg, err := o.loadRegistry()
	if err != nil {
		return report, err
	}

	sources, err := work.Discover(cfg.SourceDir)
	if err != nil {
		return report, err
	}

	planner, err := o.planner(reg)
	if err != nil {
		return report, err
	}
	plan, err := planner.Plan(sources, reg)
	if err != nil {
		return report, err
	}
	report.Plan = plan

	if plan.Candidates == 0 {
		o.printf("No markdown files found (after exclusions).\n")
		return report, nil
	}
	o.reportPlanning(plan)

	switch cfg.Mode {
	case ModeCheck:
		for _, item := range plan.Items {
			o.printf("OUT-OF-DATE %s -> %s\n", item.Name, item.Target)
		}
		return report, nil
	case ModeDryRun:
		for _, item := range plan.Items {
			o.printf("DRY-RUN %s -> %s (%s)\n", item.Name, item.Target, item.Reason)
		}
		if cfg.Verbose {
			o.printf("Done. 0 files processed.\n")
		}
		return report, nil
	}

	exec := convert.New(convert.Config{
		Pandoc:            o.pandoc(reg),
		Python:            o.python(reg),
		PostProcessScript: cfg.PostProcessScript,
		Tools:             cfg.Tools,
	})
	for _, item := range plan.Items {
		if cfg.Verbose {
			o.printf("BUILD %s -> %s\n", item.Name, item.Target)
		}
		entry, err := exec.Execute(ctx, item)
		if err != nil {
			fmt.Fprintf(cfg.Stderr, "[error] conversion failed for %s: %v\n", item.Source, err)
			logger.Debug("run aborted",
				logger.String("run_id", report.RunID),
				logger.Int("built", len(report.Built)),
				logger.Err(err))
			return report, err
		}
		reg.Record(item.Name, entry)
		report.Built = append(report.Built, item.Name)
	}

	if err := cfg.Store.Save(cfg.ConfigPath, reg); err != nil {
		return report, err
	}
	report.Saved = true
	if cfg.Verbose {
		o.printf("Config updated at %s\n", cfg.ConfigPath)
		o.printf("Done. %d files processed.\n", len(report.Built))
	}
	logger.Debug("run finished",
		logger.String("run_id", report.RunID),
		logger.Int("built", len(report.Built)),
		logger.Duration("elapsed", time.Since(start)))
	return report, nil
}

// Inspect loads the registry and reports the state of every tracked entry and
// every untracked, non-excluded source, sorted by name.
func (o *Orchestrator) Inspect() ([]Status, error) {
	if err := o.checkSourceDir(); err != nil {
		return nil, err
	}
	reg, err := o.loadRegistryFile()
	if err != nil {
		return nil, err
	}
	sources, err := work.Discover(o.cfg.SourceDir)
	if err != nil {
		return nil, err
	}
	planner, err := o.planner(reg)
	if err != nil {
		return nil, err
	}
	return statuses(sources, reg, planner)
}

func (o *Orchestrator) loadRegistry() (*registry.Registry, error) {
	if err := o.checkSourceDir(); err != nil {
		return nil, err
	}
	return o.loadRegistryFile()
}

func (o *Orchestrator) checkSourceDir() error {
	st, err := os.Stat(o.cfg.SourceDir)
	if err != nil || !st.IsDir() {
		return fmt.Errorf("%w: %s", ErrDirectoryNotFound, o.cfg.SourceDir)
	}
	return nil
}

func (o *Orchestrator) loadRegistryFile() (*registry.Registry, error) {
	computed := registry.DefaultsFor(o.cfg.Root, o.cfg.SourceDir)
	if o.cfg.Settings.Python != "" {
		computed.Python = o.cfg.Settings.Python
	}
	return o.cfg.Store.Load(o.cfg.ConfigPath, computed)
}

func (o *Orchestrator) planner(reg *registry.Registry) (*work.Planner, error) {
	zone, err := guard.NewZone(o.cfg.GuardDir)
	if err != nil {
		return nil, err
	}
	outDir := reg.Defaults.OutDir
	if o.cfg.OutDir != "" {
		outDir = o.cfg.OutDir
	}
	return work.NewPlanner(work.PlannerConfig{
		Exclude: reg.Defaults.Exclude,
		OutDir:  outDir,
		Force:   o.cfg.Force,
		Guard:   zone,
	}), nil
}

func (o *Orchestrator) reportPlanning(plan *work.Plan) {
	for _, d := range plan.Diagnostics {
		var violation *guard.ViolationError
		if errors.As(d.Err, &violation) {
			fmt.Fprintf(o.cfg.Stderr, "Refusing to write into protected sources area without --force: %s\n", violation.Target)
			continue
		}
		fmt.Fprintf(o.cfg.Stderr, "%s\n", d)
	}
	if o.cfg.Verbose {
		for _, name := range plan.Skipped {
			o.printf("SKIP %s: up to date\n", name)
		}
	}
}

func (o *Orchestrator) pandoc(reg *registry.Registry) string {
	return firstNonEmpty(o.cfg.Pandoc, reg.Defaults.Pandoc, o.cfg.Settings.Pandoc, convert.DefaultPandoc)
}

func (o *Orchestrator) python(reg *registry.Registry) string {
	return firstNonEmpty(o.cfg.Python, reg.Defaults.Python, o.cfg.Settings.Python, registry.DefaultPython)
}

func (o *Orchestrator) printf(format string, args ...interface{}) {
	fmt.Fprintf(o.cfg.Stdout, format, args...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
