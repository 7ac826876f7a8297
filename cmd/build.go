/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/md2tex/internal/orchestrator"
	"github.com/fulmenhq/md2tex/internal/project"
	"github.com/fulmenhq/md2tex/pkg/config"
	"github.com/fulmenhq/md2tex/pkg/convert"
	"github.com/fulmenhq/md2tex/pkg/exitcode"
	"github.com/fulmenhq/md2tex/pkg/logger"
	"github.com/fulmenhq/md2tex/pkg/registry"
	"github.com/fulmenhq/md2tex/pkg/tools"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newToolExecutor is replaced in tests.
var newToolExecutor = func() tools.ToolExecutor { return tools.NewLocalExecutor() }

// addProjectFlags registers the flags every command needs to locate the registry.
func addProjectFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to registry (default: <markdown_dir>/"+registry.FileName+")")
	flags.String("out-dir", "", "Override output directory for generated .tex files")
	flags.String("root", "", "Project root (default: $"+config.EnvPrefix+"_ROOT or auto-detected)")
}

// addBuildFlags registers the conversion flags shared by the root and watch commands.
func addBuildFlags(flags *pflag.FlagSet) {
	flags.String("pandoc", "", "Pandoc command (default: registry, settings, then \"pandoc\")")
	flags.String("python", "", "Python interpreter for the post-processor")
	flags.Bool("force", false, "Allow writing into docs/tex/sources (hand-edited area)")
	flags.BoolP("verbose", "v", false, "Print per-file progress")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := orchestratorConfig(cmd, args[0])
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	check, _ := cmd.Flags().GetBool("check")
	switch {
	case check:
		cfg.Mode = orchestrator.ModeCheck
	case dryRun:
		cfg.Mode = orchestrator.ModeDryRun
	}

	o, err := orchestrator.New(cfg)
	if err != nil {
		return exitcode.Wrap(exitcode.GeneralError, err)
	}
	report, err := o.Run(cmd.Context())
	if err != nil {
		return classify(err)
	}
	if cfg.Mode == orchestrator.ModeCheck && report.Stale() {
		return exitcode.Silent(exitcode.GeneralError, "%d file(s) out of date", len(report.Plan.Items))
	}
	return nil
}

// orchestratorConfig resolves the project root and settings and maps flags onto a
// run configuration. The mode is left at build.
func orchestratorConfig(cmd *cobra.Command, dir string) (orchestrator.Config, error) {
	sourceDir, err := filepath.Abs(dir)
	if err != nil {
		return orchestrator.Config{}, exitcode.Wrap(exitcode.FileSystemError, err)
	}

	root, err := resolveRoot(cmd, sourceDir)
	if err != nil {
		return orchestrator.Config{}, exitcode.Wrap(exitcode.FileSystemError, err)
	}

	settings, err := config.Load(root)
	if err != nil {
		return orchestrator.Config{}, exitcode.Wrap(exitcode.ConfigError, err)
	}

	configPath, _ := cmd.Flags().GetString("config")
	outDir, _ := cmd.Flags().GetString("out-dir")
	pandoc, _ := cmd.Flags().GetString("pandoc")
	python, _ := cmd.Flags().GetString("python")
	force, _ := cmd.Flags().GetBool("force")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if outDir != "" {
		if outDir, err = filepath.Abs(outDir); err != nil {
			return orchestrator.Config{}, exitcode.Wrap(exitcode.FileSystemError, err)
		}
	}

	logger.Debug("resolved project",
		logger.String("root", root),
		logger.String("source_dir", sourceDir),
		logger.String("guard", settings.GuardPath(root)))

	return orchestrator.Config{
		Root:       root,
		SourceDir:  sourceDir,
		ConfigPath: configPath,
		OutDir:     outDir,
		Pandoc:     pandoc,
		Python:     python,
		Force:      force,
		Verbose:    verbose,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
		Settings:   settings,
		Store:      registry.OSStore(),
		Tools:      newToolExecutor(),
	}, nil
}

// resolveRoot applies --root, then MD2TEX_ROOT, then discovery from the source dir.
func resolveRoot(cmd *cobra.Command, sourceDir string) (string, error) {
	if root, _ := cmd.Flags().GetString("root"); root != "" {
		return filepath.Abs(root)
	}
	if root := config.EnvRoot(); root != "" {
		return filepath.Abs(root)
	}
	start := sourceDir
	if _, err := os.Stat(start); err != nil {
		if start, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return project.FindRoot(start)
}

// classify attaches the exit code for an orchestrator error.
func classify(err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrDirectoryNotFound):
		return exitcode.Wrap(exitcode.GeneralError, err)
	case registry.IsMalformed(err):
		return exitcode.Wrap(exitcode.ConfigError, err)
	case errors.Is(err, tools.ErrToolNotFound):
		// The converter or post-processor is not installed; reported like any conversion failure.
		return exitcode.Silent(exitcode.ToolNotFound, "%w", err)
	case errors.Is(err, convert.ErrConversionFailed):
		// Already reported with an [error] prefix.
		return exitcode.Silent(exitcode.GeneralError, "%w", err)
	default:
		return exitcode.Wrap(exitcode.FileSystemError, fmt.Errorf("md2tex: %w", err))
	}
}
