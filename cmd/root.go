/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/md2tex/pkg/buildinfo"
	"github.com/fulmenhq/md2tex/pkg/exitcode"
	"github.com/fulmenhq/md2tex/pkg/logger"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "md2tex [flags] <markdown_dir>",
		Short: "Incremental Markdown to LaTeX converter with safety rails",
		Long: `md2tex converts the Markdown files of one directory into LaTeX chapters with pandoc.
A per-directory registry (.md2tex.settings.json) records content hashes so unchanged
files are skipped, and generated output never lands in docs/tex/sources unless forced.

Examples:
   md2tex docs/ADR                # Convert new and changed files
   md2tex --check docs/ADR        # Exit 1 if anything is out of date
   md2tex --dry-run docs/ADR      # Show what would be converted
   md2tex status docs/ADR         # Table of tracked files and their state
   md2tex watch docs/ADR          # Rebuild on every change`,
		Args:          exactlyOneDir,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
		RunE: runBuild,
	}

	// Add global flags
	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	addProjectFlags(cmd.Flags())
	addBuildFlags(cmd.Flags())
	cmd.Flags().Bool("dry-run", false, "Show actions without writing files")
	cmd.Flags().Bool("check", false, "Only verify hashes; exit 1 if anything is out of date")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "check")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return exitcode.Wrap(exitcode.ConfigError, err)
	})

	cmd.Version = buildinfo.Version()
	cmd.SetVersionTemplate("md2tex {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newWatchCommand())
	cmd.AddCommand(newVersionCommand())
}

// Execute builds the command tree, runs it against the process arguments and exits
// with the mapped status code. This is called by main.main().
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand()
	registerSubcommands(root)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitcode.Success
	}
	if !exitcode.IsSilent(err) {
		fmt.Fprintf(stderr, "[error] %v\n", err)
	}
	code := exitcode.FromError(err)
	logger.Debug("command failed", logger.Int("exit_code", code), logger.String("reason", exitcode.String(code)))
	return code
}

func exactlyOneDir(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		return exitcode.Wrap(exitcode.ConfigError, fmt.Errorf("%w\nUsage: %s", err, cmd.UseLine()))
	}
	return nil
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "md2tex",
	}

	if err := logger.Initialize(config); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
	logger.SetOutput(cmd.ErrOrStderr())
}
