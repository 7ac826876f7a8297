/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/fulmenhq/md2tex/internal/orchestrator"
	"github.com/fulmenhq/md2tex/internal/watch"
	"github.com/fulmenhq/md2tex/pkg/exitcode"
	"github.com/fulmenhq/md2tex/pkg/logger"
	"github.com/fulmenhq/md2tex/pkg/registry"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <markdown_dir>",
		Short: "Rebuild whenever Markdown files in the directory change",
		Long: `Watch performs one build, then rebuilds after every burst of changes to *.md
files in the directory. A failed rebuild is reported and watching continues.
Stop with Ctrl-C.`,
		Args: exactlyOneDir,
		RunE: runWatch,
	}
	addProjectFlags(cmd.Flags())
	addBuildFlags(cmd.Flags())
	cmd.Flags().Duration("debounce", 0, "Quiet period before rebuilding (default: settings watch_debounce)")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := orchestratorConfig(cmd, args[0])
	if err != nil {
		return err
	}
	o, err := orchestrator.New(cfg)
	if err != nil {
		return exitcode.Wrap(exitcode.GeneralError, err)
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	if debounce <= 0 {
		if debounce, err = time.ParseDuration(cfg.Settings.WatchDebounce); err != nil {
			return exitcode.Wrap(exitcode.ConfigError, fmt.Errorf("invalid watch_debounce %q: %w", cfg.Settings.WatchDebounce, err))
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failing first build is reported like any later one unless the directory
	// or registry is unusable.
	if _, err := o.Run(ctx); err != nil {
		if errors.Is(err, orchestrator.ErrDirectoryNotFound) || registry.IsMalformed(err) {
			return classify(err)
		}
		logger.Error("initial build failed", logger.Err(err))
	}

	w, err := watch.New(watch.Config{
		Dir:      o.Config().SourceDir,
		Debounce: debounce,
		Rebuild: func(ctx context.Context) error {
			_, err := o.Run(ctx)
			return err
		},
	})
	if err != nil {
		return classify(err)
	}
	return w.Run(ctx)
}
