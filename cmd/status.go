/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/md2tex/internal/orchestrator"
	"github.com/fulmenhq/md2tex/pkg/ascii"
	"github.com/fulmenhq/md2tex/pkg/exitcode"
	"github.com/spf13/cobra"
)

// maxTargetWidth keeps the status table readable on narrow terminals.
const maxTargetWidth = 72

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <markdown_dir>",
		Short: "Show tracked files and whether each is up to date",
		Long: `Status lists every Markdown file the next build would consider, plus registry
entries whose source has been removed, with the state the build would see.
It never runs pandoc and never writes the registry.`,
		Args: exactlyOneDir,
		RunE: runStatus,
	}
	addProjectFlags(cmd.Flags())
	cmd.Flags().String("format", "table", "Output format (table|json)")
	cmd.Flags().Bool("full", false, "Do not truncate target paths")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	full, _ := cmd.Flags().GetBool("full")
	if format != "table" && format != "json" {
		return exitcode.Wrap(exitcode.ConfigError, fmt.Errorf("unknown format %q (want table or json)", format))
	}

	cfg, err := orchestratorConfig(cmd, args[0])
	if err != nil {
		return err
	}
	o, err := orchestrator.New(cfg)
	if err != nil {
		return exitcode.Wrap(exitcode.GeneralError, err)
	}
	statuses, err := o.Inspect()
	if err != nil {
		return classify(err)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		if statuses == nil {
			statuses = []orchestrator.Status{}
		}
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(statuses) == 0 {
		fmt.Fprintln(out, "No markdown files found (after exclusions).")
		return nil
	}
	rows := make([][]string, 0, len(statuses))
	stale := 0
	for _, s := range statuses {
		state := string(s.State)
		if s.Refused {
			state += " (protected)"
		}
		if s.State.Stale() {
			stale++
		}
		target := s.Target
		if !full {
			target = ascii.Truncate(target, maxTargetWidth)
		}
		rows = append(rows, []string{s.Name, state, target})
	}
	fmt.Fprint(out, ascii.Table([]string{"NAME", "STATE", "TARGET"}, rows))
	fmt.Fprintf(out, "\n%d file(s), %d out of date\n", len(statuses), stale)
	return nil
}
