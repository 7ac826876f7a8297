/*
Copyright © 2025 3 Leaps <info@3leaps.com>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/md2tex/pkg/buildinfo"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show md2tex version",
		Args:  cobra.NoArgs,
		RunE:  runVersion,
	}
	cmd.Flags().Bool("extended", false, "Show detailed build and git information")
	cmd.Flags().String("format", "text", "Output format (text|json)")
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	extended, _ := cmd.Flags().GetBool("extended")
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()
	info := buildinfo.Read()

	switch format {
	case "json":
		jsonData, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %v", err)
		}
		fmt.Fprintln(out, string(jsonData))
		return nil
	case "text", "":
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}

	fmt.Fprintf(out, "md2tex %s\n", info.Version)
	if !extended {
		return nil
	}
	commit := info.Commit
	if len(commit) > 8 {
		commit = commit[:8] // Short commit hash
	}
	if commit == "" {
		commit = "unknown"
	}
	fmt.Fprintf(out, "Git commit: %s\n", commit)
	if info.Dirty {
		fmt.Fprintf(out, "Git status: dirty (uncommitted changes)\n")
	}
	fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
	fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	return nil
}
