package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, _ []string) {
	info := version.GetVersionInfo()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "flowkit %s\n", version.GetFullVersion())
	fmt.Fprintf(out, "  go:     %s\n", info.GoVersion)
	if info.GitCommit != "" {
		fmt.Fprintf(out, "  commit: %s\n", info.GitCommit)
	}
	if info.GitBranch != "" {
		fmt.Fprintf(out, "  branch: %s\n", info.GitBranch)
	}
}
