package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/engine"
)

var buildStageCmd = &cobra.Command{
	Use: "build-stage <document> <stage> <occurrence> <plugin> <fragment> " +
		"<job-dir> <run-dir> <var-deps> <stage-refs> <local-files> " +
		"<sensitive-values> <single-refs> <target>",
	Short: "Compile one stage occurrence into its task-graph fragment",
	Long: `Build-stage runs on the submit host as a job of the outer graph. It
receives the argument vector the job was planned with, resolves value
lists from the result manifests of earlier stages, and writes the
fragment for its planned subworkflow slot.`,
	Args: cobra.ExactArgs(engine.StageArgCount),
	RunE: runBuildStage,
}

func runBuildStage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.BuildStage(cmd.Context(), args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d tasks)\n", res.Path, res.Tasks)
	return nil
}
