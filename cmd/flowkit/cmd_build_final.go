package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/engine"
)

var buildFinalCmd = &cobra.Command{
	Use:   "build-final <stages> <fragment> <job-dir> <run-dir> <target>",
	Short: "Compile the delivery fragment for the last stage's outputs",
	Long: `Build-final runs on the submit host after every stage has executed.
It reads the last stage's result manifest and writes the fragment that
moves those products back into the run directory.`,
	Args: cobra.ExactArgs(engine.FinalArgCount),
	RunE: runBuildFinal,
}

func runBuildFinal(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.BuildFinal(cmd.Context(), args)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d tasks)\n", res.Path, res.Tasks)
	return nil
}
