package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/taskgraph"
)

var validateGraphFlags struct {
	catalog string
}

var validateGraphCmd = &cobra.Command{
	Use:   "validate-graph <graph.yml>",
	Short: "Check a generated task graph against the submission rules",
	Long: `Validate-graph re-runs the checks the planner applies before a run
is submitted: outer jobs limited to the allowed executables,
subworkflow slots kept logical, and catalog paths under the shared
application root. A transformation catalog next to the graph is picked
up automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidateGraph,
}

func init() {
	validateGraphCmd.Flags().StringVar(&validateGraphFlags.catalog, "catalog", "", "Transformation catalog path (default: transformations.yml next to the graph)")
}

func runValidateGraph(cmd *cobra.Command, args []string) error {
	graph, err := taskgraph.Read(args[0])
	if err != nil {
		return err
	}

	catalogPath := validateGraphFlags.catalog
	if catalogPath == "" {
		candidate := filepath.Join(filepath.Dir(args[0]), taskgraph.CatalogFile)
		if _, err := os.Stat(candidate); err == nil {
			catalogPath = candidate
		}
	}
	var catalog *taskgraph.Catalog
	if catalogPath != "" {
		catalog, err = taskgraph.ReadCatalog(catalogPath)
		if err != nil {
			return err
		}
	}

	if err := taskgraph.Validate(graph, catalog); err != nil {
		return err
	}
	levels, err := graph.Levels()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d jobs, %d dependencies, depth %d\n", args[0], len(graph.Jobs), len(graph.Dependencies), len(levels))
	if catalog != nil {
		fmt.Fprintf(out, "%s: %d transformations\n", catalogPath, len(catalog.Transformations))
	}
	fmt.Fprintln(out, "OK")
	return nil
}
