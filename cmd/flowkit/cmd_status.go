package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/engine"
)

var statusFlags struct {
	all    bool
	limit  int
	health bool
}

var statusCmd = &cobra.Command{
	Use:   "status [run]",
	Short: "Show the recorded state of a run and probe its backend",
	Long: `Status looks a run up by name or run ID; with no argument it shows
the most recent run. Submitted runs are probed through their recorded
broker, and a run whose backend finished is marked complete.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.BoolVarP(&statusFlags.all, "all", "a", false, "List recent runs instead")
	f.IntVar(&statusFlags.limit, "limit", 20, "Maximum runs listed with --all")
	f.BoolVar(&statusFlags.health, "health", false, "Report service health instead of run state")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if statusFlags.health {
		h := eng.Health(ctx)
		fmt.Fprintf(out, "%s %s: %s\n", h.Service, h.Version, h.Status)
		for _, c := range h.Components {
			fmt.Fprintf(out, "  %-8s %s", c.Name, c.Status)
			if c.Message != "" {
				fmt.Fprintf(out, " (%s)", c.Message)
			}
			fmt.Fprintln(out)
		}
		return nil
	}

	if statusFlags.all {
		runs, err := eng.ListRuns(ctx, statusFlags.limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(out, "%-24s %-12s %-10s %s\n",
				r.Name, r.RunID, r.Status, r.CreatedAt.Format(time.RFC3339))
		}
		return nil
	}

	var nameOrID string
	if len(args) > 0 {
		nameOrID = args[0]
	}
	st, err := eng.Status(ctx, nameOrID)
	if err != nil {
		return err
	}

	r := st.Run
	fmt.Fprintf(out, "Run:     %s\n", r.Name)
	fmt.Fprintf(out, "ID:      %s\n", r.RunID)
	fmt.Fprintf(out, "Status:  %s\n", r.Status)
	fmt.Fprintf(out, "Broker:  %s\n", r.Broker)
	fmt.Fprintf(out, "Run dir: %s\n", r.RunDir)
	if r.JobDir != "" {
		fmt.Fprintf(out, "Job dir: %s\n", r.JobDir)
	}
	if r.Detail != "" {
		fmt.Fprintf(out, "Detail:  %s\n", r.Detail)
	}
	if st.Backend != nil {
		fmt.Fprintf(out, "Backend: %s (%s)\n", st.Backend.State, st.Backend.Detail)
	}
	return nil
}
