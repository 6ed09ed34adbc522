package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/engine"
	apperrors "github.com/kbukum/flowkit/errors"
	"github.com/kbukum/flowkit/planner"
)

var planFlags struct {
	name     string
	noSubmit bool
	secrets  []string
}

var planCmd = &cobra.Command{
	Use:   "plan <workflow.yml>",
	Short: "Plan a workflow run and submit it to the configured backend",
	Long: `Plan validates the workflow document, collects sensitive values,
lays out the run directory with the outer task graph and transformation
catalog, records the run, and in production mode submits it.

Sensitive values are resolved in order: --secret flags, then
FLOWKIT_SECRET_* environment variables, then an interactive prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.name, "name", "", "Run name (default: run-<uuid>)")
	f.BoolVar(&planFlags.noSubmit, "no-submit", false, "Plan only, even in production mode")
	f.StringArrayVar(&planFlags.secrets, "secret", nil, "Sensitive value as <occurrence>/<arg>=<value>, e.g. stage-1-Input/password=...; repeatable")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	metrics, shutdown, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	preset, err := parseSecretFlags(planFlags.secrets)
	if err != nil {
		return err
	}

	var opts []engine.Option
	if metrics != nil {
		opts = append(opts, engine.WithMetrics(metrics))
	}
	eng, err := engine.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.Plan(ctx, engine.PlanRequest{
		DocumentPath: args[0],
		Name:         planFlags.name,
		Secrets:      preset,
		NoSubmit:     planFlags.noSubmit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:     %s\n", res.Name)
	fmt.Fprintf(out, "ID:      %s\n", res.Plan.RunID)
	fmt.Fprintf(out, "Stages:  %d\n", res.Plan.Stages)
	fmt.Fprintf(out, "Graph:   %s\n", res.Plan.GraphPath)
	fmt.Fprintf(out, "Job dir: %s\n", res.Plan.JobDir)
	if res.Submitted {
		fmt.Fprintf(out, "Submitted through the %s broker.\n", cfg.General.Broker)
	} else {
		fmt.Fprintln(out, "Planned only; the run was not submitted.")
	}
	return nil
}

// parseSecretFlags decodes repeated <occurrence>/<arg>=<value> flags.
// The value half is never echoed back in errors.
func parseSecretFlags(pairs []string) (planner.Secrets, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	preset := planner.Secrets{}
	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, apperrors.InvalidInput("secret", "expected <occurrence>/<arg>=<value>")
		}
		slash := strings.LastIndex(kv[0], "/")
		if slash <= 0 || slash == len(kv[0])-1 {
			return nil, apperrors.InvalidInput("secret", fmt.Sprintf("key %q is not <occurrence>/<arg>", kv[0]))
		}
		occ, arg := kv[0][:slash], kv[0][slash+1:]
		if preset[occ] == nil {
			preset[occ] = map[string]string{}
		}
		preset[occ][arg] = kv[1]
	}
	return preset, nil
}
