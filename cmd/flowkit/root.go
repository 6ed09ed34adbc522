package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/config"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/observability"
	"github.com/kbukum/flowkit/version"
)

var rootFlags struct {
	configFile string
}

var rootCmd = &cobra.Command{
	Use:   "flowkit",
	Short: "Plan and submit declarative stage workflows",
	Long: "Flowkit compiles declarative stage workflows into task graphs,\n" +
		"lays out run directories, and hands planned runs to a Pegasus or\n" +
		"portal submission backend.",
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.configFile, "config", "", "Path to flowkit.yml (default: standard search paths)")
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(buildStageCmd)
	rootCmd.AddCommand(buildFinalCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateGraphCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.GetShortVersion()
}

// loadConfig loads the flowkit configuration and initializes the global
// logger. A missing config file falls back to defaults, so subcommands
// planned into graphs work on submit hosts that carry no flowkit.yml.
func loadConfig() (*config.Config, error) {
	var opts []config.LoaderOption
	if rootFlags.configFile != "" {
		opts = append(opts, config.WithConfigFile(rootFlags.configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging)
	return cfg, nil
}

// setupTelemetry initializes OTLP export when enabled. The returned
// metrics are nil when telemetry is off; the shutdown func is always
// safe to defer.
func setupTelemetry(ctx context.Context, cfg *config.Config) (*observability.Metrics, func(), error) {
	if !cfg.Telemetry.Enabled {
		return nil, func() {}, nil
	}

	tc := observability.DefaultTracerConfig(config.ToolName)
	tc.ServiceVersion = version.Version
	tc.Environment = cfg.Environment
	tc.Insecure = cfg.Telemetry.Insecure
	tc.SampleRate = cfg.Telemetry.SampleRate
	if cfg.Telemetry.Endpoint != "" {
		tc.Endpoint = cfg.Telemetry.Endpoint
	}
	tp, err := observability.InitTracer(ctx, tc)
	if err != nil {
		return nil, nil, err
	}

	mc := observability.DefaultMeterConfig(config.ToolName)
	mc.ServiceVersion = version.Version
	mc.Environment = cfg.Environment
	mc.Insecure = cfg.Telemetry.Insecure
	if cfg.Telemetry.Endpoint != "" {
		mc.Endpoint = cfg.Telemetry.Endpoint
	}
	mp, err := observability.InitMeter(ctx, &mc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}

	metrics, err := observability.NewMetrics(observability.Meter(config.ToolName))
	if err != nil {
		_ = mp.Shutdown(ctx)
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func() {
		_ = mp.Shutdown(ctx)
		_ = tp.Shutdown(ctx)
	}
	return metrics, shutdown, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
