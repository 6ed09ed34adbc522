package config

import (
	"fmt"

	"github.com/kbukum/flowkit/store"
)

// ToolName is the config and env file stem for the flowkit CLI.
const ToolName = "flowkit"

// Execution modes.
const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

// Config is the full flowkit configuration.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	General   GeneralConfig   `yaml:"general" mapstructure:"general"`
	Registry  RegistryConfig  `yaml:"registry" mapstructure:"registry"`
	Store     store.Config    `yaml:"store" mapstructure:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// GeneralConfig selects how planned workflows are executed.
type GeneralConfig struct {
	// Mode is "production" (plan and submit) or "development" (plan only).
	Mode string `yaml:"mode" mapstructure:"mode"`
	// Target is the execution site jobs are scheduled on.
	Target string `yaml:"target" mapstructure:"target"`
	// Broker is the submission backend: "pegasus" submits directly,
	// "portal" hands the planned run over to the portal service.
	Broker string `yaml:"broker" mapstructure:"broker"`
	// WorkDir is the local directory run directories are created
	// under. Empty means the current working directory.
	WorkDir string `yaml:"work_dir" mapstructure:"work_dir"`
}

// RegistryConfig locates tool installations on the execution sites.
type RegistryConfig struct {
	// AppDir is the shared software root visible on execution sites.
	AppDir string `yaml:"app_dir" mapstructure:"app_dir"`
	// ToolDir is where the flowkit distribution itself is installed.
	ToolDir string `yaml:"tool_dir" mapstructure:"tool_dir"`
	// DataDir is the remote base directory for per-run job directories.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
	// Hub is the container registry prefix plugin images are pulled
	// from.
	Hub string `yaml:"hub" mapstructure:"hub"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
}

// Load loads, defaults, and validates the flowkit configuration.
func Load(opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(ToolName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults applies default values to the full configuration.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ToolName
	}
	c.ServiceConfig.ApplyDefaults()

	if c.General.Mode == "" {
		c.General.Mode = ModeProduction
	}
	if c.General.Target == "" {
		c.General.Target = "condorpool"
	}
	if c.General.Broker == "" {
		c.General.Broker = "pegasus"
	}
	if c.Registry.AppDir == "" {
		c.Registry.AppDir = "/apps/share64"
	}
	if c.Registry.ToolDir == "" {
		c.Registry.ToolDir = "/apps/share64/flowkit"
	}
	if c.Registry.DataDir == "" {
		c.Registry.DataDir = "/data"
	}
	if c.Registry.Hub == "" {
		c.Registry.Hub = "docker://flowkit"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
	c.Store.ApplyDefaults()
}

// Validate validates the full configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if c.General.Mode != ModeProduction && c.General.Mode != ModeDevelopment {
		return fmt.Errorf("general.mode must be one of [production, development] (got: %s)", c.General.Mode)
	}
	if c.General.Broker != "pegasus" && c.General.Broker != "portal" {
		return fmt.Errorf("general.broker must be one of [pegasus, portal] (got: %s)", c.General.Broker)
	}
	if c.General.Target == "" {
		return fmt.Errorf("general.target is required")
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
