package config

import (
	"time"

	"github.com/kbukum/taskflow/errors"
	"github.com/kbukum/taskflow/logger"
	"github.com/kbukum/taskflow/pcapstats"
	"github.com/kbukum/taskflow/validation"
)

// AppName is the configuration file stem and environment prefix.
const AppName = "taskflow"

// Config is the complete taskflow configuration.
type Config struct {
	// Concurrency is the worker count; 0 uses the host parallelism.
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=0"`
	// Force re-executes every task even if its outputs exist.
	Force bool `yaml:"force" mapstructure:"force"`
	// StrictInputs turns a missing consumed file into a failure.
	StrictInputs  bool          `yaml:"strict_inputs" mapstructure:"strict_inputs"`
	FailureLogDir string        `yaml:"failure_log_dir" mapstructure:"failure_log_dir" validate:"required"`
	GracePeriod   time.Duration `yaml:"grace_period" mapstructure:"grace_period" validate:"gte=0"`
	CheckCycles   bool          `yaml:"check_cycles" mapstructure:"check_cycles"`

	ShowCmds       bool `yaml:"show_cmds" mapstructure:"show_cmds"`
	ShowCmdsOutput bool `yaml:"show_cmds_output" mapstructure:"show_cmds_output"`
	Silence        bool `yaml:"silence" mapstructure:"silence"`
	DryRun         bool `yaml:"dry_run" mapstructure:"dry_run"`

	Logging       logger.Config       `yaml:"logging" mapstructure:"logging"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Pcap          pcapstats.Config    `yaml:"pcap" mapstructure:"pcap"`
}

// ObservabilityConfig enables OTLP export and the Prometheus textfile summary.
type ObservabilityConfig struct {
	Tracing        bool          `yaml:"tracing" mapstructure:"tracing"`
	Metrics        bool          `yaml:"metrics" mapstructure:"metrics"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	ExportInterval time.Duration `yaml:"export_interval" mapstructure:"export_interval" validate:"gte=0"`
	// TextfilePath, when set, receives the run summary in Prometheus text format.
	TextfilePath string `yaml:"textfile_path" mapstructure:"textfile_path"`
}

// ApplyDefaults fills every unset value.
func (c *Config) ApplyDefaults() {
	if c.FailureLogDir == "" {
		c.FailureLogDir = "."
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 5 * time.Second
	}
	c.Logging.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Pcap.ApplyDefaults()
}

// ApplyDefaults applies default values to the observability configuration.
func (c *ObservabilityConfig) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.ExportInterval == 0 {
		c.ExportInterval = 15 * time.Second
	}
}

// Validate checks struct tags, then the logging section.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return errors.Configuration(err.Error())
	}
	return nil
}

// Load reads configuration for name into cfg, then applies defaults and
// validates the result.
func Load(name string, cfg *Config, opts ...LoaderOption) error {
	if err := LoadConfig(name, cfg, opts...); err != nil {
		return err
	}
	cfg.ApplyDefaults()
	return cfg.Validate()
}
