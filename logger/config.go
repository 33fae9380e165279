package logger

import (
	"fmt"
	"sort"
	"strings"
)

var (
	validLevels  = set("trace", "debug", "info", "warn", "error", "fatal")
	validFormats = set(FormatConsole, FormatPretty, FormatJSON)
	validOutputs = set("stdout", "stderr")
)

// Config contains logging configuration.
type Config struct {
	Level     string `yaml:"level" mapstructure:"level"`
	Format    string `yaml:"format" mapstructure:"format"`
	Output    string `yaml:"output" mapstructure:"output"`
	NoColor   bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller    bool   `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = FormatConsole
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
}

// Validate validates logging configuration.
func (c *Config) Validate() error {
	if err := check("logging.level", c.Level, validLevels); err != nil {
		return err
	}
	if err := check("logging.format", c.Format, validFormats); err != nil {
		return err
	}
	return check("logging.output", c.Output, validOutputs)
}

func check(field, val string, allowed map[string]bool) error {
	if allowed[strings.ToLower(val)] {
		return nil
	}
	names := make([]string, 0, len(allowed))
	for k := range allowed {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Errorf("%s must be one of %s (got: %q)", field, strings.Join(names, ", "), val)
}

func set(vals ...string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}
