package pcapstats

import "path/filepath"

// DefaultEpochNS is the default epoch duration handed to the stats tracker (one second).
const DefaultEpochNS int64 = 1_000_000_000

// Config locates the project tree the pipeline runs against.
type Config struct {
	ProjectDir string `yaml:"project_dir" mapstructure:"project_dir"`
	ReportsDir string `yaml:"reports_dir" mapstructure:"reports_dir"`
	PlotsDir   string `yaml:"plots_dir" mapstructure:"plots_dir"`
	ToolsDir   string `yaml:"tools_dir" mapstructure:"tools_dir"`
	Binary     string `yaml:"binary" mapstructure:"binary"`
	EpochNS    int64  `yaml:"epoch_ns" mapstructure:"epoch_ns" validate:"gte=0"`
	Debug      bool   `yaml:"debug" mapstructure:"debug"`
}

// ApplyDefaults derives unset directories from ProjectDir and makes every
// path absolute against the working directory. Plot tasks run inside
// ToolsDir, so a relative report path would no longer resolve there.
func (c *Config) ApplyDefaults() {
	if c.ProjectDir == "" {
		c.ProjectDir = "."
	}
	c.ProjectDir = absPath(c.ProjectDir)
	if c.ReportsDir == "" {
		c.ReportsDir = filepath.Join(c.ProjectDir, "reports")
	}
	if c.PlotsDir == "" {
		c.PlotsDir = filepath.Join(c.ProjectDir, "plots")
	}
	if c.ToolsDir == "" {
		c.ToolsDir = filepath.Join(c.ProjectDir, "tools")
	}
	if c.Binary == "" {
		c.Binary = filepath.Join(c.ProjectDir, "build", "bin", "pcap-stats")
	}
	c.ReportsDir = absPath(c.ReportsDir)
	c.PlotsDir = absPath(c.PlotsDir)
	c.ToolsDir = absPath(c.ToolsDir)
	c.Binary = absPath(c.Binary)
	if c.EpochNS == 0 {
		c.EpochNS = DefaultEpochNS
	}
}

// absPath keeps p unchanged when the working directory cannot be read.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// BuildScript returns the script that compiles the stats tracker.
func (c *Config) BuildScript() string {
	if c.Debug {
		return "./build-debug.sh"
	}
	return "./build.sh"
}
