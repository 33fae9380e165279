package cli

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/taskflow/config"
	"github.com/kbukum/taskflow/errors"
)

// globalFlags are shared by every command that runs a graph.
type globalFlags struct {
	configFile      string
	concurrency     int
	force           bool
	strictInputs    bool
	failureLogDir   string
	showCmds        bool
	showCmdsOutput  bool
	silence         bool
	dryRun          bool
	checkCycles     bool
	showPlan        bool
	metricsTextfile string
	logLevel        string
	logFormat       string
}

func (f *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configFile, "config", "", "Path to a taskflow.yml configuration file")
	fs.IntVarP(&f.concurrency, "concurrency", "j", 0, "Number of tasks executed in parallel (0 = number of CPUs)")
	fs.BoolVar(&f.force, "force", false, "Force execution of all tasks, even if their output files already exist")
	fs.BoolVar(&f.strictInputs, "strict-inputs", false, "Fail tasks whose consumed files are missing instead of skipping them")
	fs.StringVar(&f.failureLogDir, "failure-log-dir", "", "Directory receiving the failed-cmds-<timestamp>.txt log")
	fs.BoolVar(&f.showCmds, "show-cmds", false, "Show requested commands during execution")
	fs.BoolVar(&f.showCmdsOutput, "show-cmds-output", false, "Show command output during execution")
	fs.BoolVar(&f.silence, "silence", false, "Don't show any output from the commands being executed, except for errors")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Walk the graph without spawning any command")
	fs.BoolVar(&f.checkCycles, "check-cycles", false, "Refuse to run a graph containing a dependency cycle")
	fs.BoolVar(&f.showPlan, "show-execution-plan", false, "Render the execution plan with Graphviz before running")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "Write the run summary in Prometheus text format to this path")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", "", "Log format (console, json)")
}

// apply copies every flag the user set over cfg.
func (f *globalFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	changed := fs.Changed
	if changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	if changed("force") {
		cfg.Force = f.force
	}
	if changed("strict-inputs") {
		cfg.StrictInputs = f.strictInputs
	}
	if changed("failure-log-dir") {
		cfg.FailureLogDir = f.failureLogDir
	}
	if changed("show-cmds") {
		cfg.ShowCmds = f.showCmds
	}
	if changed("show-cmds-output") {
		cfg.ShowCmdsOutput = f.showCmdsOutput
	}
	if changed("silence") {
		cfg.Silence = f.silence
	}
	if changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if changed("check-cycles") {
		cfg.CheckCycles = f.checkCycles
	}
	if changed("metrics-textfile") {
		cfg.Observability.TextfilePath = f.metricsTextfile
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
}

// loadConfig reads file and environment configuration, lets the flags and
// override win, then applies defaults and validates.
func (f *globalFlags) loadConfig(fs *pflag.FlagSet, override func(*config.Config)) (*config.Config, error) {
	var opts []config.LoaderOption
	if f.configFile != "" {
		if _, err := os.Stat(f.configFile); err != nil {
			return nil, errors.NotFound("config file", f.configFile)
		}
		opts = append(opts, config.WithConfigFile(f.configFile))
	}

	var cfg config.Config
	if err := config.LoadConfig(config.AppName, &cfg, opts...); err != nil {
		return nil, err
	}
	f.apply(fs, &cfg)
	if override != nil {
		override(&cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
