package pcapstats

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/taskflow/dag"
	"github.com/kbukum/taskflow/errors"
)

// Options carries the per-invocation switches of the pcap pipeline.
type Options struct {
	Force       bool
	ForceReport bool
	ForceReplot bool
	DryRun      bool
	ShowCmds    bool
	ShowOutput  bool
	Silence     bool
}

// Plotter is one plotting script and the suffix of the PDF it writes.
type Plotter struct {
	Script string
	Suffix string
}

// Plotters lists the plots produced for every capture.
var Plotters = []Plotter{
	{Script: "flow_dts_us_cdf", Suffix: "flow_ipt_cdf"},
	{Script: "flow_duration_us_cdf", Suffix: "fct_cdf"},
	{Script: "pkt_bytes_cdf", Suffix: "pkt_bytes_cdf"},
	{Script: "pkts_per_flow_cdf", Suffix: "pkts_per_flow_cdf"},
	{Script: "top_k_flows_bytes_cdf", Suffix: "top_k_flows_bytes_cdf"},
	{Script: "top_k_flows_cdf", Suffix: "top_k_flows_cdf"},
}

// Stem returns the capture file name without directory and extension.
func Stem(pcap string) string {
	base := filepath.Base(pcap)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReportPath is where the stats tracker writes the report for pcap.
func (c *Config) ReportPath(pcap string) string {
	return filepath.Join(c.ReportsDir, Stem(pcap)+".json")
}

// PlotPath is where plotter p writes its PDF for pcap.
func (c *Config) PlotPath(p Plotter, pcap string) string {
	return filepath.Join(c.PlotsDir, Stem(pcap)+"_"+p.Suffix+".pdf")
}

func (o Options) common() []dag.TaskOption {
	return []dag.TaskOption{
		dag.WithSkipExecution(o.DryRun),
		dag.WithShowCmd(o.ShowCmds),
		dag.WithShowOutput(o.ShowOutput),
		dag.WithSilence(o.Silence),
	}
}

// BuildTask compiles the stats tracker binary.
func BuildTask(cfg Config, opts Options) *dag.Task {
	taskOpts := append(opts.common(),
		dag.WithCwd(cfg.ProjectDir),
		dag.WithProduces(cfg.Binary),
	)
	return dag.NewTask("build_pcap_stats_tracker", cfg.BuildScript(), taskOpts...)
}

// ReportTask runs the stats tracker over one capture.
func ReportTask(cfg Config, pcap string, opts Options) *dag.Task {
	report := cfg.ReportPath(pcap)
	cmd := fmt.Sprintf("%s %s --out %s --epoch %d", cfg.Binary, pcap, report, cfg.EpochNS)
	taskOpts := append(opts.common(),
		dag.WithConsumes(cfg.Binary, pcap),
		dag.WithProduces(report),
		dag.WithIgnoreSkipIfAlreadyProduced(opts.ForceReport || opts.Force),
	)
	return dag.NewTask("run_pcap_stats_tracker_"+Stem(pcap), cmd, taskOpts...)
}

// PlotTask renders one plot from the report of a capture.
func PlotTask(cfg Config, p Plotter, pcap string, opts Options) *dag.Task {
	report := cfg.ReportPath(pcap)
	cmd := fmt.Sprintf("./plot_%s.py %s", p.Script, report)
	taskOpts := append(opts.common(),
		dag.WithCwd(cfg.ToolsDir),
		dag.WithConsumes(report),
		dag.WithProduces(cfg.PlotPath(p, pcap)),
		dag.WithIgnoreSkipIfAlreadyProduced(opts.ForceReplot || opts.Force),
	)
	return dag.NewTask(fmt.Sprintf("run_plot_%s_%s", p.Script, Stem(pcap)), cmd, taskOpts...)
}

// Pipeline creates the output directories and registers the build task
// followed by a report task and the plotters for every capture. Tasks are
// registered producer first so file edges are inferred.
func Pipeline(cfg Config, pcaps []string, opts Options) (*dag.Orchestrator, error) {
	if len(pcaps) == 0 {
		return nil, errors.InvalidInput("pcaps", "at least one capture is required")
	}
	cfg.ApplyDefaults()

	for _, dir := range []string{cfg.ReportsDir, cfg.PlotsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Configuration("creating " + dir).WithCause(err)
		}
	}

	o, err := dag.New()
	if err != nil {
		return nil, err
	}
	if err := o.AddTask(BuildTask(cfg, opts)); err != nil {
		return nil, err
	}
	for _, pcap := range pcaps {
		if err := o.AddTask(ReportTask(cfg, pcap, opts)); err != nil {
			return nil, err
		}
		for _, p := range Plotters {
			if err := o.AddTask(PlotTask(cfg, p, pcap, opts)); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}
