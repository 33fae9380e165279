package pcapstats

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/taskflow/dag"
	"github.com/kbukum/taskflow/errors"
	"github.com/kbukum/taskflow/process"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := Config{ProjectDir: t.TempDir()}
	cfg.ApplyDefaults()
	return cfg
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{ProjectDir: "/srv/synapse"}
	cfg.ApplyDefaults()

	want := map[string]string{
		"reports": "/srv/synapse/reports",
		"plots":   "/srv/synapse/plots",
		"tools":   "/srv/synapse/tools",
		"binary":  "/srv/synapse/build/bin/pcap-stats",
	}
	got := map[string]string{
		"reports": cfg.ReportsDir,
		"plots":   cfg.PlotsDir,
		"tools":   cfg.ToolsDir,
		"binary":  cfg.Binary,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("expected %s %q, got %q", k, v, got[k])
		}
	}
	if cfg.EpochNS != DefaultEpochNS {
		t.Errorf("expected epoch %d, got %d", DefaultEpochNS, cfg.EpochNS)
	}
	if cfg.BuildScript() != "./build.sh" {
		t.Errorf("expected ./build.sh, got %q", cfg.BuildScript())
	}
	cfg.Debug = true
	if cfg.BuildScript() != "./build-debug.sh" {
		t.Errorf("expected ./build-debug.sh, got %q", cfg.BuildScript())
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"/data/caida-2019.pcap": "caida-2019",
		"trace.pcapng":          "trace",
		"noext":                 "noext",
		"dir/a.b.pcap":          "a.b",
	}
	for in, want := range tests {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestTasks(t *testing.T) {
	cfg := Config{ProjectDir: "/p", EpochNS: 500}
	cfg.ApplyDefaults()
	pcap := "/data/x.pcap"

	build := BuildTask(cfg, Options{})
	if build.Name() != "build_pcap_stats_tracker" || build.Cwd() != "/p" {
		t.Errorf("unexpected build task %s cwd %q", build.Name(), build.Cwd())
	}
	if got := build.Produces(); len(got) != 1 || got[0] != "/p/build/bin/pcap-stats" {
		t.Errorf("unexpected build outputs %v", got)
	}

	report := ReportTask(cfg, pcap, Options{ForceReport: true})
	if report.Name() != "run_pcap_stats_tracker_x" {
		t.Errorf("unexpected report name %q", report.Name())
	}
	wantCmd := "/p/build/bin/pcap-stats /data/x.pcap --out /p/reports/x.json --epoch 500"
	if report.Cmd() != wantCmd {
		t.Errorf("expected cmd %q, got %q", wantCmd, report.Cmd())
	}
	if got := strings.Join(report.Consumes(), ","); got != "/data/x.pcap,/p/build/bin/pcap-stats" {
		t.Errorf("unexpected report inputs %s", got)
	}
	if !report.IgnoreSkipIfAlreadyProduced() {
		t.Error("expected force-report to force the report task")
	}

	plot := PlotTask(cfg, Plotters[1], pcap, Options{})
	if plot.Name() != "run_plot_flow_duration_us_cdf_x" {
		t.Errorf("unexpected plot name %q", plot.Name())
	}
	if plot.Cmd() != "./plot_flow_duration_us_cdf.py /p/reports/x.json" || plot.Cwd() != "/p/tools" {
		t.Errorf("unexpected plot cmd %q cwd %q", plot.Cmd(), plot.Cwd())
	}
	if got := plot.Produces(); len(got) != 1 || got[0] != "/p/plots/x_fct_cdf.pdf" {
		t.Errorf("unexpected plot outputs %v", got)
	}
	if plot.IgnoreSkipIfAlreadyProduced() {
		t.Error("expected plot task not forced")
	}
}

func TestForceFlags(t *testing.T) {
	cfg := Config{ProjectDir: "/p"}
	cfg.ApplyDefaults()

	tests := []struct {
		name       string
		opts       Options
		wantReport bool
		wantPlot   bool
	}{
		{"none", Options{}, false, false},
		{"force", Options{Force: true}, true, true},
		{"force report", Options{ForceReport: true}, true, false},
		{"force replot", Options{ForceReplot: true}, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := ReportTask(cfg, "a.pcap", tc.opts)
			p := PlotTask(cfg, Plotters[0], "a.pcap", tc.opts)
			if r.IgnoreSkipIfAlreadyProduced() != tc.wantReport {
				t.Errorf("expected report forced=%v", tc.wantReport)
			}
			if p.IgnoreSkipIfAlreadyProduced() != tc.wantPlot {
				t.Errorf("expected plot forced=%v", tc.wantPlot)
			}
		})
	}
}

func TestPipelineGraph(t *testing.T) {
	cfg := testConfig(t)
	pcaps := []string{"/data/a.pcap", "/data/b.pcap"}

	o, err := Pipeline(cfg, pcaps, Options{DryRun: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Size() != 1+len(pcaps)*(1+len(Plotters)) {
		t.Errorf("expected %d tasks, got %d", 1+len(pcaps)*(1+len(Plotters)), o.Size())
	}
	for _, dir := range []string{cfg.ReportsDir, cfg.PlotsDir} {
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			t.Errorf("expected directory %s to be created", dir)
		}
	}

	roots := o.Roots()
	if len(roots) != 1 || roots[0].Name() != "build_pcap_stats_tracker" {
		t.Fatalf("expected build task as the only root, got %v", roots)
	}
	report, ok := o.Task("run_pcap_stats_tracker_a")
	if !ok {
		t.Fatal("expected report task for a.pcap")
	}
	if len(report.Successors()) != len(Plotters) {
		t.Errorf("expected %d plotters after the report, got %d", len(Plotters), len(report.Successors()))
	}
	for _, s := range report.Successors() {
		if !s.SkipExecution() {
			t.Errorf("expected dry run to skip %s", s.Name())
		}
	}
}

func TestPipelineRequiresCaptures(t *testing.T) {
	_, err := Pipeline(testConfig(t), nil, Options{})
	if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

// producingRunner creates the declared outputs of whichever task owns the
// command line it is asked to run.
func producingRunner(t *testing.T, o *dag.Orchestrator) (process.Runner, func() []string) {
	outputs := make(map[string][]string)
	for _, task := range o.AllTasks() {
		outputs[task.Cmd()] = task.Produces()
	}
	var mu sync.Mutex
	var ran []string
	runner := process.RunnerFunc(func(_ context.Context, cmd process.Command) (*process.Result, error) {
		line := strings.Join(append([]string{cmd.Binary}, cmd.Args...), " ")
		mu.Lock()
		ran = append(ran, line)
		mu.Unlock()
		for _, p := range outputs[line] {
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				t.Errorf("mkdir: %v", err)
			}
			if err := os.WriteFile(p, nil, 0o644); err != nil {
				t.Errorf("write: %v", err)
			}
		}
		return &process.Result{}, nil
	})
	return runner, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), ran...)
	}
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig(t)
	pcap := filepath.Join(cfg.ProjectDir, "trace.pcap")
	if err := os.WriteFile(pcap, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	o, err := Pipeline(cfg, []string{pcap}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runner, ran := producingRunner(t, o)
	report := o.Run(context.Background(), dag.RunOptions{
		TaskOptions:   dag.TaskOptions{Runner: runner, Output: &bytes.Buffer{}},
		Concurrency:   4,
		IgnoreSignals: true,
	})

	if failed := report.Failed(); len(failed) != 0 {
		t.Fatalf("expected no failures, got %v", failed)
	}
	if len(ran()) != 2+len(Plotters) {
		t.Errorf("expected %d commands, got %v", 2+len(Plotters), ran())
	}
	if ran()[0] != "./build.sh" {
		t.Errorf("expected build first, got %q", ran()[0])
	}
	for _, p := range Plotters {
		if _, err := os.Stat(cfg.PlotPath(p, pcap)); err != nil {
			t.Errorf("expected plot %s: %v", p.Suffix, err)
		}
	}

	// Everything exists now, so a fresh graph spawns nothing.
	again, err := Pipeline(cfg, []string{pcap}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runner, ran = producingRunner(t, again)
	report = again.Run(context.Background(), dag.RunOptions{
		TaskOptions:   dag.TaskOptions{Runner: runner, Output: &bytes.Buffer{}},
		IgnoreSignals: true,
	})
	if len(ran()) != 0 {
		t.Errorf("expected nothing spawned, got %v", ran())
	}
	if n := report.Counts()[dag.StatusAlreadyProduced]; n != 2+len(Plotters) {
		t.Errorf("expected all tasks already produced, got %d", n)
	}
}

func TestConfigApplyDefaultsResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	// Compare against the working directory so symlinked temp dirs match.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	var cfg Config
	cfg.ApplyDefaults()
	if cfg.ProjectDir != wd {
		t.Errorf("expected project dir %q, got %q", wd, cfg.ProjectDir)
	}
	if want := filepath.Join(wd, "reports"); cfg.ReportsDir != want {
		t.Errorf("expected reports dir %q, got %q", want, cfg.ReportsDir)
	}

	cfg = Config{ProjectDir: "proj", PlotsDir: "out/plots"}
	cfg.ApplyDefaults()
	want := map[string]string{
		"project": filepath.Join(wd, "proj"),
		"reports": filepath.Join(wd, "proj", "reports"),
		"plots":   filepath.Join(wd, "out", "plots"),
		"tools":   filepath.Join(wd, "proj", "tools"),
		"binary":  filepath.Join(wd, "proj", "build", "bin", "pcap-stats"),
	}
	got := map[string]string{
		"project": cfg.ProjectDir,
		"reports": cfg.ReportsDir,
		"plots":   cfg.PlotsDir,
		"tools":   cfg.ToolsDir,
		"binary":  cfg.Binary,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("expected %s %q, got %q", k, v, got[k])
		}
	}

	before := cfg
	cfg.ApplyDefaults()
	if cfg != before {
		t.Errorf("expected defaults to be idempotent, got %+v after %+v", cfg, before)
	}
}

// writeProject lays out a project whose build script installs a stats
// tracker stub and whose plotters fail unless the report path they are
// given resolves from the tools directory.
func writeProject(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"build.sh": `#!/bin/sh
mkdir -p build/bin
cat > build/bin/pcap-stats <<'EOS'
#!/bin/sh
test -f "$1" || exit 2
touch "$3"
EOS
chmod +x build/bin/pcap-stats
`,
		"trace.pcap": "",
	}
	for _, p := range Plotters {
		files[filepath.Join("tools", "plot_"+p.Script+".py")] = `#!/bin/sh
test -f "$1" || { echo "report not found: $1"; exit 1; }
touch ../plots/$(basename "$1" .json)_` + p.Suffix + `.pdf
`
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			t.Fatal(err)
		}
	}
}

func TestPipelineRunFromRelativeProject(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir)
	t.Chdir(dir)

	o, err := Pipeline(Config{}, []string{"trace.pcap"}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out bytes.Buffer
	report := o.Run(context.Background(), dag.RunOptions{
		TaskOptions:   dag.TaskOptions{Output: &out},
		Concurrency:   4,
		IgnoreSignals: true,
	})

	if failed := report.Failed(); len(failed) != 0 {
		t.Fatalf("expected no failures, got %v\n%s", failed, out.String())
	}
	if n := report.Counts()[dag.StatusExecuted]; n != 2+len(Plotters) {
		t.Errorf("expected %d executed tasks, got %d", 2+len(Plotters), n)
	}
	if _, err := os.Stat(filepath.Join(dir, "reports", "trace.json")); err != nil {
		t.Errorf("expected report: %v", err)
	}
	for _, p := range Plotters {
		if _, err := os.Stat(filepath.Join(dir, "plots", "trace_"+p.Suffix+".pdf")); err != nil {
			t.Errorf("expected plot %s: %v", p.Suffix, err)
		}
	}
}
