package dag

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/taskflow/process"
)

const (
	colorRunnable = "cyan"
	colorSkipped  = "yellow"
)

// WriteDOT writes the reachable graph in Graphviz form, left to right.
// Roots go in the "Initial Tasks" cluster and leaves in "Final Tasks";
// dry-run tasks are filled yellow, the rest cyan.
func (o *Orchestrator) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)
	all := o.AllTasks()

	roots := make(map[Key]bool)
	for _, r := range o.Roots() {
		roots[r.Key()] = true
	}

	var initial, final, interior []*Task
	for _, t := range all {
		switch {
		case roots[t.Key()]:
			initial = append(initial, t)
		case len(t.Successors()) == 0:
			final = append(final, t)
		default:
			interior = append(interior, t)
		}
	}

	fmt.Fprintln(bw, "// Execution Plan")
	fmt.Fprintln(bw, "digraph {")
	fmt.Fprintln(bw, "\tgraph [rankdir=LR]")
	fmt.Fprintln(bw, "\tnode [shape=box style=filled]")
	for _, t := range interior {
		writeDOTNode(bw, "\t", t)
	}
	writeDOTCluster(bw, "cluster_0", "Initial Tasks", initial)
	writeDOTCluster(bw, "cluster_1", "Final Tasks", final)
	for _, t := range all {
		for _, n := range t.Successors() {
			fmt.Fprintf(bw, "\t%q -> %q\n", t.ID(), n.ID())
		}
	}
	fmt.Fprintln(bw, "}")

	return bw.Flush()
}

func writeDOTCluster(w io.Writer, name, label string, tasks []*Task) {
	fmt.Fprintf(w, "\tsubgraph %s {\n", name)
	fmt.Fprintf(w, "\t\t// %s\n", label)
	fmt.Fprintf(w, "\t\tlabel=%q\n", label)
	for _, t := range tasks {
		writeDOTNode(w, "\t\t", t)
	}
	fmt.Fprintln(w, "\t}")
}

func writeDOTNode(w io.Writer, indent string, t *Task) {
	color := colorRunnable
	if t.SkipExecution() {
		color = colorSkipped
	}
	fmt.Fprintf(w, "%s%q [label=%q fillcolor=%s]\n", indent, t.ID(), t.Name(), color)
}

// DefaultDOTPath returns /tmp/execution_plan_<unix>.dot.
func DefaultDOTPath(now time.Time) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("execution_plan_%d.dot", now.Unix()))
}

// RenderDOT writes the plan to dotPath and renders <dotPath>.pdf with
// Graphviz. A nil runner uses the default process adapter.
func (o *Orchestrator) RenderDOT(ctx context.Context, dotPath string, runner process.Runner) (string, error) {
	f, err := os.Create(dotPath)
	if err != nil {
		return "", fmt.Errorf("dag: creating %s: %w", dotPath, err)
	}
	if err := o.WriteDOT(f); err != nil {
		f.Close()
		return "", fmt.Errorf("dag: writing %s: %w", dotPath, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	if runner == nil {
		runner = process.NewAdapter(process.Config{})
	}
	pdf := dotPath + ".pdf"
	res, err := runner.Run(ctx, process.Command{
		Binary:      "dot",
		Args:        []string{"-Tpdf", dotPath, "-o", pdf},
		MergeOutput: true,
	})
	if err != nil {
		if res != nil && len(res.Stdout) > 0 {
			return "", fmt.Errorf("dag: rendering %s: %w: %s", dotPath, err, res.Stdout)
		}
		return "", fmt.Errorf("dag: rendering %s: %w", dotPath, err)
	}
	return pdf, nil
}
