package dag

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/kbukum/taskflow/errors"
	"github.com/kbukum/taskflow/validation"
)

// GraphFile is a task graph declared in YAML.
//
//	includes: [common.yaml]
//	tasks:
//	  - name: report
//	    cmd: ./bin/pcap-stats in.pcap --out reports/in.json
//	    consumes: [in.pcap]
//	    produces: [reports/in.json]
//	    next: [notify]
//
// Relative cwd, consumes and produces paths resolve against the directory of
// the file that declares the task. An explicit cwd must exist at load time.
type GraphFile struct {
	Name     string    `yaml:"name"`
	Includes []string  `yaml:"includes"`
	Tasks    []TaskDef `yaml:"tasks" validate:"dive"`
}

// TaskDef declares one task of a graph file.
type TaskDef struct {
	Name          string            `yaml:"name" validate:"required"`
	Cmd           string            `yaml:"cmd" validate:"required"`
	Env           map[string]string `yaml:"env"`
	Cwd           string            `yaml:"cwd"`
	Next          []string          `yaml:"next"`
	Consumes      []string          `yaml:"consumes"`
	Produces      []string          `yaml:"produces"`
	SkipExecution bool              `yaml:"skip_execution"`
	Force         bool              `yaml:"force"`
	Silence       bool              `yaml:"silence"`
	ShowCmd       bool              `yaml:"show_cmd"`
	ShowOutput    bool              `yaml:"show_output"`

	baseDir string
}

// BuildOptions are run-wide flags OR-ed into every task of a graph file.
type BuildOptions struct {
	DryRun     bool
	ShowCmds   bool
	ShowOutput bool
	Silence    bool
}

// LoadGraphFile reads a graph file and merges its includes, depth first.
// An include already merged through another branch is skipped; an include
// that leads back to a file being loaded is an error.
func LoadGraphFile(path string) (*GraphFile, error) {
	stack := make(map[string]bool)    // current include chain
	resolved := make(map[string]bool) // merged files
	return loadGraphFile(path, stack, resolved)
}

func loadGraphFile(path string, stack, resolved map[string]bool) (*GraphFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if stack[abs] {
		return nil, errors.Configuration(fmt.Sprintf("circular include of graph file %s", path))
	}
	stack[abs] = true
	defer delete(stack, abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.NotFound("graph file", path).WithCause(err)
	}
	var g GraphFile
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("parsing %s", path)).WithCause(err)
	}
	if err := validation.Validate(g); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("invalid graph file %s", path)).WithCause(err)
	}

	dir := filepath.Dir(abs)
	dirs := validation.New()
	for i := range g.Tasks {
		g.Tasks[i].baseDir = dir
		dirs.Exists(fmt.Sprintf("tasks[%d].cwd", i), g.Tasks[i].resolve(g.Tasks[i].Cwd))
	}
	if appErr := dirs.Validate(); appErr != nil {
		return nil, errors.Configuration(fmt.Sprintf("invalid graph file %s", path)).WithCause(appErr)
	}

	merged := &GraphFile{Name: g.Name}
	for _, inc := range g.Includes {
		incPath := inc
		if !filepath.IsAbs(incPath) {
			incPath = filepath.Join(dir, incPath)
		}
		incAbs, err := filepath.Abs(incPath)
		if err != nil {
			return nil, err
		}
		if resolved[incAbs] {
			continue
		}
		sub, err := loadGraphFile(incAbs, stack, resolved)
		if err != nil {
			return nil, err
		}
		merged.Tasks = append(merged.Tasks, sub.Tasks...)
	}
	merged.Tasks = append(merged.Tasks, g.Tasks...)

	names := make([]string, len(merged.Tasks))
	for i, def := range merged.Tasks {
		names[i] = def.Name
	}
	if appErr := validation.New().Unique("tasks.name", names).Validate(); appErr != nil {
		return nil, errors.Configuration(fmt.Sprintf("invalid graph file %s", path)).WithCause(appErr)
	}

	resolved[abs] = true
	return merged, nil
}

// Build creates the tasks, wires explicit next edges by name and registers
// everything with a new orchestrator in declaration order.
func (g *GraphFile) Build(opts BuildOptions) (*Orchestrator, error) {
	byName := make(map[string]*Task, len(g.Tasks))
	tasks := make([]*Task, 0, len(g.Tasks))
	for _, def := range g.Tasks {
		t := def.task(opts)
		byName[def.Name] = t
		tasks = append(tasks, t)
	}

	for _, def := range g.Tasks {
		for _, name := range def.Next {
			next, ok := byName[name]
			if !ok {
				return nil, errors.Configuration(fmt.Sprintf("task %s: unknown next task %q", def.Name, name))
			}
			link(byName[def.Name], next)
		}
	}

	o, err := New()
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if err := o.AddTask(t); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (d TaskDef) task(opts BuildOptions) *Task {
	return NewTask(d.Name, d.Cmd,
		WithEnv(d.Env),
		WithCwd(d.resolve(d.Cwd)),
		WithConsumes(d.resolveAll(d.Consumes)...),
		WithProduces(d.resolveAll(d.Produces)...),
		WithSkipExecution(d.SkipExecution || opts.DryRun),
		WithIgnoreSkipIfAlreadyProduced(d.Force),
		WithShowCmd(d.ShowCmd || opts.ShowCmds),
		WithShowOutput(d.ShowOutput || opts.ShowOutput),
		WithSilence(d.Silence || opts.Silence),
	)
}

func (d TaskDef) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || d.baseDir == "" {
		return p
	}
	return filepath.Join(d.baseDir, p)
}

func (d TaskDef) resolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = d.resolve(p)
	}
	return out
}
