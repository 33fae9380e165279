package dag

import (
	"fmt"
	"io"
	"strings"

	"github.com/kbukum/taskflow/errors"
)

// Levels groups every known task by dependency depth using Kahn's
// algorithm. Tasks within a level have no edges between them. Returns a
// CYCLE_DETECTED error if some tasks can never become ready.
func (o *Orchestrator) Levels() ([][]*Task, error) {
	tasks := o.tasks()

	inDegree := make(map[Key]int, len(tasks))
	for _, t := range tasks {
		inDegree[t.Key()] = len(t.Predecessors())
	}

	var queue []*Task
	for _, t := range tasks {
		if inDegree[t.Key()] == 0 {
			queue = append(queue, t)
		}
	}

	var levels [][]*Task
	visited := 0

	for len(queue) > 0 {
		sortByName(queue)
		levels = append(levels, queue)
		visited += len(queue)

		var next []*Task
		for _, t := range queue {
			for _, s := range t.Successors() {
				inDegree[s.Key()]--
				if inDegree[s.Key()] == 0 {
					next = append(next, s)
				}
			}
		}
		queue = next
	}

	if visited != len(tasks) {
		return levels, errors.CycleDetected(visited, len(tasks))
	}
	return levels, nil
}

// DumpPlan writes the execution plan as an indented tree from each root.
// A task reachable through several paths is printed under each of them.
func (o *Orchestrator) DumpPlan(w io.Writer) error {
	for _, r := range o.Roots() {
		if err := dumpTask(w, r, 0, make(map[Key]bool)); err != nil {
			return err
		}
	}
	return nil
}

func dumpTask(w io.Writer, t *Task, indent int, path map[Key]bool) error {
	if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", indent), t); err != nil {
		return err
	}
	// path guards against explicit next edges that loop back
	if path[t.Key()] {
		return nil
	}
	path[t.Key()] = true
	defer delete(path, t.Key())
	for _, n := range t.Successors() {
		if err := dumpTask(w, n, indent+1, path); err != nil {
			return err
		}
	}
	return nil
}
