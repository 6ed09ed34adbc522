package taskgraph

import (
	"fmt"

	apperrors "github.com/kbukum/flowkit/errors"
)

// Levels groups job ids by dependency depth using Kahn's algorithm.
// Jobs within one level have no ordering constraints between them and
// can execute in parallel. Within a level, jobs keep construction
// order, so the grouping is deterministic. Returns an error for edges
// referencing unknown jobs or for a dependency cycle.
func (w *Workflow) Levels() ([][]string, error) {
	inDegree := make(map[string]int, len(w.Jobs))
	dependents := make(map[string][]string)
	for _, job := range w.Jobs {
		inDegree[job.ID] = 0
	}

	for _, dep := range w.Dependencies {
		if _, ok := inDegree[dep.ID]; !ok {
			return nil, apperrors.Graph(fmt.Sprintf("dependency references unknown job %q", dep.ID), nil)
		}
		for _, child := range dep.Children {
			if _, ok := inDegree[child]; !ok {
				return nil, apperrors.Graph(fmt.Sprintf("dependency references unknown job %q", child), nil)
			}
			inDegree[child]++
			dependents[dep.ID] = append(dependents[dep.ID], child)
		}
	}

	var queue []string
	for _, job := range w.Jobs {
		if inDegree[job.ID] == 0 {
			queue = append(queue, job.ID)
		}
	}

	var levels [][]string
	visited := 0
	for len(queue) > 0 {
		levels = append(levels, queue)
		visited += len(queue)

		released := make(map[string]bool)
		for _, id := range queue {
			for _, child := range dependents[id] {
				inDegree[child]--
				if inDegree[child] == 0 {
					released[child] = true
				}
			}
		}

		// Keep construction order within the next level.
		var next []string
		for _, job := range w.Jobs {
			if released[job.ID] {
				next = append(next, job.ID)
			}
		}
		queue = next
	}

	if visited != len(w.Jobs) {
		return nil, apperrors.Graph(fmt.Sprintf("dependency cycle detected, ordered %d of %d jobs", visited, len(w.Jobs)), nil)
	}
	return levels, nil
}
