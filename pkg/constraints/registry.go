/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package constraints holds the soft-constraint registry and scorer: a
// pluggable list of non-negative penalty functions, weighted and
// summed into a single schedule score. The registry is frozen at process
// start (see NewDefaultRegistry) and its version tag is folded into the
// problem fingerprint so a registry change invalidates the cache.
package constraints

import (
	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
)

// Constraint is a pure function from (task, assignment, full schedule)
// to a non-negative real penalty, aggregated over every task it applies
// to. A lower score is better; scores are comparable only within the
// same problem instance.
type Constraint interface {
	Name() string
	// Score returns the constraint's total, unweighted penalty across
	// every task in schedule.
	Score(problem v1.Problem, schedule v1.Schedule) float64
}

// PartialBoundable is implemented by constraints whose penalty for a
// single task can be computed from that task's own assignment alone,
// without the rest of the schedule. The backtracking solver uses this
// to compute an admissible lower bound on a partial assignment's
// eventual score.
type PartialBoundable interface {
	TaskPenalty(task v1.Task, a v1.Assignment) float64
}

// entry pairs a constraint with its weight.
type entry struct {
	constraint Constraint
	weight     float64
}

// Registry holds a weighted, ordered list of soft constraints. It is
// immutable once built: new constraints compose by registration at
// process start (NewRegistry), never afterward.
type Registry struct {
	entries []entry
	version string
}

// NewRegistry returns an empty registry tagged with version; constraints
// and their weights are added with Register. version should change whenever the set of constraints or their
// semantics changes, since it is folded into the problem fingerprint.
func NewRegistry(version string) *Registry {
	return &Registry{version: version}
}

// Register adds a weighted constraint. Intended to be called only while
// assembling the registry at process start; the returned *Registry is
// the same instance, to allow chaining.
func (r *Registry) Register(c Constraint, weight float64) *Registry {
	r.entries = append(r.entries, entry{constraint: c, weight: weight})
	return r
}

// Version returns the registry's frozen version tag.
func (r *Registry) Version() string {
	return r.version
}

// Score computes Σ_c weight_c · Σ_task c(task, assignment, schedule)
// over every registered constraint.
func (r *Registry) Score(problem v1.Problem, schedule v1.Schedule) float64 {
	var total float64
	for _, e := range r.entries {
		if e.weight == 0 {
			continue
		}
		total += e.weight * e.constraint.Score(problem, schedule)
	}
	return total
}

// LowerBound computes the admissible partial-score lower bound used by
// the backtracking solver's branch-and-bound pruning: the sum, over
// every constraint that can be evaluated per-task (PartialBoundable), of
// weight times the task's own realized penalty. Constraints that can
// only be evaluated against the full schedule (BalancedWorkload,
// MinimizeGaps) contribute 0 to the bound; since every constraint is
// non-negative, omitting them only makes the bound more conservative,
// never unsound.
func (r *Registry) LowerBound(problem v1.Problem, partial v1.Schedule) float64 {
	tasksByID := make(map[string]v1.Task, len(problem.Tasks))
	for _, t := range problem.Tasks {
		tasksByID[t.ID] = t
	}
	var total float64
	for _, e := range r.entries {
		if e.weight == 0 {
			continue
		}
		pb, ok := e.constraint.(PartialBoundable)
		if !ok {
			continue
		}
		for taskID, a := range partial {
			task, ok := tasksByID[taskID]
			if !ok {
				continue
			}
			total += e.weight * pb.TaskPenalty(task, a)
		}
	}
	return total
}
