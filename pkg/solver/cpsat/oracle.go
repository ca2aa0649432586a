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

package cpsat

import (
	"context"
	"sort"
	"time"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/constraints"
)

// InProcessOracle is a deterministic reference Oracle implementation
// that needs no external CP-SAT binding. It reads the Model's Tasks,
// Resources and StartDomain: no-overlap is enforced over each task's
// RequiredResources, and complete assignments are ranked with the
// registry's Score. It does not read Intervals, NoOverlaps or
// Objective. It is not a substitute for a real CP-SAT solver at production scale —
// wiring one in is a documented extension point — but it lets this
// package's consumers (the selector, the benchmark facade, and this
// package's own tests) exercise the complete contract end to end.
type InProcessOracle struct {
	registry *constraints.Registry
}

// NewInProcessOracle builds a reference oracle that scores candidate
// solutions with registry (the default registry if nil).
func NewInProcessOracle(registry *constraints.Registry) *InProcessOracle {
	if registry == nil {
		registry = constraints.NewDefaultRegistry()
	}
	return &InProcessOracle{registry: registry}
}

// Solve performs a deterministic best-improvement search over m's
// start-variable domains: assign tasks smallest-domain-first, rejecting
// any start that would overlap an already-placed task on a shared
// resource, then keep searching within the time budget for a
// lower-scoring complete assignment. Returns StatusOptimal if the
// search space was exhausted before the deadline, StatusFeasible if the
// deadline cut off the search with an incumbent in hand, and
// StatusInfeasible if no complete assignment exists.
func (o *InProcessOracle) Solve(ctx context.Context, m Model) (Solution, error) {
	if len(m.Tasks) == 0 {
		return Solution{Status: StatusOptimal, Starts: map[string]int{}}, nil
	}

	var deadline time.Time
	if m.TimeLimit > 0 {
		deadline = time.Now().Add(m.TimeLimit)
	}

	order := make([]string, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		order = append(order, t.ID)
	}
	sort.Slice(order, func(i, j int) bool {
		di, dj := len(m.StartDomain[order[i]]), len(m.StartDomain[order[j]])
		if di != dj {
			return di < dj
		}
		return order[i] < order[j]
	})

	taskByID := make(map[string]v1.Task, len(m.Tasks))
	resourcesByTask := make(map[string][]string, len(m.Tasks))
	for _, t := range m.Tasks {
		taskByID[t.ID] = t
		resourcesByTask[t.ID] = t.RequiredResources
	}

	problem := v1.Problem{Tasks: m.Tasks, Resources: m.Resources}

	s := &oracleSearch{
		order:           order,
		domains:         m.StartDomain,
		taskByID:        taskByID,
		resourcesByTask: resourcesByTask,
		registry:        o.registry,
		problem:         problem,
		assigned:        map[string]int{},
		occupied:        map[string][]v1.Interval{},
		deadline:        deadline,
	}
	s.search(ctx, 0)

	if s.best == nil {
		if s.timedOut {
			return Solution{Status: StatusUnknown}, nil
		}
		return Solution{Status: StatusInfeasible}, nil
	}
	status := StatusOptimal
	if s.timedOut {
		status = StatusFeasible
	}
	return Solution{Status: status, Starts: s.best}, nil
}

type oracleSearch struct {
	order           []string
	domains         map[string][]int
	taskByID        map[string]v1.Task
	resourcesByTask map[string][]string
	registry        *constraints.Registry
	problem         v1.Problem

	assigned map[string]int
	occupied map[string][]v1.Interval

	best      map[string]int
	bestScore float64
	timedOut  bool
	deadline  time.Time
}

func (s *oracleSearch) expired(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}
	return !s.deadline.IsZero() && time.Now().After(s.deadline)
}

func (s *oracleSearch) search(ctx context.Context, idx int) {
	if s.timedOut {
		return
	}
	if s.expired(ctx) {
		s.timedOut = true
		return
	}
	if idx == len(s.order) {
		schedule := s.toSchedule()
		score := s.registry.Score(s.problem, schedule)
		if s.best == nil || score < s.bestScore {
			s.best = make(map[string]int, len(s.assigned))
			for k, v := range s.assigned {
				s.best[k] = v
			}
			s.bestScore = score
		}
		return
	}
	taskID := s.order[idx]
	task := s.taskByID[taskID]
	for _, start := range s.domains[taskID] {
		if s.expired(ctx) {
			s.timedOut = true
			return
		}
		iv := v1.Interval{From: start, To: start + task.Duration}
		if s.conflicts(taskID, iv) {
			continue
		}
		s.place(taskID, iv)
		s.search(ctx, idx+1)
		s.unplace(taskID, iv)
		if s.timedOut {
			return
		}
	}
}

func (s *oracleSearch) conflicts(taskID string, iv v1.Interval) bool {
	for _, r := range s.resourcesByTask[taskID] {
		for _, placed := range s.occupied[r] {
			if placed.Overlaps(iv) {
				return true
			}
		}
	}
	return false
}

func (s *oracleSearch) place(taskID string, iv v1.Interval) {
	s.assigned[taskID] = iv.From
	for _, r := range s.resourcesByTask[taskID] {
		s.occupied[r] = append(s.occupied[r], iv)
	}
}

func (s *oracleSearch) unplace(taskID string, iv v1.Interval) {
	delete(s.assigned, taskID)
	for _, r := range s.resourcesByTask[taskID] {
		list := s.occupied[r]
		for i, placed := range list {
			if placed == iv {
				s.occupied[r] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

func (s *oracleSearch) toSchedule() v1.Schedule {
	out := make(v1.Schedule, len(s.assigned))
	for taskID, start := range s.assigned {
		task := s.taskByID[taskID]
		out[taskID] = v1.Assignment{
			TaskID:    taskID,
			Start:     start,
			End:       start + task.Duration,
			Resources: append([]string{}, task.RequiredResources...),
		}
	}
	return out
}
