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

// Package tabu implements a local-search re-optimizer: given a feasible
// starting schedule, repeatedly time-shift one task within a
// tabu-tenured neighborhood, always taking the best-improving non-tabu
// move (with aspiration for moves that beat the best score seen so
// far), until the iteration budget or a non-improving stall ends the
// search.
package tabu

import (
	"context"
	"fmt"

	"github.com/awslabs/operatorpkg/serrors"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/constraints"
	"github.com/aws/constraint-scheduler/pkg/logging"
	"github.com/aws/constraint-scheduler/pkg/scheduling"
)

const (
	// MaxIterations bounds the total number of neighborhoods explored.
	MaxIterations = 100
	// MaxStall ends the search after this many consecutive
	// non-improving iterations.
	MaxStall = 25
	// TabuTenure is the number of iterations a (task, delta) move stays
	// forbidden after being applied.
	TabuTenure = 10
)

// Options configures a single Solve invocation. Tenure and MaxIterations
// default to the package constants when zero; MaxStall is not
// independently configurable (spec §6.5 exposes no such key).
type Options struct {
	QuantumMinutes int
	Registry       *constraints.Registry
	Tenure         int
	MaxIterations  int
}

// Result is the outcome of a local-search re-optimization.
type Result struct {
	Schedule   v1.Schedule
	Score      float64
	Iterations int
}

// move is a candidate time-shift: task id plus a signed minute delta
// applied to its current start.
type move struct {
	taskID string
	delta  int
}

// Solve re-optimizes problem.InitialSchedule with tabu-tenured time-shift
// local search. It returns a v1.ErrInvalidInput-wrapped error if the
// initial schedule is missing, incomplete, or infeasible (shares a
// resource-conflict or falls outside any task's window); any other
// failure is a v1.ErrInternal-wrapped invariant violation.
func Solve(ctx context.Context, problem v1.Problem, opts Options) (Result, error) {
	log := logging.FromContext(ctx)
	if len(problem.InitialSchedule) == 0 {
		return Result{}, fmt.Errorf("%w: local search requires a non-empty initial_schedule", v1.ErrInvalidInput)
	}
	if opts.Registry == nil {
		opts.Registry = constraints.NewDefaultRegistry()
	}
	tenure := opts.Tenure
	if tenure < 1 {
		tenure = TabuTenure
	}
	maxIter := opts.MaxIterations
	if maxIter < 1 {
		maxIter = MaxIterations
	}
	quantum := opts.QuantumMinutes
	if quantum < 1 {
		quantum = 15
	}
	// Four candidate shifts per task: ±30 and ±60 minutes, with the
	// smaller shift narrowed to the problem's own quantum when it is 15
	// (per spec §4.6), so a 15-minute-quantum problem never proposes a
	// move finer than its own domain granularity.
	smallStep := 30
	if quantum == 15 {
		smallStep = 15
	}
	steps := []int{smallStep, 60}

	current := problem.InitialSchedule.Clone()
	if err := validateSchedule(problem, current); err != nil {
		return Result{}, err
	}

	tasksByID := make(map[string]v1.Task, len(problem.Tasks))
	for _, t := range problem.Tasks {
		tasksByID[t.ID] = t
	}
	resources := problem.ResourceByID()

	bestSchedule := current.Clone()
	bestScore := opts.Registry.Score(problem, current)
	currentScore := bestScore

	tabu := map[move]int{} // move -> iteration it expires on
	stall := 0
	iter := 0

	for iter = 0; iter < maxIter && stall < MaxStall; iter++ {
		select {
		case <-ctx.Done():
			return Result{Schedule: bestSchedule, Score: bestScore, Iterations: iter}, nil
		default:
		}

		bestMove, bestNeighbor, bestNeighborScore, found := selectNeighbor(
			problem, tasksByID, resources, current, currentScore, bestScore, tabu, iter, steps, opts.Registry,
		)
		if !found {
			break
		}

		current = bestNeighbor
		currentScore = bestNeighborScore
		tabu[bestMove] = iter + tenure
		tabu[move{taskID: bestMove.taskID, delta: -bestMove.delta}] = iter + tenure

		if currentScore < bestScore {
			bestSchedule = current.Clone()
			bestScore = currentScore
			stall = 0
		} else {
			stall++
		}
	}

	log.Debugw("tabu solve complete", "score", bestScore, "iterations", iter)
	return Result{Schedule: bestSchedule, Score: bestScore, Iterations: iter}, nil
}

// selectNeighbor scans every task's up-to-four-move neighborhood
// (±steps[0], ±steps[1]) and returns the best-scoring feasible, non-tabu
// move. A tabu move is still considered if it would beat the best score
// seen so far (aspiration).
func selectNeighbor(
	problem v1.Problem,
	tasksByID map[string]v1.Task,
	resources map[string]v1.Resource,
	current v1.Schedule,
	currentScore float64,
	bestScore float64,
	tabu map[move]int,
	iter int,
	steps []int,
	registry *constraints.Registry,
) (move, v1.Schedule, float64, bool) {
	var (
		chosenMove  move
		chosen      v1.Schedule
		chosenScore = currentScore
		found       bool
	)

	deltas := make([]int, 0, 2*len(steps))
	for _, step := range steps {
		deltas = append(deltas, -step, step)
	}

	for _, taskID := range current.TaskIDs() {
		task := tasksByID[taskID]
		a := current[taskID]
		for _, delta := range deltas {
			newStart := a.Start + delta
			newEnd := newStart + task.Duration
			if newStart < task.EarliestStart || newEnd > task.LatestEnd {
				continue
			}
			candidateInterval := v1.Interval{From: newStart, To: newEnd}
			if !fitsAllResources(candidateInterval, task.RequiredResources, resources) {
				continue
			}
			if conflictsWithOthers(current, taskID, task.RequiredResources, candidateInterval) {
				continue
			}

			neighbor := current.Clone()
			next := neighbor[taskID]
			next.Start = newStart
			next.End = newEnd
			neighbor[taskID] = next
			score := registry.Score(problem, neighbor)

			m := move{taskID: taskID, delta: delta}
			isTabu := tabu[m] > iter
			if isTabu && score >= bestScore {
				continue
			}

			if !found || score < chosenScore {
				found = true
				chosenMove = m
				chosen = neighbor
				chosenScore = score
			}
		}
	}
	return chosenMove, chosen, chosenScore, found
}

func fitsAllResources(iv v1.Interval, required []string, resources map[string]v1.Resource) bool {
	for _, rid := range required {
		r, ok := resources[rid]
		if !ok {
			return false
		}
		if _, ok := r.ContainingWindow(iv); !ok {
			return false
		}
	}
	return true
}

func conflictsWithOthers(schedule v1.Schedule, taskID string, resources []string, iv v1.Interval) bool {
	for otherID, other := range schedule {
		if otherID == taskID {
			continue
		}
		if !iv.Overlaps(other.Interval()) {
			continue
		}
		for _, r := range resources {
			if other.HasResource(r) {
				return true
			}
		}
	}
	return false
}

// validateSchedule rejects an initial schedule that does not cover
// every task, places a task outside its own window or its resources'
// availability, or leaves two tasks overlapping on a shared resource.
func validateSchedule(problem v1.Problem, schedule v1.Schedule) error {
	tasksByID := make(map[string]v1.Task, len(problem.Tasks))
	for _, t := range problem.Tasks {
		tasksByID[t.ID] = t
	}
	resources := problem.ResourceByID()
	if len(schedule) != len(problem.Tasks) {
		return fmt.Errorf("%w: initial_schedule does not cover every task", v1.ErrInvalidInput)
	}
	for taskID, a := range schedule {
		task, ok := tasksByID[taskID]
		if !ok {
			return serrors.Wrap(fmt.Errorf("%w: initial_schedule references an unknown task", v1.ErrInvalidInput), "task", taskID)
		}
		if a.Start < task.EarliestStart || a.End > task.LatestEnd || a.End-a.Start != task.Duration {
			return serrors.Wrap(fmt.Errorf("%w: initial_schedule assignment is outside its task's window or duration", v1.ErrInvalidInput), "task", taskID)
		}
		if !fitsAllResources(a.Interval(), task.RequiredResources, resources) {
			return serrors.Wrap(fmt.Errorf("%w: initial_schedule assignment falls outside its resources' availability", v1.ErrInvalidInput), "task", taskID)
		}
	}
	for idA, a := range schedule {
		for idB, b := range schedule {
			if idA >= idB {
				continue
			}
			if !a.Interval().Overlaps(b.Interval()) {
				continue
			}
			for _, r := range a.Resources {
				if b.HasResource(r) {
					return serrors.Wrap(fmt.Errorf("%w: initial_schedule has a resource conflict", v1.ErrInvalidInput), "task_a", idA, "task_b", idB, "resource", r)
				}
			}
		}
	}
	return nil
}
