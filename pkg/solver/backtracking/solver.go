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

// Package backtracking implements a DFS constraint-satisfaction solver:
// minimum-remaining-values variable ordering with degree/lexicographic
// tiebreaks, least-constraining-value ordering, one-level forward
// checking, and feasibility-first best-so-far branch-and-bound.
package backtracking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/awslabs/operatorpkg/serrors"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/constraints"
	"github.com/aws/constraint-scheduler/pkg/logging"
	"github.com/aws/constraint-scheduler/pkg/scheduling"
)

// Options configures a single Solve invocation.
type Options struct {
	TimeLimit      time.Duration
	QuantumMinutes int
	Registry       *constraints.Registry
}

// Result is what Solve returns on any outcome other than ErrInvalidInput
// or ErrInfeasible without an incumbent.
type Result struct {
	Schedule v1.Schedule
	Score    float64
	// TimedOut reports whether the wall-clock budget elapsed before the
	// search tree was exhausted. Schedule/Score are still the best
	// incumbent found so far when TimedOut is true.
	TimedOut bool
}

// Solve runs the backtracking search to completion or deadline. It
// returns an error wrapping v1.ErrInfeasible when no feasible schedule
// exists (including when the deadline elapses before any incumbent is
// found), or the best-so-far Result otherwise (TimedOut set when the
// deadline was the reason search stopped).
func Solve(ctx context.Context, problem v1.Problem, opts Options) (Result, error) {
	log := logging.FromContext(ctx)
	if len(problem.Tasks) == 0 {
		return Result{Schedule: v1.Schedule{}, Score: 0}, nil
	}
	if opts.Registry == nil {
		opts.Registry = constraints.NewDefaultRegistry()
	}
	domains, err := scheduling.GenerateDomains(problem, opts.QuantumMinutes)
	if err != nil {
		return Result{}, err
	}
	graph := scheduling.BuildConflictGraph(problem)
	tasksByID := make(map[string]v1.Task, len(problem.Tasks))
	for _, t := range problem.Tasks {
		tasksByID[t.ID] = t
	}

	s := &search{
		problem:   problem,
		tasksByID: tasksByID,
		graph:     graph,
		registry:  opts.Registry,
		live:      domains,
		assigned:  v1.Schedule{},
		bestScore: math.Inf(1),
	}
	if opts.TimeLimit > 0 {
		s.deadline = time.Now().Add(opts.TimeLimit)
	}

	s.backtrack()

	if s.best == nil {
		if s.timedOut {
			return Result{TimedOut: true}, serrors.Wrap(fmt.Errorf("%w: %w", v1.ErrInfeasible, v1.ErrTimeout), "reason", "timeout")
		}
		return Result{}, fmt.Errorf("%w: search space exhausted with no feasible schedule", v1.ErrInfeasible)
	}
	log.Debugw("backtracking solve complete", "score", s.bestScore, "timed_out", s.timedOut, "nodes", s.nodes)
	return Result{Schedule: s.best, Score: s.bestScore, TimedOut: s.timedOut}, nil
}

type search struct {
	problem   v1.Problem
	tasksByID map[string]v1.Task
	graph     *scheduling.ConflictGraph
	registry  *constraints.Registry
	deadline  time.Time

	live      scheduling.Domains
	assigned  v1.Schedule
	best      v1.Schedule
	bestScore float64
	timedOut  bool
	nodes     int
}

func (s *search) expired() bool {
	if s.deadline.IsZero() {
		return false
	}
	return time.Now().After(s.deadline)
}

// backtrack explores the search tree rooted at the current partial
// assignment. It returns once the subtree is exhausted or the deadline
// elapses.
func (s *search) backtrack() {
	if s.timedOut {
		return
	}
	s.nodes++
	if s.expired() {
		s.timedOut = true
		return
	}

	if len(s.assigned) == len(s.problem.Tasks) {
		score := s.registry.Score(s.problem, s.assigned)
		if s.best == nil || score < s.bestScore {
			s.best = s.assigned.Clone()
			s.bestScore = score
		}
		return
	}

	// Branch-and-bound pruning: the realized penalty of everything
	// already placed is an admissible lower bound on this branch's
	// final score (soft penalties are non-negative).
	if s.best != nil {
		bound := s.registry.LowerBound(s.problem, s.assigned)
		if bound >= s.bestScore {
			return
		}
	}

	taskID := s.selectVariable()
	candidates := s.orderValues(taskID)

	for _, cand := range candidates {
		if s.expired() {
			s.timedOut = true
			return
		}
		removed, ok := s.forwardCheck(taskID, cand)
		if !ok {
			// A neighbor's domain went empty; this value is a dead end.
			continue
		}
		s.assigned[taskID] = v1.Assignment{TaskID: taskID, Start: cand.Start, End: cand.End, Resources: cand.Resources}
		delete(s.live, taskID)

		s.backtrack()

		delete(s.assigned, taskID)
		s.live[taskID] = candidates
		s.restore(removed)

		if s.timedOut {
			return
		}
	}
}

// selectVariable picks the unassigned task with the smallest live
// domain (MRV); ties broken by highest conflict-graph degree, further
// ties by lexicographic task id.
func (s *search) selectVariable() string {
	var candidates []string
	for id := range s.live {
		if _, done := s.assigned[id]; !done {
			candidates = append(candidates, id)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		di, dj := len(s.live[candidates[i]]), len(s.live[candidates[j]])
		if di != dj {
			return di < dj
		}
		gi, gj := s.graph.Degree(candidates[i]), s.graph.Degree(candidates[j])
		if gi != gj {
			return gi > gj
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0]
}

// orderValues sorts taskID's live domain by least-constraining-value:
// the number of candidate values it would eliminate from the live
// domains of currently-unassigned neighbors, ascending. Ties preserve
// the input (start-time ascending) order, which is itself
// deterministic.
func (s *search) orderValues(taskID string) []scheduling.Candidate {
	domain := s.live[taskID]
	neighbors := s.unassignedNeighbors(taskID)
	type scored struct {
		cand scheduling.Candidate
		cost int
	}
	scoredVals := make([]scored, len(domain))
	for i, cand := range domain {
		cost := 0
		for _, n := range neighbors {
			for _, nc := range s.live[n] {
				if candidatesConflict(cand, nc) {
					cost++
				}
			}
		}
		scoredVals[i] = scored{cand: cand, cost: cost}
	}
	sort.SliceStable(scoredVals, func(i, j int) bool { return scoredVals[i].cost < scoredVals[j].cost })
	out := make([]scheduling.Candidate, len(scoredVals))
	for i, sv := range scoredVals {
		out[i] = sv.cand
	}
	return out
}

func (s *search) unassignedNeighbors(taskID string) []string {
	var out []string
	for _, n := range s.graph.Neighbors(taskID) {
		if _, done := s.assigned[n]; !done {
			out = append(out, n)
		}
	}
	return out
}

// candidatesConflict reports whether placing `placed` would remove
// `other` from a neighbor's live domain under one-level forward
// checking: they share a resource and their intervals overlap.
func candidatesConflict(placed, other scheduling.Candidate) bool {
	return placed.SharesResource(other) && placed.Interval().Overlaps(other.Interval())
}

// removedEntry records what was pruned from one neighbor's live domain
// so backtrack can restore it verbatim.
type removedEntry struct {
	taskID string
	pruned []scheduling.Candidate
}

// forwardCheck removes, from every unassigned neighbor's live domain,
// any candidate that conflicts with `placed`. Returns ok=false if any
// neighbor's domain became empty (the branch must be rejected), after
// undoing whatever it had already pruned from other neighbors;
// otherwise ok=true, with the set of removed entries (possibly empty,
// when `placed` pruned nothing) so the caller can restore them after
// backtracking out of this branch.
func (s *search) forwardCheck(taskID string, placed scheduling.Candidate) ([]removedEntry, bool) {
	var removed []removedEntry
	for _, n := range s.unassignedNeighbors(taskID) {
		domain := s.live[n]
		var kept, pruned []scheduling.Candidate
		for _, c := range domain {
			if candidatesConflict(placed, c) {
				pruned = append(pruned, c)
			} else {
				kept = append(kept, c)
			}
		}
		if len(pruned) == 0 {
			continue
		}
		if len(kept) == 0 {
			s.restore(removed)
			return nil, false
		}
		s.live[n] = kept
		removed = append(removed, removedEntry{taskID: n, pruned: pruned})
	}
	return removed, true
}

// restore puts every pruned candidate back into its owning neighbor's
// live domain, in start-ascending order.
func (s *search) restore(removed []removedEntry) {
	for _, r := range removed {
		merged := append(s.live[r.taskID], r.pruned...)
		sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
		s.live[r.taskID] = merged
	}
}
