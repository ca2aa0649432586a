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

// Package selector is the facade a caller actually talks to: it applies
// the auto-selection policy, consults the fingerprint cache, dispatches
// to whichever solver was chosen, and scores the outcome. It is the
// only package that imports all three solver packages together.
package selector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/cache"
	"github.com/aws/constraint-scheduler/pkg/config"
	"github.com/aws/constraint-scheduler/pkg/constraints"
	"github.com/aws/constraint-scheduler/pkg/logging"
	"github.com/aws/constraint-scheduler/pkg/solver/backtracking"
	"github.com/aws/constraint-scheduler/pkg/solver/cpsat"
	"github.com/aws/constraint-scheduler/pkg/solver/tabu"
)

// BacktrackingTaskThreshold is the |tasks| cutoff below which the auto
// policy prefers backtracking over CP-SAT; overridable via
// config.Settings.SelectorBacktrackThreshold.
const BacktrackingTaskThreshold = 15

// Selector is the stateful facade: it owns the cache and the frozen
// soft-constraint registry, and is safe for concurrent use (the cache
// is the only shared mutable state, and go-cache is concurrency-safe
// internally).
type Selector struct {
	cache    *cache.Cache
	registry *constraints.Registry
	settings config.Settings
}

// New builds a Selector. cache may be nil to disable caching entirely.
func New(c *cache.Cache, registry *constraints.Registry, settings config.Settings) *Selector {
	if registry == nil {
		registry = constraints.NewDefaultRegistry()
	}
	return &Selector{cache: c, registry: registry, settings: settings}
}

// Solve applies the selection policy, consults the cache, and runs the
// chosen solver on a miss. The returned error is nil whenever a
// Response was produced (including a cache hit); it is non-nil when
// validation fails or the one chosen solver fails (infeasible input,
// invalid input, or an oracle failure). No other solver is tried after
// a failure.
func (s *Selector) Solve(ctx context.Context, problem v1.Problem) (v1.Response, error) {
	log := logging.FromContext(ctx)
	problem = problem.Normalize()
	if err := problem.Validate(); err != nil {
		return v1.Response{}, err
	}

	fingerprint, err := problem.Fingerprint()
	if err != nil {
		return v1.Response{}, err
	}

	if entry, ok := s.cache.Get(fingerprint); ok {
		return v1.Response{Schedule: entry.Schedule, Score: entry.Score, SolverUsed: "cache", Cached: true}, nil
	}

	chosen := s.choose(problem)
	start := time.Now()
	schedule, score, label, err := s.dispatch(ctx, chosen, problem)
	elapsed := time.Since(start)
	if err != nil {
		return v1.Response{}, err
	}

	s.cache.Put(fingerprint, cache.Entry{Schedule: schedule, Score: score, SolverUsed: label})
	log.Debugw("solve dispatched", "solver", label, "score", score, "elapsed_ms", elapsed.Milliseconds())

	return v1.Response{
		Schedule:   schedule,
		Score:      score,
		SolverUsed: label,
		Cached:     false,
		ElapsedMS:  elapsed.Milliseconds(),
	}, nil
}

// choose applies the auto-selection policy, or returns the caller's
// explicit override unchanged.
func (s *Selector) choose(problem v1.Problem) v1.Solver {
	if problem.Solver != v1.SolverAuto && problem.Solver != "" {
		return problem.Solver
	}
	if len(problem.InitialSchedule) > 0 {
		return v1.SolverLocalSearch
	}
	threshold := s.settings.SelectorBacktrackThreshold
	if threshold == 0 {
		threshold = BacktrackingTaskThreshold
	}
	if len(problem.Tasks) < threshold {
		return v1.SolverBacktracking
	}
	return v1.SolverCPSAT
}

// dispatch runs the named solver and normalizes its result into
// (schedule, score, solver_used label). The label records "(timeout)"
// for any solver that returns a timed-out incumbent.
func (s *Selector) dispatch(ctx context.Context, which v1.Solver, problem v1.Problem) (v1.Schedule, float64, string, error) {
	switch which {
	case v1.SolverBacktracking:
		res, err := backtracking.Solve(ctx, problem, backtracking.Options{
			TimeLimit:      s.settings.BacktrackTimeLimit(),
			QuantumMinutes: s.settings.QuantumMinutes,
			Registry:       s.registry,
		})
		if err != nil {
			return nil, 0, "", err
		}
		return res.Schedule, res.Score, labelFor("backtracking", res.TimedOut), nil

	case v1.SolverCPSAT:
		res, err := cpsat.Solve(ctx, problem, cpsat.Options{
			TimeLimit:      s.settings.CPSATTimeLimit(),
			QuantumMinutes: s.settings.QuantumMinutes,
			Registry:       s.registry,
		})
		if err != nil {
			return nil, 0, "", err
		}
		return res.Schedule, res.Score, labelFor("cp-sat", res.TimedOut), nil

	case v1.SolverLocalSearch:
		res, err := tabu.Solve(ctx, problem, tabu.Options{
			QuantumMinutes: s.settings.QuantumMinutes,
			Registry:       s.registry,
			Tenure:         s.settings.TabuTenure,
			MaxIterations:  s.settings.TabuMaxIter,
		})
		if err != nil {
			return nil, 0, "", err
		}
		return res.Schedule, res.Score, "local-search", nil

	default:
		return nil, 0, "", fmt.Errorf("%w: unknown solver %q", v1.ErrInvalidInput, which)
	}
}

func labelFor(name string, timedOut bool) string {
	if timedOut {
		return name + " (timeout)"
	}
	return name
}

// BenchmarkRun is one solver's outcome within a BenchmarkResult.
type BenchmarkRun struct {
	ElapsedMS int64
	Score     float64
	Schedule  v1.Schedule
	Err       error
}

// BenchmarkResult is the full benchmark-mode response: a run_id
// correlating the run across logs, plus one BenchmarkRun per solver
// exercised.
type BenchmarkResult struct {
	RunID string
	Runs  map[v1.Solver]BenchmarkRun
}

// Benchmark runs backtracking and CP-SAT unconditionally, and
// local-search when problem supplies an initial schedule, all against
// the same problem, and reports each solver's (time_ms, score,
// schedule-or-error) without consulting or populating the cache.
func (s *Selector) Benchmark(ctx context.Context, problem v1.Problem) (BenchmarkResult, error) {
	problem = problem.Normalize()
	if err := problem.Validate(); err != nil {
		return BenchmarkResult{}, err
	}

	result := BenchmarkResult{RunID: uuid.NewString(), Runs: map[v1.Solver]BenchmarkRun{}}

	solvers := []v1.Solver{v1.SolverBacktracking, v1.SolverCPSAT}
	if len(problem.InitialSchedule) > 0 {
		solvers = append(solvers, v1.SolverLocalSearch)
	}
	for _, which := range solvers {
		start := time.Now()
		schedule, score, _, err := s.dispatch(ctx, which, problem)
		result.Runs[which] = BenchmarkRun{
			ElapsedMS: time.Since(start).Milliseconds(),
			Score:     score,
			Schedule:  schedule,
			Err:       err,
		}
	}
	return result, nil
}
