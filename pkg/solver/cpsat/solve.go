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
	"fmt"
	"time"

	"github.com/awslabs/operatorpkg/serrors"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/constraints"
)

// Options configures a single Solve invocation.
type Options struct {
	TimeLimit      time.Duration
	QuantumMinutes int
	Registry       *constraints.Registry
	// Oracle is the solver consulted for the built Model. Defaults to
	// NewInProcessOracle(Registry) when nil; production callers inject a
	// real CP-SAT binding here.
	Oracle Oracle
}

// Result mirrors backtracking.Result so callers can treat either
// solver's outcome uniformly.
type Result struct {
	Schedule v1.Schedule
	Score    float64
	TimedOut bool
}

// Solve builds the declarative Model for problem and asks
// opts.Oracle for a solution, translating the oracle's Status into the
// same error contract backtracking.Solve uses: a v1.ErrInfeasible-wrapped
// error when no complete assignment exists, otherwise a Result with
// TimedOut set whenever the oracle reports StatusFeasible/StatusUnknown
// rather than StatusOptimal.
func Solve(ctx context.Context, problem v1.Problem, opts Options) (Result, error) {
	if len(problem.Tasks) == 0 {
		return Result{Schedule: v1.Schedule{}, Score: 0}, nil
	}
	if opts.Registry == nil {
		opts.Registry = constraints.NewDefaultRegistry()
	}
	if opts.Oracle == nil {
		opts.Oracle = NewInProcessOracle(opts.Registry)
	}

	model, err := Build(problem, opts.QuantumMinutes, opts.TimeLimit)
	if err != nil {
		return Result{}, err
	}

	solution, err := opts.Oracle.Solve(ctx, model)
	if err != nil {
		return Result{}, serrors.Wrap(fmt.Errorf("%w: oracle call failed", v1.ErrOracleUnavailable), "error", err)
	}

	switch solution.Status {
	case StatusInfeasible:
		return Result{}, fmt.Errorf("%w: oracle reported infeasible", v1.ErrInfeasible)
	case StatusUnknown:
		if len(solution.Starts) == 0 {
			return Result{TimedOut: true}, serrors.Wrap(fmt.Errorf("%w: %w", v1.ErrInfeasible, v1.ErrTimeout), "reason", "timeout")
		}
	}

	schedule := reconstructSchedule(problem, solution.Starts)
	score := opts.Registry.Score(problem, schedule)
	timedOut := solution.Status == StatusFeasible || solution.Status == StatusUnknown
	return Result{Schedule: schedule, Score: score, TimedOut: timedOut}, nil
}

// reconstructSchedule turns an oracle's raw start-variable assignment
// back into a v1.Schedule, filling in each task's duration and required
// resources (an Oracle only ever reports starts; the rest is derivable
// from the problem alone).
func reconstructSchedule(problem v1.Problem, starts map[string]int) v1.Schedule {
	out := make(v1.Schedule, len(starts))
	for _, t := range problem.Tasks {
		start, ok := starts[t.ID]
		if !ok {
			continue
		}
		out[t.ID] = v1.Assignment{
			TaskID:    t.ID,
			Start:     start,
			End:       start + t.Duration,
			Resources: append([]string{}, t.RequiredResources...),
		}
	}
	return out
}
