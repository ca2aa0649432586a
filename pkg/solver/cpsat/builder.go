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
	"time"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/scheduling"
)

// Build translates problem into an interval/no-overlap Model. Candidate
// start domains are generated the same way the backtracking solver's
// domains are (scheduling.GenerateDomains), since the set of
// resource-feasible starts for a task does not depend on which solver
// consumes it; fails the same way, with an ErrInfeasible-wrapped error,
// when any task's domain is empty.
func Build(problem v1.Problem, quantumMinutes int, timeLimit time.Duration) (Model, error) {
	domains, err := scheduling.GenerateDomains(problem, quantumMinutes)
	if err != nil {
		return Model{}, err
	}
	resources := problem.ResourceByID()

	m := Model{
		Tasks:       problem.Tasks,
		Resources:   problem.Resources,
		StartDomain: make(map[string][]int, len(problem.Tasks)),
		NoOverlaps:  map[string][]string{},
		TimeLimit:   timeLimit,
	}

	for _, t := range problem.Tasks {
		starts := make([]int, len(domains[t.ID]))
		for i, c := range domains[t.ID] {
			starts[i] = c.Start
		}
		m.StartDomain[t.ID] = starts

		for _, rid := range t.RequiredResources {
			r := resources[rid]
			ranges := allowedStartRanges(t, r)
			m.Intervals = append(m.Intervals, IntervalSpec{
				TaskID:        t.ID,
				ResourceID:    rid,
				Duration:      t.Duration,
				AllowedRanges: ranges,
			})
			m.NoOverlaps[rid] = append(m.NoOverlaps[rid], t.ID)
		}

		if len(t.PreferredWindows) > 0 {
			m.Objective = append(m.Objective, ObjectiveTerm{Kind: TermPreferredDisplacement, TaskID: t.ID, Weight: 1})
		}
	}
	for _, r := range problem.Resources {
		m.Objective = append(m.Objective,
			ObjectiveTerm{Kind: TermWorkloadDeviation, ResourceID: r.ID, Weight: 1},
			ObjectiveTerm{Kind: TermGapMinutes, ResourceID: r.ID, Weight: 1},
		)
	}
	return m, nil
}

// allowedStartRanges computes, for task t claiming resource r, the
// disjoint half-open ranges [first, last+1) of start_t values for which
// [start, start+duration) is contained in one of r's availability
// windows and within t's own feasible window.
func allowedStartRanges(t v1.Task, r v1.Resource) []v1.Interval {
	var ranges []v1.Interval
	for _, w := range r.Availability {
		from := max(w.From, t.EarliestStart)
		to := min(w.To-t.Duration, t.LatestEnd-t.Duration)
		if from <= to {
			ranges = append(ranges, v1.Interval{From: from, To: to + 1})
		}
	}
	return ranges
}
