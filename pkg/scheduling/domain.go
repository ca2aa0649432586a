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

// Package scheduling holds the domain generator and conflict graph: the
// pieces of the solver core that turn a validated Problem into the
// search-ready structures the backtracking solver, the CP-SAT model
// builder, and the soft-constraint scorer all consume.
package scheduling

import (
	"fmt"
	"sort"

	"github.com/awslabs/operatorpkg/serrors"
	"github.com/samber/lo"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
)

// Candidate is one legal (start, resources) option for a task. It is
// durable only for the lifetime of a solve.
type Candidate struct {
	Start     int
	End       int
	Resources []string
}

// Interval returns the candidate's occupied span.
func (c Candidate) Interval() v1.Interval {
	return v1.Interval{From: c.Start, To: c.End}
}

// SharesResource reports whether c and o claim any resource in common.
func (c Candidate) SharesResource(o Candidate) bool {
	for _, r := range c.Resources {
		if lo.Contains(o.Resources, r) {
			return true
		}
	}
	return false
}

// Domains maps task id to its ordered (ascending by start) candidate
// sequence.
type Domains map[string][]Candidate

// GenerateDomains enumerates, for each task, every start time at the
// given quantum within [earliest_start, latest_end - duration] whose
// interval is entirely contained in one availability interval of every
// required resource. It fails with an ErrInfeasible-wrapped
// error carrying the offending task id when any task's candidate set is
// empty.
func GenerateDomains(problem v1.Problem, quantumMinutes int) (Domains, error) {
	if quantumMinutes < 1 {
		quantumMinutes = 1
	}
	resources := problem.ResourceByID()
	domains := make(Domains, len(problem.Tasks))
	for _, t := range problem.Tasks {
		var candidates []Candidate
		lastStart := t.LatestEnd - t.Duration
		for start := t.EarliestStart; start <= lastStart; start += quantumMinutes {
			iv := v1.Interval{From: start, To: start + t.Duration}
			if ok := fitsAllResources(iv, t.RequiredResources, resources); ok {
				candidates = append(candidates, Candidate{
					Start:     start,
					End:       iv.To,
					Resources: append([]string{}, t.RequiredResources...),
				})
			}
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Start < candidates[j].Start })
		if len(candidates) == 0 {
			return nil, serrors.Wrap(fmt.Errorf("%w: task has no feasible candidates", v1.ErrInfeasible), "task", t.ID)
		}
		domains[t.ID] = candidates
	}
	return domains, nil
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
