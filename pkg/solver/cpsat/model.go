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

// Package cpsat builds a declarative interval/no-overlap model and
// defines the narrow Oracle capability interface that an external
// CP-SAT solver satisfies. The core never imports a CP-SAT binding
// directly: it hands an Oracle a Model and reads back a Solution. The
// shape of Model mirrors the google/or-tools cpmodel Go API's
// primitives (NewIntVarFromDomain, NewIntervalVar/NewOptionalIntervalVar,
// AddNoOverlap, Minimize), without requiring that library's cgo binding
// to compile this package.
package cpsat

import (
	"context"
	"time"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
)

// IntervalSpec is one task's claim on one of its required resources: an
// interval of length task.Duration anchored at the task's shared start
// variable, valid only when the start falls within one of the disjoint
// AllowedRanges derived from that resource's availability. Real CP-SAT
// encodes "valid only within a disjoint range" as an optional interval
// per range with a presence boolean and an exactly-one constraint across
// ranges; since every task's required resources are mandatorily
// co-assigned (the candidate space is (start, resources) with
// resources fixed to task.RequiredResources, never a choice),
// presence collapses to "start falls in the union of AllowedRanges",
// which this struct records directly instead of carrying a free boolean
// per range.
type IntervalSpec struct {
	TaskID        string
	ResourceID    string
	Duration      int
	AllowedRanges []v1.Interval
}

// ObjectiveTermKind names which built-in soft constraint an objective
// term linearizes.
type ObjectiveTermKind string

const (
	TermPreferredDisplacement ObjectiveTermKind = "preferred_displacement"
	TermWorkloadDeviation     ObjectiveTermKind = "workload_deviation"
	TermGapMinutes            ObjectiveTermKind = "gap_minutes"
)

// ObjectiveTerm is one addend of the linear objective: minimize
// Σ Weight * (the named slack quantity for TaskID or ResourceID). TaskID is populated
// for per-task terms (preferred-window displacement); ResourceID for
// per-resource terms (workload deviation, gap minutes).
type ObjectiveTerm struct {
	Kind       ObjectiveTermKind
	TaskID     string
	ResourceID string
	Weight     float64
}

// Model is the complete declarative problem handed to an Oracle: one
// shared start variable per task (StartDomain), the resource intervals
// it anchors, the no-overlap groups those intervals participate in, and
// a linear objective over named soft-constraint slack terms.
type Model struct {
	Tasks       []v1.Task
	Resources   []v1.Resource
	StartDomain map[string][]int // task id -> candidate start minutes
	Intervals   []IntervalSpec
	NoOverlaps  map[string][]string // resource id -> task ids sharing it
	Objective   []ObjectiveTerm
	TimeLimit   time.Duration
}

// Status is the oracle's outcome classification.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusUnknown    Status = "unknown"
)

// Solution is what an Oracle returns: a status and, when
// optimal/feasible, the chosen value of every task's start variable.
type Solution struct {
	Status Status
	Starts map[string]int
}

// Oracle is the narrow capability interface an external CP-SAT solver
// (or, for tests, InProcessOracle) must satisfy: submit a model, await a
// solution. Multiple backends may implement it; the core specifies only
// the model primitives above.
type Oracle interface {
	Solve(ctx context.Context, model Model) (Solution, error)
}
