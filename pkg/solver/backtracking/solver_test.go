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

package backtracking_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/solver/backtracking"
)

var _ = Describe("Solve", func() {
	opts := backtracking.Options{TimeLimit: 5 * time.Second, QuantumMinutes: 30}

	// A single task on a single resource must land at its earliest
	// feasible start with score 0.
	It("solves a trivial single-task instance", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "T1", Duration: 60, RequiredResources: []string{"R"}, EarliestStart: 540, LatestEnd: 720},
			},
			Resources: []v1.Resource{
				{ID: "R", Availability: []v1.Interval{{From: 540, To: 720}}},
			},
		}
		result, err := backtracking.Solve(context.Background(), problem, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Score).To(Equal(0.0))
		Expect(result.Schedule["T1"].Start).To(Equal(540))
		Expect(result.Schedule["T1"].End).To(Equal(600))
	})

	// Two tasks sharing a room both land inside their preferred windows.
	It("solves a two-task shared-resource instance with score 0", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "T1", Duration: 60, RequiredResources: []string{"R", "A"}, PreferredWindows: []v1.Interval{{From: 540, To: 720}}, EarliestStart: 480, LatestEnd: 900},
				{ID: "T2", Duration: 30, RequiredResources: []string{"R", "B"}, PreferredWindows: []v1.Interval{{From: 600, To: 780}}, EarliestStart: 480, LatestEnd: 900},
			},
			Resources: []v1.Resource{
				{ID: "R", Availability: []v1.Interval{{From: 480, To: 1020}}},
				{ID: "A", Availability: []v1.Interval{{From: 540, To: 900}}},
				{ID: "B", Availability: []v1.Interval{{From: 600, To: 960}}},
			},
		}
		result, err := backtracking.Solve(context.Background(), problem, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Score).To(Equal(0.0))
	})

	It("never overlaps two tasks on a shared resource", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "T1", Duration: 60, RequiredResources: []string{"R"}, EarliestStart: 0, LatestEnd: 180},
				{ID: "T2", Duration: 60, RequiredResources: []string{"R"}, EarliestStart: 0, LatestEnd: 180},
				{ID: "T3", Duration: 60, RequiredResources: []string{"R"}, EarliestStart: 0, LatestEnd: 180},
			},
			Resources: []v1.Resource{
				{ID: "R", Availability: []v1.Interval{{From: 0, To: 180}}},
			},
		}
		result, err := backtracking.Solve(context.Background(), problem, opts)
		Expect(err).NotTo(HaveOccurred())
		for idA, a := range result.Schedule {
			for idB, b := range result.Schedule {
				if idA == idB {
					continue
				}
				Expect(a.Interval().Overlaps(b.Interval())).To(BeFalse(), "%s and %s overlap", idA, idB)
			}
		}
	})

	// A task whose duration cannot fit its own window has an empty
	// domain; GenerateDomains rejects this before search begins. The
	// selector maps this case to InvalidInput at the request boundary;
	// this package sees it as a domain with no candidates.
	It("fails fast when a task's duration cannot fit its own window", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "T1", Duration: 120, RequiredResources: []string{"R"}, EarliestStart: 0, LatestEnd: 100},
			},
			Resources: []v1.Resource{
				{ID: "R", Availability: []v1.Interval{{From: 0, To: 100}}},
			},
		}
		_, err := backtracking.Solve(context.Background(), problem, opts)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, v1.ErrInfeasible)).To(BeTrue())
	})

	It("reports infeasibility when two tasks cannot both fit on a single-capacity resource", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "T1", Duration: 90, RequiredResources: []string{"R"}, EarliestStart: 0, LatestEnd: 90},
				{ID: "T2", Duration: 90, RequiredResources: []string{"R"}, EarliestStart: 0, LatestEnd: 90},
			},
			Resources: []v1.Resource{
				{ID: "R", Availability: []v1.Interval{{From: 0, To: 90}}},
			},
		}
		_, err := backtracking.Solve(context.Background(), problem, opts)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, v1.ErrInfeasible)).To(BeTrue())
	})

	It("returns an empty schedule for an empty task list", func() {
		result, err := backtracking.Solve(context.Background(), v1.Problem{}, opts)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Schedule).To(BeEmpty())
	})

	It("respects a deadline and returns the best incumbent with TimedOut set", func() {
		tasks := make([]v1.Task, 0, 12)
		for i := 0; i < 12; i++ {
			tasks = append(tasks, v1.Task{
				ID:                string(rune('A' + i)),
				Duration:          15,
				RequiredResources: []string{"R"},
				EarliestStart:     0,
				LatestEnd:         1440,
			})
		}
		problem := v1.Problem{
			Tasks:     tasks,
			Resources: []v1.Resource{{ID: "R", Availability: []v1.Interval{{From: 0, To: 1440}}}},
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		result, err := backtracking.Solve(ctx, problem, backtracking.Options{TimeLimit: time.Nanosecond, QuantumMinutes: 15})
		if err != nil {
			Expect(errors.Is(err, v1.ErrInfeasible)).To(BeTrue())
			Expect(errors.Is(err, v1.ErrTimeout)).To(BeTrue())
		} else {
			Expect(result.TimedOut).To(BeTrue())
		}
	})
})
