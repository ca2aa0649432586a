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

package cpsat_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/solver/cpsat"
)

var _ = Describe("Build", func() {
	It("produces one no-overlap group per resource listing every task that claims it", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 60, RequiredResources: []string{"r1", "r2"}, EarliestStart: 0, LatestEnd: 180},
				{ID: "t2", Duration: 60, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 180},
			},
			Resources: []v1.Resource{
				{ID: "r1", Availability: []v1.Interval{{From: 0, To: 180}}},
				{ID: "r2", Availability: []v1.Interval{{From: 0, To: 180}}},
			},
		}
		model, err := cpsat.Build(problem, 30, 5*time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(model.NoOverlaps["r1"]).To(ConsistOf("t1", "t2"))
		Expect(model.NoOverlaps["r2"]).To(ConsistOf("t1"))
	})

	It("adds a preferred-displacement objective term only for tasks with preferred windows", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 60, RequiredResources: []string{"r1"}, PreferredWindows: []v1.Interval{{From: 0, To: 60}}, EarliestStart: 0, LatestEnd: 180},
				{ID: "t2", Duration: 60, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 180},
			},
			Resources: []v1.Resource{
				{ID: "r1", Availability: []v1.Interval{{From: 0, To: 180}}},
			},
		}
		model, err := cpsat.Build(problem, 30, 5*time.Second)
		Expect(err).NotTo(HaveOccurred())

		var taskIDsWithDisplacementTerm []string
		for _, term := range model.Objective {
			if term.Kind == cpsat.TermPreferredDisplacement {
				taskIDsWithDisplacementTerm = append(taskIDsWithDisplacementTerm, term.TaskID)
			}
		}
		Expect(taskIDsWithDisplacementTerm).To(ConsistOf("t1"))
	})

	It("propagates an ErrInfeasible-wrapped error when GenerateDomains fails", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 60, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 180},
			},
			Resources: []v1.Resource{
				{ID: "r1", Availability: []v1.Interval{{From: 500, To: 600}}},
			},
		}
		_, err := cpsat.Build(problem, 30, 5*time.Second)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, v1.ErrInfeasible)).To(BeTrue())
	})
})
