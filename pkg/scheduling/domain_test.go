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

package scheduling_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/scheduling"
)

var _ = Describe("GenerateDomains", func() {
	It("enumerates every quantum-aligned start whose interval fits the resource's availability", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 60, RequiredResources: []string{"r1"}, EarliestStart: 540, LatestEnd: 720},
			},
			Resources: []v1.Resource{
				{ID: "r1", Availability: []v1.Interval{{From: 540, To: 720}}},
			},
		}
		domains, err := scheduling.GenerateDomains(problem, 30)
		Expect(err).NotTo(HaveOccurred())

		starts := make([]int, len(domains["t1"]))
		for i, c := range domains["t1"] {
			starts[i] = c.Start
		}
		Expect(starts).To(Equal([]int{540, 570, 600, 630, 660}))
	})

	It("excludes candidates that would spill past a resource's availability window", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 60, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 120},
			},
			Resources: []v1.Resource{
				{ID: "r1", Availability: []v1.Interval{{From: 0, To: 90}}},
			},
		}
		domains, err := scheduling.GenerateDomains(problem, 15)
		Expect(err).NotTo(HaveOccurred())
		for _, c := range domains["t1"] {
			Expect(c.End).To(BeNumerically("<=", 90))
		}
	})

	It("requires every required resource to independently contain the candidate interval", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 60, RequiredResources: []string{"r1", "r2"}, EarliestStart: 0, LatestEnd: 180},
			},
			Resources: []v1.Resource{
				{ID: "r1", Availability: []v1.Interval{{From: 0, To: 180}}},
				{ID: "r2", Availability: []v1.Interval{{From: 60, To: 180}}},
			},
		}
		domains, err := scheduling.GenerateDomains(problem, 60)
		Expect(err).NotTo(HaveOccurred())
		for _, c := range domains["t1"] {
			Expect(c.Start).To(BeNumerically(">=", 60))
		}
	})

	It("fails with an ErrInfeasible-wrapped error when a task has no feasible candidates", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 60, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 180},
			},
			Resources: []v1.Resource{
				{ID: "r1", Availability: []v1.Interval{{From: 200, To: 300}}},
			},
		}
		_, err := scheduling.GenerateDomains(problem, 15)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, v1.ErrInfeasible)).To(BeTrue())
	})
})

var _ = Describe("Candidate", func() {
	It("reports shared resources correctly", func() {
		a := scheduling.Candidate{Start: 0, End: 60, Resources: []string{"r1", "r2"}}
		b := scheduling.Candidate{Start: 30, End: 90, Resources: []string{"r2"}}
		c := scheduling.Candidate{Start: 30, End: 90, Resources: []string{"r3"}}
		Expect(a.SharesResource(b)).To(BeTrue())
		Expect(a.SharesResource(c)).To(BeFalse())
	})
})
