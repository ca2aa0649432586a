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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/scheduling"
)

var _ = Describe("BuildConflictGraph", func() {
	It("connects tasks that share a required resource", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 60, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 1000},
				{ID: "t2", Duration: 60, RequiredResources: []string{"r1"}, EarliestStart: 500, LatestEnd: 1500},
				{ID: "t3", Duration: 60, RequiredResources: []string{"r2"}, EarliestStart: 1500, LatestEnd: 2500},
			},
		}
		graph := scheduling.BuildConflictGraph(problem)
		Expect(graph.Neighbors("t1")).To(ConsistOf("t2"))
		Expect(graph.Neighbors("t3")).To(BeEmpty())
	})

	It("connects tasks whose feasible windows overlap even without a shared resource", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 10, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 100},
				{ID: "t2", Duration: 10, RequiredResources: []string{"r2"}, EarliestStart: 50, LatestEnd: 150},
			},
		}
		graph := scheduling.BuildConflictGraph(problem)
		Expect(graph.Neighbors("t1")).To(ConsistOf("t2"))
	})

	It("leaves tasks with disjoint windows and no shared resource unconnected", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 10, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 100},
				{ID: "t2", Duration: 10, RequiredResources: []string{"r2"}, EarliestStart: 200, LatestEnd: 300},
			},
		}
		graph := scheduling.BuildConflictGraph(problem)
		Expect(graph.Neighbors("t1")).To(BeEmpty())
		Expect(graph.Degree("t1")).To(Equal(0))
	})

	It("reports degree consistent with the neighbor count", func() {
		problem := v1.Problem{
			Tasks: []v1.Task{
				{ID: "t1", Duration: 10, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 100},
				{ID: "t2", Duration: 10, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 100},
				{ID: "t3", Duration: 10, RequiredResources: []string{"r1"}, EarliestStart: 0, LatestEnd: 100},
			},
		}
		graph := scheduling.BuildConflictGraph(problem)
		Expect(graph.Degree("t1")).To(Equal(2))
		Expect(graph.Tasks()).To(ConsistOf("t1", "t2", "t3"))
	})
})
