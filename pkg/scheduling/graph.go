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

package scheduling

import (
	"sort"

	"github.com/samber/lo"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
)

// ConflictGraph is an undirected adjacency structure over task
// positions (not task pointers): vertex i is problem.Tasks[i]. An edge
// (u, v) exists iff the tasks share a required resource or their
// feasible start windows overlap. The graph may contain cycles; no
// traversal in this package assumes acyclicity.
type ConflictGraph struct {
	ids     []string
	index   map[string]int
	adj     [][]int // adjacency by position, sorted ascending
	degrees []int
}

// BuildConflictGraph constructs the conflict graph for problem.
func BuildConflictGraph(problem v1.Problem) *ConflictGraph {
	ids := make([]string, len(problem.Tasks))
	index := make(map[string]int, len(problem.Tasks))
	for i, t := range problem.Tasks {
		ids[i] = t.ID
		index[t.ID] = i
	}
	adj := make([][]int, len(problem.Tasks))
	for i := range problem.Tasks {
		for j := i + 1; j < len(problem.Tasks); j++ {
			if conflicts(problem.Tasks[i], problem.Tasks[j]) {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}
	degrees := make([]int, len(problem.Tasks))
	for i := range adj {
		sort.Ints(adj[i])
		degrees[i] = len(adj[i])
	}
	return &ConflictGraph{ids: ids, index: index, adj: adj, degrees: degrees}
}

func conflicts(a, b v1.Task) bool {
	for _, ra := range a.RequiredResources {
		if lo.Contains(b.RequiredResources, ra) {
			return true
		}
	}
	return a.Window().Overlaps(b.Window())
}

// Neighbors returns the task ids adjacent to taskID.
func (g *ConflictGraph) Neighbors(taskID string) []string {
	i, ok := g.index[taskID]
	if !ok {
		return nil
	}
	out := make([]string, len(g.adj[i]))
	for k, j := range g.adj[i] {
		out[k] = g.ids[j]
	}
	return out
}

// Degree returns the precomputed degree of taskID, 0 for unknown ids.
func (g *ConflictGraph) Degree(taskID string) int {
	i, ok := g.index[taskID]
	if !ok {
		return 0
	}
	return g.degrees[i]
}

// Tasks returns every vertex id in input order.
func (g *ConflictGraph) Tasks() []string {
	return append([]string{}, g.ids...)
}
