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

package v1

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/awslabs/operatorpkg/serrors"
	"github.com/mitchellh/hashstructure/v2"
	"go.uber.org/multierr"
)

// RegistryVersion is the soft-constraint registry's version tag. It is
// frozen at process start (see pkg/constraints) and folded into the
// problem fingerprint so that a registry change invalidates the cache.
const RegistryVersion = "constraints/v1"

// Solver names a solver strategy, or "auto" to let the selector choose.
type Solver string

const (
	SolverAuto         Solver = "auto"
	SolverBacktracking Solver = "backtracking"
	SolverCPSAT        Solver = "cp-sat"
	SolverLocalSearch  Solver = "local-search"
)

// Problem is the request payload consumed from the API boundary (§6.1).
type Problem struct {
	Tasks           []Task     `json:"tasks"`
	Resources       []Resource `json:"resources"`
	Solver          Solver     `json:"solver"`
	InitialSchedule Schedule   `json:"initial_schedule,omitempty"`
	TimeLimitMS     int        `json:"time_limit_ms,omitempty"`
	registryVersion string
}

// Normalize applies request-layer defaults (missing earliest_start/
// latest_end, missing solver) and returns the canonical problem. It does
// not mutate p.
func (p Problem) Normalize() Problem {
	out := p
	out.Tasks = make([]Task, len(p.Tasks))
	for i, t := range p.Tasks {
		out.Tasks[i] = t.WithDefaults()
	}
	if out.Solver == "" {
		out.Solver = SolverAuto
	}
	out.registryVersion = RegistryVersion
	return out
}

// Validate checks every cross-referencing invariant the request layer
// must enforce before the problem reaches the solver core: malformed
// tasks/resources, unknown resource references, and the local-search
// precondition that an initial schedule is supplied.
func (p Problem) Validate() error {
	var errs error
	seenTasks := map[string]bool{}
	for _, t := range p.Tasks {
		if err := t.Validate(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if seenTasks[t.ID] {
			errs = multierr.Append(errs, fmt.Errorf("%w: duplicate task id %q", ErrInvalidInput, t.ID))
		}
		seenTasks[t.ID] = true
	}
	knownResources := map[string]Resource{}
	for _, r := range p.Resources {
		if err := r.Validate(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, dup := knownResources[r.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%w: duplicate resource id %q", ErrInvalidInput, r.ID))
		}
		knownResources[r.ID] = r
	}
	for _, t := range p.Tasks {
		for _, rid := range t.RequiredResources {
			if _, ok := knownResources[rid]; !ok {
				errs = multierr.Append(errs, serrors.Wrap(fmt.Errorf("%w: unknown resource reference", ErrInvalidInput), "task", t.ID, "resource", rid))
			}
		}
	}
	if p.Solver == SolverLocalSearch && len(p.InitialSchedule) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: solver=local-search requires an initial_schedule", ErrInvalidInput))
	}
	return errs
}

// ResourceByID returns the resource map keyed by id, useful to
// components that need O(1) resource lookup during generation.
func (p Problem) ResourceByID() map[string]Resource {
	out := make(map[string]Resource, len(p.Resources))
	for _, r := range p.Resources {
		out[r.ID] = r
	}
	return out
}

// Fingerprint computes a deterministic digest: a hash of the canonical
// encoding of (sorted tasks by id, sorted
// resources by id, constraint-registry version tag). Reordering the
// input arrays never changes the fingerprint.
func (p Problem) Fingerprint() (string, error) {
	tasks := append([]Task{}, p.Tasks...)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	for i := range tasks {
		rr := append([]string{}, tasks[i].RequiredResources...)
		sort.Strings(rr)
		tasks[i].RequiredResources = rr
	}

	resources := append([]Resource{}, p.Resources...)
	sort.Slice(resources, func(i, j int) bool { return resources[i].ID < resources[j].ID })

	registryVersion := p.registryVersion
	if registryVersion == "" {
		registryVersion = RegistryVersion
	}

	canonical := struct {
		Tasks           []Task     `json:"tasks"`
		Resources       []Resource `json:"resources"`
		RegistryVersion string     `json:"registry_version"`
	}{Tasks: tasks, Resources: resources, RegistryVersion: registryVersion}

	// Round-trip through JSON first so the hash is taken over the
	// canonical JSON encoding, hashing the semantically-relevant fields
	// rather than the raw Go struct.
	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling canonical problem: %v", ErrInternal, err)
	}
	var asMap any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		return "", fmt.Errorf("%w: unmarshaling canonical problem: %v", ErrInternal, err)
	}
	hash, err := hashstructure.Hash(asMap, hashstructure.FormatV2, &hashstructure.HashOptions{SlicesAsSets: false})
	if err != nil {
		return "", fmt.Errorf("%w: hashing canonical problem: %v", ErrInternal, err)
	}
	return fmt.Sprintf("%016x", hash), nil
}
