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

import "errors"

// Sentinel error kinds. Components wrap these with serrors.Wrap to
// attach structured context (task id, reason, elapsed time) without
// losing the ability to classify the failure with errors.Is.
var (
	// ErrInvalidInput signals a malformed request: bad duration, empty
	// required resources, unsorted or overlapping availability, etc.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInfeasible signals that no schedule exists for the given
	// problem; this is a normal, structured outcome, not a thrown
	// exception.
	ErrInfeasible = errors.New("infeasible")

	// ErrTimeout signals that a solver's wall-clock budget elapsed
	// before any feasible schedule was found; solvers return it wrapped
	// together with ErrInfeasible. A search that times out with a
	// schedule in hand returns no error and sets its Result's TimedOut
	// field instead.
	ErrTimeout = errors.New("timeout")

	// ErrOracleUnavailable signals the external CP-SAT oracle could
	// not be invoked.
	ErrOracleUnavailable = errors.New("cp-sat oracle unavailable")

	// ErrInternal signals an invariant violation that should never
	// happen; the caller should treat it as a 500-class failure.
	ErrInternal = errors.New("internal error")
)
