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

// scheduler-cli is a thin entry point over the selector facade: it
// reads a problem as JSON, solves or benchmarks it, and writes the
// response as JSON. It exists so the solver core can be exercised
// without embedding it in a long-running service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	v1 "github.com/aws/constraint-scheduler/pkg/apis/v1"
	"github.com/aws/constraint-scheduler/pkg/cache"
	"github.com/aws/constraint-scheduler/pkg/config"
	"github.com/aws/constraint-scheduler/pkg/constraints"
	"github.com/aws/constraint-scheduler/pkg/logging"
	"github.com/aws/constraint-scheduler/pkg/solver/selector"
)

func main() {
	var (
		inputPath string
		benchmark bool
		verbose   bool
	)
	flag.StringVar(&inputPath, "input", "-", "path to a JSON problem file, or - for stdin")
	flag.BoolVar(&benchmark, "benchmark", false, "run every applicable solver and report per-solver results")
	flag.BoolVar(&verbose, "verbose", false, "enable development-mode logging")
	flag.Parse()

	if err := run(inputPath, benchmark, verbose); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(inputPath string, benchmark, verbose bool) error {
	ctx := context.Background()
	if verbose {
		ctx = logging.IntoContext(ctx, logging.NewDevelopment())
	}

	problem, err := readProblem(inputPath)
	if err != nil {
		return fmt.Errorf("reading problem: %w", err)
	}

	settings := config.FromEnv()
	sel := selector.New(cache.New(settings.CacheTTL()), constraints.NewDefaultRegistry(), settings)

	if benchmark {
		result, err := sel.Benchmark(ctx, problem)
		if err != nil {
			return err
		}
		return printJSON(benchmarkView(result))
	}

	response, err := sel.Solve(ctx, problem)
	if err != nil {
		return err
	}
	return printJSON(response)
}

func readProblem(path string) (v1.Problem, error) {
	var r *os.File
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return v1.Problem{}, err
		}
		defer f.Close()
		r = f
	}
	var p v1.Problem
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return v1.Problem{}, fmt.Errorf("decoding problem: %w", err)
	}
	return p, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// benchmarkView flattens a selector.BenchmarkResult into a
// JSON-friendly shape: errors become strings so a failed solver (e.g.
// an infeasible backtracking run) doesn't break the whole encode.
type benchmarkRunView struct {
	ElapsedMS int64       `json:"elapsed_ms"`
	Score     float64     `json:"score,omitempty"`
	Schedule  v1.Schedule `json:"schedule,omitempty"`
	Error     string      `json:"error,omitempty"`
}

type benchmarkResultView struct {
	RunID string                      `json:"run_id"`
	Runs  map[string]benchmarkRunView `json:"runs"`
}

func benchmarkView(result selector.BenchmarkResult) benchmarkResultView {
	out := benchmarkResultView{RunID: result.RunID, Runs: map[string]benchmarkRunView{}}
	for solverName, run := range result.Runs {
		view := benchmarkRunView{ElapsedMS: run.ElapsedMS, Score: run.Score, Schedule: run.Schedule}
		if run.Err != nil {
			view.Error = run.Err.Error()
		}
		out.Runs[string(solverName)] = view
	}
	return out
}
