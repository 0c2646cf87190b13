// Package oracle defines the narrow interface through which the sizing
// controller talks to an external process simulator, plus in-memory
// implementations used for development and tests.
//
// An oracle is a black box: inputs are staged by path with Set, Evaluate
// commits them and blocks until the simulator has finished recomputing, and
// Get reads one output of the evaluation that just completed. Adapters never
// retry; retry policy belongs to callers.
package oracle

import (
	"context"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Oracle is the external simulator seen as a function evaluator.
type Oracle interface {
	// Set stages one scalar input write. It fails with ErrUnknownPath when
	// the path does not exist in the current flowsheet.
	Set(ctx context.Context, path string, value float64) error

	// Evaluate commits every staged write, runs the simulator and blocks
	// until it reports completion. A simulator-side error is not a Go error:
	// it is reported through EvalResult.Status. ErrOracleUnavailable means
	// the session cannot evaluate at all.
	Evaluate(ctx context.Context) (EvalResult, error)

	// Get reads one scalar output of the last evaluation. It fails with
	// ErrOutputUnavailable when the path is absent or was not produced.
	Get(ctx context.Context, path string) (float64, error)
}

// EvalResult is the outcome of one evaluation.
type EvalResult struct {
	// Seq numbers evaluations within a design session. Zero means the
	// result did not pass through a session.
	Seq uint64
	// Status is the convergence flag.
	Status models.EvalStatus
	// Code is the raw simulator error code (0 on success).
	Code int
	// Outputs holds the output paths read after the evaluation.
	Outputs map[string]float64
}

// Converged reports whether the simulator converged.
func (r EvalResult) Converged() bool {
	return r.Status == models.EvalConverged
}

// Output returns one output value, or ErrOutputUnavailable when the result
// does not carry it.
func (r EvalResult) Output(path string) (float64, error) {
	v, ok := r.Outputs[path]
	if !ok {
		return 0, &PathError{Op: "output", Path: path, Err: ErrOutputUnavailable}
	}
	return v, nil
}

// StatusFromCode maps a simulator error code to a convergence flag. Zero is
// success; any other code is a reported simulation error.
func StatusFromCode(code int) models.EvalStatus {
	if code == 0 {
		return models.EvalConverged
	}
	return models.EvalNonConverged
}
