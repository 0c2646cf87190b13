package sizing

import (
	"errors"
	"fmt"
)

var (
	// ErrSearchExhausted indicates a stage spent its budget without meeting
	// its target. Stages report it through Status; the pipeline only returns
	// it as an error in strict mode.
	ErrSearchExhausted = errors.New("sizing: search budget exhausted")

	// ErrSearchStalled indicates a stage stopped because the oracle kept
	// failing to converge at a point whose metrics already meet the targets.
	// Like ErrSearchExhausted it is only returned in strict mode.
	ErrSearchStalled = errors.New("sizing: search stalled on a non-converged point")

	// ErrNoFeasibleCandidate indicates a stage result cannot seed the next
	// stage because nothing converged.
	ErrNoFeasibleCandidate = errors.New("sizing: no converged candidate to seed next stage")

	// ErrInvalidStage indicates a solver configured without axes, step or
	// iteration cap.
	ErrInvalidStage = errors.New("sizing: invalid stage configuration")
)

// StageError wraps the failure that aborted a solver stage.
type StageError struct {
	Stage     string
	Iteration int
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage aborted at iteration %d: %v", e.Stage, e.Iteration, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Status is the terminal state of a stage.
type Status string

const (
	// StatusConverged: the target was met.
	StatusConverged Status = "converged"
	// StatusExhausted: the iteration or candidate budget ran out; the result
	// carries the best record seen.
	StatusExhausted Status = "exhausted"
	// StatusStalled: two evaluations in a row at the same inputs met every
	// target without converging, so no axis could move; the result carries
	// the best record seen.
	StatusStalled Status = "stalled"
	// StatusAborted: an oracle or output failure stopped the stage early.
	StatusAborted Status = "aborted"
	// StatusFailed: the stage finished without a single usable evaluation.
	StatusFailed Status = "failed"
)

// Usable reports whether a result in this state can seed another stage.
func (s Status) Usable() bool {
	return s == StatusConverged || s == StatusExhausted || s == StatusStalled
}
