package sizing

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Axis couples one design variable with the metric it steers.
type Axis struct {
	Variable models.DesignVariable
	Metric   Metric
	Target   Target
	Response Response
	Step     StepPolicy
}

// CoordinateSolver adjusts one or more design variables by fixed steps until
// every axis metric meets its target in the same converged evaluation.
//
//	EVALUATE -> CHECK -> CONVERGED
//	                  \-> ADJUST -> EVALUATE
//
// All axes are steered from the same evaluation and their moves are written
// together before the next one. Termination is by iteration count only: a
// coarse step can cycle in value space and only MaxIterations stops it.
type CoordinateSolver struct {
	Stage         string
	Axes          []Axis
	MaxIterations int

	// Fixed variables are rewritten before every evaluation so the stage
	// never relies on values left behind by an earlier stage.
	Fixed []models.DesignVariable
}

// SolveResult is the outcome of a coordinate solve.
type SolveResult struct {
	Stage      string
	Status     Status
	Iterations int
	// Variables holds the accepted values: those of the converged
	// evaluation, or of the best record on exhaustion.
	Variables []models.DesignVariable
	// Metrics of the accepted record.
	Metrics map[string]float64
	History *models.History
	// Cycle is the period of a repeating tail in the history when the
	// solver was exhausted while oscillating; zero otherwise.
	Cycle int
}

// Value returns the accepted value of the named variable.
func (r *SolveResult) Value(name string) (float64, bool) {
	for _, v := range r.Variables {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// Variable returns the accepted variable by name.
func (r *SolveResult) Variable(name string) (models.DesignVariable, bool) {
	for _, v := range r.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return models.DesignVariable{}, false
}

func (c *CoordinateSolver) validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be positive, got %d", ErrInvalidStage, c.MaxIterations)
	}
	if len(c.Axes) == 0 {
		return fmt.Errorf("%w: no axes", ErrInvalidStage)
	}
	for _, a := range c.Axes {
		if a.Step == nil || a.Target == nil || a.Metric.Compute == nil {
			return fmt.Errorf("%w: axis %s needs a step policy, target and metric", ErrInvalidStage, a.Variable.Name)
		}
		if a.Response != Increasing && a.Response != Decreasing {
			return fmt.Errorf("%w: axis %s has no response direction", ErrInvalidStage, a.Variable.Name)
		}
	}
	return nil
}

// Solve runs the solver. The result is never nil; when an oracle or output
// failure aborts the stage it holds the records made before the failure and
// the error is a *StageError. No adjustment is applied after a failure.
func (c *CoordinateSolver) Solve(ctx context.Context, s *DesignSession) (*SolveResult, error) {
	stage := c.Stage
	if stage == "" {
		stage = "solve"
	}
	res := &SolveResult{Stage: stage, History: models.NewHistory(c.MaxIterations)}
	s.Track(stage, res.History)
	log := s.Logger(stage)

	if err := c.validate(); err != nil {
		res.Status = StatusFailed
		return res, &StageError{Stage: stage, Err: err}
	}

	vars := make([]models.DesignVariable, len(c.Axes))
	paths := make([]string, 0)
	for i, a := range c.Axes {
		vars[i] = a.Variable
		paths = append(paths, a.Metric.Paths...)
		if r, ok := a.Step.(resetter); ok {
			r.Reset()
		}
	}

	abort := func(iter int, err error) (*SolveResult, error) {
		res.Status = StatusAborted
		res.Iterations = iter - 1
		c.accept(res, res.History)
		log.Warn("stage aborted", "iteration", iter, "error", err)
		return res, &StageError{Stage: stage, Iteration: iter, Err: err}
	}

	// held is set after a non-converged evaluation that met every target:
	// the next one runs at the same inputs.
	held := false
	for iter := 1; iter <= c.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return abort(iter, err)
		}
		written := withFixed(c.Fixed, vars...)
		if err := s.Write(ctx, written...); err != nil {
			return abort(iter, err)
		}
		eval, err := s.Evaluate(ctx)
		if err != nil {
			return abort(iter, err)
		}
		if err := s.Read(ctx, &eval, paths...); err != nil {
			return abort(iter, err)
		}

		metrics := make(map[string]float64, len(c.Axes))
		values := make([]float64, len(c.Axes))
		for i, a := range c.Axes {
			m, err := a.Metric.Eval(eval)
			if err != nil {
				return abort(iter, err)
			}
			metrics[a.Metric.Name] = m
			values[i] = m
		}

		res.History.Append(models.Record{
			Iteration: iter,
			Inputs:    inputsOf(written),
			Metrics:   metrics,
			Status:    eval.Status,
		})
		res.Iterations = iter

		satisfied := eval.Converged()
		for i, a := range c.Axes {
			if !a.Target.Contains(values[i]) {
				satisfied = false
			}
		}
		log.Debug("iteration evaluated", "iteration", iter, "inputs", inputsOf(vars), "metrics", metrics, "status", eval.Status)

		if satisfied {
			res.Status = StatusConverged
			res.Variables = vars
			res.Metrics = metrics
			log.Info("targets met", "iterations", iter, "variables", inputsOf(vars), "metrics", metrics)
			return res, nil
		}

		// Decide every move from this evaluation before writing any.
		next := make([]models.DesignVariable, len(vars))
		moved := false
		for i, a := range c.Axes {
			dir := Steer(a.Target, a.Response, values[i])
			moved = moved || dir != Hold
			next[i] = vars[i].WithValue(a.Step.Next(vars[i], dir))
		}
		if !moved {
			if held {
				res.Status = StatusStalled
				c.accept(res, res.History)
				log.Warn("oracle does not converge at an in-target point", "iterations", iter, "variables", inputsOf(vars), "metrics", metrics)
				return res, nil
			}
			log.Info("targets met without convergence, evaluating again", "iteration", iter, "variables", inputsOf(vars))
		}
		held = !moved
		vars = next
	}

	res.Status = StatusExhausted
	c.accept(res, res.History)
	res.Cycle = DetectCycle(res.History, variableNames(c.Axes), cycleWindow)
	log.Warn("iteration budget exhausted", "max_iterations", c.MaxIterations, "best", inputsOf(res.Variables), "metrics", res.Metrics, "cycle", res.Cycle)
	return res, nil
}

// accept picks the best record of h and stores its values in res.
func (c *CoordinateSolver) accept(res *SolveResult, h *models.History) {
	best, ok := c.best(h)
	if !ok {
		return
	}
	vars := make([]models.DesignVariable, len(c.Axes))
	for i, a := range c.Axes {
		vars[i] = a.Variable.WithValue(best.Inputs[a.Variable.Name])
	}
	res.Variables = vars
	res.Metrics = best.Metrics
}

// best returns the record closest to meeting every target, preferring
// converged evaluations. Ties keep the later record, which is the one the
// search was heading towards.
func (c *CoordinateSolver) best(h *models.History) (models.Record, bool) {
	var (
		best      models.Record
		bestScore float64
		found     bool
		bestConv  bool
	)
	for _, r := range h.Records() {
		score := 0.0
		for _, a := range c.Axes {
			score += a.Target.Distance(r.Metrics[a.Metric.Name])
		}
		conv := r.Converged()
		switch {
		case !found,
			conv && !bestConv,
			conv == bestConv && score <= bestScore:
			best, bestScore, bestConv, found = r, score, conv, true
		}
	}
	return best, found
}

func variableNames(axes []Axis) []string {
	out := make([]string, len(axes))
	for i, a := range axes {
		out[i] = a.Variable.Name
	}
	return out
}
