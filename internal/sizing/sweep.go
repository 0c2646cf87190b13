package sizing

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Sweep scans one design variable over an ordered list of candidates and
// stops at the first converged evaluation whose metric falls in Band. It is
// open loop: candidates are tried in order and nothing between two of them
// is ever refined.
type Sweep struct {
	Stage      string
	Variable   models.DesignVariable
	Candidates []float64
	Metric     Metric
	Band       models.TargetBand

	// FallbackPath is read for non-converged evaluations to keep a degraded
	// record (e.g. the clean-gas CO2 flow). Empty disables it.
	FallbackPath  string
	FallbackLabel string

	// Fixed variables are rewritten before every evaluation.
	Fixed []models.DesignVariable
}

// SweepResult is the outcome of a sweep.
type SweepResult struct {
	Stage  string
	Status Status
	// Candidate is the in-band value on success, or the last converged
	// value on exhaustion.
	Candidate float64
	Metric    float64
	// Evaluations counts the candidates actually evaluated.
	Evaluations  int
	Converged    *models.History
	NotConverged *models.History
}

// Variable returns the swept variable holding the selected candidate.
func (r *SweepResult) Variable(v models.DesignVariable) models.DesignVariable {
	return v.WithValue(r.Candidate)
}

// Run executes the sweep. The result is never nil; on abort it carries the
// partial histories next to the error.
func (sw *Sweep) Run(ctx context.Context, s *DesignSession) (*SweepResult, error) {
	stage := sw.Stage
	if stage == "" {
		stage = "sweep"
	}
	res := &SweepResult{
		Stage:        stage,
		Converged:    models.NewHistory(len(sw.Candidates)),
		NotConverged: models.NewHistory(0),
	}
	s.Track(stage, res.Converged)
	s.Track(NotConvergedStage(stage), res.NotConverged)
	log := s.Logger(stage)

	if len(sw.Candidates) == 0 || sw.Metric.Compute == nil {
		res.Status = StatusFailed
		return res, &StageError{Stage: stage, Err: fmt.Errorf("%w: sweep needs candidates and a metric", ErrInvalidStage)}
	}
	label := sw.FallbackLabel
	if label == "" {
		label = defaultFallbackLabel
	}

	abort := func(i int, err error) (*SweepResult, error) {
		res.Status = StatusAborted
		if last, ok := res.Converged.Last(); ok {
			res.Candidate = last.Inputs[sw.Variable.Name]
			res.Metric = last.Metrics[sw.Metric.Name]
		}
		log.Warn("sweep aborted", "candidate_index", i, "error", err)
		return res, &StageError{Stage: stage, Iteration: i, Err: err}
	}

	for i, candidate := range sw.Candidates {
		if err := ctx.Err(); err != nil {
			return abort(i+1, err)
		}
		written := withFixed(sw.Fixed, sw.Variable.WithValue(candidate))
		if err := s.Write(ctx, written...); err != nil {
			return abort(i+1, err)
		}

		eval, err := s.Evaluate(ctx)
		res.Evaluations++
		if err != nil {
			return abort(i+1, err)
		}

		inputs := inputsOf(written)
		if !eval.Converged() {
			metrics := map[string]float64{}
			if sw.FallbackPath != "" {
				if err := s.Read(ctx, &eval, sw.FallbackPath); err != nil {
					return abort(i+1, err)
				}
				metrics[label] = eval.Outputs[sw.FallbackPath]
			}
			res.NotConverged.Append(models.Record{Iteration: i + 1, Inputs: inputs, Metrics: metrics, Status: eval.Status})
			log.Debug("candidate did not converge", sw.Variable.Name, candidate, "code", eval.Code)
			continue
		}

		if err := s.Read(ctx, &eval, sw.Metric.Paths...); err != nil {
			return abort(i+1, err)
		}
		m, err := sw.Metric.Eval(eval)
		if err != nil {
			return abort(i+1, err)
		}
		res.Converged.Append(models.Record{
			Iteration: i + 1,
			Inputs:    inputs,
			Metrics:   map[string]float64{sw.Metric.Name: m},
			Status:    eval.Status,
		})
		log.Debug("candidate evaluated", sw.Variable.Name, candidate, sw.Metric.Name, m)

		if sw.Band.Contains(m) {
			res.Status = StatusConverged
			res.Candidate = candidate
			res.Metric = m
			log.Info("target band reached", sw.Variable.Name, candidate, sw.Metric.Name, m, "band", sw.Band.String())
			return res, nil
		}
	}

	last, ok := res.Converged.LastConverged()
	if !ok {
		res.Status = StatusFailed
		log.Warn("no candidate converged", "candidates", len(sw.Candidates))
		return res, nil
	}
	res.Status = StatusExhausted
	res.Candidate = last.Inputs[sw.Variable.Name]
	res.Metric = last.Metrics[sw.Metric.Name]
	log.Warn("sweep exhausted without reaching band", "last_candidate", res.Candidate, sw.Metric.Name, res.Metric, "band", sw.Band.String())
	return res, nil
}

// withFixed returns fixed followed by vars in a fresh slice.
func withFixed(fixed []models.DesignVariable, vars ...models.DesignVariable) []models.DesignVariable {
	out := make([]models.DesignVariable, 0, len(fixed)+len(vars))
	out = append(out, fixed...)
	return append(out, vars...)
}

func inputsOf(vars []models.DesignVariable) map[string]float64 {
	out := make(map[string]float64, len(vars))
	for _, v := range vars {
		out[v.Name] = v.Value
	}
	return out
}
