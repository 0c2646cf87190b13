package sizing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Plan is the full configuration of one design run.
type Plan struct {
	Paths models.Paths

	// Feed is written before the first sweep when set.
	Feed *Feed

	SolventSweep SweepPlan
	// SolventFactor scales the sweep hit before it seeds the dual stage.
	SolventFactor float64

	// HeightSweep, when set, brackets the packing height at the scaled
	// flowrate and seeds the height stage with its hit.
	HeightSweep *SweepPlan

	Dual     DualPlan
	Height   HeightPlan
	Topology []TopologyStep
	Recycle  RecyclePlan
	Finalize []TopologyStep

	// Strict stops the run with ErrSearchExhausted as soon as a stage
	// exhausts its budget instead of seeding the next stage with its best
	// record.
	Strict bool
}

// Validate checks the plan before any evaluation is issued.
func (p Plan) Validate() error {
	if _, err := p.SolventSweep.Candidates(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidStage, StageSolventSweep, err)
	}
	if p.HeightSweep != nil {
		if _, err := p.HeightSweep.Candidates(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidStage, StageHeightSweep, err)
		}
	}
	checks := []struct {
		stage string
		cap   int
		axes  []AxisPlan
	}{
		{StageDual, p.Dual.MaxIterations, []AxisPlan{p.Dual.Diameter, p.Dual.Solvent}},
		{StageHeight, p.Height.MaxIterations, []AxisPlan{p.Height.Height}},
		{StageRecycle, p.Recycle.MaxIterations, []AxisPlan{p.Recycle.Boilup}},
	}
	for _, c := range checks {
		if c.cap <= 0 {
			return fmt.Errorf("%w: %s max_iterations must be positive, got %d", ErrInvalidStage, c.stage, c.cap)
		}
		for _, a := range c.axes {
			if err := a.validate(c.stage + "." + a.Variable.Name); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidStage, err)
			}
		}
	}
	if p.Recycle.Setpoint.Tolerance < 0 {
		return fmt.Errorf("%w: %s tolerance must not be negative", ErrInvalidStage, StageRecycle)
	}
	return nil
}

// Observer is told about every stage once it has finished, successful or
// not. It must not retain or mutate h.
type Observer interface {
	StageDone(ctx context.Context, stage string, status Status, h *models.History)
}

// DesignReport collects every stage result of one run.
type DesignReport struct {
	SessionID string
	Status    Status

	Feed         *FeedResult
	SolventSweep *SweepResult
	SolventSeed  float64
	HeightSweep  *SweepResult
	HeightSeed   float64
	Dual         *SolveResult
	Height       *SolveResult
	Topology     []StepResult
	Recycle      *SolveResult
	Finalize     []StepResult

	// Design holds the accepted design variables in stage order.
	Design      []models.DesignVariable
	Evaluations uint64
	Started     time.Time
	Finished    time.Time
}

// Value returns an accepted design value by variable name.
func (r *DesignReport) Value(name string) (float64, bool) {
	for _, v := range r.Design {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// Pipeline runs the stages of a Plan in order, each seeded explicitly by the
// typed result of the one before.
type Pipeline struct {
	plan      Plan
	observers []Observer
}

// NewPipeline validates plan and returns a pipeline for it.
func NewPipeline(plan Plan, observers ...Observer) (*Pipeline, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{plan: plan, observers: observers}, nil
}

// Plan returns the plan the pipeline runs.
func (p *Pipeline) Plan() Plan {
	return p.plan
}

// Run executes the pipeline on s. The report is never nil: on error it holds
// every stage that ran, including the partial history of the failing one.
func (p *Pipeline) Run(ctx context.Context, s *DesignSession) (*DesignReport, error) {
	rep := &DesignReport{SessionID: s.ID(), Status: StatusConverged, Started: time.Now()}
	err := p.run(ctx, s, rep)
	rep.Finished = time.Now()
	rep.Evaluations = s.Evaluations()
	if err != nil {
		if rep.Status == StatusConverged {
			rep.Status = StatusAborted
		}
		s.Logger("pipeline").Error("design run stopped", "error", err, "evaluations", rep.Evaluations)
		return rep, err
	}
	s.Logger("pipeline").Info("design run finished", "status", rep.Status, "evaluations", rep.Evaluations, "design", inputsOf(rep.Design))
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, s *DesignSession, rep *DesignReport) error {
	plan := p.plan
	paths := plan.Paths

	if plan.Feed != nil {
		feed, err := WriteFeed(ctx, s, paths, *plan.Feed)
		if err != nil {
			return err
		}
		rep.Feed = feed
	}

	// solvent flowrate sweep at the initial geometry
	sweep, err := NewSolventSweep(plan.SolventSweep, paths, plan.Dual.Diameter.Variable, plan.Height.Height.Variable)
	if err != nil {
		return err
	}
	rep.SolventSweep, err = sweep.Run(ctx, s)
	p.notifySweep(ctx, StageSolventSweep, rep.SolventSweep)
	if err := p.settle(rep, StageSolventSweep, rep.SolventSweep.Status, err); err != nil {
		return err
	}
	rep.SolventSeed, err = SolventSeed(rep.SolventSweep, plan.SolventFactor)
	if err != nil {
		return err
	}
	solvent := plan.Dual.Solvent.Variable.WithValue(rep.SolventSeed)

	// optional packing height sweep at the scaled flowrate
	rep.HeightSeed = plan.Height.Height.Variable.Value
	if plan.HeightSweep != nil {
		hs, err := NewHeightSweep(*plan.HeightSweep, paths, solvent, plan.Dual.Diameter.Variable)
		if err != nil {
			return err
		}
		rep.HeightSweep, err = hs.Run(ctx, s)
		p.notifySweep(ctx, StageHeightSweep, rep.HeightSweep)
		if err := p.settle(rep, StageHeightSweep, rep.HeightSweep.Status, err); err != nil {
			return err
		}
		if !rep.HeightSweep.Status.Usable() {
			return fmt.Errorf("%w: %s", ErrNoFeasibleCandidate, StageHeightSweep)
		}
		rep.HeightSeed = rep.HeightSweep.Candidate
	}
	height := plan.Height.Height.Variable.WithValue(rep.HeightSeed)

	dual := NewDualStage(plan.Dual, paths, rep.SolventSeed, height)
	rep.Dual, err = dual.Solve(ctx, s)
	p.notify(ctx, StageDual, rep.Dual.Status, rep.Dual.History)
	if err := p.settle(rep, StageDual, rep.Dual.Status, err); err != nil {
		return err
	}

	hstage, err := NewHeightStage(plan.Height, paths, rep.HeightSeed, rep.Dual)
	if err != nil {
		return err
	}
	rep.Height, err = hstage.Solve(ctx, s)
	p.notify(ctx, StageHeight, rep.Height.Status, rep.Height.History)
	if err := p.settle(rep, StageHeight, rep.Height.Status, err); err != nil {
		return err
	}

	for _, step := range plan.Topology {
		res, err := step.Run(ctx, s, StageTopology)
		rep.Topology = append(rep.Topology, res)
		if err != nil {
			return err
		}
	}

	absorber := withFixed(rep.Dual.Variables, rep.Height.Variables...)
	recycle := NewRecycleStage(plan.Recycle, paths, absorber...)
	rep.Recycle, err = recycle.Solve(ctx, s)
	p.notify(ctx, StageRecycle, rep.Recycle.Status, rep.Recycle.History)
	if err := p.settle(rep, StageRecycle, rep.Recycle.Status, err); err != nil {
		return err
	}
	rep.Design = withFixed(absorber, rep.Recycle.Variables...)

	for _, step := range plan.Finalize {
		res, err := step.Run(ctx, s, StageFinalize)
		rep.Finalize = append(rep.Finalize, res)
		if err != nil {
			return err
		}
	}
	return nil
}

// settle folds a stage outcome into the report and decides whether the run
// may go on.
func (p *Pipeline) settle(rep *DesignReport, stage string, status Status, err error) error {
	if err != nil {
		rep.Status = StatusAborted
		return err
	}
	switch status {
	case StatusConverged:
		return nil
	case StatusExhausted:
		rep.Status = StatusExhausted
		if p.plan.Strict {
			return fmt.Errorf("%s: %w", stage, ErrSearchExhausted)
		}
		return nil
	case StatusStalled:
		rep.Status = StatusStalled
		if p.plan.Strict {
			return fmt.Errorf("%s: %w", stage, ErrSearchStalled)
		}
		return nil
	default:
		rep.Status = StatusFailed
		return fmt.Errorf("%w: %s", ErrNoFeasibleCandidate, stage)
	}
}

// notifySweep reports both histories of a sweep, the degraded records under
// NotConvergedStage(stage).
func (p *Pipeline) notifySweep(ctx context.Context, stage string, res *SweepResult) {
	p.notify(ctx, stage, res.Status, res.Converged)
	p.notify(ctx, NotConvergedStage(stage), res.Status, res.NotConverged)
}

func (p *Pipeline) notify(ctx context.Context, stage string, status Status, h *models.History) {
	for _, o := range p.observers {
		o.StageDone(ctx, stage, status, h)
	}
}

// IsExhausted reports whether err stopped a strict run on an exhausted stage.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrSearchExhausted)
}

// IsStalled reports whether err stopped a strict run on a stalled search.
func IsStalled(err error) bool {
	return errors.Is(err, ErrSearchStalled)
}
