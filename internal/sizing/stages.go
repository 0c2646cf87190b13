package sizing

import (
	"context"
	"fmt"
	"sort"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/utils"
)

// Stage names as they appear in logs, histories and stored runs.
const (
	StageFeed         = "feed"
	StageSolventSweep = "solvent_sweep"
	StageHeightSweep  = "height_sweep"
	StageDual         = "dual"
	StageHeight       = "height"
	StageTopology     = "topology"
	StageRecycle      = "recycle"
	StageFinalize     = "finalize"
)

// NotConvergedSuffix names the degraded history a sweep keeps next to its
// converged one, e.g. "solvent_sweep.not_converged".
const NotConvergedSuffix = ".not_converged"

// NotConvergedStage returns the history name of stage's non-converged
// evaluations.
func NotConvergedStage(stage string) string {
	return stage + NotConvergedSuffix
}

// AxisPlan configures how one design variable is stepped.
type AxisPlan struct {
	Variable models.DesignVariable
	Step     float64
	// Halving switches to HalvingStep with MinStep as the smallest step.
	Halving bool
	MinStep float64
}

// Policy builds a fresh step policy for the axis.
func (a AxisPlan) Policy() StepPolicy {
	if a.Halving {
		return NewHalvingStep(a.Step, a.MinStep)
	}
	return FixedStep{Size: a.Step}
}

func (a AxisPlan) validate(name string) error {
	if a.Variable.Path == "" {
		return fmt.Errorf("%s: variable has no path", name)
	}
	if a.Step <= 0 {
		return fmt.Errorf("%s: step must be positive, got %g", name, a.Step)
	}
	if a.Halving && (a.MinStep <= 0 || a.MinStep > a.Step) {
		return fmt.Errorf("%s: min_step must be in (0, step], got %g", name, a.MinStep)
	}
	return nil
}

// SweepPlan configures a Sweep Scanner run over Points evenly spaced
// candidates from From to To. From may exceed To for a descending sweep.
type SweepPlan struct {
	Variable models.DesignVariable
	From     float64
	To       float64
	Points   int
	Step     float64
	Band     models.TargetBand
}

// Candidates returns the ordered candidate values: a fixed-step grid when
// Step is set, otherwise Points evenly spaced values.
func (p SweepPlan) Candidates() ([]float64, error) {
	if p.Step != 0 {
		return utils.Arange(p.From, p.To, p.Step)
	}
	return utils.Linspace(p.From, p.To, p.Points)
}

// DualPlan configures the diameter/flowrate stage.
type DualPlan struct {
	Diameter      AxisPlan
	Solvent       AxisPlan
	FloodingBand  models.TargetBand
	CaptureBand   models.TargetBand
	MaxIterations int
}

// HeightPlan configures the packing-height stage.
type HeightPlan struct {
	Height        AxisPlan
	CaptureBand   models.TargetBand
	MaxIterations int
}

// RecyclePlan configures the boil-up ratio stage.
type RecyclePlan struct {
	Boilup        AxisPlan
	Setpoint      models.Setpoint
	MaxIterations int
}

// NewSolventSweep builds the solvent flowrate sweep. Diameter and height stay
// at their initial values.
func NewSolventSweep(p SweepPlan, paths models.Paths, fixed ...models.DesignVariable) (*Sweep, error) {
	cands, err := p.Candidates()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidStage, StageSolventSweep, err)
	}
	return &Sweep{
		Stage:         StageSolventSweep,
		Variable:      p.Variable,
		Candidates:    cands,
		Metric:        CaptureRatioMetric(paths),
		Band:          p.Band,
		FallbackPath:  paths.CleanGasCO2,
		FallbackLabel: MetricCleanGasCO2,
		Fixed:         fixed,
	}, nil
}

// NewHeightSweep builds the column-height sweep run at the scaled solvent
// flowrate.
func NewHeightSweep(p SweepPlan, paths models.Paths, solvent models.DesignVariable, fixed ...models.DesignVariable) (*Sweep, error) {
	cands, err := p.Candidates()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidStage, StageHeightSweep, err)
	}
	return &Sweep{
		Stage:         StageHeightSweep,
		Variable:      p.Variable,
		Candidates:    cands,
		Metric:        CaptureRatioMetric(paths),
		Band:          p.Band,
		FallbackPath:  paths.CleanGasCO2,
		FallbackLabel: MetricCleanGasCO2,
		Fixed:         withFixed(fixed, solvent),
	}, nil
}

// SolventSeed turns a sweep result into the flowrate that seeds the dual
// stage: the selected candidate times factor, rounded to two decimals.
func SolventSeed(res *SweepResult, factor float64) (float64, error) {
	if res == nil || !res.Status.Usable() {
		return 0, fmt.Errorf("%w: %s", ErrNoFeasibleCandidate, StageSolventSweep)
	}
	if factor <= 0 {
		factor = 1
	}
	return utils.Round(res.Candidate*factor, 2), nil
}

// NewDualStage builds the two-axis diameter/flowrate solver. solvent carries
// the seeded flowrate; fixed holds the packing height.
func NewDualStage(p DualPlan, paths models.Paths, solvent float64, fixed ...models.DesignVariable) *CoordinateSolver {
	return &CoordinateSolver{
		Stage: StageDual,
		Axes: []Axis{
			{
				Variable: p.Diameter.Variable,
				Metric:   FloodingMetric(paths),
				Target:   p.FloodingBand,
				Response: Decreasing,
				Step:     p.Diameter.Policy(),
			},
			{
				Variable: p.Solvent.Variable.WithValue(solvent),
				Metric:   CaptureRatioMetric(paths),
				Target:   p.CaptureBand,
				Response: Increasing,
				Step:     p.Solvent.Policy(),
			},
		},
		Fixed:         fixed,
		MaxIterations: p.MaxIterations,
	}
}

// NewHeightStage builds the packing-height solver starting from height with
// the accepted diameter and flowrate held fixed.
func NewHeightStage(p HeightPlan, paths models.Paths, height float64, dual *SolveResult) (*CoordinateSolver, error) {
	if dual == nil || !dual.Status.Usable() || len(dual.Variables) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFeasibleCandidate, StageDual)
	}
	return &CoordinateSolver{
		Stage: StageHeight,
		Axes: []Axis{{
			Variable: p.Height.Variable.WithValue(height),
			Metric:   CaptureRatioMetric(paths),
			Target:   p.CaptureBand,
			Response: Increasing,
			Step:     p.Height.Policy(),
		}},
		Fixed:         dual.Variables,
		MaxIterations: p.MaxIterations,
	}, nil
}

// NewRecycleStage builds the boil-up ratio solver on the closed recycle
// loop. fixed holds the absorber design accepted so far.
func NewRecycleStage(p RecyclePlan, paths models.Paths, fixed ...models.DesignVariable) *CoordinateSolver {
	return &CoordinateSolver{
		Stage: StageRecycle,
		Axes: []Axis{{
			Variable: p.Boilup.Variable,
			Metric:   LeanLoadingMetric(paths),
			Target:   p.Setpoint,
			Response: Decreasing,
			Step:     p.Boilup.Policy(),
		}},
		Fixed:         fixed,
		MaxIterations: p.MaxIterations,
	}
}

// TopologyStep writes a set of input paths and optionally runs one
// evaluation. Structural edits to the flowsheet (adding blocks, connecting
// streams) stay with the simulator side; these steps only set values.
type TopologyStep struct {
	Name string
	Set  map[string]float64
	// Derive maps an input path to the output paths of the latest
	// evaluation whose sum it receives.
	Derive   map[string][]string
	Evaluate bool
}

// StepMakeUp names the NH3 make-up step.
const StepMakeUp = "make_up"

// MakeUpStep sizes the NH3 make-up stream: its total flow and NH3 flow both
// replace the ammonia that left with the clean gas and the CO2 product in
// the latest evaluation.
func MakeUpStep(paths models.Paths, temperature, pressure float64) TopologyStep {
	lost := []string{paths.CleanGasNH3, paths.ProductNH3}
	return TopologyStep{
		Name: StepMakeUp,
		Set: map[string]float64{
			paths.MakeUpTemperature: temperature,
			paths.MakeUpPressure:    pressure,
		},
		Derive: map[string][]string{
			paths.MakeUpFlow: lost,
			paths.MakeUpNH3:  lost,
		},
	}
}

// StepResult is the outcome of one topology or finalize step.
type StepResult struct {
	Name      string
	Evaluated bool
	Status    models.EvalStatus
	Code      int
	// Derived holds the values written for Derive targets.
	Derived map[string]float64
}

// Run applies the step. Derived values are read before anything is written.
// A non-converged evaluation is logged and reported in the result; only
// oracle and output failures are errors.
func (t TopologyStep) Run(ctx context.Context, s *DesignSession, stage string) (StepResult, error) {
	res := StepResult{Name: t.Name}
	derived, err := t.derive(ctx, s)
	if err != nil {
		return res, &StageError{Stage: stage, Err: fmt.Errorf("step %s: %w", t.Name, err)}
	}
	res.Derived = derived

	writes := make(map[string]float64, len(t.Set)+len(derived))
	for p, v := range t.Set {
		writes[p] = v
	}
	for p, v := range derived {
		writes[p] = v
	}
	for _, p := range sortedKeys(writes) {
		if err := s.Oracle().Set(ctx, p, writes[p]); err != nil {
			return res, &StageError{Stage: stage, Err: fmt.Errorf("step %s: %w", t.Name, err)}
		}
	}
	log := s.Logger(stage)
	if len(derived) > 0 {
		log.Info("derived inputs written", "step", t.Name, "values", derived)
	}
	if !t.Evaluate {
		return res, nil
	}
	eval, err := s.Evaluate(ctx)
	if err != nil {
		return res, &StageError{Stage: stage, Iteration: 1, Err: fmt.Errorf("step %s: %w", t.Name, err)}
	}
	res.Evaluated = true
	res.Status = eval.Status
	res.Code = eval.Code
	if !eval.Converged() {
		log.Warn("step evaluation did not converge", "step", t.Name, "code", eval.Code)
	} else {
		log.Info("step applied", "step", t.Name, "inputs", len(writes))
	}
	return res, nil
}

// derive sums the outputs of the latest evaluation for every Derive target.
func (t TopologyStep) derive(ctx context.Context, s *DesignSession) (map[string]float64, error) {
	if len(t.Derive) == 0 {
		return nil, nil
	}
	last, ok := s.Last()
	if !ok {
		return nil, fmt.Errorf("%w: no evaluation to derive inputs from", oracle.ErrOutputUnavailable)
	}
	var sources []string
	for _, target := range sortedKeys(t.Derive) {
		sources = append(sources, t.Derive[target]...)
	}
	if err := s.Read(ctx, &last, sources...); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(t.Derive))
	for target, paths := range t.Derive {
		sum := 0.0
		for _, p := range paths {
			sum += last.Outputs[p]
		}
		out[target] = sum
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
