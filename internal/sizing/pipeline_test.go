package sizing

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

func surrogatePlan(t *testing.T, yamlText string) (Plan, *config.Config) {
	t.Helper()
	cfg, err := config.ParseConfigYAMLString(yamlText)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return PlanFromConfig(cfg), cfg
}

type stageLog struct {
	stages []string
	status []Status
	sizes  []int
}

func (l *stageLog) StageDone(_ context.Context, stage string, status Status, h *models.History) {
	l.stages = append(l.stages, stage)
	l.status = append(l.status, status)
	l.sizes = append(l.sizes, h.Len())
}

// failAfter wraps an oracle and fails evaluation number n.
type failAfter struct {
	oracle.Oracle
	n     int
	evals int
}

func (f *failAfter) Evaluate(ctx context.Context) (oracle.EvalResult, error) {
	f.evals++
	if f.evals == f.n {
		return oracle.EvalResult{}, oracle.ErrOracleUnavailable
	}
	return f.Oracle.Evaluate(ctx)
}

func TestPipelineSurrogateRun(t *testing.T) {
	plan, cfg := surrogatePlan(t, "feed: {}\n")
	m := oracle.NewAbsorberSurrogate(plan.Paths, oracle.DefaultSurrogateParams(), oracle.WithInputs(StepInputs(cfg)))
	obs := &stageLog{}
	p, err := NewPipeline(plan, obs)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	rep, err := p.Run(bg, NewDesignSession("design-surrogate", m))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Status != StatusConverged {
		t.Fatalf("expected converged run, got %s", rep.Status)
	}
	if rep.SolventSweep.NotConverged.Len() != 8 {
		t.Fatalf("expected 8 non-converged candidates below the minimum solvent ratio, got %d", rep.SolventSweep.NotConverged.Len())
	}
	if math.Abs(rep.SolventSeed-287.78) > 1e-9 {
		t.Fatalf("expected scaled seed 287.78, got %v", rep.SolventSeed)
	}
	if rep.Dual.Iterations != 6 || rep.Height.Iterations != 1 || rep.Recycle.Iterations != 51 {
		t.Fatalf("unexpected iteration counts dual=%d height=%d recycle=%d", rep.Dual.Iterations, rep.Height.Iterations, rep.Recycle.Iterations)
	}

	want := map[string]float64{
		VarDiameter:    7.25,
		VarSolventFlow: 285.78,
		VarHeight:      25,
		VarBoilupRatio: 0.08,
	}
	for name, v := range want {
		got, ok := rep.Value(name)
		if !ok || math.Abs(got-v) > 1e-6 {
			t.Fatalf("%s: expected %v, got %v (present=%v)", name, v, got, ok)
		}
	}
	if rep.Evaluations != 123 || m.Evaluations() != 123 {
		t.Fatalf("expected 123 evaluations, report %d oracle %d", rep.Evaluations, m.Evaluations())
	}

	wantStages := []string{StageSolventSweep, NotConvergedStage(StageSolventSweep), StageDual, StageHeight, StageRecycle}
	if len(obs.stages) != len(wantStages) {
		t.Fatalf("expected stages %v, got %v", wantStages, obs.stages)
	}
	if obs.sizes[1] != rep.SolventSweep.NotConverged.Len() {
		t.Fatalf("observer should see %d degraded sweep records, got %d", rep.SolventSweep.NotConverged.Len(), obs.sizes[1])
	}
	for i, s := range wantStages {
		if obs.stages[i] != s || obs.status[i] != StatusConverged {
			t.Fatalf("stage %d: expected %s converged, got %s %s", i, s, obs.stages[i], obs.status[i])
		}
	}
	if v, _ := m.Input(plan.Paths.FlueGasFractions["CO2"]); v != 0.15 {
		t.Fatalf("expected feed to keep CO2 fraction, got %v", v)
	}
}

func TestPipelineHeightSweepAndTopology(t *testing.T) {
	plan, cfg := surrogatePlan(t, `
feed: {}
height_sweep: {}
topology:
  - name: heater
    set: {HXT1/TEMP: 135}
    evaluate: true
finalize:
  - name: utilities
    set: {HXT1/UTIL: 2}
`)
	m := oracle.NewAbsorberSurrogate(plan.Paths, oracle.DefaultSurrogateParams(), oracle.WithInputs(StepInputs(cfg)))
	p, err := NewPipeline(plan)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	rep, err := p.Run(bg, NewDesignSession("design-height", m))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.HeightSweep == nil || rep.HeightSweep.Status != StatusConverged {
		t.Fatalf("expected converged height sweep, got %+v", rep.HeightSweep)
	}
	if rep.HeightSeed != rep.HeightSweep.Candidate || rep.HeightSeed >= 100 {
		t.Fatalf("height stage should start from the sweep hit, got seed %v hit %v", rep.HeightSeed, rep.HeightSweep.Candidate)
	}
	if len(rep.Topology) != 1 || !rep.Topology[0].Evaluated || rep.Topology[0].Status != models.EvalConverged {
		t.Fatalf("unexpected topology results %+v", rep.Topology)
	}
	if len(rep.Finalize) != 1 || rep.Finalize[0].Evaluated {
		t.Fatalf("unexpected finalize results %+v", rep.Finalize)
	}
	if v, _ := m.Input("HXT1/TEMP"); v != 135 {
		t.Fatalf("expected topology write committed, got %v", v)
	}
}

func TestPipelineMakeUpStream(t *testing.T) {
	plan, cfg := surrogatePlan(t, "feed: {}\nmake_up: {}\n")
	m := oracle.NewAbsorberSurrogate(plan.Paths, oracle.DefaultSurrogateParams(), oracle.WithInputs(StepInputs(cfg)))
	p, err := NewPipeline(plan)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	rep, err := p.Run(bg, NewDesignSession("design-make-up", m))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rep.Topology) != 1 || rep.Topology[0].Name != StepMakeUp || rep.Topology[0].Evaluated {
		t.Fatalf("unexpected topology results %+v", rep.Topology)
	}

	// the height stage ran last, at the accepted flowrate and initial boil-up
	want := oracle.NH3SlipPerSolvent*285.78 + oracle.NH3CarryPerBoilup*0.03
	paths := plan.Paths
	for _, path := range []string{paths.MakeUpFlow, paths.MakeUpNH3} {
		if got := rep.Topology[0].Derived[path]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("%s: expected derived %v, got %v", path, want, got)
		}
		if got, _ := m.Input(path); math.Abs(got-want) > 1e-9 {
			t.Fatalf("%s: expected committed %v, got %v", path, want, got)
		}
	}
	if v, _ := m.Input(paths.MakeUpTemperature); v != config.DefaultMakeUpTemperature {
		t.Fatalf("expected make-up temperature %v, got %v", config.DefaultMakeUpTemperature, v)
	}
	if rep.Recycle.Status != StatusConverged || rep.Evaluations != 123 {
		t.Fatalf("make-up must not add evaluations, got %s after %d", rep.Recycle.Status, rep.Evaluations)
	}
}

func TestTopologyStepDeriveNeedsOutputs(t *testing.T) {
	step := TopologyStep{Name: "mkp", Derive: map[string][]string{"in/flow": {"out/a", "out/b"}}}
	outputs := func(in map[string]float64) map[string]float64 {
		return map[string]float64{"out/a": 1.5, "out/b": 2}
	}

	m := stubOracle(map[string]float64{"in/flow": 0}, outputs, stubConfig{})
	s := newSession(t, m)
	_, err := step.Run(bg, s, StageTopology)
	var se *StageError
	if !errors.Is(err, oracle.ErrOutputUnavailable) || !errors.As(err, &se) {
		t.Fatalf("expected output error before any evaluation, got %v", err)
	}

	if _, err := s.Evaluate(bg); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	res, err := step.Run(bg, s, StageTopology)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Derived["in/flow"] != 3.5 {
		t.Fatalf("expected 3.5, got %v", res.Derived)
	}
	if v, _ := m.Input("in/flow"); v != 3.5 {
		t.Fatalf("expected derived value committed, got %v", v)
	}

	m = stubOracle(map[string]float64{"in/flow": 0}, outputs, stubConfig{dropOutput: map[int]string{1: "out/b"}})
	s = newSession(t, m)
	if _, err := s.Evaluate(bg); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if _, err := step.Run(bg, s, StageTopology); !errors.Is(err, oracle.ErrOutputUnavailable) {
		t.Fatalf("expected ErrOutputUnavailable for a missing output, got %v", err)
	}
	if v, _ := m.Input("in/flow"); v != 0 {
		t.Fatalf("nothing may be written after a failed read, got %v", v)
	}
}

func TestPipelineExhaustedStage(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		wantErr bool
	}{
		{"lenient seeds next stage", false, false},
		{"strict stops", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, _ := surrogatePlan(t, "feed: {}\ndual: {max_iterations: 3}\n")
			plan.Strict = tt.strict
			m := oracle.NewAbsorberSurrogate(plan.Paths, oracle.DefaultSurrogateParams())
			p, err := NewPipeline(plan)
			if err != nil {
				t.Fatalf("pipeline: %v", err)
			}

			rep, err := p.Run(bg, NewDesignSession("design-exhausted", m))
			if rep.Dual.Status != StatusExhausted {
				t.Fatalf("expected exhausted dual stage, got %s", rep.Dual.Status)
			}
			if rep.Status != StatusExhausted {
				t.Fatalf("expected exhausted run, got %s", rep.Status)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrSearchExhausted) || !IsExhausted(err) {
					t.Fatalf("expected ErrSearchExhausted, got %v", err)
				}
				if rep.Height != nil {
					t.Fatalf("strict run must not start the height stage")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rep.Height == nil || rep.Recycle == nil {
				t.Fatalf("lenient run should reach every stage")
			}
			d, _ := rep.Dual.Value(VarDiameter)
			if h := rep.Height.Variables; len(h) != 1 {
				t.Fatalf("unexpected height variables %v", h)
			}
			if got, _ := rep.Value(VarDiameter); got != d {
				t.Fatalf("height and recycle stages must keep the best dual diameter %v, got %v", d, got)
			}
		})
	}
}

func TestPipelineAbortKeepsPartialHistory(t *testing.T) {
	plan, _ := surrogatePlan(t, "feed: {}\n")
	m := oracle.NewAbsorberSurrogate(plan.Paths, oracle.DefaultSurrogateParams())
	// 65 sweep evaluations, then the 5th dual iteration fails
	o := &failAfter{Oracle: m, n: 70}
	obs := &stageLog{}
	p, err := NewPipeline(plan, obs)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	rep, err := p.Run(bg, NewDesignSession("design-abort", o))
	if !errors.Is(err, oracle.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageDual || se.Iteration != 5 {
		t.Fatalf("expected dual StageError at iteration 5, got %v", err)
	}
	if rep.Status != StatusAborted {
		t.Fatalf("expected aborted run, got %s", rep.Status)
	}
	if rep.Dual.History.Len() != 4 {
		t.Fatalf("expected 4 dual records, got %d", rep.Dual.History.Len())
	}
	if rep.Height != nil {
		t.Fatalf("no stage may run after an abort")
	}
	if last := obs.stages[len(obs.stages)-1]; last != StageDual || obs.sizes[len(obs.sizes)-1] != 4 {
		t.Fatalf("observer should see the aborted dual stage, got %v %v", obs.stages, obs.sizes)
	}
}

func TestPipelineRejectsInvalidPlan(t *testing.T) {
	plan, _ := surrogatePlan(t, "feed: {}\n")
	plan.Recycle.MaxIterations = 0
	if _, err := NewPipeline(plan); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
}
