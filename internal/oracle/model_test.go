package oracle

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

func linearModel() *Model {
	return NewModel(map[string]float64{"in/x": 0}, func(eval int, in map[string]float64) Response {
		return Response{Outputs: map[string]float64{"out/y": 2 * in["in/x"]}}
	})
}

func TestModelStagesWritesUntilEvaluate(t *testing.T) {
	ctx := context.Background()
	m := linearModel()

	if err := m.Set(ctx, "in/x", 3); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if v, _ := m.Input("in/x"); v != 0 {
		t.Fatalf("staged write visible before evaluate: %v", v)
	}

	res, err := m.Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected evaluate error: %v", err)
	}
	if res.Status != models.EvalConverged {
		t.Fatalf("expected converged status, got %s", res.Status)
	}
	y, err := m.Get(ctx, "out/y")
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if y != 6 {
		t.Fatalf("expected 6, got %v", y)
	}
	if m.Evaluations() != 1 {
		t.Fatalf("expected 1 evaluation, got %d", m.Evaluations())
	}
}

func TestModelErrors(t *testing.T) {
	ctx := context.Background()
	m := linearModel()

	if err := m.Set(ctx, "in/unknown", 1); !errors.Is(err, ErrUnknownPath) {
		t.Fatalf("expected ErrUnknownPath, got %v", err)
	}
	if _, err := m.Get(ctx, "out/y"); !errors.Is(err, ErrOutputUnavailable) {
		t.Fatalf("expected ErrOutputUnavailable before first evaluation, got %v", err)
	}
	if _, err := m.Evaluate(ctx); err != nil {
		t.Fatalf("unexpected evaluate error: %v", err)
	}
	if _, err := m.Get(ctx, "out/missing"); !errors.Is(err, ErrOutputUnavailable) {
		t.Fatalf("expected ErrOutputUnavailable for missing output, got %v", err)
	}

	var pathErr *PathError
	_, err := m.Get(ctx, "out/missing")
	if !errors.As(err, &pathErr) || pathErr.Path != "out/missing" {
		t.Fatalf("expected PathError naming the path, got %v", err)
	}

	_ = m.Close()
	if _, err := m.Evaluate(ctx); !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable after close, got %v", err)
	}
	if !IsFatal(ErrOracleUnavailable) || IsFatal(ErrOutputUnavailable) {
		t.Fatalf("unexpected IsFatal classification")
	}
}

func TestModelNonConvergedCode(t *testing.T) {
	m := NewModel(map[string]float64{"x": 0}, func(eval int, in map[string]float64) Response {
		return Response{Outputs: map[string]float64{"y": 1}, Code: 3}
	})
	res, err := m.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("simulation error must not be a Go error: %v", err)
	}
	if res.Converged() || res.Code != 3 {
		t.Fatalf("expected non-converged result with code 3, got %+v", res)
	}
}

func TestAbsorberSurrogate(t *testing.T) {
	ctx := context.Background()
	paths := models.DefaultPaths()
	m := NewAbsorberSurrogate(paths, DefaultSurrogateParams())

	ccrAt := func(flow float64) float64 {
		t.Helper()
		if err := m.Set(ctx, paths.SolventFlow, flow); err != nil {
			t.Fatalf("set: %v", err)
		}
		if _, err := m.Evaluate(ctx); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		in, _ := m.Get(ctx, paths.FlueGasCO2)
		out, _ := m.Get(ctx, paths.CleanGasCO2)
		return (in - out) / in * 100
	}

	low, high := ccrAt(150), ccrAt(300)
	if !(low < high) {
		t.Fatalf("capture ratio should grow with solvent flow: %v vs %v", low, high)
	}

	if err := m.Set(ctx, paths.SolventFlow, 100); err != nil {
		t.Fatalf("set: %v", err)
	}
	res, _ := m.Evaluate(ctx)
	if res.Converged() {
		t.Fatalf("expected non-convergence below the minimum solvent ratio")
	}

	var co2, nh3 float64
	for _, s := range []string{models.SpeciesCO2, models.SpeciesHCO3, models.SpeciesCO3, models.SpeciesCarbamate} {
		v, err := m.Get(ctx, paths.RecycleFractions[s])
		if err != nil {
			t.Fatalf("get %s: %v", s, err)
		}
		co2 += v
	}
	for _, s := range []string{models.SpeciesNH3, models.SpeciesNH4, models.SpeciesCarbamate} {
		v, _ := m.Get(ctx, paths.RecycleFractions[s])
		nh3 += v
	}
	want := 0.05 + 0.35*math.Exp(-0.03/0.05)
	if math.Abs(co2/nh3-want) > 1e-12 {
		t.Fatalf("apparent loading %v, want %v", co2/nh3, want)
	}
}

func TestModelWithInputs(t *testing.T) {
	ctx := context.Background()
	m := NewModel(map[string]float64{"in/x": 1}, func(eval int, in map[string]float64) Response {
		return Response{Outputs: map[string]float64{"out/y": in["in/x"]}}
	}, WithInputs(map[string]float64{"in/x": 5, "block/temp": 30}))

	if v, _ := m.Input("in/x"); v != 1 {
		t.Fatalf("declared inputs must not be overridden, got %v", v)
	}
	if err := m.Set(ctx, "block/temp", 135); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if got := m.InputPaths(); len(got) != 2 || got[0] != "block/temp" {
		t.Fatalf("unexpected input paths %v", got)
	}
}
