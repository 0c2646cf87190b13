package sizing

import (
	"errors"
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

func evalWith(outputs map[string]float64) oracle.EvalResult {
	return oracle.EvalResult{Seq: 1, Outputs: outputs}
}

func TestCaptureRatioMetric(t *testing.T) {
	paths := models.Paths{FlueGasCO2: "in", CleanGasCO2: "out"}
	m := CaptureRatioMetric(paths)

	got, err := m.Eval(evalWith(map[string]float64{"in": 200, "out": 20}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 90 {
		t.Fatalf("expected 90, got %v", got)
	}

	if _, err := m.Eval(evalWith(map[string]float64{"in": 0, "out": 0})); !errors.Is(err, oracle.ErrOutputUnavailable) {
		t.Fatalf("expected zero inlet to be unavailable, got %v", err)
	}
	if _, err := m.Eval(evalWith(map[string]float64{"in": 200})); !errors.Is(err, oracle.ErrOutputUnavailable) {
		t.Fatalf("expected missing outlet to be unavailable, got %v", err)
	}
}

func TestMetricRejectsNonFinite(t *testing.T) {
	m := OutputMetric("x", "x")
	if _, err := m.Eval(evalWith(map[string]float64{"x": math.NaN()})); !errors.Is(err, oracle.ErrOutputUnavailable) {
		t.Fatalf("expected NaN to be unavailable, got %v", err)
	}
}

func TestApparentLoading(t *testing.T) {
	fr := map[string]float64{
		models.SpeciesCO2:       0.001,
		models.SpeciesHCO3:      0.004,
		models.SpeciesCO3:       0.002,
		models.SpeciesCarbamate: 0.003,
		models.SpeciesNH3:       0.05,
		models.SpeciesNH4:       0.03,
	}
	co2, nh3 := ApparentLoading(fr)
	if math.Abs(co2-0.010) > 1e-12 || math.Abs(nh3-0.083) > 1e-12 {
		t.Fatalf("unexpected apparent fractions co2=%v nh3=%v", co2, nh3)
	}

	paths := models.DefaultPaths()
	out := make(map[string]float64)
	for s, v := range fr {
		out[paths.RecycleFractions[s]] = v
	}
	got, err := LeanLoadingMetric(paths).Eval(evalWith(out))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(got-0.010/0.083) > 1e-12 {
		t.Fatalf("expected %v, got %v", 0.010/0.083, got)
	}

	for s := range out {
		out[s] = 0
	}
	if _, err := LeanLoadingMetric(paths).Eval(evalWith(out)); !errors.Is(err, oracle.ErrOutputUnavailable) {
		t.Fatalf("expected empty stream to be unavailable, got %v", err)
	}
}
