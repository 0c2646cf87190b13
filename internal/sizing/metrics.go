package sizing

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Metric names used in histories and reports.
const (
	MetricCaptureRatio   = "capture_ratio"
	MetricFlooding       = "flooding"
	MetricLeanLoading    = "lean_loading"
	MetricCleanGasCO2    = "clean_gas_co2"
	MetricApparentCO2    = "apparent_co2"
	MetricApparentNH3    = "apparent_nh3"
	defaultFallbackLabel = "fallback"
)

// Metric is a scalar derived from the outputs of one evaluation.
type Metric struct {
	Name    string
	Paths   []string
	Compute func(outputs map[string]float64) (float64, error)
}

// Eval derives the metric from res. Every path must have been read into res
// by the session; a missing one or a non-finite value is
// oracle.ErrOutputUnavailable.
func (m Metric) Eval(res oracle.EvalResult) (float64, error) {
	for _, p := range m.Paths {
		if _, err := res.Output(p); err != nil {
			return 0, fmt.Errorf("metric %s: %w", m.Name, err)
		}
	}
	v, err := m.Compute(res.Outputs)
	if err != nil {
		return 0, fmt.Errorf("metric %s: %w", m.Name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("metric %s: %w: non-finite value", m.Name, oracle.ErrOutputUnavailable)
	}
	return v, nil
}

// OutputMetric exposes one output path unchanged.
func OutputMetric(name, path string) Metric {
	return Metric{
		Name:  name,
		Paths: []string{path},
		Compute: func(out map[string]float64) (float64, error) {
			return out[path], nil
		},
	}
}

// FloodingMetric reads the absorber flooding factor.
func FloodingMetric(paths models.Paths) Metric {
	return OutputMetric(MetricFlooding, paths.FloodingFactor)
}

// CaptureRatioMetric is (CO2 in - CO2 out) / CO2 in * 100 on mass flows.
func CaptureRatioMetric(paths models.Paths) Metric {
	in, out := paths.FlueGasCO2, paths.CleanGasCO2
	return Metric{
		Name:  MetricCaptureRatio,
		Paths: []string{in, out},
		Compute: func(o map[string]float64) (float64, error) {
			co2In := o[in]
			if co2In == 0 {
				return 0, fmt.Errorf("%w: zero inlet CO2 flow", oracle.ErrOutputUnavailable)
			}
			return (co2In - o[out]) / co2In * 100, nil
		},
	}
}

// ApparentLoading returns the apparent CO2 and NH3 mole fractions of a
// speciated stream. Carbamate carries one of each.
func ApparentLoading(fractions map[string]float64) (co2, nh3 float64) {
	co2 = fractions[models.SpeciesCO2] + fractions[models.SpeciesHCO3] +
		fractions[models.SpeciesCO3] + fractions[models.SpeciesCarbamate]
	nh3 = fractions[models.SpeciesNH3] + fractions[models.SpeciesNH4] +
		fractions[models.SpeciesCarbamate]
	return co2, nh3
}

// LeanLoadingMetric is apparent CO2 over apparent NH3 of the recycle stream.
func LeanLoadingMetric(paths models.Paths) Metric {
	byPath := make(map[string]string, len(models.LoadingSpecies))
	ps := make([]string, 0, len(models.LoadingSpecies))
	for _, s := range models.LoadingSpecies {
		p := paths.RecycleFractions[s]
		byPath[s] = p
		ps = append(ps, p)
	}
	return Metric{
		Name:  MetricLeanLoading,
		Paths: ps,
		Compute: func(o map[string]float64) (float64, error) {
			fr := make(map[string]float64, len(byPath))
			for s, p := range byPath {
				fr[s] = o[p]
			}
			co2, nh3 := ApparentLoading(fr)
			if nh3 == 0 {
				return 0, fmt.Errorf("%w: no NH3-bearing species in recycle stream", oracle.ErrOutputUnavailable)
			}
			return co2 / nh3, nil
		},
	}
}
