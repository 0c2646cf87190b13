package sizing

import (
	"context"
	"fmt"
	"sort"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Molar masses used to convert the lean loading into a mass fraction.
const (
	MolarMassNH3 = 17.0
	MolarMassCO2 = 44.0
)

// Feed holds the flue-gas and lean-solvent conditions written once before
// the first sweep.
type Feed struct {
	FlueGasFlow float64
	// FlueGasFractions maps component to mass fraction. Components left out
	// keep whatever the flowsheet already holds.
	FlueGasFractions map[string]float64
	// LeanLoading is the target mol CO2 / mol NH3 of the lean solvent.
	LeanLoading float64
	// LeanNH3 is the NH3 mass fraction of the lean solvent.
	LeanNH3 float64
}

// LeanSolvent returns the lean-solvent mass fractions implied by the NH3
// fraction and the lean loading.
func LeanSolvent(nh3, loading float64) (co2, h2o float64, err error) {
	if nh3 <= 0 || nh3 >= 1 {
		return 0, 0, fmt.Errorf("lean NH3 fraction must be in (0, 1), got %g", nh3)
	}
	if loading <= 0 {
		return 0, 0, fmt.Errorf("lean loading must be positive, got %g", loading)
	}
	co2 = nh3 / ((MolarMassNH3 / MolarMassCO2) * (1 / loading))
	h2o = 1 - nh3 - co2
	if h2o < 0 {
		return 0, 0, fmt.Errorf("lean loading %g leaves no water for NH3 fraction %g", loading, nh3)
	}
	return co2, h2o, nil
}

// FeedResult lists what the feed stage wrote.
type FeedResult struct {
	Inputs map[string]float64
}

// WriteFeed stages the feed conditions. It does not evaluate: the first
// sweep evaluation commits them together with its own candidate.
func WriteFeed(ctx context.Context, s *DesignSession, paths models.Paths, f Feed) (*FeedResult, error) {
	co2, h2o, err := LeanSolvent(f.LeanNH3, f.LeanLoading)
	if err != nil {
		return nil, &StageError{Stage: StageFeed, Err: err}
	}

	vars := []models.DesignVariable{
		{Name: "flue_gas_flow", Path: paths.FlueGasFlow, Value: f.FlueGasFlow, Unit: "t/h"},
		{Name: "lean_nh3", Path: paths.LeanSolventNH3, Value: f.LeanNH3},
		{Name: "lean_co2", Path: paths.LeanSolventCO2, Value: co2},
		{Name: "lean_h2o", Path: paths.LeanSolventH2O, Value: h2o},
	}
	components := make([]string, 0, len(f.FlueGasFractions))
	for c := range f.FlueGasFractions {
		components = append(components, c)
	}
	sort.Strings(components)
	for _, c := range components {
		p, ok := paths.FlueGasFractions[c]
		if !ok {
			return nil, &StageError{Stage: StageFeed, Err: fmt.Errorf("%w: no path for flue-gas component %s", oracle.ErrUnknownPath, c)}
		}
		vars = append(vars, models.DesignVariable{Name: "flue_gas_" + c, Path: p, Value: f.FlueGasFractions[c]})
	}

	if err := s.Write(ctx, vars...); err != nil {
		return nil, &StageError{Stage: StageFeed, Err: err}
	}
	s.Logger(StageFeed).Info("feed conditions staged", "flue_gas_flow", f.FlueGasFlow, "lean_co2", co2, "lean_h2o", h2o)
	return &FeedResult{Inputs: inputsOf(vars)}, nil
}
