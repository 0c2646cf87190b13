package oracle

import (
	"math"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// SurrogateParams shapes the smooth absorber/stripper stand-in returned by
// NewAbsorberSurrogate. The correlations are monotone toy models, not
// thermodynamics: capture ratio rises with solvent-to-gas ratio and packing
// height, flooding rises with total throughput over column cross-section and
// lean loading falls as the reboiler boil-up ratio grows.
type SurrogateParams struct {
	FlueGasFlow     float64 // t/h
	FlueGasCO2      float64 // mass fraction
	Diameter        float64 // initial column diameter, m
	Height          float64 // initial packing height, m
	SolventFlow     float64 // initial lean solvent flow, t/h
	BoilupRatio     float64 // initial boil-up ratio
	MinSolventRatio float64 // below this solvent/gas ratio the absorber fails to converge
}

// DefaultSurrogateParams returns parameters whose design window lies inside
// the default search ranges.
func DefaultSurrogateParams() SurrogateParams {
	return SurrogateParams{
		FlueGasFlow:     100,
		FlueGasCO2:      0.15,
		Diameter:        6,
		Height:          25,
		SolventFlow:     100,
		BoilupRatio:     0.03,
		MinSolventRatio: 1.2,
	}
}

// Ammonia leaving the loop, kmol/h: slip with the clean gas grows with the
// solvent flow, carry-over into the CO2 product with the boil-up ratio.
const (
	NH3SlipPerSolvent = 0.02
	NH3CarryPerBoilup = 2.0
)

// NewAbsorberSurrogate returns a Model exposing the input and output paths
// of p, driven by the toy correlations above.
func NewAbsorberSurrogate(paths models.Paths, sp SurrogateParams, opts ...ModelOption) *Model {
	inputs := map[string]float64{
		paths.SolventFlow:    sp.SolventFlow,
		paths.ColumnDiameter: sp.Diameter,
		paths.PackingHeight:  sp.Height,
		paths.BoilupRatio:    sp.BoilupRatio,
		paths.FlueGasFlow:    sp.FlueGasFlow,
		paths.LeanSolventNH3: 0.05,
		paths.LeanSolventCO2: 0.0159,
		paths.LeanSolventH2O: 0.9341,

		paths.MakeUpFlow:        0,
		paths.MakeUpNH3:         0,
		paths.MakeUpTemperature: 15,
		paths.MakeUpPressure:    1,
	}
	for _, c := range models.FlueGasComponents {
		inputs[paths.FlueGasFractions[c]] = 0
	}
	inputs[paths.FlueGasFractions["CO2"]] = sp.FlueGasCO2

	respond := func(eval int, in map[string]float64) Response {
		gas := in[paths.FlueGasFlow]
		solvent := in[paths.SolventFlow]
		diameter := in[paths.ColumnDiameter]
		height := in[paths.PackingHeight]
		boilup := in[paths.BoilupRatio]
		if gas <= 0 || diameter <= 0 {
			return Response{Code: 2}
		}

		ratio := solvent / gas
		ccr := (1 - math.Exp(-0.9*ratio)) * (1 - math.Exp(-math.Max(height, 0)/6))
		co2In := gas * in[paths.FlueGasFractions["CO2"]] * 1000 // kg/h
		flooding := 10.2 * (solvent + gas) / (diameter * diameter)

		out := map[string]float64{
			paths.FlueGasCO2:     co2In,
			paths.CleanGasCO2:    co2In * (1 - ccr),
			paths.FloodingFactor: flooding,
			paths.RunStatus:      0,
			paths.CleanGasNH3:    NH3SlipPerSolvent * solvent,
			paths.ProductNH3:     NH3CarryPerBoilup * boilup,
		}
		for species, frac := range recycleFractions(boilup) {
			out[paths.RecycleFractions[species]] = frac
		}

		code := 0
		if ratio < sp.MinSolventRatio {
			code = 1
			out[paths.RunStatus] = 1
		}
		return Response{Outputs: out, Code: code}
	}

	return NewModel(inputs, respond, opts...)
}

// recycleFractions splits an apparent loading into the six species so that
// the apparent CO2 / apparent NH3 ratio equals the loading exactly.
func recycleFractions(boilup float64) map[string]float64 {
	const nh3Apparent = 0.1
	loading := 0.05 + 0.35*math.Exp(-math.Max(boilup, 0)/0.05)
	co2Apparent := loading * nh3Apparent

	carbamate := 0.3 * co2Apparent
	free := nh3Apparent - carbamate
	return map[string]float64{
		models.SpeciesCarbamate: carbamate,
		models.SpeciesCO2:       0.05 * co2Apparent,
		models.SpeciesHCO3:      0.45 * co2Apparent,
		models.SpeciesCO3:       0.2 * co2Apparent,
		models.SpeciesNH4:       0.4 * free,
		models.SpeciesNH3:       0.6 * free,
	}
}
