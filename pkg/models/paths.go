package models

// Paths names the simulator tree nodes the controller reads and writes. The
// defaults follow the Aspen Plus variable explorer layout of the ammonia
// capture flowsheet (absorber ABSORBER, stripper STRIP, lean solvent LEANNH3).
type Paths struct {
	// design variables
	SolventFlow    string `yaml:"solvent_flow"`
	ColumnDiameter string `yaml:"column_diameter"`
	PackingHeight  string `yaml:"packing_height"`
	BoilupRatio    string `yaml:"boilup_ratio"`

	// outputs
	FloodingFactor string `yaml:"flooding_factor"`
	FlueGasCO2     string `yaml:"flue_gas_co2"`
	CleanGasCO2    string `yaml:"clean_gas_co2"`
	RunStatus      string `yaml:"run_status"`
	CleanGasNH3    string `yaml:"clean_gas_nh3"`
	ProductNH3     string `yaml:"product_nh3"`

	// feed inputs
	FlueGasFlow      string            `yaml:"flue_gas_flow"`
	FlueGasFractions map[string]string `yaml:"flue_gas_fractions"`
	LeanSolventNH3   string            `yaml:"lean_solvent_nh3"`
	LeanSolventCO2   string            `yaml:"lean_solvent_co2"`
	LeanSolventH2O   string            `yaml:"lean_solvent_h2o"`

	// make-up stream inputs
	MakeUpFlow        string `yaml:"make_up_flow"`
	MakeUpNH3         string `yaml:"make_up_nh3"`
	MakeUpTemperature string `yaml:"make_up_temperature"`
	MakeUpPressure    string `yaml:"make_up_pressure"`

	// RecycleFractions maps species to mole-fraction output paths of the
	// closed recycle stream.
	RecycleFractions map[string]string `yaml:"recycle_fractions"`
}

// Species present in the recycle stream that carry CO2 or NH3.
const (
	SpeciesNH3       = "NH3"
	SpeciesNH4       = "NH4+"
	SpeciesCarbamate = "NH2COO-"
	SpeciesCO2       = "CO2"
	SpeciesHCO3      = "HCO3-"
	SpeciesCO3       = "CO3-2"
)

// LoadingSpecies lists the recycle species needed for the apparent loading.
var LoadingSpecies = []string{
	SpeciesNH3, SpeciesNH4, SpeciesCarbamate, SpeciesCO2, SpeciesHCO3, SpeciesCO3,
}

// FlueGasComponents lists the flue-gas components written by the feed stage.
var FlueGasComponents = []string{"N2", "O2", "CO2", "H2O", "H2", "CO", "CH4"}

// DefaultPaths returns the Aspen Plus paths of the reference flowsheet.
func DefaultPaths() Paths {
	const internals = `\Data\Blocks\ABSORBER\Subobjects\Column Internals\INT-1\Input`

	recycle := make(map[string]string, len(LoadingSpecies))
	for _, s := range LoadingSpecies {
		recycle[s] = `\Data\Streams\RECYCLE\Output\MOLEFRAC\MIXED\` + s
	}
	flue := make(map[string]string, len(FlueGasComponents))
	for _, c := range FlueGasComponents {
		flue[c] = `\Data\Streams\FLUEGAS\Input\FLOW\MIXED\` + c
	}

	return Paths{
		SolventFlow:    `\Data\Streams\LEANNH3\Input\TOTFLOW\MIXED`,
		ColumnDiameter: internals + `\CA_DIAM\INT-1\CS-1`,
		PackingHeight:  internals + `\CA_PACK_HT\INT-1\CS-1`,
		BoilupRatio:    `\Data\Blocks\STRIP\Input\BASIS_BR`,

		FloodingFactor: `\Data\Blocks\ABSORBER\Output\CA_FLD_FAC1\INT-1\CS-1`,
		FlueGasCO2:     `\Data\Streams\FLUEGAS\Output\MASSFLOW\MIXED\CO2`,
		CleanGasCO2:    `\Data\Streams\CLEANGAS\Output\MASSFLOW\MIXED\CO2`,
		RunStatus:      `\Data\Results Summary\Run-Status\Output\PER_ERROR`,
		CleanGasNH3:    `\Data\Streams\CLEANGAS\Output\MOLEFLOW\MIXED\NH3`,
		ProductNH3:     `\Data\Streams\CO2\Output\MOLEFLOW\MIXED\NH3`,

		FlueGasFlow:      `\Data\Streams\FLUEGAS\Input\TOTFLOW\MIXED`,
		FlueGasFractions: flue,
		LeanSolventNH3:   `\Data\Streams\LEANNH3\Input\FLOW\MIXED\NH3`,
		LeanSolventCO2:   `\Data\Streams\LEANNH3\Input\FLOW\MIXED\CO2`,
		LeanSolventH2O:   `\Data\Streams\LEANNH3\Input\FLOW\MIXED\H2O`,

		MakeUpFlow:        `\Data\Streams\MKP\Input\TOTFLOW\MIXED`,
		MakeUpNH3:         `\Data\Streams\MKP\Input\FLOW\MIXED\NH3`,
		MakeUpTemperature: `\Data\Streams\MKP\Input\TEMP\MIXED`,
		MakeUpPressure:    `\Data\Streams\MKP\Input\PRES\MIXED`,

		RecycleFractions: recycle,
	}
}

// Merge fills every empty field of p from def.
func (p Paths) Merge(def Paths) Paths {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	out := Paths{
		SolventFlow:       pick(p.SolventFlow, def.SolventFlow),
		ColumnDiameter:    pick(p.ColumnDiameter, def.ColumnDiameter),
		PackingHeight:     pick(p.PackingHeight, def.PackingHeight),
		BoilupRatio:       pick(p.BoilupRatio, def.BoilupRatio),
		FloodingFactor:    pick(p.FloodingFactor, def.FloodingFactor),
		FlueGasCO2:        pick(p.FlueGasCO2, def.FlueGasCO2),
		CleanGasCO2:       pick(p.CleanGasCO2, def.CleanGasCO2),
		RunStatus:         pick(p.RunStatus, def.RunStatus),
		CleanGasNH3:       pick(p.CleanGasNH3, def.CleanGasNH3),
		ProductNH3:        pick(p.ProductNH3, def.ProductNH3),
		FlueGasFlow:       pick(p.FlueGasFlow, def.FlueGasFlow),
		LeanSolventNH3:    pick(p.LeanSolventNH3, def.LeanSolventNH3),
		LeanSolventCO2:    pick(p.LeanSolventCO2, def.LeanSolventCO2),
		LeanSolventH2O:    pick(p.LeanSolventH2O, def.LeanSolventH2O),
		MakeUpFlow:        pick(p.MakeUpFlow, def.MakeUpFlow),
		MakeUpNH3:         pick(p.MakeUpNH3, def.MakeUpNH3),
		MakeUpTemperature: pick(p.MakeUpTemperature, def.MakeUpTemperature),
		MakeUpPressure:    pick(p.MakeUpPressure, def.MakeUpPressure),
	}
	out.FlueGasFractions = mergeMap(p.FlueGasFractions, def.FlueGasFractions)
	out.RecycleFractions = mergeMap(p.RecycleFractions, def.RecycleFractions)
	return out
}

func mergeMap(m, def map[string]string) map[string]string {
	out := make(map[string]string, len(def)+len(m))
	for k, v := range def {
		out[k] = v
	}
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
