package sizing

import (
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Design variable names used across stages, histories and reports.
const (
	VarSolventFlow = "solvent_flow"
	VarDiameter    = "diameter"
	VarHeight      = "height"
	VarBoilupRatio = "boilup_ratio"
)

// PlanFromConfig translates a validated configuration into a Plan.
func PlanFromConfig(cfg *config.Config) Plan {
	paths := cfg.Paths
	solvent := designVariable(VarSolventFlow, paths.SolventFlow, cfg.Design.SolventFlow)
	diameter := designVariable(VarDiameter, paths.ColumnDiameter, cfg.Design.Diameter)
	height := designVariable(VarHeight, paths.PackingHeight, cfg.Design.Height)
	boilup := designVariable(VarBoilupRatio, paths.BoilupRatio, cfg.Design.BoilupRatio)

	plan := Plan{
		Paths:         paths,
		SolventSweep:  sweepPlan(solvent, cfg.SolventSweep),
		SolventFactor: cfg.SolventFactor,
		Dual: DualPlan{
			Diameter:      axisPlan(diameter, cfg.Dual.Diameter),
			Solvent:       axisPlan(solvent, cfg.Dual.SolventFlow),
			FloodingBand:  band(cfg.Dual.FloodingBand),
			CaptureBand:   band(cfg.Dual.CaptureBand),
			MaxIterations: cfg.Dual.MaxIterations,
		},
		Height: HeightPlan{
			Height:        axisPlan(height, cfg.Height.Height),
			CaptureBand:   band(cfg.Height.CaptureBand),
			MaxIterations: cfg.Height.MaxIterations,
		},
		Recycle: RecyclePlan{
			Boilup:        axisPlan(boilup, cfg.Recycle.BoilupRatio),
			Setpoint:      models.Setpoint{Value: cfg.Recycle.LeanLoading, Tolerance: cfg.Recycle.Tolerance},
			MaxIterations: cfg.Recycle.MaxIterations,
		},
		Topology: steps(cfg.Topology),
		Finalize: steps(cfg.Finalize),
		Strict:   cfg.Strict,
	}
	if cfg.Feed != nil {
		plan.Feed = &Feed{
			FlueGasFlow:      cfg.Feed.FlueGasFlow,
			FlueGasFractions: cfg.Feed.FlueGasFractions,
			LeanLoading:      cfg.Feed.LeanLoading,
			LeanNH3:          cfg.Feed.LeanNH3,
		}
	}
	if cfg.HeightSweep != nil {
		hs := sweepPlan(height, *cfg.HeightSweep)
		plan.HeightSweep = &hs
	}
	if cfg.MakeUp != nil {
		plan.Topology = append(plan.Topology, MakeUpStep(paths, cfg.MakeUp.Temperature, cfg.MakeUp.Pressure))
	}
	return plan
}

// StepInputs lists every input path written by topology and finalize steps,
// derived targets included.
func StepInputs(cfg *config.Config) map[string]float64 {
	out := make(map[string]float64)
	for _, group := range [][]config.Step{cfg.Topology, cfg.Finalize} {
		for _, s := range group {
			for p := range s.Set {
				out[p] = 0
			}
			for p := range s.Derive {
				out[p] = 0
			}
		}
	}
	return out
}

func designVariable(name, path string, v config.Variable) models.DesignVariable {
	return models.DesignVariable{Name: name, Path: path, Value: v.Initial, Min: v.Min, Max: v.Max, Unit: v.Unit}
}

func axisPlan(v models.DesignVariable, a config.Axis) AxisPlan {
	return AxisPlan{Variable: v, Step: a.Step, Halving: a.Halving, MinStep: a.MinStep}
}

func band(b config.Band) models.TargetBand {
	return models.TargetBand{Low: b.Low, High: b.High}
}

func sweepPlan(v models.DesignVariable, s config.Sweep) SweepPlan {
	return SweepPlan{Variable: v, From: s.From, To: s.To, Points: s.Points, Step: s.Step, Band: band(s.Band)}
}

func steps(in []config.Step) []TopologyStep {
	if len(in) == 0 {
		return nil
	}
	out := make([]TopologyStep, len(in))
	for i, s := range in {
		out[i] = TopologyStep{Name: s.Name, Set: s.Set, Derive: s.Derive, Evaluate: s.Evaluate}
	}
	return out
}
