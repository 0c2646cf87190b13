package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
)

func newValidateCommand(opts *Options) *cobra.Command {
	var printConfig bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and print the resulting plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return validatePlan(cmd.OutOrStdout(), cfg, printConfig)
		},
	}
	cmd.Flags().BoolVar(&printConfig, "print", false, "Print the effective configuration with defaults applied")
	return cmd
}

func validatePlan(w io.Writer, cfg *config.Config, printConfig bool) error {
	plan := sizing.PlanFromConfig(cfg)
	if err := plan.Validate(); err != nil {
		return err
	}
	if printConfig {
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	fmt.Fprintf(w, "backend: %s\n", cfg.Oracle.Backend)
	if plan.Feed != nil {
		fmt.Fprintf(w, "%s: flue gas %g, lean loading %g\n", sizing.StageFeed, plan.Feed.FlueGasFlow, plan.Feed.LeanLoading)
	}
	sweeps := []struct {
		stage string
		p     *sizing.SweepPlan
	}{
		{sizing.StageSolventSweep, &plan.SolventSweep},
		{sizing.StageHeightSweep, plan.HeightSweep},
	}
	for _, s := range sweeps {
		if s.p == nil {
			continue
		}
		fmt.Fprintf(w, "%s: %s %g -> %g in %d points, band %s\n", s.stage, s.p.Variable.Name, s.p.From, s.p.To, s.p.Points, s.p.Band)
	}
	fmt.Fprintf(w, "%s: flooding %s, capture %s, max %d iterations\n", sizing.StageDual, plan.Dual.FloodingBand, plan.Dual.CaptureBand, plan.Dual.MaxIterations)
	fmt.Fprintf(w, "%s: capture %s, max %d iterations\n", sizing.StageHeight, plan.Height.CaptureBand, plan.Height.MaxIterations)
	for _, t := range plan.Topology {
		fmt.Fprintf(w, "%s: %s (%d inputs, %d derived)\n", sizing.StageTopology, t.Name, len(t.Set), len(t.Derive))
	}
	fmt.Fprintf(w, "%s: lean loading %s, max %d iterations\n", sizing.StageRecycle, plan.Recycle.Setpoint, plan.Recycle.MaxIterations)
	for _, t := range plan.Finalize {
		fmt.Fprintf(w, "%s: %s (%d inputs)\n", sizing.StageFinalize, t.Name, len(t.Set))
	}
	fmt.Fprintln(w, "configuration ok")
	return nil
}
