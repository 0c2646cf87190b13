package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/report"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/runstore"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

var plotStages = []string{
	sizing.StageSolventSweep,
	sizing.StageHeightSweep,
	sizing.StageDual,
	sizing.StageHeight,
	sizing.StageRecycle,
}

func newPlotCommand(opts *Options) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "plot <session-id>",
		Short: "Render stage charts of a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			store, err := runstore.Open(cfg.Store)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()
			if out == "" {
				out = filepath.Join(cfg.Report.Dir, args[0])
			}
			return plotSession(cmd.Context(), cmd.OutOrStdout(), store, args[0], out, sizing.PlanFromConfig(cfg))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output directory (default <report.dir>/<session-id>)")
	return cmd
}

func plotSession(ctx context.Context, w io.Writer, store runstore.Store, id, dir string, plan sizing.Plan) error {
	var written int
	for _, stage := range plotStages {
		stored, err := store.Records(ctx, id, stage)
		if err != nil {
			return err
		}
		if len(stored) == 0 {
			continue
		}
		recs := make([]models.Record, len(stored))
		for i, r := range stored {
			recs[i] = r.Record
		}
		files, err := report.SaveStageCharts(dir, stage, recs, plan)
		if err != nil {
			return fmt.Errorf("%s charts: %w", stage, err)
		}
		for _, f := range files {
			fmt.Fprintln(w, f)
		}
		written += len(files)
	}
	if written == 0 {
		return fmt.Errorf("session %s has no stage history to plot", id)
	}
	return nil
}
