package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/report"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/runstore"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/logger"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/utils"
)

// NotifySecretEnv names the environment variable holding the callback secret.
const NotifySecretEnv = "CAPTURE_NOTIFY_SECRET"

type runOptions struct {
	sessionID string
	strict    bool
	noPlots   bool
}

func newRunCommand(opts *Options) *cobra.Command {
	var ro runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sizing stages and record every evaluation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict") {
				cfg.Strict = ro.strict
			}
			return runDesign(cmd.Context(), cmd.OutOrStdout(), cfg, ro)
		},
	}

	cmd.Flags().StringVar(&ro.sessionID, "session-id", "", "Session ID (generated when empty)")
	cmd.Flags().BoolVar(&ro.strict, "strict", false, "Stop as soon as a stage exhausts its iteration budget")
	cmd.Flags().BoolVar(&ro.noPlots, "no-plots", false, "Skip chart rendering")
	return cmd
}

func runDesign(ctx context.Context, w io.Writer, cfg *config.Config, ro runOptions) error {
	plan := sizing.PlanFromConfig(cfg)
	if err := plan.Validate(); err != nil {
		return err
	}

	store, err := runstore.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	o, err := openOracle(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeOracle(o)

	sess, err := store.CreateSession(ctx, runstore.Session{ID: ro.sessionID, Backend: cfg.Oracle.Backend})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	log := logger.With("session_id", sess.ID)
	rec := runstore.NewRecorder(store, sess.ID, log)
	pipeline, err := sizing.NewPipeline(plan, rec)
	if err != nil {
		return err
	}

	log.Info("design run started", "backend", cfg.Oracle.Backend, "strict", cfg.Strict)
	rep, runErr := pipeline.Run(ctx, sizing.NewDesignSession(sess.ID, o))

	if runErr != nil {
		log.Error("design run stopped", "reason", stopReason(runErr), "error", runErr)
	}

	// the outcome is stored even when ctx was cancelled
	finishCtx := context.WithoutCancel(ctx)
	if err := rec.Finish(finishCtx, rep, runErr); err != nil {
		log.Warn("failed to store run outcome", "error", err)
	}
	if err := report.WriteSummary(w, rep); err != nil {
		log.Warn("failed to write summary", "error", err)
	}
	if cfg.Report.Plots && !ro.noPlots && cfg.Report.Dir != "" {
		files, err := report.SaveReportCharts(filepath.Join(cfg.Report.Dir, sess.ID), rep, plan)
		if err != nil {
			log.Warn("failed to render charts", "error", err)
		} else {
			log.Info("charts written", "dir", cfg.Report.Dir, "count", len(files))
		}
	}
	if cfg.Report.NotifyURL != "" {
		retry := cfg.Report.Notify
		n := report.NewNotifier(utils.BackoffFromConfig(retry.Backoff, retry.BaseMs, retry.MaxMs), retry.Attempts, os.Getenv(NotifySecretEnv))
		if err := n.Notify(finishCtx, cfg.Report.NotifyURL, report.NewPayload(rep, runErr)); err != nil {
			log.Warn("run notification failed", "error", err)
		}
	}
	return runErr
}

// stopReason classifies the error that ended a run for the log.
func stopReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case oracle.IsFatal(err):
		return "oracle"
	case sizing.IsExhausted(err):
		return "exhausted"
	case sizing.IsStalled(err):
		return "stalled"
	default:
		return "failed"
	}
}
