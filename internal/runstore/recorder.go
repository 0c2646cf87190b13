package runstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Open returns the store selected by cfg.
func Open(cfg config.Store) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Recorder persists the history of every finished pipeline stage. Store
// failures are logged and never stop the design run.
type Recorder struct {
	store     Store
	sessionID string
	log       *slog.Logger
}

var _ sizing.Observer = (*Recorder)(nil)

func NewRecorder(store Store, sessionID string, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{store: store, sessionID: sessionID, log: log}
}

func (r *Recorder) StageDone(ctx context.Context, stage string, status sizing.Status, h *models.History) {
	records := h.Records()
	if len(records) == 0 {
		return
	}
	if err := r.store.AppendRecords(ctx, r.sessionID, stage, records); err != nil {
		r.log.Warn("failed to persist stage history", "session_id", r.sessionID, "stage", stage, "status", status, "error", err)
	}
}

// Finish stores the outcome of a pipeline run.
func (r *Recorder) Finish(ctx context.Context, rep *sizing.DesignReport, runErr error) error {
	sum := Summary{Design: map[string]float64{}}
	status := string(sizing.StatusAborted)
	if rep != nil {
		sum.Evaluations = rep.Evaluations
		for _, v := range rep.Design {
			sum.Design[v.Name] = v.Value
		}
		status = string(rep.Status)
	}
	if runErr != nil {
		sum.Error = runErr.Error()
	}
	return r.store.Finish(ctx, r.sessionID, status, sum)
}
