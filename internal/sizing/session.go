package sizing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/logger"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// DesignSession threads the oracle handle and the running search histories
// through every stage of one design. It replaces process-wide state: nothing
// in this package keeps globals.
type DesignSession struct {
	id     string
	oracle oracle.Oracle

	mu        sync.Mutex
	seq       uint64
	last      oracle.EvalResult
	histories map[string]*models.History
	order     []string
}

// NewDesignSession creates a session bound to o.
func NewDesignSession(id string, o oracle.Oracle) *DesignSession {
	return &DesignSession{
		id:        id,
		oracle:    o,
		histories: make(map[string]*models.History),
	}
}

// ID returns the session identifier.
func (s *DesignSession) ID() string {
	return s.id
}

// Oracle returns the underlying oracle handle.
func (s *DesignSession) Oracle() oracle.Oracle {
	return s.oracle
}

// Logger returns the structured logger for a stage of this session.
func (s *DesignSession) Logger(stage string) *slog.Logger {
	return logger.ForStage(s.id, stage)
}

// Write stages the current value of each variable.
func (s *DesignSession) Write(ctx context.Context, vars ...models.DesignVariable) error {
	for _, v := range vars {
		if err := s.oracle.Set(ctx, v.Path, v.Value); err != nil {
			return fmt.Errorf("write %s: %w", v.Name, err)
		}
	}
	return nil
}

// Evaluate runs one evaluation and stamps it with the next sequence number.
func (s *DesignSession) Evaluate(ctx context.Context) (oracle.EvalResult, error) {
	res, err := s.oracle.Evaluate(ctx)

	s.mu.Lock()
	s.seq++
	res.Seq = s.seq
	s.mu.Unlock()

	if err != nil {
		return res, err
	}
	if res.Status == "" {
		res.Status = oracle.StatusFromCode(res.Code)
	}
	s.mu.Lock()
	s.last = oracle.EvalResult{Seq: res.Seq, Status: res.Status, Code: res.Code}
	s.mu.Unlock()
	return res, nil
}

// Last returns the latest completed evaluation without its outputs; pass it
// to Read to fetch them. It reports false before the first evaluation.
func (s *DesignSession) Last() (oracle.EvalResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.last.Seq != 0
}

// Read fills res.Outputs with the given paths. It refuses results that are
// not from the latest evaluation: an output read after a newer evaluation
// would belong to different inputs.
func (s *DesignSession) Read(ctx context.Context, res *oracle.EvalResult, paths ...string) error {
	s.mu.Lock()
	latest := s.seq
	s.mu.Unlock()
	if res.Seq == 0 || res.Seq != latest {
		return fmt.Errorf("%w: result #%d is stale (latest #%d)", oracle.ErrOutputUnavailable, res.Seq, latest)
	}

	if res.Outputs == nil {
		res.Outputs = make(map[string]float64, len(paths))
	}
	for _, p := range paths {
		if _, ok := res.Outputs[p]; ok {
			continue
		}
		v, err := s.oracle.Get(ctx, p)
		if err != nil {
			return err
		}
		res.Outputs[p] = v
	}
	return nil
}

// Evaluations returns how many evaluations the session has issued.
func (s *DesignSession) Evaluations() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Track registers the history of a stage run. A stage run again replaces
// its earlier history.
func (s *DesignSession) Track(stage string, h *models.History) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.histories[stage]; !ok {
		s.order = append(s.order, stage)
	}
	s.histories[stage] = h
}

// History returns the tracked history of a stage.
func (s *DesignSession) History(stage string) (*models.History, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.histories[stage]
	return h, ok
}

// Stages lists tracked stages in the order they first ran.
func (s *DesignSession) Stages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
