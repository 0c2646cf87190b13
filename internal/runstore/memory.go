package runstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/utils"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	records  map[string][]StoredRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		records:  make(map[string][]StoredRecord),
	}
}

func (m *MemoryStore) CreateSession(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = utils.GenerateSessionID()
	}
	if _, exists := m.sessions[s.ID]; exists {
		return Session{}, fmt.Errorf("%w: %s", ErrExists, s.ID)
	}
	if s.Status == "" {
		s.Status = StatusRunning
	}
	if s.CreatedAtUnixMs == 0 {
		s.CreatedAtUnixMs = nowUnixMs()
	}
	s.Design = copyValues(s.Design)
	m.sessions[s.ID] = &s
	return s, nil
}

func (m *MemoryStore) AppendRecords(_ context.Context, sessionID, stage string, records []models.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	for _, r := range records {
		r.Inputs = copyValues(r.Inputs)
		r.Metrics = copyValues(r.Metrics)
		m.records[sessionID] = append(m.records[sessionID], StoredRecord{
			ID:        utils.GenerateRecordID(),
			SessionID: sessionID,
			Stage:     stage,
			Record:    r,
		})
	}
	return nil
}

func (m *MemoryStore) Finish(_ context.Context, sessionID, status string, sum Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	s.Status = status
	s.Evaluations = sum.Evaluations
	s.Design = copyValues(sum.Design)
	s.Error = sum.Error
	s.FinishedAtUnixMs = nowUnixMs()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	out := *s
	out.Design = copyValues(s.Design)
	return out, nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = defaultListLimit
	}
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		cp := *s
		cp.Design = copyValues(s.Design)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUnixMs != out[j].CreatedAtUnixMs {
			return out[i].CreatedAtUnixMs > out[j].CreatedAtUnixMs
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Records(_ context.Context, sessionID, stage string) ([]StoredRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	var out []StoredRecord
	for _, r := range m.records[sessionID] {
		if stage != "" && r.Stage != stage {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
