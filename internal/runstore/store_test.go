package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

var bg = context.Background()

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func record(iter int, d, f, flood float64) models.Record {
	return models.Record{
		Iteration: iter,
		Inputs:    map[string]float64{"diameter": d, "solvent_flow": f},
		Metrics:   map[string]float64{"flooding": flood},
		Status:    models.EvalConverged,
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess, err := store.CreateSession(bg, Session{Backend: "surrogate"})
			if err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			if sess.ID == "" {
				t.Fatalf("expected generated session id")
			}
			if sess.Status != StatusRunning {
				t.Fatalf("expected status running, got %q", sess.Status)
			}
			if sess.CreatedAtUnixMs == 0 {
				t.Fatalf("expected created_at_unix_ms to be set")
			}

			got, err := store.Get(bg, sess.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.ID != sess.ID || got.Backend != "surrogate" || got.Status != StatusRunning {
				t.Fatalf("unexpected session %+v", got)
			}
			if got.FinishedAtUnixMs != 0 {
				t.Fatalf("expected unfinished session")
			}
		})
	}
}

func TestStoreDuplicateAndMissing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.CreateSession(bg, Session{ID: "design-1"}); err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			if _, err := store.CreateSession(bg, Session{ID: "design-1"}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			if _, err := store.Get(bg, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound from Get, got %v", err)
			}
			if err := store.AppendRecords(bg, "missing", "dual", []models.Record{record(1, 6, 280, 75)}); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound from AppendRecords, got %v", err)
			}
			if err := store.Finish(bg, "missing", "converged", Summary{}); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound from Finish, got %v", err)
			}
			if _, err := store.Records(bg, "missing", ""); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound from Records, got %v", err)
			}
		})
	}
}

func TestStoreRecordsKeepOrderPerStage(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess, err := store.CreateSession(bg, Session{ID: "design-1"})
			if err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			dual := []models.Record{record(1, 6, 287.78, 60), record(2, 6.25, 286.78, 66), record(3, 6.5, 285.78, 72)}
			if err := store.AppendRecords(bg, sess.ID, "dual", dual); err != nil {
				t.Fatalf("AppendRecords: %v", err)
			}
			nc := record(1, 7.25, 285.78, 0)
			nc.Status = models.EvalNonConverged
			if err := store.AppendRecords(bg, sess.ID, "height", []models.Record{nc}); err != nil {
				t.Fatalf("AppendRecords: %v", err)
			}

			got, err := store.Records(bg, sess.ID, "dual")
			if err != nil {
				t.Fatalf("Records: %v", err)
			}
			if len(got) != 3 {
				t.Fatalf("expected 3 dual records, got %d", len(got))
			}
			for i, r := range got {
				if r.Iteration != i+1 || r.Stage != "dual" || r.SessionID != sess.ID || r.ID == "" {
					t.Fatalf("unexpected record %d: %+v", i, r)
				}
				if r.Inputs["diameter"] != dual[i].Inputs["diameter"] || r.Metrics["flooding"] != dual[i].Metrics["flooding"] {
					t.Fatalf("record %d values changed: %+v", i, r)
				}
			}

			all, err := store.Records(bg, sess.ID, "")
			if err != nil {
				t.Fatalf("Records: %v", err)
			}
			if len(all) != 4 || all[3].Stage != "height" || all[3].Status != models.EvalNonConverged {
				t.Fatalf("unexpected full history %+v", all)
			}
		})
	}
}

func TestStoreFinishAndList(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for i, id := range []string{"design-a", "design-b", "design-c"} {
				if _, err := store.CreateSession(bg, Session{ID: id, CreatedAtUnixMs: int64(1000 + i)}); err != nil {
					t.Fatalf("CreateSession: %v", err)
				}
			}
			sum := Summary{Evaluations: 123, Design: map[string]float64{"diameter": 7.25, "height": 25}}
			if err := store.Finish(bg, "design-b", "converged", sum); err != nil {
				t.Fatalf("Finish: %v", err)
			}

			got, err := store.Get(bg, "design-b")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status != "converged" || got.Evaluations != 123 || got.FinishedAtUnixMs == 0 {
				t.Fatalf("unexpected finished session %+v", got)
			}
			if got.Design["diameter"] != 7.25 || got.Design["height"] != 25 {
				t.Fatalf("unexpected design %v", got.Design)
			}

			list, err := store.List(bg, 2)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 2 || list[0].ID != "design-c" || list[1].ID != "design-b" {
				t.Fatalf("expected newest two sessions, got %+v", list)
			}
			list, err = store.List(bg, 0)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(list) != 3 {
				t.Fatalf("expected default limit to return all 3 sessions, got %d", len(list))
			}
		})
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if _, err := store.CreateSession(bg, Session{ID: "design-1"}); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := store.AppendRecords(bg, "design-1", "recycle", []models.Record{record(1, 7.25, 285.78, 80)}); err != nil {
		t.Fatalf("AppendRecords: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	recs, err := store.Records(bg, "design-1", "recycle")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 1 || recs[0].Inputs["solvent_flow"] != 285.78 {
		t.Fatalf("unexpected records after reopen %+v", recs)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Store
		wantErr bool
	}{
		{"default", config.Store{}, false},
		{"memory", config.Store{Driver: "memory"}, false},
		{"sqlite", config.Store{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "runs.db")}, false},
		{"unknown", config.Store{Driver: "postgres"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			store.Close()
		})
	}
}
