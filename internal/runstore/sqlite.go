package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	backend        TEXT,
	evaluations    INTEGER NOT NULL DEFAULT 0,
	design_json    TEXT,
	error          TEXT,
	created_at_ms  INTEGER NOT NULL,
	finished_at_ms INTEGER
);

CREATE TABLE IF NOT EXISTS records (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	session_id   TEXT NOT NULL,
	stage        TEXT NOT NULL,
	iteration    INTEGER NOT NULL,
	status       TEXT NOT NULL,
	inputs_json  TEXT NOT NULL,
	metrics_json TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS records_session_stage ON records(session_id, stage);
`

// SQLiteStore persists sessions in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess Session) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = utils.GenerateSessionID()
	}
	if sess.Status == "" {
		sess.Status = StatusRunning
	}
	if sess.CreatedAtUnixMs == 0 {
		sess.CreatedAtUnixMs = nowUnixMs()
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sess.ID).Scan(&n); err != nil {
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}
	if n > 0 {
		return Session{}, fmt.Errorf("%w: %s", ErrExists, sess.ID)
	}
	design, err := marshalValues(sess.Design)
	if err != nil {
		return Session{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, backend, evaluations, design_json, error, created_at_ms) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Status, sess.Backend, int64(sess.Evaluations), design, sess.Error, sess.CreatedAtUnixMs)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) AppendRecords(ctx context.Context, sessionID, stage string, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.exists(ctx, sessionID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, session_id, stage, iteration, status, inputs_json, metrics_json) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		inputs, err := marshalValues(r.Inputs)
		if err != nil {
			return err
		}
		metrics, err := marshalValues(r.Metrics)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, utils.GenerateRecordID(), sessionID, stage, r.Iteration, string(r.Status), inputs, metrics); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Finish(ctx context.Context, sessionID, status string, sum Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	design, err := marshalValues(sum.Design)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, evaluations = ?, design_json = ?, error = ?, finished_at_ms = ? WHERE id = ?`,
		status, int64(sum.Evaluations), design, sum.Error, nowUnixMs(), sessionID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, sessionID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return sess, err
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions ORDER BY created_at_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Records(ctx context.Context, sessionID, stage string) ([]StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.exists(ctx, sessionID); err != nil {
		return nil, err
	}
	query := `SELECT id, stage, iteration, status, inputs_json, metrics_json FROM records WHERE session_id = ?`
	args := []any{sessionID}
	if stage != "" {
		query += ` AND stage = ?`
		args = append(args, stage)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		var (
			rec             StoredRecord
			status          string
			inputs, metrics string
		)
		if err := rows.Scan(&rec.ID, &rec.Stage, &rec.Iteration, &status, &inputs, &metrics); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.SessionID = sessionID
		rec.Status = models.EvalStatus(status)
		if rec.Inputs, err = unmarshalValues(inputs); err != nil {
			return nil, err
		}
		if rec.Metrics, err = unmarshalValues(metrics); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) exists(ctx context.Context, sessionID string) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&n); err != nil {
		return fmt.Errorf("lookup session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

const sessionColumns = `id, status, backend, evaluations, design_json, error, created_at_ms, finished_at_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess     Session
		backend  sql.NullString
		evals    int64
		design   sql.NullString
		errMsg   sql.NullString
		finished sql.NullInt64
	)
	if err := row.Scan(&sess.ID, &sess.Status, &backend, &evals, &design, &errMsg, &sess.CreatedAtUnixMs, &finished); err != nil {
		return Session{}, err
	}
	sess.Backend = backend.String
	sess.Evaluations = uint64(evals)
	sess.Error = errMsg.String
	sess.FinishedAtUnixMs = finished.Int64
	if design.Valid && design.String != "" {
		values, err := unmarshalValues(design.String)
		if err != nil {
			return Session{}, err
		}
		sess.Design = values
	}
	return sess, nil
}

func marshalValues(m map[string]float64) (string, error) {
	if m == nil {
		m = map[string]float64{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode values: %w", err)
	}
	return string(data), nil
}

func unmarshalValues(s string) (map[string]float64, error) {
	out := map[string]float64{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return out, nil
}
