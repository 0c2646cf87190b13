// Package runstore persists design sessions and the search histories of
// their stages so finished runs can be listed, inspected and plotted later.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

var (
	// ErrNotFound is returned for an unknown session ID.
	ErrNotFound = errors.New("session not found")
	// ErrExists is returned when a session ID is created twice.
	ErrExists = errors.New("session already exists")
)

// Session status values. A session is running until Finish is called with
// the status of the design run.
const (
	StatusRunning = "running"
)

// Session is the stored summary of one design run.
type Session struct {
	ID               string             `json:"id"`
	Status           string             `json:"status"`
	Backend          string             `json:"backend,omitempty"`
	Evaluations      uint64             `json:"evaluations"`
	Design           map[string]float64 `json:"design,omitempty"`
	Error            string             `json:"error,omitempty"`
	CreatedAtUnixMs  int64              `json:"created_at_unix_ms"`
	FinishedAtUnixMs int64              `json:"finished_at_unix_ms,omitempty"`
}

// Summary is what Finish records about a completed run.
type Summary struct {
	Evaluations uint64
	Design      map[string]float64
	Error       string
}

// StoredRecord is a history record tagged with its session and stage.
type StoredRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Stage     string `json:"stage"`
	models.Record
}

// Store is implemented by MemoryStore and SQLiteStore.
type Store interface {
	CreateSession(ctx context.Context, s Session) (Session, error)
	AppendRecords(ctx context.Context, sessionID, stage string, records []models.Record) error
	Finish(ctx context.Context, sessionID, status string, sum Summary) error
	Get(ctx context.Context, sessionID string) (Session, error)
	// List returns the most recent sessions first. limit <= 0 means 50.
	List(ctx context.Context, limit int) ([]Session, error)
	// Records returns the records of one stage, or of every stage when stage
	// is empty, in the order they were appended.
	Records(ctx context.Context, sessionID, stage string) ([]StoredRecord, error)
	Close() error
}

const defaultListLimit = 50

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func copyValues(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
