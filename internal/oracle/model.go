package oracle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Response is what a ResponseFunc returns for one evaluation.
type Response struct {
	// Outputs produced by the evaluation. Paths left out read as
	// ErrOutputUnavailable.
	Outputs map[string]float64
	// Code is the simulator error code; zero means converged.
	Code int
	// Err fails the evaluation itself (e.g. ErrOracleUnavailable).
	Err error
}

// ResponseFunc computes the outputs of evaluation number eval (1-based) from
// the committed inputs. It must not retain inputs.
type ResponseFunc func(eval int, inputs map[string]float64) Response

// Model is an in-memory oracle over a fixed set of input paths and a
// response function. It follows the same staging rules as a real simulator
// session: writes are staged by Set and only become visible to the response
// function when Evaluate commits them.
type Model struct {
	respond ResponseFunc
	delay   time.Duration

	mu        sync.Mutex
	committed map[string]float64
	staged    map[string]float64
	outputs   map[string]float64
	evals     int
	closed    bool
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithDelay makes every evaluation take d. The delay honours the context so
// a cancelled caller does not wait for it.
func WithDelay(d time.Duration) ModelOption {
	return func(m *Model) { m.delay = d }
}

// WithInputs declares extra input paths the response function ignores, such
// as flowsheet settings written by topology steps.
func WithInputs(inputs map[string]float64) ModelOption {
	return func(m *Model) {
		for k, v := range inputs {
			if _, ok := m.committed[k]; !ok {
				m.committed[k] = v
			}
		}
	}
}

// NewModel creates a model whose valid input paths are the keys of inputs,
// initialised to their values.
func NewModel(inputs map[string]float64, respond ResponseFunc, opts ...ModelOption) *Model {
	m := &Model{
		respond:   respond,
		committed: make(map[string]float64, len(inputs)),
		staged:    make(map[string]float64),
	}
	for k, v := range inputs {
		m.committed[k] = v
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Set(ctx context.Context, path string, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrOracleUnavailable
	}
	if _, ok := m.committed[path]; !ok {
		return &PathError{Op: "set", Path: path, Err: ErrUnknownPath}
	}
	m.staged[path] = value
	return nil
}

func (m *Model) Evaluate(ctx context.Context) (EvalResult, error) {
	m.mu.Lock()
	if m.closed || m.respond == nil {
		m.mu.Unlock()
		return EvalResult{Status: models.EvalUnavailable}, ErrOracleUnavailable
	}
	for k, v := range m.staged {
		m.committed[k] = v
	}
	m.staged = make(map[string]float64)
	m.evals++
	eval := m.evals
	inputs := make(map[string]float64, len(m.committed))
	for k, v := range m.committed {
		inputs[k] = v
	}
	// outputs of the previous evaluation are gone once a new one starts
	m.outputs = nil
	m.mu.Unlock()

	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return EvalResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	resp := m.respond(eval, inputs)
	if resp.Err != nil {
		return EvalResult{}, resp.Err
	}

	m.mu.Lock()
	m.outputs = make(map[string]float64, len(resp.Outputs))
	for k, v := range resp.Outputs {
		m.outputs[k] = v
	}
	m.mu.Unlock()

	return EvalResult{Status: StatusFromCode(resp.Code), Code: resp.Code}, nil
}

func (m *Model) Get(ctx context.Context, path string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrOracleUnavailable
	}
	if m.outputs == nil {
		return 0, &PathError{Op: "get", Path: path, Err: fmt.Errorf("%w: no completed evaluation", ErrOutputUnavailable)}
	}
	v, ok := m.outputs[path]
	if !ok {
		return 0, &PathError{Op: "get", Path: path, Err: ErrOutputUnavailable}
	}
	return v, nil
}

// Close ends the session; later calls fail with ErrOracleUnavailable.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Evaluations returns how many evaluations have started.
func (m *Model) Evaluations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evals
}

// Input returns the committed value of an input path.
func (m *Model) Input(path string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.committed[path]
	return v, ok
}

// InputPaths lists the accepted input paths in sorted order.
func (m *Model) InputPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.committed))
	for k := range m.committed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
