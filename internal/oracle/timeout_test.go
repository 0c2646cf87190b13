package oracle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

// stuckOracle ignores its context, like a simulator that never signals
// completion.
type stuckOracle struct {
	release chan struct{}
}

func (s *stuckOracle) Set(ctx context.Context, path string, value float64) error { return nil }
func (s *stuckOracle) Get(ctx context.Context, path string) (float64, error)     { return 1, nil }
func (s *stuckOracle) Evaluate(ctx context.Context) (EvalResult, error) {
	<-s.release
	return EvalResult{}, nil
}

func TestWithTimeoutSurfacesTimeout(t *testing.T) {
	stuck := &stuckOracle{release: make(chan struct{})}
	defer close(stuck.release)

	o := WithTimeout(stuck, 20*time.Millisecond)
	_, err := o.Evaluate(context.Background())
	if !errors.Is(err, ErrOracleTimeout) {
		t.Fatalf("expected ErrOracleTimeout, got %v", err)
	}

	if err := o.Set(context.Background(), "x", 1); !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable after timeout, got %v", err)
	}
	if _, err := o.Evaluate(context.Background()); !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable on reuse, got %v", err)
	}
}

func TestWithTimeoutContextAwareModel(t *testing.T) {
	m := NewModel(map[string]float64{"x": 0}, func(int, map[string]float64) Response {
		return Response{Outputs: map[string]float64{"y": 1}}
	}, WithDelay(time.Second))

	o := WithTimeout(m, 10*time.Millisecond)
	if _, err := o.Evaluate(context.Background()); !errors.Is(err, ErrOracleTimeout) {
		t.Fatalf("expected ErrOracleTimeout, got %v", err)
	}
}

func TestWithTimeoutInnerTimeoutBreaksSession(t *testing.T) {
	m := NewModel(map[string]float64{"x": 0}, func(int, map[string]float64) Response {
		return Response{Err: fmt.Errorf("remote evaluate: %w", ErrOracleTimeout)}
	})

	o := WithTimeout(m, time.Second)
	if _, err := o.Evaluate(context.Background()); !errors.Is(err, ErrOracleTimeout) {
		t.Fatalf("expected ErrOracleTimeout from the wrapped oracle, got %v", err)
	}
	if _, err := o.Evaluate(context.Background()); !errors.Is(err, ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable on reuse, got %v", err)
	}
	if m.Evaluations() != 1 {
		t.Fatalf("broken session must not reach the model again, got %d evaluations", m.Evaluations())
	}
}

func TestWithTimeoutPassesFastEvaluations(t *testing.T) {
	m := NewModel(map[string]float64{"x": 0}, func(int, map[string]float64) Response {
		return Response{Outputs: map[string]float64{"y": 1}}
	})
	o := WithTimeout(m, time.Second)
	res, err := o.Evaluate(context.Background())
	if err != nil || !res.Converged() {
		t.Fatalf("expected converged evaluation, got %+v, %v", res, err)
	}
	if v, err := o.Get(context.Background(), "y"); err != nil || v != 1 {
		t.Fatalf("expected y=1, got %v, %v", v, err)
	}
}

func TestWithTimeoutParentCancellation(t *testing.T) {
	m := NewModel(map[string]float64{"x": 0}, func(int, map[string]float64) Response {
		return Response{}
	}, WithDelay(time.Second))
	o := WithTimeout(m, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Evaluate(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	// caller cancellation does not poison the session
	if err := o.Set(context.Background(), "x", 1); err != nil {
		t.Fatalf("unexpected error after cancellation: %v", err)
	}
}

func TestWithTimeoutDisabled(t *testing.T) {
	m := NewModel(nil, nil)
	if WithTimeout(m, 0) != Oracle(m) {
		t.Fatalf("expected non-positive timeout to return the oracle unchanged")
	}
}
