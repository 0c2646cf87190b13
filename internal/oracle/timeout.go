package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// WithTimeout bounds every Evaluate call of o by d. When an evaluation
// overruns, the call returns ErrOracleTimeout and the returned oracle refuses
// further work with ErrOracleUnavailable: the hung evaluation still owns the
// simulator and nothing can safely be staged behind it.
//
// A non-positive d returns o unchanged.
func WithTimeout(o Oracle, d time.Duration) Oracle {
	if d <= 0 {
		return o
	}
	return &timeoutOracle{inner: o, timeout: d}
}

type timeoutOracle struct {
	inner   Oracle
	timeout time.Duration

	mu     sync.Mutex
	broken bool
}

func (t *timeoutOracle) usable() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken {
		return fmt.Errorf("%w: previous evaluation timed out", ErrOracleUnavailable)
	}
	return nil
}

func (t *timeoutOracle) markBroken() {
	t.mu.Lock()
	t.broken = true
	t.mu.Unlock()
}

func (t *timeoutOracle) Set(ctx context.Context, path string, value float64) error {
	if err := t.usable(); err != nil {
		return err
	}
	return t.inner.Set(ctx, path, value)
}

func (t *timeoutOracle) Get(ctx context.Context, path string) (float64, error) {
	if err := t.usable(); err != nil {
		return 0, err
	}
	return t.inner.Get(ctx, path)
}

func (t *timeoutOracle) Evaluate(ctx context.Context) (EvalResult, error) {
	if err := t.usable(); err != nil {
		return EvalResult{Status: models.EvalUnavailable}, err
	}

	evalCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		res EvalResult
		err error
	}
	// Buffered so the evaluation goroutine can finish after we gave up.
	done := make(chan result, 1)
	go func() {
		res, err := t.inner.Evaluate(evalCtx)
		done <- result{res: res, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil || ctx.Err() != nil {
			return r.res, r.err
		}
		// a timeout reported by the wrapped oracle leaves it just as unusable
		if errors.Is(r.err, ErrOracleTimeout) {
			t.markBroken()
			return EvalResult{Status: models.EvalUnavailable}, r.err
		}
		if errors.Is(r.err, context.DeadlineExceeded) {
			t.markBroken()
			return EvalResult{Status: models.EvalUnavailable}, fmt.Errorf("%w after %s", ErrOracleTimeout, t.timeout)
		}
		return r.res, r.err
	case <-evalCtx.Done():
		if err := ctx.Err(); err != nil {
			return EvalResult{Status: models.EvalUnavailable}, err
		}
		t.markBroken()
		return EvalResult{Status: models.EvalUnavailable}, fmt.Errorf("%w after %s", ErrOracleTimeout, t.timeout)
	}
}

// Close closes the wrapped oracle when it supports closing.
func (t *timeoutOracle) Close() error {
	if c, ok := t.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
