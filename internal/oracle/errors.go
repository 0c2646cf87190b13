package oracle

import "errors"

// Failure taxonomy shared by every adapter.
var (
	// ErrOracleUnavailable indicates the simulator session is not ready or
	// has been closed. It aborts the whole design pipeline.
	ErrOracleUnavailable = errors.New("oracle: simulator session unavailable")

	// ErrOutputUnavailable indicates a required output path is absent or was
	// not produced by the last evaluation. It aborts the active solver stage.
	ErrOutputUnavailable = errors.New("oracle: output unavailable")

	// ErrUnknownPath indicates an input path that does not exist in the
	// current flowsheet.
	ErrUnknownPath = errors.New("oracle: unknown input path")

	// ErrOracleTimeout indicates an evaluation did not complete in time. The
	// session is unusable afterwards.
	ErrOracleTimeout = errors.New("oracle: evaluation timed out")
)

// PathError records a failed read or write together with the path involved.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must stop the whole pipeline rather than the
// current stage only.
func IsFatal(err error) bool {
	return errors.Is(err, ErrOracleUnavailable) || errors.Is(err, ErrOracleTimeout)
}
