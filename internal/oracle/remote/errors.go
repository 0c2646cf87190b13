package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps an oracle error to a gRPC status.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch {
	case errors.Is(err, oracle.ErrUnknownPath), errors.Is(err, oracle.ErrOutputUnavailable):
		code = codes.NotFound
	case errors.Is(err, oracle.ErrOracleUnavailable):
		code = codes.Unavailable
	case errors.Is(err, oracle.ErrOracleTimeout), errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}

// fromStatus maps a gRPC error of op on path back to the oracle taxonomy.
func fromStatus(op, path string, err error) error {
	if err == nil {
		return nil
	}
	st := status.Convert(err)
	switch st.Code() {
	case codes.NotFound:
		if op == methodSet {
			return &oracle.PathError{Op: "set", Path: path, Err: oracle.ErrUnknownPath}
		}
		return &oracle.PathError{Op: "get", Path: path, Err: oracle.ErrOutputUnavailable}
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", oracle.ErrOracleUnavailable, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", oracle.ErrOracleTimeout, st.Message())
	case codes.Canceled:
		return fmt.Errorf("remote %s: %w", op, context.Canceled)
	default:
		return fmt.Errorf("remote %s: %w", op, err)
	}
}
