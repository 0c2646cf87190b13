package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle/remote"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/logger"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/utils"
)

// Oracle backends.
const (
	BackendSurrogate = "surrogate"
	BackendRemote    = "remote"
)

// openOracle builds the simulator handle selected by cfg, wrapped with the
// evaluation timeout when one is configured.
func openOracle(ctx context.Context, cfg *config.Config) (oracle.Oracle, error) {
	var o oracle.Oracle
	switch cfg.Oracle.Backend {
	case BackendSurrogate:
		o = oracle.NewAbsorberSurrogate(cfg.Paths, oracle.DefaultSurrogateParams(), oracle.WithInputs(sizing.StepInputs(cfg)))
	case BackendRemote:
		c, err := remote.Dial(cfg.Oracle.Address)
		if err != nil {
			return nil, err
		}
		retry := cfg.Oracle.Connect
		strategy := utils.BackoffFromConfig(retry.Backoff, retry.BaseMs, retry.MaxMs)
		if err := remote.WaitReady(ctx, c, strategy, retry.Attempts); err != nil {
			c.Close()
			return nil, fmt.Errorf("oracle at %s: %w", cfg.Oracle.Address, err)
		}
		logger.Info("connected to oracle", "addr", cfg.Oracle.Address)
		o = c
	default:
		return nil, fmt.Errorf("unknown oracle backend %q", cfg.Oracle.Backend)
	}

	timeout, err := cfg.Oracle.GetEvalTimeout()
	if err != nil {
		closeOracle(o)
		return nil, fmt.Errorf("oracle eval_timeout: %w", err)
	}
	if timeout > 0 {
		o = oracle.WithTimeout(o, timeout)
	}
	return o, nil
}

func closeOracle(o oracle.Oracle) {
	c, ok := o.(io.Closer)
	if !ok {
		return
	}
	if err := c.Close(); err != nil {
		logger.Warn("failed to close oracle", "error", err)
	}
}
