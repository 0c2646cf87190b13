package sizing

import (
	"context"
	"testing"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// outputsFunc maps committed inputs to outputs; fault injection is layered
// on top by stubOracle.
type outputsFunc func(in map[string]float64) map[string]float64

type stubConfig struct {
	nonConverged map[int]bool   // evaluation numbers reported with code 1
	dropOutput   map[int]string // evaluation number -> output path left out
	unavailable  map[int]bool   // evaluation numbers failing with ErrOracleUnavailable
}

func stubOracle(inputs map[string]float64, f outputsFunc, cfg stubConfig) *oracle.Model {
	return oracle.NewModel(inputs, func(eval int, in map[string]float64) oracle.Response {
		if cfg.unavailable[eval] {
			return oracle.Response{Err: oracle.ErrOracleUnavailable}
		}
		out := f(in)
		if p, ok := cfg.dropOutput[eval]; ok {
			delete(out, p)
		}
		code := 0
		if cfg.nonConverged[eval] {
			code = 1
		}
		return oracle.Response{Outputs: out, Code: code}
	})
}

func newSession(t *testing.T, o oracle.Oracle) *DesignSession {
	t.Helper()
	return NewDesignSession("design-test", o)
}

func variable(name string, value float64) models.DesignVariable {
	return models.DesignVariable{Name: name, Path: name, Value: value}
}

var bg = context.Background()
