package config

import "github.com/GoSim-25-26J-441/capture-sizing/pkg/models"

// Defaults of the reference design run.
const (
	DefaultSolventFactor      = 1.1
	DefaultMaxIterations      = 100
	DefaultRecycleMaxIter     = 500
	DefaultSweepPoints        = 100
	DefaultMinSolventPerGas   = 1.0
	DefaultMaxSolventPerGas   = 3.5
	DefaultFlueGasFlow        = 100.0
	DefaultLeanLoading        = 0.12
	DefaultLeanNH3            = 0.05
	DefaultLoadingTolerance   = 0.001
	DefaultBoilupStep         = 0.001
	DefaultHeightStep         = 0.1
	DefaultDiameterStep       = 0.25
	DefaultSolventFlowStep    = 1.0
	DefaultHeightSweepFrom    = 100.0
	DefaultHeightSweepTo      = 5.0
	DefaultConnectAttempts    = 5
	DefaultNotifyAttempts     = 3
	DefaultStoreDriver        = "memory"
	DefaultOracleBackend      = "surrogate"
	DefaultBackoff            = "exponential"
	DefaultBackoffBaseMs      = 200
	DefaultBackoffMaxMs       = 5000
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultSurrogateDiameter  = 6.0
	DefaultSurrogateHeight    = 25.0
	DefaultInitialBoilupRatio = 0.03
	DefaultMakeUpTemperature  = 15.0
	DefaultMakeUpPressure     = 1.0
)

// Target bands of the reference run.
var (
	DefaultCaptureBand     = Band{Low: 89.00, High: 90.99}
	DefaultDualCaptureBand = Band{Low: 84.90, High: 90.99}
	DefaultFloodingBand    = Band{Low: 69.99, High: 79.99}
)

// ApplyDefaults fills every unset field. Sweep bounds default to 1x-3.5x the
// flue-gas flow.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}

	if cfg.Oracle.Backend == "" {
		cfg.Oracle.Backend = DefaultOracleBackend
	}
	retryDefaults(&cfg.Oracle.Connect, DefaultConnectAttempts)
	retryDefaults(&cfg.Report.Notify, DefaultNotifyAttempts)
	cfg.Paths = cfg.Paths.Merge(models.DefaultPaths())

	if cfg.Feed != nil {
		if cfg.Feed.FlueGasFlow == 0 {
			cfg.Feed.FlueGasFlow = DefaultFlueGasFlow
		}
		if cfg.Feed.LeanLoading == 0 {
			cfg.Feed.LeanLoading = DefaultLeanLoading
		}
		if cfg.Feed.LeanNH3 == 0 {
			cfg.Feed.LeanNH3 = DefaultLeanNH3
		}
	}
	gas := DefaultFlueGasFlow
	if cfg.Feed != nil {
		gas = cfg.Feed.FlueGasFlow
	}

	d := &cfg.Design
	if d.SolventFlow.Initial == 0 {
		d.SolventFlow.Initial = gas
	}
	if d.SolventFlow.Unit == "" {
		d.SolventFlow.Unit = "t/h"
	}
	if d.Diameter.Initial == 0 {
		d.Diameter.Initial = DefaultSurrogateDiameter
	}
	if d.Diameter.Unit == "" {
		d.Diameter.Unit = "m"
	}
	if d.Height.Initial == 0 {
		d.Height.Initial = DefaultSurrogateHeight
	}
	if d.Height.Unit == "" {
		d.Height.Unit = "m"
	}
	if d.BoilupRatio.Initial == 0 {
		d.BoilupRatio.Initial = DefaultInitialBoilupRatio
	}

	s := &cfg.SolventSweep
	if s.From == 0 && s.To == 0 {
		s.From = DefaultMinSolventPerGas * gas
		s.To = DefaultMaxSolventPerGas * gas
	}
	sweepDefaults(s, DefaultCaptureBand)
	if cfg.SolventFactor == 0 {
		cfg.SolventFactor = DefaultSolventFactor
	}
	if h := cfg.HeightSweep; h != nil {
		if h.From == 0 && h.To == 0 {
			h.From, h.To = DefaultHeightSweepFrom, DefaultHeightSweepTo
		}
		sweepDefaults(h, DefaultCaptureBand)
	}

	axisDefaults(&cfg.Dual.Diameter, DefaultDiameterStep)
	axisDefaults(&cfg.Dual.SolventFlow, DefaultSolventFlowStep)
	bandDefaults(&cfg.Dual.FloodingBand, DefaultFloodingBand)
	bandDefaults(&cfg.Dual.CaptureBand, DefaultDualCaptureBand)
	if cfg.Dual.MaxIterations == 0 {
		cfg.Dual.MaxIterations = DefaultMaxIterations
	}

	axisDefaults(&cfg.Height.Height, DefaultHeightStep)
	bandDefaults(&cfg.Height.CaptureBand, DefaultCaptureBand)
	if cfg.Height.MaxIterations == 0 {
		cfg.Height.MaxIterations = DefaultMaxIterations
	}

	axisDefaults(&cfg.Recycle.BoilupRatio, DefaultBoilupStep)
	if cfg.Recycle.LeanLoading == 0 {
		cfg.Recycle.LeanLoading = DefaultLeanLoading
		if cfg.Feed != nil {
			cfg.Recycle.LeanLoading = cfg.Feed.LeanLoading
		}
	}
	if cfg.Recycle.Tolerance == 0 {
		cfg.Recycle.Tolerance = DefaultLoadingTolerance
	}
	if cfg.Recycle.MaxIterations == 0 {
		cfg.Recycle.MaxIterations = DefaultRecycleMaxIter
	}
	if m := cfg.MakeUp; m != nil {
		if m.Temperature == 0 {
			m.Temperature = DefaultMakeUpTemperature
		}
		if m.Pressure == 0 {
			m.Pressure = DefaultMakeUpPressure
		}
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DefaultStoreDriver
	}
}

func retryDefaults(r *RetryPolicy, attempts int) {
	if r.Attempts == 0 {
		r.Attempts = attempts
	}
	if r.Backoff == "" {
		r.Backoff = DefaultBackoff
	}
	if r.BaseMs == 0 {
		r.BaseMs = DefaultBackoffBaseMs
	}
	if r.MaxMs == 0 {
		r.MaxMs = DefaultBackoffMaxMs
	}
}

func sweepDefaults(s *Sweep, band Band) {
	if s.Points == 0 {
		s.Points = DefaultSweepPoints
	}
	bandDefaults(&s.Band, band)
}

func bandDefaults(b *Band, def Band) {
	if b.Low == 0 && b.High == 0 {
		*b = def
	}
}

func axisDefaults(a *Axis, step float64) {
	if a.Step == 0 {
		a.Step = step
	}
	if a.Halving && a.MinStep == 0 {
		a.MinStep = a.Step / 8
	}
}
