package config

import (
	"fmt"
	"os"
	"strings"
)

// LoadConfig loads and parses a configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg, err := ParseConfigYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// validateConfig performs validation on the configuration
func validateConfig(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("invalid log_format: %s (must be json or text)", cfg.LogFormat)
	}

	if err := validateOracle(&cfg.Oracle); err != nil {
		return fmt.Errorf("oracle validation failed: %w", err)
	}

	if cfg.Feed != nil {
		if err := validateFeed(cfg.Feed); err != nil {
			return fmt.Errorf("feed validation failed: %w", err)
		}
	}

	if err := validateSweep("solvent_sweep", &cfg.SolventSweep); err != nil {
		return err
	}
	if cfg.SolventFactor <= 0 {
		return fmt.Errorf("solvent_factor must be positive, got %f", cfg.SolventFactor)
	}
	if cfg.HeightSweep != nil {
		if err := validateSweep("height_sweep", cfg.HeightSweep); err != nil {
			return err
		}
	}

	if err := validateStages(cfg); err != nil {
		return err
	}

	for i, s := range cfg.Topology {
		if err := validateStep("topology", i, s); err != nil {
			return err
		}
	}
	for i, s := range cfg.Finalize {
		if err := validateStep("finalize", i, s); err != nil {
			return err
		}
	}
	if cfg.MakeUp != nil && cfg.MakeUp.Pressure < 0 {
		return fmt.Errorf("make_up pressure cannot be negative, got %f", cfg.MakeUp.Pressure)
	}

	switch cfg.Store.Driver {
	case "memory":
	case "sqlite":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store: sqlite driver requires a dsn")
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be memory or sqlite)", cfg.Store.Driver)
	}

	if cfg.Report.NotifyURL != "" && !strings.HasPrefix(cfg.Report.NotifyURL, "http://") && !strings.HasPrefix(cfg.Report.NotifyURL, "https://") {
		return fmt.Errorf("report notify_url must be an http(s) URL, got %s", cfg.Report.NotifyURL)
	}
	if err := validateRetry("report notify", &cfg.Report.Notify); err != nil {
		return err
	}

	return nil
}

// validateOracle validates the simulator connection
func validateOracle(o *OracleConfig) error {
	switch o.Backend {
	case "surrogate":
	case "remote":
		if o.Address == "" {
			return fmt.Errorf("remote backend requires an address")
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be surrogate or remote)", o.Backend)
	}
	d, err := o.GetEvalTimeout()
	if err != nil {
		return fmt.Errorf("invalid eval_timeout %s: %w", o.EvalTimeout, err)
	}
	if d < 0 {
		return fmt.Errorf("eval_timeout cannot be negative, got %s", o.EvalTimeout)
	}
	return validateRetry("connect", &o.Connect)
}

// validateRetry validates a caller-side retry policy
func validateRetry(name string, r *RetryPolicy) error {
	if r.Attempts <= 0 {
		return fmt.Errorf("%s attempts must be positive, got %d", name, r.Attempts)
	}
	validBackoffs := map[string]bool{
		"exponential": true,
		"linear":      true,
		"constant":    true,
	}
	if !validBackoffs[r.Backoff] {
		return fmt.Errorf("invalid %s backoff type: %s (must be exponential, linear, or constant)", name, r.Backoff)
	}
	if r.BaseMs < 0 || r.MaxMs < 0 {
		return fmt.Errorf("%s base_ms and max_ms cannot be negative", name)
	}
	return nil
}

// validateFeed validates the feed conditions
func validateFeed(f *Feed) error {
	if f.FlueGasFlow <= 0 {
		return fmt.Errorf("flue_gas_flow must be positive, got %f", f.FlueGasFlow)
	}
	total := 0.0
	for c, x := range f.FlueGasFractions {
		if x < 0 || x > 1 {
			return fmt.Errorf("flue gas fraction %s must be between 0 and 1, got %f", c, x)
		}
		total += x
	}
	if total > 1+1e-6 {
		return fmt.Errorf("flue gas fractions sum to %f, more than 1", total)
	}
	if f.LeanNH3 <= 0 || f.LeanNH3 >= 1 {
		return fmt.Errorf("lean_nh3 must be between 0 and 1, got %f", f.LeanNH3)
	}
	if f.LeanLoading <= 0 {
		return fmt.Errorf("lean_loading must be positive, got %f", f.LeanLoading)
	}
	return nil
}

// validateSweep validates a candidate sweep
func validateSweep(name string, s *Sweep) error {
	if s.From == s.To {
		return fmt.Errorf("%s from and to must differ, got %f", name, s.From)
	}
	if s.Step != 0 {
		if (s.To-s.From)/s.Step < 0 {
			return fmt.Errorf("%s step %f does not move from %f towards %f", name, s.Step, s.From, s.To)
		}
	} else if s.Points < 2 {
		return fmt.Errorf("%s points must be at least 2, got %d", name, s.Points)
	}
	return validateBand(name+" band", s.Band)
}

// validateBand validates a target band
func validateBand(name string, b Band) error {
	if b.Low > b.High {
		return fmt.Errorf("%s: low %f exceeds high %f", name, b.Low, b.High)
	}
	return nil
}

// validateAxis validates a step policy
func validateAxis(name string, a Axis) error {
	if a.Step <= 0 {
		return fmt.Errorf("%s step must be positive, got %f", name, a.Step)
	}
	if a.Halving && (a.MinStep <= 0 || a.MinStep > a.Step) {
		return fmt.Errorf("%s min_step must be in (0, step], got %f", name, a.MinStep)
	}
	return nil
}

// validateStages validates the solver stages and the design variables
func validateStages(cfg *Config) error {
	vars := map[string]Variable{
		"solvent_flow": cfg.Design.SolventFlow,
		"diameter":     cfg.Design.Diameter,
		"height":       cfg.Design.Height,
		"boilup_ratio": cfg.Design.BoilupRatio,
	}
	for name, v := range vars {
		if v.Max > v.Min && (v.Initial < v.Min || v.Initial > v.Max) {
			return fmt.Errorf("design %s: initial %f outside [%f, %f]", name, v.Initial, v.Min, v.Max)
		}
	}

	checks := []struct {
		name string
		axis Axis
	}{
		{"dual diameter", cfg.Dual.Diameter},
		{"dual solvent_flow", cfg.Dual.SolventFlow},
		{"height", cfg.Height.Height},
		{"recycle boilup_ratio", cfg.Recycle.BoilupRatio},
	}
	for _, c := range checks {
		if err := validateAxis(c.name, c.axis); err != nil {
			return err
		}
	}
	if err := validateBand("dual flooding_band", cfg.Dual.FloodingBand); err != nil {
		return err
	}
	if err := validateBand("dual capture_band", cfg.Dual.CaptureBand); err != nil {
		return err
	}
	if err := validateBand("height capture_band", cfg.Height.CaptureBand); err != nil {
		return err
	}

	caps := map[string]int{
		"dual":    cfg.Dual.MaxIterations,
		"height":  cfg.Height.MaxIterations,
		"recycle": cfg.Recycle.MaxIterations,
	}
	for name, n := range caps {
		if n <= 0 {
			return fmt.Errorf("%s max_iterations must be positive, got %d", name, n)
		}
	}
	if cfg.Recycle.LeanLoading <= 0 {
		return fmt.Errorf("recycle lean_loading must be positive, got %f", cfg.Recycle.LeanLoading)
	}
	if cfg.Recycle.Tolerance < 0 {
		return fmt.Errorf("recycle tolerance cannot be negative, got %f", cfg.Recycle.Tolerance)
	}
	return nil
}

// validateStep validates a topology or finalize step
func validateStep(section string, i int, s Step) error {
	if s.Name == "" {
		return fmt.Errorf("%s step %d: name cannot be empty", section, i)
	}
	if len(s.Set) == 0 && len(s.Derive) == 0 && !s.Evaluate {
		return fmt.Errorf("%s step %s: nothing to set or evaluate", section, s.Name)
	}
	for p := range s.Set {
		if p == "" {
			return fmt.Errorf("%s step %s: empty path", section, s.Name)
		}
	}
	for target, sources := range s.Derive {
		if target == "" {
			return fmt.Errorf("%s step %s: empty derive target", section, s.Name)
		}
		if _, ok := s.Set[target]; ok {
			return fmt.Errorf("%s step %s: %s is both set and derived", section, s.Name, target)
		}
		if len(sources) == 0 {
			return fmt.Errorf("%s step %s: derive %s lists no outputs", section, s.Name, target)
		}
		for _, src := range sources {
			if src == "" {
				return fmt.Errorf("%s step %s: derive %s has an empty output path", section, s.Name, target)
			}
		}
	}
	return nil
}
