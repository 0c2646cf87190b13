package config

import (
	"time"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Config represents the main sizing configuration
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json or text

	Oracle OracleConfig `yaml:"oracle"`
	// Paths overrides individual simulator paths; empty fields keep the
	// reference flowsheet defaults.
	Paths models.Paths `yaml:"paths"`

	Feed          *Feed        `yaml:"feed,omitempty"`
	Design        Design       `yaml:"design"`
	SolventSweep  Sweep        `yaml:"solvent_sweep"`
	SolventFactor float64      `yaml:"solvent_factor"`
	HeightSweep   *Sweep       `yaml:"height_sweep,omitempty"`
	Dual          DualStage    `yaml:"dual"`
	Height        HeightStage  `yaml:"height"`
	Topology      []Step       `yaml:"topology,omitempty"`
	MakeUp        *MakeUp      `yaml:"make_up,omitempty"`
	Recycle       RecycleStage `yaml:"recycle"`
	Finalize      []Step       `yaml:"finalize,omitempty"`
	Strict        bool         `yaml:"strict"`

	Store  Store  `yaml:"store"`
	Report Report `yaml:"report"`
}

// OracleConfig selects and tunes the simulator connection
type OracleConfig struct {
	Backend     string      `yaml:"backend"` // surrogate or remote
	Address     string      `yaml:"address"`
	EvalTimeout string      `yaml:"eval_timeout"` // e.g. "30m"; empty disables
	Connect     RetryPolicy `yaml:"connect"`
}

// RetryPolicy represents caller-side retry configuration
type RetryPolicy struct {
	Attempts int    `yaml:"attempts"`
	Backoff  string `yaml:"backoff"` // exponential, linear, constant
	BaseMs   int    `yaml:"base_ms"`
	MaxMs    int    `yaml:"max_ms"`
}

// Feed represents flue-gas and lean-solvent conditions
type Feed struct {
	FlueGasFlow      float64            `yaml:"flue_gas_flow"` // t/h
	FlueGasFractions map[string]float64 `yaml:"flue_gas_fractions"`
	LeanLoading      float64            `yaml:"lean_loading"` // mol CO2 / mol NH3
	LeanNH3          float64            `yaml:"lean_nh3"`     // mass fraction
}

// Variable represents the start value and soft bounds of a design variable
type Variable struct {
	Initial float64 `yaml:"initial"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Unit    string  `yaml:"unit,omitempty"`
}

// Design holds the design variables adjusted by the stages
type Design struct {
	SolventFlow Variable `yaml:"solvent_flow"`
	Diameter    Variable `yaml:"diameter"`
	Height      Variable `yaml:"height"`
	BoilupRatio Variable `yaml:"boilup_ratio"`
}

// Band represents an inclusive target interval
type Band struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Sweep represents an evenly spaced candidate scan
type Sweep struct {
	From   float64 `yaml:"from"`
	To     float64 `yaml:"to"`
	Points int     `yaml:"points"`
	Step   float64 `yaml:"step,omitempty"` // replaces points when set
	Band   Band    `yaml:"band"`
}

// Axis represents the step policy of one variable
type Axis struct {
	Step    float64 `yaml:"step"`
	Halving bool    `yaml:"halving,omitempty"`
	MinStep float64 `yaml:"min_step,omitempty"`
}

// DualStage represents the diameter/flowrate stage
type DualStage struct {
	Diameter      Axis `yaml:"diameter"`
	SolventFlow   Axis `yaml:"solvent_flow"`
	FloodingBand  Band `yaml:"flooding_band"`
	CaptureBand   Band `yaml:"capture_band"`
	MaxIterations int  `yaml:"max_iterations"`
}

// HeightStage represents the packing-height stage
type HeightStage struct {
	Height        Axis `yaml:"height"`
	CaptureBand   Band `yaml:"capture_band"`
	MaxIterations int  `yaml:"max_iterations"`
}

// RecycleStage represents the boil-up ratio stage
type RecycleStage struct {
	BoilupRatio   Axis    `yaml:"boilup_ratio"`
	LeanLoading   float64 `yaml:"lean_loading"`
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
}

// Step represents a named set of input writes, optionally evaluated
type Step struct {
	Name string             `yaml:"name"`
	Set  map[string]float64 `yaml:"set"`
	// Derive writes each target path with the sum of the listed output
	// paths of the latest evaluation.
	Derive   map[string][]string `yaml:"derive,omitempty"`
	Evaluate bool                `yaml:"evaluate"`
}

// MakeUp enables the NH3 make-up stream written after the topology steps:
// its flow replaces the ammonia lost with the clean gas and the CO2 product.
type MakeUp struct {
	Temperature float64 `yaml:"temperature"` // C
	Pressure    float64 `yaml:"pressure"`    // bar
}

// Store represents run persistence
type Store struct {
	Driver string `yaml:"driver"` // memory or sqlite
	DSN    string `yaml:"dsn"`
}

// Report represents output reporting
type Report struct {
	Dir       string      `yaml:"dir,omitempty"`
	Plots     bool        `yaml:"plots"`
	NotifyURL string      `yaml:"notify_url,omitempty"`
	Notify    RetryPolicy `yaml:"notify"`
}

// GetEvalTimeout parses the evaluation timeout; zero means none.
func (o *OracleConfig) GetEvalTimeout() (time.Duration, error) {
	if o.EvalTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(o.EvalTimeout)
}
