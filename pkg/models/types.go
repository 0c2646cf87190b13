package models

import (
	"fmt"
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/utils"
)

// EvalStatus is the convergence flag attached to every oracle evaluation.
type EvalStatus string

const (
	EvalConverged    EvalStatus = "converged"
	EvalNonConverged EvalStatus = "non_converged"
	EvalUnavailable  EvalStatus = "unavailable"
)

// DesignVariable is a named scalar input written to the oracle at Path.
// Min and Max are soft bounds; Max <= Min means unbounded.
type DesignVariable struct {
	Name  string  `json:"name" yaml:"name"`
	Path  string  `json:"path" yaml:"path"`
	Value float64 `json:"value" yaml:"value"`
	Min   float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max   float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Unit  string  `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Bounded reports whether the variable carries soft bounds.
func (v DesignVariable) Bounded() bool {
	return v.Max > v.Min
}

// Clamp limits x to the soft bounds of the variable.
func (v DesignVariable) Clamp(x float64) float64 {
	if !v.Bounded() {
		return x
	}
	return utils.ClampFloat64(x, v.Min, v.Max)
}

// WithValue returns a copy of v holding x.
func (v DesignVariable) WithValue(x float64) DesignVariable {
	v.Value = x
	return v
}

func (v DesignVariable) String() string {
	if v.Unit == "" {
		return fmt.Sprintf("%s=%g", v.Name, v.Value)
	}
	return fmt.Sprintf("%s=%g %s", v.Name, v.Value, v.Unit)
}

// TargetBand is an inclusive acceptance interval [Low, High].
type TargetBand struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Contains reports whether x lies inside the band, bounds included.
func (b TargetBand) Contains(x float64) bool {
	return x >= b.Low && x <= b.High
}

// Compare returns -1 below the band, +1 above it and 0 inside.
func (b TargetBand) Compare(x float64) int {
	switch {
	case x < b.Low:
		return -1
	case x > b.High:
		return 1
	default:
		return 0
	}
}

// Distance is zero inside the band and the gap to the nearest bound outside.
func (b TargetBand) Distance(x float64) float64 {
	switch b.Compare(x) {
	case -1:
		return b.Low - x
	case 1:
		return x - b.High
	default:
		return 0
	}
}

func (b TargetBand) String() string {
	return fmt.Sprintf("[%g, %g]", b.Low, b.High)
}

// Setpoint is a symmetric acceptance test |x - Value| <= Tolerance.
type Setpoint struct {
	Value     float64 `json:"value" yaml:"value"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

func (s Setpoint) Contains(x float64) bool {
	return math.Abs(x-s.Value) <= s.Tolerance
}

func (s Setpoint) Compare(x float64) int {
	if s.Contains(x) {
		return 0
	}
	if x > s.Value {
		return 1
	}
	return -1
}

func (s Setpoint) Distance(x float64) float64 {
	return math.Max(0, math.Abs(x-s.Value)-s.Tolerance)
}

func (s Setpoint) String() string {
	return fmt.Sprintf("%g±%g", s.Value, s.Tolerance)
}

// Record is one entry of a search history: the design variable values written
// before an evaluation, the metrics derived from it and its convergence flag.
type Record struct {
	Iteration int                `json:"iteration"`
	Inputs    map[string]float64 `json:"inputs"`
	Metrics   map[string]float64 `json:"metrics"`
	Status    EvalStatus         `json:"status"`
}

// Input returns the named input value and whether it was recorded.
func (r Record) Input(name string) (float64, bool) {
	v, ok := r.Inputs[name]
	return v, ok
}

// Metric returns the named metric value and whether it was recorded.
func (r Record) Metric(name string) (float64, bool) {
	v, ok := r.Metrics[name]
	return v, ok
}

// Converged reports whether the record came from a converged evaluation.
func (r Record) Converged() bool {
	return r.Status == EvalConverged
}

func (r Record) String() string {
	return fmt.Sprintf("#%d %s inputs=%s metrics=%s", r.Iteration, r.Status, formatValues(r.Inputs), formatValues(r.Metrics))
}

func formatValues(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := "{"
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s:%.4g", k, m[k])
	}
	return out + "}"
}

// History is an append-only sequence of records for one solver run.
type History struct {
	records []Record
}

// NewHistory returns an empty history with room for n records.
func NewHistory(n int) *History {
	if n < 0 {
		n = 0
	}
	return &History{records: make([]Record, 0, n)}
}

// Append adds a record. Maps are copied so later mutation by the caller does
// not leak into the history.
func (h *History) Append(r Record) {
	r.Inputs = copyValues(r.Inputs)
	r.Metrics = copyValues(r.Metrics)
	h.records = append(h.records, r)
}

// Len returns the number of records.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.records)
}

// Records returns a copy of the records in insertion order.
func (h *History) Records() []Record {
	if h == nil {
		return nil
	}
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Last returns the most recent record.
func (h *History) Last() (Record, bool) {
	if h.Len() == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}

// LastConverged returns the most recent record from a converged evaluation.
func (h *History) LastConverged() (Record, bool) {
	for i := h.Len() - 1; i >= 0; i-- {
		if h.records[i].Converged() {
			return h.records[i], true
		}
	}
	return Record{}, false
}

// Closest returns the converged record whose metric is nearest to the target
// according to dist. Ties keep the earliest record.
func (h *History) Closest(metric string, dist func(float64) float64) (Record, bool) {
	best := -1
	bestDist := math.Inf(1)
	for i := 0; i < h.Len(); i++ {
		r := h.records[i]
		if !r.Converged() {
			continue
		}
		v, ok := r.Metrics[metric]
		if !ok {
			continue
		}
		if d := dist(v); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Record{}, false
	}
	return h.records[best], true
}

// Series extracts the named input or metric across all records. Records that
// do not carry the name are skipped.
func (h *History) Series(name string) []float64 {
	out := make([]float64, 0, h.Len())
	for i := 0; i < h.Len(); i++ {
		r := h.records[i]
		if v, ok := r.Inputs[name]; ok {
			out = append(out, v)
			continue
		}
		if v, ok := r.Metrics[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

func copyValues(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
