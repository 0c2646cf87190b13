package sizing

import (
	"math"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

// Direction is the move decided for one design variable.
type Direction int

const (
	Down Direction = -1
	Hold Direction = 0
	Up   Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "hold"
	}
}

// Response describes how a metric moves when its variable increases.
type Response int

const (
	// Increasing: metric grows with the variable (capture ratio vs flow).
	Increasing Response = 1
	// Decreasing: metric shrinks as the variable grows (flooding vs
	// diameter, lean loading vs boil-up ratio).
	Decreasing Response = -1
)

// Target is an acceptance test on a metric. models.TargetBand and
// models.Setpoint implement it.
type Target interface {
	Contains(x float64) bool
	// Compare returns -1 below, +1 above and 0 inside the target.
	Compare(x float64) int
	// Distance is zero inside the target.
	Distance(x float64) float64
	String() string
}

// Steer decides the direction that moves a metric towards its target.
func Steer(t Target, r Response, metric float64) Direction {
	return Direction(-t.Compare(metric) * int(r))
}

// StepPolicy turns a direction into the next value of a variable. Policies
// are owned by one axis of one solver; stateful policies may implement
// Reset, which the solver calls before each run.
type StepPolicy interface {
	Next(v models.DesignVariable, dir Direction) float64
}

type resetter interface {
	Reset()
}

// FixedStep moves by a constant amount and clamps to the variable's soft
// bounds.
type FixedStep struct {
	Size float64
}

func (s FixedStep) Next(v models.DesignVariable, dir Direction) float64 {
	if dir == Hold {
		return v.Value
	}
	return v.Clamp(v.Value + float64(dir)*s.Size)
}

// HalvingStep halves its step each time the direction reverses, down to
// MinSize, which turns the fixed-step walk into a bracketing search.
type HalvingStep struct {
	Size    float64
	MinSize float64

	current float64
	last    Direction
}

// NewHalvingStep creates a halving policy starting at size.
func NewHalvingStep(size, minSize float64) *HalvingStep {
	return &HalvingStep{Size: size, MinSize: minSize}
}

func (s *HalvingStep) Reset() {
	s.current = 0
	s.last = Hold
}

func (s *HalvingStep) Next(v models.DesignVariable, dir Direction) float64 {
	if s.current == 0 {
		s.current = s.Size
	}
	if dir == Hold {
		return v.Value
	}
	if s.last != Hold && dir != s.last {
		s.current = math.Max(s.current/2, s.MinSize)
	}
	s.last = dir
	return v.Clamp(v.Value + float64(dir)*s.current)
}

// Step returns the current step size.
func (s *HalvingStep) Step() float64 {
	if s.current == 0 {
		return s.Size
	}
	return s.current
}
