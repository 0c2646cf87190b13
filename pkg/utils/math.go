package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// ClampFloat64 clamps a float64 value between min and max
func ClampFloat64(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Round rounds a float64 to the specified number of decimal places
func Round(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}

// Linspace returns n evenly spaced values from start to stop inclusive.
// start may be greater than stop for a descending sequence.
func Linspace(start, stop float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("linspace needs at least 2 points, got %d", n)
	}
	if math.IsNaN(start) || math.IsNaN(stop) || math.IsInf(start, 0) || math.IsInf(stop, 0) {
		return nil, fmt.Errorf("linspace bounds must be finite, got %v..%v", start, stop)
	}
	return floats.Span(make([]float64, n), start, stop), nil
}

// Arange returns the values start, start+step, ... up to and including stop
// when stop lies on the grid. Each value is computed as start+i*step so no
// error accumulates along the sequence.
func Arange(start, stop, step float64) ([]float64, error) {
	if step == 0 || math.IsNaN(step) {
		return nil, fmt.Errorf("arange step must be non-zero")
	}
	if (stop-start)/step < 0 {
		return nil, fmt.Errorf("arange step %v does not move from %v towards %v", step, start, stop)
	}
	n := int(math.Floor((stop-start)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out, nil
}
