package sizing

import (
	"testing"

	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

func TestSteer(t *testing.T) {
	band := models.TargetBand{Low: 70, High: 80}
	tests := []struct {
		name   string
		resp   Response
		metric float64
		want   Direction
	}{
		{"flooding above band grows diameter", Decreasing, 95, Up},
		{"flooding below band shrinks diameter", Decreasing, 60, Down},
		{"capture above band cuts flow", Increasing, 95, Down},
		{"capture below band adds flow", Increasing, 60, Up},
		{"inside band holds", Increasing, 75, Hold},
		{"low edge is inside", Decreasing, 70, Hold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Steer(band, tt.resp, tt.metric); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}

	sp := models.Setpoint{Value: 0.12, Tolerance: 0.001}
	if got := Steer(sp, Decreasing, 0.2); got != Up {
		t.Fatalf("loading above setpoint should raise boil-up, got %s", got)
	}
	if got := Steer(sp, Decreasing, 0.1205); got != Hold {
		t.Fatalf("loading within tolerance should hold, got %s", got)
	}
}

func TestFixedStepClamps(t *testing.T) {
	v := models.DesignVariable{Name: "D", Value: 9.9, Min: 1, Max: 10}
	step := FixedStep{Size: 0.25}

	if got := step.Next(v, Up); got != 10 {
		t.Fatalf("expected clamp to 10, got %v", got)
	}
	if got := step.Next(v, Down); got != 9.65 {
		t.Fatalf("expected 9.65, got %v", got)
	}
	if got := step.Next(v, Hold); got != 9.9 {
		t.Fatalf("expected unchanged value, got %v", got)
	}

	unbounded := models.DesignVariable{Name: "F", Value: -1}
	if got := step.Next(unbounded, Down); got != -1.25 {
		t.Fatalf("unbounded variable should not clamp, got %v", got)
	}
}

func TestHalvingStep(t *testing.T) {
	s := NewHalvingStep(1, 0.25)
	v := models.DesignVariable{Name: "x", Value: 0}

	seq := []struct {
		dir  Direction
		want float64
		step float64
	}{
		{Up, 1, 1},
		{Up, 2, 1},
		{Down, 1.5, 0.5},
		{Hold, 1.5, 0.5},
		{Up, 1.75, 0.25},
		{Down, 1.5, 0.25},
	}
	for i, st := range seq {
		v.Value = s.Next(v, st.dir)
		if v.Value != st.want {
			t.Fatalf("step %d: expected %v, got %v", i, st.want, v.Value)
		}
		if s.Step() != st.step {
			t.Fatalf("step %d: expected size %v, got %v", i, st.step, s.Step())
		}
	}

	s.Reset()
	if s.Step() != 1 {
		t.Fatalf("expected reset to initial size, got %v", s.Step())
	}
}

func TestDetectCycle(t *testing.T) {
	hist := func(values ...float64) *models.History {
		h := models.NewHistory(len(values))
		for i, v := range values {
			h.Append(models.Record{Iteration: i + 1, Inputs: map[string]float64{"x": v}, Status: models.EvalConverged})
		}
		return h
	}
	tests := []struct {
		name   string
		values []float64
		want   int
	}{
		{"monotone", []float64{1, 2, 3, 4, 5}, 0},
		{"stuck", []float64{1, 2, 3, 3}, 1},
		{"two-cycle", []float64{1, 2, 3, 2, 3}, 2},
		{"three-cycle", []float64{9, 1, 2, 3, 1, 2, 3}, 3},
		{"too short", []float64{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCycle(hist(tt.values...), []string{"x"}, cycleWindow); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
