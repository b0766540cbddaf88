package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/eqpath/internal/econ"
)

// decay is x_t = 0.5^t around a zero steady state, with a hump in period 1.
func decay() econ.Path {
	p := econ.Path{{0.4, 1}, {1, 0.5}}
	for t := 2; t <= 8; t++ {
		p = append(p, econ.State{math.Pow(0.5, float64(t-1)), math.Pow(0.5, float64(t))})
	}
	return p
}

func TestPeakDeviation(t *testing.T) {
	stst := econ.State{0, 0}
	got := Evaluate(econ.Path{{0.1, 0}, {-0.3, 0}, {0.2, 0}}, stst, NewPeakDeviation("y", 0))
	if got["peak_y"] != -0.3 {
		t.Errorf("expected peak -0.3, got %f", got["peak_y"])
	}
}

func TestHalfLife(t *testing.T) {
	stst := econ.State{0, 0}
	got := Evaluate(decay(), stst, NewHalfLife("a", 0), NewHalfLife("b", 1))

	// a peaks at t=1 with 1 and reaches 0.5 at t=2.
	if got["half_life_a"] != 1 {
		t.Errorf("expected half-life 1 for a, got %f", got["half_life_a"])
	}
	// b peaks at t=0 with 1 and reaches 0.5 at t=1.
	if got["half_life_b"] != 1 {
		t.Errorf("expected half-life 1 for b, got %f", got["half_life_b"])
	}
}

func TestHalfLifeEdgeCases(t *testing.T) {
	stst := econ.State{0}
	flat := Evaluate(econ.Path{{0}, {0}}, stst, NewHalfLife("x", 0))
	if flat["half_life_x"] != 0 {
		t.Errorf("expected 0 for a flat path, got %f", flat["half_life_x"])
	}

	persistent := Evaluate(econ.Path{{1}, {0.9}, {0.8}}, stst, NewHalfLife("x", 0))
	if persistent["half_life_x"] != -1 {
		t.Errorf("expected -1 when the deviation never halves, got %f", persistent["half_life_x"])
	}
}

func TestTerminalGapAndStability(t *testing.T) {
	stst := econ.State{1, 1}
	p := econ.Path{{1.5, 1}, {1.01, 1}, {1, 1.001}}

	got := Evaluate(p, stst, NewTerminalGap(), NewStability(0.02))
	if math.Abs(got["terminal_gap"]-0.001) > 1e-12 {
		t.Errorf("expected terminal gap 0.001, got %g", got["terminal_gap"])
	}
	if math.Abs(got["stability"]-2.0/3.0) > 1e-12 {
		t.Errorf("expected stability 2/3, got %f", got["stability"])
	}
}

func TestEvaluateResets(t *testing.T) {
	m := NewPeakDeviation("y", 0)
	stst := econ.State{0}
	Evaluate(econ.Path{{5}}, stst, m)
	got := Evaluate(econ.Path{{1}}, stst, m)
	if got["peak_y"] != 1 {
		t.Errorf("expected reset before evaluation, got %f", got["peak_y"])
	}
}

func TestDefault(t *testing.T) {
	ms := Default([]string{"y", "pi"}, 1e-6)
	if len(ms) != 6 {
		t.Fatalf("expected 6 metrics, got %d", len(ms))
	}
	seen := map[string]bool{}
	for _, m := range ms {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
	}
}
