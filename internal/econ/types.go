package econ

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MaxAbs returns the infinity norm. NaN entries make the norm +Inf.
func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		if math.IsNaN(v) {
			return math.Inf(1)
		}
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

type Path []State

func (p Path) Clone() Path {
	c := make(Path, len(p))
	for i, s := range p {
		c[i] = s.Clone()
	}
	return c
}

// Series returns the values of variable idx over all periods.
func (p Path) Series(idx int) []float64 {
	out := make([]float64, len(p))
	for t, s := range p {
		if idx < len(s) {
			out[t] = s[idx]
		}
	}
	return out
}

// Truncate returns the first n periods of the path, or the whole path when it
// is shorter.
func (p Path) Truncate(n int) Path {
	if n >= len(p) {
		return p
	}
	return p[:n]
}

// Shock is a named disturbance. When Name is one of the model's shocks the
// value is an innovation in period 1; when it is a variable the value is added
// to that variable in period 0.
type Shock struct {
	Name  string
	Value float64
}

// Inputs is everything one period's residual depends on.
type Inputs struct {
	Lag, Cur, Lead State
	// Shocks holds the period's innovations; nil outside the shocked period.
	Shocks []float64
	// Aggregates holds the household block's aggregates for the period; nil
	// for representative-agent models.
	Aggregates []float64
}

func (in Inputs) Shock(i int) float64 {
	if i < len(in.Shocks) {
		return in.Shocks[i]
	}
	return 0
}

type ResidualSystem interface {
	// Residual writes one residual per variable into dst. It must not retain
	// or modify the slices in in and must be safe for concurrent use.
	Residual(dst []float64, in Inputs)
}

type ResidualFunc func(dst []float64, in Inputs)

func (f ResidualFunc) Residual(dst []float64, in Inputs) { f(dst, in) }

// Differentiable systems provide analytic derivatives of the period residual
// with respect to the lagged, current and lead states. Each block is n×n and
// zeroed on entry.
type Differentiable interface {
	ResidualSystem
	Derivatives(lag, cur, lead *mat.Dense, in Inputs)
}

// Configurable is implemented by model parameter sets.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Diagnostics is informational output of a solve.
type Diagnostics struct {
	Iterations    int     `json:"iterations"`
	Residual      float64 `json:"residual"`
	Horizon       int     `json:"horizon"`
	Attempts      int     `json:"attempts"`
	TerminalGap   float64 `json:"terminal_gap"`
	ResidualEvals int     `json:"residual_evals"`
	JacobianEvals int     `json:"jacobian_evals"`
}
