package models

import (
	"math"
	"testing"

	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/newton"
	"gonum.org/v1/gonum/mat"
)

func residualAt(sys econ.ResidualSystem, x econ.State, agg []float64) []float64 {
	dst := make([]float64, len(x))
	sys.Residual(dst, econ.Inputs{Lag: x, Cur: x, Lead: x, Aggregates: agg})
	return dst
}

func TestKnownSteadyStates(t *testing.T) {
	nk := NewNK()
	rbc := NewRBC()

	tests := []struct {
		name string
		sys  econ.ResidualSystem
		ss   econ.State
	}{
		{"lag3", NewLag3(), econ.State{0, 0, 0, 0}},
		{"nk", nk, econ.State{1, 1, 1 / nk.BetaSS, nk.BetaSS}},
		{"rbc", rbc, rbc.SteadyState()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := econ.State(residualAt(tt.sys, tt.ss, nil)).MaxAbs(); r > 1e-12 {
				t.Errorf("residual at steady state %v is %g", tt.ss, r)
			}
		})
	}
}

func TestModelsBuild(t *testing.T) {
	specs := map[string]Spec{
		"lag3":     NewLag3(),
		"nk":       NewNK(),
		"rbc":      NewRBC(),
		"aiyagari": NewAiyagari(),
	}

	for name, spec := range specs {
		m, err := spec.Model()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if m.Name != name {
			t.Errorf("expected name %s, got %s", name, m.Name)
		}
		if len(m.Guess) != m.NumVars() {
			t.Errorf("%s: guess has %d entries for %d vars", name, len(m.Guess), m.NumVars())
		}
		if (name == "aiyagari") != m.IsHeterogeneous() {
			t.Errorf("%s: heterogeneous = %v", name, m.IsHeterogeneous())
		}
	}
}

func TestRBCAnalyticDerivatives(t *testing.T) {
	r := NewRBC()
	ss := r.SteadyState()
	lag := econ.State{ss[0] * 0.97, ss[1] * 1.02, ss[2], 1.01}
	cur := econ.State{ss[0] * 1.01, ss[1] * 0.99, ss[2] * 1.03, 0.995}
	lead := econ.State{ss[0] * 1.02, ss[1], ss[2] * 0.98, 1.005}
	in := econ.Inputs{Lag: lag, Cur: cur, Lead: lead}

	n := 4
	a, b, c := mat.NewDense(n, n, nil), mat.NewDense(n, n, nil), mat.NewDense(n, n, nil)
	r.Derivatives(a, b, c, in)

	z := append(append(append([]float64(nil), lag...), cur...), lead...)
	f := func(y, z []float64) {
		r.Residual(y, econ.Inputs{Lag: z[:n], Cur: z[n : 2*n], Lead: z[2*n:]})
	}
	num := mat.NewDense(n, 3*n, nil)
	(&newton.FiniteDifference{F: f}).Jacobian(num, z, nil)

	for blk, analytic := range []*mat.Dense{a, b, c} {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				want := num.At(i, blk*n+j)
				got := analytic.At(i, j)
				if math.Abs(got-want) > 1e-6*math.Max(1, math.Abs(want)) {
					t.Errorf("block %d (%d,%d): analytic %g, numeric %g", blk, i, j, got, want)
				}
			}
		}
	}
}

func TestShockEntersLawOfMotion(t *testing.T) {
	nk := NewNK()
	ss := econ.State{1, 1, 1 / nk.BetaSS, nk.BetaSS}

	dst := make([]float64, 4)
	nk.Residual(dst, econ.Inputs{Lag: ss, Cur: ss, Lead: ss, Shocks: []float64{0.02}})
	if math.Abs(dst[3]+0.02) > 1e-14 {
		t.Errorf("expected shock residual -0.02, got %g", dst[3])
	}
}

func TestAiyagariReadsAggregates(t *testing.T) {
	a := NewAiyagari()
	x := a.Guess()

	r := residualAt(a, x, []float64{x[0], x[5]})
	if math.Abs(r[0]) > 1e-14 || math.Abs(r[5]) > 1e-14 {
		t.Errorf("market clearing residuals %g, %g", r[0], r[5])
	}
	if math.Abs(r[2]) > 1e-12 || math.Abs(r[3]) > 1e-12 {
		t.Errorf("price residuals %g, %g at the representative-agent guess", r[2], r[3])
	}

	missing := residualAt(a, x, nil)
	if !math.IsNaN(missing[0]) {
		t.Errorf("expected NaN without aggregates, got %g", missing[0])
	}

	p := a.Prices(x)
	if p.R != x[2] || p.W != x[3] {
		t.Errorf("prices %+v", p)
	}
}

func TestParams(t *testing.T) {
	specs := []Spec{NewLag3(), NewNK(), NewRBC(), NewAiyagari()}

	for _, s := range specs {
		for name, v := range s.GetParams() {
			if err := s.SetParam(name, v); err != nil {
				t.Errorf("SetParam(%q): %v", name, err)
			}
		}
		if err := s.SetParam("no_such_param", 1); err == nil {
			t.Error("expected error for unknown param")
		}
	}

	r := NewRBC()
	if err := r.SetParam("beta", 0.95); err != nil {
		t.Fatal(err)
	}
	if r.Beta != 0.95 {
		t.Errorf("expected beta 0.95, got %f", r.Beta)
	}
}
