package models

import (
	"fmt"
	"math"

	"github.com/san-kum/eqpath/internal/econ"
	"gonum.org/v1/gonum/mat"
)

// RBC is the stochastic growth model with CRRA utility and inelastic labor.
// Variables are consumption C, end-of-period capital K, output Y and TFP Z.
type RBC struct {
	Sigma float64
	Beta  float64
	Alpha float64
	Delta float64
	Rho   float64
}

func NewRBC() *RBC {
	return &RBC{
		Sigma: 2.0,
		Beta:  0.99,
		Alpha: 0.33,
		Delta: 0.025,
		Rho:   0.9,
	}
}

func (r *RBC) Residual(dst []float64, in econ.Inputs) {
	lag, cur, lead := in.Lag, in.Cur, in.Lead
	C, K, Y, Z := cur[0], cur[1], cur[2], cur[3]

	ret := r.Alpha*lead[3]*math.Pow(K, r.Alpha-1) + 1 - r.Delta
	dst[0] = math.Pow(C, -r.Sigma) - r.Beta*math.Pow(lead[0], -r.Sigma)*ret
	dst[1] = C + K - Y - (1-r.Delta)*lag[1]
	dst[2] = Y - Z*math.Pow(lag[1], r.Alpha)
	dst[3] = math.Log(Z) - r.Rho*math.Log(lag[3]) - in.Shock(0)
}

func (r *RBC) Derivatives(dlag, dcur, dlead *mat.Dense, in econ.Inputs) {
	lag, cur, lead := in.Lag, in.Cur, in.Lead
	C, K, Z := cur[0], cur[1], cur[3]
	a, s := r.Alpha, r.Sigma

	ret := a*lead[3]*math.Pow(K, a-1) + 1 - r.Delta
	mu := math.Pow(lead[0], -s)

	dcur.Set(0, 0, -s*math.Pow(C, -s-1))
	dcur.Set(0, 1, -r.Beta*mu*a*(a-1)*lead[3]*math.Pow(K, a-2))
	dlead.Set(0, 0, r.Beta*s*math.Pow(lead[0], -s-1)*ret)
	dlead.Set(0, 3, -r.Beta*mu*a*math.Pow(K, a-1))

	dcur.Set(1, 0, 1)
	dcur.Set(1, 1, 1)
	dcur.Set(1, 2, -1)
	dlag.Set(1, 1, -(1 - r.Delta))

	dcur.Set(2, 2, 1)
	dcur.Set(2, 3, -math.Pow(lag[1], a))
	dlag.Set(2, 1, -Z*a*math.Pow(lag[1], a-1))

	dcur.Set(3, 3, 1/Z)
	dlag.Set(3, 3, -r.Rho/lag[3])
}

// SteadyState is the closed-form steady state.
func (r *RBC) SteadyState() econ.State {
	K := math.Pow(r.Alpha/(1/r.Beta-1+r.Delta), 1/(1-r.Alpha))
	Y := math.Pow(K, r.Alpha)
	return econ.State{Y - r.Delta*K, K, Y, 1}
}

func (r *RBC) GetParams() map[string]float64 {
	return map[string]float64{
		"sigma": r.Sigma,
		"beta":  r.Beta,
		"alpha": r.Alpha,
		"delta": r.Delta,
		"rho":   r.Rho,
	}
}

func (r *RBC) SetParam(name string, value float64) error {
	switch name {
	case "sigma":
		r.Sigma = value
	case "beta":
		r.Beta = value
	case "alpha":
		r.Alpha = value
	case "delta":
		r.Delta = value
	case "rho":
		r.Rho = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

func (r *RBC) Model() (*econ.Model, error) {
	ss := r.SteadyState()
	m := &econ.Model{
		Name:   "rbc",
		Vars:   []string{"C", "K", "Y", "Z"},
		Shocks: []string{"e_z"},
		Params: r.GetParams(),
		System: r,
		Guess:  econ.State{1.2 * ss[0], 0.8 * ss[1], 1.1 * ss[2], 1},
	}
	return m, m.Validate()
}
