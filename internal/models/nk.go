package models

import (
	"fmt"
	"math"

	"github.com/san-kum/eqpath/internal/econ"
)

// NK is a small nonlinear New Keynesian economy with a discount-factor shock.
// Variables are output y, gross inflation pi, the gross policy rate R and the
// discount factor beta.
type NK struct {
	Sigma   float64
	BetaSS  float64
	Kappa   float64
	PhiPi   float64
	PhiY    float64
	RhoR    float64
	RhoBeta float64
}

func NewNK() *NK {
	return &NK{
		Sigma:   2.0,
		BetaSS:  0.98,
		Kappa:   0.1,
		PhiPi:   1.5,
		PhiY:    0.1,
		RhoR:    0.5,
		RhoBeta: 0.8,
	}
}

func (k *NK) Residual(dst []float64, in econ.Inputs) {
	lag, cur, lead := in.Lag, in.Cur, in.Lead
	y, pi, R, beta := cur[0], cur[1], cur[2], cur[3]
	rss := 1 / k.BetaSS

	// Euler equation
	dst[0] = math.Pow(y, -k.Sigma) - beta*R/lead[1]*math.Pow(lead[0], -k.Sigma)
	// Phillips curve
	dst[1] = (pi - 1) - k.BetaSS*(lead[1]-1) - k.Kappa*(y-1)
	// Taylor rule with smoothing
	target := rss * math.Pow(pi, k.PhiPi) * math.Pow(y, k.PhiY)
	dst[2] = R - math.Pow(lag[2], k.RhoR)*math.Pow(target, 1-k.RhoR)
	dst[3] = math.Log(beta) - (1-k.RhoBeta)*math.Log(k.BetaSS) - k.RhoBeta*math.Log(lag[3]) - in.Shock(0)
}

func (k *NK) GetParams() map[string]float64 {
	return map[string]float64{
		"sigma":    k.Sigma,
		"beta":     k.BetaSS,
		"kappa":    k.Kappa,
		"phi_pi":   k.PhiPi,
		"phi_y":    k.PhiY,
		"rho_r":    k.RhoR,
		"rho_beta": k.RhoBeta,
	}
}

func (k *NK) SetParam(name string, value float64) error {
	switch name {
	case "sigma":
		k.Sigma = value
	case "beta":
		k.BetaSS = value
	case "kappa":
		k.Kappa = value
	case "phi_pi":
		k.PhiPi = value
	case "phi_y":
		k.PhiY = value
	case "rho_r":
		k.RhoR = value
	case "rho_beta":
		k.RhoBeta = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

func (k *NK) Model() (*econ.Model, error) {
	m := &econ.Model{
		Name:   "nk",
		Vars:   []string{"y", "pi", "R", "beta"},
		Shocks: []string{"e_beta"},
		Params: k.GetParams(),
		System: k,
		Guess:  econ.State{1.1, 1.01, 1.0, 0.97},
	}
	return m, m.Validate()
}
