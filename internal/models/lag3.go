package models

import (
	"fmt"

	"github.com/san-kum/eqpath/internal/econ"
)

// Lag3 is a nonlinear third-order autoregression carried as three
// predetermined states, plus a forward-looking discounted sum of its level:
//
//	y_t  = (φ1 y_{t-1} + φ2 y_{t-2} + φ3 y_{t-3}) / (1 + γ y_{t-1}²)
//	p_t  = y_t + δ p_{t+1}
//
// Its steady state is zero.
type Lag3 struct {
	Phi1     float64
	Phi2     float64
	Phi3     float64
	Gamma    float64
	Discount float64
}

func NewLag3() *Lag3 {
	return &Lag3{
		Phi1:     0.6,
		Phi2:     0.3,
		Phi3:     -0.1,
		Gamma:    2.0,
		Discount: 0.95,
	}
}

func (l *Lag3) Residual(dst []float64, in econ.Inputs) {
	lag, cur, lead := in.Lag, in.Cur, in.Lead

	y := (l.Phi1*lag[0] + l.Phi2*lag[1] + l.Phi3*lag[2]) / (1 + l.Gamma*lag[0]*lag[0])

	dst[0] = cur[0] - y
	dst[1] = cur[1] - lag[0]
	dst[2] = cur[2] - lag[1]
	dst[3] = cur[3] - cur[0] - l.Discount*lead[3]
}

func (l *Lag3) GetParams() map[string]float64 {
	return map[string]float64{
		"phi1":     l.Phi1,
		"phi2":     l.Phi2,
		"phi3":     l.Phi3,
		"gamma":    l.Gamma,
		"discount": l.Discount,
	}
}

func (l *Lag3) SetParam(name string, value float64) error {
	switch name {
	case "phi1":
		l.Phi1 = value
	case "phi2":
		l.Phi2 = value
	case "phi3":
		l.Phi3 = value
	case "gamma":
		l.Gamma = value
	case "discount":
		l.Discount = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

func (l *Lag3) Model() (*econ.Model, error) {
	m := &econ.Model{
		Name:   "lag3",
		Vars:   []string{"y", "y_l1", "y_l2", "p"},
		Params: l.GetParams(),
		System: l,
		Guess:  econ.State{0.01, 0.01, 0.01, 0.01},
	}
	return m, m.Validate()
}
