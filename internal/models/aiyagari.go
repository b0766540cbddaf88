package models

import (
	"fmt"
	"math"

	"github.com/san-kum/eqpath/internal/compute"
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/hetagent"
)

// Aiyagari is a production economy whose capital is supplied by households
// facing uninsured income risk. Variables are capital K, TFP Z, the net return
// r, the wage w, output Y and aggregate consumption C. Household assets and
// consumption enter through the household block's aggregates.
type Aiyagari struct {
	Alpha float64
	Delta float64
	RhoZ  float64

	Beta  float64
	Sigma float64

	RhoE      float64
	SpreadE   float64
	NumIncome int

	AssetMin  float64
	AssetMax  float64
	NumAssets int
	Curvature float64

	Weighting hetagent.Weighting
	Backend   compute.Backend
}

func NewAiyagari() *Aiyagari {
	return &Aiyagari{
		Alpha:     0.36,
		Delta:     0.08,
		RhoZ:      0.8,
		Beta:      0.96,
		Sigma:     2.0,
		RhoE:      0.9,
		SpreadE:   0.4,
		NumIncome: 3,
		AssetMin:  0,
		AssetMax:  150,
		NumAssets: 60,
		Curvature: 2,
	}
}

func (a *Aiyagari) Residual(dst []float64, in econ.Inputs) {
	lag, cur := in.Lag, in.Cur
	K, Z, r, w, Y, C := cur[0], cur[1], cur[2], cur[3], cur[4], cur[5]
	assets, cons := math.NaN(), math.NaN()
	if len(in.Aggregates) >= 2 {
		assets, cons = in.Aggregates[0], in.Aggregates[1]
	}

	// Capital installed last period is rented out this period.
	kl := lag[0]
	dst[0] = K - assets
	dst[1] = math.Log(Z) - a.RhoZ*math.Log(lag[1]) - in.Shock(0)
	dst[2] = r - (a.Alpha*Z*math.Pow(kl, a.Alpha-1) - a.Delta)
	dst[3] = w - (1-a.Alpha)*Z*math.Pow(kl, a.Alpha)
	dst[4] = Y - Z*math.Pow(kl, a.Alpha)
	dst[5] = C - cons
}

func (a *Aiyagari) Prices(x econ.State) hetagent.Prices {
	return hetagent.Prices{R: x[2], W: x[3]}
}

func (a *Aiyagari) Household() (*hetagent.Household, error) {
	assets, err := hetagent.NewAssetGrid(a.AssetMin, a.AssetMax, a.NumAssets, a.Curvature)
	if err != nil {
		return nil, err
	}
	income, P, pi, err := hetagent.Rouwenhorst(a.NumIncome, a.RhoE, a.SpreadE)
	if err != nil {
		return nil, err
	}
	grid, err := hetagent.NewGrid(assets, income, P, pi)
	if err != nil {
		return nil, err
	}

	h := hetagent.NewHousehold(grid, a.Beta, a.Sigma)
	h.Weighting = a.Weighting
	if a.Backend != nil {
		h.Backend = a.Backend
	}
	return h, nil
}

// Guess is the representative-agent capital stock at a return slightly
// below the rate of time preference.
func (a *Aiyagari) Guess() econ.State {
	r := 0.035
	K := math.Pow(a.Alpha/(r+a.Delta), 1/(1-a.Alpha))
	Y := math.Pow(K, a.Alpha)
	return econ.State{K, 1, r, (1 - a.Alpha) * Y, Y, Y - a.Delta*K}
}

func (a *Aiyagari) GetParams() map[string]float64 {
	return map[string]float64{
		"alpha":     a.Alpha,
		"delta":     a.Delta,
		"rho_z":     a.RhoZ,
		"beta":      a.Beta,
		"sigma":     a.Sigma,
		"rho_e":     a.RhoE,
		"spread_e":  a.SpreadE,
		"n_income":  float64(a.NumIncome),
		"a_min":     a.AssetMin,
		"a_max":     a.AssetMax,
		"n_assets":  float64(a.NumAssets),
		"curvature": a.Curvature,
		"weighting": float64(a.Weighting),
	}
}

func (a *Aiyagari) SetParam(name string, value float64) error {
	switch name {
	case "alpha":
		a.Alpha = value
	case "delta":
		a.Delta = value
	case "rho_z":
		a.RhoZ = value
	case "beta":
		a.Beta = value
	case "sigma":
		a.Sigma = value
	case "rho_e":
		a.RhoE = value
	case "spread_e":
		a.SpreadE = value
	case "n_income":
		a.NumIncome = int(value)
	case "a_min":
		a.AssetMin = value
	case "a_max":
		a.AssetMax = value
	case "n_assets":
		a.NumAssets = int(value)
	case "curvature":
		a.Curvature = value
	case "weighting":
		a.Weighting = hetagent.Weighting(value)
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// Model builds the model. Household parameters are read here, so later
// parameter changes need a new model.
func (a *Aiyagari) Model() (*econ.Model, error) {
	hh, err := a.Household()
	if err != nil {
		return nil, err
	}
	m := &econ.Model{
		Name:   "aiyagari",
		Vars:   []string{"K", "Z", "r", "w", "Y", "C"},
		Shocks: []string{"e_z"},
		Params: a.GetParams(),
		System: a,
		Guess:  a.Guess(),
		Hetero: &econ.Heterogeneity{
			Household: hh,
			Prices:    a.Prices,
		},
	}
	return m, m.Validate()
}
