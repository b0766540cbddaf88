// Package models contains the built-in economies. Each is a parameter struct
// implementing econ.ResidualSystem and econ.Configurable, with a Model method
// that assembles the econ.Model:
//
//	m, err := models.NewNK().Model()
//
// Available models:
//
//   - lag3: nonlinear AR(3) with a forward-looking sum (steady state zero)
//   - nk: New Keynesian model with a discount-factor shock e_beta
//   - rbc: real business cycle model with TFP shock e_z and analytic Jacobian
//   - aiyagari: heterogeneous-household production economy with TFP shock e_z
package models

import "github.com/san-kum/eqpath/internal/econ"

// Spec is a configurable model definition.
type Spec interface {
	econ.Configurable
	Model() (*econ.Model, error)
}

var (
	_ Spec = (*Lag3)(nil)
	_ Spec = (*NK)(nil)
	_ Spec = (*RBC)(nil)
	_ Spec = (*Aiyagari)(nil)

	_ econ.Differentiable = (*RBC)(nil)
)
