package stack

import (
	"github.com/san-kum/eqpath/internal/compute"
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/newton"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// BlockLinearizer builds the block-tridiagonal Jacobian of a
// representative-agent stacker one period at a time. Periods are linearized
// in parallel on Backend; each writes only its own blocks.
type BlockLinearizer struct {
	Stacker *Stacker
	// Analytic, when set, supplies the period blocks in closed form.
	Analytic  econ.Differentiable
	Formula   fd.Formula
	Backend   compute.Backend
	CondLimit float64
}

func (b *BlockLinearizer) Linearize(x, fx []float64) (newton.Factor, error) {
	lower, diag, upper := b.Blocks(x)
	return FactorBlockTridiagonal(lower, diag, upper, b.CondLimit)
}

// Blocks returns the derivatives of each period's residual with respect to
// the previous, current and next period.
func (b *BlockLinearizer) Blocks(x []float64) (lower, diag, upper []*mat.Dense) {
	s := b.Stacker
	lower = make([]*mat.Dense, s.h)
	diag = make([]*mat.Dense, s.h)
	upper = make([]*mat.Dense, s.h)

	compute.Or(b.Backend).ParallelFor(s.h, func(k int) {
		in := s.inputs(x, k+1, nil)
		lower[k] = mat.NewDense(s.n, s.n, nil)
		diag[k] = mat.NewDense(s.n, s.n, nil)
		upper[k] = mat.NewDense(s.n, s.n, nil)
		if b.Analytic != nil {
			b.Analytic.Derivatives(lower[k], diag[k], upper[k], in)
			return
		}
		periodJacobian(s.model.System, in, s.n, b.Formula, lower[k], diag[k], upper[k])
	})
	return lower, diag, upper
}

// periodJacobian differentiates one period's residual with respect to the
// stencil z = (lag, cur, lead) and splits the n×3n result into blocks.
func periodJacobian(sys econ.ResidualSystem, in econ.Inputs, n int, formula fd.Formula, lag, cur, lead *mat.Dense) {
	z := make([]float64, 3*n)
	copy(z[:n], in.Lag)
	copy(z[n:2*n], in.Cur)
	copy(z[2*n:], in.Lead)

	f := func(y, z []float64) {
		sys.Residual(y, econ.Inputs{
			Lag:        z[:n],
			Cur:        z[n : 2*n],
			Lead:       z[2*n:],
			Shocks:     in.Shocks,
			Aggregates: in.Aggregates,
		})
	}

	jac := mat.NewDense(n, 3*n, nil)
	(&newton.FiniteDifference{F: f, Formula: formula}).Jacobian(jac, z, nil)

	lag.Copy(jac.Slice(0, n, 0, n))
	cur.Copy(jac.Slice(0, n, n, 2*n))
	lead.Copy(jac.Slice(0, n, 2*n, 3*n))
}

// Linearizer picks the Jacobian strategy for s. Heterogeneous models get a
// dense forward-difference Jacobian because their aggregates in every period
// depend on the whole price path.
func (s *Stacker) Linearizer(mode newton.Mode, backend compute.Backend, condLimit float64) (newton.Linearizer, error) {
	if s.model.IsHeterogeneous() {
		if mode == newton.Analytic {
			return nil, econ.Errorf("stack", econ.InvalidInput, "model %q has no analytic jacobian", s.model.Name)
		}
		return &newton.Dense{
			Provider: &newton.FiniteDifference{
				F:          s.Residual,
				Formula:    fd.Forward,
				Concurrent: true,
			},
			CondLimit: condLimit,
		}, nil
	}

	lin := &BlockLinearizer{Stacker: s, Backend: backend, CondLimit: condLimit}
	diff, ok := s.model.System.(econ.Differentiable)
	switch mode {
	case newton.Analytic:
		if !ok {
			return nil, econ.Errorf("stack", econ.InvalidInput, "model %q has no analytic jacobian", s.model.Name)
		}
		lin.Analytic = diff
	case newton.Auto:
		if ok {
			lin.Analytic = diff
		}
	}
	return lin, nil
}
