package newton

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/eqpath/internal/econ"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// CondLimit is the default largest condition number accepted by a
// factorization before it is reported as singular.
const CondLimit = 1e14

// Mode selects how Jacobians are obtained.
type Mode int

const (
	// Auto uses analytic derivatives when the system provides them.
	Auto Mode = iota
	Numeric
	Analytic
)

func (m Mode) String() string {
	switch m {
	case Auto:
		return "auto"
	case Numeric:
		return "numeric"
	case Analytic:
		return "analytic"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case "numeric", "fd", "finite-difference":
		return Numeric, nil
	case "analytic", "exact":
		return Analytic, nil
	default:
		return Auto, fmt.Errorf("unknown jacobian mode %q", s)
	}
}

// JacobianProvider fills dst (len(fx)×len(x), zeroed) with the Jacobian at x.
type JacobianProvider interface {
	Jacobian(dst *mat.Dense, x, fx []float64)
}

// AnalyticJacobian adapts a closed-form Jacobian.
type AnalyticJacobian func(dst *mat.Dense, x []float64)

func (a AnalyticJacobian) Jacobian(dst *mat.Dense, x, _ []float64) { a(dst, x) }

// FiniteDifference approximates the Jacobian of F with gonum's fd package.
type FiniteDifference struct {
	F Func
	// Formula defaults to fd.Central. With fd.Forward the residual at x is
	// reused as the origin value.
	Formula fd.Formula
	// Step is the absolute perturbation; zero uses the formula's default.
	Step float64
	// Concurrent evaluates columns in parallel. F must then be safe for
	// concurrent use.
	Concurrent bool
}

func (d *FiniteDifference) Jacobian(dst *mat.Dense, x, fx []float64) {
	formula := d.Formula
	if formula.Stencil == nil {
		formula = fd.Central
	}
	settings := &fd.JacobianSettings{
		Formula:    formula,
		Step:       d.Step,
		Concurrent: d.Concurrent,
	}
	if usesOrigin(formula) && fx != nil {
		settings.OriginValue = fx
	}
	fd.Jacobian(dst, func(y, x []float64) { d.F(y, x) }, x, settings)
}

func usesOrigin(f fd.Formula) bool {
	for _, p := range f.Stencil {
		if p.Loc == 0 {
			return true
		}
	}
	return false
}

// Dense linearizes with a dense Jacobian and an LU factorization.
type Dense struct {
	Provider JacobianProvider
	// CondLimit overrides the package CondLimit when positive.
	CondLimit float64
}

func (d *Dense) Linearize(x, fx []float64) (Factor, error) {
	if len(fx) != len(x) {
		return nil, econ.Errorf("newton", econ.InvalidInput, "%d residuals for %d unknowns", len(fx), len(x))
	}
	jac := mat.NewDense(len(fx), len(x), nil)
	d.Provider.Jacobian(jac, x, fx)
	return FactorizeDense(jac, d.CondLimit)
}

// FactorizeDense LU-factorizes a square matrix, rejecting it when the
// estimated condition number exceeds limit (CondLimit when limit <= 0).
func FactorizeDense(a mat.Matrix, limit float64) (*LU, error) {
	if limit <= 0 {
		limit = CondLimit
	}
	if r, c := a.Dims(); r != c {
		return nil, econ.Errorf("newton", econ.InvalidInput, "jacobian is %dx%d", r, c)
	}
	if !finite(a) {
		return nil, econ.Errorf("newton", econ.SingularJacobian, "jacobian has non-finite entries")
	}
	f := &LU{}
	f.lu.Factorize(a)
	if logDet, _ := f.lu.LogDet(); math.IsInf(logDet, -1) {
		return nil, econ.Errorf("newton", econ.SingularJacobian, "jacobian is exactly singular")
	}
	if cond := f.lu.Cond(); math.IsNaN(cond) || cond > limit {
		return nil, econ.Errorf("newton", econ.SingularJacobian, "condition number %.3e", cond)
	}
	return f, nil
}

func finite(a mat.Matrix) bool {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// LU is a Factor backed by a gonum LU decomposition.
type LU struct {
	lu mat.LU
}

func (f *LU) SolveTo(dst, b []float64) error {
	out := mat.NewVecDense(len(dst), dst)
	rhs := mat.NewVecDense(len(b), append([]float64(nil), b...))
	if err := f.lu.SolveVecTo(out, false, rhs); err != nil {
		return err
	}
	return nil
}

// SolveMatTo writes the solution of A·dst = b into dst.
func (f *LU) SolveMatTo(dst *mat.Dense, b mat.Matrix) error {
	return f.lu.SolveTo(dst, false, b)
}

func (f *LU) Cond() float64 { return f.lu.Cond() }
