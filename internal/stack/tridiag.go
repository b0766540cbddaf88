package stack

import (
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/newton"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BlockFactor is a block LU factorization of a block-tridiagonal matrix with
// H diagonal blocks of size n. Row k holds lower[k] (k > 0), diag[k] and
// upper[k] (k < H-1).
//
// The forward sweep computes M_k = D_k - L_k G_{k-1} and G_k = M_k⁻¹ U_k;
// solving then needs only the n×n factors of M_k.
type BlockFactor struct {
	n, h  int
	lower []*mat.Dense
	gain  []*mat.Dense
	lu    []*newton.LU
}

func FactorBlockTridiagonal(lower, diag, upper []*mat.Dense, condLimit float64) (*BlockFactor, error) {
	h := len(diag)
	if h == 0 || len(lower) != h || len(upper) != h {
		return nil, econ.Errorf("stack", econ.InvalidInput, "block counts %d/%d/%d", len(lower), h, len(upper))
	}
	n, _ := diag[0].Dims()

	f := &BlockFactor{
		n:     n,
		h:     h,
		lower: lower,
		gain:  make([]*mat.Dense, h),
		lu:    make([]*newton.LU, h),
	}

	var lg mat.Dense
	for k := 0; k < h; k++ {
		m := mat.DenseCopyOf(diag[k])
		if k > 0 {
			lg.Mul(lower[k], f.gain[k-1])
			m.Sub(m, &lg)
		}

		lu, err := newton.FactorizeDense(m, condLimit)
		if err != nil {
			return nil, econ.Errorf("stack", econ.FlagOf(err), "period %d: %v", k+1, err)
		}
		f.lu[k] = lu

		if k < h-1 {
			g := mat.NewDense(n, n, nil)
			if err := lu.SolveMatTo(g, upper[k]); err != nil {
				return nil, econ.Errorf("stack", econ.SingularJacobian, "period %d: %v", k+1, err)
			}
			f.gain[k] = g
		}
	}
	return f, nil
}

func (f *BlockFactor) SolveTo(dst, b []float64) error {
	n := f.n
	rhs := make([]float64, n)
	var tmp mat.VecDense

	for k := 0; k < f.h; k++ {
		copy(rhs, b[k*n:(k+1)*n])
		if k > 0 {
			tmp.MulVec(f.lower[k], mat.NewVecDense(n, dst[(k-1)*n:k*n]))
			floats.Sub(rhs, tmp.RawVector().Data)
		}
		if err := f.lu[k].SolveTo(dst[k*n:(k+1)*n], rhs); err != nil {
			return econ.Errorf("stack", econ.SingularJacobian, "period %d: %v", k+1, err)
		}
	}

	for k := f.h - 2; k >= 0; k-- {
		tmp.MulVec(f.gain[k], mat.NewVecDense(n, dst[(k+1)*n:(k+2)*n]))
		floats.Sub(dst[k*n:(k+1)*n], tmp.RawVector().Data)
	}
	return nil
}
