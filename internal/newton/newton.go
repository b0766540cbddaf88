package newton

import (
	"errors"

	"github.com/san-kum/eqpath/internal/econ"
	"gonum.org/v1/gonum/floats"
)

// Func writes the residual at x into dst. It must not modify x.
type Func func(dst, x []float64)

// Factor is a factorized Jacobian.
type Factor interface {
	// SolveTo writes the solution of J·dst = b into dst.
	SolveTo(dst, b []float64) error
}

// Linearizer builds a Factor at x, where fx is the residual at x.
type Linearizer interface {
	Linearize(x, fx []float64) (Factor, error)
}

type LinearizerFunc func(x, fx []float64) (Factor, error)

func (f LinearizerFunc) Linearize(x, fx []float64) (Factor, error) { return f(x, fx) }

const (
	DefaultTol           = 1e-8
	DefaultMaxIter       = 30
	DefaultMaxBacktracks = 10
)

type Options struct {
	Tol           float64
	MaxIter       int
	MaxBacktracks int
	// ReuseJacobian keeps the factorization across iterations and refreshes
	// it only when the line search fails.
	ReuseJacobian bool
	Observer      Observer
}

func (o Options) withDefaults() Options {
	if o.Tol <= 0 {
		o.Tol = DefaultTol
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.MaxBacktracks <= 0 {
		o.MaxBacktracks = DefaultMaxBacktracks
	}
	return o
}

// Iteration describes the iterate at the start of a Newton pass. Lambda and
// Backtracks refer to the step that produced it.
type Iteration struct {
	Iter       int
	Residual   float64
	Lambda     float64
	Backtracks int
	Refreshed  bool
}

type Observer interface {
	OnIteration(it Iteration)
}

type ObserverFunc func(it Iteration)

func (f ObserverFunc) OnIteration(it Iteration) { f(it) }

// Result is the outcome of Solve. X holds the last accepted iterate even when
// Flag reports a failure.
type Result struct {
	X             []float64
	Flag          econ.Flag
	Iterations    int
	Residual      float64
	ResidualEvals int
	JacobianEvals int
}

func (r *Result) Diagnostics() econ.Diagnostics {
	return econ.Diagnostics{
		Iterations:    r.Iterations,
		Residual:      r.Residual,
		ResidualEvals: r.ResidualEvals,
		JacobianEvals: r.JacobianEvals,
	}
}

// Solve finds x with ‖f(x)‖∞ < opts.Tol by damped Newton iteration. The
// returned error is nil exactly when the result's flag is econ.Success.
func Solve(f Func, lin Linearizer, x0 []float64, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	n := len(x0)

	x := append([]float64(nil), x0...)
	fx := make([]float64, n)
	f(fx, x)
	res := &Result{X: x, ResidualEvals: 1, Residual: econ.State(fx).MaxAbs()}

	fail := func(flag econ.Flag, format string, args ...any) (*Result, error) {
		res.Flag = flag
		return res, econ.Errorf("newton", flag, format, args...)
	}

	var (
		fac        Factor
		stale      bool
		refreshed  bool
		lambda     float64
		backtracks int

		step   = make([]float64, n)
		negF   = make([]float64, n)
		trial  = make([]float64, n)
		ftrial = make([]float64, n)
	)

	for it := 0; ; it++ {
		res.Iterations = it
		if opts.Observer != nil {
			opts.Observer.OnIteration(Iteration{
				Iter:       it,
				Residual:   res.Residual,
				Lambda:     lambda,
				Backtracks: backtracks,
				Refreshed:  refreshed,
			})
		}

		if res.Residual < opts.Tol {
			res.Flag = econ.Success
			return res, nil
		}
		if it == 0 && !econ.State(fx).IsValid() {
			return fail(econ.NonConvergence, "non-finite residual at the initial guess")
		}
		if it == opts.MaxIter {
			return fail(econ.NonConvergence, "residual %.3e after %d iterations", res.Residual, it)
		}

		refreshed = false
		if fac == nil || !opts.ReuseJacobian {
			var err error
			res.JacobianEvals++
			if fac, err = linearize(lin, x, fx); err != nil {
				res.Flag = econ.FlagOf(err)
				return res, err
			}
			stale = false
		}

		for {
			copy(negF, fx)
			floats.Scale(-1, negF)
			if err := fac.SolveTo(step, negF); err != nil {
				return fail(econ.SingularJacobian, "linear solve: %v", err)
			}

			accepted := false
			lambda = 1
			for backtracks = 0; backtracks < opts.MaxBacktracks; backtracks++ {
				floats.AddScaledTo(trial, x, lambda, step)
				f(ftrial, trial)
				res.ResidualEvals++
				if nt := econ.State(ftrial).MaxAbs(); nt < res.Residual {
					res.Residual = nt
					accepted = true
					break
				}
				lambda *= 0.5
			}
			if accepted {
				break
			}
			if opts.ReuseJacobian && stale {
				var err error
				res.JacobianEvals++
				if fac, err = linearize(lin, x, fx); err != nil {
					res.Flag = econ.FlagOf(err)
					return res, err
				}
				stale, refreshed = false, true
				continue
			}
			return fail(econ.NonConvergence, "line search stalled at residual %.3e", res.Residual)
		}

		copy(x, trial)
		copy(fx, ftrial)
		stale = true
	}
}

func linearize(lin Linearizer, x, fx []float64) (Factor, error) {
	fac, err := lin.Linearize(x, fx)
	if err == nil {
		return fac, nil
	}
	var se *econ.SolveError
	if errors.As(err, &se) && (se.Flag == econ.SingularJacobian || se.Flag == econ.InvalidInput) {
		return nil, err
	}
	return nil, econ.Errorf("newton", econ.SingularJacobian, "linearize: %v", err)
}
