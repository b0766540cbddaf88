package steady

import (
	"math"

	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/hetagent"
	"github.com/san-kum/eqpath/internal/newton"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultTol     = 1e-10
	DefaultMaxIter = 50
)

type Options struct {
	Tol       float64
	MaxIter   int
	Jacobian  newton.Mode
	CondLimit float64
	Observer  newton.Observer
}

type Result struct {
	State       econ.State
	Flag        econ.Flag
	Diagnostics econ.Diagnostics
	// Household is the stationary household block; nil for
	// representative-agent models.
	Household *hetagent.Steady
}

// Residual is the time-invariant residual x ↦ f(x, x, x). For heterogeneous
// models the aggregates come from the household block's stationary solution
// at the prices implied by x; where that solution does not converge the whole
// residual is NaN.
func Residual(m *econ.Model) newton.Func {
	return func(dst, x []float64) {
		in := econ.Inputs{Lag: x, Cur: x, Lead: x}
		if m.IsHeterogeneous() {
			st, err := m.Hetero.Stationary(x)
			if err != nil {
				for i := range dst {
					dst[i] = math.NaN()
				}
				return
			}
			in.Aggregates = st.Aggregates.Vector()
		}
		m.System.Residual(dst, in)
	}
}

// Solve finds the steady state of m starting from guess, or from m.Guess when
// guess is nil, and caches it on the model.
func Solve(m *econ.Model, guess econ.State, opts Options) (*Result, error) {
	if opts.Tol <= 0 {
		opts.Tol = DefaultTol
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}

	res := &Result{}
	fail := func(flag econ.Flag, format string, args ...any) (*Result, error) {
		res.Flag = flag
		return res, econ.Errorf("steady", flag, format, args...)
	}

	if guess == nil {
		guess = m.Guess
	}
	if guess == nil {
		guess = make(econ.State, m.NumVars())
	}
	if len(guess) != m.NumVars() {
		return fail(econ.InvalidInput, "guess has %d entries, want %d", len(guess), m.NumVars())
	}

	lin, err := linearizer(m, opts)
	if err != nil {
		res.Flag = econ.FlagOf(err)
		return res, err
	}

	f := Residual(m)
	nres, err := newton.Solve(f, lin, guess, newton.Options{
		Tol:      opts.Tol,
		MaxIter:  opts.MaxIter,
		Observer: opts.Observer,
	})
	res.State = econ.State(nres.X).Clone()
	res.Flag = nres.Flag
	res.Diagnostics = nres.Diagnostics()
	if err != nil {
		return res, econ.Errorf("steady", nres.Flag, "%s: %v", m.Name, err)
	}

	if m.IsHeterogeneous() {
		hh, err := m.Hetero.Stationary(res.State)
		if err != nil {
			return fail(econ.NonConvergence, "%s household block: %v", m.Name, err)
		}
		res.Household = hh
	}
	if err := m.SetSteadyState(res.State, res.Household); err != nil {
		res.Flag = econ.FlagOf(err)
		return res, err
	}
	return res, nil
}

func linearizer(m *econ.Model, opts Options) (newton.Linearizer, error) {
	diff, ok := m.System.(econ.Differentiable)
	useAnalytic := ok && !m.IsHeterogeneous() && opts.Jacobian != newton.Numeric
	if opts.Jacobian == newton.Analytic && !useAnalytic {
		return nil, econ.Errorf("steady", econ.InvalidInput, "model %q has no analytic jacobian", m.Name)
	}

	if useAnalytic {
		return &newton.Dense{Provider: Analytic(diff), CondLimit: opts.CondLimit}, nil
	}

	formula := fd.Central
	if m.IsHeterogeneous() {
		// Every evaluation is a full stationary household solve.
		formula = fd.Forward
	}
	return &newton.Dense{
		Provider:  &newton.FiniteDifference{F: Residual(m), Formula: formula},
		CondLimit: opts.CondLimit,
	}, nil
}

// Analytic is the steady-state Jacobian of a differentiable system: the sum
// of its lag, current and lead blocks at x.
func Analytic(sys econ.Differentiable) newton.AnalyticJacobian {
	return func(dst *mat.Dense, x []float64) {
		n := len(x)
		lag, cur, lead := mat.NewDense(n, n, nil), mat.NewDense(n, n, nil), mat.NewDense(n, n, nil)
		sys.Derivatives(lag, cur, lead, econ.Inputs{Lag: x, Cur: x, Lead: x})
		dst.Add(lag, cur)
		dst.Add(dst, lead)
	}
}
