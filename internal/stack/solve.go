package stack

import (
	"github.com/san-kum/eqpath/internal/compute"
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/hetagent"
	"github.com/san-kum/eqpath/internal/newton"
)

type Options struct {
	Tol           float64
	MaxIter       int
	MaxBacktracks int
	Jacobian      newton.Mode
	// ReuseJacobian enables quasi-Newton steps. Heterogeneous models always
	// reuse, since each dense Jacobian costs H·n household solves.
	ReuseJacobian bool
	CondLimit     float64
	Backend       compute.Backend

	// Shocks are period-1 innovations indexed like the model's shocks.
	Shocks []float64
	// Guess seeds periods 1.. of the solve; missing periods use the steady
	// state.
	Guess econ.Path
	// Distribution overrides the initial household distribution.
	Distribution *hetagent.Distribution

	Observer newton.Observer
}

type Result struct {
	Path        econ.Path
	Flag        econ.Flag
	Diagnostics econ.Diagnostics
	// Household is the household block along the returned path; nil for
	// representative-agent models.
	Household *hetagent.Path
}

// Solve runs one stacked-time Newton solve over a fixed horizon.
func Solve(m *econ.Model, init econ.State, horizon int, opts Options) (*Result, error) {
	res := &Result{Diagnostics: econ.Diagnostics{Horizon: horizon, Attempts: 1}}

	s, err := New(m, init, horizon, opts.Shocks)
	if err != nil {
		res.Flag = econ.FlagOf(err)
		return res, err
	}
	if opts.Distribution != nil {
		if s, err = s.WithDistribution(*opts.Distribution); err != nil {
			res.Flag = econ.FlagOf(err)
			return res, err
		}
	}

	lin, err := s.Linearizer(opts.Jacobian, opts.Backend, opts.CondLimit)
	if err != nil {
		res.Flag = econ.FlagOf(err)
		return res, err
	}

	nres, err := newton.Solve(s.Residual, lin, s.GuessFrom(opts.Guess), newton.Options{
		Tol:           opts.Tol,
		MaxIter:       opts.MaxIter,
		MaxBacktracks: opts.MaxBacktracks,
		ReuseJacobian: opts.ReuseJacobian || m.IsHeterogeneous(),
		Observer:      opts.Observer,
	})

	res.Path = s.Path(nres.X)
	res.Flag = nres.Flag
	res.Household = s.Household(nres.X)

	d := nres.Diagnostics()
	d.Horizon = horizon
	d.Attempts = 1
	d.TerminalGap = s.TerminalGap(nres.X)
	res.Diagnostics = d

	if err != nil {
		return res, econ.Errorf("stack", nres.Flag, "horizon %d: %v", horizon, err)
	}
	return res, nil
}
