package horizon

import (
	"log/slog"

	"github.com/san-kum/eqpath/internal/compute"
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/hetagent"
	"github.com/san-kum/eqpath/internal/logger"
	"github.com/san-kum/eqpath/internal/newton"
	"github.com/san-kum/eqpath/internal/stack"
)

const (
	DefaultMaxAttempts = 8
	DefaultHorizon     = 200
	DefaultMaxHorizon  = 500
)

// State is a node of the horizon search.
type State int

const (
	Init State = iota
	Solving
	Extending
	Converged
	Exhausted
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Solving:
		return "solving"
	case Extending:
		return "extending"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// AttemptFunc runs one fixed-horizon solve.
type AttemptFunc func(m *econ.Model, init econ.State, horizon int, opts stack.Options) (*stack.Result, error)

type Options struct {
	Tol float64
	// TerminalTol bounds the distance of the last solved period from the
	// steady state. Zero means Tol.
	TerminalTol float64
	MinHorizon  int
	MaxAttempts int

	MaxIter       int
	MaxBacktracks int
	Jacobian      newton.Mode
	ReuseJacobian bool
	CondLimit     float64
	Backend       compute.Backend

	Shocks       []float64
	Guess        econ.Path
	Distribution *hetagent.Distribution

	// Verbose 1 logs every attempt, 2 also every Newton iteration.
	Verbose int
	Logger  *slog.Logger

	// Observer sees every Newton iteration of every attempt.
	Observer newton.Observer
	// Attempt replaces stack.Solve.
	Attempt AttemptFunc
	// OnAttempt is called after every attempt.
	OnAttempt func(Attempt)
}

// Attempt records one pass through the Solving state.
type Attempt struct {
	Number      int       `json:"number"`
	Horizon     int       `json:"horizon"`
	Flag        econ.Flag `json:"flag"`
	Iterations  int       `json:"iterations"`
	Residual    float64   `json:"residual"`
	TerminalGap float64   `json:"terminal_gap"`
	Next        State     `json:"-"`
}

type Result struct {
	// Path holds periods 0..T.
	Path        econ.Path
	Flag        econ.Flag
	Diagnostics econ.Diagnostics
	Attempts    []Attempt
	// Household is the household block over the full final horizon; nil for
	// representative-agent models.
	Household *hetagent.Path
}

// FindPath solves for the transition from init to the steady state and
// returns its first T periods after period 0. The horizon starts at
// max(T, MinHorizon) and doubles, up to maxHorizon, until an attempt both
// converges and ends at the steady state.
func FindPath(m *econ.Model, init econ.State, T, maxHorizon int, opts Options) (*Result, error) {
	res := &Result{}
	if err := validate(m, init, T, maxHorizon); err != nil {
		res.Flag = econ.FlagOf(err)
		return res, err
	}

	opts = opts.withDefaults()
	terminalTol := opts.TerminalTol
	log := opts.Logger.With("model", m.Name)
	sopts := opts.stackOptions(log)

	var (
		state = Init
		h     int
		last  *stack.Result
		err   error
	)
	for {
		switch state {
		case Init:
			h = min(max(T, opts.MinHorizon), maxHorizon)
			state = Solving

		case Solving:
			last, err = opts.Attempt(m, init, h, sopts)
			if last == nil {
				last = &stack.Result{Flag: econ.FlagOf(err)}
			}
			res.addAttempt(last, h)

			flag := econ.FlagOf(err)
			switch {
			case flag == econ.Success && last.Diagnostics.TerminalGap <= terminalTol:
				state = Converged
			case flag == econ.SingularJacobian || flag == econ.InvalidInput:
				res.record(opts, log, state)
				res.finish(last, T)
				res.Flag = flag
				return res, err
			case h >= maxHorizon || len(res.Attempts) >= opts.MaxAttempts:
				state = Exhausted
			default:
				state = Extending
			}
			res.record(opts, log, state)

		case Extending:
			h = min(2*h, maxHorizon)
			state = Solving

		case Converged:
			res.finish(last, T)
			res.Flag = econ.Success
			return res, nil

		case Exhausted:
			res.finish(last, T)
			res.Flag = econ.HorizonExceeded
			return res, econ.Errorf("horizon", econ.HorizonExceeded,
				"%s: no terminal convergence by horizon %d after %d attempts (gap %.3e, residual %.3e)",
				m.Name, h, len(res.Attempts), last.Diagnostics.TerminalGap, last.Diagnostics.Residual)
		}
	}
}

// StackedOptions configures FindPathStacked. Horizon is both the reported
// length and the first horizon tried.
type StackedOptions struct {
	Options
	Horizon    int
	MaxHorizon int
}

// FindPathStacked shocks the steady state and calls FindPath. A shock naming
// one of the model's shocks is an innovation in period 1; a shock naming a
// variable is added to that variable in period 0.
func FindPathStacked(m *econ.Model, shock econ.Shock, opts StackedOptions) (*Result, error) {
	if opts.Horizon <= 0 {
		opts.Horizon = DefaultHorizon
	}
	if opts.MaxHorizon <= 0 {
		opts.MaxHorizon = max(DefaultMaxHorizon, opts.Horizon)
	}

	stst, ok := m.SteadyState()
	if !ok {
		return &Result{Flag: econ.InvalidInput}, econ.Errorf("horizon", econ.InvalidInput, "model %q has no steady state", m.Name)
	}

	init, inner, err := Apply(m, stst, shock, opts.Options)
	if err != nil {
		return &Result{Flag: econ.FlagOf(err)}, err
	}
	return FindPath(m, init, opts.Horizon, opts.MaxHorizon, inner)
}

// Apply turns a named shock into an initial state and solver options.
func Apply(m *econ.Model, stst econ.State, shock econ.Shock, opts Options) (econ.State, Options, error) {
	if i, ok := m.ShockIndex(shock.Name); ok {
		shocks := make([]float64, len(m.Shocks))
		copy(shocks, opts.Shocks)
		shocks[i] += shock.Value
		opts.Shocks = shocks
		return stst.Clone(), opts, nil
	}
	i, ok := m.Index(shock.Name)
	if !ok {
		return nil, opts, econ.Errorf("horizon", econ.InvalidInput, "model %q has no shock or variable %q", m.Name, shock.Name)
	}
	init := stst.Clone()
	init[i] += shock.Value
	return init, opts, nil
}

func validate(m *econ.Model, init econ.State, T, maxHorizon int) error {
	switch {
	case T < 1:
		return econ.Errorf("horizon", econ.InvalidInput, "T = %d", T)
	case T > maxHorizon:
		return econ.Errorf("horizon", econ.InvalidInput, "T = %d exceeds max horizon %d", T, maxHorizon)
	case len(init) != m.NumVars():
		return econ.Errorf("horizon", econ.InvalidInput, "initial state has %d entries, want %d", len(init), m.NumVars())
	}
	if _, ok := m.SteadyState(); !ok {
		return econ.Errorf("horizon", econ.InvalidInput, "model %q has no steady state", m.Name)
	}
	if m.IsHeterogeneous() && m.HouseholdSteady() == nil {
		return econ.Errorf("horizon", econ.InvalidInput, "model %q has no household steady state", m.Name)
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Tol <= 0 {
		o.Tol = newton.DefaultTol
	}
	if o.TerminalTol <= 0 {
		o.TerminalTol = o.Tol
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Logger == nil {
		o.Logger = logger.L()
	}
	if o.Attempt == nil {
		o.Attempt = stack.Solve
	}
	return o
}

func (o Options) stackOptions(log *slog.Logger) stack.Options {
	so := stack.Options{
		Tol:           o.Tol,
		MaxIter:       o.MaxIter,
		MaxBacktracks: o.MaxBacktracks,
		Jacobian:      o.Jacobian,
		ReuseJacobian: o.ReuseJacobian,
		CondLimit:     o.CondLimit,
		Backend:       o.Backend,
		Shocks:        o.Shocks,
		Guess:         o.Guess,
		Distribution:  o.Distribution,
	}
	verbose, user := o.Verbose >= 2, o.Observer
	if verbose || user != nil {
		so.Observer = newton.ObserverFunc(func(it newton.Iteration) {
			if verbose {
				log.Debug("newton iteration",
					"iter", it.Iter,
					"residual", it.Residual,
					"lambda", it.Lambda,
					"backtracks", it.Backtracks,
					"refreshed", it.Refreshed)
			}
			if user != nil {
				user.OnIteration(it)
			}
		})
	}
	return so
}

func (r *Result) addAttempt(sr *stack.Result, h int) {
	d := sr.Diagnostics
	r.Attempts = append(r.Attempts, Attempt{
		Number:      len(r.Attempts) + 1,
		Horizon:     h,
		Flag:        sr.Flag,
		Iterations:  d.Iterations,
		Residual:    d.Residual,
		TerminalGap: d.TerminalGap,
	})
	r.Diagnostics.ResidualEvals += d.ResidualEvals
	r.Diagnostics.JacobianEvals += d.JacobianEvals
}

func (r *Result) record(opts Options, log *slog.Logger, next State) {
	a := &r.Attempts[len(r.Attempts)-1]
	a.Next = next
	if opts.Verbose >= 1 {
		log.Info("horizon attempt",
			"attempt", a.Number,
			"horizon", a.Horizon,
			"flag", a.Flag,
			"iterations", a.Iterations,
			"residual", a.Residual,
			"terminal_gap", a.TerminalGap,
			"next", next)
	}
	if opts.OnAttempt != nil {
		opts.OnAttempt(*a)
	}
}

// finish copies the last attempt into the result, truncated to 0..T.
func (r *Result) finish(last *stack.Result, T int) {
	d := last.Diagnostics
	r.Path = last.Path.Truncate(T + 1)
	r.Household = last.Household
	r.Diagnostics.Iterations = d.Iterations
	r.Diagnostics.Residual = d.Residual
	r.Diagnostics.Horizon = r.Attempts[len(r.Attempts)-1].Horizon
	r.Diagnostics.TerminalGap = d.TerminalGap
	r.Diagnostics.Attempts = len(r.Attempts)
}
