package stack

import (
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/hetagent"
)

// Stacker is the stacked-time residual of a model over a fixed horizon H.
//
// The unknowns are periods 1..H, flattened period-major into H·n values.
// Period 0 is the initial state and period H+1 the steady state; neither is
// solved for. Period t's residual reads periods t-1, t and t+1.
type Stacker struct {
	model  *econ.Model
	n, h   int
	init   econ.State
	stst   econ.State
	shocks []float64

	// Household block state for heterogeneous models.
	terminal hetagent.Continuation
	initial  hetagent.Distribution
}

// New builds a stacker. shocks are innovations applied in period 1, indexed
// like m.Shocks; nil means none.
func New(m *econ.Model, init econ.State, horizon int, shocks []float64) (*Stacker, error) {
	stst, ok := m.SteadyState()
	if !ok {
		return nil, econ.Errorf("stack", econ.InvalidInput, "model %q has no steady state", m.Name)
	}
	if len(init) != m.NumVars() {
		return nil, econ.Errorf("stack", econ.InvalidInput, "initial state has %d entries, want %d", len(init), m.NumVars())
	}
	if horizon < 1 {
		return nil, econ.Errorf("stack", econ.InvalidInput, "horizon %d", horizon)
	}
	if len(shocks) > len(m.Shocks) {
		return nil, econ.Errorf("stack", econ.InvalidInput, "%d shock values for %d shocks", len(shocks), len(m.Shocks))
	}

	s := &Stacker{
		model:  m,
		n:      m.NumVars(),
		h:      horizon,
		init:   init.Clone(),
		stst:   stst,
		shocks: append([]float64(nil), shocks...),
	}
	if len(s.shocks) == 0 {
		s.shocks = nil
	}

	if m.IsHeterogeneous() {
		hh := m.HouseholdSteady()
		if hh == nil {
			return nil, econ.Errorf("stack", econ.InvalidInput, "model %q has no household steady state", m.Name)
		}
		s.terminal = hh.Continuation
		s.initial = hh.Distribution
	}
	return s, nil
}

// WithDistribution replaces the period-0 household distribution, which
// otherwise is the stationary one. d must fit the household grid.
func (s *Stacker) WithDistribution(d hetagent.Distribution) (*Stacker, error) {
	if !s.model.IsHeterogeneous() {
		return nil, econ.Errorf("stack", econ.InvalidInput, "model %q has no households to distribute", s.model.Name)
	}
	if err := s.model.Hetero.Household.Grid.CheckDistribution(d); err != nil {
		return nil, econ.Errorf("stack", econ.InvalidInput, "initial distribution: %v", err)
	}
	c := *s
	c.initial = d.Clone()
	return &c, nil
}

func (s *Stacker) Horizon() int { return s.h }
func (s *Stacker) Size() int    { return s.h * s.n }

func (s *Stacker) SteadyState() econ.State { return s.stst }

// period returns period t of the stacked path x, for t in 0..H+1.
func (s *Stacker) period(x []float64, t int) econ.State {
	switch {
	case t <= 0:
		return s.init
	case t > s.h:
		return s.stst
	default:
		return x[(t-1)*s.n : t*s.n]
	}
}

func (s *Stacker) inputs(x []float64, t int, agg []hetagent.Aggregates) econ.Inputs {
	in := econ.Inputs{
		Lag:  s.period(x, t-1),
		Cur:  s.period(x, t),
		Lead: s.period(x, t+1),
	}
	if t == 1 {
		in.Shocks = s.shocks
	}
	if agg != nil {
		in.Aggregates = agg[t-1].Vector()
	}
	return in
}

// Residual writes the H·n stacked residual at x into dst.
func (s *Stacker) Residual(dst, x []float64) {
	var agg []hetagent.Aggregates
	if s.model.IsHeterogeneous() {
		agg = s.Household(x).Aggregates
	}
	for t := 1; t <= s.h; t++ {
		s.model.System.Residual(dst[(t-1)*s.n:t*s.n], s.inputs(x, t, agg))
	}
}

// Household solves the household block along the prices implied by x. It
// returns nil for representative-agent models.
func (s *Stacker) Household(x []float64) *hetagent.Path {
	if !s.model.IsHeterogeneous() {
		return nil
	}
	prices := make([]hetagent.Prices, s.h)
	for t := 1; t <= s.h; t++ {
		prices[t-1] = s.model.Hetero.Prices(s.period(x, t))
	}
	return s.model.Hetero.Household.Transition(prices, s.terminal, s.initial)
}

// Guess is the steady state repeated over the horizon.
func (s *Stacker) Guess() []float64 {
	return s.GuessFrom(nil)
}

// GuessFrom takes periods 1.. of p as the starting point and pads the rest of
// the horizon with the steady state.
func (s *Stacker) GuessFrom(p econ.Path) []float64 {
	x := make([]float64, s.Size())
	for t := 1; t <= s.h; t++ {
		src := s.stst
		if t < len(p) && len(p[t]) == s.n {
			src = p[t]
		}
		copy(x[(t-1)*s.n:t*s.n], src)
	}
	return x
}

// Path expands the unknowns into periods 0..H.
func (s *Stacker) Path(x []float64) econ.Path {
	p := make(econ.Path, s.h+1)
	for t := 0; t <= s.h; t++ {
		p[t] = s.period(x, t).Clone()
	}
	return p
}

// TerminalGap is the largest deviation of period H from the steady state.
func (s *Stacker) TerminalGap(x []float64) float64 {
	return s.period(x, s.h).Sub(s.stst).MaxAbs()
}
