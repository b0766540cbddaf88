package econ

import (
	"sort"
	"sync"

	"github.com/san-kum/eqpath/internal/hetagent"
)

// Heterogeneity is the capability of models whose aggregates come from a
// household block. Prices maps a period's state to the prices households face.
type Heterogeneity struct {
	Household *hetagent.Household
	Prices    func(x State) hetagent.Prices
}

// Stationary solves the household block at the prices implied by x.
func (h *Heterogeneity) Stationary(x State) (*hetagent.Steady, error) {
	return h.Household.Stationary(h.Prices(x))
}

// Model bundles a residual system with its variable ordering. All exported
// fields are read-only once Validate succeeds; the steady-state cache is the
// only state solvers write.
type Model struct {
	Name   string
	Vars   []string
	Shocks []string
	Params map[string]float64
	System ResidualSystem
	// Guess is the heuristic starting point for the steady-state solve.
	Guess State
	// Hetero is nil for representative-agent models.
	Hetero *Heterogeneity

	mu        sync.RWMutex
	stst      State
	household *hetagent.Steady
}

func (m *Model) Validate() error {
	if len(m.Vars) == 0 {
		return Errorf("model", InvalidInput, "%q has no variables", m.Name)
	}
	if m.System == nil {
		return Errorf("model", InvalidInput, "%q has no residual system", m.Name)
	}
	seen := make(map[string]bool, len(m.Vars)+len(m.Shocks))
	for _, v := range m.Vars {
		if seen[v] {
			return Errorf("model", InvalidInput, "%q declares %q twice", m.Name, v)
		}
		seen[v] = true
	}
	for _, s := range m.Shocks {
		if seen[s] {
			return Errorf("model", InvalidInput, "%q: shock %q clashes with another name", m.Name, s)
		}
		seen[s] = true
	}
	if m.Guess != nil && len(m.Guess) != len(m.Vars) {
		return Errorf("model", InvalidInput, "%q: guess has %d entries, want %d", m.Name, len(m.Guess), len(m.Vars))
	}
	if m.Hetero != nil {
		if m.Hetero.Household == nil || m.Hetero.Prices == nil {
			return Errorf("model", InvalidInput, "%q: incomplete household block", m.Name)
		}
		if err := m.Hetero.Household.Validate(); err != nil {
			return Errorf("model", InvalidInput, "%q: %v", m.Name, err)
		}
	}
	return nil
}

func (m *Model) NumVars() int { return len(m.Vars) }

func (m *Model) IsHeterogeneous() bool { return m.Hetero != nil }

func (m *Model) Index(name string) (int, bool) {
	for i, v := range m.Vars {
		if v == name {
			return i, true
		}
	}
	return -1, false
}

func (m *Model) ShockIndex(name string) (int, bool) {
	for i, s := range m.Shocks {
		if s == name {
			return i, true
		}
	}
	return -1, false
}

// SteadyState returns a copy of the cached steady state.
func (m *Model) SteadyState() (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stst == nil {
		return nil, false
	}
	return m.stst.Clone(), true
}

// HouseholdSteady returns the household block's stationary solution cached
// with the steady state, or nil.
func (m *Model) HouseholdSteady() *hetagent.Steady {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.household
}

// SetSteadyState replaces the cache. Concurrent writers are serialized; the
// last write wins.
func (m *Model) SetSteadyState(x State, household *hetagent.Steady) error {
	if len(x) != len(m.Vars) {
		return Errorf("model", InvalidInput, "steady state has %d entries, want %d", len(x), len(m.Vars))
	}
	if m.Hetero != nil && household == nil {
		return Errorf("model", InvalidInput, "%q needs the household steady state", m.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stst = x.Clone()
	m.household = household
	return nil
}

// Named maps variable names to the values in x.
func (m *Model) Named(x State) map[string]float64 {
	out := make(map[string]float64, len(m.Vars))
	for i, v := range m.Vars {
		if i < len(x) {
			out[v] = x[i]
		}
	}
	return out
}

// With returns a copy of x with the named variable set to value.
func (m *Model) With(x State, name string, value float64) (State, error) {
	i, ok := m.Index(name)
	if !ok {
		return nil, Errorf("model", InvalidInput, "%q has no variable %q", m.Name, name)
	}
	if len(x) != len(m.Vars) {
		return nil, Errorf("model", InvalidInput, "state has %d entries, want %d", len(x), len(m.Vars))
	}
	out := x.Clone()
	out[i] = value
	return out, nil
}

// ParamNames returns the parameter names in sorted order.
func (m *Model) ParamNames() []string {
	names := make([]string, 0, len(m.Params))
	for k := range m.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
