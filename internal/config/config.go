package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/san-kum/eqpath/internal/compute"
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/horizon"
	"github.com/san-kum/eqpath/internal/newton"
	"github.com/san-kum/eqpath/internal/stack"
	"github.com/san-kum/eqpath/internal/steady"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel        = "lag3"
	DefaultSteadyTol    = steady.DefaultTol
	DefaultSteadyIter   = steady.DefaultMaxIter
	DefaultHorizon      = 50
	DefaultMaxHorizon   = 500
	DefaultPathTol      = newton.DefaultTol
	DefaultPathIter     = newton.DefaultMaxIter
	DefaultMaxAttempts  = horizon.DefaultMaxAttempts
	DefaultJacobianMode = "auto"
)

type Config struct {
	Model       string             `yaml:"model"`
	Params      map[string]float64 `yaml:"params,omitempty"`
	SteadyState SteadyConfig       `yaml:"steady_state"`
	Path        PathConfig         `yaml:"path"`
	Shock       ShockConfig        `yaml:"shock,omitempty"`
	// Initial holds additive deviations from the steady state in period 0.
	Initial map[string]float64 `yaml:"initial,omitempty"`
	Verbose int                `yaml:"verbose"`
}

type SteadyConfig struct {
	Tol     float64 `yaml:"tol"`
	MaxIter int     `yaml:"max_iter"`
}

type PathConfig struct {
	Horizon       int     `yaml:"horizon"`
	MaxHorizon    int     `yaml:"max_horizon"`
	MinHorizon    int     `yaml:"min_horizon,omitempty"`
	Tol           float64 `yaml:"tol"`
	TerminalTol   float64 `yaml:"terminal_tol,omitempty"`
	MaxIter       int     `yaml:"max_iter"`
	MaxAttempts   int     `yaml:"max_attempts"`
	Jacobian      string  `yaml:"jacobian"`
	Workers       int     `yaml:"workers"`
	ReuseJacobian bool    `yaml:"reuse_jacobian"`
}

type ShockConfig struct {
	Name  string  `yaml:"name,omitempty"`
	Value float64 `yaml:"value,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model: DefaultModel,
		SteadyState: SteadyConfig{
			Tol:     DefaultSteadyTol,
			MaxIter: DefaultSteadyIter,
		},
		Path: PathConfig{
			Horizon:     DefaultHorizon,
			MaxHorizon:  DefaultMaxHorizon,
			Tol:         DefaultPathTol,
			MaxIter:     DefaultPathIter,
			MaxAttempts: DefaultMaxAttempts,
			Jacobian:    DefaultJacobianMode,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Model == "":
		return fmt.Errorf("config: model is required")
	case c.Path.Horizon < 1:
		return fmt.Errorf("config: path.horizon must be positive, got %d", c.Path.Horizon)
	case c.Path.MaxHorizon < c.Path.Horizon:
		return fmt.Errorf("config: path.max_horizon %d is below path.horizon %d", c.Path.MaxHorizon, c.Path.Horizon)
	}
	if _, err := newton.ParseMode(c.Path.Jacobian); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) Clone() *Config {
	out := *c
	out.Params = cloneMap(c.Params)
	out.Initial = cloneMap(c.Initial)
	return &out
}

func (c *Config) Backend() compute.Backend {
	if c.Path.Workers == 1 {
		return compute.NewSerialBackend()
	}
	return compute.NewCPUBackend(c.Path.Workers)
}

func (c *Config) SteadyOptions() steady.Options {
	mode, _ := newton.ParseMode(c.Path.Jacobian)
	return steady.Options{
		Tol:      c.SteadyState.Tol,
		MaxIter:  c.SteadyState.MaxIter,
		Jacobian: mode,
	}
}

func (c *Config) PathOptions() horizon.Options {
	mode, _ := newton.ParseMode(c.Path.Jacobian)
	return horizon.Options{
		Tol:           c.Path.Tol,
		TerminalTol:   c.Path.TerminalTol,
		MinHorizon:    c.Path.MinHorizon,
		MaxAttempts:   c.Path.MaxAttempts,
		MaxIter:       c.Path.MaxIter,
		Jacobian:      mode,
		ReuseJacobian: c.Path.ReuseJacobian,
		Backend:       c.Backend(),
		Verbose:       c.Verbose,
	}
}

func (c *Config) StackOptions() stack.Options {
	mode, _ := newton.ParseMode(c.Path.Jacobian)
	return stack.Options{
		Tol:           c.Path.Tol,
		MaxIter:       c.Path.MaxIter,
		Jacobian:      mode,
		ReuseJacobian: c.Path.ReuseJacobian,
		Backend:       c.Backend(),
	}
}

// HasShock reports whether the config names a shock.
func (c *Config) HasShock() bool { return c.Shock.Name != "" }

func (c *Config) GetShock() econ.Shock {
	return econ.Shock{Name: c.Shock.Name, Value: c.Shock.Value}
}

// InitialState applies the configured deviations to the steady state.
func (c *Config) InitialState(m *econ.Model, stst econ.State) (econ.State, error) {
	x := stst.Clone()
	names := make([]string, 0, len(c.Initial))
	for name := range c.Initial {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		i, ok := m.Index(name)
		if !ok {
			return nil, fmt.Errorf("unknown variable: %s", name)
		}
		x[i] += c.Initial[name]
	}
	return x, nil
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
