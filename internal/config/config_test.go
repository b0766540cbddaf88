package config

import (
	"path/filepath"
	"testing"

	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/newton"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "lag3" {
		t.Errorf("expected model lag3, got %s", cfg.Model)
	}
	if cfg.Path.Tol != 1e-8 {
		t.Errorf("expected path tol 1e-8, got %g", cfg.Path.Tol)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := GetPreset("nk", "demand")
	cfg.Params = map[string]float64{"kappa": 0.2}
	cfg.Verbose = 2
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model != "nk" || loaded.Shock.Name != "e_beta" || loaded.Shock.Value != 0.02 {
		t.Errorf("unexpected config %+v", loaded)
	}
	if loaded.Params["kappa"] != 0.2 || loaded.Verbose != 2 {
		t.Errorf("params or verbosity lost: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"no model", func(c *Config) { c.Model = "" }},
		{"zero horizon", func(c *Config) { c.Path.Horizon = 0 }},
		{"max below horizon", func(c *Config) { c.Path.MaxHorizon = 10 }},
		{"bad jacobian", func(c *Config) { c.Path.Jacobian = "symbolic" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.edit(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("lag3", "canonical")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Initial["y"] != 0.1 {
		t.Errorf("expected y deviation 0.1, got %f", cfg.Initial["y"])
	}

	cfg.Initial["y"] = 9
	if GetPreset("lag3", "canonical").Initial["y"] != 0.1 {
		t.Error("preset modified through returned copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("lag3", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "canonical"); cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("nk")
	if len(presets) != 2 || presets[0] != "demand" {
		t.Errorf("unexpected presets %v", presets)
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent model")
	}

	for model, byName := range Presets {
		for name, cfg := range byName {
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", model, name, err)
			}
		}
	}
}

func TestInitialState(t *testing.T) {
	m := &econ.Model{Name: "toy", Vars: []string{"a", "b"}}
	cfg := DefaultConfig()
	cfg.Initial = map[string]float64{"b": 0.5}

	x, err := cfg.InitialState(m, econ.State{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if x[0] != 1 || x[1] != 2.5 {
		t.Errorf("got %v", x)
	}

	cfg.Initial["c"] = 1
	if _, err := cfg.InitialState(m, econ.State{1, 2}); err == nil {
		t.Error("expected error for unknown variable")
	}
}

func TestOptions(t *testing.T) {
	cfg := GetPreset("rbc", "capital")
	cfg.Path.Workers = 1

	po := cfg.PathOptions()
	if po.Jacobian != newton.Analytic {
		t.Errorf("expected analytic jacobian, got %v", po.Jacobian)
	}
	if po.Backend.Workers() != 1 {
		t.Errorf("expected serial backend, got %s", po.Backend.Name())
	}
	if so := cfg.SteadyOptions(); so.Tol != DefaultSteadyTol {
		t.Errorf("steady tol %g", so.Tol)
	}
}
