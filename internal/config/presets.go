package config

import "sort"

func preset(model string, edit func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Model = model
	edit(cfg)
	return cfg
}

var Presets = map[string]map[string]*Config{
	"lag3": {
		"canonical": preset("lag3", func(c *Config) {
			c.Initial = map[string]float64{"y": 0.1, "y_l1": 0.2}
		}),
		"large": preset("lag3", func(c *Config) {
			c.Initial = map[string]float64{"y": 0.5, "y_l1": 0.3}
			c.Path.Horizon = 100
		}),
	},
	"nk": {
		"demand": preset("nk", func(c *Config) {
			c.Shock = ShockConfig{Name: "e_beta", Value: 0.02}
			c.Path.Horizon = 200
		}),
		"rate": preset("nk", func(c *Config) {
			c.Initial = map[string]float64{"R": 0.01}
			c.Path.Horizon = 100
		}),
	},
	"rbc": {
		"tfp": preset("rbc", func(c *Config) {
			c.Shock = ShockConfig{Name: "e_z", Value: 0.01}
			c.Path.Horizon = 200
		}),
		"capital": preset("rbc", func(c *Config) {
			c.Initial = map[string]float64{"K": -2}
			c.Path.Horizon = 250
			c.Path.Jacobian = "analytic"
		}),
	},
	"aiyagari": {
		"tfp": preset("aiyagari", func(c *Config) {
			c.Initial = map[string]float64{"Z": 0.01}
			c.SteadyState.Tol = 1e-8
			c.Path.Horizon = 30
			c.Path.MaxHorizon = 120
			c.Path.Tol = 1e-6
			c.Path.TerminalTol = 1e-4
			c.Path.ReuseJacobian = true
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
