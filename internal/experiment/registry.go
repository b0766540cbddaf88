package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/metrics"
	"github.com/san-kum/eqpath/internal/models"
)

// StabilityTol is the band around the steady state counted by the stability
// metric.
const StabilityTol = 1e-6

type Registry struct {
	models map[string]func() models.Spec
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func() models.Spec),
	}

	r.models["lag3"] = func() models.Spec { return models.NewLag3() }
	r.models["nk"] = func() models.Spec { return models.NewNK() }
	r.models["rbc"] = func() models.Spec { return models.NewRBC() }
	r.models["aiyagari"] = func() models.Spec { return models.NewAiyagari() }

	return r
}

// Register adds or replaces a model constructor.
func (r *Registry) Register(name string, fn func() models.Spec) {
	r.models[name] = fn
}

// GetModel returns a fresh parameter set for the named model with params
// applied on top of its defaults.
func (r *Registry) GetModel(name string, params map[string]float64) (models.Spec, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	spec := fn()

	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := spec.SetParam(k, params[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return spec, nil
}

func (r *Registry) Build(name string, params map[string]float64) (*econ.Model, error) {
	spec, err := r.GetModel(name, params)
	if err != nil {
		return nil, err
	}
	return spec.Model()
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(m *econ.Model) []metrics.Metric {
	return metrics.Default(m.Vars, StabilityTol)
}
