package metrics

import (
	"github.com/san-kum/eqpath/internal/econ"
)

// Metric accumulates a statistic over the periods of a path.
type Metric interface {
	Name() string
	Observe(t int, x, stst econ.State)
	Value() float64
	Reset()
}

// Evaluate runs every metric over p, which starts at period 0.
func Evaluate(p econ.Path, stst econ.State, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for t, x := range p {
			m.Observe(t, x, stst)
		}
		out[m.Name()] = m.Value()
	}
	return out
}

// Default is the metric set reported for every run: peak deviation and
// half-life per variable, plus the terminal gap and the stability share.
func Default(vars []string, stabilityTol float64) []Metric {
	ms := make([]Metric, 0, 2*len(vars)+2)
	for i, v := range vars {
		ms = append(ms, NewPeakDeviation(v, i), NewHalfLife(v, i))
	}
	return append(ms, NewTerminalGap(), NewStability(stabilityTol))
}
