package metrics

import (
	"github.com/san-kum/eqpath/internal/econ"
)

// Stability is the share of periods whose largest deviation from steady state
// is within threshold.
type Stability struct {
	name      string
	threshold float64
	within    int
	samples   int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(t int, x, stst econ.State) {
	s.samples++
	if x.Sub(stst).MaxAbs() <= s.threshold {
		s.within++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return float64(s.within) / float64(s.samples)
}

func (s *Stability) Reset() {
	s.within = 0
	s.samples = 0
}

// TerminalGap is the largest deviation from steady state in the last
// observed period.
type TerminalGap struct {
	name string
	gap  float64
}

func NewTerminalGap() *TerminalGap {
	return &TerminalGap{name: "terminal_gap"}
}

func (g *TerminalGap) Name() string {
	return g.name
}

func (g *TerminalGap) Observe(t int, x, stst econ.State) {
	g.gap = x.Sub(stst).MaxAbs()
}

func (g *TerminalGap) Value() float64 {
	return g.gap
}

func (g *TerminalGap) Reset() {
	g.gap = 0
}
