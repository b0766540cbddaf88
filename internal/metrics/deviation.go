package metrics

import (
	"math"

	"github.com/san-kum/eqpath/internal/econ"
)

// PeakDeviation is the signed deviation from steady state of largest
// magnitude for one variable.
type PeakDeviation struct {
	name  string
	index int
	peak  float64
}

func NewPeakDeviation(variable string, index int) *PeakDeviation {
	return &PeakDeviation{
		name:  "peak_" + variable,
		index: index,
	}
}

func (p *PeakDeviation) Name() string {
	return p.name
}

func (p *PeakDeviation) Observe(t int, x, stst econ.State) {
	d := x[p.index] - stst[p.index]
	if math.Abs(d) > math.Abs(p.peak) {
		p.peak = d
	}
}

func (p *PeakDeviation) Value() float64 {
	return p.peak
}

func (p *PeakDeviation) Reset() {
	p.peak = 0
}

// HalfLife is the number of periods from the peak deviation of one variable
// until its deviation first falls to half the peak. It is -1 when that never
// happens within the path and 0 for a path without deviation.
type HalfLife struct {
	name     string
	index    int
	peak     float64
	peakAt   int
	halfAt   int
	observed bool
}

func NewHalfLife(variable string, index int) *HalfLife {
	h := &HalfLife{
		name:  "half_life_" + variable,
		index: index,
	}
	h.Reset()
	return h
}

func (h *HalfLife) Name() string {
	return h.name
}

func (h *HalfLife) Observe(t int, x, stst econ.State) {
	h.observed = true
	d := math.Abs(x[h.index] - stst[h.index])
	if d > h.peak {
		h.peak, h.peakAt, h.halfAt = d, t, -1
		return
	}
	if h.halfAt < 0 && d <= h.peak/2 {
		h.halfAt = t
	}
}

func (h *HalfLife) Value() float64 {
	switch {
	case !h.observed || h.peak == 0:
		return 0
	case h.halfAt < 0:
		return -1
	default:
		return float64(h.halfAt - h.peakAt)
	}
}

func (h *HalfLife) Reset() {
	h.peak = 0
	h.peakAt = 0
	h.halfAt = -1
	h.observed = false
}
