package hetagent

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/eqpath/internal/compute"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// MassTol bounds the drift of total probability mass after a forward step.
const MassTol = 1e-9

// Weighting selects the distribution decisions are aggregated against.
type Weighting int

const (
	// WeightLagged aggregates period t decisions over the beginning-of-period
	// distribution, i.e. the distribution inherited from t-1.
	WeightLagged Weighting = iota
	// WeightCurrent aggregates over the distribution produced by period t's
	// decisions.
	WeightCurrent
)

func (w Weighting) String() string {
	switch w {
	case WeightLagged:
		return "lagged"
	case WeightCurrent:
		return "current"
	default:
		return fmt.Sprintf("weighting(%d)", int(w))
	}
}

// Prices faced by households in one period: the net return on assets and the
// wage per efficiency unit.
type Prices struct {
	R float64
	W float64
}

// Continuation is the marginal value of assets at the start of the next
// period, indexed [income][asset].
type Continuation struct {
	Va [][]float64
}

// Decision is a period's policy, indexed [income][asset].
type Decision struct {
	Savings     [][]float64
	Consumption [][]float64
}

// Distribution is the probability mass over [income][asset].
type Distribution struct {
	Mass [][]float64
}

func (d Distribution) Sum() float64 {
	s := 0.0
	for _, row := range d.Mass {
		s += floats.Sum(row)
	}
	return s
}

func (d Distribution) Clone() Distribution {
	return Distribution{Mass: cloneTable(d.Mass)}
}

type Aggregates struct {
	Assets      float64
	Consumption float64
}

// Vector returns the aggregates in the order residual systems read them.
func (a Aggregates) Vector() []float64 {
	return []float64{a.Assets, a.Consumption}
}

// Household solves the income-fluctuation problem
//
//	max E sum beta^t u(c_t),  c + a' = (1+r) a + w e,  a' >= Assets[0]
//
// with CRRA utility u(c) = c^(1-Sigma)/(1-Sigma).
type Household struct {
	Grid      *Grid
	Beta      float64
	Sigma     float64
	Weighting Weighting
	Backend   compute.Backend

	PolicyTol     float64
	MaxPolicyIter int
	DistTol       float64
	MaxDistIter   int
}

func NewHousehold(grid *Grid, beta, sigma float64) *Household {
	return &Household{
		Grid:          grid,
		Beta:          beta,
		Sigma:         sigma,
		Weighting:     WeightLagged,
		Backend:       compute.NewSerialBackend(),
		PolicyTol:     1e-11,
		MaxPolicyIter: 5000,
		DistTol:       1e-13,
		MaxDistIter:   20000,
	}
}

func (h *Household) Validate() error {
	if h.Grid == nil {
		return fmt.Errorf("%w: household has no grid", ErrInvalidGrid)
	}
	if !(h.Beta > 0 && h.Beta < 1) {
		return fmt.Errorf("hetagent: beta %g outside (0, 1)", h.Beta)
	}
	if !(h.Sigma > 0) {
		return fmt.Errorf("hetagent: sigma %g must be positive", h.Sigma)
	}
	return nil
}

// InitialContinuation is the marginal value implied by consuming a tenth of
// cash on hand, used to start policy iteration.
func (h *Household) InitialContinuation(p Prices) Continuation {
	va := h.table()
	for i, e := range h.Grid.Income {
		for k, a := range h.Grid.Assets {
			coh := (1+p.R)*a + p.W*e
			va[i][k] = (1 + p.R) * math.Pow(0.1*coh+0.1, -h.Sigma)
		}
	}
	return Continuation{Va: va}
}

// Backward is one endogenous-grid step: given prices today and the marginal
// value of assets tomorrow it returns today's policy and marginal value.
func (h *Household) Backward(p Prices, next Continuation) (Decision, Continuation) {
	nE := h.Grid.NumIncome()
	savings := h.table()
	cons := h.table()
	va := h.table()

	compute.Or(h.Backend).ParallelFor(nE, func(i int) {
		h.backwardState(i, p, next, savings[i], cons[i], va[i])
	})

	return Decision{Savings: savings, Consumption: cons}, Continuation{Va: va}
}

func (h *Household) backwardState(i int, p Prices, next Continuation, savings, cons, va []float64) {
	assets := h.Grid.Assets
	nA := len(assets)
	pi := h.Grid.Transition.RawRowView(i)

	cohEndo := make([]float64, nA)
	for k := 0; k < nA; k++ {
		w := 0.0
		for j, prob := range pi {
			w += prob * next.Va[j][k]
		}
		cohEndo[k] = math.Pow(h.Beta*w, -1/h.Sigma) + assets[k]
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(cohEndo, assets); err != nil {
		// Non-monotone endogenous grid; poison the policy so the caller's
		// residual is non-finite.
		nan := math.NaN()
		for k := range savings {
			savings[k], cons[k], va[k] = nan, nan, nan
		}
		return
	}

	// Predict clamps at the last knot; above it savings follow the last
	// segment.
	amin := assets[0]
	cohTop := cohEndo[nA-1]
	slope := (assets[nA-1] - assets[nA-2]) / (cohTop - cohEndo[nA-2])
	for k, a := range assets {
		coh := (1+p.R)*a + p.W*h.Grid.Income[i]
		ap := pl.Predict(coh)
		if coh > cohTop {
			ap = assets[nA-1] + slope*(coh-cohTop)
		}
		if ap < amin {
			ap = amin
		}
		c := coh - ap
		savings[k] = ap
		cons[k] = c
		va[k] = (1 + p.R) * math.Pow(c, -h.Sigma)
	}
}

// Forward propagates the beginning-of-period distribution through the savings
// policy (lottery onto the two neighbouring grid points) and the income
// transition. It panics if probability mass is not conserved.
func (h *Household) Forward(d Distribution, dec Decision) Distribution {
	assets := h.Grid.Assets
	nA := len(assets)
	nE := h.Grid.NumIncome()

	end := h.table()
	for i := 0; i < nE; i++ {
		for k := 0; k < nA; k++ {
			m := d.Mass[i][k]
			if m == 0 {
				continue
			}
			ap := dec.Savings[i][k]
			j := sort.Search(nA, func(x int) bool { return assets[x] > ap }) - 1
			if j < 0 {
				j = 0
			}
			if j > nA-2 {
				j = nA - 2
			}
			w := (assets[j+1] - ap) / (assets[j+1] - assets[j])
			w = math.Min(1, math.Max(0, w))
			end[i][j] += w * m
			end[i][j+1] += (1 - w) * m
		}
	}

	out := h.table()
	for i := 0; i < nE; i++ {
		pi := h.Grid.Transition.RawRowView(i)
		for j, prob := range pi {
			if prob == 0 {
				continue
			}
			floats.AddScaled(out[j], prob, end[i])
		}
	}

	next := Distribution{Mass: out}
	if mass := next.Sum(); !math.IsNaN(mass) && math.Abs(mass-1) > MassTol {
		panic(fmt.Sprintf("hetagent: distribution mass %.15g after forward step", mass))
	}
	return next
}

// Aggregate runs one period of the household block: the backward step at the
// period's prices, the forward step from the lagged distribution and the
// aggregation under h.Weighting.
func (h *Household) Aggregate(p Prices, lag Distribution, next Continuation) (Aggregates, Distribution, Decision) {
	dec, _ := h.Backward(p, next)
	cur := h.Forward(lag, dec)
	return h.weigh(lag, cur, dec), cur, dec
}

func (h *Household) weigh(lag, cur Distribution, dec Decision) Aggregates {
	var agg Aggregates
	switch h.Weighting {
	case WeightCurrent:
		for i, row := range cur.Mass {
			agg.Assets += floats.Dot(row, h.Grid.Assets)
			agg.Consumption += floats.Dot(row, dec.Consumption[i])
		}
	default:
		for i, row := range lag.Mass {
			agg.Assets += floats.Dot(row, dec.Savings[i])
			agg.Consumption += floats.Dot(row, dec.Consumption[i])
		}
	}
	return agg
}

// UniformDistribution spreads each income state's stationary weight evenly
// over the asset grid.
func (h *Household) UniformDistribution() Distribution {
	mass := h.table()
	nA := float64(h.Grid.NumAssets())
	for i, w := range h.Grid.Stationary {
		for k := range mass[i] {
			mass[i][k] = w / nA
		}
	}
	return Distribution{Mass: mass}
}

func (h *Household) table() [][]float64 {
	t := make([][]float64, h.Grid.NumIncome())
	for i := range t {
		t[i] = make([]float64, h.Grid.NumAssets())
	}
	return t
}

func cloneTable(t [][]float64) [][]float64 {
	c := make([][]float64, len(t))
	for i, row := range t {
		c[i] = append([]float64(nil), row...)
	}
	return c
}

func maxAbsDiff(a, b [][]float64) float64 {
	m := 0.0
	for i := range a {
		for k := range a[i] {
			d := math.Abs(a[i][k] - b[i][k])
			if math.IsNaN(d) {
				return math.Inf(1)
			}
			if d > m {
				m = d
			}
		}
	}
	return m
}
