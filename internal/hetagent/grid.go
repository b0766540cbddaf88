package hetagent

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidGrid         = errors.New("hetagent: invalid grid")
	ErrInvalidDistribution = errors.New("hetagent: invalid distribution")
)

// Grid is the discretized idiosyncratic state space: an asset grid crossed
// with a finite Markov chain for labor income.
type Grid struct {
	// Assets is strictly increasing; Assets[0] is the borrowing limit.
	Assets []float64
	// Income holds the efficiency units of each income state.
	Income []float64
	// Transition is row-stochastic: Transition.At(i, j) is the probability of
	// moving from income state i to j.
	Transition *mat.Dense
	// Stationary is the invariant distribution of the income chain.
	Stationary []float64
}

func (g *Grid) NumAssets() int { return len(g.Assets) }
func (g *Grid) NumIncome() int { return len(g.Income) }

// Size is the number of grid points of the joint state space.
func (g *Grid) Size() int { return len(g.Assets) * len(g.Income) }

// CheckDistribution reports whether d is a probability distribution over g:
// one row per income state, one entry per asset point, non-negative and
// summing to one within MassTol.
func (g *Grid) CheckDistribution(d Distribution) error {
	if len(d.Mass) != g.NumIncome() {
		return fmt.Errorf("%w: %d income rows, want %d", ErrInvalidDistribution, len(d.Mass), g.NumIncome())
	}
	for i, row := range d.Mass {
		if len(row) != g.NumAssets() {
			return fmt.Errorf("%w: income row %d has %d asset points, want %d", ErrInvalidDistribution, i, len(row), g.NumAssets())
		}
		for k, m := range row {
			if !(m >= 0) || math.IsInf(m, 1) {
				return fmt.Errorf("%w: mass %g at [%d][%d]", ErrInvalidDistribution, m, i, k)
			}
		}
	}
	if s := d.Sum(); math.Abs(s-1) > MassTol {
		return fmt.Errorf("%w: total mass %.15g", ErrInvalidDistribution, s)
	}
	return nil
}

// NewAssetGrid returns n points between lo and hi, concentrated towards lo by
// the given curvature (1 is uniform).
func NewAssetGrid(lo, hi float64, n int, curvature float64) ([]float64, error) {
	if n < 2 || !(hi > lo) || curvature <= 0 {
		return nil, fmt.Errorf("%w: asset grid n=%d lo=%g hi=%g curvature=%g", ErrInvalidGrid, n, lo, hi, curvature)
	}
	u := floats.Span(make([]float64, n), 0, 1)
	grid := make([]float64, n)
	for i, v := range u {
		grid[i] = lo + (hi-lo)*math.Pow(v, curvature)
	}
	return grid, nil
}

// Rouwenhorst discretizes an AR(1) in log income with persistence rho into n
// states evenly spaced on [-spread, spread]. Income levels are normalized to
// mean one under the stationary distribution.
func Rouwenhorst(n int, rho, spread float64) (income []float64, transition *mat.Dense, stationary []float64, err error) {
	if n < 2 || rho <= -1 || rho >= 1 || spread <= 0 {
		return nil, nil, nil, fmt.Errorf("%w: rouwenhorst n=%d rho=%g spread=%g", ErrInvalidGrid, n, rho, spread)
	}

	p := (1 + rho) / 2
	P := [][]float64{{p, 1 - p}, {1 - p, p}}
	for m := 3; m <= n; m++ {
		next := make([][]float64, m)
		for i := range next {
			next[i] = make([]float64, m)
		}
		for i := 0; i < m-1; i++ {
			for j := 0; j < m-1; j++ {
				v := P[i][j]
				next[i][j] += p * v
				next[i][j+1] += (1 - p) * v
				next[i+1][j] += (1 - p) * v
				next[i+1][j+1] += p * v
			}
		}
		for i := 1; i < m-1; i++ {
			floats.Scale(0.5, next[i])
		}
		P = next
	}

	transition = mat.NewDense(n, n, nil)
	for i, row := range P {
		transition.SetRow(i, row)
	}

	stationary = make([]float64, n)
	for k := range stationary {
		stationary[k] = binomial(n-1, k) / math.Pow(2, float64(n-1))
	}

	logs := floats.Span(make([]float64, n), -spread, spread)
	income = make([]float64, n)
	for i, v := range logs {
		income[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Dot(stationary, income), income)

	return income, transition, stationary, nil
}

func binomial(n, k int) float64 {
	r := 1.0
	for i := 1; i <= k; i++ {
		r *= float64(n-k+i) / float64(i)
	}
	return r
}

// NewGrid validates and assembles a grid.
func NewGrid(assets, income []float64, transition *mat.Dense, stationary []float64) (*Grid, error) {
	if len(assets) < 2 {
		return nil, fmt.Errorf("%w: need at least two asset points", ErrInvalidGrid)
	}
	for i := 1; i < len(assets); i++ {
		if !(assets[i] > assets[i-1]) {
			return nil, fmt.Errorf("%w: asset grid not increasing at %d", ErrInvalidGrid, i)
		}
	}
	n := len(income)
	if n == 0 || len(stationary) != n {
		return nil, fmt.Errorf("%w: %d income states, %d stationary weights", ErrInvalidGrid, n, len(stationary))
	}
	if r, c := transition.Dims(); r != n || c != n {
		return nil, fmt.Errorf("%w: transition is %dx%d, want %dx%d", ErrInvalidGrid, r, c, n, n)
	}
	for i := 0; i < n; i++ {
		if s := floats.Sum(transition.RawRowView(i)); math.Abs(s-1) > 1e-12 {
			return nil, fmt.Errorf("%w: transition row %d sums to %g", ErrInvalidGrid, i, s)
		}
	}
	if s := floats.Sum(stationary); math.Abs(s-1) > 1e-12 {
		return nil, fmt.Errorf("%w: stationary weights sum to %g", ErrInvalidGrid, s)
	}

	return &Grid{
		Assets:     append([]float64(nil), assets...),
		Income:     append([]float64(nil), income...),
		Transition: mat.DenseCopyOf(transition),
		Stationary: append([]float64(nil), stationary...),
	}, nil
}
