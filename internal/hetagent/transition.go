package hetagent

import (
	"errors"
	"fmt"
)

var ErrNotConverged = errors.New("hetagent: stationary iteration did not converge")

// Steady is the stationary equilibrium of the household block at fixed prices.
type Steady struct {
	Prices       Prices
	Decision     Decision
	Continuation Continuation
	Distribution Distribution
	Aggregates   Aggregates

	PolicyIterations       int
	DistributionIterations int
}

// Stationary iterates the backward step to a fixed policy and then the forward
// step to the invariant distribution. On failure the best-effort solution is
// returned together with ErrNotConverged.
func (h *Household) Stationary(p Prices) (*Steady, error) {
	var (
		next = h.InitialContinuation(p)
		dec  Decision
		prev [][]float64
		err  error
	)

	policyIt := 0
	converged := false
	for policyIt < h.MaxPolicyIter {
		policyIt++
		dec, next = h.Backward(p, next)
		if prev != nil && maxAbsDiff(dec.Savings, prev) < h.PolicyTol {
			converged = true
			break
		}
		prev = dec.Savings
	}
	if !converged {
		err = fmt.Errorf("%w: policy after %d iterations", ErrNotConverged, policyIt)
	}

	dist := h.UniformDistribution()
	distIt := 0
	converged = false
	for distIt < h.MaxDistIter {
		distIt++
		nd := h.Forward(dist, dec)
		diff := maxAbsDiff(nd.Mass, dist.Mass)
		dist = nd
		if diff < h.DistTol {
			converged = true
			break
		}
	}
	if !converged && err == nil {
		err = fmt.Errorf("%w: distribution after %d iterations", ErrNotConverged, distIt)
	}

	return &Steady{
		Prices:                 p,
		Decision:               dec,
		Continuation:           next,
		Distribution:           dist,
		Aggregates:             h.weigh(dist, dist, dec),
		PolicyIterations:       policyIt,
		DistributionIterations: distIt,
	}, err
}

// Path is the household block's response to a price path.
type Path struct {
	Decisions []Decision
	// Distributions[0] is the initial distribution; Distributions[t] is the
	// distribution at the start of period t+1.
	Distributions []Distribution
	Aggregates    []Aggregates
}

// Transition solves the household block along prices[0..H-1]: a backward
// sweep from the terminal continuation (the marginal value in the period
// after the last) followed by a forward sweep from the initial distribution.
func (h *Household) Transition(prices []Prices, terminal Continuation, initial Distribution) *Path {
	H := len(prices)
	out := &Path{
		Decisions:     make([]Decision, H),
		Distributions: make([]Distribution, H+1),
		Aggregates:    make([]Aggregates, H),
	}

	next := terminal
	for t := H - 1; t >= 0; t-- {
		out.Decisions[t], next = h.Backward(prices[t], next)
	}

	out.Distributions[0] = initial
	for t := 0; t < H; t++ {
		lag := out.Distributions[t]
		cur := h.Forward(lag, out.Decisions[t])
		out.Distributions[t+1] = cur
		out.Aggregates[t] = h.weigh(lag, cur, out.Decisions[t])
	}

	return out
}
