// Package hetagent implements the household block of heterogeneous-agent
// models: a consumption-savings problem over an asset grid and a Markov
// income chain.
//
// Each period is one application of Aggregate:
//
//   - backward: endogenous grid step from tomorrow's marginal value of assets
//   - forward: lottery of the lagged distribution onto the asset grid, then
//     the income transition
//   - aggregate: assets and consumption under the household's Weighting
//
// Transition strings periods together for a whole price path and Stationary
// finds the fixed point at constant prices. Distributions always sum to one;
// Forward panics otherwise, since a leak means the grid or the policy is
// malformed.
package hetagent
