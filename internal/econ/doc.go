// Package econ defines the core types shared by the equilibrium solvers.
//
// A model is a set of per-period equilibrium conditions over an ordered list
// of variables:
//
//   - [State]: one period's values, indexed by the model's variable order
//   - [Path]: a sequence of states starting at period 0
//   - [ResidualSystem]: residuals of the equilibrium conditions for one period,
//     given the lagged, current and lead states
//   - [Model]: variables, parameters, residual system and the cached steady state
//
// Models with heterogeneous households carry a [Heterogeneity] capability. The
// household block then turns each period's prices into the aggregates passed
// to the residual system in [Inputs].Aggregates.
//
// # Errors
//
// Solvers report failures as a [Flag] on their result together with a
// [*SolveError]. The error unwraps to one of the sentinel errors so callers
// can classify it with errors.Is:
//
//	res, err := horizon.FindPath(m, x0, 50, 500, opts)
//	if errors.Is(err, econ.ErrHorizonExceeded) {
//	    // res.Path still holds the best-effort path
//	}
package econ
