// Package newton implements a damped Newton solver for square nonlinear
// systems.
//
// The Jacobian strategy is a Linearizer. Dense builds a full matrix from a
// JacobianProvider (FiniteDifference or AnalyticJacobian) and factorizes it
// with LU; other packages supply structured linearizers.
//
//	res, err := newton.Solve(f, &newton.Dense{
//	    Provider: &newton.FiniteDifference{F: f},
//	}, x0, newton.Options{Tol: 1e-10})
//	if errors.Is(err, econ.ErrSingularJacobian) {
//	    ...
//	}
//
// Each pass checks ‖f(x)‖∞ against Tol before stepping, so an exact initial
// guess returns after zero iterations. Steps are halved up to MaxBacktracks
// times until the residual norm strictly decreases.
package newton
