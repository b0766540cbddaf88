// Package stack turns a model's period residual into one nonlinear system over
// a finite horizon and solves it.
//
// For a horizon H and n variables the unknowns are periods 1..H. Period 0 is
// the given initial state and period H+1 is pinned to the steady state:
//
//	x_0 | x_1 x_2 ... x_H | x_ss
//	      ^ unknowns ^
//
// Period t's residual depends on (x_{t-1}, x_t, x_{t+1}), so the Jacobian is
// block tridiagonal. BlockLinearizer builds the blocks period by period
// (analytic or finite differences) and BlockFactor solves with a block
// Thomas recursion in O(H·n³).
//
// Heterogeneous-agent models run the household block over the whole price
// path before evaluating the period residuals, and use a dense finite
// difference Jacobian.
package stack
