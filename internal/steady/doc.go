// Package steady computes the steady state of a model: the state x at which
// the period residual vanishes with x as lag, current and lead value.
//
// Solve caches the result on the model, where the stacked-time solvers read
// it as their terminal condition. A singular Jacobian is reported as
// econ.SingularJacobian and never retried.
package steady
