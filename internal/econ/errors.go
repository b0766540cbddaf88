package econ

import (
	"errors"
	"fmt"
)

// Flag is the convergence result of a solve. Zero means success.
type Flag int

const (
	Success Flag = iota
	NonConvergence
	SingularJacobian
	HorizonExceeded
	InvalidInput
)

func (f Flag) String() string {
	switch f {
	case Success:
		return "success"
	case NonConvergence:
		return "non-convergence"
	case SingularJacobian:
		return "singular jacobian"
	case HorizonExceeded:
		return "horizon exceeded"
	case InvalidInput:
		return "invalid input"
	default:
		return fmt.Sprintf("flag(%d)", int(f))
	}
}

var (
	// ErrNonConvergence indicates the Newton iteration ran out of iterations
	// or could not reduce the residual.
	ErrNonConvergence = errors.New("econ: no convergence within iteration limit")

	// ErrSingularJacobian indicates a linear solve failed numerically.
	ErrSingularJacobian = errors.New("econ: jacobian is singular or ill-conditioned")

	// ErrHorizonExceeded indicates the maximum horizon was reached without
	// convergence.
	ErrHorizonExceeded = errors.New("econ: maximum horizon reached without convergence")

	// ErrInvalidInput indicates shape mismatches or inconsistent arguments.
	ErrInvalidInput = errors.New("econ: invalid input")
)

func (f Flag) sentinel() error {
	switch f {
	case NonConvergence:
		return ErrNonConvergence
	case SingularJacobian:
		return ErrSingularJacobian
	case HorizonExceeded:
		return ErrHorizonExceeded
	case InvalidInput:
		return ErrInvalidInput
	}
	return nil
}

// SolveError carries the failing operation and its flag.
type SolveError struct {
	Op   string
	Flag Flag
	Msg  string
}

func (e *SolveError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Flag)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Flag, e.Msg)
}

func (e *SolveError) Unwrap() error {
	return e.Flag.sentinel()
}

func Errorf(op string, flag Flag, format string, args ...any) error {
	return &SolveError{Op: op, Flag: flag, Msg: fmt.Sprintf(format, args...)}
}

// FlagOf classifies err. A nil error is Success; errors that carry no flag
// are reported as NonConvergence.
func FlagOf(err error) Flag {
	if err == nil {
		return Success
	}
	var se *SolveError
	if errors.As(err, &se) {
		return se.Flag
	}
	switch {
	case errors.Is(err, ErrSingularJacobian):
		return SingularJacobian
	case errors.Is(err, ErrHorizonExceeded):
		return HorizonExceeded
	case errors.Is(err, ErrInvalidInput):
		return InvalidInput
	}
	return NonConvergence
}
