package matrix

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxCond is the default condition number above which a matrix is treated as singular
const DefaultMaxCond = 1e12

// ErrSingular is returned when a linear system matrix is singular or ill-conditioned
var ErrSingular = errors.New("singular matrix")

// Cholesky solves symmetric positive definite systems using Cholesky factorization.
type Cholesky struct {
	// MaxCond is the maximum accepted condition number.
	// DefaultMaxCond is used if it's not positive.
	MaxCond float64
}

// Solve stores the solution of a*x = b in dst.
// It returns ErrSingular if a is not positive definite or its condition number exceeds c.MaxCond.
func (c Cholesky) Solve(dst *mat.Dense, a mat.Symmetric, b mat.Matrix) error {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return errors.Wrap(ErrSingular, "matrix is not positive definite")
	}

	if cond := chol.Cond(); cond > maxCond(c.MaxCond) {
		return errors.Wrapf(ErrSingular, "condition number: %g", cond)
	}

	if err := chol.SolveTo(dst, b); err != nil {
		return errors.Wrap(ErrSingular, err.Error())
	}

	return nil
}

// LU solves general systems using LU factorization with partial pivoting.
type LU struct {
	// MaxCond is the maximum accepted condition number.
	// DefaultMaxCond is used if it's not positive.
	MaxCond float64
}

// Solve stores the solution of a*x = b in dst.
// It returns ErrSingular if a is singular or its condition number exceeds l.MaxCond.
func (l LU) Solve(dst *mat.Dense, a mat.Symmetric, b mat.Matrix) error {
	var lu mat.LU
	lu.Factorize(a)

	if cond := lu.Cond(); cond > maxCond(l.MaxCond) {
		return errors.Wrapf(ErrSingular, "condition number: %g", cond)
	}

	if err := lu.SolveTo(dst, false, b); err != nil {
		return errors.Wrap(ErrSingular, err.Error())
	}

	return nil
}

func maxCond(c float64) float64 {
	if c <= 0 {
		return DefaultMaxCond
	}

	return c
}
