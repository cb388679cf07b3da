package model

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// NumericJacobian approximates m x len(x) Jacobian of f at x using central differences.
// f stores function value at its second argument in its first argument.
func NumericJacobian(f func(y, x []float64), m int, x []float64) *mat.Dense {
	jac := mat.NewDense(m, len(x), nil)

	fd.Jacobian(jac, f, x, &fd.JacobianSettings{
		Formula:    fd.Central,
		Concurrent: true,
	})

	return jac
}
