package matrix

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	gmatrix "github.com/milosgajdos/matrix"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

const (
	// SymTol is absolute tolerance used when checking matrix symmetry
	SymTol = 1e-9
	// EigTol is tolerance of negative eigenvalues of non-negative definite matrices
	EigTol = 1e-12
)

// CheckCov checks that c is a valid n x n covariance matrix:
// square, finite, symmetric, with non-negative diagonal and non-negative eigenvalues.
// It returns slam.ErrInvalidCovariance or slam.ErrDimensionMismatch error otherwise.
func CheckCov(c mat.Matrix, n int) error {
	if c == nil {
		return errors.Wrap(slam.ErrInvalidCovariance, "nil matrix")
	}

	rows, cols := c.Dims()
	if rows != cols {
		return errors.Wrapf(slam.ErrInvalidCovariance, "not square: [%d x %d]", rows, cols)
	}

	if rows != n {
		return errors.Wrapf(slam.ErrDimensionMismatch, "expected [%d x %d] covariance, got: [%d x %d]", n, n, rows, cols)
	}

	for i := 0; i < rows; i++ {
		for j := i; j < cols; j++ {
			v := c.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(slam.ErrInvalidCovariance, "non-finite element at (%d, %d)", i, j)
			}
			if !scalar.EqualWithinAbs(v, c.At(j, i), SymTol) {
				return errors.Wrapf(slam.ErrInvalidCovariance, "not symmetric at (%d, %d)", i, j)
			}
		}
		if c.At(i, i) < 0 {
			return errors.Wrapf(slam.ErrInvalidCovariance, "negative variance at (%d, %d)", i, i)
		}
	}

	if n == 0 {
		return nil
	}

	sym := mat.NewSymDense(n, nil)
	Symmetrize(sym, c)

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, false); !ok {
		return errors.Wrap(slam.ErrInvalidCovariance, "eigen decomposition failed")
	}

	vals := eig.Values(nil)
	scale := math.Max(1, floats.Max(vals))
	if lo := floats.Min(vals); lo < -EigTol*scale {
		return errors.Wrapf(slam.ErrInvalidCovariance, "negative eigenvalue: %g", lo)
	}

	return nil
}

// Symmetrize stores (m + m')/2 in dst.
// It panics if m is not square or its size differs from dst.
func Symmetrize(dst *mat.SymDense, m mat.Matrix) {
	n := dst.SymmetricDim()
	if r, c := m.Dims(); r != n || c != n {
		panic(mat.ErrShape)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
}

// Identity returns n x n identity matrix.
// It panics if n is not positive.
func Identity(n int) mat.Matrix {
	eye, err := gmatrix.NewDenseValIdentity(n, 1.0)
	if err != nil {
		panic(err)
	}

	return eye
}

// IsFinite returns true if all elements of m are finite.
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}
