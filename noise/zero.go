// Package noise implements control and measurement noise sources.
package noise

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Zero is zero noise of a fixed size: zero mean and zero covariance.
// Estimators given Zero noise add no uncertainty in the step the noise is used in.
type Zero struct {
	size int
}

// NewZero creates new zero noise of given size.
// It returns error if size is non-positive.
func NewZero(size int) (*Zero, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid noise dimension: %d", size)
	}

	return &Zero{size: size}, nil
}

// Sample returns zero vector.
func (e *Zero) Sample() mat.Vector {
	return mat.NewVecDense(e.size, nil)
}

// Cov returns zero covariance matrix.
func (e *Zero) Cov() mat.Symmetric {
	return mat.NewSymDense(e.size, nil)
}

// Mean returns zero mean.
func (e *Zero) Mean() []float64 {
	return make([]float64, e.size)
}

// Reset does nothing: Zero noise has no random state.
func (e *Zero) Reset() error {
	return nil
}

// String implements the Stringer interface.
func (e *Zero) String() string {
	return fmt.Sprintf("Zero{\nMean=%v\nCov=%v\n}", e.Mean(), mat.Formatted(e.Cov(), mat.Prefix("    "), mat.Squeeze()))
}

// None is noise with empty mean and zero size covariance matrix.
// Estimators treat None as zero noise of whatever size they need.
type None struct{}

// NewNone creates new None noise and returns it
func NewNone() (*None, error) {
	return &None{}, nil
}

// Sample returns zero size vector.
func (e *None) Sample() mat.Vector {
	return &mat.VecDense{}
}

// Cov returns zero size covariance matrix.
func (e *None) Cov() mat.Symmetric {
	return &mat.SymDense{}
}

// Mean returns empty mean.
func (e *None) Mean() []float64 {
	return nil
}

// Reset does nothing: it's here to implement slam.Noise interface
func (e *None) Reset() error {
	return nil
}
