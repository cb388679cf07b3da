package slam

import "gonum.org/v1/gonum/mat"

// InitCond is initial condition of the estimator
type InitCond interface {
	// State returns initial robot pose [x, y, alpha]
	State() mat.Vector
	// Cov returns initial robot pose covariance
	Cov() mat.Symmetric
}

// Estimate is SLAM estimate
type Estimate interface {
	// Val returns estimated state vector
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is control or measurement noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset() error
}

// Map is a read-only view of the landmark map held by an estimator.
type Map interface {
	// NumLandmarks returns the number of mapped landmarks
	NumLandmarks() int
	// Index returns the landmark index of the landmark with the given id
	Index(id ID) (int, bool)
	// Innovation returns innovation vector and innovation covariance
	// of measurement z with respect to the landmark with index idx
	Innovation(z Measurement, idx int) (mat.Vector, mat.Symmetric, error)
}

// Associator resolves landmark identity of measurements
type Associator interface {
	// Associate matches measurement z to a landmark in m or declares it new
	Associate(m Map, z Measurement) (Association, error)
}

// Solver solves linear systems a*x = b with symmetric a.
type Solver interface {
	// Solve stores the solution of a*x = b in dst.
	// It returns error if a is singular or numerically ill-conditioned.
	Solve(dst *mat.Dense, a mat.Symmetric, b mat.Matrix) error
}
