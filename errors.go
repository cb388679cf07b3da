package slam

import "github.com/pkg/errors"

var (
	// ErrInvalidCovariance is returned when a covariance matrix is not square,
	// not symmetric or not non-negative definite
	ErrInvalidCovariance = errors.New("invalid covariance")
	// ErrDuplicateLandmark is returned when a landmark identifier is already mapped
	ErrDuplicateLandmark = errors.New("duplicate landmark id")
	// ErrDegenerateMeasurement is returned when a measurement has near-zero range
	// or its innovation covariance is singular
	ErrDegenerateMeasurement = errors.New("degenerate measurement")
	// ErrAmbiguousAssociation is returned when a measurement can not be uniquely
	// associated with a landmark
	ErrAmbiguousAssociation = errors.New("ambiguous association")
	// ErrDimensionMismatch is returned when a vector or matrix has wrong dimensions
	// or a landmark index is out of range
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
