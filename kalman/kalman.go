package kalman

import (
	slam "github.com/milosgajdos/go-slam"
	"gonum.org/v1/gonum/mat"
)

// SLAM is Kalman filter SLAM estimator
type SLAM interface {
	// slam.Map is a read-only view of the landmark map
	slam.Map
	// Propagate propagates the estimate to the next step given control input
	Propagate(slam.Control) error
	// AddLandmark adds newly observed landmark to the estimate
	AddLandmark(slam.Measurement) (slam.ID, error)
	// Update corrects the estimate using measurement of a mapped landmark
	Update(slam.Measurement, int) error
	// Cov returns Kalman filter state covariance
	Cov() mat.Symmetric
	// Gain returns Kalman filter gain
	Gain() mat.Matrix
}
