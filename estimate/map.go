// Package estimate provides immutable snapshots of SLAM estimates.
package estimate

import (
	slam "github.com/milosgajdos/go-slam"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Map is a snapshot of a SLAM estimate: robot pose and landmark positions
// together with their joint covariance. Map never changes once created.
type Map struct {
	// val is estimated state vector
	val *mat.VecDense
	// cov is estimated covariance
	cov *mat.SymDense
	// ids are landmark identifiers in state vector order
	ids []slam.ID
}

// NewMap returns Map given state vector val, its covariance cov and landmark identifiers ids.
// It returns slam.ErrDimensionMismatch error if val does not hold the robot pose followed
// by one position per identifier or if cov size does not match val.
func NewMap(val mat.Vector, cov mat.Symmetric, ids []slam.ID) (*Map, error) {
	n := val.Len()
	if n != slam.PoseDim+2*len(ids) {
		return nil, errors.Wrapf(slam.ErrDimensionMismatch, "state size %d does not match %d landmarks", n, len(ids))
	}

	if cov.SymmetricDim() != n {
		return nil, errors.Wrapf(slam.ErrDimensionMismatch, "state: %d, cov: %d x %d", n, cov.SymmetricDim(), cov.SymmetricDim())
	}

	v := &mat.VecDense{}
	v.CloneFromVec(val)

	c := mat.NewSymDense(n, nil)
	c.CopySym(cov)

	i := make([]slam.ID, len(ids))
	copy(i, ids)

	return &Map{
		val: v,
		cov: c,
		ids: i,
	}, nil
}

// Val returns estimated state vector
func (m *Map) Val() mat.Vector {
	v := &mat.VecDense{}
	v.CloneFromVec(m.val)

	return v
}

// Cov returns covariance estimate
func (m *Map) Cov() mat.Symmetric {
	cov := mat.NewSymDense(m.cov.SymmetricDim(), nil)
	cov.CopySym(m.cov)

	return cov
}

// Pose returns estimated robot pose
func (m *Map) Pose() slam.Pose {
	return slam.Pose{X: m.val.AtVec(0), Y: m.val.AtVec(1), Alpha: m.val.AtVec(2)}
}

// PoseCov returns 3x3 robot pose covariance
func (m *Map) PoseCov() mat.Symmetric {
	return m.block(0, slam.PoseDim)
}

// IDs returns landmark identifiers in the order the landmarks were mapped
func (m *Map) IDs() []slam.ID {
	ids := make([]slam.ID, len(m.ids))
	copy(ids, m.ids)

	return ids
}

// NumLandmarks returns number of mapped landmarks
func (m *Map) NumLandmarks() int {
	return len(m.ids)
}

// Landmark returns landmark with index idx.
// It returns slam.ErrDimensionMismatch error if idx is out of range.
func (m *Map) Landmark(idx int) (slam.Landmark, error) {
	if idx < 0 || idx >= len(m.ids) {
		return slam.Landmark{}, errors.Wrapf(slam.ErrDimensionMismatch, "landmark index %d out of range", idx)
	}

	o := slam.PoseDim + 2*idx

	return slam.Landmark{ID: m.ids[idx], X: m.val.AtVec(o), Y: m.val.AtVec(o + 1)}, nil
}

// Landmarks returns all mapped landmarks
func (m *Map) Landmarks() []slam.Landmark {
	lms := make([]slam.Landmark, len(m.ids))
	for i := range lms {
		lms[i], _ = m.Landmark(i)
	}

	return lms
}

// LandmarkCov returns 2x2 marginal covariance of the landmark with index idx.
// It returns slam.ErrDimensionMismatch error if idx is out of range.
func (m *Map) LandmarkCov(idx int) (mat.Symmetric, error) {
	if idx < 0 || idx >= len(m.ids) {
		return nil, errors.Wrapf(slam.ErrDimensionMismatch, "landmark index %d out of range", idx)
	}

	return m.block(slam.PoseDim+2*idx, 2), nil
}

func (m *Map) block(o, n int) mat.Symmetric {
	b := mat.NewSymDense(n, nil)
	b.CopySym(m.cov.SliceSym(o, o+n))

	return b
}
