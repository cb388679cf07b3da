// Package ekf implements Extended Kalman Filter SLAM estimator of a planar
// robot with a range-bearing sensor.
package ekf

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/estimate"
	"github.com/milosgajdos/go-slam/matrix"
	"github.com/milosgajdos/go-slam/noise"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DefaultMinRange is the default minimum accepted measurement range
const DefaultMinRange = 1e-6

// Config is EKF SLAM estimator configuration
type Config struct {
	// Solver solves innovation covariance systems.
	// matrix.Cholesky with default condition limit is used if nil.
	Solver slam.Solver
	// MinRange is minimum accepted measured and predicted landmark range.
	// DefaultMinRange is used if it's not positive.
	MinRange float64
	// Capacity is the number of landmarks the covariance storage is pre-allocated for.
	Capacity int
}

// landmark is mapped landmark
type landmark struct {
	id slam.ID
	x  float64
	y  float64
}

// Estimator is EKF SLAM estimator.
//
// State vector is robot pose [x, y, alpha] followed by [x, y] positions of
// landmarks in the order they were added. Landmarks are never removed so
// landmark indices and their state vector offsets never change.
//
// Estimator is not safe for concurrent use.
type Estimator struct {
	// pose is robot pose estimate
	pose slam.Pose
	// lms are mapped landmarks
	lms []landmark
	// index maps landmark id to landmark index
	index map[slam.ID]int
	// nextID is the next candidate for an automatically assigned landmark id
	nextID slam.ID
	// p is state covariance; it is a view into a larger arena of arenaDim size
	p *mat.SymDense
	// arenaDim is the size of the covariance arena
	arenaDim int
	// q is control a.k.a. process noise covariance
	q *mat.SymDense
	// r is measurement noise covariance
	r *mat.SymDense
	// solver solves innovation covariance systems
	solver slam.Solver
	// minRange is minimum accepted range
	minRange float64
	// inn is the last innovation vector
	inn *mat.VecDense
	// k is the last Kalman gain
	k *mat.Dense
}

// New creates new EKF SLAM estimator and returns it.
// It accepts the following parameters:
// - ic: initial robot pose and its covariance
// - q:  control a.k.a. process noise of [Dx, Dalpha] control input
// - r:  measurement noise of [range, bearing] measurements
// - c:  estimator configuration; defaults are used if c is nil
// Nil noise or noise.None is treated as zero noise.
// It returns error if either of the following conditions is met:
// - initial state is not a 3 element vector: slam.ErrDimensionMismatch
// - initial covariance, q or r covariance is not a valid covariance matrix: slam.ErrInvalidCovariance
func New(ic slam.InitCond, q, r slam.Noise, c *Config) (*Estimator, error) {
	if ic == nil {
		return nil, errors.Wrap(slam.ErrDimensionMismatch, "missing initial condition")
	}

	if s := ic.State(); s == nil || s.Len() != slam.PoseDim {
		return nil, errors.Wrap(slam.ErrDimensionMismatch, "initial state must be a 3 element vector")
	}

	pose, err := slam.PoseFromVec(ic.State())
	if err != nil {
		return nil, err
	}
	if math.IsNaN(pose.X+pose.Y+pose.Alpha) || math.IsInf(pose.X+pose.Y+pose.Alpha, 0) {
		return nil, errors.Errorf("invalid initial pose: %v", pose)
	}

	if err := matrix.CheckCov(ic.Cov(), slam.PoseDim); err != nil {
		return nil, errors.Wrap(err, "initial covariance")
	}

	qCov, err := noiseCov(q)
	if err != nil {
		return nil, errors.Wrap(err, "control noise")
	}

	rCov, err := noiseCov(r)
	if err != nil {
		return nil, errors.Wrap(err, "measurement noise")
	}

	if c == nil {
		c = &Config{}
	}

	solver := c.Solver
	if solver == nil {
		solver = matrix.Cholesky{}
	}

	minRange := c.MinRange
	if minRange <= 0 {
		minRange = DefaultMinRange
	}

	arenaDim := slam.PoseDim + 2*max(c.Capacity, 0)
	p := newArena(arenaDim, slam.PoseDim)
	p.CopySym(ic.Cov())

	return &Estimator{
		pose:     pose,
		index:    make(map[slam.ID]int),
		p:        p,
		arenaDim: arenaDim,
		q:        qCov,
		r:        rCov,
		solver:   solver,
		minRange: minRange,
		inn:      mat.NewVecDense(2, nil),
		k:        mat.NewDense(slam.PoseDim, 2, nil),
	}, nil
}

// noiseCov returns validated 2x2 covariance of noise n
func noiseCov(n slam.Noise) (*mat.SymDense, error) {
	cov := mat.NewSymDense(2, nil)

	if n == nil {
		return cov, nil
	}
	if _, ok := n.(*noise.None); ok {
		return cov, nil
	}

	if err := matrix.CheckCov(n.Cov(), 2); err != nil {
		return nil, err
	}
	cov.CopySym(n.Cov())

	return cov, nil
}

// SetProcessNoise sets control noise to q.
// It returns slam.ErrInvalidCovariance error if q covariance is invalid; the estimator is not modified then.
func (e *Estimator) SetProcessNoise(q slam.Noise) error {
	cov, err := noiseCov(q)
	if err != nil {
		return err
	}
	e.q = cov

	return nil
}

// SetMeasurementNoise sets measurement noise to r.
// It returns slam.ErrInvalidCovariance error if r covariance is invalid; the estimator is not modified then.
func (e *Estimator) SetMeasurementNoise(r slam.Noise) error {
	cov, err := noiseCov(r)
	if err != nil {
		return err
	}
	e.r = cov

	return nil
}

// Dim returns state vector dimension
func (e *Estimator) Dim() int {
	return slam.PoseDim + 2*len(e.lms)
}

// NumLandmarks returns number of mapped landmarks
func (e *Estimator) NumLandmarks() int {
	return len(e.lms)
}

// Index returns index of the landmark with given id
func (e *Estimator) Index(id slam.ID) (int, bool) {
	idx, ok := e.index[id]
	return idx, ok
}

// IDs returns landmark identifiers in the order the landmarks were added
func (e *Estimator) IDs() []slam.ID {
	ids := make([]slam.ID, len(e.lms))
	for i, l := range e.lms {
		ids[i] = l.id
	}

	return ids
}

// Pose returns robot pose estimate
func (e *Estimator) Pose() slam.Pose {
	return e.pose
}

// Landmark returns estimate of the landmark with index idx.
// It returns slam.ErrDimensionMismatch error if idx is out of range.
func (e *Estimator) Landmark(idx int) (slam.Landmark, error) {
	if err := e.checkIndex(idx); err != nil {
		return slam.Landmark{}, err
	}
	l := e.lms[idx]

	return slam.Landmark{ID: l.id, X: l.x, Y: l.y}, nil
}

// State returns state vector: robot pose followed by landmark positions
func (e *Estimator) State() mat.Vector {
	data := make([]float64, 0, e.Dim())
	data = append(data, e.pose.X, e.pose.Y, e.pose.Alpha)
	for _, l := range e.lms {
		data = append(data, l.x, l.y)
	}

	return mat.NewVecDense(len(data), data)
}

// Cov returns EKF covariance
func (e *Estimator) Cov() mat.Symmetric {
	cov := mat.NewSymDense(e.p.SymmetricDim(), nil)
	cov.CopySym(e.p)

	return cov
}

// PoseCov returns 3x3 robot pose covariance
func (e *Estimator) PoseCov() mat.Symmetric {
	cov := mat.NewSymDense(slam.PoseDim, nil)
	cov.CopySym(e.p.SliceSym(0, slam.PoseDim))

	return cov
}

// LandmarkCov returns 2x2 marginal covariance of the landmark with index idx.
// It returns slam.ErrDimensionMismatch error if idx is out of range.
func (e *Estimator) LandmarkCov(idx int) (mat.Symmetric, error) {
	if err := e.checkIndex(idx); err != nil {
		return nil, err
	}
	o := offset(idx)

	cov := mat.NewSymDense(2, nil)
	cov.CopySym(e.p.SliceSym(o, o+2))

	return cov, nil
}

// Gain returns the Kalman gain of the last measurement update
func (e *Estimator) Gain() mat.Matrix {
	gain := &mat.Dense{}
	gain.CloneFrom(e.k)

	return gain
}

// LastInnovation returns the innovation vector of the last measurement update
func (e *Estimator) LastInnovation() mat.Vector {
	inn := &mat.VecDense{}
	inn.CloneFromVec(e.inn)

	return inn
}

// Estimate returns snapshot of the current estimate
func (e *Estimator) Estimate() *estimate.Map {
	m, err := estimate.NewMap(e.State(), e.p, e.IDs())
	if err != nil {
		// state and covariance dimensions are kept in sync by every operation
		panic(err)
	}

	return m
}

func (e *Estimator) checkIndex(idx int) error {
	if idx < 0 || idx >= len(e.lms) {
		return errors.Wrapf(slam.ErrDimensionMismatch, "landmark index %d out of range [0, %d)", idx, len(e.lms))
	}

	return nil
}

// offset returns state vector offset of the landmark with index idx
func offset(idx int) int {
	return slam.PoseDim + 2*idx
}

// newArena allocates size x size covariance arena and returns its n x n view
func newArena(size, n int) *mat.SymDense {
	return mat.NewSymDense(size, nil).SliceSym(0, n).(*mat.SymDense)
}

// grow returns covariance expanded by n rows and columns.
// The arena doubles when it runs out of space. The receiver is not modified.
func (e *Estimator) grow(n int) (*mat.SymDense, int) {
	dim := e.p.SymmetricDim() + n
	if dim <= e.arenaDim {
		return e.p.GrowSym(n).(*mat.SymDense), e.arenaDim
	}

	arenaDim := 2 * dim
	p := newArena(arenaDim, e.p.SymmetricDim())
	p.CopySym(e.p)

	return p.GrowSym(n).(*mat.SymDense), arenaDim
}

// rows returns rows [r0, r1) of symmetric matrix p
func rows(p mat.Symmetric, r0, r1 int) *mat.Dense {
	n := p.SymmetricDim()
	out := mat.NewDense(r1-r0, n, nil)
	for i := r0; i < r1; i++ {
		for j := 0; j < n; j++ {
			out.Set(i-r0, j, p.At(i, j))
		}
	}

	return out
}
