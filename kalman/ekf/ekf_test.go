package ekf

import (
	"math"
	"os"
	"testing"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/associate"
	"github.com/milosgajdos/go-slam/kalman"
	"github.com/milosgajdos/go-slam/matrix"
	"github.com/milosgajdos/go-slam/model"
	"github.com/milosgajdos/go-slam/noise"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

var _ kalman.SLAM = (*Estimator)(nil)

// covNoise is noise with arbitrary covariance which is not validated
type covNoise struct {
	cov mat.Symmetric
}

func (n *covNoise) Mean() []float64 { return make([]float64, n.cov.SymmetricDim()) }
func (n *covNoise) Cov() mat.Symmetric { return n.cov }
func (n *covNoise) Sample() mat.Vector { return mat.NewVecDense(n.cov.SymmetricDim(), nil) }
func (n *covNoise) Reset() error { return nil }

var (
	ic    *model.InitCond
	zeroQ slam.Noise
	q     slam.Noise
	r     slam.Noise
)

func setup() {
	ic = model.NewInitCond(slam.Pose{}, mat.NewSymDense(3, []float64{
		0.1, 0, 0,
		0, 0.1, 0,
		0, 0, 0.01,
	}))

	zeroQ, _ = noise.NewZero(2)
	q, _ = noise.NewGaussian([]float64{0, 0}, mat.NewSymDense(2, []float64{0.01, 0, 0, 0.001}), 1)
	r, _ = noise.NewGaussian([]float64{0, 0}, mat.NewSymDense(2, []float64{0.01, 0, 0, 0.001}), 2)
}

func TestMain(m *testing.M) {
	// set up tests
	setup()
	// run the tests
	retCode := m.Run()
	// call with result of m.Run()
	os.Exit(retCode)
}

func zeroInitCond(pose slam.Pose) *model.InitCond {
	return model.NewInitCond(pose, mat.NewSymDense(3, nil))
}

func assertValidCov(assert *assert.Assertions, p mat.Symmetric) {
	n := p.SymmetricDim()
	assert.NoError(matrix.CheckCov(p, n))
}

// snapshot returns copies of estimator state and covariance
func snapshot(e *Estimator) (*mat.VecDense, *mat.SymDense) {
	x := mat.VecDenseCopyOf(e.State())
	p := mat.NewSymDense(e.Dim(), nil)
	p.CopySym(e.Cov())

	return x, p
}

func assertUnchanged(assert *assert.Assertions, e *Estimator, x *mat.VecDense, p *mat.SymDense) {
	assert.True(mat.Equal(x, e.State()))
	assert.True(mat.Equal(p, e.Cov()))
}

func TestEKFNew(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NotNil(e)
	assert.NoError(err)
	assert.Equal(3, e.Dim())
	assert.Equal(0, e.NumLandmarks())

	// nil noise is zero noise
	e, err = New(ic, nil, nil, nil)
	assert.NotNil(e)
	assert.NoError(err)

	none, err := noise.NewNone()
	assert.NoError(err)
	e, err = New(ic, none, none, &Config{Capacity: 10})
	assert.NotNil(e)
	assert.NoError(err)

	// missing initial condition
	e, err = New(nil, q, r, nil)
	assert.Nil(e)
	assert.True(errors.Is(err, slam.ErrDimensionMismatch))

	// invalid initial covariance
	badIC := model.NewInitCond(slam.Pose{}, mat.NewSymDense(3, []float64{
		-1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}))
	e, err = New(badIC, q, r, nil)
	assert.Nil(e)
	assert.True(errors.Is(err, slam.ErrInvalidCovariance))

	// initial covariance of wrong size
	badIC = model.NewInitCond(slam.Pose{}, mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	e, err = New(badIC, q, r, nil)
	assert.Nil(e)
	assert.True(errors.Is(err, slam.ErrDimensionMismatch))

	// indefinite control noise
	bad := &covNoise{cov: mat.NewSymDense(2, []float64{1, 2, 2, 1})}
	e, err = New(ic, bad, r, nil)
	assert.Nil(e)
	assert.True(errors.Is(err, slam.ErrInvalidCovariance))

	// measurement noise of wrong size
	bad = &covNoise{cov: mat.NewSymDense(3, nil)}
	e, err = New(ic, q, bad, nil)
	assert.Nil(e)
	assert.True(errors.Is(err, slam.ErrDimensionMismatch))

	// non-finite initial pose
	e, err = New(model.NewInitCond(slam.Pose{X: math.NaN()}, mat.NewSymDense(3, nil)), q, r, nil)
	assert.Nil(e)
	assert.Error(err)
}

func TestEKFSetNoise(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NoError(err)

	bad := &covNoise{cov: mat.NewSymDense(2, []float64{1, 2, 2, 1})}
	assert.True(errors.Is(e.SetProcessNoise(bad), slam.ErrInvalidCovariance))
	assert.True(errors.Is(e.SetMeasurementNoise(bad), slam.ErrInvalidCovariance))

	assert.NoError(e.SetProcessNoise(zeroQ))
	assert.NoError(e.SetMeasurementNoise(r))
}

func TestEKFPropagateStraightLine(t *testing.T) {
	assert := assert.New(t)

	e, err := New(zeroInitCond(slam.Pose{}), zeroQ, r, nil)
	assert.NoError(err)

	for i := 1; i <= 5; i++ {
		assert.NoError(e.Propagate(slam.Control{Dx: 1}))
		p := e.Pose()
		assert.InDelta(float64(i), p.X, 1e-12)
		assert.InDelta(0.0, p.Y, 1e-12)
		assert.InDelta(0.0, p.Alpha, 1e-12)
	}
}

func TestEKFPropagateScenario(t *testing.T) {
	assert := assert.New(t)

	e, err := New(zeroInitCond(slam.Pose{}), zeroQ, r, nil)
	assert.NoError(err)

	dt := 0.02
	for i := 0; i < 5; i++ {
		assert.NoError(e.Propagate(slam.Control{Dx: 2 * dt}))
	}

	p := e.Pose()
	assert.InDelta(0.2, p.X, 1e-12)
	assert.InDelta(0.0, p.Y, 1e-12)
	assert.InDelta(0.0, p.Alpha, 1e-12)
	assert.True(mat.Equal(mat.NewSymDense(3, nil), e.PoseCov()))
}

func TestEKFPropagateCov(t *testing.T) {
	assert := assert.New(t)

	qn, err := noise.NewGaussian([]float64{0, 0}, mat.NewSymDense(2, []float64{0.2, 0, 0, 0.3}), 1)
	assert.NoError(err)

	e, err := New(zeroInitCond(slam.Pose{}), qn, r, nil)
	assert.NoError(err)

	u := slam.Control{Dx: 1}

	assert.NoError(e.Propagate(u))
	exp := mat.NewSymDense(3, []float64{
		0.2, 0, 0,
		0, 0.3, 0.3,
		0, 0.3, 0.3,
	})
	assert.True(mat.EqualApprox(exp, e.PoseCov(), 1e-12))

	assert.NoError(e.Propagate(u))
	exp = mat.NewSymDense(3, []float64{
		0.4, 0, 0,
		0, 1.5, 0.9,
		0, 0.9, 0.6,
	})
	assert.True(mat.EqualApprox(exp, e.PoseCov(), 1e-12))
}

func TestEKFPropagateTrace(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NoError(err)

	_, err = e.AddLandmark(slam.Measurement{Range: 5, Bearing: 0.5, ID: slam.NoID})
	assert.NoError(err)

	lcBefore, err := e.LandmarkCov(0)
	assert.NoError(err)

	prev := mat.Trace(e.PoseCov())
	for i := 0; i < 20; i++ {
		assert.NoError(e.Propagate(slam.Control{Dx: 0.1}))
		tr := mat.Trace(e.PoseCov())
		assert.GreaterOrEqual(tr, prev)
		prev = tr
		assertValidCov(assert, e.Cov())
	}

	// landmark block is not touched by propagation
	lc, err := e.LandmarkCov(0)
	assert.NoError(err)
	assert.True(mat.Equal(lcBefore, lc))
}

func TestEKFPropagateInvalid(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NoError(err)

	x, p := snapshot(e)
	assert.Error(e.Propagate(slam.Control{Dx: math.NaN()}))
	assert.Error(e.Propagate(slam.Control{Dalpha: math.Inf(1)}))
	assertUnchanged(assert, e, x, p)
}

func TestEKFAddLandmark(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NoError(err)

	id, err := e.AddLandmark(slam.Measurement{Range: 5, Bearing: math.Atan2(4, 3), ID: slam.NoID})
	assert.NoError(err)
	assert.Equal(slam.ID(0), id)
	assert.Equal(5, e.Dim())

	l, err := e.Landmark(0)
	assert.NoError(err)
	assert.InDelta(3.0, l.X, 1e-9)
	assert.InDelta(4.0, l.Y, 1e-9)
	assertValidCov(assert, e.Cov())

	// tagged landmark keeps its id
	id, err = e.AddLandmark(slam.Measurement{Range: 2, Bearing: -1, ID: 7})
	assert.NoError(err)
	assert.Equal(slam.ID(7), id)

	idx, ok := e.Index(7)
	assert.True(ok)
	assert.Equal(1, idx)

	// automatically assigned ids never collide with tagged ones
	id, err = e.AddLandmark(slam.Measurement{Range: 3, Bearing: 1, ID: slam.NoID})
	assert.NoError(err)
	assert.Equal(slam.ID(8), id)
	assert.Equal([]slam.ID{0, 7, 8}, e.IDs())

	x, p := snapshot(e)

	// duplicate id
	_, err = e.AddLandmark(slam.Measurement{Range: 2, Bearing: 1, ID: 7})
	assert.True(errors.Is(err, slam.ErrDuplicateLandmark))
	assertUnchanged(assert, e, x, p)

	// zero range
	_, err = e.AddLandmark(slam.Measurement{Range: 0, Bearing: 1, ID: slam.NoID})
	assert.True(errors.Is(err, slam.ErrDegenerateMeasurement))
	assertUnchanged(assert, e, x, p)

	// non-finite measurement
	_, err = e.AddLandmark(slam.Measurement{Range: math.Inf(1), Bearing: 1, ID: slam.NoID})
	assert.True(errors.Is(err, slam.ErrDegenerateMeasurement))
	assertUnchanged(assert, e, x, p)
}

func TestEKFGrow(t *testing.T) {
	assert := assert.New(t)

	for _, capacity := range []int{0, 1, 3, 50} {
		e, err := New(ic, q, r, &Config{Capacity: capacity})
		assert.NoError(err)

		var prev *mat.SymDense
		for i := 0; i < 12; i++ {
			_, err := e.AddLandmark(slam.Measurement{Range: float64(i + 1), Bearing: 0.1 * float64(i), ID: slam.NoID})
			assert.NoError(err)
			assert.Equal(3+2*(i+1), e.Dim())

			cov := e.Cov()
			assertValidCov(assert, cov)

			// existing covariance entries are preserved
			if prev != nil {
				n := prev.SymmetricDim()
				for j := 0; j < n; j++ {
					for k := 0; k < n; k++ {
						assert.Equal(prev.At(j, k), cov.At(j, k))
					}
				}
			}
			prev = mat.NewSymDense(cov.SymmetricDim(), nil)
			prev.CopySym(cov)
		}
		assert.Equal(12, e.NumLandmarks())
	}
}

func TestEKFUpdateRoundTrip(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NoError(err)

	z := slam.Measurement{Range: 5, Bearing: math.Atan2(4, 3), ID: slam.NoID}
	_, err = e.AddLandmark(z)
	assert.NoError(err)

	before, err := e.LandmarkCov(0)
	assert.NoError(err)

	assert.NoError(e.Update(z, 0))
	assertValidCov(assert, e.Cov())

	inn := e.LastInnovation()
	assert.InDelta(0.0, inn.AtVec(0), 1e-9)
	assert.InDelta(0.0, inn.AtVec(1), 1e-9)

	l, err := e.Landmark(0)
	assert.NoError(err)
	assert.InDelta(3.0, l.X, 1e-9)
	assert.InDelta(4.0, l.Y, 1e-9)

	after, err := e.LandmarkCov(0)
	assert.NoError(err)
	assert.LessOrEqual(mat.Trace(after), mat.Trace(before))

	rows, cols := e.Gain().Dims()
	assert.Equal(5, rows)
	assert.Equal(2, cols)
}

func TestEKFUpdate(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NoError(err)

	// landmarks at (3, 4) and (-2, 6)
	_, err = e.AddLandmark(slam.Measurement{Range: 5, Bearing: math.Atan2(4, 3), ID: 1})
	assert.NoError(err)
	_, err = e.AddLandmark(slam.Measurement{Range: math.Hypot(-2, 6), Bearing: math.Atan2(6, -2), ID: 2})
	assert.NoError(err)

	for i := 0; i < 10; i++ {
		assert.NoError(e.Propagate(slam.Control{Dx: 0.1, Dalpha: 0.05}))
		assertValidCov(assert, e.Cov())

		pose := e.Pose()
		for idx, lm := range [][2]float64{{3, 4}, {-2, 6}} {
			rho, psi := model.Observe(pose, lm[0], lm[1])
			tr := mat.Trace(e.Cov())
			assert.NoError(e.Update(slam.Measurement{Range: rho, Bearing: psi, ID: slam.ID(idx + 1)}, idx))
			assertValidCov(assert, e.Cov())
			assert.LessOrEqual(mat.Trace(e.Cov()), tr+1e-12)
		}
	}

	// bearing innovation is wrapped
	e2, err := New(zeroInitCond(slam.Pose{}), zeroQ, r, nil)
	assert.NoError(err)
	_, err = e2.AddLandmark(slam.Measurement{Range: 2, Bearing: math.Pi - 0.01, ID: slam.NoID})
	assert.NoError(err)
	nu, _, err := e2.Innovation(slam.Measurement{Range: 2, Bearing: -math.Pi + 0.01}, 0)
	assert.NoError(err)
	assert.InDelta(0.02, nu.AtVec(1), 1e-9)
}

func TestEKFUpdateInvalid(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NoError(err)

	z := slam.Measurement{Range: 1, Bearing: 0, ID: slam.NoID}
	_, err = e.AddLandmark(z)
	assert.NoError(err)

	x, p := snapshot(e)

	// index out of range
	assert.True(errors.Is(e.Update(z, 1), slam.ErrDimensionMismatch))
	assert.True(errors.Is(e.Update(z, -1), slam.ErrDimensionMismatch))
	_, err = e.Landmark(3)
	assert.True(errors.Is(err, slam.ErrDimensionMismatch))
	_, err = e.LandmarkCov(3)
	assert.True(errors.Is(err, slam.ErrDimensionMismatch))

	// zero range
	assert.True(errors.Is(e.Update(slam.Measurement{Range: 0}, 0), slam.ErrDegenerateMeasurement))
	assertUnchanged(assert, e, x, p)

	// robot on top of the landmark
	e, err = New(zeroInitCond(slam.Pose{}), zeroQ, r, nil)
	assert.NoError(err)
	_, err = e.AddLandmark(z)
	assert.NoError(err)
	assert.NoError(e.Propagate(slam.Control{Dx: 1}))

	x, p = snapshot(e)
	assert.True(errors.Is(e.Update(z, 0), slam.ErrDegenerateMeasurement))
	assertUnchanged(assert, e, x, p)
}

func TestEKFUpdateSingular(t *testing.T) {
	assert := assert.New(t)

	for _, s := range []slam.Solver{nil, matrix.LU{}} {
		e, err := New(zeroInitCond(slam.Pose{}), nil, nil, &Config{Solver: s})
		assert.NoError(err)

		z := slam.Measurement{Range: 2, Bearing: 0.3, ID: slam.NoID}
		_, err = e.AddLandmark(z)
		assert.NoError(err)

		x, p := snapshot(e)
		assert.True(errors.Is(e.Update(z, 0), slam.ErrDegenerateMeasurement))
		assertUnchanged(assert, e, x, p)
	}
}

func TestEKFProcess(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NoError(err)

	// identifier association
	as, err := e.Process(slam.Measurement{Range: 5, Bearing: 0.9, ID: 4}, nil)
	assert.NoError(err)
	assert.Equal(slam.Association{Index: 0, ID: 4, New: true}, as)

	as, err = e.Process(slam.Measurement{Range: 5, Bearing: 0.9, ID: 4}, nil)
	assert.NoError(err)
	assert.Equal(slam.Association{Index: 0, ID: 4}, as)

	_, err = e.Process(slam.Measurement{Range: 5, Bearing: 0.9, ID: slam.NoID}, associate.ByID{})
	assert.True(errors.Is(err, slam.ErrAmbiguousAssociation))

	// gated association
	g, err := associate.NewMahalanobis(associate.DefaultConfidence)
	assert.NoError(err)

	as, err = e.Process(slam.Measurement{Range: 5.01, Bearing: 0.9, ID: slam.NoID}, g)
	assert.NoError(err)
	assert.Equal(slam.Association{Index: 0, ID: 4}, as)

	as, err = e.Process(slam.Measurement{Range: 3, Bearing: -1.2, ID: slam.NoID}, g)
	assert.NoError(err)
	assert.True(as.New)
	assert.Equal(1, as.Index)
	assert.Equal(slam.ID(5), as.ID)
	assert.Equal(2, e.NumLandmarks())

	x, p := snapshot(e)
	_, err = e.Process(slam.Measurement{Range: 0, ID: slam.NoID}, g)
	assert.True(errors.Is(err, slam.ErrDegenerateMeasurement))
	assertUnchanged(assert, e, x, p)
}

func TestEKFPropagateUpdate(t *testing.T) {
	assert := assert.New(t)

	lms := [][2]float64{{3, 4}, {-2, 5}, {6, -1}, {1, 8}}

	e, err := New(ic, q, r, &Config{Capacity: 0})
	assert.NoError(err)

	truth := slam.Pose{}
	u := slam.Control{Dx: 0.1, Dalpha: 0.05}

	for step := 0; step < 30; step++ {
		truth = model.Propagate(truth, u, slam.Control{})
		assert.NoError(e.Propagate(u))
		assertValidCov(assert, e.Cov())

		for i, l := range lms {
			rho, psi := model.Observe(truth, l[0], l[1])
			z := slam.Measurement{Range: rho, Bearing: psi, ID: slam.ID(i)}

			if step == 0 {
				_, err := e.AddLandmark(z)
				assert.NoError(err)
				assertValidCov(assert, e.Cov())
				continue
			}

			idx, ok := e.Index(slam.ID(i))
			assert.True(ok)

			prev := mat.Trace(e.Cov())
			assert.NoError(e.Update(z, idx))
			assert.LessOrEqual(mat.Trace(e.Cov()), prev+1e-12)
			assertValidCov(assert, e.Cov())
		}
	}

	assert.Equal(slam.PoseDim+2*len(lms), e.Dim())

	p := e.Pose()
	assert.InDelta(truth.X, p.X, 1e-9)
	assert.InDelta(truth.Y, p.Y, 1e-9)
	assert.InDelta(truth.Alpha, p.Alpha, 1e-9)

	for i, l := range lms {
		lm, err := e.Landmark(i)
		assert.NoError(err)
		assert.InDelta(l[0], lm.X, 1e-9)
		assert.InDelta(l[1], lm.Y, 1e-9)
	}
}

func TestEKFEstimate(t *testing.T) {
	assert := assert.New(t)

	e, err := New(ic, q, r, nil)
	assert.NoError(err)

	_, err = e.AddLandmark(slam.Measurement{Range: 5, Bearing: math.Atan2(4, 3), ID: 3})
	assert.NoError(err)

	m := e.Estimate()
	assert.NotNil(m)
	assert.Equal(1, m.NumLandmarks())
	assert.Equal([]slam.ID{3}, m.IDs())
	assert.True(mat.Equal(e.State(), m.Val()))
	assert.True(mat.Equal(e.Cov(), m.Cov()))
	assert.Equal(e.Pose(), m.Pose())

	// snapshot is not affected by later changes
	assert.NoError(e.Propagate(slam.Control{Dx: 1}))
	assert.NotEqual(e.Pose(), m.Pose())
}
