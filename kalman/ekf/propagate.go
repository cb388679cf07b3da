package ekf

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/matrix"
	"github.com/milosgajdos/go-slam/model"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Propagate propagates the estimate to the next step given control input u.
//
// Only the robot pose moves: the pose covariance block and the pose-landmark
// cross covariance are propagated while the landmark block stays unchanged.
// It returns error if u is not finite; the estimate is not modified then.
func (e *Estimator) Propagate(u slam.Control) error {
	if math.IsNaN(u.Dx+u.Dalpha) || math.IsInf(u.Dx+u.Dalpha, 0) {
		return errors.Errorf("invalid control input: %v", u)
	}

	pose := model.Propagate(e.pose, u, slam.Control{})
	fx, fn := model.MotionJacobians(e.pose, u)

	n := e.p.SymmetricDim()

	// F_x*P_rr*F_x'
	prr := &mat.Dense{}
	prr.Mul(fx, e.p.SliceSym(0, slam.PoseDim))
	prr.Mul(prr, fx.T())

	// F_n*Q*F_n'
	fq := &mat.Dense{}
	fq.Mul(fn, e.q)
	fqf := &mat.Dense{}
	fqf.Mul(fq, fn.T())
	prr.Add(prr, fqf)

	poseCov := mat.NewSymDense(slam.PoseDim, nil)
	matrix.Symmetrize(poseCov, prr)

	// F_x*P_rm
	var prm *mat.Dense
	if n > slam.PoseDim {
		prm = &mat.Dense{}
		prm.Mul(fx, rows(e.p, 0, slam.PoseDim).Slice(0, slam.PoseDim, slam.PoseDim, n))
	}

	if !matrix.IsFinite(poseCov) || (prm != nil && !matrix.IsFinite(prm)) {
		return errors.Errorf("non-finite covariance after propagation with control: %v", u)
	}

	for i := 0; i < slam.PoseDim; i++ {
		for j := i; j < slam.PoseDim; j++ {
			e.p.SetSym(i, j, poseCov.At(i, j))
		}
		for j := slam.PoseDim; j < n; j++ {
			e.p.SetSym(i, j, prm.At(i, j-slam.PoseDim))
		}
	}
	e.pose = pose

	return nil
}
