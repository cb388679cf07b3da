package ekf

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/associate"
	"github.com/milosgajdos/go-slam/geom"
	"github.com/milosgajdos/go-slam/matrix"
	"github.com/milosgajdos/go-slam/model"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// innovation holds measurement prediction of a single landmark
type innovation struct {
	// nu is innovation vector
	nu *mat.VecDense
	// s is innovation covariance
	s *mat.SymDense
	// pht is P*H'
	pht *mat.Dense
	// h is observation Jacobian over the full state
	h *mat.Dense
}

// AddLandmark adds the landmark observed by measurement z to the estimate and returns its id.
//
// The landmark is identified by z.ID if z is tagged; otherwise a new unique id is assigned.
// It returns error if either of the following conditions is met:
// - z range is below minimum range or z is not finite: slam.ErrDegenerateMeasurement
// - z is tagged with an id of an already mapped landmark: slam.ErrDuplicateLandmark
// The estimate is not modified when error is returned.
func (e *Estimator) AddLandmark(z slam.Measurement) (slam.ID, error) {
	if err := e.checkMeasurement(z); err != nil {
		return slam.NoID, err
	}

	id := z.ID
	if z.Tagged() {
		if _, ok := e.index[id]; ok {
			return slam.NoID, errors.Wrapf(slam.ErrDuplicateLandmark, "landmark id: %d", id)
		}
	} else {
		id = e.nextID
		for {
			if _, ok := e.index[id]; !ok {
				break
			}
			id++
		}
	}

	lx, ly := model.InverseObserve(e.pose, z.Range, z.Bearing)
	gr, gz := model.InverseObserveJacobians(e.pose, z.Range, z.Bearing)

	n := e.p.SymmetricDim()

	// G_Xr*P_r: cross covariance with pose and all mapped landmarks
	cross := &mat.Dense{}
	cross.Mul(gr, rows(e.p, 0, slam.PoseDim))

	// G_Xr*P_rr*G_Xr' + G_yi*R*G_yi'
	pll := &mat.Dense{}
	pll.Mul(cross.Slice(0, 2, 0, slam.PoseDim), gr.T())
	gzr := &mat.Dense{}
	gzr.Mul(gz, e.r)
	grg := &mat.Dense{}
	grg.Mul(gzr, gz.T())
	pll.Add(pll, grg)

	if !matrix.IsFinite(cross) || !matrix.IsFinite(pll) {
		return slam.NoID, errors.Wrapf(slam.ErrDegenerateMeasurement, "non-finite landmark covariance: %v", z)
	}

	p, arenaDim := e.grow(2)
	for i := 0; i < n; i++ {
		p.SetSym(i, n, cross.At(0, i))
		p.SetSym(i, n+1, cross.At(1, i))
	}
	p.SetSym(n, n, pll.At(0, 0))
	p.SetSym(n, n+1, (pll.At(0, 1)+pll.At(1, 0))/2)
	p.SetSym(n+1, n+1, pll.At(1, 1))

	e.p = p
	e.arenaDim = arenaDim
	e.index[id] = len(e.lms)
	e.lms = append(e.lms, landmark{id: id, x: lx, y: ly})
	if id >= e.nextID {
		e.nextID = id + 1
	}

	return id, nil
}

// Innovation returns innovation vector and innovation covariance of measurement z
// with respect to the landmark with index idx. Bearing innovation is in (-Pi, Pi].
// It returns error if either of the following conditions is met:
// - idx is out of range: slam.ErrDimensionMismatch
// - z or predicted measurement range is below minimum range: slam.ErrDegenerateMeasurement
func (e *Estimator) Innovation(z slam.Measurement, idx int) (mat.Vector, mat.Symmetric, error) {
	in, err := e.innovate(z, idx)
	if err != nil {
		return nil, nil, err
	}

	return in.nu, in.s, nil
}

func (e *Estimator) innovate(z slam.Measurement, idx int) (*innovation, error) {
	if err := e.checkIndex(idx); err != nil {
		return nil, err
	}

	if err := e.checkMeasurement(z); err != nil {
		return nil, err
	}

	l := e.lms[idx]
	rho, psi := model.Observe(e.pose, l.x, l.y)
	if rho < e.minRange {
		return nil, errors.Wrapf(slam.ErrDegenerateMeasurement, "predicted range %g of landmark %d below %g", rho, l.id, e.minRange)
	}

	hr, hl := model.ObserveJacobians(e.pose, l.x, l.y)

	n := e.p.SymmetricDim()
	o := offset(idx)

	// H is non-zero only in the pose and the landmark columns
	h := mat.NewDense(2, n, nil)
	h.Slice(0, 2, 0, slam.PoseDim).(*mat.Dense).Copy(hr)
	h.Slice(0, 2, o, o+2).(*mat.Dense).Copy(hl)

	// P*H' = P_:r*H_Xr' + P_:l*H_Li'
	pht := &mat.Dense{}
	pht.Mul(rows(e.p, 0, slam.PoseDim).T(), hr.T())
	phl := &mat.Dense{}
	phl.Mul(rows(e.p, o, o+2).T(), hl.T())
	pht.Add(pht, phl)

	// S = H*P*H' + R
	hph := &mat.Dense{}
	hph.Mul(hr, pht.Slice(0, slam.PoseDim, 0, 2))
	hlp := &mat.Dense{}
	hlp.Mul(hl, pht.Slice(o, o+2, 0, 2))
	hph.Add(hph, hlp)
	hph.Add(hph, e.r)

	s := mat.NewSymDense(2, nil)
	matrix.Symmetrize(s, hph)

	nu := mat.NewVecDense(2, []float64{z.Range - rho, geom.WrapAngle(z.Bearing - psi)})

	return &innovation{
		nu:  nu,
		s:   s,
		pht: pht,
		h:   h,
	}, nil
}

// Update corrects the estimate using measurement z of the landmark with index idx.
//
// Covariance is corrected using the Joseph form:
//
//	P = (I - K*H)*P*(I - K*H)' + K*R*K'
//
// It returns error if either of the following conditions is met:
// - idx is out of range: slam.ErrDimensionMismatch
// - z or predicted range is below minimum range: slam.ErrDegenerateMeasurement
// - innovation covariance is singular: slam.ErrDegenerateMeasurement
// The estimate is not modified when error is returned.
func (e *Estimator) Update(z slam.Measurement, idx int) error {
	in, err := e.innovate(z, idx)
	if err != nil {
		return err
	}

	n := e.p.SymmetricDim()

	// K = P*H'*inv(S) <=> S*K' = H*P
	kt := &mat.Dense{}
	if err := e.solver.Solve(kt, in.s, in.pht.T()); err != nil {
		return errors.Wrapf(slam.ErrDegenerateMeasurement, "innovation covariance: %v", err)
	}
	gain := mat.DenseCopyOf(kt.T())

	// state correction
	corr := &mat.VecDense{}
	corr.MulVec(gain, in.nu)

	// Joseph form update
	a := &mat.Dense{}
	// K*H
	a.Mul(gain, in.h)
	// eye - K*H
	a.Sub(matrix.Identity(n), a)

	apa := &mat.Dense{}
	apa.Mul(a, e.p)
	apa.Mul(apa, a.T())

	// K*R*K'
	kr := &mat.Dense{}
	kr.Mul(gain, e.r)
	krk := &mat.Dense{}
	krk.Mul(kr, gain.T())
	apa.Add(apa, krk)

	pCorr := mat.NewSymDense(n, nil)
	matrix.Symmetrize(pCorr, apa)

	if !matrix.IsFinite(corr) || !matrix.IsFinite(pCorr) {
		return errors.Wrapf(slam.ErrDegenerateMeasurement, "non-finite correction of landmark %d", e.lms[idx].id)
	}

	e.pose.X += corr.AtVec(0)
	e.pose.Y += corr.AtVec(1)
	e.pose.Alpha += corr.AtVec(2)
	for i := range e.lms {
		o := offset(i)
		e.lms[i].x += corr.AtVec(o)
		e.lms[i].y += corr.AtVec(o + 1)
	}
	e.p.CopySym(pCorr)
	e.inn.CopyVec(in.nu)
	e.k = gain

	return nil
}

// Process associates measurement z using associator a and either adds a new
// landmark or updates the estimate with z. associate.ByID is used if a is nil.
// It returns association outcome or error if either association or the estimate update fails.
// The estimate is not modified when error is returned.
func (e *Estimator) Process(z slam.Measurement, a slam.Associator) (slam.Association, error) {
	if a == nil {
		a = associate.ByID{}
	}

	as, err := a.Associate(e, z)
	if err != nil {
		return slam.Association{Index: -1, ID: slam.NoID}, err
	}

	if as.New {
		if !z.Tagged() {
			z.ID = as.ID
		}

		id, err := e.AddLandmark(z)
		if err != nil {
			return slam.Association{Index: -1, ID: slam.NoID}, err
		}

		return slam.Association{Index: len(e.lms) - 1, ID: id, New: true}, nil
	}

	if err := e.Update(z, as.Index); err != nil {
		return slam.Association{Index: -1, ID: slam.NoID}, err
	}

	return slam.Association{Index: as.Index, ID: e.lms[as.Index].id}, nil
}

func (e *Estimator) checkMeasurement(z slam.Measurement) error {
	if math.IsNaN(z.Range) || math.IsNaN(z.Bearing) || math.IsInf(z.Range, 0) || math.IsInf(z.Bearing, 0) {
		return errors.Wrapf(slam.ErrDegenerateMeasurement, "non-finite measurement: %v", z)
	}

	if z.Range < e.minRange {
		return errors.Wrapf(slam.ErrDegenerateMeasurement, "range %g below %g", z.Range, e.minRange)
	}

	return nil
}
