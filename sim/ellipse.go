package sim

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/matrix"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/plotter"
)

// Ellipse is a confidence ellipse of a 2D position
type Ellipse struct {
	// X and Y are ellipse center coordinates
	X float64
	Y float64
	// A and B are the major and minor semi-axis lengths
	A float64
	B float64
	// Angle is the major axis orientation in radians
	Angle float64
}

// ConfidenceEllipse returns ellipse centered at (x, y) which bounds nStd standard
// deviations of 2D covariance cov.
// It returns error if cov is not a valid 2x2 covariance or nStd is not positive.
func ConfidenceEllipse(x, y float64, cov mat.Symmetric, nStd float64) (Ellipse, error) {
	if !(nStd > 0) {
		return Ellipse{}, errors.Errorf("invalid number of standard deviations: %v", nStd)
	}

	if err := matrix.CheckCov(cov, 2); err != nil {
		return Ellipse{}, err
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return Ellipse{}, errors.Wrap(slam.ErrInvalidCovariance, "eigen decomposition failed")
	}

	// eigenvalues are in ascending order
	vals := eig.Values(nil)
	vecs := &mat.Dense{}
	eig.VectorsTo(vecs)

	return Ellipse{
		X:     x,
		Y:     y,
		A:     nStd * math.Sqrt(math.Max(vals[1], 0)),
		B:     nStd * math.Sqrt(math.Max(vals[0], 0)),
		Angle: math.Atan2(vecs.At(1, 1), vecs.At(0, 1)),
	}, nil
}

// Points returns n points sampled uniformly in angle along the ellipse.
// The first point is repeated at the end so the outline is closed.
func (e Ellipse) Points(n int) plotter.XYs {
	if n < 3 {
		n = 3
	}

	sin, cos := math.Sincos(e.Angle)

	pts := make(plotter.XYs, n+1)
	for i := 0; i <= n; i++ {
		t := 2 * math.Pi * float64(i%n) / float64(n)
		ex, ey := e.A*math.Cos(t), e.B*math.Sin(t)
		pts[i].X = e.X + ex*cos - ey*sin
		pts[i].Y = e.Y + ex*sin + ey*cos
	}

	return pts
}
