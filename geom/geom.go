// Package geom implements rigid body transforms between the robot local
// frame and the world frame, and conversions between rectangular and polar
// coordinates.
package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Rotation returns 2x2 rotation matrix for angle alpha given in radians.
func Rotation(alpha float64) *mat.Dense {
	sin, cos := math.Sincos(alpha)

	return mat.NewDense(2, 2, []float64{
		cos, -sin,
		sin, cos,
	})
}

// LocalToWorld transforms point p given in local frame to world frame: R*p + t.
// It panics if either of the arguments has wrong dimensions.
func LocalToWorld(r mat.Matrix, t, p mat.Vector) *mat.VecDense {
	out := &mat.VecDense{}
	out.MulVec(r, p)
	out.AddVec(out, t)

	return out
}

// WorldToLocal transforms point p given in world frame to local frame: R'*(p - t).
// It panics if either of the arguments has wrong dimensions.
func WorldToLocal(r mat.Matrix, t, p mat.Vector) *mat.VecDense {
	d := &mat.VecDense{}
	d.SubVec(p, t)

	out := &mat.VecDense{}
	out.MulVec(r.T(), d)

	return out
}

// RectToPolar converts rectangular coordinates (x, y) to polar coordinates (rho, psi).
// psi is in (-Pi, Pi].
func RectToPolar(x, y float64) (rho, psi float64) {
	return math.Hypot(x, y), WrapAngle(math.Atan2(y, x))
}

// PolarToRect converts polar coordinates (rho, psi) to rectangular coordinates (x, y).
func PolarToRect(rho, psi float64) (x, y float64) {
	sin, cos := math.Sincos(psi)

	return rho * cos, rho * sin
}

// WrapAngle wraps angle a given in radians into (-Pi, Pi].
func WrapAngle(a float64) float64 {
	w := math.Remainder(a, 2*math.Pi)
	if w <= -math.Pi {
		w += 2 * math.Pi
	}

	return w
}
