package model

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/geom"
	"gonum.org/v1/gonum/mat"
)

// Observe returns range and bearing of the landmark at world position (lx, ly)
// observed by the robot at pose p. Bearing is in (-Pi, Pi].
func Observe(p slam.Pose, lx, ly float64) (rho, psi float64) {
	t := mat.NewVecDense(2, []float64{p.X, p.Y})
	l := geom.WorldToLocal(geom.Rotation(p.Alpha), t, mat.NewVecDense(2, []float64{lx, ly}))

	return geom.RectToPolar(l.AtVec(0), l.AtVec(1))
}

// InverseObserve returns world position of the landmark observed by the robot
// at pose p at range rho and bearing psi.
func InverseObserve(p slam.Pose, rho, psi float64) (lx, ly float64) {
	x, y := geom.PolarToRect(rho, psi)
	t := mat.NewVecDense(2, []float64{p.X, p.Y})
	w := geom.LocalToWorld(geom.Rotation(p.Alpha), t, mat.NewVecDense(2, []float64{x, y}))

	return w.AtVec(0), w.AtVec(1)
}

// ObserveJacobians returns Jacobians of Observe with respect to robot pose (2x3)
// and with respect to landmark position (2x2).
// Both are undefined when the landmark coincides with the robot position.
func ObserveJacobians(p slam.Pose, lx, ly float64) (hr, hl *mat.Dense) {
	dx, dy := lx-p.X, ly-p.Y
	q := dx*dx + dy*dy
	rho := math.Sqrt(q)

	hr = mat.NewDense(2, 3, []float64{
		-dx / rho, -dy / rho, 0,
		dy / q, -dx / q, -1,
	})

	hl = mat.NewDense(2, 2, []float64{
		dx / rho, dy / rho,
		-dy / q, dx / q,
	})

	return hr, hl
}

// InverseObserveJacobians returns Jacobians of InverseObserve with respect
// to robot pose (2x3) and with respect to the measurement [rho, psi] (2x2).
func InverseObserveJacobians(p slam.Pose, rho, psi float64) (gr, gz *mat.Dense) {
	sin, cos := math.Sincos(p.Alpha + psi)

	gr = mat.NewDense(2, 3, []float64{
		1, 0, -rho * sin,
		0, 1, rho * cos,
	})

	gz = mat.NewDense(2, 2, []float64{
		cos, -rho * sin,
		sin, rho * cos,
	})

	return gr, gz
}
