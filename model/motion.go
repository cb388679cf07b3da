// Package model implements the nonlinear motion and range-bearing observation
// models of a planar robot together with their analytic Jacobians.
package model

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/geom"
	"gonum.org/v1/gonum/mat"
)

// Propagate propagates robot pose p to the next step given control input u
// perturbed by noise n. Both u and n are given in the robot local frame.
//
// The robot first turns by u.Dalpha+n.Dalpha and then moves forward along
// its new heading by u.Dx+n.Dx; there is no lateral displacement.
func Propagate(p slam.Pose, u, n slam.Control) slam.Pose {
	alpha := p.Alpha + u.Dalpha + n.Dalpha
	dx := u.Dx + n.Dx

	t := mat.NewVecDense(2, []float64{p.X, p.Y})
	w := geom.LocalToWorld(geom.Rotation(alpha), t, mat.NewVecDense(2, []float64{dx, 0}))

	return slam.Pose{X: w.AtVec(0), Y: w.AtVec(1), Alpha: alpha}
}

// MotionJacobians returns Jacobians of Propagate with respect to robot pose (3x3)
// and with respect to control noise (3x2), linearized at pose p, control u and zero noise.
func MotionJacobians(p slam.Pose, u slam.Control) (fx, fn *mat.Dense) {
	sin, cos := math.Sincos(p.Alpha + u.Dalpha)
	dx := u.Dx

	fx = mat.NewDense(3, 3, []float64{
		1, 0, -dx * sin,
		0, 1, dx * cos,
		0, 0, 1,
	})

	fn = mat.NewDense(3, 2, []float64{
		cos, -dx * sin,
		sin, dx * cos,
		0, 1,
	})

	return fx, fn
}
