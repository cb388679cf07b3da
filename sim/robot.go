package sim

import (
	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/model"
	"github.com/pkg/errors"
)

// Robot is a simulated planar robot which tracks its true pose
type Robot struct {
	// pose is the true robot pose
	pose slam.Pose
	// noise perturbs control inputs
	noise slam.Noise
}

// NewRobot creates new Robot at pose p whose control inputs are perturbed by noise n.
// Nil n means the robot moves exactly as commanded.
// It returns error if n is not two dimensional.
func NewRobot(p slam.Pose, n slam.Noise) (*Robot, error) {
	if n != nil && len(n.Mean()) != 2 {
		return nil, errors.Errorf("invalid control noise dimension: %d", len(n.Mean()))
	}

	return &Robot{
		pose:  p,
		noise: n,
	}, nil
}

// Pose returns the true robot pose
func (r *Robot) Pose() slam.Pose {
	return r.pose
}

// Move moves the robot given control input u and returns its new pose
func (r *Robot) Move(u slam.Control) slam.Pose {
	var n slam.Control
	if r.noise != nil {
		s := r.noise.Sample()
		n = slam.Control{Dx: s.AtVec(0), Dalpha: s.AtVec(1)}
	}

	r.pose = model.Propagate(r.pose, u, n)

	return r.pose
}
