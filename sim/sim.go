// Package sim simulates a planar robot with a range-bearing sensor moving among
// static landmarks and runs EKF SLAM on the simulated data.
package sim

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/estimate"
)

// Result is simulation result
type Result struct {
	// Landmarks are true landmarks
	Landmarks []slam.Landmark
	// Truth are true robot poses; the first pose is the initial pose
	Truth []slam.Pose
	// Poses are estimated robot poses; the first pose is the initial pose
	Poses []slam.Pose
	// Map is the final estimate
	Map *estimate.Map
}

// Errors returns position errors of the estimated landmarks matched to the true ones by id.
// Landmarks which are not mapped are skipped. Ids only match when the sensor is tagged.
func (r *Result) Errors() map[slam.ID]float64 {
	errs := make(map[slam.ID]float64)
	if r.Map == nil {
		return errs
	}

	truth := make(map[slam.ID]slam.Landmark, len(r.Landmarks))
	for _, l := range r.Landmarks {
		truth[l.ID] = l
	}

	for _, l := range r.Map.Landmarks() {
		t, ok := truth[l.ID]
		if !ok {
			continue
		}
		errs[l.ID] = math.Hypot(l.X-t.X, l.Y-t.Y)
	}

	return errs
}
