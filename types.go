package slam

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// PoseDim is the number of robot pose state entries
const PoseDim = 3

// ID identifies a landmark
type ID int

// NoID marks a measurement with no landmark identifier attached
const NoID ID = -1

// Pose is robot position and heading in the world frame.
// Alpha is in radians and it is never wrapped.
type Pose struct {
	X     float64
	Y     float64
	Alpha float64
}

// PoseFromVec creates Pose from the first three entries of v.
// It returns error if v has fewer than three entries.
func PoseFromVec(v mat.Vector) (Pose, error) {
	if v == nil || v.Len() < PoseDim {
		return Pose{}, errors.Wrapf(ErrDimensionMismatch, "pose vector must have %d entries", PoseDim)
	}

	return Pose{X: v.AtVec(0), Y: v.AtVec(1), Alpha: v.AtVec(2)}, nil
}

// Vec returns pose as a vector
func (p Pose) Vec() *mat.VecDense {
	return mat.NewVecDense(PoseDim, []float64{p.X, p.Y, p.Alpha})
}

// String implements the Stringer interface.
func (p Pose) String() string {
	return fmt.Sprintf("Pose{X=%.4f Y=%.4f Alpha=%.4f}", p.X, p.Y, p.Alpha)
}

// Control is control input given in the robot local frame:
// forward displacement Dx and heading change Dalpha.
type Control struct {
	Dx     float64
	Dalpha float64
}

// Vec returns control as a vector
func (u Control) Vec() *mat.VecDense {
	return mat.NewVecDense(2, []float64{u.Dx, u.Dalpha})
}

// Measurement is range-bearing measurement of a landmark.
// ID is NoID unless the sensor reports landmark identity.
type Measurement struct {
	Range   float64
	Bearing float64
	ID      ID
}

// Tagged returns true if the measurement carries a landmark identifier
func (z Measurement) Tagged() bool {
	return z.ID != NoID
}

// Vec returns measurement as a [range, bearing] vector
func (z Measurement) Vec() *mat.VecDense {
	return mat.NewVecDense(2, []float64{z.Range, z.Bearing})
}

// Landmark is a static point feature in the world frame
type Landmark struct {
	ID ID
	X  float64
	Y  float64
}

// Association is the outcome of data association
type Association struct {
	// Index is landmark index; it is -1 if New is true and the landmark is yet to be added
	Index int
	// ID is landmark identifier
	ID ID
	// New is true if the measurement observes a landmark not in the map
	New bool
}
