package sim

import (
	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/geom"
	"github.com/milosgajdos/go-slam/model"
	"github.com/pkg/errors"
)

// Sensor is a simulated range-bearing sensor
type Sensor struct {
	// noise perturbs [range, bearing] readings
	noise slam.Noise
	// maxRange is maximum sensing range; zero means unlimited
	maxRange float64
	// tagged reports landmark ids with readings
	tagged bool
}

// NewSensor creates new Sensor with reading noise n, maximum range maxRange and
// landmark identification turned on if tagged is true.
// Nil n means noiseless readings.
// It returns error if n is not two dimensional or maxRange is negative.
func NewSensor(n slam.Noise, maxRange float64, tagged bool) (*Sensor, error) {
	if n != nil && len(n.Mean()) != 2 {
		return nil, errors.Errorf("invalid measurement noise dimension: %d", len(n.Mean()))
	}

	if maxRange < 0 {
		return nil, errors.Errorf("invalid maximum range: %v", maxRange)
	}

	return &Sensor{
		noise:    n,
		maxRange: maxRange,
		tagged:   tagged,
	}, nil
}

// Observe returns readings of all landmarks lms visible from pose p.
// Landmarks beyond maximum range are not observed. Noise may push the reading
// range below zero; such readings are returned as they are.
func (s *Sensor) Observe(p slam.Pose, lms []slam.Landmark) []slam.Measurement {
	var zs []slam.Measurement

	for _, l := range lms {
		rho, psi := model.Observe(p, l.X, l.Y)
		if s.maxRange > 0 && rho > s.maxRange {
			continue
		}

		if s.noise != nil {
			n := s.noise.Sample()
			rho += n.AtVec(0)
			psi = geom.WrapAngle(psi + n.AtVec(1))
		}

		z := slam.Measurement{Range: rho, Bearing: psi, ID: slam.NoID}
		if s.tagged {
			z.ID = l.ID
		}

		zs = append(zs, z)
	}

	return zs
}
