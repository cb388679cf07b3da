package sim

import (
	"context"
	"io"
	"log"
	"math"
	"time"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/associate"
	"github.com/milosgajdos/go-slam/kalman/ekf"
	"github.com/milosgajdos/go-slam/model"
	"github.com/milosgajdos/go-slam/noise"
	"github.com/milosgajdos/go-slam/rand"
	"github.com/pkg/errors"
	gometrics "github.com/rcrowley/go-metrics"
	"gonum.org/v1/gonum/mat"
)

// Runner metric names
const (
	MetricSteps      = "slam.steps"
	MetricAdded      = "slam.landmarks.added"
	MetricUpdates    = "slam.updates"
	MetricUpdateTime = "slam.updates.time"
	MetricDegenerate = "slam.skipped.degenerate"
	MetricAmbiguous  = "slam.skipped.ambiguous"
	MetricDuplicate  = "slam.skipped.duplicate"
)

// Runner runs EKF SLAM simulation
type Runner struct {
	c        *Config
	logger   *log.Logger
	registry gometrics.Registry

	steps      gometrics.Counter
	added      gometrics.Counter
	updates    gometrics.Counter
	degenerate gometrics.Counter
	ambiguous  gometrics.Counter
	duplicate  gometrics.Counter
	updateTime gometrics.Timer
}

// NewRunner creates new simulation Runner and returns it.
// DefaultConfig is used if c is nil. Nothing is logged if logger is nil.
// Runner metrics are registered in r; a new registry is created if r is nil.
// It returns error if c is invalid.
func NewRunner(c *Config, logger *log.Logger, r gometrics.Registry) (*Runner, error) {
	if c == nil {
		c = DefaultConfig()
	}

	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	if r == nil {
		r = gometrics.NewRegistry()
	}

	return &Runner{
		c:          c,
		logger:     logger,
		registry:   r,
		steps:      gometrics.GetOrRegisterCounter(MetricSteps, r),
		added:      gometrics.GetOrRegisterCounter(MetricAdded, r),
		updates:    gometrics.GetOrRegisterCounter(MetricUpdates, r),
		degenerate: gometrics.GetOrRegisterCounter(MetricDegenerate, r),
		ambiguous:  gometrics.GetOrRegisterCounter(MetricAmbiguous, r),
		duplicate:  gometrics.GetOrRegisterCounter(MetricDuplicate, r),
		updateTime: gometrics.GetOrRegisterTimer(MetricUpdateTime, r),
	}, nil
}

// Registry returns runner metrics registry
func (r *Runner) Registry() gometrics.Registry {
	return r.registry
}

// Run runs the simulation and returns its result.
//
// Every time step the true robot moves given perturbed control input and the
// estimate is propagated with the unperturbed one. Every measurement period all
// landmarks within sensor range are measured and processed by the estimator.
// Degenerate, ambiguous and duplicate landmark measurements are skipped.
// It returns error if ctx is cancelled or the estimator fails.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	c := r.c
	dt := c.TimeStep

	lms, err := rand.FieldN(c.Landmarks.Count, c.Landmarks.Box, c.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "landmarks")
	}

	// control noise grows with time step length
	q, err := noise.NewDiagonal([]float64{c.ControlNoise.Dx * dt, deg2rad(c.ControlNoise.Dalpha) * dt}, c.Seed+1)
	if err != nil {
		return nil, errors.Wrap(err, "control noise")
	}

	rn, err := noise.NewDiagonal([]float64{c.Sensor.Range, deg2rad(c.Sensor.Bearing)}, c.Seed+2)
	if err != nil {
		return nil, errors.Wrap(err, "measurement noise")
	}

	pose0 := slam.Pose{X: c.InitPose.X, Y: c.InitPose.Y, Alpha: deg2rad(c.InitPose.Alpha)}

	robot, err := NewRobot(pose0, q)
	if err != nil {
		return nil, err
	}

	sensor, err := NewSensor(rn, c.Sensor.MaxRange, c.Sensor.Tagged)
	if err != nil {
		return nil, err
	}

	a, err := newAssociator(c)
	if err != nil {
		return nil, err
	}

	// initial pose is known exactly
	ic := model.NewInitCond(pose0, mat.NewSymDense(slam.PoseDim, nil))

	e, err := ekf.New(ic, q, rn, &ekf.Config{Capacity: c.Landmarks.Count})
	if err != nil {
		return nil, errors.Wrap(err, "estimator")
	}

	u := slam.Control{Dx: c.Speed * dt, Dalpha: deg2rad(c.TurnRate) * dt}
	every := c.MeasurementEvery()
	steps := c.Steps()

	res := &Result{
		Landmarks: lms,
		Truth:     make([]slam.Pose, 0, steps+1),
		Poses:     make([]slam.Pose, 0, steps+1),
	}
	res.Truth = append(res.Truth, pose0)
	res.Poses = append(res.Poses, e.Pose())

	r.logger.Printf("running %d steps, %d landmarks, %s association", steps, len(lms), c.Association)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		truth := robot.Move(u)
		if err := e.Propagate(u); err != nil {
			return nil, errors.Wrapf(err, "step %d", i)
		}
		r.steps.Inc(1)

		if i%every == 0 {
			for _, z := range sensor.Observe(truth, lms) {
				if err := r.process(e, a, z); err != nil {
					return nil, errors.Wrapf(err, "step %d", i)
				}
			}
		}

		res.Truth = append(res.Truth, truth)
		res.Poses = append(res.Poses, e.Pose())
	}

	res.Map = e.Estimate()

	r.logger.Printf("done: %d landmarks mapped, %d updates, %d degenerate and %d ambiguous measurements skipped",
		r.added.Count(), r.updates.Count(), r.degenerate.Count(), r.ambiguous.Count())

	return res, nil
}

func (r *Runner) process(e *ekf.Estimator, a slam.Associator, z slam.Measurement) error {
	start := time.Now()

	as, err := e.Process(z, a)
	switch {
	case err == nil:
	case errors.Is(err, slam.ErrDegenerateMeasurement):
		r.degenerate.Inc(1)
		r.logger.Printf("skipping measurement %+v: %v", z, err)
		return nil
	case errors.Is(err, slam.ErrAmbiguousAssociation):
		r.ambiguous.Inc(1)
		r.logger.Printf("skipping measurement %+v: %v", z, err)
		return nil
	case errors.Is(err, slam.ErrDuplicateLandmark):
		// gated association found no match for a tagged landmark which is already mapped
		r.duplicate.Inc(1)
		r.logger.Printf("skipping measurement %+v: %v", z, err)
		return nil
	default:
		return err
	}

	if as.New {
		r.added.Inc(1)
		lm, _ := e.Landmark(as.Index)
		r.logger.Printf("new landmark %d at [%.3f, %.3f]", lm.ID, lm.X, lm.Y)
		return nil
	}

	r.updates.Inc(1)
	r.updateTime.UpdateSince(start)

	return nil
}

func newAssociator(c *Config) (slam.Associator, error) {
	switch c.Association {
	case AssocID:
		return associate.ByID{}, nil
	case AssocMahalanobis:
		g, err := associate.NewMahalanobis(c.Confidence)
		if err != nil {
			return nil, err
		}
		return g, nil
	case AssocHybrid:
		g, err := associate.NewMahalanobis(c.Confidence)
		if err != nil {
			return nil, err
		}
		return associate.Hybrid{Mahalanobis: g}, nil
	}

	return nil, errors.Errorf("unknown association: %q", c.Association)
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}
