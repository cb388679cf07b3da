package sim

import (
	"math"
	"os"

	"github.com/milosgajdos/go-slam/rand"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Association names accepted in Config
const (
	AssocID          = "id"
	AssocMahalanobis = "mahalanobis"
	AssocHybrid      = "hybrid"
)

// PoseConfig is robot pose with heading given in degrees
type PoseConfig struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Alpha float64 `yaml:"alpha"`
}

// ControlNoiseConfig configures standard deviations of control noise per second of motion
type ControlNoiseConfig struct {
	// Dx is forward displacement standard deviation [m/s]
	Dx float64 `yaml:"dx"`
	// Dalpha is heading change standard deviation [deg/s]
	Dalpha float64 `yaml:"dalpha"`
}

// SensorConfig configures range-bearing sensor
type SensorConfig struct {
	// Range is range standard deviation [m]
	Range float64 `yaml:"range"`
	// Bearing is bearing standard deviation [deg]
	Bearing float64 `yaml:"bearing"`
	// MaxRange is maximum sensing range [m]; zero means unlimited
	MaxRange float64 `yaml:"max_range"`
	// Tagged reports landmark ids along with measurements
	Tagged bool `yaml:"tagged"`
}

// LandmarksConfig configures randomly generated landmark field
type LandmarksConfig struct {
	Count    int `yaml:"count"`
	rand.Box `yaml:",inline"`
}

// Config is simulation configuration
type Config struct {
	// TimeStep is propagation period [s]
	TimeStep float64 `yaml:"time_step"`
	// MeasurementPeriod is measurement update period [s]
	MeasurementPeriod float64 `yaml:"measurement_period"`
	// Duration is simulation duration [s]
	Duration float64 `yaml:"duration"`
	// Speed is robot forward speed [m/s]
	Speed float64 `yaml:"speed"`
	// TurnRate is robot heading rate [deg/s]
	TurnRate float64 `yaml:"turn_rate"`
	// InitPose is initial robot pose
	InitPose PoseConfig `yaml:"init_pose"`
	// ControlNoise is robot control noise
	ControlNoise ControlNoiseConfig `yaml:"control_noise"`
	// Sensor configures the sensor
	Sensor SensorConfig `yaml:"sensor"`
	// Landmarks configures landmark field
	Landmarks LandmarksConfig `yaml:"landmarks"`
	// Association is data association method: id, mahalanobis or hybrid
	Association string `yaml:"association"`
	// Confidence is association gate confidence
	Confidence float64 `yaml:"confidence"`
	// Seed seeds all random sources
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns default simulation configuration:
// the robot drives straight north at 1 m/s for 5 s among 6 landmarks.
func DefaultConfig() *Config {
	return &Config{
		TimeStep:          0.02,
		MeasurementPeriod: 0.1,
		Duration:          5.0,
		Speed:             1.0,
		TurnRate:          0.0,
		InitPose:          PoseConfig{X: 0, Y: 0, Alpha: 90},
		ControlNoise:      ControlNoiseConfig{Dx: 0.05, Dalpha: 4},
		Sensor: SensorConfig{
			Range:    0.05,
			Bearing:  1,
			MaxRange: 0,
			Tagged:   true,
		},
		Landmarks: LandmarksConfig{
			Count: 6,
			Box:   rand.Box{MinX: -5, MaxX: 5, MinY: 0, MaxY: 10},
		},
		Association: AssocID,
		Confidence:  0.99,
		Seed:        20,
	}
}

// LoadConfig reads YAML configuration from file at path.
// Values missing in the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseConfig(content)
}

// ParseConfig parses YAML configuration. Values missing in content keep their defaults.
func ParseConfig(content []byte) (*Config, error) {
	c := DefaultConfig()
	if err := yaml.Unmarshal(content, c); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate returns error if the configuration is invalid
func (c *Config) Validate() error {
	if !(c.TimeStep > 0) {
		return errors.Errorf("invalid time step: %v", c.TimeStep)
	}

	if !(c.MeasurementPeriod >= c.TimeStep) {
		return errors.Errorf("measurement period %v shorter than time step %v", c.MeasurementPeriod, c.TimeStep)
	}

	if !(c.Duration >= 0) {
		return errors.Errorf("invalid duration: %v", c.Duration)
	}

	for _, v := range []float64{c.Speed, c.TurnRate, c.InitPose.X, c.InitPose.Y, c.InitPose.Alpha} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("invalid robot motion: %+v", c)
		}
	}

	for _, v := range []float64{c.ControlNoise.Dx, c.ControlNoise.Dalpha, c.Sensor.Range, c.Sensor.Bearing, c.Sensor.MaxRange} {
		if !(v >= 0) || math.IsInf(v, 0) {
			return errors.Errorf("invalid noise or sensor range: %v", v)
		}
	}

	if c.Landmarks.Count < 0 {
		return errors.Errorf("invalid landmark count: %d", c.Landmarks.Count)
	}

	if err := c.Landmarks.Box.Validate(); err != nil {
		return err
	}

	switch c.Association {
	case AssocID:
		if !c.Sensor.Tagged {
			return errors.Errorf("%s association requires tagged sensor", AssocID)
		}
	case AssocMahalanobis, AssocHybrid:
		if !(c.Confidence > 0 && c.Confidence < 1) {
			return errors.Errorf("invalid gate confidence: %v", c.Confidence)
		}
	default:
		return errors.Errorf("unknown association: %q", c.Association)
	}

	return nil
}

// Steps returns the number of simulation steps
func (c *Config) Steps() int {
	return int(math.Round(c.Duration / c.TimeStep))
}

// MeasurementEvery returns the number of steps between measurement updates
func (c *Config) MeasurementEvery() int {
	return max(1, int(math.Round(c.MeasurementPeriod/c.TimeStep)))
}
