// Package rand generates random landmark fields.
package rand

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	"github.com/pkg/errors"
	rnd "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Box is an axis aligned rectangle in the world frame
type Box struct {
	MinX float64 `yaml:"min_x"`
	MaxX float64 `yaml:"max_x"`
	MinY float64 `yaml:"min_y"`
	MaxY float64 `yaml:"max_y"`
}

// Validate returns error if the box bounds are not finite or are inverted
func (b Box) Validate() error {
	for _, v := range []float64{b.MinX, b.MaxX, b.MinY, b.MaxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("invalid box bounds: %+v", b)
		}
	}

	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return errors.Errorf("inverted box bounds: %+v", b)
	}

	return nil
}

// Contains returns true if point (x, y) lies inside the box
func (b Box) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// FieldN draws n landmarks uniformly distributed inside box b.
// Landmark ids are their draw order starting from 0. The random source is seeded with seed
// so the same field is returned for the same arguments.
// It fails with error if n is negative or b is invalid.
func FieldN(n int, b Box, seed uint64) ([]slam.Landmark, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid number of landmarks requested: %d", n)
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}

	src := rnd.NewSource(seed)
	ux := distuv.Uniform{Min: b.MinX, Max: b.MaxX, Src: src}
	uy := distuv.Uniform{Min: b.MinY, Max: b.MaxY, Src: src}

	lms := make([]slam.Landmark, n)
	for i := range lms {
		lms[i] = slam.Landmark{
			ID: slam.ID(i),
			X:  ux.Rand(),
			Y:  uy.Rand(),
		}
	}

	return lms, nil
}
