package noise

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Diagonal is zero-mean gaussian noise with independent components.
// Unlike Gaussian it allows components with zero standard deviation.
type Diagonal struct {
	// dists are per-component normal distributions
	dists []distuv.Normal
	// sd are standard deviations of the noise components
	sd []float64
	// seed seeds the random source
	seed uint64
}

// NewDiagonal creates new Diagonal noise with standard deviations sd.
// It returns error if sd is empty or any of its values is negative or not finite.
func NewDiagonal(sd []float64, seed uint64) (*Diagonal, error) {
	if len(sd) == 0 {
		return nil, errors.Errorf("invalid noise dimension: %d", len(sd))
	}

	for i, s := range sd {
		if s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, errors.Errorf("invalid standard deviation %d: %v", i, s)
		}
	}

	d := &Diagonal{
		sd:   make([]float64, len(sd)),
		seed: seed,
	}
	copy(d.sd, sd)

	if err := d.Reset(); err != nil {
		return nil, err
	}

	return d, nil
}

// Sample generates a sample from Diagonal noise and returns it.
func (d *Diagonal) Sample() mat.Vector {
	r := make([]float64, len(d.dists))
	for i := range d.dists {
		if d.sd[i] == 0 {
			continue
		}
		r[i] = d.dists[i].Rand()
	}

	return mat.NewVecDense(len(r), r)
}

// Cov returns diagonal covariance matrix of the noise.
func (d *Diagonal) Cov() mat.Symmetric {
	cov := mat.NewSymDense(len(d.sd), nil)
	for i, s := range d.sd {
		cov.SetSym(i, i, s*s)
	}

	return cov
}

// Mean returns Diagonal mean which is always zero.
func (d *Diagonal) Mean() []float64 {
	return make([]float64, len(d.sd))
}

// Reset resets Diagonal noise: the sample sequence starts over from the beginning.
func (d *Diagonal) Reset() error {
	src := rand.NewSource(d.seed)

	d.dists = make([]distuv.Normal, len(d.sd))
	for i, s := range d.sd {
		d.dists[i] = distuv.Normal{Mu: 0, Sigma: s, Src: src}
	}

	return nil
}

// String implements the Stringer interface.
func (d *Diagonal) String() string {
	return fmt.Sprintf("Diagonal{\nMean=%v\nCov=%v\n}", d.Mean(), mat.Formatted(d.Cov(), mat.Prefix("    "), mat.Squeeze()))
}
