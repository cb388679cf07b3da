package associate

import (
	"math"

	slam "github.com/milosgajdos/go-slam"
	"github.com/milosgajdos/go-slam/matrix"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfidence is the default probability mass of the association gate
const DefaultConfidence = 0.99

// Mahalanobis associates measurements with landmarks using squared Mahalanobis
// distance of the measurement innovation gated by a chi-squared threshold.
type Mahalanobis struct {
	// Gate is squared Mahalanobis distance gate
	Gate float64
	// Solver solves innovation covariance systems; matrix.Cholesky is used if nil
	Solver slam.Solver
}

// NewMahalanobis creates new Mahalanobis associator whose gate contains confidence
// probability mass of the chi-squared distribution with 2 degrees of freedom.
// It returns error if confidence is not in (0, 1).
func NewMahalanobis(confidence float64) (*Mahalanobis, error) {
	if confidence <= 0 || confidence >= 1 || math.IsNaN(confidence) {
		return nil, errors.Errorf("invalid gate confidence: %v", confidence)
	}

	chi2 := distuv.ChiSquared{K: 2}

	return &Mahalanobis{
		Gate: chi2.Quantile(confidence),
	}, nil
}

// Distance returns squared Mahalanobis distance of innovation nu with covariance s.
func (g *Mahalanobis) Distance(nu mat.Vector, s mat.Symmetric) (float64, error) {
	solver := g.Solver
	if solver == nil {
		solver = matrix.Cholesky{}
	}

	x := &mat.Dense{}
	if err := solver.Solve(x, s, nu); err != nil {
		return math.Inf(1), err
	}

	return mat.Dot(nu, x.ColView(0)), nil
}

// Associate matches measurement z to the only landmark of m whose distance is within the gate.
// If no landmark is within the gate the measurement is declared new. Landmarks whose
// innovation can not be computed are skipped.
// It returns slam.ErrAmbiguousAssociation error if more than one landmark is within the gate.
func (g *Mahalanobis) Associate(m slam.Map, z slam.Measurement) (slam.Association, error) {
	match := -1

	for i := 0; i < m.NumLandmarks(); i++ {
		nu, s, err := m.Innovation(z, i)
		if err != nil {
			if errors.Is(err, slam.ErrDimensionMismatch) {
				return slam.Association{Index: -1, ID: slam.NoID}, err
			}
			continue
		}

		if d, err := g.Distance(nu, s); err != nil || d > g.Gate {
			continue
		}

		if match >= 0 {
			return slam.Association{Index: -1, ID: slam.NoID}, errors.Wrapf(slam.ErrAmbiguousAssociation,
				"landmarks %d and %d within gate %g", match, i, g.Gate)
		}
		match = i
	}

	if match < 0 {
		return slam.Association{Index: -1, ID: z.ID, New: true}, nil
	}

	return slam.Association{Index: match, ID: slam.NoID}, nil
}
