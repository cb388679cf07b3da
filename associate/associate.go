// Package associate implements measurement to landmark data association.
package associate

import (
	slam "github.com/milosgajdos/go-slam"
	"github.com/pkg/errors"
)

// ByID associates measurements by the landmark identifier they are tagged with.
type ByID struct{}

// Associate matches tagged measurement z to the landmark with the same id or declares it new.
// It returns slam.ErrAmbiguousAssociation error if z is not tagged.
func (ByID) Associate(m slam.Map, z slam.Measurement) (slam.Association, error) {
	if !z.Tagged() {
		return slam.Association{Index: -1, ID: slam.NoID}, errors.Wrap(slam.ErrAmbiguousAssociation, "measurement has no landmark id")
	}

	if idx, ok := m.Index(z.ID); ok {
		return slam.Association{Index: idx, ID: z.ID}, nil
	}

	return slam.Association{Index: -1, ID: z.ID, New: true}, nil
}

// Hybrid associates tagged measurements by their id and untagged measurements
// using Mahalanobis distance gating.
type Hybrid struct {
	*Mahalanobis
}

// Associate associates measurement z.
func (h Hybrid) Associate(m slam.Map, z slam.Measurement) (slam.Association, error) {
	if z.Tagged() {
		return ByID{}.Associate(m, z)
	}

	return h.Mahalanobis.Associate(m, z)
}
