// Package versioning holds the effectivity rules shared by BOM and routing versions.
package versioning

import (
	"fmt"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// Versioned is a dated version of a product structure
type Versioned interface {
	VersionNumber() int
	Window() entities.Effectivity
	IsObsolete() bool
	CapAt(date time.Time)
}

// CheckNew verifies a new version does not reuse a version number and does
// not overlap any non-obsolete version of the same product
func CheckNew[T Versioned](existing []T, version int, window entities.Effectivity) error {
	if version <= 0 {
		return fmt.Errorf("version must be positive, got %d: %w", version, entities.ErrInvalidArgument)
	}
	for _, v := range existing {
		if v.VersionNumber() == version {
			return fmt.Errorf("version %d: %w", version, entities.ErrVersionExists)
		}
	}
	for _, v := range existing {
		if !v.IsObsolete() && v.Window().Overlaps(window) {
			return fmt.Errorf("window %s overlaps version %d %s: %w",
				window, v.VersionNumber(), v.Window(), entities.ErrEffectivityOverlap)
		}
	}
	return nil
}

// Supersede plans a new open-ended version starting at effectiveFrom.
// Open-ended non-obsolete versions that start earlier are capped at
// effectiveFrom and returned for the caller to persist; any other overlap
// is rejected and nothing is modified.
func Supersede[T Versioned](existing []T, version int, effectiveFrom time.Time) ([]T, error) {
	window := entities.Effectivity{From: entities.DateOf(effectiveFrom)}
	if version <= 0 {
		return nil, fmt.Errorf("version must be positive, got %d: %w", version, entities.ErrInvalidArgument)
	}
	for _, v := range existing {
		if v.VersionNumber() == version {
			return nil, fmt.Errorf("version %d: %w", version, entities.ErrVersionExists)
		}
	}

	var superseded []T
	for _, v := range existing {
		if v.IsObsolete() || !v.Window().Overlaps(window) {
			continue
		}
		w := v.Window()
		if w.OpenEnded() && w.From.Before(window.From) {
			superseded = append(superseded, v)
			continue
		}
		return nil, fmt.Errorf("window %s overlaps version %d %s: %w",
			window, v.VersionNumber(), w, entities.ErrEffectivityOverlap)
	}

	for _, v := range superseded {
		v.CapAt(window.From)
	}
	return superseded, nil
}
