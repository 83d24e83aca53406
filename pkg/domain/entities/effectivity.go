package entities

import (
	"fmt"
	"time"
)

// Effectivity defines the date window in which a BOM or routing version applies.
// The window is half-open [From, To); a zero To means open ended.
type Effectivity struct {
	From time.Time
	To   time.Time
}

// NewEffectivity creates a validated Effectivity
func NewEffectivity(from, to time.Time) (*Effectivity, error) {
	if from.IsZero() {
		return nil, fmt.Errorf("effective from date cannot be empty")
	}
	from = DateOf(from)
	if !to.IsZero() {
		to = DateOf(to)
		if !to.After(from) {
			return nil, fmt.Errorf("effective to %s must be after effective from %s",
				to.Format("2006-01-02"), from.Format("2006-01-02"))
		}
	}

	return &Effectivity{From: from, To: to}, nil
}

// OpenEnded reports whether the window has no end date
func (e Effectivity) OpenEnded() bool {
	return e.To.IsZero()
}

// Covers reports whether date falls inside the window
func (e Effectivity) Covers(date time.Time) bool {
	date = DateOf(date)
	if date.Before(e.From) {
		return false
	}
	return e.OpenEnded() || date.Before(e.To)
}

// Overlaps reports whether two windows share at least one day
func (e Effectivity) Overlaps(other Effectivity) bool {
	startsBeforeOtherEnds := other.OpenEnded() || e.From.Before(other.To)
	otherStartsBeforeEnd := e.OpenEnded() || other.From.Before(e.To)
	return startsBeforeOtherEnds && otherStartsBeforeEnd
}

// Intersect returns the days shared by both windows. ok is false when they are disjoint.
func (e Effectivity) Intersect(other Effectivity) (shared Effectivity, ok bool) {
	if !e.Overlaps(other) {
		return Effectivity{}, false
	}
	shared.From = e.From
	if other.From.After(shared.From) {
		shared.From = other.From
	}
	switch {
	case e.OpenEnded():
		shared.To = other.To
	case other.OpenEnded() || e.To.Before(other.To):
		shared.To = e.To
	default:
		shared.To = other.To
	}
	return shared, true
}

// String renders the window for diagnostics
func (e Effectivity) String() string {
	if e.OpenEnded() {
		return fmt.Sprintf("[%s, open)", e.From.Format("2006-01-02"))
	}
	return fmt.Sprintf("[%s, %s)", e.From.Format("2006-01-02"), e.To.Format("2006-01-02"))
}
