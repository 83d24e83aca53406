package entities

import (
	"fmt"
	"time"
)

// PlanningHorizon is the inclusive window bounding all calculations
type PlanningHorizon struct {
	Start time.Time
	End   time.Time
}

// NewPlanningHorizon creates a validated PlanningHorizon
func NewPlanningHorizon(start, end time.Time) (PlanningHorizon, error) {
	if start.IsZero() || end.IsZero() {
		return PlanningHorizon{}, fmt.Errorf("horizon start and end are required")
	}
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return PlanningHorizon{}, fmt.Errorf("horizon end %s is before start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return PlanningHorizon{Start: start, End: end}, nil
}

// MustHorizon builds a horizon from YYYY-MM-DD strings and panics on failure
func MustHorizon(start, end string) PlanningHorizon {
	h, err := NewPlanningHorizon(MustDate(start), MustDate(end))
	if err != nil {
		panic(err)
	}
	return h
}

// Contains reports whether date lies inside the horizon
func (h PlanningHorizon) Contains(date time.Time) bool {
	date = DateOf(date)
	return !date.Before(h.Start) && !date.After(h.End)
}

// OverlapsRange reports whether the inclusive range [from, to] touches the horizon
func (h PlanningHorizon) OverlapsRange(from, to time.Time) bool {
	return !DateOf(to).Before(h.Start) && !DateOf(from).After(h.End)
}

// Days returns every calendar day of the horizon in order
func (h PlanningHorizon) Days() []time.Time {
	var days []time.Time
	for d := h.Start; !d.After(h.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Clamp moves date into the horizon
func (h PlanningHorizon) Clamp(date time.Time) time.Time {
	date = DateOf(date)
	if date.Before(h.Start) {
		return h.Start
	}
	if date.After(h.End) {
		return h.End
	}
	return date
}

func (h PlanningHorizon) String() string {
	return fmt.Sprintf("%s..%s", h.Start.Format("2006-01-02"), h.End.Format("2006-01-02"))
}
