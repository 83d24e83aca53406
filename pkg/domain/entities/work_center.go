package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// WorkCenter is a resource station with finite time capacity per day
type WorkCenter struct {
	ID            string
	Code          string
	Name          string
	HoursPerDay   decimal.Decimal
	Efficiency    decimal.Decimal // 0-1 multiplier
	CapacityUnits int
	Active        bool
}

// NewWorkCenter creates a validated, active WorkCenter
func NewWorkCenter(id, code string, hoursPerDay, efficiency decimal.Decimal, capacityUnits int) (*WorkCenter, error) {
	if id == "" {
		return nil, fmt.Errorf("work center id cannot be empty")
	}
	if hoursPerDay.IsNegative() || hoursPerDay.GreaterThan(decimal.NewFromInt(24)) {
		return nil, fmt.Errorf("hours per day must be between 0 and 24, got %s", hoursPerDay)
	}
	if !efficiency.IsPositive() || efficiency.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("efficiency must be in (0, 1], got %s", efficiency)
	}
	if capacityUnits < 0 {
		return nil, fmt.Errorf("capacity units cannot be negative, got %d", capacityUnits)
	}
	if code == "" {
		code = id
	}

	return &WorkCenter{
		ID:            id,
		Code:          code,
		HoursPerDay:   hoursPerDay,
		Efficiency:    efficiency,
		CapacityUnits: capacityUnits,
		Active:        true,
	}, nil
}

// DailyAvailableHours returns hoursPerDay × efficiency × capacity units.
// Zero capacity units count as a single unit.
func (w *WorkCenter) DailyAvailableHours() decimal.Decimal {
	units := w.CapacityUnits
	if units < 1 {
		units = 1
	}
	return w.HoursPerDay.Mul(w.Efficiency).Mul(decimal.NewFromInt(int64(units)))
}

// Calendar decides which days contribute capacity
type Calendar interface {
	IsWorkingDay(date time.Time) bool
}

// AllDaysCalendar treats every calendar day as a working day
type AllDaysCalendar struct{}

func (AllDaysCalendar) IsWorkingDay(time.Time) bool { return true }

// WeekdayCalendar excludes Saturdays, Sundays and listed holidays
type WeekdayCalendar struct {
	Holidays map[time.Time]bool
}

func (c WeekdayCalendar) IsWorkingDay(date time.Time) bool {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !c.Holidays[DateOf(date)]
}
