package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ForecastSource names the provider that produced a forecast
type ForecastSource string

const (
	ForecastSourceML         ForecastSource = "ml"
	ForecastSourceHistorical ForecastSource = "historical"
)

// ForecastPeriod is one bucket of a forecast's breakdown
type ForecastPeriod struct {
	Start    time.Time
	End      time.Time
	Quantity decimal.Decimal
}

// DemandForecast is an immutable demand estimate produced per call
type DemandForecast struct {
	ProductID       ProductID
	Start           time.Time
	End             time.Time
	Quantity        decimal.Decimal
	Confidence      decimal.Decimal
	Source          ForecastSource
	PeriodBreakdown []ForecastPeriod
	CalculatedAt    time.Time
}

// WithSource returns a copy stamped with source and, when unset, the calculation time
func (f DemandForecast) WithSource(source ForecastSource, now time.Time) DemandForecast {
	f.Source = source
	if f.CalculatedAt.IsZero() {
		f.CalculatedAt = now
	}
	periods := make([]ForecastPeriod, len(f.PeriodBreakdown))
	copy(periods, f.PeriodBreakdown)
	f.PeriodBreakdown = periods
	return f
}
