package forecast

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

const defaultWindowDays = 90

// MovingAverage is a historical forecast provider. It projects the average
// daily demand of the trailing window, scaled by monthly seasonality.
type MovingAverage struct {
	mu         sync.RWMutex
	history    map[entities.ProductID][]entities.GrossRequirement
	windowDays int
}

// NewMovingAverage creates a provider averaging over windowDays of history
func NewMovingAverage(windowDays int) *MovingAverage {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	return &MovingAverage{
		history:    make(map[entities.ProductID][]entities.GrossRequirement),
		windowDays: windowDays,
	}
}

// Verify interface compliance
var _ repositories.HistoricalForecastProvider = (*MovingAverage)(nil)

// Record adds an observed demand
func (m *MovingAverage) Record(productID entities.ProductID, date time.Time, quantity decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := append(m.history[productID], entities.GrossRequirement{ProductID: productID, Date: entities.DateOf(date), Quantity: quantity})
	sort.SliceStable(h, func(i, j int) bool { return h[i].Date.Before(h[j].Date) })
	m.history[productID] = h
}

func (m *MovingAverage) GenerateFromHistory(ctx context.Context, productID entities.ProductID, start, end time.Time) (*entities.DemandForecast, error) {
	history := m.snapshot(productID)
	if len(history) == 0 {
		return nil, fmt.Errorf("no demand history for %s", productID)
	}

	rate := m.dailyRate(history)
	seasonality := seasonalFactors(history)
	confidence, err := m.GetHistoricalConfidence(ctx, productID)
	if err != nil {
		return nil, err
	}

	forecast := &entities.DemandForecast{
		ProductID:  productID,
		Start:      entities.DateOf(start),
		End:        entities.DateOf(end),
		Quantity:   decimal.Zero,
		Confidence: confidence,
	}
	// weekly buckets, the last one possibly shorter
	for periodStart := forecast.Start; !periodStart.After(forecast.End); periodStart = periodStart.AddDate(0, 0, 7) {
		periodEnd := periodStart.AddDate(0, 0, 6)
		if periodEnd.After(forecast.End) {
			periodEnd = forecast.End
		}
		days := decimal.NewFromInt(int64(periodEnd.Sub(periodStart).Hours()/24) + 1)
		factor, ok := seasonality[int(periodStart.Month())]
		if !ok {
			factor = decimal.NewFromInt(1)
		}
		qty := rate.Mul(days).Mul(factor).Round(2)
		forecast.PeriodBreakdown = append(forecast.PeriodBreakdown, entities.ForecastPeriod{
			Start:    periodStart,
			End:      periodEnd,
			Quantity: qty,
		})
		forecast.Quantity = forecast.Quantity.Add(qty)
	}
	return forecast, nil
}

// GetHistoricalConfidence grows from 0.5 towards 0.9 as a full year of months is observed
func (m *MovingAverage) GetHistoricalConfidence(_ context.Context, productID entities.ProductID) (decimal.Decimal, error) {
	history := m.snapshot(productID)
	if len(history) == 0 {
		return decimal.Zero, fmt.Errorf("no demand history for %s", productID)
	}
	months := make(map[time.Month]bool)
	for _, h := range history {
		months[h.Date.Month()] = true
	}
	coverage := decimal.NewFromInt(int64(len(months))).Div(decimal.NewFromInt(12))
	return decimal.NewFromFloat(0.5).Add(decimal.NewFromFloat(0.4).Mul(coverage)).Round(2), nil
}

func (m *MovingAverage) CalculateSeasonality(_ context.Context, productID entities.ProductID) (map[int]decimal.Decimal, error) {
	history := m.snapshot(productID)
	if len(history) == 0 {
		return nil, fmt.Errorf("no demand history for %s", productID)
	}
	return seasonalFactors(history), nil
}

func (m *MovingAverage) snapshot(productID entities.ProductID) []entities.GrossRequirement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entities.GrossRequirement, len(m.history[productID]))
	copy(out, m.history[productID])
	return out
}

// dailyRate averages the trailing window ending on the latest observation
func (m *MovingAverage) dailyRate(history []entities.GrossRequirement) decimal.Decimal {
	last := history[len(history)-1].Date
	windowStart := last.AddDate(0, 0, -(m.windowDays - 1))
	total := decimal.Zero
	for _, h := range history {
		if !h.Date.Before(windowStart) {
			total = total.Add(h.Quantity)
		}
	}
	return total.Div(decimal.NewFromInt(int64(m.windowDays)))
}

// seasonalFactors compares each observed month's average monthly demand with
// the overall average. Months never observed are absent.
func seasonalFactors(history []entities.GrossRequirement) map[int]decimal.Decimal {
	type monthKey struct {
		year  int
		month time.Month
	}
	perMonth := make(map[monthKey]decimal.Decimal)
	for _, h := range history {
		key := monthKey{year: h.Date.Year(), month: h.Date.Month()}
		perMonth[key] = perMonth[key].Add(h.Quantity)
	}

	overall := decimal.Zero
	sums := make(map[int]decimal.Decimal)
	counts := make(map[int]int64)
	for key, qty := range perMonth {
		overall = overall.Add(qty)
		sums[int(key.month)] = sums[int(key.month)].Add(qty)
		counts[int(key.month)]++
	}

	factors := make(map[int]decimal.Decimal, len(sums))
	if len(perMonth) == 0 || overall.IsZero() {
		return factors
	}
	mean := overall.Div(decimal.NewFromInt(int64(len(perMonth))))
	for month, sum := range sums {
		avg := sum.Div(decimal.NewFromInt(counts[month]))
		factors[month] = avg.Div(mean).Round(4)
	}
	return factors
}
