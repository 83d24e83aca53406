package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)


// Outcome is the typed result of one forecasting attempt
type Outcome struct {
	Forecast *entities.DemandForecast
	Err      error
}

// Strategy is one link of the fallback chain
type Strategy interface {
	Source() entities.ForecastSource
	Forecast(ctx context.Context, productID entities.ProductID, start, end time.Time) Outcome
	Confidence(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error)
}

// MLStrategy asks the model service whenever one is configured. Its health
// check only feeds IsMLAvailable; a failing call falls through to history.
type MLStrategy struct {
	Provider repositories.ForecastProvider
}

func (s MLStrategy) Source() entities.ForecastSource { return entities.ForecastSourceML }

func (s MLStrategy) Forecast(ctx context.Context, productID entities.ProductID, start, end time.Time) Outcome {
	if s.Provider == nil {
		return Outcome{Err: entities.ErrProviderAbsent}
	}
	f, err := s.Provider.GenerateForecast(ctx, productID, start, end)
	return checked(f, err)
}

func (s MLStrategy) Confidence(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error) {
	if s.Provider == nil {
		return decimal.Zero, entities.ErrProviderAbsent
	}
	return s.Provider.GetModelConfidence(ctx, productID)
}

// HistoricalStrategy forecasts from recorded demand
type HistoricalStrategy struct {
	Provider repositories.HistoricalForecastProvider
}

func (s HistoricalStrategy) Source() entities.ForecastSource { return entities.ForecastSourceHistorical }

func (s HistoricalStrategy) Forecast(ctx context.Context, productID entities.ProductID, start, end time.Time) Outcome {
	if s.Provider == nil {
		return Outcome{Err: entities.ErrProviderAbsent}
	}
	f, err := s.Provider.GenerateFromHistory(ctx, productID, start, end)
	return checked(f, err)
}

func (s HistoricalStrategy) Confidence(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error) {
	if s.Provider == nil {
		return decimal.Zero, entities.ErrProviderAbsent
	}
	return s.Provider.GetHistoricalConfidence(ctx, productID)
}

func checked(f *entities.DemandForecast, err error) Outcome {
	if err != nil {
		return Outcome{Err: err}
	}
	if f == nil {
		return Outcome{Err: fmt.Errorf("provider returned no forecast")}
	}
	if f.Quantity.IsNegative() {
		return Outcome{Err: fmt.Errorf("provider returned negative quantity %s", f.Quantity)}
	}
	return Outcome{Forecast: f}
}
