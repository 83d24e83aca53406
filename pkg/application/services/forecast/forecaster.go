package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

// Forecaster produces demand forecasts through an ordered fallback chain:
// the model service first, recorded history second. It never invents a
// default when every source fails.
type Forecaster struct {
	strategies []Strategy
	ml         repositories.ForecastProvider
	historical repositories.HistoricalForecastProvider
	opts       shared.Options
}

// NewForecaster creates a forecaster. Either provider may be nil.
func NewForecaster(ml repositories.ForecastProvider, historical repositories.HistoricalForecastProvider, opts ...shared.Option) *Forecaster {
	return &Forecaster{
		strategies: []Strategy{MLStrategy{Provider: ml}, HistoricalStrategy{Provider: historical}},
		ml:         ml,
		historical: historical,
		opts:       shared.Apply(opts...),
	}
}

// Forecast returns the first forecast produced by the chain
func (f *Forecaster) Forecast(ctx context.Context, productID entities.ProductID, start, end time.Time) (*entities.DemandForecast, error) {
	start, end = entities.DateOf(start), entities.DateOf(end)
	if end.Before(start) {
		return nil, fmt.Errorf("forecast end %s is before start %s: %w",
			end.Format("2006-01-02"), start.Format("2006-01-02"), entities.ErrInvalidArgument)
	}

	var attempts []error
	for _, strategy := range f.strategies {
		outcome := strategy.Forecast(ctx, productID, start, end)
		if outcome.Err == nil {
			forecast := outcome.Forecast.WithSource(strategy.Source(), f.opts.Now())
			return &forecast, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		attempts = append(attempts, fmt.Errorf("%s: %w", strategy.Source(), outcome.Err))
		f.opts.Logger.Warn("forecast source failed, falling back",
			zap.String("product_id", string(productID)),
			zap.String("source", string(strategy.Source())),
			zap.Error(outcome.Err))
		events.PublishQuietly(ctx, f.opts.Publisher, f.opts.Logger,
			events.NewEvent(events.ForecastFallbackEvent, string(productID), events.ForecastFallback{
				ProductID: productID,
				Failed:    strategy.Source(),
				Reason:    outcome.Err.Error(),
			}))
	}

	return nil, &entities.ForecastUnavailableError{ProductID: productID, Attempts: attempts}
}

// ForecastMultiple forecasts each product independently. Products that fail
// are missing from the map and their errors are joined.
func (f *Forecaster) ForecastMultiple(ctx context.Context, productIDs []entities.ProductID, start, end time.Time) (map[entities.ProductID]*entities.DemandForecast, error) {
	forecasts := make(map[entities.ProductID]*entities.DemandForecast, len(productIDs))
	var errs []error
	for _, productID := range productIDs {
		forecast, err := f.Forecast(ctx, productID, start, end)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		forecasts[productID] = forecast
	}
	return forecasts, errors.Join(errs...)
}

// IsMLAvailable reports whether the model service is configured and healthy
func (f *Forecaster) IsMLAvailable(ctx context.Context) bool {
	return f.ml != nil && f.ml.IsHealthy(ctx)
}

// GetConfidenceLevel returns the confidence of the first source able to report one
func (f *Forecaster) GetConfidenceLevel(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error) {
	var attempts []error
	for _, strategy := range f.strategies {
		confidence, err := strategy.Confidence(ctx, productID)
		if err == nil {
			return confidence, nil
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", strategy.Source(), err))
	}
	return decimal.Zero, &entities.ForecastUnavailableError{ProductID: productID, Attempts: attempts}
}

// CalculateSeasonalFactors returns month (1-12) to multiplicative factor from history
func (f *Forecaster) CalculateSeasonalFactors(ctx context.Context, productID entities.ProductID) (map[int]decimal.Decimal, error) {
	if f.historical == nil {
		return nil, fmt.Errorf("seasonal factors for %s: %w", productID, entities.ErrProviderAbsent)
	}
	factors, err := f.historical.CalculateSeasonality(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("seasonal factors for %s: %w", productID, err)
	}
	for month, factor := range factors {
		if month < 1 || month > 12 {
			return nil, fmt.Errorf("seasonal factor for invalid month %d: %w", month, entities.ErrInvalidArgument)
		}
		if factor.IsNegative() {
			return nil, fmt.Errorf("negative seasonal factor %s for month %d: %w", factor, month, entities.ErrInvalidArgument)
		}
	}
	return factors, nil
}
