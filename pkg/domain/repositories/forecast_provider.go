package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// ForecastProvider is a model-based forecasting service
type ForecastProvider interface {
	GenerateForecast(ctx context.Context, productID entities.ProductID, start, end time.Time) (*entities.DemandForecast, error)
	IsHealthy(ctx context.Context) bool
	GetModelConfidence(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error)
}

// HistoricalForecastProvider forecasts from recorded demand history
type HistoricalForecastProvider interface {
	GenerateFromHistory(ctx context.Context, productID entities.ProductID, start, end time.Time) (*entities.DemandForecast, error)
	GetHistoricalConfidence(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error)

	// CalculateSeasonality returns month (1-12) to multiplicative factor
	CalculateSeasonality(ctx context.Context, productID entities.ProductID) (map[int]decimal.Decimal, error)
}
