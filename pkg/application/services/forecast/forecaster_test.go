package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
	historical "github.com/vsinha/mfgplan/pkg/infrastructure/forecast"
)

type fakeModel struct {
	healthy    bool
	err        error
	quantity   decimal.Decimal
	confidence decimal.Decimal
	calls      int
}

func (f *fakeModel) GenerateForecast(_ context.Context, productID entities.ProductID, start, end time.Time) (*entities.DemandForecast, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &entities.DemandForecast{ProductID: productID, Start: start, End: end, Quantity: f.quantity, Confidence: f.confidence}, nil
}

func (f *fakeModel) IsHealthy(context.Context) bool { return f.healthy }

func (f *fakeModel) GetModelConfidence(context.Context, entities.ProductID) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.confidence, nil
}

var (
	from = entities.MustDate("2024-02-01")
	to   = entities.MustDate("2024-02-14")
)

func withHistory() *historical.MovingAverage {
	h := historical.NewMovingAverage(7)
	for i := 0; i < 7; i++ {
		h.Record("P", entities.MustDate("2024-01-20").AddDate(0, 0, i), decimal.NewFromInt(2))
	}
	return h
}

func TestForecaster_UsesModelWhenHealthy(t *testing.T) {
	model := &fakeModel{healthy: true, quantity: decimal.NewFromInt(120), confidence: decimal.NewFromFloat(0.9)}
	f := NewForecaster(model, withHistory())

	forecast, err := f.Forecast(context.Background(), "P", from, to)
	require.NoError(t, err)
	assert.Equal(t, entities.ForecastSourceML, forecast.Source)
	assert.True(t, forecast.Quantity.Equal(decimal.NewFromInt(120)))
	assert.False(t, forecast.CalculatedAt.IsZero())
	assert.True(t, f.IsMLAvailable(context.Background()))
}

func TestForecaster_AsksModelEvenWhenHealthCheckFails(t *testing.T) {
	model := &fakeModel{healthy: false, quantity: decimal.NewFromInt(120), confidence: decimal.NewFromFloat(0.9)}
	f := NewForecaster(model, withHistory())

	forecast, err := f.Forecast(context.Background(), "P", from, to)
	require.NoError(t, err)
	assert.Equal(t, entities.ForecastSourceML, forecast.Source)
	assert.Equal(t, 1, model.calls)
	assert.False(t, f.IsMLAvailable(context.Background()))
}

func TestForecaster_FallsBackToHistory(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeModel
	}{
		{"model failure", &fakeModel{healthy: true, err: errors.New("model timeout")}},
		{"unhealthy failing model", &fakeModel{healthy: false, err: errors.New("connection refused")}},
		{"no model", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := events.NewInMemoryEventStore(nil)
			var f *Forecaster
			if tt.model == nil {
				f = NewForecaster(nil, withHistory(), shared.WithPublisher(store))
			} else {
				f = NewForecaster(tt.model, withHistory(), shared.WithPublisher(store))
			}

			forecast, err := f.Forecast(context.Background(), "P", from, to)
			require.NoError(t, err)
			assert.Equal(t, entities.ForecastSourceHistorical, forecast.Source)
			assert.True(t, forecast.Quantity.Equal(decimal.NewFromInt(28)), "got %s", forecast.Quantity)

			fallbacks := store.EventsOfType(events.ForecastFallbackEvent)
			require.Len(t, fallbacks, 1)
			assert.Equal(t, entities.ForecastSourceML, fallbacks[0].Data().(events.ForecastFallback).Failed)
		})
	}
}

func TestForecaster_AllSourcesFail(t *testing.T) {
	model := &fakeModel{healthy: true, err: errors.New("model timeout")}
	f := NewForecaster(model, historical.NewMovingAverage(7))

	forecast, err := f.Forecast(context.Background(), "P", from, to)
	assert.Nil(t, forecast)
	require.ErrorIs(t, err, entities.ErrForecastUnavailable)

	var unavailable *entities.ForecastUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Len(t, unavailable.Attempts, 2)

	f = NewForecaster(nil, nil)
	_, err = f.Forecast(context.Background(), "P", from, to)
	assert.ErrorIs(t, err, entities.ErrProviderAbsent)
}

func TestForecaster_ForecastMultiple(t *testing.T) {
	f := NewForecaster(nil, withHistory())

	forecasts, err := f.ForecastMultiple(context.Background(), []entities.ProductID{"P", "Q"}, from, to)
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrForecastUnavailable)
	assert.Contains(t, forecasts, entities.ProductID("P"))
	assert.NotContains(t, forecasts, entities.ProductID("Q"))
}

func TestForecaster_RejectsInvertedRange(t *testing.T) {
	f := NewForecaster(nil, withHistory())
	_, err := f.Forecast(context.Background(), "P", to, from)
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestForecaster_GetConfidenceLevel(t *testing.T) {
	ctx := context.Background()

	f := NewForecaster(&fakeModel{healthy: true, confidence: decimal.NewFromFloat(0.95)}, withHistory())
	confidence, err := f.GetConfidenceLevel(ctx, "P")
	require.NoError(t, err)
	assert.True(t, confidence.Equal(decimal.NewFromFloat(0.95)))

	f = NewForecaster(&fakeModel{healthy: true, err: errors.New("model timeout")}, withHistory())
	confidence, err = f.GetConfidenceLevel(ctx, "P")
	require.NoError(t, err)
	assert.True(t, confidence.Equal(decimal.NewFromFloat(0.53)), "got %s", confidence)

	f = NewForecaster(nil, nil)
	_, err = f.GetConfidenceLevel(ctx, "P")
	assert.ErrorIs(t, err, entities.ErrForecastUnavailable)
}

func TestForecaster_CalculateSeasonalFactors(t *testing.T) {
	ctx := context.Background()
	f := NewForecaster(nil, withHistory())

	factors, err := f.CalculateSeasonalFactors(ctx, "P")
	require.NoError(t, err)
	assert.True(t, factors[1].Equal(decimal.NewFromInt(1)))

	_, err = NewForecaster(nil, nil).CalculateSeasonalFactors(ctx, "P")
	assert.ErrorIs(t, err, entities.ErrProviderAbsent)
}
