package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLotSizingStrategies(t *testing.T) {
	future := []DatedQuantity{
		{Date: day("2024-01-16"), Quantity: decimal.NewFromInt(20)},
		{Date: day("2024-01-20"), Quantity: decimal.NewFromInt(30)},
		{Date: day("2024-01-25"), Quantity: decimal.NewFromInt(40)},
	}

	tests := []struct {
		name     string
		strategy LotSizingStrategy
		net      int64
		want     int64
	}{
		{"lot for lot", LotForLot{}, 80, 80},
		{"fixed rounds up to multiple", FixedOrderQuantity{Quantity: decimal.NewFromInt(50)}, 80, 100},
		{"fixed exact multiple", FixedOrderQuantity{Quantity: decimal.NewFromInt(40)}, 80, 80},
		{"fixed without quantity degrades to lot for lot", FixedOrderQuantity{}, 80, 80},
		{"minimum raises small order", MinimumOrderQuantity{Minimum: decimal.NewFromInt(100)}, 80, 100},
		{"minimum keeps larger order", MinimumOrderQuantity{Minimum: decimal.NewFromInt(50)}, 80, 80},
		{"period covers the next week", PeriodOrderQuantity{Periods: 1, PeriodDays: 7}, 80, 130},
		{"two periods cover everything", PeriodOrderQuantity{Periods: 2, PeriodDays: 7}, 80, 170},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.strategy.Size(LotSizingRequest{
				NetRequirement:     decimal.NewFromInt(tt.net),
				Date:               day("2024-01-15"),
				FutureRequirements: future,
			})
			assert.True(t, decimal.NewFromInt(tt.want).Equal(got), "want %d, got %s", tt.want, got)
			assert.True(t, got.GreaterThanOrEqual(decimal.NewFromInt(tt.net)))
		})
	}
}

func TestNewLotSizingStrategy(t *testing.T) {
	s, err := NewLotSizingStrategy("", decimal.Zero, 0)
	require.NoError(t, err)
	assert.Equal(t, "lot_for_lot", s.Name())

	s, err = NewLotSizingStrategy("FIXED_ORDER_QUANTITY", decimal.NewFromInt(25), 0)
	require.NoError(t, err)
	assert.Equal(t, FixedOrderQuantity{Quantity: decimal.NewFromInt(25)}, s)

	s, err = NewLotSizingStrategy("period_order_quantity", decimal.Zero, 2)
	require.NoError(t, err)
	assert.Equal(t, PeriodOrderQuantity{Periods: 2, PeriodDays: 7}, s)

	_, err = NewLotSizingStrategy("fixed_order_quantity", decimal.Zero, 0)
	assert.Error(t, err)

	_, err = NewLotSizingStrategy("economic", decimal.Zero, 0)
	assert.ErrorContains(t, err, "unknown lot sizing rule")
}
