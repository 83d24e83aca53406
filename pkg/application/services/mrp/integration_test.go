package mrp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mfgplan/pkg/application/services/capacity"
	"github.com/vsinha/mfgplan/pkg/application/services/mrp"
	"github.com/vsinha/mfgplan/pkg/application/services/routing"
	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/application/services/workorder"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
	"github.com/vsinha/mfgplan/pkg/infrastructure/metrics"
	fixtures "github.com/vsinha/mfgplan/pkg/infrastructure/testing"
)

var february = entities.MustHorizon("2024-02-01", "2024-02-29")

func TestPlanningFlow_BicycleScenario(t *testing.T) {
	ctx := context.Background()
	f := fixtures.BuildBicycleFixture()
	store := events.NewInMemoryEventStore(nil)

	planningMetrics, err := metrics.NewPlanningMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, planningMetrics.Register(store))

	routings := routing.NewManager(f.Routings, f.WorkCenters, shared.WithPublisher(store))
	planner := capacity.NewPlanner(f.WorkCenters, routings, f.Demand, capacity.DefaultConfig(), shared.WithPublisher(store))
	engine := mrp.NewEngine(f.Items, f.Demand, f.BOMs, planner, mrp.Config{CheckCapacity: true}, shared.WithPublisher(store))

	// Plan the bike and all of its components
	result, err := engine.Calculate(ctx, "BIKE", february, nil)
	require.NoError(t, err)
	require.Len(t, result.PlannedOrders, 4)

	bike := result.OrdersFor("BIKE")
	require.Len(t, bike, 1)
	assert.True(t, bike[0].Quantity.Equal(fixtures.Qty(20)))
	assert.Equal(t, entities.MustDate("2024-02-10"), bike[0].StartDate)
	assert.Equal(t, entities.MustDate("2024-02-15"), bike[0].DueDate)

	frame := result.OrdersFor("FRAME")
	require.Len(t, frame, 1)
	assert.True(t, frame[0].Quantity.Equal(fixtures.Qty(20)))
	assert.Equal(t, entities.MustDate("2024-02-07"), frame[0].StartDate)
	assert.Equal(t, entities.ProductID("BIKE"), frame[0].ParentProductID)

	wheel := result.OrdersFor("WHEEL")
	require.Len(t, wheel, 1)
	assert.True(t, wheel[0].Quantity.Equal(fixtures.Qty(30)), "40 wheels needed, 10 on hand")
	assert.Equal(t, entities.MustDate("2024-02-03"), wheel[0].StartDate)

	tube := result.OrdersFor("TUBE")
	require.Len(t, tube, 1)
	assert.True(t, tube[0].Quantity.Equal(fixtures.Qty(30)), "60 tubes needed, 30 arriving")
	assert.Equal(t, entities.MustDate("2024-01-28"), tube[0].StartDate)
	assert.True(t, tube[0].PastDue)
	assert.Len(t, result.Warnings, 1)

	for _, order := range result.PlannedOrders {
		assert.Equal(t, entities.ProductID("BIKE"), order.RootProductID)
	}

	// 20 frames need 11h of welding on a 4h/day work center
	require.Len(t, result.CapacityIssues, 1)
	issue := result.CapacityIssues[0]
	assert.Equal(t, entities.ProductID("FRAME"), issue.ProductID)
	assert.Equal(t, "WELD", issue.WorkCenterID)
	assert.True(t, issue.RequiredHours.Equal(fixtures.Qty(11)))
	assert.True(t, issue.RemainingHours.Equal(fixtures.Qty(4)))

	// Persist the plan and look for bottlenecks in it
	summary, err := engine.Regenerate(ctx, february)
	require.NoError(t, err)
	assert.Equal(t, []entities.ProductID{"BIKE"}, summary.Regenerated)
	assert.Equal(t, 4, summary.OrdersWritten)
	assert.Len(t, f.Demand.PlannedOrders(), 4)

	bottlenecks, err := planner.IdentifyBottlenecks(ctx, february)
	require.NoError(t, err)
	require.Len(t, bottlenecks, 1)
	assert.Equal(t, "WELD", bottlenecks[0].WorkCenterID)
	assert.True(t, bottlenecks[0].Utilization.Equal(fixtures.Qty(11).Div(fixtures.Qty(4))))

	// Another 20 bikes do not fit next to the planned assembly load
	earliest, err := planner.FindEarliestAvailable(ctx, "BIKE", fixtures.Qty(20), entities.MustDate("2024-02-10"))
	require.NoError(t, err)
	assert.Equal(t, entities.MustDate("2024-02-11"), earliest)

	// Execute the manufacture orders on the shop floor
	orders := workorder.NewManager(f.WorkOrders, shared.WithPublisher(store))
	for _, planned := range append(bike, frame...) {
		wo, err := orders.CreateFromPlannedOrder(ctx, planned)
		require.NoError(t, err)
		for _, step := range []func(context.Context, string) (*entities.WorkOrder, error){
			orders.Release, orders.Start, orders.Complete, orders.Close,
		} {
			wo, err = step(ctx, wo.ID)
			require.NoError(t, err)
		}
		assert.Equal(t, entities.WorkOrderClosed, wo.Status)
	}

	_, err = orders.CreateFromPlannedOrder(ctx, wheel[0])
	assert.True(t, errors.Is(err, entities.ErrInvalidArgument))

	assert.Len(t, store.EventsOfType(events.MRPCalculatedEvent), 2)
	assert.Len(t, store.EventsOfType(events.MRPRegeneratedEvent), 1)
	assert.Len(t, store.EventsOfType(events.CapacityBottleneckEvent), 1)
	assert.Len(t, store.EventsOfType(events.WorkOrderTransitionedEvent), 8)
}
