package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

func TestPlanningMetrics_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPlanningMetrics(reg)
	require.NoError(t, err)

	store := events.NewInMemoryEventStore(zap.NewNop())
	require.NoError(t, m.Register(store))

	ctx := context.Background()
	publish := func(eventType, stream string, data interface{}) {
		require.NoError(t, store.Publish(ctx, events.NewEvent(eventType, stream, data)))
	}

	publish(events.MRPCalculatedEvent, "P", events.MRPCalculated{ProductID: "P", PlannedOrders: 3, PastDueOrders: 1, Duration: 5 * time.Millisecond})
	publish(events.MRPCalculatedEvent, "Q", events.MRPCalculated{ProductID: "Q", PlannedOrders: 2, CapacityIssues: 2})
	publish(events.MRPCalculationFailedEvent, "X", events.MRPCalculationFailed{ProductID: "X", Error: "not found"})
	publish(events.MRPRegeneratedEvent, "P", events.MRPRegenerated{ProductID: "P", OrdersWritten: 3})
	publish(events.ForecastFallbackEvent, "P", events.ForecastFallback{ProductID: "P", Failed: entities.ForecastSourceML})
	publish(events.CapacityBottleneckEvent, "WC1", events.CapacityBottleneck{WorkCenterID: "WC1"})
	publish(events.WorkOrderTransitionedEvent, "wo-1", events.WorkOrderTransitioned{To: entities.WorkOrderReleased})
	publish(events.BOMReleasedEvent, "bom-1", events.BOMChanged{BOMID: "bom-1"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calculations.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calculations.WithLabelValues("failure")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.plannedOrders))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pastDueOrders))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.capacityIssues))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.regenerations))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ordersWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues(string(entities.ForecastSourceML))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bottlenecks.WithLabelValues("WC1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.workOrders.WithLabelValues(string(entities.WorkOrderReleased))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.masterDataEdits.WithLabelValues(events.BOMReleasedEvent)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestNewPlanningMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPlanningMetrics(reg)
	require.NoError(t, err)

	_, err = NewPlanningMetrics(reg)
	require.Error(t, err)
}
