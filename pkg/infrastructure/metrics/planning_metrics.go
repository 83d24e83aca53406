package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

const namespace = "mfgplan"

// PlanningMetrics turns planning events into Prometheus series. Subscribe it
// to an event store with Register.
type PlanningMetrics struct {
	calculations    *prometheus.CounterVec
	plannedOrders   prometheus.Counter
	pastDueOrders   prometheus.Counter
	capacityIssues  prometheus.Counter
	duration        prometheus.Histogram
	regenerations   prometheus.Counter
	ordersWritten   prometheus.Counter
	fallbacks       *prometheus.CounterVec
	bottlenecks     *prometheus.CounterVec
	workOrders      *prometheus.CounterVec
	masterDataEdits *prometheus.CounterVec
}

// NewPlanningMetrics creates the collectors and registers them with reg
func NewPlanningMetrics(reg prometheus.Registerer) (*PlanningMetrics, error) {
	m := &PlanningMetrics{
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mrp",
			Name:      "calculations_total",
			Help:      "MRP calculations by outcome.",
		}, []string{"outcome"}),
		plannedOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mrp",
			Name:      "planned_orders_total",
			Help:      "Planned orders produced by successful calculations.",
		}),
		pastDueOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mrp",
			Name:      "past_due_orders_total",
			Help:      "Planned orders whose start date falls before the horizon.",
		}),
		capacityIssues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mrp",
			Name:      "capacity_issues_total",
			Help:      "Capacity issues reported while checking planned orders.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mrp",
			Name:      "calculation_duration_seconds",
			Help:      "Duration of successful MRP calculations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		regenerations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mrp",
			Name:      "regenerated_products_total",
			Help:      "Products whose stored plan was regenerated.",
		}),
		ordersWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mrp",
			Name:      "orders_written_total",
			Help:      "Planned orders written by regeneration.",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "forecast",
			Name:      "fallbacks_total",
			Help:      "Forecast sources skipped in favour of the next one.",
		}, []string{"failed_source"}),
		bottlenecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capacity",
			Name:      "bottlenecks_total",
			Help:      "Bottleneck buckets found per work center.",
		}, []string{"work_center"}),
		workOrders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workorder",
			Name:      "transitions_total",
			Help:      "Work order status changes by target status.",
		}, []string{"status"}),
		masterDataEdits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "masterdata",
			Name:      "changes_total",
			Help:      "BOM and routing changes by event type.",
		}, []string{"event"}),
	}

	for _, c := range []prometheus.Collector{
		m.calculations, m.plannedOrders, m.pastDueOrders, m.capacityIssues, m.duration,
		m.regenerations, m.ordersWritten, m.fallbacks, m.bottlenecks, m.workOrders, m.masterDataEdits,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register planning metrics: %w", err)
		}
	}
	return m, nil
}

// Register subscribes the metrics to every event of store
func (m *PlanningMetrics) Register(store events.EventStore) error {
	return store.Subscribe([]string{events.AllEventTypes}, m)
}

func (m *PlanningMetrics) CanHandle(string) bool { return true }

func (m *PlanningMetrics) Handle(event events.Event) error {
	switch data := event.Data().(type) {
	case events.MRPCalculated:
		m.calculations.WithLabelValues("success").Inc()
		m.plannedOrders.Add(float64(data.PlannedOrders))
		m.pastDueOrders.Add(float64(data.PastDueOrders))
		m.capacityIssues.Add(float64(data.CapacityIssues))
		m.duration.Observe(data.Duration.Seconds())
	case events.MRPCalculationFailed:
		m.calculations.WithLabelValues("failure").Inc()
	case events.MRPRegenerated:
		m.regenerations.Inc()
		m.ordersWritten.Add(float64(data.OrdersWritten))
	case events.ForecastFallback:
		m.fallbacks.WithLabelValues(string(data.Failed)).Inc()
	case events.CapacityBottleneck:
		m.bottlenecks.WithLabelValues(data.WorkCenterID).Inc()
	case events.WorkOrderTransitioned:
		m.workOrders.WithLabelValues(string(data.To)).Inc()
	case events.BOMChanged, events.RoutingChanged:
		m.masterDataEdits.WithLabelValues(event.Type()).Inc()
	}
	return nil
}
