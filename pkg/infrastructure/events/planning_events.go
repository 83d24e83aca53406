package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

const (
	BOMCreatedEvent        = "bom.created"
	BOMVersionCreatedEvent = "bom.version_created"
	BOMLineAddedEvent      = "bom.line_added"
	BOMLineRemovedEvent    = "bom.line_removed"
	BOMReleasedEvent       = "bom.released"
	BOMObsoletedEvent      = "bom.obsoleted"

	RoutingCreatedEvent        = "routing.created"
	RoutingVersionCreatedEvent = "routing.version_created"
	RoutingChangedEvent        = "routing.changed"
	RoutingReleasedEvent       = "routing.released"
	RoutingObsoletedEvent      = "routing.obsoleted"

	MRPCalculatedEvent        = "mrp.calculated"
	MRPCalculationFailedEvent = "mrp.calculation_failed"
	MRPRegeneratedEvent       = "mrp.regenerated"

	WorkOrderCreatedEvent      = "workorder.created"
	WorkOrderTransitionedEvent = "workorder.transitioned"

	ForecastFallbackEvent = "forecast.fallback"

	CapacityBottleneckEvent = "capacity.bottleneck"
)

type BOMChanged struct {
	BOMID     string             `json:"bom_id"`
	ProductID entities.ProductID `json:"product_id"`
	Version   int                `json:"version"`
	Status    string             `json:"status"`
	Line      *entities.BOMLine  `json:"line,omitempty"`
}

type RoutingChanged struct {
	RoutingID string             `json:"routing_id"`
	ProductID entities.ProductID `json:"product_id"`
	Version   int                `json:"version"`
	Status    string             `json:"status"`
}

type MRPCalculated struct {
	ProductID      entities.ProductID `json:"product_id"`
	PlannedOrders  int                `json:"planned_orders"`
	PastDueOrders  int                `json:"past_due_orders"`
	CapacityIssues int                `json:"capacity_issues"`
	Duration       time.Duration      `json:"duration"`
}

type MRPCalculationFailed struct {
	ProductID entities.ProductID `json:"product_id"`
	Error     string             `json:"error"`
}

type MRPRegenerated struct {
	ProductID     entities.ProductID `json:"product_id"`
	OrdersWritten int                `json:"orders_written"`
}

type WorkOrderTransitioned struct {
	WorkOrderID string                   `json:"work_order_id"`
	OrderNumber string                   `json:"order_number"`
	Action      entities.WorkOrderAction `json:"action"`
	From        entities.WorkOrderStatus `json:"from"`
	To          entities.WorkOrderStatus `json:"to"`
}

type ForecastFallback struct {
	ProductID entities.ProductID      `json:"product_id"`
	Failed    entities.ForecastSource `json:"failed"`
	Reason    string                  `json:"reason"`
}

type CapacityBottleneck struct {
	WorkCenterID string          `json:"work_center_id"`
	BucketStart  time.Time       `json:"bucket_start"`
	Utilization  decimal.Decimal `json:"utilization"`
}

// PublishQuietly sends the event and logs instead of returning a failure.
// Planning results never depend on observers.
func PublishQuietly(ctx context.Context, publisher Publisher, logger *zap.Logger, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish event",
			zap.String("event_type", event.Type()),
			zap.String("stream_id", event.StreamID()),
			zap.Error(err))
	}
}
