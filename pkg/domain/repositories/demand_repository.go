package repositories

import (
	"context"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// PlannedOrderWriter persists the output of a planning run
type PlannedOrderWriter interface {
	// DeletePlannedOrders removes the orders pegged to rootProductID that overlap the horizon
	DeletePlannedOrders(ctx context.Context, rootProductID entities.ProductID, horizon entities.PlanningHorizon) error
	SavePlannedOrder(ctx context.Context, order *entities.PlannedOrder) error
}

// PlannedOrderReplacer swaps a product's planned orders in a single transaction
type PlannedOrderReplacer interface {
	ReplacePlannedOrders(ctx context.Context, rootProductID entities.ProductID, horizon entities.PlanningHorizon, orders []*entities.PlannedOrder) error
}

// PlannedOrderReader exposes stored planned orders starting in a horizon
type PlannedOrderReader interface {
	FindPlannedOrders(ctx context.Context, horizon entities.PlanningHorizon) ([]*entities.PlannedOrder, error)
}

// DemandSource supplies independent demand
type DemandSource interface {
	GetGrossRequirements(ctx context.Context, productID entities.ProductID, horizon entities.PlanningHorizon) ([]entities.GrossRequirement, error)
	GetMasterScheduledProducts(ctx context.Context) ([]entities.ProductID, error)
}

// DemandDataProvider supplies independent demand and accepts planned orders
type DemandDataProvider interface {
	DemandSource
	PlannedOrderWriter
}
