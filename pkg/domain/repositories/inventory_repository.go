package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// InventoryDataProvider supplies the inventory state used for netting
type InventoryDataProvider interface {
	GetOnHandQuantity(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error)
	GetSafetyStock(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error)
	GetScheduledReceipts(ctx context.Context, productID entities.ProductID, horizon entities.PlanningHorizon) ([]entities.ScheduledReceipt, error)
	GetLeadTimeDays(ctx context.Context, productID entities.ProductID) (int, error)
	GetReplenishmentType(ctx context.Context, productID entities.ProductID) (entities.ReplenishmentType, error)
}
