package repositories

import (
	"context"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// WorkOrderRepository persists work orders. Work orders are never deleted.
type WorkOrderRepository interface {
	Create(ctx context.Context, order *entities.WorkOrder) error
	FindByID(ctx context.Context, id string) (*entities.WorkOrder, error)
	FindByNumber(ctx context.Context, orderNumber string) (*entities.WorkOrder, error)
	Update(ctx context.Context, order *entities.WorkOrder) error
}
