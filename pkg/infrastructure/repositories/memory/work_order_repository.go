package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// WorkOrderRepository provides in-memory work order storage
type WorkOrderRepository struct {
	mu       sync.RWMutex
	orders   map[string]*entities.WorkOrder
	byNumber map[string]string
}

// NewWorkOrderRepository creates a new in-memory work order repository
func NewWorkOrderRepository() *WorkOrderRepository {
	return &WorkOrderRepository{
		orders:   make(map[string]*entities.WorkOrder),
		byNumber: make(map[string]string),
	}
}

// Verify interface compliance
var _ repositories.WorkOrderRepository = (*WorkOrderRepository)(nil)

func (r *WorkOrderRepository) Create(_ context.Context, order *entities.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byNumber[order.OrderNumber]; exists {
		return fmt.Errorf("work order number %s already exists: %w", order.OrderNumber, entities.ErrInvalidArgument)
	}
	r.orders[order.ID] = order.Clone()
	r.byNumber[order.OrderNumber] = order.ID
	return nil
}

func (r *WorkOrderRepository) FindByID(_ context.Context, id string) (*entities.WorkOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, entities.NewNotFoundError("work order", id)
	}
	return order.Clone(), nil
}

func (r *WorkOrderRepository) FindByNumber(ctx context.Context, orderNumber string) (*entities.WorkOrder, error) {
	r.mu.RLock()
	id, ok := r.byNumber[orderNumber]
	r.mu.RUnlock()
	if !ok {
		return nil, entities.NewNotFoundError("work order", orderNumber)
	}
	return r.FindByID(ctx, id)
}

func (r *WorkOrderRepository) Update(_ context.Context, order *entities.WorkOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[order.ID]; !ok {
		return entities.NewNotFoundError("work order", order.ID)
	}
	r.orders[order.ID] = order.Clone()
	return nil
}
