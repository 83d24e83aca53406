package workorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

// Manager owns the work order lifecycle. Every transition is checked against
// the transition table before the order is touched.
type Manager struct {
	repo repositories.WorkOrderRepository
	opts shared.Options
}

func NewManager(repo repositories.WorkOrderRepository, opts ...shared.Option) *Manager {
	return &Manager{repo: repo, opts: shared.Apply(opts...)}
}

// CreateRequest describes a new work order
type CreateRequest struct {
	ProductID     entities.ProductID
	Quantity      decimal.Decimal
	PlannedStart  time.Time
	PlannedEnd    time.Time
	SourceOrderID string
}

// Create stores a new work order in PLANNED status
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*entities.WorkOrder, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("product id cannot be empty: %w", entities.ErrInvalidArgument)
	}
	if !req.Quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s: %w", req.Quantity, entities.ErrInvalidArgument)
	}
	start, end := entities.DateOf(req.PlannedStart), entities.DateOf(req.PlannedEnd)
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("planned start and end are required: %w", entities.ErrInvalidArgument)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("planned end %s is before start %s: %w",
			end.Format("2006-01-02"), start.Format("2006-01-02"), entities.ErrInvalidArgument)
	}

	now := m.opts.Now()
	id := uuid.NewString()
	order := &entities.WorkOrder{
		ID:              id,
		OrderNumber:     orderNumber(now, id),
		ProductID:       req.ProductID,
		PlannedQuantity: req.Quantity,
		Status:          entities.WorkOrderPlanned,
		PlannedStart:    start,
		PlannedEnd:      end,
		SourceOrderID:   req.SourceOrderID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := m.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create work order for %s: %w", req.ProductID, err)
	}

	m.opts.Logger.Info("work order created",
		zap.String("order_number", order.OrderNumber),
		zap.String("product_id", string(order.ProductID)),
		zap.String("quantity", order.PlannedQuantity.String()))
	events.PublishQuietly(ctx, m.opts.Publisher, m.opts.Logger,
		events.NewEvent(events.WorkOrderCreatedEvent, order.ID, events.WorkOrderTransitioned{
			WorkOrderID: order.ID,
			OrderNumber: order.OrderNumber,
			To:          order.Status,
		}))
	return order.Clone(), nil
}

// CreateFromPlannedOrder converts a manufacture planned order into a work order
func (m *Manager) CreateFromPlannedOrder(ctx context.Context, planned *entities.PlannedOrder) (*entities.WorkOrder, error) {
	if planned == nil {
		return nil, fmt.Errorf("planned order cannot be nil: %w", entities.ErrInvalidArgument)
	}
	if planned.ReplenishmentType != entities.Manufacture {
		return nil, fmt.Errorf("planned order %s for %s is a %s order, only manufacture orders become work orders: %w",
			planned.ID, planned.ProductID, planned.ReplenishmentType, entities.ErrInvalidArgument)
	}
	return m.Create(ctx, CreateRequest{
		ProductID:     planned.ProductID,
		Quantity:      planned.Quantity,
		PlannedStart:  planned.StartDate,
		PlannedEnd:    planned.DueDate,
		SourceOrderID: planned.ID,
	})
}

func (m *Manager) GetByID(ctx context.Context, id string) (*entities.WorkOrder, error) {
	return m.repo.FindByID(ctx, id)
}

func (m *Manager) GetByNumber(ctx context.Context, orderNumber string) (*entities.WorkOrder, error) {
	return m.repo.FindByNumber(ctx, orderNumber)
}

// Release moves a PLANNED order to RELEASED
func (m *Manager) Release(ctx context.Context, id string) (*entities.WorkOrder, error) {
	return m.transition(ctx, id, entities.ActionRelease)
}

// Start moves a RELEASED order to IN_PROGRESS and stamps the actual start
func (m *Manager) Start(ctx context.Context, id string) (*entities.WorkOrder, error) {
	return m.transition(ctx, id, entities.ActionStart)
}

// Complete moves an IN_PROGRESS order to COMPLETED and stamps the actual end
func (m *Manager) Complete(ctx context.Context, id string) (*entities.WorkOrder, error) {
	return m.transition(ctx, id, entities.ActionComplete)
}

// Cancel moves a PLANNED order to CANCELLED
func (m *Manager) Cancel(ctx context.Context, id string) (*entities.WorkOrder, error) {
	return m.transition(ctx, id, entities.ActionCancel)
}

// Close moves a COMPLETED order to CLOSED
func (m *Manager) Close(ctx context.Context, id string) (*entities.WorkOrder, error) {
	return m.transition(ctx, id, entities.ActionClose)
}

func (m *Manager) transition(ctx context.Context, id string, action entities.WorkOrderAction) (*entities.WorkOrder, error) {
	order, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := order.Status
	next, ok := entities.NextWorkOrderStatus(from, action)
	if !ok {
		return nil, &entities.InvalidWorkOrderStatusError{
			OrderNumber: order.OrderNumber,
			Action:      action,
			Current:     from,
			Required:    entities.RequiredWorkOrderStatus(action),
		}
	}

	now := m.opts.Now()
	order.Status = next
	order.UpdatedAt = now
	switch action {
	case entities.ActionStart:
		order.ActualStart = &now
	case entities.ActionComplete:
		order.ActualEnd = &now
	}
	if err := m.repo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to %s work order %s: %w", action, order.OrderNumber, err)
	}

	m.opts.Logger.Info("work order transitioned",
		zap.String("order_number", order.OrderNumber),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(next)))
	events.PublishQuietly(ctx, m.opts.Publisher, m.opts.Logger,
		events.NewEvent(events.WorkOrderTransitionedEvent, order.ID, events.WorkOrderTransitioned{
			WorkOrderID: order.ID,
			OrderNumber: order.OrderNumber,
			Action:      action,
			From:        from,
			To:          next,
		}))
	return order, nil
}

// orderNumber is WO-YYYYMMDD followed by the first block of the id
func orderNumber(now time.Time, id string) string {
	suffix := strings.ToUpper(strings.SplitN(id, "-", 2)[0])
	return fmt.Sprintf("WO-%s-%s", now.Format("20060102"), suffix)
}
