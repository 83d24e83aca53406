package workorder

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
)

var fixedNow = time.Date(2024, 1, 10, 8, 30, 0, 0, time.UTC)

func newManager(t *testing.T) (*Manager, *events.InMemoryEventStore) {
	t.Helper()
	store := events.NewInMemoryEventStore(nil)
	return NewManager(memory.NewWorkOrderRepository(),
		shared.WithPublisher(store),
		shared.WithClock(func() time.Time { return fixedNow })), store
}

func createOrder(t *testing.T, m *Manager) *entities.WorkOrder {
	t.Helper()
	order, err := m.Create(context.Background(), CreateRequest{
		ProductID:    "P",
		Quantity:     decimal.NewFromInt(100),
		PlannedStart: entities.MustDate("2024-01-08"),
		PlannedEnd:   entities.MustDate("2024-01-15"),
	})
	require.NoError(t, err)
	return order
}

func TestManager_CreateStartsPlanned(t *testing.T) {
	m, store := newManager(t)
	order := createOrder(t, m)

	assert.Equal(t, entities.WorkOrderPlanned, order.Status)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "WO-20240110-"), order.OrderNumber)
	assert.Nil(t, order.ActualStart)
	assert.Len(t, store.EventsOfType(events.WorkOrderCreatedEvent), 1)

	byNumber, err := m.GetByNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)
}

func TestManager_CreateValidation(t *testing.T) {
	m, _ := newManager(t)
	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"empty product", CreateRequest{Quantity: decimal.NewFromInt(1), PlannedStart: fixedNow, PlannedEnd: fixedNow}},
		{"zero quantity", CreateRequest{ProductID: "P", PlannedStart: fixedNow, PlannedEnd: fixedNow}},
		{"missing dates", CreateRequest{ProductID: "P", Quantity: decimal.NewFromInt(1)}},
		{"end before start", CreateRequest{ProductID: "P", Quantity: decimal.NewFromInt(1),
			PlannedStart: entities.MustDate("2024-01-10"), PlannedEnd: entities.MustDate("2024-01-09")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, entities.ErrInvalidArgument)
		})
	}
}

func TestManager_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	m, store := newManager(t)
	order := createOrder(t, m)

	released, err := m.Release(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WorkOrderReleased, released.Status)

	started, err := m.Start(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WorkOrderInProgress, started.Status)
	require.NotNil(t, started.ActualStart)
	assert.Equal(t, fixedNow, *started.ActualStart)

	completed, err := m.Complete(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WorkOrderCompleted, completed.Status)
	require.NotNil(t, completed.ActualEnd)

	closed, err := m.Close(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WorkOrderClosed, closed.Status)

	transitions := store.EventsOfType(events.WorkOrderTransitionedEvent)
	require.Len(t, transitions, 4)
	last := transitions[3].Data().(events.WorkOrderTransitioned)
	assert.Equal(t, entities.WorkOrderCompleted, last.From)
	assert.Equal(t, entities.WorkOrderClosed, last.To)
}

func TestManager_RejectsIllegalTransition(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)
	order := createOrder(t, m)

	_, err := m.Start(ctx, order.ID)
	require.ErrorIs(t, err, entities.ErrInvalidWorkOrderStatus)

	var statusErr *entities.InvalidWorkOrderStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, entities.WorkOrderPlanned, statusErr.Current)
	assert.Equal(t, entities.WorkOrderReleased, statusErr.Required)
	assert.Equal(t, entities.ActionStart, statusErr.Action)

	stored, err := m.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WorkOrderPlanned, stored.Status)
}

func TestManager_CancelOnlyFromPlanned(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	planned := createOrder(t, m)
	cancelled, err := m.Cancel(ctx, planned.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.WorkOrderCancelled, cancelled.Status)

	_, err = m.Release(ctx, planned.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidWorkOrderStatus)

	released := createOrder(t, m)
	_, err = m.Release(ctx, released.ID)
	require.NoError(t, err)
	_, err = m.Cancel(ctx, released.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidWorkOrderStatus)
}

func TestManager_UnknownOrder(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Release(context.Background(), "missing")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestManager_CreateFromPlannedOrder(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t)

	planned, err := entities.NewPlannedOrder("po-1", "P", decimal.NewFromInt(40),
		entities.MustDate("2024-01-08"), entities.MustDate("2024-01-15"), entities.Manufacture)
	require.NoError(t, err)

	order, err := m.CreateFromPlannedOrder(ctx, planned)
	require.NoError(t, err)
	assert.Equal(t, "po-1", order.SourceOrderID)
	assert.True(t, order.PlannedQuantity.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, planned.StartDate, order.PlannedStart)
	assert.Equal(t, planned.DueDate, order.PlannedEnd)

	purchase, err := entities.NewPlannedOrder("po-2", "R", decimal.NewFromInt(5),
		entities.MustDate("2024-01-08"), entities.MustDate("2024-01-15"), entities.Purchase)
	require.NoError(t, err)
	_, err = m.CreateFromPlannedOrder(ctx, purchase)
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)
}
