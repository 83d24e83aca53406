package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

var january = entities.MustHorizon("2024-01-01", "2024-01-31")

func openStore(t *testing.T) *PlannedOrderStore {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "plan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func plannedOrder(t *testing.T, id string, product, root entities.ProductID, qty string, start, due string) *entities.PlannedOrder {
	t.Helper()
	order, err := entities.NewPlannedOrder(id, product, decimal.RequireFromString(qty),
		entities.MustDate(start), entities.MustDate(due), entities.Manufacture)
	require.NoError(t, err)
	order.RootProductID = root
	return order
}

func TestPlannedOrderStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	order := plannedOrder(t, "po-1", "C", "P", "12.5", "2024-01-08", "2024-01-15")
	order.ParentProductID = "P"
	order.PastDue = true
	require.NoError(t, store.SavePlannedOrder(ctx, order))
	require.NoError(t, store.SavePlannedOrder(ctx, plannedOrder(t, "po-2", "P", "P", "1", "2024-03-01", "2024-03-02")))

	found, err := store.FindPlannedOrders(ctx, january)
	require.NoError(t, err)
	require.Len(t, found, 1)
	got := found[0]
	assert.Equal(t, "po-1", got.ID)
	assert.Equal(t, entities.ProductID("C"), got.ProductID)
	assert.Equal(t, entities.ProductID("P"), got.RootProductID)
	assert.Equal(t, entities.ProductID("P"), got.ParentProductID)
	assert.True(t, got.Quantity.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, entities.MustDate("2024-01-08"), got.StartDate)
	assert.Equal(t, entities.MustDate("2024-01-15"), got.DueDate)
	assert.Equal(t, entities.Manufacture, got.ReplenishmentType)
	assert.True(t, got.PastDue)
}

func TestPlannedOrderStore_DeleteOnlyOverlappingOrdersOfRoot(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.SavePlannedOrder(ctx, plannedOrder(t, "in", "P", "P", "1", "2024-01-10", "2024-01-12")))
	require.NoError(t, store.SavePlannedOrder(ctx, plannedOrder(t, "straddles", "P", "P", "1", "2023-12-28", "2024-01-02")))
	require.NoError(t, store.SavePlannedOrder(ctx, plannedOrder(t, "later", "P", "P", "1", "2024-02-10", "2024-02-12")))
	require.NoError(t, store.SavePlannedOrder(ctx, plannedOrder(t, "other-root", "C", "Q", "1", "2024-01-10", "2024-01-12")))

	require.NoError(t, store.DeletePlannedOrders(ctx, "P", january))

	remaining, err := store.FindPlannedOrders(ctx, entities.MustHorizon("2023-01-01", "2024-12-31"))
	require.NoError(t, err)
	var ids []string
	for _, o := range remaining {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"later", "other-root"}, ids)
}

func TestPlannedOrderStore_ReplaceIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	require.NoError(t, store.ReplacePlannedOrders(ctx, "P", january, []*entities.PlannedOrder{
		plannedOrder(t, "a", "P", "P", "10", "2024-01-08", "2024-01-15"),
		plannedOrder(t, "b", "C", "P", "20", "2024-01-08", "2024-01-08"),
	}))

	// the duplicate primary key fails the second insert and rolls back the delete
	err := store.ReplacePlannedOrders(ctx, "P", january, []*entities.PlannedOrder{
		plannedOrder(t, "c", "P", "P", "99", "2024-01-08", "2024-01-15"),
		plannedOrder(t, "c", "C", "P", "99", "2024-01-08", "2024-01-08"),
	})
	require.Error(t, err)

	found, err := store.FindPlannedOrders(ctx, january)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "b", found[0].ID)
	assert.Equal(t, "a", found[1].ID)
}

func TestPlannedOrderStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "plan.db")

	store, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.SavePlannedOrder(ctx, plannedOrder(t, "a", "P", "P", "3", "2024-01-08", "2024-01-15")))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	found, err := reopened.FindPlannedOrders(ctx, january)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
