package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

func bomVersion(id string, version int, from, to string, status entities.VersionStatus) *entities.BillOfMaterials {
	eff := entities.Effectivity{From: entities.MustDate(from)}
	if to != "" {
		eff.To = entities.MustDate(to)
	}
	return &entities.BillOfMaterials{
		ID:          id,
		ProductID:   "P",
		Version:     version,
		Status:      status,
		Effectivity: eff,
		Lines:       []entities.BOMLine{{LineNumber: 10, ComponentID: "C", QtyPer: decimal.NewFromInt(1)}},
	}
}

func TestBOMRepository_FindByProductIDSelectsEffectiveVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewBOMRepository()
	require.NoError(t, repo.Create(ctx, bomVersion("v1", 1, "2024-01-01", "2024-02-01", entities.StatusReleased)))
	require.NoError(t, repo.Create(ctx, bomVersion("v2", 2, "2024-02-01", "", entities.StatusDraft)))
	require.NoError(t, repo.Create(ctx, bomVersion("v3", 3, "2024-03-01", "", entities.StatusObsolete)))

	tests := []struct {
		date   string
		wantID string
	}{
		{"2024-01-15", "v1"},
		{"2024-02-01", "v2"},
		{"2024-03-15", "v2"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			bom, err := repo.FindByProductID(ctx, "P", entities.MustDate(tt.date))
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, bom.ID)
		})
	}

	_, err := repo.FindByProductID(ctx, "P", entities.MustDate("2023-12-31"))
	assert.ErrorIs(t, err, entities.ErrNotFound)

	versions, err := repo.FindAllVersions(ctx, "P")
	require.NoError(t, err)
	assert.Len(t, versions, 3)
	assert.Equal(t, 1, versions[0].Version)
}

func TestBOMRepository_ClonesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewBOMRepository()
	original := bomVersion("v1", 1, "2024-01-01", "", entities.StatusDraft)
	require.NoError(t, repo.Create(ctx, original))

	original.Lines[0].ComponentID = "MUTATED"
	got, err := repo.FindByID(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, entities.ProductID("C"), got.Lines[0].ComponentID)

	got.Lines = nil
	again, _ := repo.FindByID(ctx, "v1")
	assert.Len(t, again.Lines, 1)

	assert.ErrorIs(t, repo.Create(ctx, bomVersion("other", 1, "2025-01-01", "", entities.StatusDraft)), entities.ErrVersionExists)
	assert.ErrorIs(t, repo.Update(ctx, bomVersion("missing", 9, "2025-01-01", "", entities.StatusDraft)), entities.ErrNotFound)
}

func TestDemandRepository_ReplacePlannedOrdersByRoot(t *testing.T) {
	ctx := context.Background()
	repo := NewDemandRepository()
	h := entities.MustHorizon("2024-01-01", "2024-03-31")

	order := func(id string, product, root entities.ProductID, start string) *entities.PlannedOrder {
		o, err := entities.NewPlannedOrder(id, product, decimal.NewFromInt(1), entities.MustDate(start), entities.MustDate(start), entities.Purchase)
		require.NoError(t, err)
		o.RootProductID = root
		return o
	}

	require.NoError(t, repo.SavePlannedOrder(ctx, order("1", "P", "P", "2024-01-10")))
	require.NoError(t, repo.SavePlannedOrder(ctx, order("2", "C", "P", "2024-01-05")))
	require.NoError(t, repo.SavePlannedOrder(ctx, order("3", "Q", "Q", "2024-01-05")))
	require.NoError(t, repo.SavePlannedOrder(ctx, order("4", "P", "P", "2024-06-01")))

	require.NoError(t, repo.ReplacePlannedOrders(ctx, "P", h, []*entities.PlannedOrder{order("5", "P", "P", "2024-02-01")}))

	var ids []string
	for _, o := range repo.PlannedOrders() {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"3", "4", "5"}, ids)

	inHorizon, err := repo.FindPlannedOrders(ctx, h)
	require.NoError(t, err)
	assert.Len(t, inHorizon, 2)
}

func TestDemandRepository_GrossRequirementsWithinHorizon(t *testing.T) {
	ctx := context.Background()
	repo := NewDemandRepository()
	repo.AddDemand(entities.GrossRequirement{ProductID: "P", Date: entities.MustDate("2024-02-01"), Quantity: decimal.NewFromInt(5)})
	repo.AddDemand(entities.GrossRequirement{ProductID: "P", Date: entities.MustDate("2024-01-15"), Quantity: decimal.NewFromInt(10)})
	repo.AddDemand(entities.GrossRequirement{ProductID: "P", Date: entities.MustDate("2024-05-01"), Quantity: decimal.NewFromInt(99)})

	reqs, err := repo.GetGrossRequirements(ctx, "P", entities.MustHorizon("2024-01-01", "2024-03-31"))
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.True(t, reqs[0].Date.Equal(entities.MustDate("2024-01-15")))

	products, err := repo.GetMasterScheduledProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entities.ProductID{"P"}, products)
}

func TestWorkCenterRepository_AvailableHoursFollowCalendar(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkCenterRepository(entities.WeekdayCalendar{
		Holidays: map[time.Time]bool{entities.MustDate("2024-01-01"): true},
	})
	wc, err := entities.NewWorkCenter("WC1", "", decimal.NewFromInt(8), decimal.NewFromFloat(0.5), 2)
	require.NoError(t, err)
	repo.Save(wc)

	// 2024-01-01 is a Monday holiday; 06 and 07 are the weekend
	hours, err := repo.GetAvailableHoursForPeriod(ctx, "WC1", entities.MustDate("2024-01-01"), entities.MustDate("2024-01-07"))
	require.NoError(t, err)
	assert.Len(t, hours, 4)
	assert.True(t, hours[entities.MustDate("2024-01-02")].Equal(decimal.NewFromInt(8)))

	_, err = repo.GetAvailableHoursForPeriod(ctx, "nope", entities.MustDate("2024-01-01"), entities.MustDate("2024-01-02"))
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestItemRepository_InventoryProvider(t *testing.T) {
	ctx := context.Background()
	repo := NewItemRepository()
	item, err := entities.NewItem("P", 7, decimal.NewFromInt(5), decimal.NewFromInt(20), entities.Manufacture)
	require.NoError(t, err)
	require.NoError(t, repo.LoadItems([]*entities.Item{item}))
	repo.AddScheduledReceipt(entities.ScheduledReceipt{ProductID: "P", Date: entities.MustDate("2024-01-20"), Quantity: decimal.NewFromInt(3)})
	repo.AddScheduledReceipt(entities.ScheduledReceipt{ProductID: "P", Date: entities.MustDate("2025-01-20"), Quantity: decimal.NewFromInt(3)})

	onHand, err := repo.GetOnHandQuantity(ctx, "P")
	require.NoError(t, err)
	assert.True(t, onHand.Equal(decimal.NewFromInt(20)))

	lead, err := repo.GetLeadTimeDays(ctx, "P")
	require.NoError(t, err)
	assert.Equal(t, 7, lead)

	receipts, err := repo.GetScheduledReceipts(ctx, "P", entities.MustHorizon("2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	assert.Len(t, receipts, 1)

	_, err = repo.GetSafetyStock(ctx, "X")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestWorkOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkOrderRepository()
	wo := &entities.WorkOrder{ID: "1", OrderNumber: "WO-1", ProductID: "P", Status: entities.WorkOrderPlanned}
	require.NoError(t, repo.Create(ctx, wo))
	assert.ErrorIs(t, repo.Create(ctx, &entities.WorkOrder{ID: "2", OrderNumber: "WO-1"}), entities.ErrInvalidArgument)

	found, err := repo.FindByNumber(ctx, "WO-1")
	require.NoError(t, err)
	found.Status = entities.WorkOrderReleased
	require.NoError(t, repo.Update(ctx, found))

	again, err := repo.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, entities.WorkOrderReleased, again.Status)
}
