package testing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
)

// FixtureStart is the effective-from date of every fixture BOM and routing
const FixtureStart = "2023-01-01"

// Fixture bundles the in-memory repositories of one planning scenario.
// Builder methods panic on invalid data since fixtures are fixed test input.
type Fixture struct {
	Items       *memory.ItemRepository
	Demand      *memory.DemandRepository
	BOMs        *memory.BOMRepository
	Routings    *memory.RoutingRepository
	WorkCenters *memory.WorkCenterRepository
	WorkOrders  *memory.WorkOrderRepository
}

// NewFixture creates empty repositories; every calendar day is a working day
func NewFixture() *Fixture {
	return &Fixture{
		Items:       memory.NewItemRepository(),
		Demand:      memory.NewDemandRepository(),
		BOMs:        memory.NewBOMRepository(),
		Routings:    memory.NewRoutingRepository(),
		WorkCenters: memory.NewWorkCenterRepository(entities.AllDaysCalendar{}),
		WorkOrders:  memory.NewWorkOrderRepository(),
	}
}

// Qty is shorthand for a whole decimal quantity
func Qty(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// Line builds a BOM line in EA
func Line(lineNumber int, componentID entities.ProductID, qtyPer int64) entities.BOMLine {
	return entities.BOMLine{
		LineNumber:    lineNumber,
		ComponentID:   componentID,
		QtyPer:        Qty(qtyPer),
		UnitOfMeasure: "EA",
	}
}

// Op builds a routing operation with setup and per-unit run minutes
func Op(number int, workCenterID string, setupMinutes, runMinutes int64) entities.Operation {
	return entities.Operation{
		OperationNumber:  number,
		WorkCenterID:     workCenterID,
		Description:      fmt.Sprintf("op %d", number),
		Type:             entities.OperationProduction,
		SetupTimeMinutes: Qty(setupMinutes),
		RunTimeMinutes:   Qty(runMinutes),
	}
}

func (f *Fixture) Item(id entities.ProductID, leadTimeDays int, safetyStock, onHand int64, replenishment entities.ReplenishmentType) *Fixture {
	item, err := entities.NewItem(id, leadTimeDays, Qty(safetyStock), Qty(onHand), replenishment)
	if err != nil {
		panic(fmt.Sprintf("fixture item %s: %v", id, err))
	}
	if err := f.Items.SaveItem(context.Background(), item); err != nil {
		panic(err)
	}
	return f
}

// BOM stores a released version 1 of parent effective from FixtureStart
func (f *Fixture) BOM(parent entities.ProductID, lines ...entities.BOMLine) *Fixture {
	err := f.BOMs.Create(context.Background(), &entities.BillOfMaterials{
		ID:          string(parent) + "-bom-v1",
		ProductID:   parent,
		Version:     1,
		Type:        entities.BOMTypeManufacturing,
		Status:      entities.StatusReleased,
		Lines:       lines,
		Effectivity: entities.Effectivity{From: entities.MustDate(FixtureStart)},
	})
	if err != nil {
		panic(fmt.Sprintf("fixture bom %s: %v", parent, err))
	}
	return f
}

// WorkCenter stores an active work center with full efficiency and one unit
func (f *Fixture) WorkCenter(id string, hoursPerDay int64) *Fixture {
	wc, err := entities.NewWorkCenter(id, id, Qty(hoursPerDay), decimal.NewFromInt(1), 1)
	if err != nil {
		panic(fmt.Sprintf("fixture work center %s: %v", id, err))
	}
	f.WorkCenters.Save(wc)
	return f
}

// Routing stores a released version 1 of product effective from FixtureStart
func (f *Fixture) Routing(product entities.ProductID, ops ...entities.Operation) *Fixture {
	err := f.Routings.Create(context.Background(), &entities.Routing{
		ID:          string(product) + "-routing-v1",
		ProductID:   product,
		Version:     1,
		Status:      entities.StatusReleased,
		Operations:  ops,
		Effectivity: entities.Effectivity{From: entities.MustDate(FixtureStart)},
	})
	if err != nil {
		panic(fmt.Sprintf("fixture routing %s: %v", product, err))
	}
	return f
}

// Need adds independent demand; date is YYYY-MM-DD
func (f *Fixture) Need(id entities.ProductID, date string, quantity int64) *Fixture {
	f.Demand.AddDemand(entities.GrossRequirement{
		ProductID: id,
		Date:      entities.MustDate(date),
		Quantity:  Qty(quantity),
	})
	return f
}

func (f *Fixture) Receipt(id entities.ProductID, date string, quantity int64) *Fixture {
	f.Items.AddScheduledReceipt(entities.ScheduledReceipt{
		ProductID: id,
		Date:      entities.MustDate(date),
		Quantity:  Qty(quantity),
		Reference: fmt.Sprintf("PO-%s-%s", id, date),
	})
	return f
}

// BuildBicycleFixture builds a three level scenario with capacity data:
//
//	BIKE (make, 5d) -> FRAME x1 (make, 3d) -> TUBE x3 (buy, 10d)
//	                -> WHEEL x2 (buy, 7d)
//
// with 20 bikes due 2024-02-15, 10 wheels on hand and 30 tubes arriving
// 2024-02-01. ASSY runs 8h/day and WELD 4h/day.
func BuildBicycleFixture() *Fixture {
	return NewFixture().
		Item("BIKE", 5, 0, 0, entities.Manufacture).
		Item("FRAME", 3, 0, 0, entities.Manufacture).
		Item("TUBE", 10, 0, 0, entities.Purchase).
		Item("WHEEL", 7, 0, 10, entities.Purchase).
		BOM("BIKE", Line(10, "FRAME", 1), Line(20, "WHEEL", 2)).
		BOM("FRAME", Line(10, "TUBE", 3)).
		WorkCenter("ASSY", 8).
		WorkCenter("WELD", 4).
		Routing("BIKE", Op(10, "ASSY", 30, 15)).
		Routing("FRAME", Op(10, "WELD", 60, 30)).
		Receipt("TUBE", "2024-02-01", 30).
		Need("BIKE", "2024-02-15", 20)
}
