package mrp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/services"
)

// inventoryState is everything the inventory provider knows about one product
type inventoryState struct {
	onHand        decimal.Decimal
	safetyStock   decimal.Decimal
	receipts      []entities.ScheduledReceipt
	leadTimeDays  int
	replenishment entities.ReplenishmentType
}

func (e *Engine) inventoryState(ctx context.Context, productID entities.ProductID, horizon entities.PlanningHorizon) (*inventoryState, error) {
	onHand, err := e.inventory.GetOnHandQuantity(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get on-hand quantity of %s: %w", productID, err)
	}
	safetyStock, err := e.inventory.GetSafetyStock(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get safety stock of %s: %w", productID, err)
	}
	if safetyStock.IsNegative() {
		return nil, fmt.Errorf("safety stock of %s cannot be negative, got %s: %w", productID, safetyStock, entities.ErrInvalidArgument)
	}
	receipts, err := e.inventory.GetScheduledReceipts(ctx, productID, horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled receipts of %s: %w", productID, err)
	}
	leadTime, err := e.inventory.GetLeadTimeDays(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lead time of %s: %w", productID, err)
	}
	if leadTime < 0 {
		return nil, fmt.Errorf("lead time of %s cannot be negative, got %d: %w", productID, leadTime, entities.ErrInvalidArgument)
	}
	replenishment, err := e.inventory.GetReplenishmentType(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get replenishment type of %s: %w", productID, err)
	}

	return &inventoryState{
		onHand:        onHand,
		safetyStock:   safetyStock,
		receipts:      receipts,
		leadTimeDays:  leadTime,
		replenishment: replenishment,
	}, nil
}

type bucket struct {
	gross       decimal.Decimal
	receipts    decimal.Decimal
	source      entities.RequirementSource
	hasDemand   bool
	independent bool
	parents     map[entities.ProductID]bool
}

// singleParent returns the parent when all demand in the bucket came from one
// parent product, empty otherwise
func (b *bucket) singleParent() entities.ProductID {
	if b.independent || len(b.parents) != 1 {
		return ""
	}
	for parent := range b.parents {
		return parent
	}
	return ""
}

// demandBuckets is the per-date demand and supply of one product
type demandBuckets struct {
	byDate    map[time.Time]*bucket
	source    entities.RequirementSource
	hasDemand bool
}

func newDemandBuckets() *demandBuckets {
	return &demandBuckets{byDate: make(map[time.Time]*bucket)}
}

func (d *demandBuckets) get(date time.Time) *bucket {
	date = entities.DateOf(date)
	b, ok := d.byDate[date]
	if !ok {
		b = &bucket{gross: decimal.Zero, receipts: decimal.Zero, parents: make(map[entities.ProductID]bool)}
		d.byDate[date] = b
	}
	return b
}

func (d *demandBuckets) add(date time.Time, quantity decimal.Decimal, source entities.RequirementSource, parent entities.ProductID) {
	b := d.get(date)
	b.gross = b.gross.Add(quantity)
	if b.hasDemand {
		b.source = b.source.Merge(source)
	} else {
		b.source = source
		b.hasDemand = true
	}
	if parent == "" {
		b.independent = true
	} else {
		b.parents[parent] = true
	}

	if d.hasDemand {
		d.source = d.source.Merge(source)
	} else {
		d.source = source
		d.hasDemand = true
	}
}

// addReceipt must be called after all demand was added; receipt-only dates
// take the product's overall demand source
func (d *demandBuckets) addReceipt(date time.Time, quantity decimal.Decimal) {
	b := d.get(date)
	b.receipts = b.receipts.Add(quantity)
	if !b.hasDemand {
		b.source = d.source
	}
}

func (d *demandBuckets) empty() bool { return !d.hasDemand }

func (d *demandBuckets) at(date time.Time) *bucket { return d.byDate[date] }

func (d *demandBuckets) dates() []time.Time {
	dates := make([]time.Time, 0, len(d.byDate))
	for date := range d.byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// uncoveredAfter lists the demand of later dates not met by receipts on the same date
func (d *demandBuckets) uncoveredAfter(dates []time.Time) []services.DatedQuantity {
	var out []services.DatedQuantity
	for _, date := range dates {
		b := d.byDate[date]
		if uncovered := b.gross.Sub(b.receipts); uncovered.IsPositive() {
			out = append(out, services.DatedQuantity{Date: date, Quantity: uncovered})
		}
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, entities.ErrNotFound)
}
