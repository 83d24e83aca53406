package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// MRPResult contains the complete output of one product's MRP calculation
type MRPResult struct {
	ProductID            entities.ProductID
	Horizon              entities.PlanningHorizon
	LotSizing            string
	MaterialRequirements []entities.MaterialRequirement
	PlannedOrders        []*entities.PlannedOrder
	CapacityIssues       []CapacityIssue
	Warnings             []string
	CalculatedAt         time.Time
}

// OrdersFor returns the planned orders of a single product
func (r *MRPResult) OrdersFor(productID entities.ProductID) []*entities.PlannedOrder {
	var orders []*entities.PlannedOrder
	for _, o := range r.PlannedOrders {
		if o.ProductID == productID {
			orders = append(orders, o)
		}
	}
	return orders
}

// RequirementsFor returns the netting records of a single product
func (r *MRPResult) RequirementsFor(productID entities.ProductID) []entities.MaterialRequirement {
	var reqs []entities.MaterialRequirement
	for _, req := range r.MaterialRequirements {
		if req.ProductID == productID {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// TotalPlanned sums the planned quantity of a product
func (r *MRPResult) TotalPlanned(productID entities.ProductID) decimal.Decimal {
	total := decimal.Zero
	for _, o := range r.OrdersFor(productID) {
		total = total.Add(o.Quantity)
	}
	return total
}

// CapacityIssue flags a planned order whose load exceeds remaining capacity
type CapacityIssue struct {
	OrderID        string
	ProductID      entities.ProductID
	WorkCenterID   string
	Date           time.Time
	RequiredHours  decimal.Decimal
	RemainingHours decimal.Decimal
}

// BatchResult holds per-product outcomes of a multi-product calculation
type BatchResult struct {
	Results  map[entities.ProductID]*MRPResult
	Failures map[entities.ProductID]error
}

// RegenerationSummary reports a full regeneration run
type RegenerationSummary struct {
	Regenerated   []entities.ProductID
	Failures      map[entities.ProductID]error
	OrdersWritten int
}

// ExplodedLine is one entry of a flattened multi-level BOM explosion
type ExplodedLine struct {
	ProductID     entities.ProductID
	ParentID      entities.ProductID
	LineNumber    int
	Level         int
	Quantity      decimal.Decimal
	UnitOfMeasure string
}
