package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PlannedOrder represents a system-suggested manufacturing or procurement order.
// Planned orders are produced by the MRP engine only.
type PlannedOrder struct {
	ID                string
	ProductID         ProductID
	RootProductID     ProductID // planned product whose calculation produced the order
	ParentProductID   ProductID // empty for independent demand
	Quantity          decimal.Decimal
	StartDate         time.Time
	DueDate           time.Time
	ReplenishmentType ReplenishmentType
	PastDue           bool
}

// NewPlannedOrder creates a validated PlannedOrder
func NewPlannedOrder(
	id string,
	productID ProductID,
	quantity decimal.Decimal,
	startDate, dueDate time.Time,
	replenishment ReplenishmentType,
) (*PlannedOrder, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	startDate, dueDate = DateOf(startDate), DateOf(dueDate)
	if startDate.After(dueDate) {
		return nil, fmt.Errorf("start date %s cannot be after due date %s",
			startDate.Format("2006-01-02"), dueDate.Format("2006-01-02"))
	}

	return &PlannedOrder{
		ID:                id,
		ProductID:         productID,
		RootProductID:     productID,
		Quantity:          quantity,
		StartDate:         startDate,
		DueDate:           dueDate,
		ReplenishmentType: replenishment,
	}, nil
}
