package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ProductID represents a unique product identifier
type ProductID string

// ReplenishmentType represents how a product is replenished
type ReplenishmentType int

const (
	Manufacture ReplenishmentType = iota
	Purchase
)

// String method for ReplenishmentType enum
func (r ReplenishmentType) String() string {
	switch r {
	case Manufacture:
		return "manufacture"
	case Purchase:
		return "purchase"
	default:
		return "unknown"
	}
}

// ParseReplenishmentType converts a textual replenishment type
func ParseReplenishmentType(s string) (ReplenishmentType, error) {
	switch s {
	case "manufacture", "make", "MANUFACTURE", "MAKE":
		return Manufacture, nil
	case "purchase", "buy", "PURCHASE", "BUY":
		return Purchase, nil
	default:
		return 0, fmt.Errorf("unknown replenishment type %q", s)
	}
}

// Item represents the planning master data of a product
type Item struct {
	ProductID         ProductID
	Description       string
	LeadTimeDays      int
	SafetyStock       decimal.Decimal
	OnHand            decimal.Decimal
	ReplenishmentType ReplenishmentType
	UnitOfMeasure     string
	MasterScheduled   bool
}

// NewItem creates a validated Item
func NewItem(productID ProductID, leadTimeDays int, safetyStock, onHand decimal.Decimal, replenishment ReplenishmentType) (*Item, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if leadTimeDays < 0 {
		return nil, fmt.Errorf("lead time cannot be negative, got %d", leadTimeDays)
	}
	if safetyStock.IsNegative() {
		return nil, fmt.Errorf("safety stock cannot be negative, got %s", safetyStock)
	}
	if onHand.IsNegative() {
		return nil, fmt.Errorf("on hand quantity cannot be negative, got %s", onHand)
	}

	return &Item{
		ProductID:         productID,
		LeadTimeDays:      leadTimeDays,
		SafetyStock:       safetyStock,
		OnHand:            onHand,
		ReplenishmentType: replenishment,
		UnitOfMeasure:     "EA",
	}, nil
}

// DateOf truncates t to its calendar day in UTC.
// All planning dates are compared and used as map keys in this form.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MustDate parses a YYYY-MM-DD date and panics on failure. Intended for fixtures.
func MustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
