package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RequirementSource tells whether a requirement came from outside demand or from a parent's BOM
type RequirementSource int

const (
	IndependentDemand RequirementSource = iota
	DependentDemand
	MixedDemand
)

// String method for RequirementSource enum
func (s RequirementSource) String() string {
	switch s {
	case IndependentDemand:
		return "independent"
	case DependentDemand:
		return "dependent"
	case MixedDemand:
		return "mixed"
	default:
		return "unknown"
	}
}

// Merge combines the source of two requirements landing in the same bucket
func (s RequirementSource) Merge(other RequirementSource) RequirementSource {
	if s == other {
		return s
	}
	return MixedDemand
}

// GrossRequirement represents demand for a product on a date before netting
type GrossRequirement struct {
	ProductID ProductID
	Date      time.Time
	Quantity  decimal.Decimal
}

// NewGrossRequirement creates a validated GrossRequirement
func NewGrossRequirement(productID ProductID, date time.Time, quantity decimal.Decimal) (*GrossRequirement, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("requirement date cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, fmt.Errorf("quantity cannot be negative, got %s", quantity)
	}

	return &GrossRequirement{ProductID: productID, Date: DateOf(date), Quantity: quantity}, nil
}

// MaterialRequirement is one time-phased netting record for a product and date
type MaterialRequirement struct {
	ProductID          ProductID
	Date               time.Time
	GrossRequirement   decimal.Decimal
	ScheduledReceipts  decimal.Decimal
	ProjectedAvailable decimal.Decimal
	NetRequirement     decimal.Decimal
	Source             RequirementSource
}
