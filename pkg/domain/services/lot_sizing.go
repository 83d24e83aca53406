package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LotSizingRule names a lot-sizing policy
type LotSizingRule string

const (
	RuleLotForLot            LotSizingRule = "lot_for_lot"
	RuleFixedOrderQuantity   LotSizingRule = "fixed_order_quantity"
	RuleMinimumOrderQuantity LotSizingRule = "minimum_order_quantity"
	RulePeriodOrderQuantity  LotSizingRule = "period_order_quantity"
)

// DatedQuantity is an uncovered requirement on a future date
type DatedQuantity struct {
	Date     time.Time
	Quantity decimal.Decimal
}

// LotSizingRequest describes one shortfall to be covered by a planned order
type LotSizingRequest struct {
	NetRequirement decimal.Decimal
	Date           time.Time

	// FutureRequirements lists the uncovered requirements after Date in date order
	FutureRequirements []DatedQuantity
}

// LotSizingStrategy turns a shortfall into an order quantity.
// Size never returns less than the net requirement.
type LotSizingStrategy interface {
	Name() string
	Size(req LotSizingRequest) decimal.Decimal
}

// LotForLot orders exactly the net requirement
type LotForLot struct{}

func (LotForLot) Name() string { return string(RuleLotForLot) }

func (LotForLot) Size(req LotSizingRequest) decimal.Decimal {
	return req.NetRequirement
}

// FixedOrderQuantity orders in whole multiples of Quantity
type FixedOrderQuantity struct {
	Quantity decimal.Decimal
}

func (f FixedOrderQuantity) Name() string { return string(RuleFixedOrderQuantity) }

func (f FixedOrderQuantity) Size(req LotSizingRequest) decimal.Decimal {
	if !f.Quantity.IsPositive() {
		return req.NetRequirement
	}
	lots := req.NetRequirement.Div(f.Quantity).Ceil()
	return lots.Mul(f.Quantity)
}

// MinimumOrderQuantity orders the net requirement but never less than Minimum
type MinimumOrderQuantity struct {
	Minimum decimal.Decimal
}

func (m MinimumOrderQuantity) Name() string { return string(RuleMinimumOrderQuantity) }

func (m MinimumOrderQuantity) Size(req LotSizingRequest) decimal.Decimal {
	if req.NetRequirement.LessThan(m.Minimum) {
		return m.Minimum
	}
	return req.NetRequirement
}

// PeriodOrderQuantity covers the shortfall plus the requirements of the
// following Periods × PeriodDays days with one order
type PeriodOrderQuantity struct {
	Periods    int
	PeriodDays int
}

func (p PeriodOrderQuantity) Name() string { return string(RulePeriodOrderQuantity) }

func (p PeriodOrderQuantity) Size(req LotSizingRequest) decimal.Decimal {
	periodDays := p.PeriodDays
	if periodDays <= 0 {
		periodDays = 7
	}
	periods := p.Periods
	if periods <= 0 {
		periods = 1
	}
	windowEnd := req.Date.AddDate(0, 0, periods*periodDays)

	total := req.NetRequirement
	for _, future := range req.FutureRequirements {
		if !future.Date.After(req.Date) {
			continue
		}
		if !future.Date.Before(windowEnd) {
			break
		}
		if future.Quantity.IsPositive() {
			total = total.Add(future.Quantity)
		}
	}
	return total
}

// NewLotSizingStrategy builds a strategy from configuration values
func NewLotSizingStrategy(rule string, quantity decimal.Decimal, periods int) (LotSizingStrategy, error) {
	switch LotSizingRule(strings.ToLower(strings.TrimSpace(rule))) {
	case "", RuleLotForLot:
		return LotForLot{}, nil
	case RuleFixedOrderQuantity:
		if !quantity.IsPositive() {
			return nil, fmt.Errorf("fixed order quantity must be positive, got %s", quantity)
		}
		return FixedOrderQuantity{Quantity: quantity}, nil
	case RuleMinimumOrderQuantity:
		if quantity.IsNegative() {
			return nil, fmt.Errorf("minimum order quantity cannot be negative, got %s", quantity)
		}
		return MinimumOrderQuantity{Minimum: quantity}, nil
	case RulePeriodOrderQuantity:
		if periods <= 0 {
			return nil, fmt.Errorf("period order quantity periods must be positive, got %d", periods)
		}
		return PeriodOrderQuantity{Periods: periods, PeriodDays: 7}, nil
	default:
		return nil, fmt.Errorf("unknown lot sizing rule %q", rule)
	}
}
