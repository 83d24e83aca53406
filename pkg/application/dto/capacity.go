package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// DailyCapacity is the calendar-adjusted capacity of one day
type DailyCapacity struct {
	Date  time.Time
	Hours decimal.Decimal
}

// CapacityProfile lists a work center's available hours across a horizon
type CapacityProfile struct {
	WorkCenterID           string
	Horizon                entities.PlanningHorizon
	Days                   []DailyCapacity
	TotalAvailableCapacity decimal.Decimal
}

// WorkCenterLoad is the required hours at a work center within one time bucket
type WorkCenterLoad struct {
	WorkCenterID  string
	BucketStart   time.Time
	BucketEnd     time.Time // exclusive
	RequiredHours decimal.Decimal
}

// CapacityRequirements aggregates the load of a set of planned orders
type CapacityRequirements struct {
	Loads    []WorkCenterLoad
	Unrouted []string // manufacture order IDs without an effective routing
}

// TotalFor sums the load of one work center over every bucket
func (r *CapacityRequirements) TotalFor(workCenterID string) decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Loads {
		if l.WorkCenterID == workCenterID {
			total = total.Add(l.RequiredHours)
		}
	}
	return total
}

// Bottleneck is a work center bucket loaded at or above the threshold
type Bottleneck struct {
	WorkCenterID   string
	BucketStart    time.Time
	BucketEnd      time.Time
	RequiredHours  decimal.Decimal
	AvailableHours decimal.Decimal
	Utilization    decimal.Decimal
	NoCapacity     bool // load on a bucket with zero availability
}

// ConstrainedWorkCenter explains why a hypothetical order does not fit
type ConstrainedWorkCenter struct {
	WorkCenterID   string
	RequiredHours  decimal.Decimal
	RemainingHours decimal.Decimal
}

// AvailabilityResult answers whether a hypothetical order fits remaining capacity
type AvailabilityResult struct {
	Available              bool
	Date                   time.Time
	ConstrainedWorkCenters []ConstrainedWorkCenter
}
