package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkOrderStatus is the lifecycle state of a work order
type WorkOrderStatus string

const (
	WorkOrderPlanned    WorkOrderStatus = "PLANNED"
	WorkOrderReleased   WorkOrderStatus = "RELEASED"
	WorkOrderInProgress WorkOrderStatus = "IN_PROGRESS"
	WorkOrderCompleted  WorkOrderStatus = "COMPLETED"
	WorkOrderClosed     WorkOrderStatus = "CLOSED"
	WorkOrderCancelled  WorkOrderStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible
func (s WorkOrderStatus) Terminal() bool {
	return s == WorkOrderClosed || s == WorkOrderCancelled
}

// WorkOrderAction is a lifecycle command applied to a work order
type WorkOrderAction string

const (
	ActionRelease  WorkOrderAction = "release"
	ActionStart    WorkOrderAction = "start"
	ActionComplete WorkOrderAction = "complete"
	ActionCancel   WorkOrderAction = "cancel"
	ActionClose    WorkOrderAction = "close"
)

type workOrderTransitionKey struct {
	from   WorkOrderStatus
	action WorkOrderAction
}

// workOrderTransitions is the complete lifecycle: any pair missing here is illegal.
var workOrderTransitions = map[workOrderTransitionKey]WorkOrderStatus{
	{WorkOrderPlanned, ActionRelease}:     WorkOrderReleased,
	{WorkOrderReleased, ActionStart}:      WorkOrderInProgress,
	{WorkOrderInProgress, ActionComplete}: WorkOrderCompleted,
	{WorkOrderCompleted, ActionClose}:     WorkOrderClosed,
	{WorkOrderPlanned, ActionCancel}:      WorkOrderCancelled,
}

// NextWorkOrderStatus looks up the status reached by applying action in status from
func NextWorkOrderStatus(from WorkOrderStatus, action WorkOrderAction) (WorkOrderStatus, bool) {
	next, ok := workOrderTransitions[workOrderTransitionKey{from: from, action: action}]
	return next, ok
}

// RequiredWorkOrderStatus returns the status an action must be applied from
func RequiredWorkOrderStatus(action WorkOrderAction) WorkOrderStatus {
	for key := range workOrderTransitions {
		if key.action == action {
			return key.from
		}
	}
	return ""
}

// WorkOrder is an executable production order
type WorkOrder struct {
	ID              string
	OrderNumber     string
	ProductID       ProductID
	PlannedQuantity decimal.Decimal
	Status          WorkOrderStatus
	PlannedStart    time.Time
	PlannedEnd      time.Time
	ActualStart     *time.Time
	ActualEnd       *time.Time
	SourceOrderID   string // planned order the work order was converted from
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a copy that does not share timestamps with the original
func (w *WorkOrder) Clone() *WorkOrder {
	clone := *w
	if w.ActualStart != nil {
		t := *w.ActualStart
		clone.ActualStart = &t
	}
	if w.ActualEnd != nil {
		t := *w.ActualEnd
		clone.ActualEnd = &t
	}
	return &clone
}
