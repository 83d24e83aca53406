package entities

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OperationType represents the kind of work performed in an operation
type OperationType int

const (
	OperationProduction OperationType = iota
	OperationInspection
	OperationSetup
	OperationPackaging
	OperationOutsourced
)

var sixty = decimal.NewFromInt(60)

// String method for OperationType enum
func (t OperationType) String() string {
	switch t {
	case OperationProduction:
		return "production"
	case OperationInspection:
		return "inspection"
	case OperationSetup:
		return "setup"
	case OperationPackaging:
		return "packaging"
	case OperationOutsourced:
		return "outsourced"
	default:
		return "unknown"
	}
}

// ParseOperationType converts a textual operation type
func ParseOperationType(s string) (OperationType, error) {
	for t := OperationProduction; t <= OperationOutsourced; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown operation type %q", s)
}

// Operation is one step of a routing performed at a work center
type Operation struct {
	OperationNumber  int
	WorkCenterID     string
	Description      string
	Type             OperationType
	SetupTimeMinutes decimal.Decimal
	RunTimeMinutes   decimal.Decimal // per unit
}

// NewOperation creates a validated Operation
func NewOperation(number int, workCenterID, description string, opType OperationType, setupMinutes, runMinutes decimal.Decimal) (*Operation, error) {
	if number <= 0 {
		return nil, fmt.Errorf("operation number must be positive, got %d", number)
	}
	if workCenterID == "" {
		return nil, fmt.Errorf("work center id cannot be empty")
	}
	if setupMinutes.IsNegative() {
		return nil, fmt.Errorf("setup time cannot be negative, got %s", setupMinutes)
	}
	if runMinutes.IsNegative() {
		return nil, fmt.Errorf("run time cannot be negative, got %s", runMinutes)
	}

	return &Operation{
		OperationNumber:  number,
		WorkCenterID:     workCenterID,
		Description:      description,
		Type:             opType,
		SetupTimeMinutes: setupMinutes,
		RunTimeMinutes:   runMinutes,
	}, nil
}

// RequiredHours returns setup/60 + run/60 × quantity
func (o Operation) RequiredHours(quantity decimal.Decimal) decimal.Decimal {
	setup := o.SetupTimeMinutes.Div(sixty)
	run := o.RunTimeMinutes.Div(sixty).Mul(quantity)
	return setup.Add(run)
}

// Routing is one version of the operation sequence for a product
type Routing struct {
	ID          string
	ProductID   ProductID
	Version     int
	Status      VersionStatus
	Operations  []Operation
	Effectivity Effectivity
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SortOperations keeps operations ordered by operation number
func (r *Routing) SortOperations() {
	sort.SliceStable(r.Operations, func(i, j int) bool {
		return r.Operations[i].OperationNumber < r.Operations[j].OperationNumber
	})
}

// FindOperation returns the index of the operation with the given number
func (r *Routing) FindOperation(number int) (int, bool) {
	for i, op := range r.Operations {
		if op.OperationNumber == number {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a deep copy
func (r *Routing) Clone() *Routing {
	clone := *r
	clone.Operations = make([]Operation, len(r.Operations))
	copy(clone.Operations, r.Operations)
	return &clone
}

// VersionNumber implements the versioned interface used for effectivity checks
func (r *Routing) VersionNumber() int { return r.Version }

// Window returns the effectivity window
func (r *Routing) Window() Effectivity { return r.Effectivity }

// IsObsolete reports whether the version is retired
func (r *Routing) IsObsolete() bool { return r.Status == StatusObsolete }

// CapAt ends the effectivity window at date
func (r *Routing) CapAt(date time.Time) { r.Effectivity.To = DateOf(date) }

// HoursByWorkCenter sums the required hours of every operation per work center
func (r *Routing) HoursByWorkCenter(quantity decimal.Decimal) map[string]decimal.Decimal {
	hours := make(map[string]decimal.Decimal)
	for _, op := range r.Operations {
		hours[op.WorkCenterID] = hours[op.WorkCenterID].Add(op.RequiredHours(quantity))
	}
	return hours
}
