package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ScheduledReceipt represents open supply (released orders) arriving on a date
type ScheduledReceipt struct {
	ProductID ProductID
	Date      time.Time
	Quantity  decimal.Decimal
	Reference string
}

// NewScheduledReceipt creates a validated ScheduledReceipt
func NewScheduledReceipt(productID ProductID, date time.Time, quantity decimal.Decimal, reference string) (*ScheduledReceipt, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("receipt date cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("receipt quantity must be positive, got %s", quantity)
	}

	return &ScheduledReceipt{
		ProductID: productID,
		Date:      DateOf(date),
		Quantity:  quantity,
		Reference: reference,
	}, nil
}
