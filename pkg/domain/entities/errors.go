package entities

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrCircularBOM is returned when a BOM line would make a product a component of itself.
	ErrCircularBOM = errors.New("circular bill of materials reference")

	// ErrInvalidWorkOrderStatus is returned for an illegal work order transition.
	ErrInvalidWorkOrderStatus = errors.New("invalid work order status")

	// ErrForecastUnavailable is returned when no forecast source could produce a forecast.
	ErrForecastUnavailable = errors.New("forecast unavailable")

	// ErrInvalidState is returned when a BOM or routing is not in the status an operation needs.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidArgument is returned when an argument is invalid.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEffectivityOverlap is returned when two versions would be effective on the same date.
	ErrEffectivityOverlap = errors.New("effectivity overlaps existing version")

	// ErrVersionExists is returned when a version number is already used for the product.
	ErrVersionExists = errors.New("version already exists")

	// ErrMaxDepthExceeded is returned when a BOM structure is deeper than the configured limit.
	ErrMaxDepthExceeded = errors.New("maximum BOM depth exceeded")

	// ErrNoCapacity is returned when no feasible date exists within the scan window.
	ErrNoCapacity = errors.New("no capacity available")

	// ErrProviderAbsent is returned when an optional provider is not configured.
	ErrProviderAbsent = errors.New("provider not configured")
)

// NotFoundError identifies the missing entity
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a NotFoundError
func NewNotFoundError(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// CircularBOMError describes a rejected component line
type CircularBOMError struct {
	ProductID   ProductID
	ComponentID ProductID
	Path        []ProductID
}

func (e *CircularBOMError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("circular BOM reference: %s cannot be a component of %s", e.ComponentID, e.ProductID)
	}
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = string(p)
	}
	return fmt.Sprintf("circular BOM reference: %s cannot be a component of %s (path %s)",
		e.ComponentID, e.ProductID, strings.Join(parts, " -> "))
}

func (e *CircularBOMError) Is(target error) bool { return target == ErrCircularBOM }

// InvalidWorkOrderStatusError reports the current and the required status of a rejected transition
type InvalidWorkOrderStatusError struct {
	OrderNumber string
	Action      WorkOrderAction
	Current     WorkOrderStatus
	Required    WorkOrderStatus
}

func (e *InvalidWorkOrderStatusError) Error() string {
	return fmt.Sprintf("cannot %s work order %s: status is %s, requires %s",
		e.Action, e.OrderNumber, e.Current, e.Required)
}

func (e *InvalidWorkOrderStatusError) Is(target error) bool {
	return target == ErrInvalidWorkOrderStatus
}

// ForecastUnavailableError carries every failed attempt of the fallback chain
type ForecastUnavailableError struct {
	ProductID ProductID
	Attempts  []error
}

func (e *ForecastUnavailableError) Error() string {
	return fmt.Sprintf("no forecast available for %s: %v", e.ProductID, errors.Join(e.Attempts...))
}

func (e *ForecastUnavailableError) Is(target error) bool { return target == ErrForecastUnavailable }

func (e *ForecastUnavailableError) Unwrap() []error { return e.Attempts }

// ValidationError collects structural validation messages that block an operation
type ValidationError struct {
	Subject  string
	Messages []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s failed validation: %s", e.Subject, strings.Join(e.Messages, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidState }
