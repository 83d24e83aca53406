package entities

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// VersionStatus represents the lifecycle status of a BOM or routing version
type VersionStatus int

const (
	StatusDraft VersionStatus = iota
	StatusReleased
	StatusObsolete
)

// String method for VersionStatus enum
func (s VersionStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusReleased:
		return "released"
	case StatusObsolete:
		return "obsolete"
	default:
		return "unknown"
	}
}

// BOMType represents the purpose of a bill of materials
type BOMType int

const (
	BOMTypeManufacturing BOMType = iota
	BOMTypeEngineering
	BOMTypePlanning
)

// String method for BOMType enum
func (t BOMType) String() string {
	switch t {
	case BOMTypeManufacturing:
		return "manufacturing"
	case BOMTypeEngineering:
		return "engineering"
	case BOMTypePlanning:
		return "planning"
	default:
		return "unknown"
	}
}

// BOMLine represents a single component line in a Bill of Materials
type BOMLine struct {
	LineNumber    int
	ComponentID   ProductID
	QtyPer        decimal.Decimal
	UnitOfMeasure string
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(lineNumber int, componentID ProductID, qtyPer decimal.Decimal, unitOfMeasure string) (*BOMLine, error) {
	if lineNumber <= 0 {
		return nil, fmt.Errorf("line number must be positive, got %d", lineNumber)
	}
	if componentID == "" {
		return nil, fmt.Errorf("component product id cannot be empty")
	}
	if !qtyPer.IsPositive() {
		return nil, fmt.Errorf("quantity per must be positive, got %s", qtyPer)
	}
	if unitOfMeasure == "" {
		unitOfMeasure = "EA"
	}

	return &BOMLine{
		LineNumber:    lineNumber,
		ComponentID:   componentID,
		QtyPer:        qtyPer,
		UnitOfMeasure: unitOfMeasure,
	}, nil
}

// BillOfMaterials is one version of a product's component structure
type BillOfMaterials struct {
	ID          string
	ProductID   ProductID
	Version     int
	Type        BOMType
	Status      VersionStatus
	Lines       []BOMLine
	Effectivity Effectivity
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SortedLines returns the lines in explosion (line number) order
func (b *BillOfMaterials) SortedLines() []BOMLine {
	lines := make([]BOMLine, len(b.Lines))
	copy(lines, b.Lines)
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].LineNumber < lines[j].LineNumber
	})
	return lines
}

// FindLine returns the line with the given number
func (b *BillOfMaterials) FindLine(lineNumber int) (int, bool) {
	for i, line := range b.Lines {
		if line.LineNumber == lineNumber {
			return i, true
		}
	}
	return -1, false
}

// Clone returns a deep copy so repositories never share line slices with callers
func (b *BillOfMaterials) Clone() *BillOfMaterials {
	clone := *b
	clone.Lines = make([]BOMLine, len(b.Lines))
	copy(clone.Lines, b.Lines)
	return &clone
}

// VersionNumber implements the versioned interface used for effectivity checks
func (b *BillOfMaterials) VersionNumber() int { return b.Version }

// Window returns the effectivity window
func (b *BillOfMaterials) Window() Effectivity { return b.Effectivity }

// IsObsolete reports whether the version is retired
func (b *BillOfMaterials) IsObsolete() bool { return b.Status == StatusObsolete }

// CapAt ends the effectivity window at date
func (b *BillOfMaterials) CapAt(date time.Time) { b.Effectivity.To = DateOf(date) }
