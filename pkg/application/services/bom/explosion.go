package bom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// explosionFrame is one BOM being walked on the explicit traversal stack
type explosionFrame struct {
	productID  entities.ProductID
	lines      []entities.BOMLine
	next       int
	multiplier decimal.Decimal
	level      int
}

// Explode flattens bomID for quantity units using the component structures
// effective on the BOM's own effective-from date
func (m *Manager) Explode(ctx context.Context, bomID string, quantity decimal.Decimal) ([]dto.ExplodedLine, error) {
	bom, err := m.repo.FindByID(ctx, bomID)
	if err != nil {
		return nil, err
	}
	return m.explode(ctx, bom, quantity, bom.Effectivity.From)
}

// ExplodeAt flattens bomID using the component structures effective on date
func (m *Manager) ExplodeAt(ctx context.Context, bomID string, quantity decimal.Decimal, date time.Time) ([]dto.ExplodedLine, error) {
	bom, err := m.repo.FindByID(ctx, bomID)
	if err != nil {
		return nil, err
	}
	return m.explode(ctx, bom, quantity, entities.DateOf(date))
}

// explode walks the structure depth first in line-number order. Each
// component is emitted before its own components. The on-path set only holds
// the current chain so shared subassemblies are exploded wherever they appear.
func (m *Manager) explode(ctx context.Context, root *entities.BillOfMaterials, quantity decimal.Decimal, date time.Time) ([]dto.ExplodedLine, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("explosion quantity must be positive, got %s: %w", quantity, entities.ErrInvalidArgument)
	}

	var exploded []dto.ExplodedLine
	stack := []explosionFrame{{
		productID:  root.ProductID,
		lines:      root.SortedLines(),
		multiplier: quantity,
		level:      1,
	}}
	onPath := map[entities.ProductID]bool{root.ProductID: true}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top := len(stack) - 1
		frame := &stack[top]
		if frame.next >= len(frame.lines) {
			delete(onPath, frame.productID)
			stack = stack[:top]
			continue
		}

		line := frame.lines[frame.next]
		frame.next++
		required := line.QtyPer.Mul(frame.multiplier)
		level := frame.level
		parentID := frame.productID

		exploded = append(exploded, dto.ExplodedLine{
			ProductID:     line.ComponentID,
			ParentID:      parentID,
			LineNumber:    line.LineNumber,
			Level:         level,
			Quantity:      required,
			UnitOfMeasure: line.UnitOfMeasure,
		})

		child, err := m.repo.FindByProductID(ctx, line.ComponentID, date)
		if errors.Is(err, entities.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load BOM of %s: %w", line.ComponentID, err)
		}
		if len(child.Lines) == 0 {
			continue
		}
		if onPath[line.ComponentID] {
			path := make([]entities.ProductID, 0, len(stack)+1)
			for _, f := range stack {
				path = append(path, f.productID)
			}
			return nil, &entities.CircularBOMError{
				ProductID:   parentID,
				ComponentID: line.ComponentID,
				Path:        append(path, line.ComponentID),
			}
		}
		if level+1 > m.maxDepth {
			return nil, fmt.Errorf("exploding %s below level %d: %w", line.ComponentID, m.maxDepth, entities.ErrMaxDepthExceeded)
		}

		onPath[line.ComponentID] = true
		stack = append(stack, explosionFrame{
			productID:  line.ComponentID,
			lines:      child.SortedLines(),
			multiplier: required,
			level:      level + 1,
		})
	}

	return exploded, nil
}
