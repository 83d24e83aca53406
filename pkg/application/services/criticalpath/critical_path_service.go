package criticalpath

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// DefaultMaxDepth bounds the BOM walk when no depth is configured
const DefaultMaxDepth = 32

// EffectiveBOMs resolves the BOM version in force on a date. *bom.Manager satisfies it.
type EffectiveBOMs interface {
	GetEffective(ctx context.Context, productID entities.ProductID, date time.Time) (*entities.BillOfMaterials, error)
}

// Node is one product on a lead-time path
type Node struct {
	ProductID         entities.ProductID
	Level             int
	LeadTimeDays      int
	RequiredQty       decimal.Decimal
	OnHand            decimal.Decimal
	EffectiveLeadTime int
	CumulativeTime    int
}

// Path is a chain from the analysed product down to a purchased or leaf component
type Path struct {
	TotalLeadTime     int
	EffectiveLeadTime int
	Nodes             []Node
	BottleneckProduct entities.ProductID
}

// Products lists the product IDs of the path top-down
func (p Path) Products() []entities.ProductID {
	ids := make([]entities.ProductID, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ProductID
	}
	return ids
}

// Analysis ranks every BOM path of a product by lead time
type Analysis struct {
	ProductID    entities.ProductID
	Quantity     decimal.Decimal
	Date         time.Time
	AnalyzedAt   time.Time
	CriticalPath Path
	TopPaths     []Path
	TotalPaths   int
}

// Service computes the cumulative lead time paths through effective BOMs.
// On-hand stock that covers a node's requirement shortens its lead time
// proportionally; full coverage makes it zero.
type Service struct {
	boms      EffectiveBOMs
	inventory repositories.InventoryDataProvider
	maxDepth  int
	opts      shared.Options
}

// NewService creates a critical path service
func NewService(boms EffectiveBOMs, inventory repositories.InventoryDataProvider, maxDepth int, opts ...shared.Option) *Service {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Service{
		boms:      boms,
		inventory: inventory,
		maxDepth:  maxDepth,
		opts:      shared.Apply(opts...),
	}
}

// Analyze finds every path below productID for quantity units using the BOMs
// effective on date and returns the topN longest by effective lead time.
func (s *Service) Analyze(
	ctx context.Context,
	productID entities.ProductID,
	quantity decimal.Decimal,
	date time.Time,
	topN int,
) (*Analysis, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s: %w", quantity, entities.ErrInvalidArgument)
	}
	if topN <= 0 {
		return nil, fmt.Errorf("topN must be positive, got %d: %w", topN, entities.ErrInvalidArgument)
	}
	date = entities.DateOf(date)

	paths, err := s.findPaths(ctx, productID, quantity, date, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to find paths for %s: %w", productID, err)
	}

	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].EffectiveLeadTime != paths[j].EffectiveLeadTime {
			return paths[i].EffectiveLeadTime > paths[j].EffectiveLeadTime
		}
		if paths[i].TotalLeadTime != paths[j].TotalLeadTime {
			return paths[i].TotalLeadTime > paths[j].TotalLeadTime
		}
		return len(paths[i].Nodes) > len(paths[j].Nodes)
	})

	analysis := &Analysis{
		ProductID:  productID,
		Quantity:   quantity,
		Date:       date,
		AnalyzedAt: s.opts.Now(),
		TotalPaths: len(paths),
	}
	if len(paths) > 0 {
		analysis.CriticalPath = paths[0]
		analysis.TopPaths = paths[:min(topN, len(paths))]
	}

	s.opts.Logger.Debug("critical path analysed",
		zap.String("product_id", string(productID)),
		zap.Int("paths", len(paths)),
		zap.Int("effective_lead_time", analysis.CriticalPath.EffectiveLeadTime))
	return analysis, nil
}

// findPaths returns the paths rooted at productID. onPath holds the ancestors.
func (s *Service) findPaths(
	ctx context.Context,
	productID entities.ProductID,
	required decimal.Decimal,
	date time.Time,
	level int,
	onPath []entities.ProductID,
) ([]Path, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if level > s.maxDepth {
		return nil, fmt.Errorf("%s is deeper than %d levels: %w", productID, s.maxDepth, entities.ErrMaxDepthExceeded)
	}
	for _, ancestor := range onPath {
		if ancestor == productID {
			return nil, &entities.CircularBOMError{
				ProductID:   onPath[len(onPath)-1],
				ComponentID: productID,
				Path:        append(append([]entities.ProductID{}, onPath...), productID),
			}
		}
	}

	node, err := s.node(ctx, productID, required, level)
	if err != nil {
		return nil, err
	}

	bom, err := s.boms.GetEffective(ctx, productID, date)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, fmt.Errorf("failed to get effective BOM of %s: %w", productID, err)
	}
	if bom == nil || len(bom.Lines) == 0 {
		node.CumulativeTime = node.EffectiveLeadTime
		return []Path{{
			TotalLeadTime:     node.LeadTimeDays,
			EffectiveLeadTime: node.EffectiveLeadTime,
			Nodes:             []Node{node},
			BottleneckProduct: productID,
		}}, nil
	}

	onPath = append(onPath, productID)
	var paths []Path
	for _, line := range bom.SortedLines() {
		childPaths, err := s.findPaths(ctx, line.ComponentID, required.Mul(line.QtyPer), date, level+1, onPath)
		if err != nil {
			return nil, err
		}
		for _, child := range childPaths {
			paths = append(paths, prepend(node, child))
		}
	}
	return paths, nil
}

func (s *Service) node(ctx context.Context, productID entities.ProductID, required decimal.Decimal, level int) (Node, error) {
	leadTime, err := s.inventory.GetLeadTimeDays(ctx, productID)
	if err != nil {
		return Node{}, fmt.Errorf("failed to get lead time of %s: %w", productID, err)
	}
	onHand, err := s.inventory.GetOnHandQuantity(ctx, productID)
	if err != nil {
		return Node{}, fmt.Errorf("failed to get on-hand quantity of %s: %w", productID, err)
	}
	return Node{
		ProductID:         productID,
		Level:             level,
		LeadTimeDays:      leadTime,
		RequiredQty:       required,
		OnHand:            onHand,
		EffectiveLeadTime: effectiveLeadTime(leadTime, onHand, required),
	}, nil
}

func prepend(node Node, child Path) Path {
	node.CumulativeTime = node.EffectiveLeadTime + child.EffectiveLeadTime

	bottleneck := node.ProductID
	if node.LeadTimeDays < child.Nodes[child.indexOf(child.BottleneckProduct)].LeadTimeDays {
		bottleneck = child.BottleneckProduct
	}
	return Path{
		TotalLeadTime:     node.LeadTimeDays + child.TotalLeadTime,
		EffectiveLeadTime: node.EffectiveLeadTime + child.EffectiveLeadTime,
		Nodes:             append([]Node{node}, child.Nodes...),
		BottleneckProduct: bottleneck,
	}
}

func (p Path) indexOf(productID entities.ProductID) int {
	for i, n := range p.Nodes {
		if n.ProductID == productID {
			return i
		}
	}
	return 0
}

// effectiveLeadTime scales leadTime by the share of required not covered by onHand, truncated to whole days
func effectiveLeadTime(leadTime int, onHand, required decimal.Decimal) int {
	if !onHand.IsPositive() {
		return leadTime
	}
	if onHand.GreaterThanOrEqual(required) {
		return 0
	}
	uncovered := decimal.NewFromInt(1).Sub(onHand.Div(required))
	return int(decimal.NewFromInt(int64(leadTime)).Mul(uncovered).IntPart())
}
