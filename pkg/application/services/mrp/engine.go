package mrp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/domain/services"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

const (
	DefaultMaxDepth = 32
	DefaultWorkers  = 4
)

// BOMSource resolves bills of materials for netting and structure discovery
type BOMSource interface {
	FindByProductID(ctx context.Context, productID entities.ProductID, date time.Time) (*entities.BillOfMaterials, error)
	FindAllVersions(ctx context.Context, productID entities.ProductID) ([]*entities.BillOfMaterials, error)
}

// CapacityChecker validates planned orders against work center capacity
type CapacityChecker interface {
	CheckOrders(ctx context.Context, orders []*entities.PlannedOrder) ([]dto.CapacityIssue, error)
}

// Config holds MRP engine settings
type Config struct {
	MaxDepth      int
	Workers       int
	CheckCapacity bool

	// LotSizing is used by Regenerate. Defaults to lot-for-lot.
	LotSizing services.LotSizingStrategy
}

// Engine computes time-phased material requirements and planned orders.
// It only reads from its providers; Regenerate is the single write path.
type Engine struct {
	inventory repositories.InventoryDataProvider
	demand    repositories.DemandDataProvider
	boms      BOMSource
	capacity  CapacityChecker
	cfg       Config
	opts      shared.Options
}

// NewEngine creates an MRP engine. capacity may be nil.
func NewEngine(
	inventory repositories.InventoryDataProvider,
	demand repositories.DemandDataProvider,
	boms BOMSource,
	capacity CapacityChecker,
	cfg Config,
	opts ...shared.Option,
) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.LotSizing == nil {
		cfg.LotSizing = services.LotForLot{}
	}
	return &Engine{
		inventory: inventory,
		demand:    demand,
		boms:      boms,
		capacity:  capacity,
		cfg:       cfg,
		opts:      shared.Apply(opts...),
	}
}

// Calculate plans productID and every component below it within horizon.
// A nil strategy means lot-for-lot.
func (e *Engine) Calculate(
	ctx context.Context,
	productID entities.ProductID,
	horizon entities.PlanningHorizon,
	strategy services.LotSizingStrategy,
) (*dto.MRPResult, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty: %w", entities.ErrInvalidArgument)
	}
	if horizon.Start.IsZero() || horizon.End.IsZero() || horizon.End.Before(horizon.Start) {
		return nil, fmt.Errorf("invalid planning horizon %s: %w", horizon, entities.ErrInvalidArgument)
	}
	if strategy == nil {
		strategy = services.LotForLot{}
	}

	started := time.Now()
	result, err := e.calculate(ctx, productID, horizon, strategy)
	if err != nil {
		e.opts.Logger.Error("MRP calculation failed",
			zap.String("product_id", string(productID)),
			zap.Stringer("horizon", horizon),
			zap.Error(err))
		events.PublishQuietly(ctx, e.opts.Publisher, e.opts.Logger,
			events.NewEvent(events.MRPCalculationFailedEvent, string(productID), events.MRPCalculationFailed{
				ProductID: productID,
				Error:     err.Error(),
			}))
		return nil, err
	}

	pastDue := 0
	for _, order := range result.PlannedOrders {
		if order.PastDue {
			pastDue++
		}
	}
	duration := time.Since(started)
	e.opts.Logger.Info("MRP calculation completed",
		zap.String("product_id", string(productID)),
		zap.Stringer("horizon", horizon),
		zap.String("lot_sizing", result.LotSizing),
		zap.Int("planned_orders", len(result.PlannedOrders)),
		zap.Int("past_due_orders", pastDue),
		zap.Int("capacity_issues", len(result.CapacityIssues)),
		zap.Duration("duration", duration))
	events.PublishQuietly(ctx, e.opts.Publisher, e.opts.Logger,
		events.NewEvent(events.MRPCalculatedEvent, string(productID), events.MRPCalculated{
			ProductID:      productID,
			PlannedOrders:  len(result.PlannedOrders),
			PastDueOrders:  pastDue,
			CapacityIssues: len(result.CapacityIssues),
			Duration:       duration,
		}))
	return result, nil
}

func (e *Engine) calculate(
	ctx context.Context,
	root entities.ProductID,
	horizon entities.PlanningHorizon,
	strategy services.LotSizingStrategy,
) (*dto.MRPResult, error) {
	order, err := e.lowLevelOrder(ctx, root)
	if err != nil {
		return nil, err
	}

	independent, err := e.demand.GetGrossRequirements(ctx, root, horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to get gross requirements of %s: %w", root, err)
	}

	result := &dto.MRPResult{
		ProductID:    root,
		Horizon:      horizon,
		LotSizing:    strategy.Name(),
		CalculatedAt: e.opts.Now(),
	}

	buckets := make(map[entities.ProductID]*demandBuckets, len(order))
	buckets[root] = newDemandBuckets()
	for _, req := range independent {
		if !horizon.Contains(req.Date) {
			continue
		}
		buckets[root].add(entities.DateOf(req.Date), req.Quantity, entities.IndependentDemand, "")
	}

	for _, productID := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		demand := buckets[productID]
		if demand == nil || demand.empty() {
			continue
		}

		planned, err := e.netProduct(ctx, productID, root, horizon, strategy, demand)
		if err != nil {
			return nil, err
		}
		result.MaterialRequirements = append(result.MaterialRequirements, planned.requirements...)
		result.PlannedOrders = append(result.PlannedOrders, planned.orders...)
		result.Warnings = append(result.Warnings, planned.warnings...)

		for _, dep := range planned.dependent {
			if buckets[dep.componentID] == nil {
				buckets[dep.componentID] = newDemandBuckets()
			}
			buckets[dep.componentID].add(dep.date, dep.quantity, entities.DependentDemand, productID)
		}
	}

	if e.cfg.CheckCapacity && e.capacity != nil && len(result.PlannedOrders) > 0 {
		issues, err := e.capacity.CheckOrders(ctx, result.PlannedOrders)
		if err != nil {
			return nil, fmt.Errorf("failed to check capacity for %s: %w", root, err)
		}
		result.CapacityIssues = issues
	}
	return result, nil
}

// plannedProduct is the netting outcome of a single product
type plannedProduct struct {
	requirements []entities.MaterialRequirement
	orders       []*entities.PlannedOrder
	dependent    []dependentDemand
	warnings     []string
}

type dependentDemand struct {
	componentID entities.ProductID
	date        time.Time
	quantity    decimal.Decimal
}

// netProduct walks the product's buckets chronologically and plans an order
// for every date the projected balance would drop below safety stock
func (e *Engine) netProduct(
	ctx context.Context,
	productID, root entities.ProductID,
	horizon entities.PlanningHorizon,
	strategy services.LotSizingStrategy,
	demand *demandBuckets,
) (*plannedProduct, error) {
	state, err := e.inventoryState(ctx, productID, horizon)
	if err != nil {
		return nil, err
	}
	for _, receipt := range state.receipts {
		demand.addReceipt(receipt.Date, receipt.Quantity)
	}

	dates := demand.dates()
	out := &plannedProduct{}
	projected := state.onHand
	for i, date := range dates {
		b := demand.at(date)
		projected = projected.Add(b.receipts).Sub(b.gross)
		net := decimal.Zero
		if projected.LessThan(state.safetyStock) {
			net = state.safetyStock.Sub(projected)
			quantity := strategy.Size(services.LotSizingRequest{
				NetRequirement:     net,
				Date:               date,
				FutureRequirements: demand.uncoveredAfter(dates[i+1:]),
			})
			if quantity.LessThan(net) {
				quantity = net
			}
			projected = projected.Add(quantity)

			order, deps, warnings, err := e.planOrder(ctx, productID, root, b.singleParent(), quantity, date, state, horizon)
			if err != nil {
				return nil, err
			}
			out.orders = append(out.orders, order)
			out.dependent = append(out.dependent, deps...)
			out.warnings = append(out.warnings, warnings...)
		}
		out.requirements = append(out.requirements, entities.MaterialRequirement{
			ProductID:          productID,
			Date:               date,
			GrossRequirement:   b.gross,
			ScheduledReceipts:  b.receipts,
			ProjectedAvailable: projected,
			NetRequirement:     net,
			Source:             b.source,
		})
	}
	return out, nil
}

// planOrder creates the planned order for a shortfall and, for manufactured
// products, the one-level dependent demand of its effective BOM
func (e *Engine) planOrder(
	ctx context.Context,
	productID, root, parent entities.ProductID,
	quantity decimal.Decimal,
	due time.Time,
	state *inventoryState,
	horizon entities.PlanningHorizon,
) (*entities.PlannedOrder, []dependentDemand, []string, error) {
	start := due.AddDate(0, 0, -state.leadTimeDays)
	order, err := entities.NewPlannedOrder(uuid.NewString(), productID, quantity, start, due, state.replenishment)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to plan order for %s: %w", productID, err)
	}
	order.RootProductID = root
	order.ParentProductID = parent
	order.PastDue = order.StartDate.Before(horizon.Start)

	var warnings []string
	if order.PastDue {
		warnings = append(warnings, fmt.Sprintf("planned order for %s due %s starts %s, before the horizon",
			productID, due.Format("2006-01-02"), order.StartDate.Format("2006-01-02")))
		e.opts.Logger.Warn("past due planned order",
			zap.String("product_id", string(productID)),
			zap.Time("start_date", order.StartDate),
			zap.Time("due_date", order.DueDate))
	}

	if state.replenishment != entities.Manufacture {
		return order, nil, warnings, nil
	}

	bom, err := e.boms.FindByProductID(ctx, productID, order.StartDate)
	if isNotFound(err) {
		warnings = append(warnings, fmt.Sprintf("no effective BOM for manufactured product %s on %s",
			productID, order.StartDate.Format("2006-01-02")))
		e.opts.Logger.Warn("manufactured product has no effective BOM",
			zap.String("product_id", string(productID)),
			zap.Time("date", order.StartDate))
		return order, nil, warnings, nil
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to resolve BOM of %s: %w", productID, err)
	}

	needDate := horizon.Clamp(order.StartDate)
	deps := make([]dependentDemand, 0, len(bom.Lines))
	for _, line := range bom.SortedLines() {
		deps = append(deps, dependentDemand{
			componentID: line.ComponentID,
			date:        needDate,
			quantity:    line.QtyPer.Mul(quantity),
		})
	}
	return order, deps, warnings, nil
}

// lowLevelOrder returns root and every product below it, sorted by the
// deepest level each product appears at. A component is therefore netted
// only after all of its parents have contributed dependent demand.
func (e *Engine) lowLevelOrder(ctx context.Context, root entities.ProductID) ([]entities.ProductID, error) {
	levels := map[entities.ProductID]int{root: 0}
	children := make(map[entities.ProductID][]entities.ProductID)
	queue := []entities.ProductID{root}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		components, ok := children[current]
		if !ok {
			var err error
			components, err = e.componentsOf(ctx, current)
			if err != nil {
				return nil, err
			}
			children[current] = components
		}

		for _, component := range components {
			next := levels[current] + 1
			if next > e.cfg.MaxDepth {
				return nil, fmt.Errorf("%s is deeper than %d levels below %s: %w",
					component, e.cfg.MaxDepth, root, entities.ErrMaxDepthExceeded)
			}
			if level, seen := levels[component]; !seen || next > level {
				levels[component] = next
				queue = append(queue, component)
			}
		}
	}

	order := make([]entities.ProductID, 0, len(levels))
	for productID := range levels {
		order = append(order, productID)
	}
	sort.Slice(order, func(i, j int) bool {
		if levels[order[i]] != levels[order[j]] {
			return levels[order[i]] < levels[order[j]]
		}
		return order[i] < order[j]
	})
	return order, nil
}

// componentsOf lists the components of every non-obsolete BOM version
func (e *Engine) componentsOf(ctx context.Context, productID entities.ProductID) ([]entities.ProductID, error) {
	versions, err := e.boms.FindAllVersions(ctx, productID)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to load BOM versions of %s: %w", productID, err)
	}
	seen := make(map[entities.ProductID]bool)
	var components []entities.ProductID
	for _, bom := range versions {
		if bom.IsObsolete() {
			continue
		}
		for _, line := range bom.SortedLines() {
			if !seen[line.ComponentID] {
				seen[line.ComponentID] = true
				components = append(components, line.ComponentID)
			}
		}
	}
	return components, nil
}
