package mrp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

// CalculateMultiple plans each product independently on a bounded pool of
// workers. A failing product is reported in Failures and never stops the others.
func (e *Engine) CalculateMultiple(ctx context.Context, productIDs []entities.ProductID, horizon entities.PlanningHorizon) *dto.BatchResult {
	batch := &dto.BatchResult{
		Results:  make(map[entities.ProductID]*dto.MRPResult, len(productIDs)),
		Failures: make(map[entities.ProductID]error),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.cfg.Workers)
	for _, productID := range productIDs {
		productID := productID
		g.Go(func() error {
			result, err := e.Calculate(ctx, productID, horizon, e.cfg.LotSizing)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batch.Failures[productID] = err
				return nil
			}
			batch.Results[productID] = result
			return nil
		})
	}
	_ = g.Wait()

	if len(batch.Failures) > 0 {
		e.opts.Logger.Warn("MRP batch completed with failures",
			zap.Int("succeeded", len(batch.Results)),
			zap.Int("failed", len(batch.Failures)))
	}
	return batch
}

// Regenerate replans every master-scheduled product. Each product is computed
// before its stored orders are touched, so a failed calculation leaves the
// previous plan in place.
func (e *Engine) Regenerate(ctx context.Context, horizon entities.PlanningHorizon) (*dto.RegenerationSummary, error) {
	products, err := e.demand.GetMasterScheduledProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list master scheduled products: %w", err)
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })

	summary := &dto.RegenerationSummary{Failures: make(map[entities.ProductID]error)}
	for _, productID := range products {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := e.Calculate(ctx, productID, horizon, e.cfg.LotSizing)
		if err != nil {
			summary.Failures[productID] = err
			continue
		}
		if err := e.replace(ctx, productID, horizon, result.PlannedOrders); err != nil {
			e.opts.Logger.Error("failed to store regenerated plan",
				zap.String("product_id", string(productID)),
				zap.Error(err))
			summary.Failures[productID] = err
			continue
		}

		summary.Regenerated = append(summary.Regenerated, productID)
		summary.OrdersWritten += len(result.PlannedOrders)
		events.PublishQuietly(ctx, e.opts.Publisher, e.opts.Logger,
			events.NewEvent(events.MRPRegeneratedEvent, string(productID), events.MRPRegenerated{
				ProductID:     productID,
				OrdersWritten: len(result.PlannedOrders),
			}))
	}

	e.opts.Logger.Info("MRP regeneration completed",
		zap.Stringer("horizon", horizon),
		zap.Int("regenerated", len(summary.Regenerated)),
		zap.Int("failed", len(summary.Failures)),
		zap.Int("orders_written", summary.OrdersWritten))
	return summary, nil
}

func (e *Engine) replace(ctx context.Context, productID entities.ProductID, horizon entities.PlanningHorizon, orders []*entities.PlannedOrder) error {
	if replacer, ok := e.demand.(repositories.PlannedOrderReplacer); ok {
		if err := replacer.ReplacePlannedOrders(ctx, productID, horizon, orders); err != nil {
			return fmt.Errorf("failed to replace planned orders of %s: %w", productID, err)
		}
		return nil
	}

	if err := e.demand.DeletePlannedOrders(ctx, productID, horizon); err != nil {
		return fmt.Errorf("failed to delete planned orders of %s: %w", productID, err)
	}
	for _, order := range orders {
		if err := e.demand.SavePlannedOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to save planned order %s: %w", order.ID, err)
		}
	}
	return nil
}
