package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// DemandRepository holds independent demand and the planned orders written by MRP runs
type DemandRepository struct {
	mu              sync.RWMutex
	demands         map[entities.ProductID][]entities.GrossRequirement
	masterScheduled map[entities.ProductID]bool
	plannedOrders   []*entities.PlannedOrder
}

// NewDemandRepository creates a new in-memory demand repository
func NewDemandRepository() *DemandRepository {
	return &DemandRepository{
		demands:         make(map[entities.ProductID][]entities.GrossRequirement),
		masterScheduled: make(map[entities.ProductID]bool),
	}
}

// Verify interface compliance
var _ repositories.DemandDataProvider = (*DemandRepository)(nil)
var _ repositories.PlannedOrderReplacer = (*DemandRepository)(nil)
var _ repositories.PlannedOrderReader = (*DemandRepository)(nil)

// AddDemand records independent demand. The product becomes master scheduled.
func (r *DemandRepository) AddDemand(req entities.GrossRequirement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.Date = entities.DateOf(req.Date)
	r.demands[req.ProductID] = append(r.demands[req.ProductID], req)
	r.masterScheduled[req.ProductID] = true
}

// SetMasterScheduled marks a product for regeneration even without demand
func (r *DemandRepository) SetMasterScheduled(productID entities.ProductID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.masterScheduled[productID] = true
}

func (r *DemandRepository) GetGrossRequirements(_ context.Context, productID entities.ProductID, horizon entities.PlanningHorizon) ([]entities.GrossRequirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var reqs []entities.GrossRequirement
	for _, req := range r.demands[productID] {
		if horizon.Contains(req.Date) {
			reqs = append(reqs, req)
		}
	}
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].Date.Before(reqs[j].Date) })
	return reqs, nil
}

func (r *DemandRepository) GetMasterScheduledProducts(_ context.Context) ([]entities.ProductID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]entities.ProductID, 0, len(r.masterScheduled))
	for p := range r.masterScheduled {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })
	return products, nil
}

func (r *DemandRepository) DeletePlannedOrders(_ context.Context, rootProductID entities.ProductID, horizon entities.PlanningHorizon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteLocked(rootProductID, horizon)
	return nil
}

func (r *DemandRepository) SavePlannedOrder(_ context.Context, order *entities.PlannedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := *order
	r.plannedOrders = append(r.plannedOrders, &o)
	return nil
}

// ReplacePlannedOrders swaps the orders under a single lock
func (r *DemandRepository) ReplacePlannedOrders(ctx context.Context, rootProductID entities.ProductID, horizon entities.PlanningHorizon, orders []*entities.PlannedOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteLocked(rootProductID, horizon)
	for _, order := range orders {
		o := *order
		r.plannedOrders = append(r.plannedOrders, &o)
	}
	return nil
}

func (r *DemandRepository) FindPlannedOrders(_ context.Context, horizon entities.PlanningHorizon) ([]*entities.PlannedOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var orders []*entities.PlannedOrder
	for _, order := range r.plannedOrders {
		if horizon.Contains(order.StartDate) {
			o := *order
			orders = append(orders, &o)
		}
	}
	return orders, nil
}

// PlannedOrders returns every stored planned order
func (r *DemandRepository) PlannedOrders() []*entities.PlannedOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*entities.PlannedOrder, 0, len(r.plannedOrders))
	for _, order := range r.plannedOrders {
		o := *order
		orders = append(orders, &o)
	}
	return orders
}

func (r *DemandRepository) deleteLocked(rootProductID entities.ProductID, horizon entities.PlanningHorizon) {
	kept := r.plannedOrders[:0]
	for _, order := range r.plannedOrders {
		if order.RootProductID == rootProductID && horizon.OverlapsRange(order.StartDate, order.DueDate) {
			continue
		}
		kept = append(kept, order)
	}
	for i := len(kept); i < len(r.plannedOrders); i++ {
		r.plannedOrders[i] = nil
	}
	r.plannedOrders = kept
}
