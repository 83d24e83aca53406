package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// ItemRepository provides in-memory item master storage and serves as the
// reference InventoryDataProvider
type ItemRepository struct {
	mu       sync.RWMutex
	items    map[entities.ProductID]entities.Item
	receipts map[entities.ProductID][]entities.ScheduledReceipt
}

// NewItemRepository creates a new in-memory item repository
func NewItemRepository() *ItemRepository {
	return &ItemRepository{
		items:    make(map[entities.ProductID]entities.Item),
		receipts: make(map[entities.ProductID][]entities.ScheduledReceipt),
	}
}

// Verify interface compliance
var _ repositories.ItemRepository = (*ItemRepository)(nil)
var _ repositories.InventoryDataProvider = (*ItemRepository)(nil)

// LoadItems loads items into the repository
func (r *ItemRepository) LoadItems(items []*entities.Item) error {
	for _, item := range items {
		if err := r.SaveItem(context.Background(), item); err != nil {
			return err
		}
	}
	return nil
}

func (r *ItemRepository) SaveItem(_ context.Context, item *entities.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ProductID] = *item
	return nil
}

func (r *ItemRepository) GetItem(_ context.Context, productID entities.ProductID) (*entities.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[productID]
	if !ok {
		return nil, entities.NewNotFoundError("item", string(productID))
	}
	return &item, nil
}

func (r *ItemRepository) GetAllItems(_ context.Context) ([]*entities.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*entities.Item, 0, len(r.items))
	for _, item := range r.items {
		item := item
		items = append(items, &item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

// AddScheduledReceipt records open supply for a product
func (r *ItemRepository) AddScheduledReceipt(receipt entities.ScheduledReceipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt.Date = entities.DateOf(receipt.Date)
	r.receipts[receipt.ProductID] = append(r.receipts[receipt.ProductID], receipt)
}

// SetOnHand overrides the on-hand quantity of an existing item
func (r *ItemRepository) SetOnHand(productID entities.ProductID, quantity decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[productID]
	if !ok {
		return entities.NewNotFoundError("item", string(productID))
	}
	item.OnHand = quantity
	r.items[productID] = item
	return nil
}

func (r *ItemRepository) GetOnHandQuantity(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error) {
	item, err := r.GetItem(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return item.OnHand, nil
}

func (r *ItemRepository) GetSafetyStock(ctx context.Context, productID entities.ProductID) (decimal.Decimal, error) {
	item, err := r.GetItem(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return item.SafetyStock, nil
}

func (r *ItemRepository) GetLeadTimeDays(ctx context.Context, productID entities.ProductID) (int, error) {
	item, err := r.GetItem(ctx, productID)
	if err != nil {
		return 0, err
	}
	return item.LeadTimeDays, nil
}

func (r *ItemRepository) GetReplenishmentType(ctx context.Context, productID entities.ProductID) (entities.ReplenishmentType, error) {
	item, err := r.GetItem(ctx, productID)
	if err != nil {
		return 0, err
	}
	return item.ReplenishmentType, nil
}

func (r *ItemRepository) GetScheduledReceipts(_ context.Context, productID entities.ProductID, horizon entities.PlanningHorizon) ([]entities.ScheduledReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var receipts []entities.ScheduledReceipt
	for _, receipt := range r.receipts[productID] {
		if horizon.Contains(receipt.Date) {
			receipts = append(receipts, receipt)
		}
	}
	sort.SliceStable(receipts, func(i, j int) bool { return receipts[i].Date.Before(receipts[j].Date) })
	return receipts, nil
}
