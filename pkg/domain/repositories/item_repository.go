package repositories

import (
	"context"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// ItemRepository provides access to item master data
type ItemRepository interface {
	GetItem(ctx context.Context, productID entities.ProductID) (*entities.Item, error)
	GetAllItems(ctx context.Context) ([]*entities.Item, error)
	SaveItem(ctx context.Context, item *entities.Item) error
}
