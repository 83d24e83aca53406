package repositories

import (
	"context"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// BOMRepository provides access to Bill of Materials versions
type BOMRepository interface {
	FindByID(ctx context.Context, id string) (*entities.BillOfMaterials, error)

	// FindByProductID returns the non-obsolete version effective on date.
	// Returns an error matching entities.ErrNotFound when none covers the date.
	FindByProductID(ctx context.Context, productID entities.ProductID, date time.Time) (*entities.BillOfMaterials, error)

	FindAllVersions(ctx context.Context, productID entities.ProductID) ([]*entities.BillOfMaterials, error)
	Create(ctx context.Context, bom *entities.BillOfMaterials) error
	Update(ctx context.Context, bom *entities.BillOfMaterials) error
}

// RoutingRepository provides access to routing versions
type RoutingRepository interface {
	FindByID(ctx context.Context, id string) (*entities.Routing, error)
	FindByProductID(ctx context.Context, productID entities.ProductID, date time.Time) (*entities.Routing, error)
	FindAllVersions(ctx context.Context, productID entities.ProductID) ([]*entities.Routing, error)
	Create(ctx context.Context, routing *entities.Routing) error
	Update(ctx context.Context, routing *entities.Routing) error
}
