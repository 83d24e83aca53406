package memory

import (
	"context"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// BOMRepository provides in-memory storage of BOM versions
type BOMRepository struct {
	store *versionStore[*entities.BillOfMaterials]
}

// NewBOMRepository creates an empty BOM repository
func NewBOMRepository() *BOMRepository {
	return &BOMRepository{
		store: newVersionStore("bom",
			func(b *entities.BillOfMaterials) string { return b.ID },
			func(b *entities.BillOfMaterials) entities.ProductID { return b.ProductID },
			(*entities.BillOfMaterials).Clone),
	}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

func (r *BOMRepository) FindByID(_ context.Context, id string) (*entities.BillOfMaterials, error) {
	return r.store.findByID(id)
}

func (r *BOMRepository) FindByProductID(_ context.Context, productID entities.ProductID, date time.Time) (*entities.BillOfMaterials, error) {
	return r.store.findEffective(productID, date)
}

func (r *BOMRepository) FindAllVersions(_ context.Context, productID entities.ProductID) ([]*entities.BillOfMaterials, error) {
	return r.store.findAllVersions(productID), nil
}

// All returns every stored version ordered by product and version
func (r *BOMRepository) All() []*entities.BillOfMaterials {
	return r.store.all()
}

func (r *BOMRepository) Create(_ context.Context, bom *entities.BillOfMaterials) error {
	return r.store.create(bom)
}

func (r *BOMRepository) Update(_ context.Context, bom *entities.BillOfMaterials) error {
	return r.store.update(bom)
}
