package memory

import (
	"context"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// RoutingRepository provides in-memory storage of routing versions
type RoutingRepository struct {
	store *versionStore[*entities.Routing]
}

// NewRoutingRepository creates an empty routing repository
func NewRoutingRepository() *RoutingRepository {
	return &RoutingRepository{
		store: newVersionStore("routing",
			func(r *entities.Routing) string { return r.ID },
			func(r *entities.Routing) entities.ProductID { return r.ProductID },
			(*entities.Routing).Clone),
	}
}

// Verify interface compliance
var _ repositories.RoutingRepository = (*RoutingRepository)(nil)

func (r *RoutingRepository) FindByID(_ context.Context, id string) (*entities.Routing, error) {
	return r.store.findByID(id)
}

func (r *RoutingRepository) FindByProductID(_ context.Context, productID entities.ProductID, date time.Time) (*entities.Routing, error) {
	return r.store.findEffective(productID, date)
}

func (r *RoutingRepository) FindAllVersions(_ context.Context, productID entities.ProductID) ([]*entities.Routing, error) {
	return r.store.findAllVersions(productID), nil
}

func (r *RoutingRepository) Create(_ context.Context, routing *entities.Routing) error {
	return r.store.create(routing)
}

func (r *RoutingRepository) Update(_ context.Context, routing *entities.Routing) error {
	return r.store.update(routing)
}
