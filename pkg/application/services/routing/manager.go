package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/application/services/versioning"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

// Manager is the only writer of routings. It follows the same version
// lifecycle as bills of materials.
type Manager struct {
	repo        repositories.RoutingRepository
	workCenters repositories.WorkCenterManager
	opts        shared.Options
}

// NewManager creates a routing manager. workCenters is optional; when set,
// operations must reference an existing work center.
func NewManager(repo repositories.RoutingRepository, workCenters repositories.WorkCenterManager, opts ...shared.Option) *Manager {
	return &Manager{
		repo:        repo,
		workCenters: workCenters,
		opts:        shared.Apply(opts...),
	}
}

// Create stores a new draft routing version
func (m *Manager) Create(ctx context.Context, routing *entities.Routing) (*entities.Routing, error) {
	if routing.ProductID == "" {
		return nil, fmt.Errorf("product id cannot be empty: %w", entities.ErrInvalidArgument)
	}
	eff, err := entities.NewEffectivity(routing.Effectivity.From, routing.Effectivity.To)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, entities.ErrInvalidArgument)
	}

	created := routing.Clone()
	created.Effectivity = *eff
	seen := make(map[int]bool, len(created.Operations))
	for i, op := range created.Operations {
		validated, err := m.validateOperation(ctx, op)
		if err != nil {
			return nil, err
		}
		if seen[op.OperationNumber] {
			return nil, fmt.Errorf("duplicate operation number %d: %w", op.OperationNumber, entities.ErrInvalidArgument)
		}
		seen[op.OperationNumber] = true
		created.Operations[i] = *validated
	}
	created.SortOperations()

	existing, err := m.repo.FindAllVersions(ctx, created.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load routing versions of %s: %w", created.ProductID, err)
	}
	if err := versioning.CheckNew(existing, created.Version, created.Effectivity); err != nil {
		return nil, err
	}

	now := m.opts.Now()
	created.ID = uuid.NewString()
	created.Status = entities.StatusDraft
	created.CreatedAt = now
	created.UpdatedAt = now
	if err := m.repo.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create routing for %s: %w", created.ProductID, err)
	}

	m.opts.Logger.Info("routing created",
		zap.String("routing_id", created.ID),
		zap.String("product_id", string(created.ProductID)),
		zap.Int("version", created.Version))
	m.publish(ctx, events.RoutingCreatedEvent, created)
	return created, nil
}

func (m *Manager) GetByID(ctx context.Context, id string) (*entities.Routing, error) {
	return m.repo.FindByID(ctx, id)
}

// GetEffective returns the non-obsolete routing covering date
func (m *Manager) GetEffective(ctx context.Context, productID entities.ProductID, date time.Time) (*entities.Routing, error) {
	return m.repo.FindByProductID(ctx, productID, entities.DateOf(date))
}

// CreateVersion copies routingID into a new open-ended draft version
func (m *Manager) CreateVersion(ctx context.Context, routingID string, newVersion int, effectiveFrom time.Time) (*entities.Routing, error) {
	if effectiveFrom.IsZero() {
		return nil, fmt.Errorf("effective from date cannot be empty: %w", entities.ErrInvalidArgument)
	}
	source, err := m.repo.FindByID(ctx, routingID)
	if err != nil {
		return nil, err
	}
	existing, err := m.repo.FindAllVersions(ctx, source.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load routing versions of %s: %w", source.ProductID, err)
	}
	superseded, err := versioning.Supersede(existing, newVersion, effectiveFrom)
	if err != nil {
		return nil, err
	}

	now := m.opts.Now()
	created := source.Clone()
	created.ID = uuid.NewString()
	created.Version = newVersion
	created.Status = entities.StatusDraft
	created.Effectivity = entities.Effectivity{From: entities.DateOf(effectiveFrom)}
	created.CreatedAt = now
	created.UpdatedAt = now
	if err := m.repo.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create routing version %d of %s: %w", newVersion, source.ProductID, err)
	}

	for i, prev := range superseded {
		prev.UpdatedAt = now
		if err := m.repo.Update(ctx, prev); err != nil {
			m.undoSupersede(ctx, created, superseded[:i])
			return nil, fmt.Errorf("failed to supersede routing version %d: %w", prev.Version, err)
		}
	}

	m.publish(ctx, events.RoutingVersionCreatedEvent, created)
	return created, nil
}

// undoSupersede reopens the capped predecessors and retires the new version
func (m *Manager) undoSupersede(ctx context.Context, created *entities.Routing, capped []*entities.Routing) {
	for _, prev := range capped {
		prev.Effectivity.To = time.Time{}
		if err := m.repo.Update(ctx, prev); err != nil {
			m.opts.Logger.Error("failed to reopen superseded routing version",
				zap.String("routing_id", prev.ID), zap.Error(err))
		}
	}
	created.Status = entities.StatusObsolete
	if err := m.repo.Update(ctx, created); err != nil {
		m.opts.Logger.Error("failed to retire routing version",
			zap.String("routing_id", created.ID), zap.Error(err))
	}
}

// AddOperation adds an operation to a draft routing
func (m *Manager) AddOperation(ctx context.Context, routingID string, op entities.Operation) (*entities.Routing, error) {
	routing, err := m.draft(ctx, routingID, "add operation to")
	if err != nil {
		return nil, err
	}
	validated, err := m.validateOperation(ctx, op)
	if err != nil {
		return nil, err
	}
	if _, exists := routing.FindOperation(validated.OperationNumber); exists {
		return nil, fmt.Errorf("operation number %d already used in routing %s: %w",
			validated.OperationNumber, routing.ID, entities.ErrInvalidArgument)
	}

	routing.Operations = append(routing.Operations, *validated)
	routing.SortOperations()
	return m.save(ctx, routing, events.RoutingChangedEvent)
}

// RemoveOperation deletes an operation from a draft routing
func (m *Manager) RemoveOperation(ctx context.Context, routingID string, operationNumber int) (*entities.Routing, error) {
	routing, err := m.draft(ctx, routingID, "remove operation from")
	if err != nil {
		return nil, err
	}
	idx, exists := routing.FindOperation(operationNumber)
	if !exists {
		return nil, entities.NewNotFoundError("operation", fmt.Sprintf("%s/%d", routing.ID, operationNumber))
	}
	routing.Operations = append(routing.Operations[:idx], routing.Operations[idx+1:]...)
	return m.save(ctx, routing, events.RoutingChangedEvent)
}

// Release moves a draft with at least one operation to released
func (m *Manager) Release(ctx context.Context, routingID string) (*entities.Routing, error) {
	routing, err := m.draft(ctx, routingID, "release")
	if err != nil {
		return nil, err
	}
	if len(routing.Operations) == 0 {
		return nil, &entities.ValidationError{
			Subject:  fmt.Sprintf("routing %s", routing.ID),
			Messages: []string{"routing has no operations"},
		}
	}
	routing.Status = entities.StatusReleased
	return m.save(ctx, routing, events.RoutingReleasedEvent)
}

// Obsolete retires a draft or released routing
func (m *Manager) Obsolete(ctx context.Context, routingID string) (*entities.Routing, error) {
	routing, err := m.repo.FindByID(ctx, routingID)
	if err != nil {
		return nil, err
	}
	if routing.Status == entities.StatusObsolete {
		return nil, fmt.Errorf("routing %s is already obsolete: %w", routing.ID, entities.ErrInvalidState)
	}
	routing.Status = entities.StatusObsolete
	return m.save(ctx, routing, events.RoutingObsoletedEvent)
}

func (m *Manager) validateOperation(ctx context.Context, op entities.Operation) (*entities.Operation, error) {
	validated, err := entities.NewOperation(op.OperationNumber, op.WorkCenterID, op.Description, op.Type, op.SetupTimeMinutes, op.RunTimeMinutes)
	if err != nil {
		return nil, fmt.Errorf("operation %d: %v: %w", op.OperationNumber, err, entities.ErrInvalidArgument)
	}
	if m.workCenters != nil {
		if _, err := m.workCenters.GetByID(ctx, validated.WorkCenterID); err != nil {
			return nil, fmt.Errorf("operation %d: %w", op.OperationNumber, err)
		}
	}
	return validated, nil
}

func (m *Manager) draft(ctx context.Context, routingID, action string) (*entities.Routing, error) {
	routing, err := m.repo.FindByID(ctx, routingID)
	if err != nil {
		return nil, err
	}
	if routing.Status != entities.StatusDraft {
		return nil, fmt.Errorf("cannot %s routing %s in status %s: %w", action, routing.ID, routing.Status, entities.ErrInvalidState)
	}
	return routing, nil
}

func (m *Manager) save(ctx context.Context, routing *entities.Routing, eventType string) (*entities.Routing, error) {
	routing.UpdatedAt = m.opts.Now()
	if err := m.repo.Update(ctx, routing); err != nil {
		return nil, fmt.Errorf("failed to update routing %s: %w", routing.ID, err)
	}
	m.publish(ctx, eventType, routing)
	return routing, nil
}

func (m *Manager) publish(ctx context.Context, eventType string, routing *entities.Routing) {
	events.PublishQuietly(ctx, m.opts.Publisher, m.opts.Logger, events.NewEvent(eventType, routing.ID, events.RoutingChanged{
		RoutingID: routing.ID,
		ProductID: routing.ProductID,
		Version:   routing.Version,
		Status:    routing.Status.String(),
	}))
}
