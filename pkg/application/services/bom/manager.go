package bom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/application/services/versioning"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/domain/services"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

// DefaultMaxDepth bounds BOM traversal when no depth is configured
const DefaultMaxDepth = 32

// Config holds BOM manager settings
type Config struct {
	MaxDepth int
}

// Manager is the only writer of bills of materials. It enforces version
// effectivity, draft-only editing and the no-cycle rule at write time.
type Manager struct {
	repo      repositories.BOMRepository
	validator *services.BOMValidator
	maxDepth  int
	opts      shared.Options
}

// NewManager creates a BOM manager over repo
func NewManager(repo repositories.BOMRepository, cfg Config, opts ...shared.Option) *Manager {
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Manager{
		repo:      repo,
		validator: services.NewBOMValidator(),
		maxDepth:  maxDepth,
		opts:      shared.Apply(opts...),
	}
}

// Create stores a new draft version. ID, status and timestamps are assigned here.
func (m *Manager) Create(ctx context.Context, bom *entities.BillOfMaterials) (*entities.BillOfMaterials, error) {
	if bom.ProductID == "" {
		return nil, fmt.Errorf("product id cannot be empty: %w", entities.ErrInvalidArgument)
	}
	eff, err := entities.NewEffectivity(bom.Effectivity.From, bom.Effectivity.To)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, entities.ErrInvalidArgument)
	}

	created := bom.Clone()
	created.Effectivity = *eff
	seen := make(map[int]bool, len(created.Lines))
	for i, line := range created.Lines {
		validated, err := entities.NewBOMLine(line.LineNumber, line.ComponentID, line.QtyPer, line.UnitOfMeasure)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line.LineNumber, err, entities.ErrInvalidArgument)
		}
		if seen[line.LineNumber] {
			return nil, fmt.Errorf("duplicate line number %d: %w", line.LineNumber, entities.ErrInvalidArgument)
		}
		seen[line.LineNumber] = true
		created.Lines[i] = *validated
	}

	existing, err := m.repo.FindAllVersions(ctx, created.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load versions of %s: %w", created.ProductID, err)
	}
	if err := versioning.CheckNew(existing, created.Version, created.Effectivity); err != nil {
		return nil, err
	}
	for _, line := range created.Lines {
		if err := m.checkCircularReference(ctx, created.ProductID, line.ComponentID, created.Effectivity); err != nil {
			return nil, err
		}
	}

	now := m.opts.Now()
	created.ID = uuid.NewString()
	created.Status = entities.StatusDraft
	created.CreatedAt = now
	created.UpdatedAt = now
	if err := m.repo.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create BOM for %s: %w", created.ProductID, err)
	}

	m.opts.Logger.Info("bom created",
		zap.String("bom_id", created.ID),
		zap.String("product_id", string(created.ProductID)),
		zap.Int("version", created.Version),
		zap.Stringer("effectivity", created.Effectivity))
	m.publish(ctx, events.BOMCreatedEvent, created, nil)
	return created, nil
}

// GetByID returns a BOM version or an ErrNotFound error
func (m *Manager) GetByID(ctx context.Context, id string) (*entities.BillOfMaterials, error) {
	return m.repo.FindByID(ctx, id)
}

// GetEffective returns the non-obsolete version covering date
func (m *Manager) GetEffective(ctx context.Context, productID entities.ProductID, date time.Time) (*entities.BillOfMaterials, error) {
	return m.repo.FindByProductID(ctx, productID, entities.DateOf(date))
}

// CreateVersion copies bomID into a new open-ended draft version effective
// from effectiveFrom. An open-ended predecessor is capped at that date.
func (m *Manager) CreateVersion(ctx context.Context, bomID string, newVersion int, effectiveFrom time.Time) (*entities.BillOfMaterials, error) {
	if effectiveFrom.IsZero() {
		return nil, fmt.Errorf("effective from date cannot be empty: %w", entities.ErrInvalidArgument)
	}
	source, err := m.repo.FindByID(ctx, bomID)
	if err != nil {
		return nil, err
	}

	existing, err := m.repo.FindAllVersions(ctx, source.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to load versions of %s: %w", source.ProductID, err)
	}
	superseded, err := versioning.Supersede(existing, newVersion, effectiveFrom)
	if err != nil {
		return nil, err
	}

	from := entities.DateOf(effectiveFrom)
	for _, line := range source.Lines {
		if err := m.checkCircularReference(ctx, source.ProductID, line.ComponentID, entities.Effectivity{From: from}); err != nil {
			return nil, err
		}
	}

	now := m.opts.Now()
	created := source.Clone()
	created.ID = uuid.NewString()
	created.Version = newVersion
	created.Status = entities.StatusDraft
	created.Effectivity = entities.Effectivity{From: from}
	created.CreatedAt = now
	created.UpdatedAt = now
	if err := m.repo.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create version %d of %s: %w", newVersion, source.ProductID, err)
	}

	for i, prev := range superseded {
		prev.UpdatedAt = now
		if err := m.repo.Update(ctx, prev); err != nil {
			m.undoSupersede(ctx, created, superseded[:i])
			return nil, fmt.Errorf("failed to supersede version %d: %w", prev.Version, err)
		}
		m.opts.Logger.Info("bom version superseded",
			zap.String("bom_id", prev.ID),
			zap.Int("version", prev.Version),
			zap.Stringer("effectivity", prev.Effectivity))
	}

	m.publish(ctx, events.BOMVersionCreatedEvent, created, nil)
	return created, nil
}

// undoSupersede reopens the capped predecessors and retires the new version
// after a failed CreateVersion. Failures here are only logged.
func (m *Manager) undoSupersede(ctx context.Context, created *entities.BillOfMaterials, capped []*entities.BillOfMaterials) {
	for _, prev := range capped {
		prev.Effectivity.To = time.Time{}
		if err := m.repo.Update(ctx, prev); err != nil {
			m.opts.Logger.Error("failed to reopen superseded bom version",
				zap.String("bom_id", prev.ID), zap.Error(err))
		}
	}
	created.Status = entities.StatusObsolete
	if err := m.repo.Update(ctx, created); err != nil {
		m.opts.Logger.Error("failed to retire bom version",
			zap.String("bom_id", created.ID), zap.Error(err))
	}
}

// AddLine adds a component line to a draft BOM. A line that would make the
// product a component of itself is rejected and the BOM is left unchanged.
func (m *Manager) AddLine(ctx context.Context, bomID string, line entities.BOMLine) (*entities.BillOfMaterials, error) {
	bom, err := m.draft(ctx, bomID, "add line to")
	if err != nil {
		return nil, err
	}
	validated, err := entities.NewBOMLine(line.LineNumber, line.ComponentID, line.QtyPer, line.UnitOfMeasure)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, entities.ErrInvalidArgument)
	}
	if _, exists := bom.FindLine(validated.LineNumber); exists {
		return nil, fmt.Errorf("line number %d already used in BOM %s: %w", validated.LineNumber, bom.ID, entities.ErrInvalidArgument)
	}
	if err := m.checkCircularReference(ctx, bom.ProductID, validated.ComponentID, bom.Effectivity); err != nil {
		return nil, err
	}

	bom.Lines = append(bom.Lines, *validated)
	bom.Lines = bom.SortedLines()
	bom.UpdatedAt = m.opts.Now()
	if err := m.repo.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("failed to update BOM %s: %w", bom.ID, err)
	}

	m.publish(ctx, events.BOMLineAddedEvent, bom, validated)
	return bom, nil
}

// RemoveLine deletes a line from a draft BOM
func (m *Manager) RemoveLine(ctx context.Context, bomID string, lineNumber int) (*entities.BillOfMaterials, error) {
	bom, err := m.draft(ctx, bomID, "remove line from")
	if err != nil {
		return nil, err
	}
	idx, exists := bom.FindLine(lineNumber)
	if !exists {
		return nil, entities.NewNotFoundError("bom line", fmt.Sprintf("%s/%d", bom.ID, lineNumber))
	}
	removed := bom.Lines[idx]
	bom.Lines = append(bom.Lines[:idx], bom.Lines[idx+1:]...)
	bom.UpdatedAt = m.opts.Now()
	if err := m.repo.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("failed to update BOM %s: %w", bom.ID, err)
	}

	m.publish(ctx, events.BOMLineRemovedEvent, bom, &removed)
	return bom, nil
}

// Validate returns every structural problem of a BOM. An empty result means
// the BOM may be released.
func (m *Manager) Validate(ctx context.Context, bomID string) ([]string, error) {
	bom, err := m.repo.FindByID(ctx, bomID)
	if err != nil {
		return nil, err
	}

	var messages []string
	if len(bom.Lines) == 0 {
		messages = append(messages, "BOM has no components")
	}
	if !bom.Effectivity.OpenEnded() && !bom.Effectivity.To.After(bom.Effectivity.From) {
		messages = append(messages, fmt.Sprintf("effectivity %s ends before it starts", bom.Effectivity))
	}

	selfReference := false
	seen := make(map[int]bool, len(bom.Lines))
	for _, line := range bom.Lines {
		if seen[line.LineNumber] {
			messages = append(messages, fmt.Sprintf("duplicate line number %d", line.LineNumber))
		}
		seen[line.LineNumber] = true
		if !line.QtyPer.IsPositive() {
			messages = append(messages, fmt.Sprintf("line %d: quantity per must be positive, got %s", line.LineNumber, line.QtyPer))
		}
		if line.ComponentID == bom.ProductID {
			selfReference = true
			messages = append(messages, fmt.Sprintf("line %d: product %s cannot be a component of itself", line.LineNumber, bom.ProductID))
		}
	}

	if len(bom.Lines) > 0 && !selfReference {
		_, err := m.explode(ctx, bom, decimal.NewFromInt(1), bom.Effectivity.From)
		switch {
		case errors.Is(err, entities.ErrCircularBOM), errors.Is(err, entities.ErrMaxDepthExceeded):
			messages = append(messages, err.Error())
		case err != nil:
			return nil, err
		default:
			// versions effective later in the window may still close a loop
			for _, line := range bom.SortedLines() {
				err := m.checkCircularReference(ctx, bom.ProductID, line.ComponentID, bom.Effectivity)
				if errors.Is(err, entities.ErrCircularBOM) {
					messages = append(messages, err.Error())
					break
				}
				if err != nil {
					return nil, err
				}
			}
		}
	}

	return messages, nil
}

// Release moves a valid draft to released
func (m *Manager) Release(ctx context.Context, bomID string) (*entities.BillOfMaterials, error) {
	bom, err := m.draft(ctx, bomID, "release")
	if err != nil {
		return nil, err
	}
	messages, err := m.Validate(ctx, bomID)
	if err != nil {
		return nil, err
	}
	if len(messages) > 0 {
		return nil, &entities.ValidationError{Subject: fmt.Sprintf("BOM %s", bom.ID), Messages: messages}
	}

	bom.Status = entities.StatusReleased
	bom.UpdatedAt = m.opts.Now()
	if err := m.repo.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("failed to release BOM %s: %w", bom.ID, err)
	}

	m.publish(ctx, events.BOMReleasedEvent, bom, nil)
	return bom, nil
}

// Obsolete retires a draft or released version
func (m *Manager) Obsolete(ctx context.Context, bomID string) (*entities.BillOfMaterials, error) {
	bom, err := m.repo.FindByID(ctx, bomID)
	if err != nil {
		return nil, err
	}
	if bom.Status == entities.StatusObsolete {
		return nil, fmt.Errorf("BOM %s is already obsolete: %w", bom.ID, entities.ErrInvalidState)
	}

	bom.Status = entities.StatusObsolete
	bom.UpdatedAt = m.opts.Now()
	if err := m.repo.Update(ctx, bom); err != nil {
		return nil, fmt.Errorf("failed to obsolete BOM %s: %w", bom.ID, err)
	}

	m.publish(ctx, events.BOMObsoletedEvent, bom, nil)
	return bom, nil
}

// ValidateProducts runs the whole-structure validator over every version of the given products
func (m *Manager) ValidateProducts(ctx context.Context, productIDs []entities.ProductID) (*services.ValidationResult, error) {
	var all []*entities.BillOfMaterials
	for _, productID := range productIDs {
		versions, err := m.repo.FindAllVersions(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("failed to load versions of %s: %w", productID, err)
		}
		all = append(all, versions...)
	}
	return m.validator.ValidateStructure(all), nil
}

func (m *Manager) draft(ctx context.Context, bomID, action string) (*entities.BillOfMaterials, error) {
	bom, err := m.repo.FindByID(ctx, bomID)
	if err != nil {
		return nil, err
	}
	if bom.Status != entities.StatusDraft {
		return nil, fmt.Errorf("cannot %s BOM %s in status %s: %w", action, bom.ID, bom.Status, entities.ErrInvalidState)
	}
	return bom, nil
}

// reachNode is a product reached by the cycle walk together with the window
// in which every BOM on the way to it is effective
type reachNode struct {
	productID entities.ProductID
	window    entities.Effectivity
	from      int
}

// checkCircularReference fails if parent is reachable from component through
// any non-obsolete BOM versions effective together on some day of window.
func (m *Manager) checkCircularReference(ctx context.Context, parent, component entities.ProductID, window entities.Effectivity) error {
	if parent == component {
		return &entities.CircularBOMError{ProductID: parent, ComponentID: component, Path: []entities.ProductID{parent, component}}
	}

	nodes := []reachNode{{productID: component, window: window, from: -1}}
	visited := map[string]bool{string(component) + window.String(): true}
	work := []int{0}
	for len(work) > 0 {
		idx := work[len(work)-1]
		work = work[:len(work)-1]
		current := nodes[idx]

		versions, err := m.repo.FindAllVersions(ctx, current.productID)
		if err != nil && !errors.Is(err, entities.ErrNotFound) {
			return fmt.Errorf("failed to load BOM versions of %s: %w", current.productID, err)
		}
		for _, bom := range versions {
			if bom.IsObsolete() {
				continue
			}
			overlap, ok := current.window.Intersect(bom.Effectivity)
			if !ok {
				continue
			}
			for _, line := range bom.SortedLines() {
				if line.ComponentID == parent {
					return &entities.CircularBOMError{
						ProductID:   parent,
						ComponentID: component,
						Path:        tracePath(nodes, idx, parent),
					}
				}
				key := string(line.ComponentID) + overlap.String()
				if visited[key] {
					continue
				}
				visited[key] = true
				nodes = append(nodes, reachNode{productID: line.ComponentID, window: overlap, from: idx})
				work = append(work, len(nodes)-1)
			}
		}
	}
	return nil
}

// tracePath rebuilds parent -> ... -> nodes[last] -> parent from the walk's back-pointers
func tracePath(nodes []reachNode, last int, parent entities.ProductID) []entities.ProductID {
	reversed := []entities.ProductID{parent}
	for idx := last; idx >= 0; idx = nodes[idx].from {
		reversed = append(reversed, nodes[idx].productID)
	}
	reversed = append(reversed, parent)
	path := make([]entities.ProductID, len(reversed))
	for i, p := range reversed {
		path[len(reversed)-1-i] = p
	}
	return path
}

func (m *Manager) publish(ctx context.Context, eventType string, bom *entities.BillOfMaterials, line *entities.BOMLine) {
	events.PublishQuietly(ctx, m.opts.Publisher, m.opts.Logger, events.NewEvent(eventType, bom.ID, events.BOMChanged{
		BOMID:     bom.ID,
		ProductID: bom.ProductID,
		Version:   bom.Version,
		Status:    bom.Status.String(),
		Line:      line,
	}))
}
