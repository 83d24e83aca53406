package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// WorkCenterRepository stores work centers and applies a shared working calendar
type WorkCenterRepository struct {
	mu          sync.RWMutex
	workCenters map[string]entities.WorkCenter
	calendar    entities.Calendar
}

// NewWorkCenterRepository creates a repository using calendar for availability.
// A nil calendar counts every day.
func NewWorkCenterRepository(calendar entities.Calendar) *WorkCenterRepository {
	if calendar == nil {
		calendar = entities.AllDaysCalendar{}
	}
	return &WorkCenterRepository{
		workCenters: make(map[string]entities.WorkCenter),
		calendar:    calendar,
	}
}

// Verify interface compliance
var _ repositories.WorkCenterManager = (*WorkCenterRepository)(nil)

// Save adds or replaces a work center
func (r *WorkCenterRepository) Save(wc *entities.WorkCenter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workCenters[wc.ID] = *wc
}

func (r *WorkCenterRepository) GetByID(_ context.Context, id string) (*entities.WorkCenter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wc, ok := r.workCenters[id]
	if !ok {
		return nil, entities.NewNotFoundError("work center", id)
	}
	return &wc, nil
}

func (r *WorkCenterRepository) FindActive(_ context.Context) ([]*entities.WorkCenter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []*entities.WorkCenter
	for _, wc := range r.workCenters {
		wc := wc
		if wc.Active {
			active = append(active, &wc)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

func (r *WorkCenterRepository) GetAvailableHoursForPeriod(ctx context.Context, workCenterID string, from, to time.Time) (map[time.Time]decimal.Decimal, error) {
	wc, err := r.GetByID(ctx, workCenterID)
	if err != nil {
		return nil, err
	}

	hours := make(map[time.Time]decimal.Decimal)
	if !wc.Active {
		return hours, nil
	}
	daily := wc.DailyAvailableHours()
	for d := entities.DateOf(from); !d.After(entities.DateOf(to)); d = d.AddDate(0, 0, 1) {
		if r.calendar.IsWorkingDay(d) {
			hours[d] = daily
		}
	}
	return hours, nil
}
