package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// WorkCenterManager provides work centers and their calendar-adjusted availability
type WorkCenterManager interface {
	GetByID(ctx context.Context, id string) (*entities.WorkCenter, error)
	FindActive(ctx context.Context) ([]*entities.WorkCenter, error)

	// GetAvailableHoursForPeriod returns available hours per working day in [from, to]
	GetAvailableHoursForPeriod(ctx context.Context, workCenterID string, from, to time.Time) (map[time.Time]decimal.Decimal, error)
}
