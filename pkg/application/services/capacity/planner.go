package capacity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
)

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// RoutingSource resolves the routing effective for a product on a date
type RoutingSource interface {
	GetEffective(ctx context.Context, productID entities.ProductID, date time.Time) (*entities.Routing, error)
}

// Config holds capacity planning settings
type Config struct {
	BottleneckThreshold decimal.Decimal
	BucketDays          int
	MaxScanDays         int
}

// DefaultConfig returns a one-day bucket, 100% threshold and one-year scan
func DefaultConfig() Config {
	return Config{
		BottleneckThreshold: decimal.NewFromInt(1),
		BucketDays:          1,
		MaxScanDays:         365,
	}
}

// Planner compares the load implied by planned orders with work center
// availability. It never moves orders.
type Planner struct {
	workCenters repositories.WorkCenterManager
	routings    RoutingSource
	orders      repositories.PlannedOrderReader
	cfg         Config
	opts        shared.Options
}

// NewPlanner creates a capacity planner. orders may be nil, in which case no
// existing load is assumed.
func NewPlanner(workCenters repositories.WorkCenterManager, routings RoutingSource, orders repositories.PlannedOrderReader, cfg Config, opts ...shared.Option) *Planner {
	defaults := DefaultConfig()
	if !cfg.BottleneckThreshold.IsPositive() {
		cfg.BottleneckThreshold = defaults.BottleneckThreshold
	}
	if cfg.BucketDays <= 0 {
		cfg.BucketDays = defaults.BucketDays
	}
	if cfg.MaxScanDays <= 0 {
		cfg.MaxScanDays = defaults.MaxScanDays
	}
	return &Planner{
		workCenters: workCenters,
		routings:    routings,
		orders:      orders,
		cfg:         cfg,
		opts:        shared.Apply(opts...),
	}
}

// GetCapacityProfile returns the calendar-adjusted hours of every horizon day
func (p *Planner) GetCapacityProfile(ctx context.Context, workCenterID string, horizon entities.PlanningHorizon) (*dto.CapacityProfile, error) {
	hours, err := p.workCenters.GetAvailableHoursForPeriod(ctx, workCenterID, horizon.Start, horizon.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load availability of %s: %w", workCenterID, err)
	}

	profile := &dto.CapacityProfile{
		WorkCenterID:           workCenterID,
		Horizon:                horizon,
		TotalAvailableCapacity: decimal.Zero,
	}
	for _, day := range horizon.Days() {
		h, ok := hours[day]
		if !ok {
			h = decimal.Zero
		}
		profile.Days = append(profile.Days, dto.DailyCapacity{Date: day, Hours: h})
		profile.TotalAvailableCapacity = profile.TotalAvailableCapacity.Add(h)
	}
	return profile, nil
}

type loadKey struct {
	workCenterID string
	bucket       time.Time
}

// CalculateRequirements aggregates routing hours of manufacture orders per
// work center and time bucket. Load lands in the bucket of the order start.
func (p *Planner) CalculateRequirements(ctx context.Context, orders []*entities.PlannedOrder) (*dto.CapacityRequirements, error) {
	loads := make(map[loadKey]decimal.Decimal)
	result := &dto.CapacityRequirements{}

	for _, order := range orders {
		hours, routed, err := p.orderHours(ctx, order)
		if err != nil {
			return nil, err
		}
		if !routed {
			if order.ReplenishmentType == entities.Manufacture {
				result.Unrouted = append(result.Unrouted, order.ID)
			}
			continue
		}
		bucket := p.bucketStart(order.StartDate)
		for wc, h := range hours {
			key := loadKey{workCenterID: wc, bucket: bucket}
			loads[key] = loads[key].Add(h)
		}
	}

	for key, hours := range loads {
		result.Loads = append(result.Loads, dto.WorkCenterLoad{
			WorkCenterID:  key.workCenterID,
			BucketStart:   key.bucket,
			BucketEnd:     p.bucketEnd(key.bucket),
			RequiredHours: hours,
		})
	}
	sort.Slice(result.Loads, func(i, j int) bool {
		if result.Loads[i].WorkCenterID != result.Loads[j].WorkCenterID {
			return result.Loads[i].WorkCenterID < result.Loads[j].WorkCenterID
		}
		return result.Loads[i].BucketStart.Before(result.Loads[j].BucketStart)
	})
	return result, nil
}

// IdentifyBottlenecks reports every work center bucket whose load from the
// stored planned orders reaches the utilisation threshold. A bucket with load
// but no availability is always a bottleneck.
func (p *Planner) IdentifyBottlenecks(ctx context.Context, horizon entities.PlanningHorizon) ([]dto.Bottleneck, error) {
	orders, err := p.existingOrders(ctx, horizon)
	if err != nil {
		return nil, err
	}
	reqs, err := p.CalculateRequirements(ctx, orders)
	if err != nil {
		return nil, err
	}

	available, err := p.bucketAvailabilityInHorizon(ctx, horizon)
	if err != nil {
		return nil, err
	}

	var bottlenecks []dto.Bottleneck
	for _, load := range reqs.Loads {
		if !load.RequiredHours.IsPositive() {
			continue
		}
		avail := available[loadKey{workCenterID: load.WorkCenterID, bucket: load.BucketStart}]
		b := dto.Bottleneck{
			WorkCenterID:   load.WorkCenterID,
			BucketStart:    load.BucketStart,
			BucketEnd:      load.BucketEnd,
			RequiredHours:  load.RequiredHours,
			AvailableHours: avail,
		}
		if avail.IsPositive() {
			b.Utilization = load.RequiredHours.Div(avail)
			if b.Utilization.LessThan(p.cfg.BottleneckThreshold) {
				continue
			}
		} else {
			b.NoCapacity = true
		}
		bottlenecks = append(bottlenecks, b)
	}

	sort.SliceStable(bottlenecks, func(i, j int) bool {
		if bottlenecks[i].NoCapacity != bottlenecks[j].NoCapacity {
			return bottlenecks[i].NoCapacity
		}
		return bottlenecks[i].Utilization.GreaterThan(bottlenecks[j].Utilization)
	})

	for _, b := range bottlenecks {
		p.opts.Logger.Warn("capacity bottleneck",
			zap.String("work_center_id", b.WorkCenterID),
			zap.Time("bucket_start", b.BucketStart),
			zap.String("required_hours", b.RequiredHours.String()),
			zap.String("available_hours", b.AvailableHours.String()))
		events.PublishQuietly(ctx, p.opts.Publisher, p.opts.Logger,
			events.NewEvent(events.CapacityBottleneckEvent, b.WorkCenterID, events.CapacityBottleneck{
				WorkCenterID: b.WorkCenterID,
				BucketStart:  b.BucketStart,
				Utilization:  b.Utilization,
			}))
	}
	return bottlenecks, nil
}

// CheckAvailability tests whether quantity units of productID started on date
// fit the remaining capacity of the date's bucket. A product without an
// effective routing needs no capacity.
func (p *Planner) CheckAvailability(ctx context.Context, productID entities.ProductID, quantity decimal.Decimal, date time.Time) (*dto.AvailabilityResult, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s: %w", quantity, entities.ErrInvalidArgument)
	}
	date = entities.DateOf(date)
	result := &dto.AvailabilityResult{Available: true, Date: date}

	routing, err := p.routings.GetEffective(ctx, productID, date)
	if errors.Is(err, entities.ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve routing of %s: %w", productID, err)
	}
	required := routing.HoursByWorkCenter(quantity)

	bucket := p.bucketStart(date)
	bucketHorizon := entities.PlanningHorizon{Start: bucket, End: p.bucketEnd(bucket).AddDate(0, 0, -1)}
	orders, err := p.existingOrders(ctx, bucketHorizon)
	if err != nil {
		return nil, err
	}
	existing, err := p.CalculateRequirements(ctx, orders)
	if err != nil {
		return nil, err
	}

	for _, wcID := range sortedKeys(required) {
		avail, err := p.bucketAvailability(ctx, wcID, bucket)
		if err != nil {
			return nil, err
		}
		remaining := avail.Sub(existing.TotalFor(wcID))
		if required[wcID].GreaterThan(remaining) {
			result.ConstrainedWorkCenters = append(result.ConstrainedWorkCenters, dto.ConstrainedWorkCenter{
				WorkCenterID:   wcID,
				RequiredHours:  required[wcID],
				RemainingHours: remaining,
			})
		}
	}
	result.Available = len(result.ConstrainedWorkCenters) == 0
	return result, nil
}

// FindEarliestAvailable scans forward bucket by bucket from desiredDate and
// returns the first date whose bucket can absorb the order
func (p *Planner) FindEarliestAvailable(ctx context.Context, productID entities.ProductID, quantity decimal.Decimal, desiredDate time.Time) (time.Time, error) {
	desired := entities.DateOf(desiredDate)
	limit := desired.AddDate(0, 0, p.cfg.MaxScanDays)

	for date := desired; date.Before(limit); date = p.bucketEnd(p.bucketStart(date)) {
		if err := ctx.Err(); err != nil {
			return time.Time{}, err
		}
		result, err := p.CheckAvailability(ctx, productID, quantity, date)
		if err != nil {
			return time.Time{}, err
		}
		if result.Available {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s x%s within %d days of %s: %w",
		productID, quantity, p.cfg.MaxScanDays, desired.Format("2006-01-02"), entities.ErrNoCapacity)
}

// CheckOrders validates a set of planned orders against availability in start
// order, consuming capacity as it goes. Every order that does not fit is reported.
func (p *Planner) CheckOrders(ctx context.Context, orders []*entities.PlannedOrder) ([]dto.CapacityIssue, error) {
	sorted := make([]*entities.PlannedOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartDate.Before(sorted[j].StartDate) })

	consumed := make(map[loadKey]decimal.Decimal)
	available := make(map[loadKey]decimal.Decimal)
	var issues []dto.CapacityIssue

	for _, order := range sorted {
		hours, routed, err := p.orderHours(ctx, order)
		if err != nil {
			return nil, err
		}
		if !routed {
			continue
		}
		bucket := p.bucketStart(order.StartDate)
		for _, wcID := range sortedKeys(hours) {
			key := loadKey{workCenterID: wcID, bucket: bucket}
			avail, cached := available[key]
			if !cached {
				avail, err = p.bucketAvailability(ctx, wcID, bucket)
				if err != nil {
					return nil, err
				}
				available[key] = avail
			}
			remaining := avail.Sub(consumed[key])
			if hours[wcID].GreaterThan(remaining) {
				issues = append(issues, dto.CapacityIssue{
					OrderID:        order.ID,
					ProductID:      order.ProductID,
					WorkCenterID:   wcID,
					Date:           order.StartDate,
					RequiredHours:  hours[wcID],
					RemainingHours: remaining,
				})
			}
			consumed[key] = consumed[key].Add(hours[wcID])
		}
	}
	return issues, nil
}

// orderHours returns required hours per work center; routed is false for
// purchase orders and products without an effective routing
func (p *Planner) orderHours(ctx context.Context, order *entities.PlannedOrder) (map[string]decimal.Decimal, bool, error) {
	if order.ReplenishmentType != entities.Manufacture {
		return nil, false, nil
	}
	routing, err := p.routings.GetEffective(ctx, order.ProductID, order.StartDate)
	if errors.Is(err, entities.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve routing of %s: %w", order.ProductID, err)
	}
	return routing.HoursByWorkCenter(order.Quantity), true, nil
}

func (p *Planner) existingOrders(ctx context.Context, horizon entities.PlanningHorizon) ([]*entities.PlannedOrder, error) {
	if p.orders == nil {
		return nil, nil
	}
	orders, err := p.orders.FindPlannedOrders(ctx, horizon)
	if err != nil {
		return nil, fmt.Errorf("failed to load planned orders: %w", err)
	}
	return orders, nil
}

// bucketAvailability sums a work center's hours over one bucket. Unknown and
// inactive work centers have none.
func (p *Planner) bucketAvailability(ctx context.Context, workCenterID string, bucket time.Time) (decimal.Decimal, error) {
	wc, err := p.workCenters.GetByID(ctx, workCenterID)
	if errors.Is(err, entities.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load work center %s: %w", workCenterID, err)
	}
	if !wc.Active {
		return decimal.Zero, nil
	}
	hours, err := p.workCenters.GetAvailableHoursForPeriod(ctx, workCenterID, bucket, p.bucketEnd(bucket).AddDate(0, 0, -1))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load availability of %s: %w", workCenterID, err)
	}
	total := decimal.Zero
	for _, h := range hours {
		total = total.Add(h)
	}
	return total, nil
}

// bucketAvailabilityInHorizon sums active work center hours per bucket,
// counting only days inside the horizon
func (p *Planner) bucketAvailabilityInHorizon(ctx context.Context, horizon entities.PlanningHorizon) (map[loadKey]decimal.Decimal, error) {
	active, err := p.workCenters.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active work centers: %w", err)
	}
	available := make(map[loadKey]decimal.Decimal)
	for _, wc := range active {
		hours, err := p.workCenters.GetAvailableHoursForPeriod(ctx, wc.ID, horizon.Start, horizon.End)
		if err != nil {
			return nil, fmt.Errorf("failed to load availability of %s: %w", wc.ID, err)
		}
		for day, h := range hours {
			key := loadKey{workCenterID: wc.ID, bucket: p.bucketStart(day)}
			available[key] = available[key].Add(h)
		}
	}
	return available, nil
}

func (p *Planner) bucketStart(date time.Time) time.Time {
	days := int(entities.DateOf(date).Sub(epoch).Hours() / 24)
	offset := days % p.cfg.BucketDays
	if offset < 0 {
		offset += p.cfg.BucketDays
	}
	return epoch.AddDate(0, 0, days-offset)
}

// bucketEnd is exclusive
func (p *Planner) bucketEnd(bucketStart time.Time) time.Time {
	return bucketStart.AddDate(0, 0, p.cfg.BucketDays)
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
