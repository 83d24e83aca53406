package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/bom"
	"github.com/vsinha/mfgplan/pkg/application/services/capacity"
	"github.com/vsinha/mfgplan/pkg/application/services/criticalpath"
	"github.com/vsinha/mfgplan/pkg/application/services/forecast"
	"github.com/vsinha/mfgplan/pkg/application/services/mrp"
	"github.com/vsinha/mfgplan/pkg/application/services/routing"
	"github.com/vsinha/mfgplan/pkg/application/services/shared"
	"github.com/vsinha/mfgplan/pkg/application/services/workorder"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/infrastructure/config"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
	historical "github.com/vsinha/mfgplan/pkg/infrastructure/forecast"
	"github.com/vsinha/mfgplan/pkg/infrastructure/metrics"
	csvloader "github.com/vsinha/mfgplan/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/sqlite"
)

// app wires the planning services over one loaded scenario
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	items       *memory.ItemRepository
	demand      *memory.DemandRepository
	boms        *memory.BOMRepository
	routings    *memory.RoutingRepository
	workCenters *memory.WorkCenterRepository
	workOrders  *memory.WorkOrderRepository
	history     *historical.MovingAverage

	store    *sqlite.PlannedOrderStore
	planned  repositories.DemandDataProvider
	events   *events.InMemoryEventStore
	registry *prometheus.Registry

	bomManager     *bom.Manager
	routingManager *routing.Manager
	planner        *capacity.Planner
	engine         *mrp.Engine
	forecaster     *forecast.Forecaster
	orders         *workorder.Manager
	criticalPath   *criticalpath.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	calendar, err := cfg.WorkingCalendar()
	if err != nil {
		return nil, err
	}
	lotSizing, err := cfg.LotSizingStrategy()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		logger:      logger,
		items:       memory.NewItemRepository(),
		demand:      memory.NewDemandRepository(),
		boms:        memory.NewBOMRepository(),
		routings:    memory.NewRoutingRepository(),
		workCenters: memory.NewWorkCenterRepository(calendar),
		workOrders:  memory.NewWorkOrderRepository(),
		history:     historical.NewMovingAverage(0),
		events:      events.NewInMemoryEventStore(logger),
		registry:    prometheus.NewRegistry(),
	}

	planningMetrics, err := metrics.NewPlanningMetrics(a.registry)
	if err != nil {
		return nil, err
	}
	if err := planningMetrics.Register(a.events); err != nil {
		return nil, fmt.Errorf("failed to subscribe planning metrics: %w", err)
	}

	var orderReader repositories.PlannedOrderReader = a.demand
	a.planned = a.demand
	if path := cfg.Storage.PlannedOrdersPath; path != "" {
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		a.store = store
		a.planned = sqlite.DemandProvider{DemandSource: a.demand, PlannedOrderStore: store}
		orderReader = store
		logger.Info("planned orders stored in sqlite", zap.String("path", path))
	}

	opts := []shared.Option{shared.WithLogger(logger), shared.WithPublisher(a.events)}
	a.bomManager = bom.NewManager(a.boms, bom.Config{MaxDepth: cfg.Planning.MaxBOMDepth}, opts...)
	a.routingManager = routing.NewManager(a.routings, a.workCenters, opts...)
	a.planner = capacity.NewPlanner(a.workCenters, a.routingManager, orderReader, cfg.CapacityPlannerConfig(), opts...)
	a.engine = mrp.NewEngine(a.items, a.planned, a.boms, a.planner, mrp.Config{
		MaxDepth:      cfg.Planning.MaxBOMDepth,
		Workers:       cfg.Planning.Workers,
		CheckCapacity: cfg.Planning.CheckCapacity,
		LotSizing:     lotSizing,
	}, opts...)
	a.forecaster = forecast.NewForecaster(nil, a.history, opts...)
	a.orders = workorder.NewManager(a.workOrders, opts...)
	a.criticalPath = criticalpath.NewService(a.bomManager, a.items, cfg.Planning.MaxBOMDepth, opts...)
	return a, nil
}

func (a *app) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// persistent reports whether planned orders outlive the process
func (a *app) persistent() bool {
	return a.store != nil
}

// loadScenario imports a CSV scenario. BOMs and routings go through their
// managers so versioning and cycle rules apply to file input too.
func (a *app) loadScenario(ctx context.Context, dir string) error {
	scenario, err := csvloader.NewLoader().LoadScenario(dir)
	if err != nil {
		return err
	}

	if err := a.items.LoadItems(scenario.Items); err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	for _, wc := range scenario.WorkCenters {
		a.workCenters.Save(wc)
	}

	for _, b := range scenario.BOMs {
		created, err := a.bomManager.Create(ctx, b)
		if err != nil {
			return fmt.Errorf("failed to import BOM %s v%d: %w", b.ProductID, b.Version, err)
		}
		if _, err := a.bomManager.Release(ctx, created.ID); err != nil {
			return fmt.Errorf("failed to release BOM %s v%d: %w", b.ProductID, b.Version, err)
		}
	}
	for _, r := range scenario.Routings {
		created, err := a.routingManager.Create(ctx, r)
		if err != nil {
			return fmt.Errorf("failed to import routing %s v%d: %w", r.ProductID, r.Version, err)
		}
		if _, err := a.routingManager.Release(ctx, created.ID); err != nil {
			return fmt.Errorf("failed to release routing %s v%d: %w", r.ProductID, r.Version, err)
		}
	}

	for _, d := range scenario.Demands {
		a.demand.AddDemand(d)
		a.history.Record(d.ProductID, d.Date, d.Quantity)
	}
	for _, r := range scenario.Receipts {
		a.items.AddScheduledReceipt(r)
	}

	a.logger.Info("scenario loaded",
		zap.String("dir", dir),
		zap.Int("items", len(scenario.Items)),
		zap.Int("boms", len(scenario.BOMs)),
		zap.Int("routings", len(scenario.Routings)),
		zap.Int("work_centers", len(scenario.WorkCenters)),
		zap.Int("demands", len(scenario.Demands)),
		zap.Int("receipts", len(scenario.Receipts)))
	return nil
}

// writeMetrics dumps the metrics gathered during the command in the
// Prometheus text format
func (a *app) writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func closeApp(a *app, errp *error) {
	if err := a.Close(); err != nil {
		*errp = errors.Join(*errp, fmt.Errorf("failed to close planned order store: %w", err))
	}
}
