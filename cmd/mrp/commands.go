package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var createWorkOrders bool

	cmd := &cobra.Command{
		Use:   "plan [PRODUCT...]",
		Short: "Calculate planned orders without storing them",
		Long: `Run MRP for the given products, or for every product with independent
demand when none are given. Each product is planned on its own; a failing
product is reported and does not stop the others.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app, horizon entities.PlanningHorizon) error {
				products := make([]entities.ProductID, len(args))
				for i, arg := range args {
					products[i] = entities.ProductID(arg)
				}
				if len(products) == 0 {
					scheduled, err := a.demand.GetMasterScheduledProducts(ctx)
					if err != nil {
						return err
					}
					products = scheduled
				}

				batch := a.engine.CalculateMultiple(ctx, products, horizon)
				results := make([]*dto.MRPResult, 0, len(batch.Results))
				for _, productID := range products {
					if result, ok := batch.Results[productID]; ok {
						results = append(results, result)
					}
				}

				var created []*entities.WorkOrder
				if createWorkOrders {
					var err error
					if created, err = releaseWorkOrders(ctx, a, results); err != nil {
						return err
					}
				}

				if err := writePlan(cmd.OutOrStdout(), opts.format, results, created); err != nil {
					return err
				}
				return batchError(batch.Failures)
			})
		},
	}
	cmd.Flags().BoolVar(&createWorkOrders, "work-orders", false, "create and release work orders for planned manufacture orders")
	return cmd
}

func newRegenerateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Replan every demanded product and replace its stored planned orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app, horizon entities.PlanningHorizon) error {
				summary, err := a.engine.Regenerate(ctx, horizon)
				if err != nil {
					return err
				}
				if err := writeRegeneration(cmd.OutOrStdout(), opts.format, horizon, summary); err != nil {
					return err
				}
				return batchError(summary.Failures)
			})
		},
	}
}

func newBottlenecksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bottlenecks",
		Short: "Report work center buckets loaded at or above the bottleneck threshold",
		Long: `Compare the load of the stored planned orders with work center availability.
Without a persistent planned order store the scenario is regenerated in memory first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app, horizon entities.PlanningHorizon) error {
				if !a.persistent() {
					summary, err := a.engine.Regenerate(ctx, horizon)
					if err != nil {
						return err
					}
					if err := batchError(summary.Failures); err != nil {
						a.logger.Warn("bottlenecks exclude products that failed to plan", zap.Error(err))
					}
				}
				bottlenecks, err := a.planner.IdentifyBottlenecks(ctx, horizon)
				if err != nil {
					return err
				}
				return writeBottlenecks(cmd.OutOrStdout(), opts.format, bottlenecks)
			})
		},
	}
}

func newExplodeCmd(opts *rootOptions) *cobra.Command {
	var (
		quantity string
		date     string
	)

	cmd := &cobra.Command{
		Use:   "explode PRODUCT",
		Short: "Flatten the effective BOM of a product into its multi-level components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := decimal.NewFromString(quantity)
			if err != nil {
				return fmt.Errorf("invalid --quantity %q: %w", quantity, err)
			}
			return opts.run(cmd, func(ctx context.Context, a *app, horizon entities.PlanningHorizon) error {
				at := horizon.Start
				if date != "" {
					if at, err = time.Parse(dateLayout, date); err != nil {
						return fmt.Errorf("invalid --date %q: %w", date, err)
					}
				}
				productID := entities.ProductID(args[0])
				bom, err := a.bomManager.GetEffective(ctx, productID, at)
				if err != nil {
					return err
				}
				lines, err := a.bomManager.ExplodeAt(ctx, bom.ID, qty, at)
				if err != nil {
					return err
				}
				return writeExplosion(cmd.OutOrStdout(), opts.format, bom, qty, lines)
			})
		},
	}
	cmd.Flags().StringVarP(&quantity, "quantity", "q", "1", "quantity of the top-level product")
	cmd.Flags().StringVar(&date, "date", "", "effectivity date YYYY-MM-DD (default horizon start)")
	return cmd
}

func newCriticalPathCmd(opts *rootOptions) *cobra.Command {
	var (
		quantity string
		date     string
		top      int
	)

	cmd := &cobra.Command{
		Use:   "critical-path PRODUCT",
		Short: "Rank the BOM paths of a product by cumulative lead time",
		Long: `Walk the effective BOM of a product and rank every path from it down to a
leaf component by cumulative lead time. Stock on hand shortens the lead time of
the components it covers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := decimal.NewFromString(quantity)
			if err != nil {
				return fmt.Errorf("invalid --quantity %q: %w", quantity, err)
			}
			return opts.run(cmd, func(ctx context.Context, a *app, horizon entities.PlanningHorizon) error {
				at := horizon.Start
				if date != "" {
					if at, err = time.Parse(dateLayout, date); err != nil {
						return fmt.Errorf("invalid --date %q: %w", date, err)
					}
				}
				analysis, err := a.criticalPath.Analyze(ctx, entities.ProductID(args[0]), qty, at, top)
				if err != nil {
					return err
				}
				return writeCriticalPath(cmd.OutOrStdout(), opts.format, analysis)
			})
		},
	}
	cmd.Flags().StringVarP(&quantity, "quantity", "q", "1", "quantity of the top-level product")
	cmd.Flags().StringVar(&date, "date", "", "effectivity date YYYY-MM-DD (default horizon start)")
	cmd.Flags().IntVar(&top, "top", 5, "number of paths to report")
	return cmd
}

func newForecastCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "forecast PRODUCT...",
		Short: "Forecast demand over the horizon from the scenario's demand history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app, horizon entities.PlanningHorizon) error {
				products := make([]entities.ProductID, len(args))
				for i, arg := range args {
					products[i] = entities.ProductID(arg)
				}
				forecasts, forecastErr := a.forecaster.ForecastMultiple(ctx, products, horizon.Start, horizon.End)
				ordered := make([]*entities.DemandForecast, 0, len(forecasts))
				for _, productID := range products {
					if f, ok := forecasts[productID]; ok {
						ordered = append(ordered, f)
					}
				}
				if err := writeForecasts(cmd.OutOrStdout(), opts.format, ordered); err != nil {
					return err
				}
				return forecastErr
			})
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every BOM of the scenario for cycles and duplicate lines or versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app, _ entities.PlanningHorizon) error {
				items, err := a.items.GetAllItems(ctx)
				if err != nil {
					return err
				}
				products := make([]entities.ProductID, len(items))
				for i, item := range items {
					products[i] = item.ProductID
				}
				result, err := a.bomManager.ValidateProducts(ctx, products)
				if err != nil {
					return err
				}
				if err := writeValidation(cmd.OutOrStdout(), opts.format, result); err != nil {
					return err
				}
				if !result.Valid() {
					return errors.New("bill of materials validation failed")
				}
				return nil
			})
		},
	}
}

// releaseWorkOrders turns the planned manufacture orders into released work orders
func releaseWorkOrders(ctx context.Context, a *app, results []*dto.MRPResult) ([]*entities.WorkOrder, error) {
	var created []*entities.WorkOrder
	for _, result := range results {
		for _, planned := range result.PlannedOrders {
			if planned.ReplenishmentType != entities.Manufacture {
				continue
			}
			wo, err := a.orders.CreateFromPlannedOrder(ctx, planned)
			if err != nil {
				return nil, err
			}
			if wo, err = a.orders.Release(ctx, wo.ID); err != nil {
				return nil, err
			}
			created = append(created, wo)
		}
	}
	return created, nil
}

// batchError joins per-product failures in product order
func batchError(failures map[entities.ProductID]error) error {
	if len(failures) == 0 {
		return nil
	}
	products := make([]entities.ProductID, 0, len(failures))
	for productID := range failures {
		products = append(products, productID)
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })

	errs := make([]error, 0, len(products))
	for _, productID := range products {
		errs = append(errs, fmt.Errorf("%s: %w", productID, failures[productID]))
	}
	return fmt.Errorf("%d product(s) failed to plan: %w", len(products), errors.Join(errs...))
}
