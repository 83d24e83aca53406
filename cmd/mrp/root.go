package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/config"
	"github.com/vsinha/mfgplan/pkg/infrastructure/logging"
)

const defaultHorizonDays = 90

// rootOptions are the flags shared by every subcommand
type rootOptions struct {
	configPath  string
	scenarioDir string
	from        string
	to          string
	format      string
	metricsFile string

	// now is replaceable in tests
	now func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{now: time.Now}

	cmd := &cobra.Command{
		Use:   "mrp",
		Short: "Material requirements planning over a CSV scenario",
		Long: `mrp loads planning master data from a directory of CSV files and runs
material requirements planning, capacity analysis and demand forecasting
against it.

SCENARIO FILES:
  items.csv          item master (required)
  demands.csv        independent demand (required)
  boms.csv           bill of materials versions
  work_centers.csv   work centers
  routings.csv       routing versions
  receipts.csv       scheduled receipts

EXAMPLES:
  # Plan every demanded product for the next 90 days
  mrp plan --scenario ./scenario

  # Plan one product over an explicit horizon as JSON
  mrp plan PUMP --scenario ./scenario --from 2024-01-01 --to 2024-03-31 --format json

  # Store the plan and report overloaded work centers
  MFGPLAN_STORAGE_PLANNED_ORDERS_PATH=plan.db mrp regenerate --scenario ./scenario
  mrp bottlenecks --scenario ./scenario --config mrp.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file (default ./configs/config.yaml or ./config.yaml)")
	flags.StringVarP(&opts.scenarioDir, "scenario", "s", "", "directory containing the scenario CSV files")
	flags.StringVar(&opts.from, "from", "", "horizon start date YYYY-MM-DD (default today)")
	flags.StringVar(&opts.to, "to", "", fmt.Sprintf("horizon end date YYYY-MM-DD (default start + %d days)", defaultHorizonDays))
	flags.StringVarP(&opts.format, "format", "f", "text", "output format: text, json or csv")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics of the run to this file")
	_ = cmd.MarkPersistentFlagRequired("scenario")

	cmd.AddCommand(
		newPlanCmd(opts),
		newRegenerateCmd(opts),
		newBottlenecksCmd(opts),
		newExplodeCmd(opts),
		newCriticalPathCmd(opts),
		newForecastCmd(opts),
		newValidateCmd(opts),
	)
	return cmd
}

// horizon resolves --from and --to
func (o *rootOptions) horizon() (entities.PlanningHorizon, error) {
	start := entities.DateOf(o.now())
	if o.from != "" {
		parsed, err := time.Parse("2006-01-02", o.from)
		if err != nil {
			return entities.PlanningHorizon{}, fmt.Errorf("invalid --from date %q: %w", o.from, err)
		}
		start = parsed
	}
	end := start.AddDate(0, 0, defaultHorizonDays)
	if o.to != "" {
		parsed, err := time.Parse("2006-01-02", o.to)
		if err != nil {
			return entities.PlanningHorizon{}, fmt.Errorf("invalid --to date %q: %w", o.to, err)
		}
		end = parsed
	}
	return entities.NewPlanningHorizon(start, end)
}

// run loads configuration and the scenario, then hands the wired services to fn
func (o *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app, horizon entities.PlanningHorizon) error) (err error) {
	switch o.format {
	case formatText, formatJSON, formatCSV:
	default:
		return fmt.Errorf("unsupported output format: %s", o.format)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	horizon, err := o.horizon()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	if err := a.loadScenario(ctx, o.scenarioDir); err != nil {
		return err
	}

	logger.Debug("running command",
		zap.String("command", cmd.Name()),
		zap.Stringer("horizon", horizon))
	if err := fn(ctx, a, horizon); err != nil {
		return err
	}
	return a.writeMetrics(o.metricsFile)
}
