package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/vsinha/mfgplan/pkg/application/services/capacity"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/services"
)

const envPrefix = "MFGPLAN"

type Config struct {
	Planning PlanningConfig `mapstructure:"planning"`
	Capacity CapacityConfig `mapstructure:"capacity"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type PlanningConfig struct {
	MaxBOMDepth   int             `mapstructure:"max_bom_depth"`
	Workers       int             `mapstructure:"workers"`
	LotSizing     LotSizingConfig `mapstructure:"lot_sizing"`
	CheckCapacity bool            `mapstructure:"check_capacity"`
}

type LotSizingConfig struct {
	Rule     string  `mapstructure:"rule"`
	Quantity float64 `mapstructure:"quantity"`
	Periods  int     `mapstructure:"periods"`
}

type CapacityConfig struct {
	BottleneckThreshold float64 `mapstructure:"bottleneck_threshold"`
	BucketDays          int     `mapstructure:"bucket_days"`
	MaxScanDays         int     `mapstructure:"max_scan_days"`
	Calendar            string  `mapstructure:"calendar"`
}

type StorageConfig struct {
	PlannedOrdersPath string `mapstructure:"planned_orders_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path, or from config.yaml in ./configs or the
// working directory when path is empty. MFGPLAN_* environment variables
// override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("planning.max_bom_depth", 32)
	v.SetDefault("planning.workers", 4)
	v.SetDefault("planning.lot_sizing.rule", string(services.RuleLotForLot))
	v.SetDefault("planning.lot_sizing.quantity", 0)
	v.SetDefault("planning.lot_sizing.periods", 1)
	v.SetDefault("planning.check_capacity", false)

	v.SetDefault("capacity.bottleneck_threshold", 1.0)
	v.SetDefault("capacity.bucket_days", 1)
	v.SetDefault("capacity.max_scan_days", 365)
	v.SetDefault("capacity.calendar", "all_days")

	v.SetDefault("storage.planned_orders_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate rejects values the planners cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Planning.MaxBOMDepth <= 0 {
		errs = append(errs, fmt.Errorf("planning.max_bom_depth must be positive, got %d", c.Planning.MaxBOMDepth))
	}
	if c.Planning.Workers <= 0 {
		errs = append(errs, fmt.Errorf("planning.workers must be positive, got %d", c.Planning.Workers))
	}
	if _, err := c.LotSizingStrategy(); err != nil {
		errs = append(errs, fmt.Errorf("planning.lot_sizing: %w", err))
	}
	if c.Capacity.BottleneckThreshold <= 0 {
		errs = append(errs, fmt.Errorf("capacity.bottleneck_threshold must be positive, got %v", c.Capacity.BottleneckThreshold))
	}
	if c.Capacity.BucketDays <= 0 {
		errs = append(errs, fmt.Errorf("capacity.bucket_days must be positive, got %d", c.Capacity.BucketDays))
	}
	if _, err := c.WorkingCalendar(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// LotSizingStrategy builds the configured default lot-sizing strategy
func (c *Config) LotSizingStrategy() (services.LotSizingStrategy, error) {
	return services.NewLotSizingStrategy(
		c.Planning.LotSizing.Rule,
		decimal.NewFromFloat(c.Planning.LotSizing.Quantity),
		c.Planning.LotSizing.Periods,
	)
}

// CapacityPlannerConfig converts the capacity section for the capacity planner
func (c *Config) CapacityPlannerConfig() capacity.Config {
	return capacity.Config{
		BottleneckThreshold: decimal.NewFromFloat(c.Capacity.BottleneckThreshold),
		BucketDays:          c.Capacity.BucketDays,
		MaxScanDays:         c.Capacity.MaxScanDays,
	}
}

// WorkingCalendar resolves capacity.calendar: all_days or weekdays
func (c *Config) WorkingCalendar() (entities.Calendar, error) {
	switch strings.ToLower(c.Capacity.Calendar) {
	case "", "all_days":
		return entities.AllDaysCalendar{}, nil
	case "weekdays":
		return entities.WeekdayCalendar{}, nil
	default:
		return nil, fmt.Errorf("capacity.calendar must be all_days or weekdays, got %q", c.Capacity.Calendar)
	}
}
