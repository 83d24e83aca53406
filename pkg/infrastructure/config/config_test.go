package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/services"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Planning.MaxBOMDepth)
	assert.Equal(t, 4, cfg.Planning.Workers)
	assert.Equal(t, "lot_for_lot", cfg.Planning.LotSizing.Rule)
	assert.Equal(t, 1, cfg.Planning.LotSizing.Periods)
	assert.False(t, cfg.Planning.CheckCapacity)
	assert.Equal(t, 1.0, cfg.Capacity.BottleneckThreshold)
	assert.Equal(t, 1, cfg.Capacity.BucketDays)
	assert.Equal(t, 365, cfg.Capacity.MaxScanDays)
	assert.Equal(t, "all_days", cfg.Capacity.Calendar)
	assert.Empty(t, cfg.Storage.PlannedOrdersPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	strategy, err := cfg.LotSizingStrategy()
	require.NoError(t, err)
	assert.Equal(t, services.LotForLot{}, strategy)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
planning:
  workers: 8
  check_capacity: true
  lot_sizing:
    rule: fixed_order_quantity
    quantity: 50
capacity:
  bottleneck_threshold: 0.85
  calendar: weekdays
storage:
  planned_orders_path: /var/lib/mfgplan/plan.db
log:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Planning.Workers)
	assert.Equal(t, 32, cfg.Planning.MaxBOMDepth)
	assert.True(t, cfg.Planning.CheckCapacity)
	assert.Equal(t, "/var/lib/mfgplan/plan.db", cfg.Storage.PlannedOrdersPath)
	assert.Equal(t, "json", cfg.Log.Format)

	strategy, err := cfg.LotSizingStrategy()
	require.NoError(t, err)
	assert.Equal(t, string(services.RuleFixedOrderQuantity), strategy.Name())

	capCfg := cfg.CapacityPlannerConfig()
	assert.Equal(t, "0.85", capCfg.BottleneckThreshold.String())
	assert.Equal(t, 1, capCfg.BucketDays)

	calendar, err := cfg.WorkingCalendar()
	require.NoError(t, err)
	assert.IsType(t, entities.WeekdayCalendar{}, calendar)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "planning:\n  workers: 8\n")
	t.Setenv("MFGPLAN_PLANNING_WORKERS", "2")
	t.Setenv("MFGPLAN_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Planning.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero workers", body: "planning:\n  workers: 0\n"},
		{name: "unknown lot sizing rule", body: "planning:\n  lot_sizing:\n    rule: eoq\n"},
		{name: "fixed quantity without quantity", body: "planning:\n  lot_sizing:\n    rule: fixed_order_quantity\n"},
		{name: "negative threshold", body: "capacity:\n  bottleneck_threshold: -1\n"},
		{name: "unknown calendar", body: "capacity:\n  calendar: lunar\n"},
		{name: "unknown log format", body: "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})
}
