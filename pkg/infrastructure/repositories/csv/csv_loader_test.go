package csv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_LoadScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ItemsFile, `product_id,description,lead_time_days,safety_stock,on_hand,replenishment_type,unit_of_measure
P,Pump assembly,7,0,0,manufacture,EA
C,Casing,0,5,20,purchase,
`)
	writeFile(t, dir, BOMsFile, `product_id,version,effective_from,effective_to,line_number,component_id,qty_per,unit_of_measure
P,1,2024-01-01,,20,S,4,EA
P,1,2024-01-01,,10,C,2,EA
`)
	writeFile(t, dir, WorkCentersFile, `id,code,name,hours_per_day,efficiency,capacity_units
WC1,ASSY,Assembly,8,0.9,2
`)
	writeFile(t, dir, RoutingsFile, `product_id,version,effective_from,effective_to,operation_number,work_center_id,description,setup_minutes,run_minutes
P,1,2024-01-01,2025-01-01,20,WC1,Test,0,5
P,1,2024-01-01,2025-01-01,10,WC1,Assemble,30,12
`)
	writeFile(t, dir, DemandsFile, `product_id,date,quantity
P,2024-01-20,50
P,2024-01-15,100
`)

	scenario, err := NewLoader().LoadScenario(dir)
	require.NoError(t, err)

	require.Len(t, scenario.Items, 2)
	assert.Equal(t, entities.Manufacture, scenario.Items[0].ReplenishmentType)
	assert.Equal(t, "Pump assembly", scenario.Items[0].Description)
	assert.Equal(t, "EA", scenario.Items[1].UnitOfMeasure)
	assert.True(t, scenario.Items[1].SafetyStock.Equal(decimal.NewFromInt(5)))

	require.Len(t, scenario.BOMs, 1)
	bom := scenario.BOMs[0]
	assert.Equal(t, entities.StatusReleased, bom.Status)
	assert.True(t, bom.Effectivity.OpenEnded())
	require.Len(t, bom.Lines, 2)
	assert.Equal(t, 10, bom.SortedLines()[0].LineNumber)

	require.Len(t, scenario.WorkCenters, 1)
	assert.Equal(t, "Assembly", scenario.WorkCenters[0].Name)
	assert.True(t, scenario.WorkCenters[0].DailyAvailableHours().Equal(decimal.RequireFromString("14.4")))

	require.Len(t, scenario.Routings, 1)
	assert.Equal(t, 10, scenario.Routings[0].Operations[0].OperationNumber)
	assert.Equal(t, entities.MustDate("2025-01-01"), scenario.Routings[0].Effectivity.To)

	require.Len(t, scenario.Demands, 2)
	assert.Equal(t, entities.MustDate("2024-01-15"), scenario.Demands[0].Date)
	assert.Empty(t, scenario.Receipts)
}

func TestLoader_RequiredFilesAndErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewLoader().LoadScenario(dir)
	assert.ErrorIs(t, err, os.ErrNotExist)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"header mismatch", "product,date,quantity\nP,2024-01-01,1\n", "header mismatch"},
		{"no rows", "product_id,date,quantity\n", "at least one data row"},
		{"bad date", "product_id,date,quantity\nP,01/02/2024,1\n", "row 2"},
		{"bad quantity", "product_id,date,quantity\nP,2024-01-01,lots\n", "invalid quantity"},
		{"wrong column count", "product_id,date,quantity\nP,2024-01-01\n", "failed to read demands CSV"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), DemandsFile, tt.content)
			_, err := NewLoader().LoadDemands(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoader_LoadBOMsRejectsInconsistentEffectivity(t *testing.T) {
	path := writeFile(t, t.TempDir(), BOMsFile, `product_id,version,effective_from,effective_to,line_number,component_id,qty_per,unit_of_measure
P,1,2024-01-01,,10,C,2,EA
P,1,2024-02-01,,20,S,1,EA
`)
	_, err := NewLoader().LoadBOMs(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "effectivity")
}

func TestLoader_LoadReceipts(t *testing.T) {
	path := writeFile(t, t.TempDir(), ReceiptsFile, `product_id,date,quantity,reference
C,2024-01-10,30,PO-1001
`)
	receipts, err := NewLoader().LoadReceipts(path)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "PO-1001", receipts[0].Reference)
	assert.True(t, receipts[0].Quantity.Equal(decimal.NewFromInt(30)))
}
