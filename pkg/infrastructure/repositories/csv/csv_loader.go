package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// Scenario file names inside a scenario directory. Items and demands are
// required, the rest are optional.
const (
	ItemsFile       = "items.csv"
	BOMsFile        = "boms.csv"
	WorkCentersFile = "work_centers.csv"
	RoutingsFile    = "routings.csv"
	DemandsFile     = "demands.csv"
	ReceiptsFile    = "receipts.csv"
)

var (
	itemsHeader       = []string{"product_id", "description", "lead_time_days", "safety_stock", "on_hand", "replenishment_type", "unit_of_measure"}
	bomsHeader        = []string{"product_id", "version", "effective_from", "effective_to", "line_number", "component_id", "qty_per", "unit_of_measure"}
	workCentersHeader = []string{"id", "code", "name", "hours_per_day", "efficiency", "capacity_units"}
	routingsHeader    = []string{"product_id", "version", "effective_from", "effective_to", "operation_number", "work_center_id", "description", "setup_minutes", "run_minutes"}
	demandsHeader     = []string{"product_id", "date", "quantity"}
	receiptsHeader    = []string{"product_id", "date", "quantity", "reference"}
)

// Scenario is the planning master data read from a directory of CSV files
type Scenario struct {
	Items       []*entities.Item
	BOMs        []*entities.BillOfMaterials
	WorkCenters []*entities.WorkCenter
	Routings    []*entities.Routing
	Demands     []entities.GrossRequirement
	Receipts    []entities.ScheduledReceipt
}

// Loader handles loading planning data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadScenario reads every scenario file found in dir
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	var (
		s   Scenario
		err error
	)
	if s.Items, err = l.LoadItems(filepath.Join(dir, ItemsFile)); err != nil {
		return nil, err
	}
	if s.Demands, err = l.LoadDemands(filepath.Join(dir, DemandsFile)); err != nil {
		return nil, err
	}
	if s.BOMs, err = optional(l.LoadBOMs(filepath.Join(dir, BOMsFile))); err != nil {
		return nil, err
	}
	if s.WorkCenters, err = optional(l.LoadWorkCenters(filepath.Join(dir, WorkCentersFile))); err != nil {
		return nil, err
	}
	if s.Routings, err = optional(l.LoadRoutings(filepath.Join(dir, RoutingsFile))); err != nil {
		return nil, err
	}
	if s.Receipts, err = optional(l.LoadReceipts(filepath.Join(dir, ReceiptsFile))); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadItems loads the item master
func (l *Loader) LoadItems(filename string) ([]*entities.Item, error) {
	records, err := readTable(filename, "items", itemsHeader)
	if err != nil {
		return nil, err
	}

	var items []*entities.Item
	for i, record := range records {
		item, err := parseItem(record)
		if err != nil {
			return nil, fmt.Errorf("items CSV row %d: %w", i+2, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// LoadBOMs loads BOM lines and groups them into one released BOM per product version
func (l *Loader) LoadBOMs(filename string) ([]*entities.BillOfMaterials, error) {
	records, err := readTable(filename, "BOM", bomsHeader)
	if err != nil {
		return nil, err
	}

	type key struct {
		product entities.ProductID
		version int
	}
	byKey := make(map[key]*entities.BillOfMaterials)
	var order []key
	for i, record := range records {
		product := entities.ProductID(strings.TrimSpace(record[0]))
		version, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: invalid version %q", i+2, record[1])
		}
		eff, err := parseEffectivity(record[2], record[3])
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		lineNumber, err := strconv.Atoi(record[4])
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: invalid line_number %q", i+2, record[4])
		}
		qtyPer, err := decimal.NewFromString(record[6])
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: invalid qty_per %q", i+2, record[6])
		}
		line, err := entities.NewBOMLine(lineNumber, entities.ProductID(strings.TrimSpace(record[5])), qtyPer, record[7])
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}

		k := key{product: product, version: version}
		bom, ok := byKey[k]
		if !ok {
			bom = &entities.BillOfMaterials{
				ProductID:   product,
				Version:     version,
				Status:      entities.StatusReleased,
				Effectivity: *eff,
			}
			byKey[k] = bom
			order = append(order, k)
		} else if bom.Effectivity != *eff {
			return nil, fmt.Errorf("BOM CSV row %d: effectivity of %s v%d differs from earlier rows", i+2, product, version)
		}
		bom.Lines = append(bom.Lines, *line)
	}

	boms := make([]*entities.BillOfMaterials, 0, len(order))
	for _, k := range order {
		boms = append(boms, byKey[k])
	}
	return boms, nil
}

// LoadWorkCenters loads active work centers
func (l *Loader) LoadWorkCenters(filename string) ([]*entities.WorkCenter, error) {
	records, err := readTable(filename, "work centers", workCentersHeader)
	if err != nil {
		return nil, err
	}

	var workCenters []*entities.WorkCenter
	for i, record := range records {
		hours, err := decimal.NewFromString(record[3])
		if err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: invalid hours_per_day %q", i+2, record[3])
		}
		efficiency, err := decimal.NewFromString(record[4])
		if err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: invalid efficiency %q", i+2, record[4])
		}
		units, err := strconv.Atoi(record[5])
		if err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: invalid capacity_units %q", i+2, record[5])
		}
		wc, err := entities.NewWorkCenter(strings.TrimSpace(record[0]), record[1], hours, efficiency, units)
		if err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: %w", i+2, err)
		}
		wc.Name = record[2]
		workCenters = append(workCenters, wc)
	}
	return workCenters, nil
}

// LoadRoutings loads operations and groups them into one released routing per product version
func (l *Loader) LoadRoutings(filename string) ([]*entities.Routing, error) {
	records, err := readTable(filename, "routings", routingsHeader)
	if err != nil {
		return nil, err
	}

	type key struct {
		product entities.ProductID
		version int
	}
	byKey := make(map[key]*entities.Routing)
	var order []key
	for i, record := range records {
		product := entities.ProductID(strings.TrimSpace(record[0]))
		version, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: invalid version %q", i+2, record[1])
		}
		eff, err := parseEffectivity(record[2], record[3])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: %w", i+2, err)
		}
		number, err := strconv.Atoi(record[4])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: invalid operation_number %q", i+2, record[4])
		}
		setup, err := decimal.NewFromString(record[7])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: invalid setup_minutes %q", i+2, record[7])
		}
		run, err := decimal.NewFromString(record[8])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: invalid run_minutes %q", i+2, record[8])
		}
		op, err := entities.NewOperation(number, strings.TrimSpace(record[5]), record[6], entities.OperationProduction, setup, run)
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: %w", i+2, err)
		}

		k := key{product: product, version: version}
		routing, ok := byKey[k]
		if !ok {
			routing = &entities.Routing{
				ProductID:   product,
				Version:     version,
				Status:      entities.StatusReleased,
				Effectivity: *eff,
			}
			byKey[k] = routing
			order = append(order, k)
		}
		routing.Operations = append(routing.Operations, *op)
	}

	routings := make([]*entities.Routing, 0, len(order))
	for _, k := range order {
		routing := byKey[k]
		routing.SortOperations()
		routings = append(routings, routing)
	}
	return routings, nil
}

// LoadDemands loads independent gross requirements
func (l *Loader) LoadDemands(filename string) ([]entities.GrossRequirement, error) {
	records, err := readTable(filename, "demands", demandsHeader)
	if err != nil {
		return nil, err
	}

	var demands []entities.GrossRequirement
	for i, record := range records {
		date, quantity, err := parseDatedQuantity(record[1], record[2])
		if err != nil {
			return nil, fmt.Errorf("demands CSV row %d: %w", i+2, err)
		}
		req, err := entities.NewGrossRequirement(entities.ProductID(strings.TrimSpace(record[0])), date, quantity)
		if err != nil {
			return nil, fmt.Errorf("demands CSV row %d: %w", i+2, err)
		}
		demands = append(demands, *req)
	}
	sort.SliceStable(demands, func(i, j int) bool { return demands[i].Date.Before(demands[j].Date) })
	return demands, nil
}

// LoadReceipts loads scheduled receipts of released supply
func (l *Loader) LoadReceipts(filename string) ([]entities.ScheduledReceipt, error) {
	records, err := readTable(filename, "receipts", receiptsHeader)
	if err != nil {
		return nil, err
	}

	var receipts []entities.ScheduledReceipt
	for i, record := range records {
		date, quantity, err := parseDatedQuantity(record[1], record[2])
		if err != nil {
			return nil, fmt.Errorf("receipts CSV row %d: %w", i+2, err)
		}
		receipt, err := entities.NewScheduledReceipt(entities.ProductID(strings.TrimSpace(record[0])), date, quantity, record[3])
		if err != nil {
			return nil, fmt.Errorf("receipts CSV row %d: %w", i+2, err)
		}
		receipts = append(receipts, *receipt)
	}
	return receipts, nil
}

// Helper functions for parsing CSV records

// readTable returns the data rows of a CSV file after checking its header
func readTable(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(expectedHeader)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, records[0])
	}
	return records[1:], nil
}

// optional turns a missing file into an empty result
func optional[T any](values []T, err error) ([]T, error) {
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return values, err
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseItem(record []string) (*entities.Item, error) {
	leadTime, err := strconv.Atoi(record[2])
	if err != nil {
		return nil, fmt.Errorf("invalid lead_time_days: %s", record[2])
	}
	safetyStock, err := decimal.NewFromString(record[3])
	if err != nil {
		return nil, fmt.Errorf("invalid safety_stock: %s", record[3])
	}
	onHand, err := decimal.NewFromString(record[4])
	if err != nil {
		return nil, fmt.Errorf("invalid on_hand: %s", record[4])
	}
	replenishment, err := entities.ParseReplenishmentType(strings.TrimSpace(record[5]))
	if err != nil {
		return nil, err
	}

	item, err := entities.NewItem(entities.ProductID(strings.TrimSpace(record[0])), leadTime, safetyStock, onHand, replenishment)
	if err != nil {
		return nil, err
	}
	item.Description = record[1]
	if uom := strings.TrimSpace(record[6]); uom != "" {
		item.UnitOfMeasure = uom
	}
	return item, nil
}

func parseEffectivity(from, to string) (*entities.Effectivity, error) {
	fromDate, err := parseDate(from)
	if err != nil {
		return nil, fmt.Errorf("invalid effective_from: %w", err)
	}
	var toDate time.Time
	if strings.TrimSpace(to) != "" {
		if toDate, err = parseDate(to); err != nil {
			return nil, fmt.Errorf("invalid effective_to: %w", err)
		}
	}
	return entities.NewEffectivity(fromDate, toDate)
}

func parseDatedQuantity(dateStr, quantityStr string) (time.Time, decimal.Decimal, error) {
	date, err := parseDate(dateStr)
	if err != nil {
		return time.Time{}, decimal.Zero, err
	}
	quantity, err := decimal.NewFromString(strings.TrimSpace(quantityStr))
	if err != nil {
		return time.Time{}, decimal.Zero, fmt.Errorf("invalid quantity: %s", quantityStr)
	}
	return date, quantity, nil
}

func parseDate(s string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", s)
	}
	return date, nil
}
