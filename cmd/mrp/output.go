package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/application/services/criticalpath"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/services"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatCSV  = "csv"

	dateLayout = "2006-01-02"
	rule       = "────────────────────────────────────────────────────────────────\n"
	banner     = "═══════════════════════════════════════════════════════════════\n"
)

type plannedOrderJSON struct {
	ID                string `json:"id"`
	ProductID         string `json:"product_id"`
	RootProductID     string `json:"root_product_id"`
	ParentProductID   string `json:"parent_product_id,omitempty"`
	Quantity          string `json:"quantity"`
	StartDate         string `json:"start_date"`
	DueDate           string `json:"due_date"`
	ReplenishmentType string `json:"replenishment_type"`
	PastDue           bool   `json:"past_due"`
}

type requirementJSON struct {
	ProductID          string `json:"product_id"`
	Date               string `json:"date"`
	Gross              string `json:"gross"`
	ScheduledReceipts  string `json:"scheduled_receipts"`
	ProjectedAvailable string `json:"projected_available"`
	Net                string `json:"net"`
	Source             string `json:"source"`
}

type capacityIssueJSON struct {
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id"`
	WorkCenterID   string `json:"work_center_id"`
	Date           string `json:"date"`
	RequiredHours  string `json:"required_hours"`
	RemainingHours string `json:"remaining_hours"`
}

type planJSON struct {
	ProductID      string              `json:"product_id"`
	Horizon        string              `json:"horizon"`
	LotSizing      string              `json:"lot_sizing"`
	PlannedOrders  []plannedOrderJSON  `json:"planned_orders"`
	Requirements   []requirementJSON   `json:"requirements"`
	CapacityIssues []capacityIssueJSON `json:"capacity_issues,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
}

type workOrderJSON struct {
	OrderNumber   string `json:"order_number"`
	ProductID     string `json:"product_id"`
	Quantity      string `json:"quantity"`
	Status        string `json:"status"`
	PlannedStart  string `json:"planned_start"`
	PlannedEnd    string `json:"planned_end"`
	SourceOrderID string `json:"source_order_id"`
}

func toPlannedOrderJSON(o *entities.PlannedOrder) plannedOrderJSON {
	return plannedOrderJSON{
		ID:                o.ID,
		ProductID:         string(o.ProductID),
		RootProductID:     string(o.RootProductID),
		ParentProductID:   string(o.ParentProductID),
		Quantity:          o.Quantity.String(),
		StartDate:         o.StartDate.Format(dateLayout),
		DueDate:           o.DueDate.Format(dateLayout),
		ReplenishmentType: o.ReplenishmentType.String(),
		PastDue:           o.PastDue,
	}
}

func toPlanJSON(r *dto.MRPResult) planJSON {
	out := planJSON{
		ProductID:     string(r.ProductID),
		Horizon:       r.Horizon.String(),
		LotSizing:     r.LotSizing,
		PlannedOrders: make([]plannedOrderJSON, 0, len(r.PlannedOrders)),
		Requirements:  make([]requirementJSON, 0, len(r.MaterialRequirements)),
		Warnings:      r.Warnings,
	}
	for _, o := range sortedOrders(r.PlannedOrders) {
		out.PlannedOrders = append(out.PlannedOrders, toPlannedOrderJSON(o))
	}
	for _, req := range r.MaterialRequirements {
		out.Requirements = append(out.Requirements, requirementJSON{
			ProductID:          string(req.ProductID),
			Date:               req.Date.Format(dateLayout),
			Gross:              req.GrossRequirement.String(),
			ScheduledReceipts:  req.ScheduledReceipts.String(),
			ProjectedAvailable: req.ProjectedAvailable.String(),
			Net:                req.NetRequirement.String(),
			Source:             req.Source.String(),
		})
	}
	for _, issue := range r.CapacityIssues {
		out.CapacityIssues = append(out.CapacityIssues, capacityIssueJSON{
			OrderID:        issue.OrderID,
			ProductID:      string(issue.ProductID),
			WorkCenterID:   issue.WorkCenterID,
			Date:           issue.Date.Format(dateLayout),
			RequiredHours:  issue.RequiredHours.String(),
			RemainingHours: issue.RemainingHours.String(),
		})
	}
	return out
}

// sortedOrders orders by start date, then product
func sortedOrders(orders []*entities.PlannedOrder) []*entities.PlannedOrder {
	sorted := make([]*entities.PlannedOrder, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].StartDate.Equal(sorted[j].StartDate) {
			return sorted[i].StartDate.Before(sorted[j].StartDate)
		}
		return sorted[i].ProductID < sorted[j].ProductID
	})
	return sorted
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv output: %w", err)
	}
	return nil
}

func writePlan(w io.Writer, format string, results []*dto.MRPResult, workOrders []*entities.WorkOrder) error {
	switch format {
	case formatJSON:
		out := struct {
			Plans      []planJSON      `json:"plans"`
			WorkOrders []workOrderJSON `json:"work_orders,omitempty"`
		}{Plans: make([]planJSON, 0, len(results))}
		for _, r := range results {
			out.Plans = append(out.Plans, toPlanJSON(r))
		}
		for _, wo := range workOrders {
			out.WorkOrders = append(out.WorkOrders, workOrderJSON{
				OrderNumber:   wo.OrderNumber,
				ProductID:     string(wo.ProductID),
				Quantity:      wo.PlannedQuantity.String(),
				Status:        string(wo.Status),
				PlannedStart:  wo.PlannedStart.Format(dateLayout),
				PlannedEnd:    wo.PlannedEnd.Format(dateLayout),
				SourceOrderID: wo.SourceOrderID,
			})
		}
		return writeJSON(w, out)

	case formatCSV:
		var rows [][]string
		for _, r := range results {
			for _, o := range sortedOrders(r.PlannedOrders) {
				rows = append(rows, []string{
					string(o.RootProductID),
					string(o.ProductID),
					string(o.ParentProductID),
					o.Quantity.String(),
					o.StartDate.Format(dateLayout),
					o.DueDate.Format(dateLayout),
					o.ReplenishmentType.String(),
					strconv.FormatBool(o.PastDue),
				})
			}
		}
		return writeCSV(w, []string{"root_product_id", "product_id", "parent_product_id", "quantity", "start_date", "due_date", "replenishment_type", "past_due"}, rows)
	}

	var b strings.Builder
	b.WriteString(banner)
	b.WriteString("                    MRP PLAN\n")
	b.WriteString(banner)
	for _, r := range results {
		fmt.Fprintf(&b, "\n%s  horizon %s  lot sizing %s\n", r.ProductID, r.Horizon, r.LotSizing)
		fmt.Fprintf(&b, "  Planned Orders: %d  Capacity Issues: %d  Warnings: %d\n",
			len(r.PlannedOrders), len(r.CapacityIssues), len(r.Warnings))
		b.WriteString(rule)
		for _, o := range sortedOrders(r.PlannedOrders) {
			pastDue := ""
			if o.PastDue {
				pastDue = "  PAST DUE"
			}
			fmt.Fprintf(&b, "Part: %-20s Qty: %10s  Start: %s  Due: %s  %-11s%s\n",
				o.ProductID, o.Quantity.String(),
				o.StartDate.Format(dateLayout), o.DueDate.Format(dateLayout),
				o.ReplenishmentType, pastDue)
		}
		for _, issue := range r.CapacityIssues {
			fmt.Fprintf(&b, "Capacity: %s on %s needs %sh at %s, %sh left\n",
				issue.ProductID, issue.Date.Format(dateLayout),
				issue.RequiredHours.StringFixed(2), issue.WorkCenterID, issue.RemainingHours.StringFixed(2))
		}
		for _, warning := range r.Warnings {
			fmt.Fprintf(&b, "Warning: %s\n", warning)
		}
	}
	if len(workOrders) > 0 {
		b.WriteString("\nWORK ORDERS\n")
		b.WriteString(rule)
		for _, wo := range workOrders {
			fmt.Fprintf(&b, "%-24s %-20s Qty: %10s  %s..%s  %s\n",
				wo.OrderNumber, wo.ProductID, wo.PlannedQuantity.String(),
				wo.PlannedStart.Format(dateLayout), wo.PlannedEnd.Format(dateLayout), wo.Status)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeRegeneration(w io.Writer, format string, horizon entities.PlanningHorizon, summary *dto.RegenerationSummary) error {
	failed := make([]string, 0, len(summary.Failures))
	for productID := range summary.Failures {
		failed = append(failed, string(productID))
	}
	sort.Strings(failed)
	regenerated := make([]string, len(summary.Regenerated))
	for i, productID := range summary.Regenerated {
		regenerated[i] = string(productID)
	}

	switch format {
	case formatJSON:
		return writeJSON(w, struct {
			Horizon       string   `json:"horizon"`
			Regenerated   []string `json:"regenerated"`
			Failed        []string `json:"failed"`
			OrdersWritten int      `json:"orders_written"`
		}{horizon.String(), regenerated, failed, summary.OrdersWritten})
	case formatCSV:
		rows := make([][]string, 0, len(regenerated)+len(failed))
		for _, p := range regenerated {
			rows = append(rows, []string{p, "regenerated"})
		}
		for _, p := range failed {
			rows = append(rows, []string{p, "failed"})
		}
		return writeCSV(w, []string{"product_id", "outcome"}, rows)
	}

	_, err := fmt.Fprintf(w, "Regenerated %d product(s) over %s, %d planned order(s) written, %d failed\n",
		len(regenerated), horizon, summary.OrdersWritten, len(failed))
	return err
}

func writeBottlenecks(w io.Writer, format string, bottlenecks []dto.Bottleneck) error {
	utilization := func(b dto.Bottleneck) string {
		if b.NoCapacity {
			return "no capacity"
		}
		return b.Utilization.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
	}

	switch format {
	case formatJSON:
		type bottleneckJSON struct {
			WorkCenterID   string `json:"work_center_id"`
			BucketStart    string `json:"bucket_start"`
			BucketEnd      string `json:"bucket_end"`
			RequiredHours  string `json:"required_hours"`
			AvailableHours string `json:"available_hours"`
			Utilization    string `json:"utilization"`
			NoCapacity     bool   `json:"no_capacity"`
		}
		out := make([]bottleneckJSON, 0, len(bottlenecks))
		for _, b := range bottlenecks {
			out = append(out, bottleneckJSON{
				WorkCenterID:   b.WorkCenterID,
				BucketStart:    b.BucketStart.Format(dateLayout),
				BucketEnd:      b.BucketEnd.Format(dateLayout),
				RequiredHours:  b.RequiredHours.String(),
				AvailableHours: b.AvailableHours.String(),
				Utilization:    b.Utilization.String(),
				NoCapacity:     b.NoCapacity,
			})
		}
		return writeJSON(w, out)
	case formatCSV:
		rows := make([][]string, 0, len(bottlenecks))
		for _, b := range bottlenecks {
			rows = append(rows, []string{
				b.WorkCenterID, b.BucketStart.Format(dateLayout),
				b.RequiredHours.String(), b.AvailableHours.String(), utilization(b),
			})
		}
		return writeCSV(w, []string{"work_center_id", "bucket_start", "required_hours", "available_hours", "utilization"}, rows)
	}

	if len(bottlenecks) == 0 {
		_, err := io.WriteString(w, "No bottlenecks found\n")
		return err
	}
	var b strings.Builder
	b.WriteString("BOTTLENECKS\n")
	b.WriteString(rule)
	for _, bn := range bottlenecks {
		fmt.Fprintf(&b, "%-12s %s  required %8sh  available %8sh  %s\n",
			bn.WorkCenterID, bn.BucketStart.Format(dateLayout),
			bn.RequiredHours.StringFixed(2), bn.AvailableHours.StringFixed(2), utilization(bn))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeExplosion(w io.Writer, format string, bom *entities.BillOfMaterials, quantity decimal.Decimal, lines []dto.ExplodedLine) error {
	switch format {
	case formatJSON:
		type lineJSON struct {
			Level         int    `json:"level"`
			ParentID      string `json:"parent_id"`
			LineNumber    int    `json:"line_number"`
			ProductID     string `json:"product_id"`
			Quantity      string `json:"quantity"`
			UnitOfMeasure string `json:"unit_of_measure"`
		}
		out := struct {
			ProductID  string     `json:"product_id"`
			BOMVersion int        `json:"bom_version"`
			Quantity   string     `json:"quantity"`
			Lines      []lineJSON `json:"lines"`
		}{string(bom.ProductID), bom.Version, quantity.String(), make([]lineJSON, 0, len(lines))}
		for _, l := range lines {
			out.Lines = append(out.Lines, lineJSON{l.Level, string(l.ParentID), l.LineNumber, string(l.ProductID), l.Quantity.String(), l.UnitOfMeasure})
		}
		return writeJSON(w, out)
	case formatCSV:
		rows := make([][]string, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, []string{
				strconv.Itoa(l.Level), string(l.ParentID), strconv.Itoa(l.LineNumber),
				string(l.ProductID), l.Quantity.String(), l.UnitOfMeasure,
			})
		}
		return writeCSV(w, []string{"level", "parent_id", "line_number", "product_id", "quantity", "unit_of_measure"}, rows)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s x%s (BOM v%d, %s)\n", bom.ProductID, quantity, bom.Version, bom.Effectivity)
	for _, l := range lines {
		fmt.Fprintf(&b, "%s%-20s %10s %s\n", strings.Repeat("  ", l.Level), l.ProductID, l.Quantity.String(), l.UnitOfMeasure)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeCriticalPath(w io.Writer, format string, analysis *criticalpath.Analysis) error {
	switch format {
	case formatJSON:
		type pathJSON struct {
			Products          []entities.ProductID `json:"products"`
			TotalLeadTime     int                  `json:"total_lead_time_days"`
			EffectiveLeadTime int                  `json:"effective_lead_time_days"`
			Bottleneck        string               `json:"bottleneck_product_id"`
		}
		out := struct {
			ProductID  string     `json:"product_id"`
			Quantity   string     `json:"quantity"`
			Date       string     `json:"date"`
			TotalPaths int        `json:"total_paths"`
			Paths      []pathJSON `json:"paths"`
		}{string(analysis.ProductID), analysis.Quantity.String(), analysis.Date.Format(dateLayout), analysis.TotalPaths, make([]pathJSON, 0, len(analysis.TopPaths))}
		for _, p := range analysis.TopPaths {
			out.Paths = append(out.Paths, pathJSON{p.Products(), p.TotalLeadTime, p.EffectiveLeadTime, string(p.BottleneckProduct)})
		}
		return writeJSON(w, out)
	case formatCSV:
		rows := make([][]string, 0, len(analysis.TopPaths))
		for i, p := range analysis.TopPaths {
			rows = append(rows, []string{
				strconv.Itoa(i + 1), pathString(p), strconv.Itoa(p.TotalLeadTime),
				strconv.Itoa(p.EffectiveLeadTime), string(p.BottleneckProduct),
			})
		}
		return writeCSV(w, []string{"rank", "path", "total_lead_time_days", "effective_lead_time_days", "bottleneck_product_id"}, rows)
	}

	var b strings.Builder
	b.WriteString(banner)
	fmt.Fprintf(&b, "CRITICAL PATH: %s x%s on %s (%d path(s))\n",
		analysis.ProductID, analysis.Quantity, analysis.Date.Format(dateLayout), analysis.TotalPaths)
	b.WriteString(banner)
	for i, p := range analysis.TopPaths {
		fmt.Fprintf(&b, "%d. %s\n   lead time %d days, effective %d days, bottleneck %s\n",
			i+1, pathString(p), p.TotalLeadTime, p.EffectiveLeadTime, p.BottleneckProduct)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func pathString(p criticalpath.Path) string {
	parts := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		parts[i] = string(n.ProductID)
	}
	return strings.Join(parts, " -> ")
}

func writeForecasts(w io.Writer, format string, forecasts []*entities.DemandForecast) error {
	switch format {
	case formatJSON:
		type forecastJSON struct {
			ProductID  string `json:"product_id"`
			Start      string `json:"start"`
			End        string `json:"end"`
			Quantity   string `json:"quantity"`
			Confidence string `json:"confidence"`
			Source     string `json:"source"`
		}
		out := make([]forecastJSON, 0, len(forecasts))
		for _, f := range forecasts {
			out = append(out, forecastJSON{
				string(f.ProductID), f.Start.Format(dateLayout), f.End.Format(dateLayout),
				f.Quantity.String(), f.Confidence.String(), string(f.Source),
			})
		}
		return writeJSON(w, out)
	case formatCSV:
		rows := make([][]string, 0, len(forecasts))
		for _, f := range forecasts {
			rows = append(rows, []string{
				string(f.ProductID), f.Start.Format(dateLayout), f.End.Format(dateLayout),
				f.Quantity.String(), f.Confidence.String(), string(f.Source),
			})
		}
		return writeCSV(w, []string{"product_id", "start", "end", "quantity", "confidence", "source"}, rows)
	}

	var b strings.Builder
	for _, f := range forecasts {
		fmt.Fprintf(&b, "%-20s %s..%s  %10s  confidence %s  (%s)\n",
			f.ProductID, f.Start.Format(dateLayout), f.End.Format(dateLayout),
			f.Quantity.StringFixed(2), f.Confidence.StringFixed(2), f.Source)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeValidation(w io.Writer, format string, result *services.ValidationResult) error {
	if format == formatJSON {
		return writeJSON(w, struct {
			Valid  bool     `json:"valid"`
			Errors []string `json:"errors"`
		}{result.Valid(), result.Errors})
	}
	if result.Valid() {
		_, err := io.WriteString(w, "All bills of materials are valid\n")
		return err
	}
	var b strings.Builder
	for _, msg := range result.Errors {
		fmt.Fprintf(&b, "ERROR: %s\n", msg)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
