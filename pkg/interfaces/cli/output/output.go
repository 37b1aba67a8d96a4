package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vsinha/batchledger/pkg/application/services/production"
	"github.com/vsinha/batchledger/pkg/application/services/recipegraph"
	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/services"
)

// Supported output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Printer renders command results in one format
type Printer struct {
	Format string
	Out    io.Writer
}

// NewPrinter creates a printer writing to out (stdout when nil)
func NewPrinter(format string, out io.Writer) (*Printer, error) {
	if out == nil {
		out = os.Stdout
	}
	switch format {
	case FormatText, FormatJSON, FormatCSV:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return &Printer{Format: format, Out: out}, nil
}

// writeJSON writes v indented
func (p *Printer) writeJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(p.Out, string(data))
	return err
}

// writeCSV writes a header and rows
func (p *Printer) writeCSV(header []string, rows [][]string) error {
	w := csv.NewWriter(p.Out)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.Out, format, args...)
}

// Message prints a one-line status
func (p *Printer) Message(format string, args ...any) error {
	if p.Format == FormatJSON {
		return p.writeJSON(map[string]string{"message": fmt.Sprintf(format, args...)})
	}
	p.printf(format+"\n", args...)
	return nil
}

// Lots prints inventory lots
func (p *Printer) Lots(lots []*entities.InventoryLot) error {
	header := []string{"lot", "ingredient", "product", "purchased", "remaining", "unit", "cost_per_unit", "acquired", "status"}
	rows := make([][]string, 0, len(lots))
	for _, lot := range lots {
		rows = append(rows, []string{
			fmt.Sprint(lot.ID),
			string(lot.IngredientID),
			string(lot.ProductID),
			lot.QuantityPurchased.String(),
			lot.QuantityRemaining.String(),
			string(lot.Unit),
			lot.CostPerUnit.String(),
			lot.AcquiredAt.Format("2006-01-02"),
			lot.Status().String(),
		})
	}

	switch p.Format {
	case FormatJSON:
		return p.writeJSON(lots)
	case FormatCSV:
		return p.writeCSV(header, rows)
	}

	p.printf("%-6s %-12s %-16s %-10s %-10s %-6s %-10s %-12s %-9s\n",
		"Lot", "Ingredient", "Product", "Purchased", "Remaining", "Unit", "Cost", "Acquired", "Status")
	p.printf("%s\n", strings.Repeat("-", 99))
	for _, r := range rows {
		p.printf("%-6s %-12s %-16s %-10s %-10s %-6s %-10s %-12s %-9s\n",
			r[0], r[1], r[2], r[3], r[4], r[5], r[6], r[7], r[8])
	}
	return nil
}

// Consumption prints the outcome of a consume, depletion or dry run
func (p *Printer) Consumption(result *entities.ConsumptionResult) error {
	if p.Format == FormatJSON {
		return p.writeJSON(result)
	}
	if p.Format == FormatCSV {
		rows := make([][]string, 0, len(result.Breakdown))
		for _, d := range result.Breakdown {
			rows = append(rows, []string{
				fmt.Sprint(d.LotID), d.Quantity.String(), d.LotQuantity.String(), string(d.LotUnit),
				d.CostPerUnit.String(), entities.RoundCost(d.Cost).String(),
			})
		}
		return p.writeCSV([]string{"lot", "quantity", "lot_quantity", "lot_unit", "cost_per_unit", "cost"}, rows)
	}

	mode := "consumed"
	if result.DryRun {
		mode = "would consume"
	}
	p.printf("%s %s %s of %s %s (cost %s)\n",
		result.IngredientID, mode, result.Consumed, result.Requested, result.Unit, entities.RoundCost(result.TotalCost))
	for _, d := range result.Breakdown {
		p.printf("  lot %-6d %10s %-6s @ %-10s = %s\n",
			d.LotID, d.LotQuantity, d.LotUnit, d.CostPerUnit, entities.RoundCost(d.Cost))
	}
	if !result.Satisfied {
		p.printf("  SHORT by %s %s\n", result.Shortfall, result.Unit)
	}
	return nil
}

// Aggregated prints an aggregated ingredient list
func (p *Printer) Aggregated(items []entities.AggregatedIngredient) error {
	if p.Format == FormatJSON {
		return p.writeJSON(items)
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		sources := make([]string, 0, len(item.Sources))
		for _, src := range item.Sources {
			sources = append(sources, string(src.RecipeID))
		}
		rows = append(rows, []string{
			string(item.IngredientID), item.ReportedQuantity().String(), string(item.Unit), strings.Join(sources, ";"),
		})
	}
	if p.Format == FormatCSV {
		return p.writeCSV([]string{"ingredient_id", "quantity", "unit", "sources"}, rows)
	}

	p.printf("%-14s %12s %-8s %s\n", "Ingredient", "Quantity", "Unit", "Sources")
	p.printf("%s\n", strings.Repeat("-", 60))
	for _, r := range rows {
		p.printf("%-14s %12s %-8s %s\n", r[0], r[1], r[2], r[3])
	}
	return nil
}

// Tree prints a recipe component tree
func (p *Printer) Tree(root *recipegraph.TreeNode) error {
	if p.Format != FormatText {
		return p.writeJSON(root)
	}
	var walk func(n *recipegraph.TreeNode, indent string)
	walk = func(n *recipegraph.TreeNode, indent string) {
		p.printf("%s%s (%s) x%s\n", indent, n.RecipeID, n.Name, n.Batches)
		for _, line := range n.Ingredients {
			p.printf("%s  - %s %s %s\n", indent, line.IngredientID, line.Quantity, line.Unit)
		}
		for _, child := range n.Children {
			walk(child, indent+"    ")
		}
	}
	walk(root, "")
	return nil
}

// Validation prints a whole-graph audit
func (p *Printer) Validation(result *services.GraphValidationResult) error {
	if p.Format != FormatText {
		errs := make([]string, 0, len(result.Errors))
		for _, err := range result.Errors {
			errs = append(errs, err.Error())
		}
		return p.writeJSON(map[string]any{
			"valid":       len(result.Errors) == 0,
			"has_cycles":  result.HasCycles,
			"cycle_paths": result.CyclePaths,
			"too_deep":    result.TooDeep,
			"errors":      errs,
		})
	}
	if len(result.Errors) == 0 {
		p.printf("recipe graph is valid\n")
		return nil
	}
	p.printf("recipe graph has %d problem(s):\n", len(result.Errors))
	for _, err := range result.Errors {
		p.printf("  - %v\n", err)
	}
	return nil
}

// Availability prints a can-produce report
func (p *Printer) Availability(report *entities.AvailabilityReport) error {
	if p.Format == FormatJSON {
		return p.writeJSON(report)
	}
	rows := make([][]string, 0, len(report.Ingredients))
	for _, ing := range report.Ingredients {
		rows = append(rows, []string{
			string(ing.IngredientID), string(ing.Unit), ing.Required.String(), ing.Available.String(),
			ing.Shortfall.String(), entities.RoundCost(ing.EstimatedCost).String(),
		})
	}
	if p.Format == FormatCSV {
		return p.writeCSV([]string{"ingredient_id", "unit", "required", "available", "shortfall", "estimated_cost"}, rows)
	}

	verdict := "CAN produce"
	if !report.CanProduce {
		verdict = "CANNOT produce"
	}
	p.printf("%s %s batch(es) of %s, estimated cost %s\n",
		verdict, report.NumBatches, report.RecipeID, entities.RoundCost(report.EstimatedCost))
	p.printf("%-14s %-6s %10s %10s %10s %10s\n", "Ingredient", "Unit", "Required", "Available", "Short", "Cost")
	for _, r := range rows {
		p.printf("%-14s %-6s %10s %10s %10s %10s\n", r[0], r[1], r[2], r[3], r[4], r[5])
	}
	return nil
}

// ProductionResult prints a freshly recorded production
func (p *Printer) ProductionResult(result *entities.ProductionResult) error {
	if p.Format != FormatText {
		return p.writeJSON(result)
	}
	if err := p.productionRecord(&result.Record); err != nil {
		return err
	}
	for i := range result.Consumptions {
		if err := p.Consumption(&result.Consumptions[i]); err != nil {
			return err
		}
	}
	if result.Snapshot != nil {
		p.printf("snapshot %s checksum %s\n", result.Snapshot.ID, result.Snapshot.Checksum)
	}
	return nil
}

// Productions prints stored productions
func (p *Printer) Productions(prods []*production.Production) error {
	if p.Format == FormatJSON {
		return p.writeJSON(prods)
	}
	rows := make([][]string, 0, len(prods))
	for _, prod := range prods {
		rec := prod.Record
		snap := "missing"
		if prod.Snapshot != nil {
			snap = "captured"
			if prod.Snapshot.IsBackfilled {
				snap = "backfilled"
			}
		}
		rows = append(rows, []string{
			string(rec.ID), string(rec.RecipeID), rec.NumBatches.String(), rec.ActualYield.String(),
			entities.RoundCost(rec.IngredientCost).String(), entities.RoundCost(rec.PerUnitCost).String(),
			rec.ProducedAt.Format("2006-01-02 15:04"), snap,
		})
	}
	if p.Format == FormatCSV {
		return p.writeCSV([]string{"id", "recipe_id", "batches", "yield", "cost", "per_unit", "produced_at", "snapshot"}, rows)
	}
	p.printf("%-36s %-14s %8s %8s %10s %10s %-16s %s\n",
		"ID", "Recipe", "Batches", "Yield", "Cost", "PerUnit", "Produced", "Snapshot")
	for _, r := range rows {
		p.printf("%-36s %-14s %8s %8s %10s %10s %-16s %s\n", r[0], r[1], r[2], r[3], r[4], r[5], r[6], r[7])
	}
	return nil
}

func (p *Printer) productionRecord(rec *entities.ProductionRecord) error {
	p.printf("production %s\n", rec.ID)
	p.printf("  recipe:        %s (%s)\n", rec.RecipeID, rec.FinishedUnitID)
	p.printf("  batches:       %s\n", rec.NumBatches)
	p.printf("  yield:         %s of %s expected\n", rec.ActualYield, rec.ExpectedYield)
	p.printf("  cost:          %s\n", entities.RoundCost(rec.IngredientCost))
	p.printf("  per unit:      %s\n", entities.RoundCost(rec.PerUnitCost))
	p.printf("  produced at:   %s\n", rec.ProducedAt.Format("2006-01-02 15:04:05"))
	if rec.Notes != "" {
		p.printf("  notes:         %s\n", rec.Notes)
	}
	return nil
}

// Snapshot prints a stored snapshot with its decoded payload
func (p *Printer) Snapshot(snap *entities.RecipeSnapshot, payload *entities.SnapshotPayload) error {
	if p.Format != FormatText {
		return p.writeJSON(map[string]any{
			"id":            snap.ID,
			"production_id": snap.ProductionID,
			"recipe_id":     snap.RecipeID,
			"checksum":      snap.Checksum,
			"backfilled":    snap.IsBackfilled,
			"captured_at":   snap.CapturedAt,
			"payload":       payload,
		})
	}
	p.printf("snapshot %s of production %s\n", snap.ID, snap.ProductionID)
	p.printf("  recipe:     %s %q x%s\n", payload.Recipe.ID, payload.Recipe.Name, payload.ScaleFactor)
	p.printf("  captured:   %s", snap.CapturedAt.Format("2006-01-02 15:04:05"))
	if snap.IsBackfilled {
		p.printf(" (backfilled)")
	}
	p.printf("\n  checksum:   %s\n", snap.Checksum)
	for _, ing := range payload.Ingredients {
		p.printf("  %-14s %12s %s\n", ing.IngredientID, ing.Quantity, ing.Unit)
	}
	return nil
}

// Snapshots prints snapshot headers
func (p *Printer) Snapshots(snaps []*entities.RecipeSnapshot) error {
	if p.Format == FormatJSON {
		return p.writeJSON(snaps)
	}
	rows := make([][]string, 0, len(snaps))
	for _, s := range snaps {
		rows = append(rows, []string{
			string(s.ID), string(s.ProductionID), string(s.RecipeID), fmt.Sprint(s.IsBackfilled), s.Checksum,
		})
	}
	if p.Format == FormatCSV {
		return p.writeCSV([]string{"id", "production_id", "recipe_id", "backfilled", "checksum"}, rows)
	}
	for _, r := range rows {
		p.printf("%s  production=%s recipe=%s backfilled=%s\n", r[0], r[1], r[2], r[3])
	}
	return nil
}

// ProductionDetail prints a stored production and the lot draws behind it
func (p *Printer) ProductionDetail(prod *production.Production, records []*entities.ConsumptionRecord) error {
	if p.Format == FormatJSON {
		return p.writeJSON(map[string]any{
			"record":       prod.Record,
			"snapshot":     prod.Snapshot,
			"consumptions": records,
		})
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			string(r.IngredientID), fmt.Sprint(r.LotID), r.QuantityConsumed.String(), string(r.Unit),
			r.CostPerUnit.String(), entities.RoundCost(r.Cost()).String(),
		})
	}
	if p.Format == FormatCSV {
		return p.writeCSV([]string{"ingredient_id", "lot", "quantity", "unit", "cost_per_unit", "cost"}, rows)
	}

	if err := p.productionRecord(prod.Record); err != nil {
		return err
	}
	if prod.Snapshot == nil {
		p.printf("  snapshot:      missing\n")
	} else {
		p.printf("  snapshot:      %s\n", prod.Snapshot.ID)
	}
	p.printf("  %-14s %-6s %10s %-6s %10s %10s\n", "Ingredient", "Lot", "Quantity", "Unit", "Cost/Unit", "Cost")
	for _, r := range rows {
		p.printf("  %-14s %-6s %10s %-6s %10s %10s\n", r[0], r[1], r[2], r[3], r[4], r[5])
	}
	return nil
}
