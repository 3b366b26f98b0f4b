package plan

import (
	"errors"
	"sort"
	"strings"
)

// ChemicalRow is one chemical entry from either the main plan list or the
// BOM-creation modal. Rate is per 1000 L of water.
type ChemicalRow struct {
	Name            string  `json:"chemical"`
	Rate            float64 `json:"application_rate"`
	UOM             string  `json:"uom"`
	SourceWarehouse string  `json:"source_warehouse,omitempty"`
}

// CollectFinal merges the plan rows and modal rows into the final line-item
// list: names are trimmed, rows without a name or with a non-positive rate
// are dropped. Duplicate names stay distinct line items; deduplication
// happens only when deriving the stock-query name set.
func CollectFinal(planRows, modalRows []ChemicalRow) []ChemicalRow {
	merged := make([]ChemicalRow, 0, len(planRows)+len(modalRows))
	for _, row := range append(append([]ChemicalRow{}, planRows...), modalRows...) {
		row.Name = strings.TrimSpace(row.Name)
		if row.Name == "" || row.Rate <= 0 {
			continue
		}
		merged = append(merged, row)
	}
	return merged
}

// UniqueNames derives the deduplicated chemical name set for the stock
// query, preserving first-seen order.
func UniqueNames(rows []ChemicalRow) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// StockSummary annotates one chemical with its availability across
// warehouses and the currently chosen source.
type StockSummary struct {
	Chemical        string             `json:"chemical"`
	ByWarehouse     map[string]float64 `json:"by_warehouse"`
	Total           float64            `json:"total"`
	Insufficient    bool               `json:"insufficient"`
	SourceWarehouse string             `json:"source_warehouse,omitempty"`
}

// SummarizeStock folds per-warehouse balances into totals, flagging
// chemicals with zero stock anywhere as insufficient. chosenSource supplies
// the cached warehouse choice per chemical (may return ""). Results are
// sorted by chemical name.
func SummarizeStock(balances map[string]map[string]float64, chosenSource func(chemical string) string) []StockSummary {
	names := make([]string, 0, len(balances))
	for name := range balances {
		names = append(names, name)
	}
	sort.Strings(names)

	summaries := make([]StockSummary, 0, len(names))
	for _, name := range names {
		summary := StockSummary{
			Chemical:    name,
			ByWarehouse: balances[name],
		}
		for _, qty := range balances[name] {
			summary.Total += qty
		}
		summary.Insufficient = summary.Total == 0
		if chosenSource != nil {
			summary.SourceWarehouse = chosenSource(name)
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// ErrIncompleteChemicalRows blocks submission when any row is missing a
// name, UOM, positive rate, or chosen source warehouse. One aggregate
// message covers all failing rows.
var ErrIncompleteChemicalRows = errors.New("all chemical rows must have a valid item name, rate, UoM, and source warehouse")

// ValidateForSubmission checks every row for submission readiness.
func ValidateForSubmission(rows []ChemicalRow) error {
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" || row.UOM == "" || row.Rate <= 0 || row.SourceWarehouse == "" {
			return ErrIncompleteChemicalRows
		}
	}
	return nil
}
