package plan

import (
	"strings"

	"github.com/upande/sprayplan/services/api/erp"
	"github.com/upande/sprayplan/services/api/scouting"
)

// Alert classes a cell can carry. Exactly one applies at a time.
const (
	AlertNone     = "none"
	AlertLow      = "low"
	AlertModerate = "moderate"
	AlertHigh     = "high"
)

// Cell statuses distinguishing a cell whose observations were all filtered
// out from a cell that never had any.
const (
	StatusObserved = "observed"
	StatusFiltered = "filtered"
	StatusEmpty    = "empty"
)

// typeTaxonomy maps raw scouting-entry keys onto the susceptibility
// taxonomy. Unknown keys fall back to stripping the entry suffix.
var typeTaxonomy = map[string]string{
	"diseases_scouting_entry":       "disease",
	"pests_scouting_entry":          "pest",
	"weeds_scouting_entry":          "weed",
	"physiological_disorders_entry": "physiological_disorder",
	"incidents_scouting_entry":      "incident",
}

func taxonomyType(rawType string) string {
	if mapped, ok := typeTaxonomy[rawType]; ok {
		return mapped
	}
	return strings.TrimSuffix(rawType, "_scouting_entry")
}

var alertRank = map[string]int{
	AlertLow:      1,
	AlertModerate: 2,
	AlertHigh:     3,
}

var alertByRank = [...]string{AlertNone, AlertLow, AlertModerate, AlertHigh}

// Filters holds the active selection for every filterable dimension.
type Filters struct {
	ObservationsByType map[string][]string `json:"observations_by_type"`
	Stages             []string            `json:"stages"`
	Sections           []string            `json:"sections"`
	Requirements       []string            `json:"requirements"`
	Variety            string              `json:"variety"`
}

// CellResult is the classification outcome for one grid cell.
type CellResult struct {
	Bed          int                    `json:"bed"`
	Zone         int                    `json:"zone"`
	Status       string                 `json:"status"`
	Alert        string                 `json:"alert"`
	Observations []scouting.Observation `json:"observations"`
	// Hidden carries the full bucket when every observation was filtered
	// out, preserving the "present but not in active filters" tooltip.
	Hidden []scouting.Observation `json:"hidden,omitempty"`
}

// Engine classifies grid cells against active filters and per-variety
// susceptibility requirements.
type Engine struct {
	index          scouting.Index
	susceptibility []erp.SusceptibilityRecord
}

// NewEngine builds an engine over an observation index and susceptibility
// data. Both are read-only to the engine.
func NewEngine(index scouting.Index, susceptibility []erp.SusceptibilityRecord) *Engine {
	return &Engine{index: index, susceptibility: susceptibility}
}

// Classify computes the visible observations and alert class for one cell.
func (e *Engine) Classify(bed, zone int, f Filters) CellResult {
	bucket := e.index[scouting.CellKey(bed, zone)]

	result := CellResult{Bed: bed, Zone: zone, Status: StatusEmpty, Alert: AlertNone}

	stageActive := toSet(f.Stages)
	sectionActive := toSet(f.Sections)
	requirementActive := toSet(f.Requirements)

	highest := 0
	for _, obs := range bucket {
		if !contains(f.ObservationsByType[obs.Type], obs.Name) {
			continue
		}
		if obs.Stage != scouting.SentinelNA {
			if _, ok := stageActive[obs.Stage]; !ok {
				continue
			}
		}
		if obs.PlantSection != scouting.SentinelNA {
			if _, ok := sectionActive[obs.PlantSection]; !ok {
				continue
			}
		}

		result.Observations = append(result.Observations, obs)

		level := e.requirementLevel(obs, f.Variety)
		if level == "" {
			continue
		}
		if _, ok := requirementActive[level]; !ok {
			continue
		}
		if rank := alertRank[level]; rank > highest {
			highest = rank
		}
	}

	result.Alert = alertByRank[highest]

	switch {
	case len(result.Observations) > 0:
		result.Status = StatusObserved
	case len(bucket) > 0:
		result.Status = StatusFiltered
		result.Hidden = bucket
	}
	return result
}

// ClassifyAll classifies every cell of a layout in draw order.
func (e *Engine) ClassifyAll(layout scouting.Layout, f Filters) []CellResult {
	cells := layout.Cells()
	results := make([]CellResult, 0, len(cells))
	for _, cell := range cells {
		results = append(results, e.Classify(cell.Bed, cell.Zone, f))
	}
	return results
}

// requirementLevel looks up the selected variety's susceptibility
// requirement for an observation. Empty means no requirement: no record,
// no variety selected, or the variety's level is "unknown".
func (e *Engine) requirementLevel(obs scouting.Observation, variety string) string {
	if variety == "" {
		return ""
	}
	cleanType := taxonomyType(obs.Type)
	for _, record := range e.susceptibility {
		if record.Observation != obs.Name || record.Type != cleanType {
			continue
		}
		level := record.RequirementByVariety[variety]
		if level == "" || level == "unknown" {
			return ""
		}
		return level
	}
	return ""
}

// ThresholdsAvailable reports whether threshold filters can be offered:
// there must be susceptibility data and a selected variety. When false the
// engine behaves as if no requirements are active.
func (e *Engine) ThresholdsAvailable(variety string) bool {
	return len(e.susceptibility) > 0 && variety != ""
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
