package erp

import (
	"encoding/json"
	"strings"
)

// RawObservation is one observation record inside a scouting entry child
// list. Missing attributes are left zero here; defaulting happens when the
// aggregator flattens entries into the grid index.
type RawObservation struct {
	Name         string  `json:"name"`
	Count        int     `json:"count"`
	Stage        string  `json:"stage"`
	Symbol       string  `json:"symbol"`
	Color        string  `json:"color"`
	PlantSection string  `json:"plant_section"`
	Severity     float64 `json:"severity,omitempty"`
}

// ScoutingEntry is one raw report for a bed/zone pair. The observation
// lists arrive under dynamic keys ("pests_scouting_entry", ...), so the
// entry keeps them in a map keyed by the raw type key.
type ScoutingEntry struct {
	Name         string
	Bed          string
	Zone         any
	Observations map[string][]RawObservation
}

// UnmarshalJSON captures the fixed fields plus every child list whose key
// carries a scouting-entry suffix.
func (e *ScoutingEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["name"]; ok {
		_ = json.Unmarshal(v, &e.Name)
	}
	if v, ok := raw["bed"]; ok {
		_ = json.Unmarshal(v, &e.Bed)
	}
	if v, ok := raw["zone"]; ok {
		_ = json.Unmarshal(v, &e.Zone)
	}

	e.Observations = make(map[string][]RawObservation)
	for key, value := range raw {
		if !strings.HasSuffix(key, "_scouting_entry") && !strings.HasSuffix(key, "_entry") {
			continue
		}
		var obs []RawObservation
		if err := json.Unmarshal(value, &obs); err != nil {
			continue // malformed child list, skip rather than fail the entry
		}
		e.Observations[key] = obs
	}
	return nil
}

// SusceptibilityRecord maps an observation to per-variety requirement
// levels ("low", "moderate", "high" or "unknown").
type SusceptibilityRecord struct {
	Observation          string            `json:"observation"`
	Type                 string            `json:"type"`
	RequirementByVariety map[string]string `json:"requirement_by_variety"`
}

// ObservationMetadata describes the observation taxonomy configured on the
// ERP side, independent of what the current feed happens to contain.
type ObservationMetadata struct {
	TypeLabels             map[string]string   `json:"type_labels"`
	ActiveObservationTypes []string            `json:"active_observation_types"`
	AllObservationNames    map[string][]string `json:"all_observation_names"`
}

// NamedRef is a minimal {name} record used for varieties and spray teams.
type NamedRef struct {
	Name string `json:"name"`
}

// BOMHeader is a reusable chemical template with target water chemistry.
type BOMHeader struct {
	Name          string  `json:"name"`
	WaterPH       float64 `json:"custom_water_ph"`
	WaterHardness float64 `json:"custom_water_hardness"`
}

// BOMItem is one chemical line belonging to a BOM header.
type BOMItem struct {
	Parent   string  `json:"parent"`
	ItemName string  `json:"item_name"`
	Qty      float64 `json:"qty"`
	UOM      string  `json:"uom"`
}

// BedGeometry is one bed row from the ERP bed layout, carrying both the
// bed's own area and the pre-summed area of its variety.
type BedGeometry struct {
	Bed              string  `json:"bed"`
	BedArea          float64 `json:"bed__area"`
	Variety          string  `json:"variety"`
	TotalVarietyArea float64 `json:"total_variety_area"`
}

// ScoutingPayload is the full response of the scouting data fetch.
type ScoutingPayload struct {
	ScoutingEntries     []ScoutingEntry        `json:"scouting_entries"`
	ObservationMetadata *ObservationMetadata   `json:"observation_metadata"`
	Varieties           []NamedRef             `json:"varieties"`
	Susceptibility      []SusceptibilityRecord `json:"susceptibility"`
	SprayTeams          []NamedRef             `json:"spray_team_team"`
	BedNumbering        string                 `json:"custom_bed_numbering"`
	ZoneNumbering       string                 `json:"custom_zone_numbering"`
	BOMs                []BOMHeader            `json:"boms"`
	BOMItems            []BOMItem              `json:"bom_items"`
	AllChemicals        []string               `json:"all_chemicals"`
	BedData             []BedGeometry          `json:"bed_data"`
}

// Catalog is the chemical catalog response.
type Catalog struct {
	Chemicals  []string          `json:"chemicals"`
	ItemUOMMap map[string]string `json:"item_uom_map"`
}

// StockResult carries per-chemical, per-warehouse available quantities.
type StockResult struct {
	StockBalances map[string]map[string]float64 `json:"stock_balances"`
	ItemUOMMap    map[string]string             `json:"item_uom_map"`
}

// BOMChemical is one chemical line in a BOM creation request, rated per
// 1000 L of water.
type BOMChemical struct {
	ItemName        string  `json:"item_name"`
	ApplicationRate float64 `json:"custom_application_rate"`
	UOM             string  `json:"uom"`
}

// BOMRequest is the BOM creation payload.
type BOMRequest struct {
	Item          string        `json:"item"`
	WaterPH       float64       `json:"custom_water_ph"`
	WaterHardness float64       `json:"custom_water_hardness"`
	Items         []BOMChemical `json:"items"`
}

// BOMResult is the BOM creation response.
type BOMResult struct {
	Status  string `json:"status"`
	BOMName string `json:"bom_name"`
	Message string `json:"message"`
}

// WorkOrderChemical is one chemical line of a work order submission,
// including the chosen source warehouse.
type WorkOrderChemical struct {
	Chemical        string  `json:"chemical"`
	ApplicationRate float64 `json:"application_rate"`
	UOM             string  `json:"uom"`
	SourceWarehouse string  `json:"source_warehouse"`
}

// WorkOrderPayload is the full work order submission, shaped for the ERP's
// work-order doctype fields.
type WorkOrderPayload struct {
	Type          string              `json:"custom_type"`
	Greenhouse    string              `json:"custom_greenhouse"`
	Variety       string              `json:"custom_variety"`
	Targets       []string            `json:"custom_targets"`
	SprayType     string              `json:"custom_spray_type"`
	Kit           string              `json:"custom_kit"`
	Scope         string              `json:"custom_scope"`
	ScopeDetails  string              `json:"custom_scope_details"`
	ProductionBOM string              `json:"production_item"`
	Qty           int                 `json:"qty"`
	WaterPH       float64             `json:"custom_water_ph"`
	WaterHardness float64             `json:"custom_water_hardness"`
	Chemicals     []WorkOrderChemical `json:"chemicals"`
	WaterVolume   float64             `json:"custom_water_volume"`
	Area          float64             `json:"custom_area"`
	SprayTeam     string              `json:"custom_spray_team"`
}

// GuidelineResult is the chemical-combination guideline verdict.
type GuidelineResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// WorkOrderResult is the work order creation response.
type WorkOrderResult struct {
	Status        string `json:"status"`
	WorkOrderName string `json:"work_order_name"`
	Message       string `json:"message"`
}
