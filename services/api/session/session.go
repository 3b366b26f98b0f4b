package session

import (
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/upande/sprayplan/services/api/erp"
	"github.com/upande/sprayplan/services/api/plan"
	"github.com/upande/sprayplan/services/api/scouting"
)

// canonicalSections is the fixed plant-section checklist; sections absent
// from the data are presented disabled.
var canonicalSections = []string{"Base", "Stem", "Middle", "Top", "Buds"}

var titleCaser = cases.Title(language.Und)

// FilterOption is one selectable observation name. Checked marks names
// actually present in the greenhouse data; names known only from metadata
// start unchecked.
type FilterOption struct {
	Name    string `json:"name"`
	Checked bool   `json:"checked"`
}

// TypeFilter groups the selectable observation names of one type.
type TypeFilter struct {
	Key     string         `json:"key"`
	Label   string         `json:"label"`
	Options []FilterOption `json:"options"`
}

// SectionOption is one plant-section checkbox.
type SectionOption struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// StockSnapshot is the last reconciled stock view for a session.
type StockSnapshot struct {
	Summaries []plan.StockSummary `json:"summaries"`
	UpdatedAt time.Time           `json:"updated_at"`
	Error     string              `json:"error,omitempty"`
}

// Session is the derived state for one greenhouse/date selection. It is
// rebuilt wholesale on each selection; only the UOM and warehouse-choice
// caches outlive it.
type Session struct {
	ID         string
	Greenhouse string
	Date       string
	CreatedAt  time.Time
	Empty      bool

	Layout         scouting.Layout
	ActiveTypes    []string
	TypeFilters    []TypeFilter
	Stages         []string
	SectionOptions []SectionOption
	Sections       []string
	Varieties      []string
	Teams          []string
	BOMs           []erp.BOMHeader
	BOMItems       []erp.BOMItem
	AllChemicals   []string
	BedData        []erp.BedGeometry
	Targets        []string

	HasSusceptibility bool

	engine *plan.Engine

	stockMu   sync.RWMutex
	stock     StockSnapshot
	debouncer *Debouncer
}

func build(id, greenhouse, date string, payload erp.ScoutingPayload, debounce time.Duration) *Session {
	s := &Session{
		ID:         id,
		Greenhouse: greenhouse,
		Date:       date,
		CreatedAt:  time.Now().UTC(),
		debouncer:  NewDebouncer(debounce),
	}

	entries := payload.ScoutingEntries
	if len(entries) == 0 {
		s.Empty = true
		s.engine = plan.NewEngine(scouting.Index{}, nil)
		return s
	}

	var metadataTypes []string
	typeLabels := map[string]string{}
	allNames := map[string][]string{}
	if payload.ObservationMetadata != nil {
		metadataTypes = payload.ObservationMetadata.ActiveObservationTypes
		if payload.ObservationMetadata.TypeLabels != nil {
			typeLabels = payload.ObservationMetadata.TypeLabels
		}
		if payload.ObservationMetadata.AllObservationNames != nil {
			allNames = payload.ObservationMetadata.AllObservationNames
		}
	}

	s.ActiveTypes = scouting.DiscoverTypes(entries, metadataTypes)
	agg := scouting.Aggregate(entries, s.ActiveTypes)

	maxBed, maxZone := scouting.MaxDimensions(entries)
	s.Layout = scouting.NewLayout(maxBed, maxZone, payload.BedNumbering, payload.ZoneNumbering)

	for _, key := range s.ActiveTypes {
		filter := TypeFilter{Key: key, Label: typeLabel(key, typeLabels)}
		present := make(map[string]struct{}, len(agg.NamesByType[key]))
		for _, name := range agg.NamesByType[key] {
			present[name] = struct{}{}
		}
		for _, name := range mergeNames(allNames[key], agg.NamesByType[key]) {
			_, checked := present[name]
			filter.Options = append(filter.Options, FilterOption{Name: name, Checked: checked})
		}
		s.TypeFilters = append(s.TypeFilters, filter)
	}

	s.Stages = agg.Stages
	s.Sections = agg.Sections
	for _, name := range canonicalSections {
		enabled := false
		for _, sec := range agg.Sections {
			if sec == name {
				enabled = true
				break
			}
		}
		s.SectionOptions = append(s.SectionOptions, SectionOption{Name: name, Enabled: enabled})
	}

	for _, v := range payload.Varieties {
		s.Varieties = append(s.Varieties, v.Name)
	}
	for _, t := range payload.SprayTeams {
		s.Teams = append(s.Teams, t.Name)
	}
	s.BOMs = payload.BOMs
	s.BOMItems = payload.BOMItems
	s.AllChemicals = payload.AllChemicals
	s.BedData = payload.BedData
	s.Targets = scouting.AllTargetNames(entries, s.ActiveTypes)
	s.HasSusceptibility = len(payload.Susceptibility) > 0

	s.engine = plan.NewEngine(agg.Index, payload.Susceptibility)
	return s
}

// DefaultFilters builds the default-checked filter state: every observation
// present in the data, every stage, every enabled section, and all three
// requirement levels when thresholds are available for the variety.
func (s *Session) DefaultFilters(variety string) plan.Filters {
	f := plan.Filters{
		ObservationsByType: make(map[string][]string, len(s.TypeFilters)),
		Variety:            variety,
	}
	for _, filter := range s.TypeFilters {
		names := make([]string, 0, len(filter.Options))
		for _, opt := range filter.Options {
			if opt.Checked {
				names = append(names, opt.Name)
			}
		}
		f.ObservationsByType[filter.Key] = names
	}
	f.Stages = append(f.Stages, s.Stages...)
	for _, section := range s.SectionOptions {
		if section.Enabled {
			f.Sections = append(f.Sections, section.Name)
		}
	}
	if s.ThresholdsAvailable(variety) {
		f.Requirements = []string{plan.AlertLow, plan.AlertModerate, plan.AlertHigh}
	}
	return f
}

// Grid classifies every cell of the session layout against the filters.
func (s *Session) Grid(f plan.Filters) []plan.CellResult {
	return s.engine.ClassifyAll(s.Layout, f)
}

// ThresholdsAvailable reports whether threshold filters apply for the
// variety.
func (s *Session) ThresholdsAvailable(variety string) bool {
	return s.engine.ThresholdsAvailable(variety)
}

// Area derives spray area and water volume for a scope selection.
func (s *Session) Area(scope string, varieties []string, bedSpec string) plan.AreaResult {
	return plan.CalculateArea(scope, s.BedData, varieties, bedSpec)
}

// BOMDetail resolves a BOM header and its chemical rows by name.
func (s *Session) BOMDetail(name string) (erp.BOMHeader, []plan.ChemicalRow, bool) {
	for _, header := range s.BOMs {
		if header.Name != name {
			continue
		}
		var rows []plan.ChemicalRow
		for _, item := range s.BOMItems {
			if item.Parent != name {
				continue
			}
			rows = append(rows, plan.ChemicalRow{
				Name: item.ItemName,
				Rate: item.Qty,
				UOM:  item.UOM,
			})
		}
		return header, rows, true
	}
	return erp.BOMHeader{}, nil, false
}

// SetStockSnapshot stores the latest reconciled stock view. Last write
// wins, which can surface stale data if responses reorder.
func (s *Session) SetStockSnapshot(snapshot StockSnapshot) {
	s.stockMu.Lock()
	defer s.stockMu.Unlock()
	s.stock = snapshot
}

// StockSnapshot returns the last stored stock view.
func (s *Session) StockSnapshot() StockSnapshot {
	s.stockMu.RLock()
	defer s.stockMu.RUnlock()
	return s.stock
}

// DebounceStockRefresh coalesces rapid chemical-row edits into one refresh
// on the trailing edge of the debounce window.
func (s *Session) DebounceStockRefresh(refresh func()) {
	s.debouncer.Trigger(refresh)
}

// Close stops the session's pending debounced work.
func (s *Session) Close() {
	s.debouncer.Stop()
}

func typeLabel(key string, labels map[string]string) string {
	if label, ok := labels[key]; ok && label != "" {
		return label
	}
	cleaned := strings.TrimSuffix(key, "_scouting_entry")
	cleaned = strings.TrimSuffix(cleaned, "_entry")
	return titleCaser.String(strings.ReplaceAll(cleaned, "_", " "))
}

func mergeNames(metadata, present []string) []string {
	set := make(map[string]struct{}, len(metadata)+len(present))
	for _, name := range metadata {
		if name != "" {
			set[name] = struct{}{}
		}
	}
	for _, name := range present {
		set[name] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
