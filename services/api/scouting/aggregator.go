package scouting

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/upande/sprayplan/services/api/erp"
)

// Defaults applied when a raw observation omits an attribute.
const (
	SentinelNA   = "N/A"
	NeutralColor = "#cccccc"
)

// Observation is one flattened observation inside a grid cell bucket.
type Observation struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Count        int    `json:"count"`
	Stage        string `json:"stage"`
	Symbol       string `json:"symbol"`
	Color        string `json:"color"`
	PlantSection string `json:"plant_section"`
}

// Index maps "{bed}-{zone}" keys to the cell's observation bucket.
type Index map[string][]Observation

// CellKey builds the index key for a bed/zone pair.
func CellKey(bed, zone int) string {
	return fmt.Sprintf("%d-%d", bed, zone)
}

// Aggregation is the result of flattening a scouting feed: the grid index
// plus the discovered filter domains.
type Aggregation struct {
	Index       Index
	NamesByType map[string][]string
	Stages      []string
	Sections    []string
}

// Aggregate groups raw scouting entries into a bed/zone index for the given
// observation type keys. Entries missing a parseable bed or zone are
// excluded entirely; the stage and section sets are seeded with the "N/A"
// sentinel so at least one option always exists. Cell buckets are sorted by
// observation name, locale-aware ascending.
func Aggregate(entries []erp.ScoutingEntry, typeKeys []string) Aggregation {
	types := filterTypeKeys(typeKeys)

	index := make(Index)
	namesByType := make(map[string]map[string]struct{}, len(types))
	for _, t := range types {
		namesByType[t] = make(map[string]struct{})
	}
	stages := map[string]struct{}{SentinelNA: {}}
	sections := map[string]struct{}{SentinelNA: {}}

	for _, entry := range entries {
		bed, bedOK := ParseBed(entry.Bed)
		zone, zoneOK := ParseZone(entry.Zone)
		if !bedOK || !zoneOK || bed <= 0 || zone <= 0 {
			continue
		}

		key := CellKey(bed, zone)
		for _, obsType := range types {
			for _, raw := range entry.Observations[obsType] {
				namesByType[obsType][raw.Name] = struct{}{}

				obs := Observation{
					Type:         obsType,
					Name:         raw.Name,
					Count:        raw.Count,
					Stage:        raw.Stage,
					Symbol:       raw.Symbol,
					Color:        raw.Color,
					PlantSection: raw.PlantSection,
				}
				if obs.Count == 0 {
					obs.Count = 1
				}
				if obs.Stage == "" {
					obs.Stage = SentinelNA
				}
				if obs.Color == "" {
					obs.Color = NeutralColor
				}
				if obs.PlantSection == "" {
					obs.PlantSection = SentinelNA
				}

				stages[obs.Stage] = struct{}{}
				sections[obs.PlantSection] = struct{}{}
				index[key] = append(index[key], obs)
			}
		}
	}

	collator := collate.New(language.Und)
	for key, bucket := range index {
		sort.SliceStable(bucket, func(i, j int) bool {
			return collator.CompareString(bucket[i].Name, bucket[j].Name) < 0
		})
		index[key] = bucket
	}

	names := make(map[string][]string, len(namesByType))
	for t, set := range namesByType {
		names[t] = sortedKeys(set)
	}

	return Aggregation{
		Index:       index,
		NamesByType: names,
		Stages:      sortedKeys(stages),
		Sections:    sortedKeys(sections),
	}
}

// MaxDimensions finds the highest bed and zone numbers seen anywhere in the
// feed. Unlike the index, a partially parseable entry still contributes its
// parseable coordinate.
func MaxDimensions(entries []erp.ScoutingEntry) (maxBed, maxZone int) {
	for _, entry := range entries {
		if bed, ok := ParseBed(entry.Bed); ok && bed > maxBed {
			maxBed = bed
		}
		if zone, ok := ParseZone(entry.Zone); ok && zone > maxZone {
			maxZone = zone
		}
	}
	return maxBed, maxZone
}

// DiscoverTypes unions the type keys configured in metadata with the keys
// actually present (non-empty) in the feed, metadata order first.
func DiscoverTypes(entries []erp.ScoutingEntry, metadataTypes []string) []string {
	seen := make(map[string]struct{}, len(metadataTypes))
	out := make([]string, 0, len(metadataTypes))
	for _, t := range metadataTypes {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	discovered := make([]string, 0)
	for _, entry := range entries {
		for key, obs := range entry.Observations {
			if !strings.HasSuffix(key, "_scouting_entry") || len(obs) == 0 {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			discovered = append(discovered, key)
		}
	}
	sort.Strings(discovered)
	return append(out, discovered...)
}

// AllTargetNames collects the sorted union of observation names across the
// feed, used to populate and validate final spray targets.
func AllTargetNames(entries []erp.ScoutingEntry, typeKeys []string) []string {
	types := filterTypeKeys(typeKeys)
	set := make(map[string]struct{})
	for _, entry := range entries {
		for _, obsType := range types {
			for _, obs := range entry.Observations[obsType] {
				if obs.Name != "" {
					set[obs.Name] = struct{}{}
				}
			}
		}
	}
	return sortedKeys(set)
}

func filterTypeKeys(typeKeys []string) []string {
	out := make([]string, 0, len(typeKeys))
	for _, t := range typeKeys {
		if strings.HasSuffix(t, "_scouting_entry") || strings.HasSuffix(t, "_entry") {
			out = append(out, t)
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
