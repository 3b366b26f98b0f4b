package plan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/upande/sprayplan/services/api/erp"
)

// WaterVolumeRate is the fixed water requirement in litres per hectare.
const WaterVolumeRate = 1000.0

// Spray scopes a plan can target.
const (
	ScopeFullGreenhouse = "Full Greenhouse"
	ScopeVariety        = "Specific Variety"
	ScopeBeds           = "Specific Bed(s)"
)

var (
	bedRangePattern  = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)
	bedSinglePattern = regexp.MustCompile(`^(\d+)$`)
)

// AreaResult carries the derived spray area and proportional water volume.
// Display strings use fixed precision: 4 decimals for hectares, 2 for
// volume, "0" when the value clamps to zero.
type AreaResult struct {
	AreaHectares  float64 `json:"area_hectares"`
	WaterVolume   float64 `json:"water_volume"`
	AreaDisplay   string  `json:"area_display"`
	VolumeDisplay string  `json:"volume_display"`
}

// CalculateArea derives the sprayed area and water volume for a scope.
// varieties applies to the Specific Variety scope, bedSpec to Specific
// Bed(s). Pure: same inputs always yield the same result.
func CalculateArea(scope string, bedData []erp.BedGeometry, varieties []string, bedSpec string) AreaResult {
	var squareMeters float64

	switch scope {
	case ScopeFullGreenhouse:
		for _, row := range bedData {
			squareMeters += row.BedArea
		}

	case ScopeVariety:
		if len(varieties) > 0 {
			selected := toSet(varieties)
			accounted := make(map[string]struct{})
			for _, row := range bedData {
				if _, want := selected[row.Variety]; !want {
					continue
				}
				if _, done := accounted[row.Variety]; done {
					continue
				}
				if row.TotalVarietyArea <= 0 {
					continue
				}
				squareMeters += row.TotalVarietyArea
				accounted[row.Variety] = struct{}{}
			}
		}

	case ScopeBeds:
		targets := ParseBedSpec(bedSpec)
		// Duplicate geometry rows sharing a bed id double count here; the
		// variety path above deduplicates. The asymmetry is intentional.
		for _, row := range bedData {
			if _, ok := targets[row.Bed]; ok {
				squareMeters += row.BedArea
			}
		}
	}

	hectares := 0.0
	if squareMeters > 0 {
		hectares = squareMeters / 10000
	}

	result := AreaResult{
		AreaHectares:  hectares,
		WaterVolume:   hectares * WaterVolumeRate,
		AreaDisplay:   "0",
		VolumeDisplay: "0",
	}
	if result.AreaHectares > 0 {
		result.AreaDisplay = fmt.Sprintf("%.4f", result.AreaHectares)
	}
	if result.WaterVolume > 0 {
		result.VolumeDisplay = fmt.Sprintf("%.2f", result.WaterVolume)
	}
	return result
}

// ParseBedSpec parses a comma-separated bed specification where each
// segment is a single integer or an inclusive range "A-B". Segments that
// match neither pattern are silently skipped. The result is a set of
// stringified bed identifiers.
func ParseBedSpec(spec string) map[string]struct{} {
	targets := make(map[string]struct{})
	for _, segment := range strings.Split(spec, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if match := bedRangePattern.FindStringSubmatch(segment); match != nil {
			start, _ := strconv.Atoi(match[1])
			end, _ := strconv.Atoi(match[2])
			for i := start; i <= end; i++ {
				targets[strconv.Itoa(i)] = struct{}{}
			}
			continue
		}
		if match := bedSinglePattern.FindStringSubmatch(segment); match != nil {
			targets[match[1]] = struct{}{}
		}
	}
	return targets
}
