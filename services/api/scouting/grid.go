package scouting

// Axis numbering orientations supported by the greenhouse layout.
const (
	BedTopToBottom  = "Top to Bottom"
	BedBottomToTop  = "Bottom to Top"
	ZoneRightToLeft = "Right to Left"
	ZoneLeftToRight = "Left to Right"
)

// Layout defines the grid coordinate space: how many beds and zones exist
// and in which order their axis labels are presented.
type Layout struct {
	Beds       int   `json:"beds"`
	Zones      int   `json:"zones"`
	BedLabels  []int `json:"bed_labels"`
	ZoneLabels []int `json:"zone_labels"`
}

// NewLayout builds the coordinate space for the given dimensions and
// numbering orientations. Empty orientations fall back to the greenhouse
// defaults, "Top to Bottom" beds and "Right to Left" zones.
func NewLayout(beds, zones int, bedNumbering, zoneNumbering string) Layout {
	if bedNumbering == "" {
		bedNumbering = BedTopToBottom
	}
	if zoneNumbering == "" {
		zoneNumbering = ZoneRightToLeft
	}

	layout := Layout{
		Beds:       beds,
		Zones:      zones,
		BedLabels:  make([]int, 0, beds),
		ZoneLabels: make([]int, 0, zones),
	}

	for i := 0; i < zones; i++ {
		if zoneNumbering == ZoneRightToLeft {
			layout.ZoneLabels = append(layout.ZoneLabels, zones-i)
		} else {
			layout.ZoneLabels = append(layout.ZoneLabels, i+1)
		}
	}
	for i := 0; i < beds; i++ {
		if bedNumbering == BedTopToBottom {
			layout.BedLabels = append(layout.BedLabels, beds-i)
		} else {
			layout.BedLabels = append(layout.BedLabels, i+1)
		}
	}
	return layout
}

// Cell identifies one grid position.
type Cell struct {
	Bed  int `json:"bed"`
	Zone int `json:"zone"`
}

// Cells enumerates every grid position, highest bed and zone first, the
// order the heatmap is drawn in.
func (l Layout) Cells() []Cell {
	cells := make([]Cell, 0, l.Beds*l.Zones)
	for bed := l.Beds; bed >= 1; bed-- {
		for zone := l.Zones; zone >= 1; zone-- {
			cells = append(cells, Cell{Bed: bed, Zone: zone})
		}
	}
	return cells
}
