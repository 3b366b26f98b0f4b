package scouting

import (
	"regexp"
	"strconv"
)

var (
	bedPattern  = regexp.MustCompile(`Bed (\d+)`)
	zonePattern = regexp.MustCompile(`Zone (\d+)`)
)

// ParseBed extracts the bed number from a "Bed <n>" identifier. The second
// return is false when the string does not match.
func ParseBed(bed string) (int, bool) {
	match := bedPattern.FindStringSubmatch(bed)
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseZone extracts the zone number from a feed value that is either
// already numeric or a "Zone <n>" string.
func ParseZone(zone any) (int, bool) {
	switch v := zone.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		match := zonePattern.FindStringSubmatch(v)
		if match == nil {
			return 0, false
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
