package importer

import (
	"strings"
	"time"
)

// dayFirstLayouts are tried before anything else; exports from Indian banks
// and budgeting apps put the day first.
var dayFirstLayouts = []string{
	"2-1-2006 15:04:05",
	"2-1-2006 15:04",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2-1-2006",
	"2/1/2006",
}

var isoLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

var fallbackLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006 15:04",
}

// parseDate tries the known layouts in order and reports whether any of
// them matched. Day-first and ISO values are read in loc.
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	iso := s
	// Offsets and fractional seconds after an ISO date-time are ignored.
	if len(iso) > len("2006-01-02T15:04:05") && iso[10] == 'T' {
		iso = iso[:len("2006-01-02T15:04:05")]
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, iso, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
