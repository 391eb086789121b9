// Package daterange parses the free-text publication date ranges used by
// the archive ("01/03/1850-31/12/1860", "-31/12/1860", "01/03/1850-",
// "01/03/1850") into concrete boundaries.
package daterange

import (
	"strings"
	"time"
)

// Layout is the day/month/year format the archive uses for every date.
const Layout = "02/01/2006"

// Parse splits raw into a (start, end) pair. A single date yields the same
// value for both boundaries. Any component that fails to parse degrades to
// nil; Parse never reports an error, and (nil, nil) means "unknown range".
func Parse(raw string) (start, end *time.Time) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	// Open-end range: "D1-".
	if strings.HasSuffix(raw, "-") {
		return parseOne(strings.TrimSuffix(raw, "-")), nil
	}

	// Open-start range: "-D2".
	if strings.HasPrefix(raw, "-") {
		return nil, parseOne(strings.TrimPrefix(raw, "-"))
	}

	if idx := strings.Index(raw, "-"); idx >= 0 {
		return parseOne(raw[:idx]), parseOne(raw[idx+1:])
	}

	// Single date covers itself.
	single := parseOne(raw)
	return single, single
}

func parseOne(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return nil
	}
	return &t
}

// Overlaps reports whether the publication range (start, end) intersects
// the filter window (from, to). Open boundaries on either side count as
// matching whatever the other side allows; a fully unknown publication
// range never matches a bounded window.
func Overlaps(start, end, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if start == nil && end == nil {
		return false
	}

	switch {
	case from != nil && to != nil:
		if start != nil && end != nil {
			return !start.After(*to) && !end.Before(*from)
		}
		if start != nil {
			return !start.After(*to)
		}
		return !end.Before(*from)
	case from != nil:
		if start != nil && !start.After(*from) {
			return true
		}
		return end != nil && !end.Before(*from)
	default: // to != nil
		if end != nil && !end.Before(*to) {
			return true
		}
		return start != nil && !start.After(*to)
	}
}
