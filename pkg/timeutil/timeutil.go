// Package timeutil provides calendar helpers evaluated in a single reference
// time zone. Progress resets are decided by calendar month, so every month
// comparison in the service goes through this package.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// DefaultZoneName is used when no reference zone is configured.
const DefaultZoneName = "UTC"

// LoadZone resolves a zone name. Besides IANA names it accepts fixed offsets
// in the form "UTC+5", "UTC-03" or "UTC+05:30".
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}

	upper := strings.ToUpper(name)
	if strings.HasPrefix(upper, "UTC+") || strings.HasPrefix(upper, "UTC-") {
		offset, err := parseOffset(name[3:])
		if err != nil {
			return nil, fmt.Errorf("timeutil: invalid offset zone %q: %w", name, err)
		}
		return time.FixedZone(upper, offset), nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown zone %q: %w", name, err)
	}
	return loc, nil
}

func parseOffset(s string) (int, error) {
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("missing sign")
	}
	s = s[1:]

	var hours, minutes int
	if strings.Contains(s, ":") {
		if _, err := fmt.Sscanf(s, "%d:%d", &hours, &minutes); err != nil {
			return 0, err
		}
	} else if _, err := fmt.Sscanf(s, "%d", &hours); err != nil {
		return 0, err
	}

	if hours < 0 || hours > 14 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("offset out of range")
	}
	return sign * (hours*3600 + minutes*60), nil
}

// in converts t to loc, treating a nil location as UTC.
func in(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc)
}

// SameMonth reports whether a and b fall in the same calendar month and year
// when both are observed in loc.
func SameMonth(a, b time.Time, loc *time.Location) bool {
	ay, am, _ := in(a, loc).Date()
	by, bm, _ := in(b, loc).Date()
	return ay == by && am == bm
}

// StartOfMonth returns midnight of the first day of t's month in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	lt := in(t, loc)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, lt.Location())
}

// NextMonth returns the start of the month following t's month in loc.
func NextMonth(t time.Time, loc *time.Location) time.Time {
	return StartOfMonth(t, loc).AddDate(0, 1, 0)
}
