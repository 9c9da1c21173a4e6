package model

import (
	"strings"
	"time"
)

// DisplayLayout is how dates are written to activity files.
const DisplayLayout = "1/2/2006"

// dateLayouts are tried in order when reparsing a raw date string.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Date is a calendar date that may have failed to parse.
type Date struct {
	t     time.Time
	valid bool
}

// NewDate returns a valid Date for y-m-d.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), valid: true}
}

// ParseDate reparses a raw date string. Unparsable input yields an invalid Date.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), t.Month(), t.Day())
		}
	}
	return Date{}
}

// Valid reports whether the date parsed.
func (d Date) Valid() bool { return d.valid }

// Time returns the date at midnight UTC.
func (d Date) Time() (time.Time, bool) { return d.t, d.valid }

// Before orders dates; invalid dates sort after every valid one.
func (d Date) Before(other Date) bool {
	switch {
	case d.valid && other.valid:
		return d.t.Before(other.t)
	default:
		return d.valid && !other.valid
	}
}

// Format renders the date with layout, or "" when invalid.
func (d Date) Format(layout string) string {
	if !d.valid {
		return ""
	}
	return d.t.Format(layout)
}

func (d Date) String() string {
	if !d.valid {
		return "Invalid Date"
	}
	return d.t.Format("2006-01-02")
}
