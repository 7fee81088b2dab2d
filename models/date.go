package models

import (
	"bytes"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// Date is a calendar day as the API sends it: either YYYY-MM-DD or a full
// timestamp. It encodes back as YYYY-MM-DD.
type Date struct {
	time.Time
	dateOnly bool
}

// NewDate wraps t as a full timestamp.
func NewDate(t time.Time) Date { return Date{Time: t} }

// ParseDate parses a YYYY-MM-DD value in loc.
func ParseDate(s string, loc *time.Location) (Date, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t, dateOnly: true}, nil
}

// String is the YYYY-MM-DD form, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// SameDay reports whether d falls on day in loc. A date-only value is its
// own calendar day whatever loc is.
func (d Date) SameDay(day time.Time, loc *time.Location) bool {
	if d.IsZero() {
		return false
	}
	if loc == nil {
		loc = time.Local
	}
	t := d.Time
	if !d.dateOnly {
		t = t.In(loc)
	}
	y, m, dd := t.Date()
	dy, dm, ddd := day.In(loc).Date()
	return y == dy && m == dm && dd == ddd
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return &time.ParseError{Layout: dateLayout, Value: string(data), Message: ": date must be a string"}
	}
	s := strings.TrimSpace(string(data[1 : len(data)-1]))
	if s == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		*d = Date{Time: t, dateOnly: true}
		return nil
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			*d = Date{Time: t}
			return nil
		}
		lastErr = err
	}
	return lastErr
}
