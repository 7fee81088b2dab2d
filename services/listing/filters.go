package listing

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// StatusAll is the sentinel status value that disables a StatusFilter.
const StatusAll = "all"

// Filter decides whether a record stays in the page.
type Filter interface {
	Active() bool
	Match(r Record) bool
}

// TextFilter keeps records where any of Fields contains Term, ignoring case.
type TextFilter struct {
	Fields []string
	Term   string
}

func (f TextFilter) Active() bool { return strings.TrimSpace(f.Term) != "" && len(f.Fields) > 0 }

func (f TextFilter) Match(r Record) bool {
	term := strings.ToLower(strings.TrimSpace(f.Term))
	for _, field := range f.Fields {
		if strings.Contains(strings.ToLower(r.Field(field)), term) {
			return true
		}
	}
	return false
}

// StatusFilter keeps records whose Field equals Value exactly.
// An empty Value or "all" matches everything.
type StatusFilter struct {
	Field string
	Value string
}

func (f StatusFilter) Active() bool {
	v := strings.TrimSpace(f.Value)
	return v != "" && !strings.EqualFold(v, StatusAll)
}

func (f StatusFilter) Match(r Record) bool {
	return r.Field(f.Field) == strings.TrimSpace(f.Value)
}

// ApplyFilters returns the records matching every active filter, in input order.
func ApplyFilters[T Record](items []T, filters []Filter) []T {
	active := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f != nil && f.Active() {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return items
	}

	out := make([]T, 0, len(items))
next:
	for _, item := range items {
		for _, f := range active {
			if !f.Match(item) {
				continue next
			}
		}
		out = append(out, item)
	}
	return out
}

// SortKey names the field to order by. The zero value sorts by creation
// time, newest first.
type SortKey struct {
	Field string
	Asc   bool
}

// CreatedAtField is the default sort field.
const CreatedAtField = "createdAt"

// ParseSortKey reads "field" or "-field" (descending). Empty means the default.
func ParseSortKey(s string) SortKey {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return SortKey{}
	case strings.HasPrefix(s, "-"):
		return SortKey{Field: strings.TrimPrefix(s, "-")}
	default:
		return SortKey{Field: strings.TrimPrefix(s, "+"), Asc: true}
	}
}

// SortRecords orders items in place. The sort is stable, so records with
// equal keys keep their input order.
func SortRecords[T Record](items []T, key SortKey) {
	if len(items) < 2 {
		return
	}
	if key.Field == "" || key.Field == CreatedAtField {
		sort.SliceStable(items, func(i, j int) bool {
			a, b := createdOrEpoch(items[i]), createdOrEpoch(items[j])
			if key.Asc {
				return a.Before(b)
			}
			return a.After(b)
		})
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		c := compareValues(items[i].Field(key.Field), items[j].Field(key.Field))
		if key.Asc {
			return c < 0
		}
		return c > 0
	})
}

// createdOrEpoch treats a missing timestamp as the Unix epoch.
func createdOrEpoch(r Record) time.Time {
	if t := r.CreatedTime(); !t.IsZero() {
		return t
	}
	return time.Unix(0, 0)
}

// compareValues compares numerically when both sides are integers,
// otherwise case-insensitively as text.
func compareValues(a, b string) int {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
