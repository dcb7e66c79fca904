// Package filter derives the displayed subset of a master list from a search
// term and per-field equality constraints.
package filter

import (
	"maps"
	"slices"
	"strings"
)

// Record is an entity that can be searched and filtered.
type Record interface {
	// Values returns every searchable value, stringified.
	Values() []string
	// Lookup returns the stringified value stored under key.
	Lookup(key string) (string, bool)
}

// Criteria is the filter state of a page.
type Criteria struct {
	SearchTerm string
	Equals     map[string]string // field name -> required value; "" is inactive
}

// Active reports whether any filter input is set.
func (c Criteria) Active() bool {
	return c.SearchTerm != "" || len(c.activeEquals()) > 0
}

// With returns a copy of c with the equality constraint on field set to
// value. An empty value clears it.
func (c Criteria) With(field, value string) Criteria {
	out := Criteria{SearchTerm: c.SearchTerm, Equals: maps.Clone(c.Equals)}
	if value == "" {
		delete(out.Equals, field)
		return out
	}
	if out.Equals == nil {
		out.Equals = make(map[string]string)
	}
	out.Equals[field] = value
	return out
}

func (c Criteria) activeEquals() []string {
	keys := make([]string, 0, len(c.Equals))
	for k, v := range c.Equals {
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// key is a canonical form of c, for memoization.
func (c Criteria) key() string {
	var b strings.Builder
	b.WriteString(c.SearchTerm)
	for _, k := range c.activeEquals() {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte(0)
		b.WriteString(c.Equals[k])
	}
	return b.String()
}

// Reason explains what a Result shows.
type Reason int

const (
	// ShowingAll means no filter is active.
	ShowingAll Reason = iota
	// Filtered means filters are active and something matched.
	Filtered
	// NoRecords means the master list is empty and no filter is active.
	NoRecords
	// NoMatches means filters are active and nothing matched.
	NoMatches
)

func (r Reason) String() string {
	switch r {
	case ShowingAll:
		return "showing all"
	case Filtered:
		return "filtered"
	case NoRecords:
		return "no records"
	case NoMatches:
		return "no matches"
	}
	return "unknown"
}

// Result is a derived view.
type Result[T Record] struct {
	Records []T
	Reason  Reason
	Total   int // size of the master list
}

// Empty reports whether nothing is displayed.
func (r Result[T]) Empty() bool { return len(r.Records) == 0 }

// Derive computes the displayed subset of master. Order is preserved.
//
// A non-empty search term keeps records where any value contains it,
// ignoring case. Each active equality constraint then keeps records whose
// value under that key equals it exactly; constraints are ANDed. Without
// active input master is returned as is.
func Derive[T Record](master []T, c Criteria) Result[T] {
	res := Result[T]{Total: len(master)}
	if !c.Active() {
		res.Records = master
		if len(master) == 0 {
			res.Reason = NoRecords
		}
		return res
	}

	term := strings.ToLower(c.SearchTerm)
	keys := c.activeEquals()
	out := make([]T, 0, len(master))
	for _, r := range master {
		if term != "" && !containsFold(r.Values(), term) {
			continue
		}
		if !matchesAll(r, keys, c.Equals) {
			continue
		}
		out = append(out, r)
	}
	res.Records = out
	res.Reason = Filtered
	if len(out) == 0 {
		res.Reason = NoMatches
	}
	return res
}

func containsFold(values []string, lowerTerm string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), lowerTerm) {
			return true
		}
	}
	return false
}

func matchesAll[T Record](r T, keys []string, want map[string]string) bool {
	for _, k := range keys {
		v, ok := r.Lookup(k)
		if !ok || v != want[k] {
			return false
		}
	}
	return true
}
