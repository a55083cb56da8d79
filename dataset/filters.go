package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ============================================================================
// FILTERS — dimension-based record selection
// ============================================================================
// Single pass: every dimension constraint is checked per record in one loop.
// Dimensions are AND-combined, values within a dimension OR-combined, and
// matching is case-insensitive.
// ============================================================================

// ErrBadFilter is returned for filter expressions that are not "key=v1,v2".
var ErrBadFilter = errors.New("filter must look like key=value[,value...]")

// Filters restricts records by dimension values.
type Filters struct {
	Dimensions map[string][]string `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// IsEmpty reports whether the filters restrict nothing.
func (f Filters) IsEmpty() bool {
	for _, allowed := range f.Dimensions {
		if len(allowed) > 0 {
			return false
		}
	}
	return true
}

func (f Filters) String() string {
	keys := make([]string, 0, len(f.Dimensions))
	for k := range f.Dimensions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(f.Dimensions[k], ","))
	}
	return strings.Join(parts, " ")
}

// ParseFilters parses CLI expressions like "type=SalesInvoice,Quote".
// Repeating a key adds values to it.
func ParseFilters(exprs []string) (Filters, error) {
	f := Filters{Dimensions: make(map[string][]string)}
	for _, expr := range exprs {
		key, values, ok := strings.Cut(expr, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Filters{}, fmt.Errorf("%w: %q", ErrBadFilter, expr)
		}
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				f.Dimensions[key] = append(f.Dimensions[key], v)
			}
		}
	}
	return f, nil
}

// ApplyFilters returns the records matching every dimension filter, in input order.
// Empty filters return records unchanged.
func ApplyFilters(records []Record, filters Filters) []Record {
	if filters.IsEmpty() {
		return records
	}

	sets := make(map[string]map[string]bool, len(filters.Dimensions))
	for dim, allowed := range filters.Dimensions {
		if len(allowed) > 0 {
			sets[dim] = toLowerSet(allowed)
		}
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if matches(r, sets) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r Record, sets map[string]map[string]bool) bool {
	for dim, set := range sets {
		if !set[strings.ToLower(r.Dimensions[dim])] {
			return false
		}
	}
	return true
}

func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}
