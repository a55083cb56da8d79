// Package dataset adapts tabular data to the cube engine: generic Records,
// mappers over their columns, typed-struct adapters, filters and CSV parsing.
package dataset

import "sort"

// ============================================================================
// RECORD — one row of string dimensions and numeric measures
// ============================================================================
// The engine never owns consumer data; it reads items through mappers.
// Record is the item type for CSV and ad-hoc input. Typed structs register
// their own mappers through an Adapter instead.
// ============================================================================

// Record is one generic data row.
type Record struct {
	Dimensions map[string]string  `json:"dimensions"`
	Measures   map[string]float64 `json:"measures"`
}

// NewRecord returns a Record with empty, non-nil maps.
func NewRecord() Record {
	return Record{
		Dimensions: make(map[string]string),
		Measures:   make(map[string]float64),
	}
}

// Dimension returns a dimension value and whether it is set.
func (r Record) Dimension(key string) (string, bool) {
	v, ok := r.Dimensions[key]
	return v, ok
}

// Measure returns a measure value and whether it is set.
func (r Record) Measure(key string) (float64, bool) {
	v, ok := r.Measures[key]
	return v, ok
}

// Keys returns the sorted union of dimension and measure keys across records.
func Keys(records []Record) (dimensions, measures []string) {
	dimSeen := make(map[string]bool)
	mesSeen := make(map[string]bool)
	for _, r := range records {
		for k := range r.Dimensions {
			if !dimSeen[k] {
				dimSeen[k] = true
				dimensions = append(dimensions, k)
			}
		}
		for k := range r.Measures {
			if !mesSeen[k] {
				mesSeen[k] = true
				measures = append(measures, k)
			}
		}
	}
	sort.Strings(dimensions)
	sort.Strings(measures)
	return dimensions, measures
}
