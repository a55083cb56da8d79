package engine

import (
	"fmt"
)

// ============================================================================
// PROGRAM — grouping and reduction for one inclusion pattern
// ============================================================================
// Pipeline per Run:
//   1. Partition items by Key (mapped value, or Total for collapsed slots)
//   2. Map every extractor over each bucket, keeping bucket order
//   3. Reduce mapped list j with reducer j
//   4. Collect the distinct coordinates seen on each axis
// ============================================================================

// Program runs one inclusion pattern. Build it with NewProgram or Factory.Build.
type Program[T any] struct {
	Pattern Pattern

	group    []Mapper[T] // nil where the pattern slot is absent
	mappers  []Mapper[T]
	reducers []Reducer
}

// PatternResult is the output of one Program run, ready to be merged into a Grid.
type PatternResult[T any] struct {
	Pattern Pattern
	Cells   map[Key]*Analysis[T]
	Order   []Key                // first-seen bucket order
	Axes    []map[Coord]struct{} // distinct coordinates per axis
}

// NewProgram resolves a pattern and the aligned extractor/reducer name lists through reg.
func NewProgram[T any](reg *Registry[T], pattern Pattern, mapNames, reduceNames []string) (*Program[T], error) {
	if len(mapNames) != len(reduceNames) {
		return nil, fmt.Errorf("%w: %d value extractors, %d reducers", ErrArityMismatch, len(mapNames), len(reduceNames))
	}
	if len(pattern) > MaxAxes {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyAxes, len(pattern), MaxAxes)
	}

	group := make([]Mapper[T], len(pattern))
	for i, name := range pattern {
		if name == "" {
			continue
		}
		m, err := reg.Mapper(name)
		if err != nil {
			return nil, err
		}
		group[i] = m
	}

	mappers, err := reg.FindMappers(mapNames)
	if err != nil {
		return nil, err
	}
	reducers, err := reg.FindReducers(reduceNames)
	if err != nil {
		return nil, err
	}

	return &Program[T]{
		Pattern:  pattern,
		group:    group,
		mappers:  mappers,
		reducers: reducers,
	}, nil
}

// Run groups and reduces items. The input slice is never modified.
func (p *Program[T]) Run(items []T) (*PatternResult[T], error) {
	buckets, order, err := p.partition(items)
	if err != nil {
		return nil, err
	}

	result := &PatternResult[T]{
		Pattern: p.Pattern,
		Cells:   make(map[Key]*Analysis[T], len(order)),
		Order:   order,
		Axes:    make([]map[Coord]struct{}, len(p.group)),
	}
	for i := range result.Axes {
		result.Axes[i] = make(map[Coord]struct{})
	}

	for _, key := range order {
		analysis, err := p.analyse(key, buckets[key])
		if err != nil {
			return nil, err
		}
		result.Cells[key] = analysis
		for i := 0; i < key.Len(); i++ {
			result.Axes[i][key.At(i)] = struct{}{}
		}
	}
	return result, nil
}

func (p *Program[T]) partition(items []T) (map[Key][]T, []Key, error) {
	buckets := make(map[Key][]T)
	var order []Key
	coords := make([]Coord, len(p.group))

	for _, item := range items {
		for i, g := range p.group {
			if g == nil {
				coords[i] = Total
				continue
			}
			v := g.Map(item)
			if !isComparable(v) {
				return nil, nil, fmt.Errorf("pattern %s: dimension %q: %w: %T", p.Pattern, g.Name(), ErrIncomparableValue, v)
			}
			if hasNaN(v) {
				return nil, nil, fmt.Errorf("pattern %s: dimension %q: %w: NaN", p.Pattern, g.Name(), ErrIncomparableValue)
			}
			coords[i] = Real(v)
		}
		key := NewKey(coords...)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], item)
	}

	// The all-collapsed pattern always yields the grand total cell, even over no items.
	if len(items) == 0 && p.allCollapsed() {
		for i := range coords {
			coords[i] = Total
		}
		key := NewKey(coords...)
		buckets[key] = []T{}
		order = append(order, key)
	}
	return buckets, order, nil
}

func (p *Program[T]) allCollapsed() bool {
	for _, g := range p.group {
		if g != nil {
			return false
		}
	}
	return true
}

func (p *Program[T]) analyse(key Key, items []T) (*Analysis[T], error) {
	mapped := make([][]any, len(p.mappers))
	for j, m := range p.mappers {
		values := make([]any, len(items))
		for k, item := range items {
			values[k] = m.Map(item)
		}
		mapped[j] = values
	}

	reduced := make([]any, len(p.reducers))
	for j, r := range p.reducers {
		v, err := r.Reduce(mapped[j])
		if err != nil {
			return nil, fmt.Errorf("pattern %s: key %s: reducer %q: %w", p.Pattern, key, r.Name(), err)
		}
		reduced[j] = v
	}

	return &Analysis[T]{
		Key:     key,
		Items:   items,
		Mapped:  mapped,
		Reduced: reduced,
		program: p,
	}, nil
}
