package engine

import (
	"fmt"
	"sort"
)

// ============================================================================
// GRID — merged result of every inclusion pattern
// ============================================================================
// One sparse map Key → Analysis plus, per axis, the distinct coordinates
// observed. Patterns never produce the same key (each has its own fixed
// Total/real layout), so merging is a disjoint union.
// ============================================================================

// Grid is the queryable cube. A grid returned by a Factory is sealed.
type Grid[T any] struct {
	request  Request
	registry *Registry[T]

	axes   []map[Coord]struct{}
	cells  map[Key]*Analysis[T]
	order  []Key
	sealed bool
}

// NewGrid returns an empty grid for req. reg is only used for labels and may be nil.
func NewGrid[T any](req Request, reg *Registry[T]) *Grid[T] {
	axes := make([]map[Coord]struct{}, len(req.Group))
	for i := range axes {
		axes[i] = make(map[Coord]struct{})
	}
	return &Grid[T]{
		request:  req.clone(),
		registry: reg,
		axes:     axes,
		cells:    make(map[Key]*Analysis[T]),
	}
}

// Merge folds one pattern result into the grid.
func (g *Grid[T]) Merge(r *PatternResult[T]) error {
	if g.sealed {
		return ErrSealed
	}
	if len(r.Axes) != len(g.axes) {
		return fmt.Errorf("%w: pattern result has %d axes, grid has %d", ErrArityMismatch, len(r.Axes), len(g.axes))
	}
	for _, key := range r.Order {
		if _, exists := g.cells[key]; exists {
			return fmt.Errorf("%w: pattern %s produced %s", ErrKeyCollision, r.Pattern, key)
		}
	}

	for i, values := range r.Axes {
		for c := range values {
			g.axes[i][c] = struct{}{}
		}
	}
	for _, key := range r.Order {
		g.cells[key] = r.Cells[key]
		g.order = append(g.order, key)
	}
	return nil
}

func (g *Grid[T]) seal() { g.sealed = true }

// Request returns the request the grid was built for.
func (g *Grid[T]) Request() Request { return g.request.clone() }

// Axes returns the number of grouping dimensions.
func (g *Grid[T]) Axes() int { return len(g.axes) }

// Len returns the number of cells.
func (g *Grid[T]) Len() int { return len(g.cells) }

// ReducerCount returns the number of reduced values per cell.
func (g *Grid[T]) ReducerCount() int { return len(g.request.Reduce) }

// AxisValues returns the distinct coordinates of axis i: nil first, Total last,
// natural order in between.
func (g *Grid[T]) AxisValues(i int) []Coord {
	values := make([]Coord, 0, len(g.axes[i]))
	for c := range g.axes[i] {
		values = append(values, c)
	}
	sort.SliceStable(values, func(a, b int) bool {
		return CompareCoords(values[a], values[b]) < 0
	})
	return values
}

// Cell looks up a full-arity key.
func (g *Grid[T]) Cell(key Key) (*Analysis[T], error) {
	if key.Len() != len(g.axes) {
		return nil, fmt.Errorf("%w: key %s has %d coordinates, grid has %d axes", ErrArityMismatch, key, key.Len(), len(g.axes))
	}
	a, ok := g.cells[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCellNotFound, key)
	}
	return a, nil
}

// At is Cell(NewKey(coords...)).
func (g *Grid[T]) At(coords ...Coord) (*Analysis[T], error) {
	if len(coords) > MaxAxes {
		return nil, fmt.Errorf("%w: %d coordinates", ErrArityMismatch, len(coords))
	}
	return g.Cell(NewKey(coords...))
}

// Cells returns every cell ordered axis by axis, Total last on each axis.
func (g *Grid[T]) Cells() []*Analysis[T] {
	keys := make([]Key, len(g.order))
	copy(keys, g.order)
	sort.SliceStable(keys, func(a, b int) bool { return compareKeys(keys[a], keys[b]) < 0 })

	out := make([]*Analysis[T], len(keys))
	for i, k := range keys {
		out[i] = g.cells[k]
	}
	return out
}

// GroupLabel renders coordinate c of axis i with that dimension's Label.
func (g *Grid[T]) GroupLabel(i int, c Coord) string {
	if c.IsTotal() || g.registry == nil {
		return c.String()
	}
	m, err := g.registry.Mapper(g.request.Group[i])
	if err != nil {
		return c.String()
	}
	return m.Label(c.Value())
}

// ReducedLabel renders reduced value j with the Label of the extractor that fed it.
func (g *Grid[T]) ReducedLabel(j int, v any) string {
	if g.registry == nil {
		return DefaultLabel(v)
	}
	m, err := g.registry.Mapper(g.request.Map[j])
	if err != nil {
		return DefaultLabel(v)
	}
	return m.Label(v)
}
