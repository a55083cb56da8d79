package dataset

import (
	"fmt"

	"github.com/spektr-org/crosstab/engine"
	"github.com/spektr-org/crosstab/schema"
)

// ============================================================================
// ADAPTER — typed struct access
// ============================================================================
//
// Usage:
//
//	adapter := dataset.NewAdapter[Invoice]().
//	    Dimension("type", func(i Invoice) string { return i.Type }).
//	    Measure("amount", func(i Invoice) float64 { return i.Amount })
//
//	reg := engine.NewRegistry[Invoice]()
//	_ = engine.RegisterBuiltins(reg)
//	_ = adapter.Register(reg)
//
// Declare once, register into as many registries as needed.
// ============================================================================

// Adapter declares named accessors over a struct type.
type Adapter[T any] struct {
	dimOrder []string
	mesOrder []string
	dims     map[string]func(T) string
	meas     map[string]func(T) float64
}

// NewAdapter creates an empty adapter for type T.
func NewAdapter[T any]() *Adapter[T] {
	return &Adapter[T]{
		dims: make(map[string]func(T) string),
		meas: make(map[string]func(T) float64),
	}
}

// Dimension declares a string accessor. Redeclaring a key replaces it in place.
func (a *Adapter[T]) Dimension(key string, fn func(T) string) *Adapter[T] {
	if _, exists := a.dims[key]; !exists {
		a.dimOrder = append(a.dimOrder, key)
	}
	a.dims[key] = fn
	return a
}

// Measure declares a numeric accessor. Redeclaring a key replaces it in place.
func (a *Adapter[T]) Measure(key string, fn func(T) float64) *Adapter[T] {
	if _, exists := a.meas[key]; !exists {
		a.mesOrder = append(a.mesOrder, key)
	}
	a.meas[key] = fn
	return a
}

// Mappers returns one mapper per accessor, dimensions first, in declaration order.
func (a *Adapter[T]) Mappers() []engine.Mapper[T] {
	mappers := make([]engine.Mapper[T], 0, len(a.dimOrder)+len(a.mesOrder))
	for _, key := range a.dimOrder {
		fn := a.dims[key]
		mappers = append(mappers, engine.NewMapper(key, func(item T) any { return fn(item) }, nil))
	}
	for _, key := range a.mesOrder {
		fn := a.meas[key]
		mappers = append(mappers, engine.NewMapper(key, func(item T) any { return fn(item) }, NumberLabel))
	}
	return mappers
}

// Register adds the adapter's mappers to reg.
func (a *Adapter[T]) Register(reg *engine.Registry[T]) error {
	for _, m := range a.Mappers() {
		if err := reg.RegisterMapper(m); err != nil {
			return fmt.Errorf("register mapper %q: %w", m.Name(), err)
		}
	}
	return nil
}

// Records copies items into generic Records, e.g. for rendering or CSV export.
func (a *Adapter[T]) Records(items []T) []Record {
	out := make([]Record, len(items))
	for i, item := range items {
		r := NewRecord()
		for key, fn := range a.dims {
			r.Dimensions[key] = fn(item)
		}
		for key, fn := range a.meas {
			r.Measures[key] = fn(item)
		}
		out[i] = r
	}
	return out
}

// Schema describes the adapter's accessors as a schema.Config.
func (a *Adapter[T]) Schema(name string) schema.Config {
	cfg := schema.Config{Name: name}
	for _, key := range a.dimOrder {
		cfg.Dimensions = append(cfg.Dimensions, schema.DefaultDimension(key, cfg.DisplayName(key), nil))
	}
	for _, key := range a.mesOrder {
		cfg.Measures = append(cfg.Measures, schema.DefaultMeasure(key, cfg.DisplayName(key)))
	}
	return cfg
}
