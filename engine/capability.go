package engine

import (
	"fmt"
	"time"
)

// ============================================================================
// CAPABILITIES — pluggable mappers and reducers
// ============================================================================
// Mapper[T] turns an item into a grouping or projection value.
// Reducer turns a list of mapped values into one scalar.
// Both are registered by name in a Registry and resolved per build.
// ============================================================================

// Capability is anything a Registry can store.
type Capability interface {
	Name() string
}

// Mapper extracts a value from an item of type T.
// Map must be deterministic and side-effect free.
// Label is only called with values Map produced.
type Mapper[T any] interface {
	Capability
	Map(item T) any
	Label(value any) string
}

// Reducer aggregates mapped values into one scalar.
type Reducer interface {
	Capability
	Reduce(values []any) (any, error)
}

// DefaultLabel renders a value for display. Nil renders as the empty string.
func DefaultLabel(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.DateOnly)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// ============================================================================
// SELF — identity mapper
// ============================================================================

// Self maps an item to itself. Pair it with Count to count items.
type Self[T any] struct{}

func (Self[T]) Name() string           { return "self" }
func (Self[T]) Map(item T) any         { return item }
func (Self[T]) Label(value any) string { return DefaultLabel(value) }

// ============================================================================
// FUNCTION ADAPTERS
// ============================================================================

type funcMapper[T any] struct {
	name  string
	fn    func(T) any
	label func(any) string
}

// NewMapper builds a Mapper from functions. A nil label uses DefaultLabel.
func NewMapper[T any](name string, fn func(T) any, label func(any) string) Mapper[T] {
	if label == nil {
		label = DefaultLabel
	}
	return &funcMapper[T]{name: name, fn: fn, label: label}
}

func (m *funcMapper[T]) Name() string           { return m.name }
func (m *funcMapper[T]) Map(item T) any         { return m.fn(item) }
func (m *funcMapper[T]) Label(value any) string { return m.label(value) }

type funcReducer struct {
	name string
	fn   func([]any) (any, error)
}

// NewReducer builds a Reducer from a function.
func NewReducer(name string, fn func(values []any) (any, error)) Reducer {
	return &funcReducer{name: name, fn: fn}
}

func (r *funcReducer) Name() string                     { return r.name }
func (r *funcReducer) Reduce(values []any) (any, error) { return r.fn(values) }
