package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ============================================================================
// CROSSTAB ENGINE TYPES — Coordinates, Keys, Analyses
// ============================================================================
// A cube is addressed by Keys. Each Key holds one Coord per grouping axis;
// a Coord is either a real mapped value or the TOTAL marker for an axis
// that was collapsed by the inclusion pattern that produced the cell.
//
// Dependency: engine core uses only the standard library for its data model.
// ============================================================================

// MaxAxes is the largest number of grouping dimensions a single build accepts.
// 2^8 inclusion patterns is already far beyond practical cube sizes.
const MaxAxes = 8

// TotalLabel is the display label of a TOTAL coordinate.
const TotalLabel = "Total"

// ============================================================================
// ERRORS
// ============================================================================

var (
	// ErrUnknownCapability is returned when a mapper, reducer or factory name is not registered.
	ErrUnknownCapability = errors.New("unknown capability")
	// ErrUnsupportedCapability is returned by Register for values that are neither Mapper nor Reducer.
	ErrUnsupportedCapability = errors.New("unsupported capability")
	// ErrEmptyName is returned when registering a capability without a name.
	ErrEmptyName = errors.New("capability name is empty")
	// ErrEmptyInput is returned by reducers that are undefined on an empty list.
	ErrEmptyInput = errors.New("reduce of empty input")
	// ErrNotNumeric is returned by arithmetic reducers for non-numeric values.
	ErrNotNumeric = errors.New("value is not numeric")
	// ErrIncomparableValue is returned when a value cannot be used as a grouping or uniqueness key.
	ErrIncomparableValue = errors.New("value is not comparable")
	// ErrArityMismatch is returned when value-extractor and reducer lists differ in length,
	// or when a key or pattern result does not match the grid's number of axes.
	ErrArityMismatch = errors.New("arity mismatch")
	// ErrTooManyAxes is returned when more than MaxAxes grouping dimensions are requested.
	ErrTooManyAxes = errors.New("too many grouping dimensions")
	// ErrKeyCollision signals two inclusion patterns producing the same key. It is a defect.
	ErrKeyCollision = errors.New("bucket key collision across inclusion patterns")
	// ErrCellNotFound is returned when looking up a key no pattern produced.
	ErrCellNotFound = errors.New("cell not found")
	// ErrSealed is returned when merging into a grid that a factory already returned.
	ErrSealed = errors.New("grid is sealed")
)

// Namespace separates capability names in a Registry.
type Namespace string

const (
	NamespaceMapper  Namespace = "mapper"
	NamespaceReducer Namespace = "reducer"
	NamespaceFactory Namespace = "factory"
)

// UnknownCapabilityError carries the namespace and name of a failed lookup.
type UnknownCapabilityError struct {
	Namespace Namespace
	Name      string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown %s: %q", e.Namespace, e.Name)
}

// Unwrap lets errors.Is match ErrUnknownCapability.
func (e *UnknownCapabilityError) Unwrap() error { return ErrUnknownCapability }

// ============================================================================
// COORD — tagged union {Real(value), Total}
// ============================================================================

// Coord is one component of a Key.
// The zero Coord is Real(nil), an absent value, which is distinct from Total.
type Coord struct {
	value any
	total bool
}

// Total marks an axis that is not broken out in a cell.
var Total = Coord{total: true}

// Real wraps a value returned by a dimension mapper.
func Real(v any) Coord { return Coord{value: v} }

// IsTotal reports whether c is the TOTAL marker.
func (c Coord) IsTotal() bool { return c.total }

// Value returns the wrapped value, or nil for Total.
func (c Coord) Value() any {
	if c.total {
		return nil
	}
	return c.value
}

func (c Coord) String() string {
	if c.total {
		return TotalLabel
	}
	return DefaultLabel(c.value)
}

// ============================================================================
// KEY — fixed-capacity comparable tuple
// ============================================================================

// Key is a full-arity cube address. Keys are comparable and usable as map keys
// as long as every real value they hold is comparable.
type Key struct {
	n      int
	coords [MaxAxes]Coord
}

// NewKey builds a Key from coordinates. It panics on more than MaxAxes coordinates,
// which Factory validation rules out for every key the engine produces.
func NewKey(coords ...Coord) Key {
	if len(coords) > MaxAxes {
		panic(fmt.Sprintf("engine: key of %d coordinates exceeds MaxAxes=%d", len(coords), MaxAxes))
	}
	k := Key{n: len(coords)}
	copy(k.coords[:], coords)
	return k
}

// Len returns the arity of the key.
func (k Key) Len() int { return k.n }

// At returns the i-th coordinate.
func (k Key) At(i int) Coord { return k.coords[i] }

// Coords returns a copy of the coordinates.
func (k Key) Coords() []Coord {
	out := make([]Coord, k.n)
	copy(out, k.coords[:k.n])
	return out
}

func (k Key) String() string {
	parts := make([]string, k.n)
	for i := 0; i < k.n; i++ {
		parts[i] = k.coords[i].String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// compareKeys orders keys axis by axis using the grid ordering.
func compareKeys(a, b Key) int {
	for i := 0; i < a.n && i < b.n; i++ {
		if c := CompareCoords(a.coords[i], b.coords[i]); c != 0 {
			return c
		}
	}
	return a.n - b.n
}

// ============================================================================
// ANALYSIS — one grid cell
// ============================================================================

// Analysis holds everything computed for one bucket. It is not modified after Run.
type Analysis[T any] struct {
	Key     Key
	Items   []T     // bucket items in input order
	Mapped  [][]any // one list per value extractor
	Reduced []any   // one scalar per reducer

	program *Program[T]
}

// KeyLabels renders each coordinate with its dimension's Label, or TotalLabel.
func (a *Analysis[T]) KeyLabels() []string {
	labels := make([]string, a.Key.Len())
	for i := range labels {
		c := a.Key.At(i)
		if c.IsTotal() || a.program == nil || a.program.group[i] == nil {
			labels[i] = c.String()
			continue
		}
		labels[i] = a.program.group[i].Label(c.Value())
	}
	return labels
}

// ReducedLabels renders each reduced value with the Label of the extractor that fed it.
func (a *Analysis[T]) ReducedLabels() []string {
	labels := make([]string, len(a.Reduced))
	for j, v := range a.Reduced {
		if a.program == nil {
			labels[j] = DefaultLabel(v)
			continue
		}
		labels[j] = a.program.mappers[j].Label(v)
	}
	return labels
}

func (a *Analysis[T]) String() string {
	reduced := make([]string, len(a.Reduced))
	for j, v := range a.Reduced {
		reduced[j] = DefaultLabel(v)
	}
	return strings.Join(a.KeyLabels(), ", ") + " : " + strings.Join(reduced, ", ")
}
