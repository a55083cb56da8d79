package engine

import (
	"fmt"
	"sort"
)

// ============================================================================
// REDUCERS — built-in aggregations
// ============================================================================
// Sum/Average/Min/Max/Latest are undefined on empty input and return
// ErrEmptyInput. Count and CountUnique return 0.
// ============================================================================

// RegisterBuiltins registers Self and every stateless built-in reducer.
// Latest needs an attribute and is registered by the caller.
func RegisterBuiltins[T any](reg *Registry[T]) error {
	if err := reg.RegisterMapper(Self[T]{}); err != nil {
		return err
	}
	for _, r := range []Reducer{Sum{}, Count{}, CountUnique{}, Average{}, Min{}, Max{}} {
		if err := reg.RegisterReducer(r); err != nil {
			return err
		}
	}
	return nil
}

// Sum adds numeric values. Integer inputs produce int64; any float, or an
// integer total that would overflow int64, produces float64.
type Sum struct{}

func (Sum) Name() string { return "sum" }

func (Sum) Reduce(values []any) (any, error) {
	total, err := sumValues(values)
	if err != nil {
		return nil, fmt.Errorf("sum: %w", err)
	}
	if total.isInt {
		return total.i, nil
	}
	return total.f, nil
}

// Count counts values, duplicates included.
type Count struct{}

func (Count) Name() string                     { return "count" }
func (Count) Reduce(values []any) (any, error) { return len(values), nil }

// CountUnique counts distinct values by equality.
type CountUnique struct{}

func (CountUnique) Name() string { return "count_unique" }

func (CountUnique) Reduce(values []any) (any, error) {
	seen := make(map[any]struct{}, len(values))
	for _, v := range values {
		if !isComparable(v) {
			return nil, fmt.Errorf("count_unique: %w: %T", ErrIncomparableValue, v)
		}
		seen[v] = struct{}{}
	}
	return len(seen), nil
}

// Average divides the sum by the count as float64.
type Average struct{}

func (Average) Name() string { return "average" }

func (Average) Reduce(values []any) (any, error) {
	total, err := sumValues(values)
	if err != nil {
		return nil, fmt.Errorf("average: %w", err)
	}
	return total.float() / float64(len(values)), nil
}

// Min returns the smallest value by natural order.
type Min struct{}

func (Min) Name() string { return "min" }

func (Min) Reduce(values []any) (any, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("min: %w", ErrEmptyInput)
	}
	m := values[0]
	for _, v := range values[1:] {
		if CompareValues(v, m) < 0 {
			m = v
		}
	}
	return m, nil
}

// Max returns the largest value by natural order. Among equals the first wins.
type Max struct{}

func (Max) Name() string { return "max" }

func (Max) Reduce(values []any) (any, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("max: %w", ErrEmptyInput)
	}
	m := values[0]
	for _, v := range values[1:] {
		if CompareValues(v, m) > 0 {
			m = v
		}
	}
	return m, nil
}

// Latest returns the value with the greatest attribute. Ties go to the last one in input order.
type Latest struct {
	name      string
	attribute func(any) any
}

// NewLatest builds a Latest reducer ordering by attribute. An empty name
// defaults to "latest" and a nil attribute orders by the value itself.
func NewLatest(name string, attribute func(any) any) *Latest {
	if name == "" {
		name = "latest"
	}
	if attribute == nil {
		attribute = func(v any) any { return v }
	}
	return &Latest{name: name, attribute: attribute}
}

func (l *Latest) Name() string { return l.name }

func (l *Latest) Reduce(values []any) (any, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w", l.name, ErrEmptyInput)
	}
	sorted := make([]any, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareValues(l.attribute(sorted[i]), l.attribute(sorted[j])) < 0
	})
	return sorted[len(sorted)-1], nil
}

func sumValues(values []any) (number, error) {
	if len(values) == 0 {
		return number{}, ErrEmptyInput
	}
	total := number{isInt: true}
	for _, v := range values {
		n, ok := toNumber(v)
		if !ok {
			return number{}, fmt.Errorf("%w: %T", ErrNotNumeric, v)
		}
		switch {
		case total.isInt && n.isInt:
			if sum, ok := addInt64(total.i, n.i); ok {
				total.i = sum
			} else {
				total = number{f: float64(total.i) + float64(n.i)}
			}
		case total.isInt:
			total = number{f: float64(total.i) + n.f}
		default:
			total.f += n.float()
		}
	}
	return total, nil
}

// addInt64 adds a and b, reporting false when the result would wrap.
func addInt64(a, b int64) (int64, bool) {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		return 0, false
	}
	return sum, true
}
