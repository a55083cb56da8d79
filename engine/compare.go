package engine

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"time"
)

// ============================================================================
// ORDERING — natural order over mapped values
// ============================================================================
// Grid axes mix whatever dimension mappers return: ints, floats, strings,
// dates. CompareValues gives them one total order:
//
//   nil < numbers < strings < bools < times < everything else
//
// Numbers compare numerically across kinds. Equal numbers or strings of
// different types (int 3, float64 3) then order by type name, so distinct
// map keys never compare equal. Unknown types fall back to type name, then
// printed form.
// ============================================================================

// Comparer lets a mapped value define its own ordering against values of the same type.
type Comparer interface {
	Compare(other any) int
}

const (
	rankNil = iota
	rankNumber
	rankString
	rankBool
	rankTime
	rankComparer
	rankOther
)

// CompareCoords orders coordinates: Total after every real value.
func CompareCoords(a, b Coord) int {
	switch {
	case a.total && b.total:
		return 0
	case a.total:
		return 1
	case b.total:
		return -1
	}
	return CompareValues(a.value, b.value)
}

// CompareValues returns -1, 0 or +1 following the natural order described above.
func CompareValues(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch ra {
	case rankNil:
		return 0
	case rankNumber:
		if c := compareNumbers(a, b); c != 0 || reflect.TypeOf(a) == reflect.TypeOf(b) {
			return c
		}
	case rankString:
		if c := cmp.Compare(reflect.ValueOf(a).String(), reflect.ValueOf(b).String()); c != 0 || reflect.TypeOf(a) == reflect.TypeOf(b) {
			return c
		}
	case rankBool:
		return compareBools(a.(bool), b.(bool))
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time))
	case rankComparer:
		if reflect.TypeOf(a) == reflect.TypeOf(b) {
			return a.(Comparer).Compare(b)
		}
	}

	ta, tb := reflect.TypeOf(a).String(), reflect.TypeOf(b).String()
	if c := cmp.Compare(ta, tb); c != 0 {
		return c
	}
	return cmp.Compare(fmt.Sprintf("%#v", a), fmt.Sprintf("%#v", b))
}

func rank(v any) int {
	if v == nil {
		return rankNil
	}
	switch v.(type) {
	case bool:
		return rankBool
	case time.Time:
		return rankTime
	case Comparer:
		return rankComparer
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return rankNumber
	case reflect.String:
		return rankString
	}
	return rankOther
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareNumbers(a, b any) int {
	na, _ := toNumber(a)
	nb, _ := toNumber(b)
	if na.isInt && nb.isInt {
		return cmp.Compare(na.i, nb.i)
	}
	return cmp.Compare(na.float(), nb.float())
}

// ============================================================================
// NUMERIC COERCION
// ============================================================================

// number is a mapped value widened to int64 or float64.
type number struct {
	i     int64
	f     float64
	isInt bool
}

func (n number) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

func toNumber(v any) (number, bool) {
	if v == nil {
		return number{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: rv.Int(), isInt: true}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return number{f: float64(u)}, true
		}
		return number{i: int64(u), isInt: true}, true
	case reflect.Float32, reflect.Float64:
		return number{f: rv.Float()}, true
	}
	return number{}, false
}

// isComparable reports whether v can be used with == without panicking.
func isComparable(v any) bool {
	if v == nil {
		return true
	}
	return reflect.TypeOf(v).Comparable() && comparableDeep(reflect.ValueOf(v))
}

// comparableDeep catches interface-typed fields holding slices or maps,
// which pass the static Comparable check but panic on ==.
func comparableDeep(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return true
		}
		elem := rv.Elem()
		return elem.Type().Comparable() && comparableDeep(elem)
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if !comparableDeep(rv.Field(i)) {
				return false
			}
		}
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !comparableDeep(rv.Index(i)) {
				return false
			}
		}
	}
	return true
}

// hasNaN reports whether v holds a floating-point NaN anywhere in it.
// NaN never equals itself, so such a value cannot key a bucket.
func hasNaN(v any) bool {
	return nanDeep(reflect.ValueOf(v))
}

func nanDeep(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return math.IsNaN(rv.Float())
	case reflect.Complex64, reflect.Complex128:
		c := rv.Complex()
		return math.IsNaN(real(c)) || math.IsNaN(imag(c))
	case reflect.Interface:
		return !rv.IsNil() && nanDeep(rv.Elem())
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if nanDeep(rv.Field(i)) {
				return true
			}
		}
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if nanDeep(rv.Index(i)) {
				return true
			}
		}
	}
	return false
}
