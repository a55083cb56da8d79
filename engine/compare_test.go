package engine

import (
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

type version struct{ major, minor int }

type tag string

func (v version) Compare(other any) int {
	o := other.(version)
	if v.major != o.major {
		return v.major - o.major
	}
	return v.minor - o.minor
}

func TestCompareCoords(t *testing.T) {
	t.Parallel()

	t.Run("total_sorts_last", func(t *testing.T) {
		t.Parallel()

		for _, v := range []any{nil, 0, -1e9, "zzz", "__total__", true, time.Now(), version{9, 9}} {
			assert.Equal(t, 1, CompareCoords(Total, Real(v)), "%v", v)
			assert.Equal(t, -1, CompareCoords(Real(v), Total), "%v", v)
		}
		assert.Equal(t, 0, CompareCoords(Total, Total))
	})

	t.Run("nil_sorts_first", func(t *testing.T) {
		t.Parallel()

		for _, v := range []any{0, -1e9, "", false} {
			assert.Equal(t, -1, CompareCoords(Real(nil), Real(v)), "%v", v)
		}
	})

	t.Run("real_value_equal_to_marker_text_is_not_total", func(t *testing.T) {
		t.Parallel()

		assert.NotEqual(t, Total, Real("Total"))
		assert.NotEqual(t, Total, Real(nil))
		assert.False(t, Real(nil).IsTotal())
	})
}

func TestCompareValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b any
		want int
	}{
		{name: "ints", a: 1, b: 2, want: -1},
		{name: "int_vs_float", a: 3, b: 2.5, want: 1},
		{name: "uint_vs_negative", a: uint(1), b: -1, want: 1},
		{name: "strings", a: "Order", b: "Quote", want: -1},
		{name: "bools", a: false, b: true, want: -1},
		{name: "times", a: day("2021-01-01"), b: day("2020-01-01"), want: 1},
		{name: "comparer", a: version{1, 2}, b: version{1, 10}, want: -1},
		{name: "numbers_before_strings", a: 100, b: "1", want: -1},
		{name: "equal", a: "x", b: "x", want: 0},
		{name: "equal_same_kind", a: int64(3), b: int64(3), want: 0},
		{name: "equal_numbers_order_by_type", a: 3.0, b: 3, want: -1},
		{name: "int_before_int64", a: 3, b: int64(3), want: -1},
		{name: "named_string_by_type", a: tag("a"), b: "a", want: -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CompareValues(tt.a, tt.b)
			assert.Equal(t, tt.want, sign(got))
			assert.Equal(t, -tt.want, sign(CompareValues(tt.b, tt.a)), "antisymmetric")
		})
	}
}

func TestCompareIsTotalOrder(t *testing.T) {
	t.Parallel()

	coords := []Coord{
		Total, Real("b"), Real(2), Real(nil), Real(day("2020-05-01")),
		Real(1.5), Real("a"), Real(true), Real(version{1, 0}), Real(struct{ x int }{1}),
		Real(int64(2)), Real(2.0), Real(tag("a")),
	}

	for _, a := range coords {
		assert.Equal(t, 0, CompareCoords(a, a), "irreflexive: %v", a)
		for _, b := range coords {
			ab, ba := sign(CompareCoords(a, b)), sign(CompareCoords(b, a))
			assert.Equal(t, -ab, ba, "trichotomy: %v %v", a, b)
			for _, c := range coords {
				if ab < 0 && CompareCoords(b, c) < 0 {
					assert.Negative(t, CompareCoords(a, c), "transitive: %v %v %v", a, b, c)
				}
			}
		}
	}

	sorted := append([]Coord(nil), coords...)
	sort.Slice(sorted, func(i, j int) bool { return CompareCoords(sorted[i], sorted[j]) < 0 })

	var labels []string
	for _, c := range sorted {
		labels = append(labels, c.String())
	}
	want := []string{"", "1.5", "2", "2", "2", "a", "a", "b", "true", "2020-05-01", "{1 0}", "{1}", TotalLabel}
	if diff := cmp.Diff(want, labels); diff != "" {
		t.Errorf("sorted coordinates mismatch (-want +got):\n%s", diff)
	}

	// Equal numbers and strings of different types are distinct keys and keep a fixed order.
	assert.Equal(t, []Coord{Real(2.0), Real(2), Real(int64(2))}, sorted[2:5])
	assert.Equal(t, []Coord{Real(tag("a")), Real("a")}, sorted[5:7])
}

func TestIsComparable(t *testing.T) {
	t.Parallel()

	type holder struct{ v any }

	assert.True(t, isComparable(nil))
	assert.True(t, isComparable(holder{v: 1}))
	assert.False(t, isComparable([]int{1}))
	assert.False(t, isComparable(map[string]int{}))
	assert.False(t, isComparable(holder{v: []int{1}}))
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
