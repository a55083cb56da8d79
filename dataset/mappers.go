package dataset

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/spektr-org/crosstab/engine"
	"github.com/spektr-org/crosstab/schema"
)

// Suffixes of mappers derived from a column.
const (
	YearSuffix  = "_year"
	MonthSuffix = "_month"
	ScaleSuffix = "_scale"
)

// MonthLabelLayout renders month buckets, e.g. "February 2020".
const MonthLabelLayout = "January 2006"

// DimensionMapper maps a Record to a dimension's string value, or nil when unset.
func DimensionMapper(key string) engine.Mapper[Record] {
	return engine.NewMapper(key, func(r Record) any {
		if v, ok := r.Dimensions[key]; ok {
			return v
		}
		return nil
	}, nil)
}

// MeasureMapper maps a Record to a measure value. Unset measures read as 0.
func MeasureMapper(key string) engine.Mapper[Record] {
	return engine.NewMapper(key, func(r Record) any { return r.Measures[key] }, NumberLabel)
}

// NumberLabel renders numbers with thousands separators and at most two decimals.
func NumberLabel(v any) string {
	switch x := v.(type) {
	case float64:
		return humanize.CommafWithDigits(x, 2)
	case float32:
		return humanize.CommafWithDigits(float64(x), 2)
	case int:
		return humanize.Comma(int64(x))
	case int64:
		return humanize.Comma(x)
	}
	return engine.DefaultLabel(v)
}

// YearMapper maps a temporal dimension to its calendar year (int), or nil
// when the value does not parse with layout.
func YearMapper(key, layout string) engine.Mapper[Record] {
	return engine.NewMapper(key+YearSuffix, func(r Record) any {
		t, ok := parseTime(r, key, layout)
		if !ok {
			return nil
		}
		return t.Year()
	}, nil)
}

// MonthMapper maps a temporal dimension to the first day of its month (UTC),
// labelled like "February 2020".
func MonthMapper(key, layout string) engine.Mapper[Record] {
	return engine.NewMapper(key+MonthSuffix, func(r Record) any {
		t, ok := parseTime(r, key, layout)
		if !ok {
			return nil
		}
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}, func(v any) string {
		if t, ok := v.(time.Time); ok {
			return t.Format(MonthLabelLayout)
		}
		return engine.DefaultLabel(v)
	})
}

func parseTime(r Record, key, layout string) (time.Time, bool) {
	s, ok := r.Dimensions[key]
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, s)
	return t, err == nil
}

// ScaleMapper buckets a measure by order of magnitude: int(log10(|v|)).
// Zero, infinities and NaN have no magnitude and map to nil.
func ScaleMapper(key string) engine.Mapper[Record] {
	return engine.NewMapper(key+ScaleSuffix, func(r Record) any {
		v := math.Abs(r.Measures[key])
		if v == 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil
		}
		return int(math.Floor(math.Log10(v)))
	}, scaleLabel)
}

func scaleLabel(v any) string {
	n, ok := v.(int)
	if !ok {
		return engine.DefaultLabel(v)
	}
	if n < 0 {
		return fmt.Sprintf("< 1 (1e%d)", n)
	}
	return humanize.Comma(int64(math.Pow10(n))) + "+"
}

// SchemaMappers returns every mapper a schema implies: one per dimension,
// year and month per parseable temporal dimension, one per measure, and a
// scale per non-synthetic measure.
func SchemaMappers(sch schema.Config) []engine.Mapper[Record] {
	var mappers []engine.Mapper[Record]
	for _, d := range sch.Dimensions {
		mappers = append(mappers, DimensionMapper(d.Key))
		if d.IsTemporal && d.Layout != "" {
			mappers = append(mappers, YearMapper(d.Key, d.Layout), MonthMapper(d.Key, d.Layout))
		}
	}
	for _, m := range sch.Measures {
		mappers = append(mappers, MeasureMapper(m.Key))
		if !m.IsSynthetic {
			mappers = append(mappers, ScaleMapper(m.Key))
		}
	}
	return mappers
}

// RegisterSchema registers the schema's mappers and saved requests in reg.
// Built-in reducers are not included; see engine.RegisterBuiltins.
func RegisterSchema(reg *engine.Registry[Record], sch schema.Config) error {
	for _, m := range SchemaMappers(sch) {
		if err := reg.RegisterMapper(m); err != nil {
			return fmt.Errorf("register mapper %q: %w", m.Name(), err)
		}
	}
	for _, req := range sch.Requests {
		if err := reg.RegisterFactory(req); err != nil {
			return fmt.Errorf("register request %q: %w", req.Name, err)
		}
	}
	return nil
}
