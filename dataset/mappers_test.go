package dataset_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/crosstab/dataset"
	"github.com/spektr-org/crosstab/engine"
)

func record(dims map[string]string, measures map[string]float64) dataset.Record {
	r := dataset.NewRecord()
	for k, v := range dims {
		r.Dimensions[k] = v
	}
	for k, v := range measures {
		r.Measures[k] = v
	}
	return r
}

func TestDimensionMapper(t *testing.T) {
	t.Parallel()

	m := dataset.DimensionMapper("type")
	assert.Equal(t, "type", m.Name())
	assert.Equal(t, "Quote", m.Map(record(map[string]string{"type": "Quote"}, nil)))
	assert.Nil(t, m.Map(dataset.NewRecord()), "unset dimension maps to nil")
}

func TestTemporalMappers(t *testing.T) {
	t.Parallel()

	r := record(map[string]string{"date": "2020-02-07"}, nil)

	year := dataset.YearMapper("date", time.DateOnly)
	assert.Equal(t, "date_year", year.Name())
	assert.Equal(t, 2020, year.Map(r))
	assert.Nil(t, year.Map(record(map[string]string{"date": "not a date"}, nil)))

	month := dataset.MonthMapper("date", time.DateOnly)
	v := month.Map(r)
	assert.Equal(t, time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC), v)
	assert.Equal(t, "February 2020", month.Label(v))
}

func TestMeasureMappers(t *testing.T) {
	t.Parallel()

	r := record(nil, map[string]float64{"amount": 23000})

	amount := dataset.MeasureMapper("amount")
	assert.InDelta(t, 23000.0, amount.Map(r), 0)
	assert.InDelta(t, 0.0, amount.Map(dataset.NewRecord()), 0, "unset measure reads as zero")

	scale := dataset.ScaleMapper("amount")
	assert.Equal(t, "amount_scale", scale.Name())
	assert.Equal(t, 4, scale.Map(r))
	assert.Equal(t, "10,000+", scale.Label(4))
	assert.Equal(t, 0, scale.Map(record(nil, map[string]float64{"amount": 9})))
	assert.Equal(t, -1, scale.Map(record(nil, map[string]float64{"amount": 0.5})))
	assert.Nil(t, scale.Map(dataset.NewRecord()))
	assert.Nil(t, scale.Map(record(nil, map[string]float64{"amount": math.Inf(1)})))
	assert.Nil(t, scale.Map(record(nil, map[string]float64{"amount": math.Inf(-1)})))
	assert.Nil(t, scale.Map(record(nil, map[string]float64{"amount": math.NaN()})))
}

func TestNumberLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "26,897.81", dataset.NumberLabel(26897.8125))
	assert.Equal(t, "430,365", dataset.NumberLabel(int64(430365)))
	assert.Equal(t, "16", dataset.NumberLabel(16))
	assert.Equal(t, "n/a", dataset.NumberLabel("n/a"))
}

func TestSchemaMappers(t *testing.T) {
	t.Parallel()

	var names []string
	for _, m := range dataset.SchemaMappers(invoiceSchema()) {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"type", "date", "date_year", "date_month", "amount", "amount_scale", "record_count"}, names)
}

func TestScaleByTypeOverCSV(t *testing.T) {
	t.Parallel()

	reg := invoiceRegistry(t)
	f, err := reg.Build(engine.Request{Group: []string{"amount_scale", "type"}, Map: []string{"amount"}, Reduce: []string{"sum"}})
	require.NoError(t, err)

	g, err := f.Grid(reg, parseInvoices(t))
	require.NoError(t, err)

	a, err := g.At(engine.Real(4), engine.Real("SalesCreditNote"))
	require.NoError(t, err)
	assert.InDelta(t, 23000.0, a.Reduced[0], 0)

	a, err = g.At(engine.Real(1), engine.Total)
	require.NoError(t, err)
	assert.InDelta(t, 53.0+59+23, a.Reduced[0], 0)
	assert.Equal(t, "10+", g.GroupLabel(0, engine.Real(1)))
	assert.Equal(t, engine.TotalLabel, g.GroupLabel(1, engine.Total))
}
