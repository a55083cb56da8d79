package render_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/crosstab/dataset"
	"github.com/spektr-org/crosstab/engine"
	"github.com/spektr-org/crosstab/render"
	"github.com/spektr-org/crosstab/schema"
)

type sale struct {
	region  string
	product string
	qty     int
}

var sales = []sale{
	{"US", "apple", 5},
	{"EU", "pear", 1},
	{"EU", "apple", 3},
}

func salesGrid(t *testing.T) *engine.Grid[sale] {
	t.Helper()

	reg := engine.NewRegistry[sale]()
	require.NoError(t, engine.RegisterBuiltins(reg))
	require.NoError(t, reg.RegisterMapper(engine.NewMapper("region", func(s sale) any { return s.region }, nil)))
	require.NoError(t, reg.RegisterMapper(engine.NewMapper("product", func(s sale) any { return s.product }, nil)))
	require.NoError(t, reg.RegisterMapper(engine.NewMapper("qty", func(s sale) any { return s.qty }, nil)))

	f, err := reg.Build(engine.Request{Group: []string{"region", "product"}, Map: []string{"qty"}, Reduce: []string{"sum"}})
	require.NoError(t, err)
	g, err := f.Grid(reg, sales)
	require.NoError(t, err)
	return g
}

func TestBuildTable(t *testing.T) {
	t.Parallel()

	td := render.BuildTable(salesGrid(t), render.Options{
		Title:       "Sales",
		DisplayName: strings.ToUpper,
	})

	want := &render.TableData{
		Title: "Sales",
		Columns: []render.Column{
			{Key: "region", Label: "REGION"},
			{Key: "product", Label: "PRODUCT"},
			{Key: "sum_qty", Label: "sum(QTY)", Numeric: true},
		},
		Rows: [][]string{
			{"EU", "apple", "3"},
			{"EU", "pear", "1"},
			{"EU", "Total", "4"},
			{"US", "apple", "5"},
			{"US", "Total", "5"},
			{"Total", "apple", "8"},
			{"Total", "pear", "1"},
		},
		Footer: []string{"Total", "Total", "9"},
	}
	if diff := cmp.Diff(want, td); diff != "" {
		t.Errorf("BuildTable mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTableDetailOnly(t *testing.T) {
	t.Parallel()

	td := render.BuildTable(salesGrid(t), render.Options{DetailOnly: true})
	assert.Equal(t, [][]string{{"EU", "apple", "3"}, {"EU", "pear", "1"}, {"US", "apple", "5"}}, td.Rows)
	assert.Equal(t, []string{"Total", "Total", "9"}, td.Footer)
	assert.Equal(t, []string{"region", "product", "sum(qty)"}, td.Header())
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, salesGrid(t), render.FormatCSV, render.Options{DetailOnly: true}, table.StyleLight))
	assert.Equal(t, "region,product,sum_qty\nEU,apple,3\nEU,pear,1\nUS,apple,5\nTotal,Total,9\n", buf.String())
}

func TestWriteMarkdown(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, salesGrid(t), render.FormatMarkdown, render.Options{Title: "Sales"}, table.StyleLight))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Sales"), out)
	assert.Contains(t, out, "| EU | apple | 3 |")
	assert.Contains(t, out, "| Total | apple | 8 |")
	assert.Contains(t, out, "| Total | Total | 9 |")
}

func TestWriteTextAndHTML(t *testing.T) {
	t.Parallel()

	g := salesGrid(t)
	style, err := render.Style("rounded")
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, render.Write(&text, g, render.FormatTable, render.Options{}, style))
	assert.Contains(t, text.String(), "apple")
	assert.Contains(t, text.String(), "╭")

	var html bytes.Buffer
	require.NoError(t, render.Write(&html, g, render.FormatHTML, render.Options{}, style))
	assert.Contains(t, html.String(), "<table")
	assert.Contains(t, html.String(), "pear")
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, render.Write(&buf, salesGrid(t), render.FormatJSON, render.Options{}, table.StyleLight))

	var doc render.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, [][]string{{"EU", "US", "Total"}, {"apple", "pear", "Total"}}, doc.Axes)
	assert.Equal(t, []string{"region", "product"}, doc.Request.Group)
	require.Len(t, doc.Cells, 8)

	first := doc.Cells[0]
	assert.Equal(t, []any{"EU", "apple"}, first.Key)
	assert.Equal(t, []bool{false, false}, first.Total)
	assert.Equal(t, 1, first.Items)

	grand := doc.Cells[7]
	assert.Equal(t, []any{nil, nil}, grand.Key)
	assert.Equal(t, []bool{true, true}, grand.Total)
	assert.Equal(t, []string{engine.TotalLabel, engine.TotalLabel}, grand.Labels)
	assert.Equal(t, 3, grand.Items)
	assert.Equal(t, []any{float64(9)}, grand.Values)
	assert.Equal(t, []string{"9"}, grand.Display)
}

func TestWriteJSONMarksTotalsApartFromRealValues(t *testing.T) {
	t.Parallel()

	reg := engine.NewRegistry[sale]()
	require.NoError(t, engine.RegisterBuiltins(reg))
	require.NoError(t, reg.RegisterMapper(engine.NewMapper("region", func(s sale) any {
		if s.region == "" {
			return nil
		}
		return s.region
	}, nil)))

	f, err := reg.Build(engine.Request{Group: []string{"region"}, Map: []string{"self"}, Reduce: []string{"count"}})
	require.NoError(t, err)
	g, err := f.Grid(reg, []sale{{region: ""}, {region: engine.TotalLabel}, {region: engine.TotalLabel}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, render.WriteJSON(&buf, g))

	var doc render.Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Cells, 3)

	type cell struct {
		key   any
		total bool
		items int
	}
	var got []cell
	for _, c := range doc.Cells {
		got = append(got, cell{key: c.Key[0], total: c.Total[0], items: c.Items})
	}
	assert.Equal(t, []cell{
		{key: nil, total: false, items: 1},
		{key: engine.TotalLabel, total: false, items: 2},
		{key: nil, total: true, items: 3},
	}, got)
}

func TestBuildTableNaNTextColumn(t *testing.T) {
	t.Parallel()

	data := []byte("region,amount\nnorth,NaN\nsouth,NaN\neast,5\n")

	sch, err := schema.DiscoverFromCSV(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "amount"}, sch.DimensionKeys(), "NaN cells are not numbers")

	parsed, err := dataset.ParseCSV(bytes.NewReader(data), *sch)
	require.NoError(t, err)

	reg := engine.NewRegistry[dataset.Record]()
	require.NoError(t, engine.RegisterBuiltins(reg))
	require.NoError(t, dataset.RegisterSchema(reg, *sch))

	f, err := reg.Build(engine.Request{Group: []string{"amount"}, Map: []string{"self"}, Reduce: []string{"count"}})
	require.NoError(t, err)
	g, err := f.Grid(reg, parsed.Records)
	require.NoError(t, err)

	td := render.BuildTable(g, render.Options{})
	assert.Equal(t, [][]string{{"5", "1"}, {"NaN", "2"}}, td.Rows)
	assert.Equal(t, []string{engine.TotalLabel, "3"}, td.Footer)
}

func TestParseFormatAndStyle(t *testing.T) {
	t.Parallel()

	f, err := render.ParseFormat(" MD ")
	require.NoError(t, err)
	assert.Equal(t, render.FormatMarkdown, f)

	f, err = render.ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, render.FormatCSV, f)

	_, err = render.ParseFormat("xlsx")
	assert.ErrorIs(t, err, render.ErrUnknownFormat)

	_, err = render.Style("neon")
	assert.ErrorIs(t, err, render.ErrUnknownStyle)

	s, err := render.Style("")
	require.NoError(t, err)
	assert.Equal(t, table.StyleLight.Name, s.Name)

	err = render.Write(&bytes.Buffer{}, salesGrid(t), render.Format("xlsx"), render.Options{}, s)
	assert.ErrorIs(t, err, render.ErrUnknownFormat)
}
