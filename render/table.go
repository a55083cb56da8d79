// Package render turns cube grids into tables and documents for display.
package render

import (
	"fmt"
	"strings"

	"github.com/spektr-org/crosstab/engine"
)

// ============================================================================
// TABLE BUILDER — Produces TableData from a Grid
// ============================================================================
// One row per grid cell, in grid order: axis by axis, natural order, Total
// last. Group columns come first, then one column per reducer.
// The all-Total cell becomes the footer.
// ============================================================================

// Column describes one table column.
type Column struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Numeric bool   `json:"numeric,omitempty"`
}

// TableData is a render-ready table.
type TableData struct {
	Title   string     `json:"title,omitempty"`
	Columns []Column   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Footer  []string   `json:"footer,omitempty"`
}

// Options controls table building.
type Options struct {
	Title string
	// DisplayName maps a mapper or reducer name to a column label. Nil keeps names as is.
	DisplayName func(name string) string
	// DetailOnly drops rows with any Total coordinate except the grand total footer.
	DetailOnly bool
}

func (o Options) label(name string) string {
	if o.DisplayName == nil {
		return name
	}
	return o.DisplayName(name)
}

// BuildTable lays out a grid as a table.
func BuildTable[T any](g *engine.Grid[T], opts Options) *TableData {
	req := g.Request()

	columns := make([]Column, 0, len(req.Group)+len(req.Reduce))
	for _, name := range req.Group {
		columns = append(columns, Column{Key: name, Label: opts.label(name)})
	}
	for j := range req.Reduce {
		columns = append(columns, Column{
			Key:     ReducerColumnKey(req, j),
			Label:   fmt.Sprintf("%s(%s)", req.Reduce[j], opts.label(req.Map[j])),
			Numeric: true,
		})
	}

	td := &TableData{Title: opts.Title, Columns: columns, Rows: [][]string{}}
	for _, a := range g.Cells() {
		row := rowFor(g, a)
		switch total := totals(a.Key); {
		case a.Key.Len() > 0 && total == a.Key.Len():
			td.Footer = row
		case total > 0 && opts.DetailOnly:
			// subtotal dropped
		default:
			td.Rows = append(td.Rows, row)
		}
	}
	return td
}

// ReducerColumnKey names reducer column j, e.g. "sum_amount".
func ReducerColumnKey(req engine.Request, j int) string {
	return req.Reduce[j] + "_" + req.Map[j]
}

func rowFor[T any](g *engine.Grid[T], a *engine.Analysis[T]) []string {
	row := make([]string, 0, a.Key.Len()+len(a.Reduced))
	for i := 0; i < a.Key.Len(); i++ {
		row = append(row, g.GroupLabel(i, a.Key.At(i)))
	}
	for j, v := range a.Reduced {
		row = append(row, g.ReducedLabel(j, v))
	}
	return row
}

func totals(k engine.Key) int {
	n := 0
	for i := 0; i < k.Len(); i++ {
		if k.At(i).IsTotal() {
			n++
		}
	}
	return n
}

// Header returns the column labels.
func (t *TableData) Header() []string {
	h := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		h[i] = c.Label
	}
	return h
}

func (t *TableData) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Header(), " | "))
	for _, row := range t.Rows {
		b.WriteString("\n")
		b.WriteString(strings.Join(row, " | "))
	}
	if t.Footer != nil {
		b.WriteString("\n")
		b.WriteString(strings.Join(t.Footer, " | "))
	}
	return b.String()
}
