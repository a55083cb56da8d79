package render

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/spektr-org/crosstab/engine"
)

// Format is an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists every supported output format.
var Formats = []Format{FormatTable, FormatMarkdown, FormatHTML, FormatCSV, FormatJSON}

// Sentinel errors.
var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrUnknownStyle  = errors.New("unknown table style")
)

// ParseFormat accepts a format name in any case; "md" is short for markdown.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "md" {
		return FormatMarkdown, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

var styles = map[string]table.Style{
	"default": table.StyleDefault,
	"light":   table.StyleLight,
	"rounded": table.StyleRounded,
	"bold":    table.StyleBold,
	"double":  table.StyleDouble,
	"colored": table.StyleColoredBright,
}

// Style resolves a table style by name. The empty name means "light".
func Style(name string) (table.Style, error) {
	if name == "" {
		return table.StyleLight, nil
	}
	s, ok := styles[strings.ToLower(name)]
	if !ok {
		return table.Style{}, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
	}
	return s, nil
}

// ============================================================================
// TABLE OUTPUT
// ============================================================================

func newWriter(td *TableData, style table.Style) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(style)
	if td.Title != "" {
		tw.SetTitle(td.Title)
	}

	header := make(table.Row, len(td.Columns))
	configs := make([]table.ColumnConfig, len(td.Columns))
	for i, c := range td.Columns {
		header[i] = c.Label
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft}
		if c.Numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range td.Rows {
		tw.AppendRow(toRow(row))
	}
	if td.Footer != nil {
		tw.AppendFooter(toRow(td.Footer))
	}
	return tw
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// WriteText renders td as a box-drawn text table.
func WriteText(w io.Writer, td *TableData, style table.Style) error {
	_, err := io.WriteString(w, newWriter(td, style).Render()+"\n")
	return err
}

// WriteMarkdown renders td as a Markdown table.
func WriteMarkdown(w io.Writer, td *TableData) error {
	_, err := io.WriteString(w, newWriter(td, table.StyleDefault).RenderMarkdown()+"\n")
	return err
}

// WriteHTML renders td as an HTML table.
func WriteHTML(w io.Writer, td *TableData) error {
	_, err := io.WriteString(w, newWriter(td, table.StyleDefault).RenderHTML()+"\n")
	return err
}

// WriteCSV renders td as RFC 4180 CSV: header, rows, then the footer row.
func WriteCSV(w io.Writer, td *TableData) error {
	cw := csv.NewWriter(w)
	keys := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		keys[i] = c.Key
	}
	if err := cw.Write(keys); err != nil {
		return err
	}
	if err := cw.WriteAll(td.Rows); err != nil {
		return err
	}
	if td.Footer != nil {
		if err := cw.Write(td.Footer); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ============================================================================
// JSON OUTPUT
// ============================================================================

// Document is the JSON form of a grid. Values are the raw reduced scalars;
// labels are their display forms.
type Document struct {
	Request engine.Request `json:"request"`
	Axes    [][]string     `json:"axes"`
	Cells   []CellDocument `json:"cells"`
}

// CellDocument is one grid cell. Total[i] marks a collapsed coordinate; its
// Key entry is null. A real null or "Total" value has Total[i] false.
type CellDocument struct {
	Key     []any    `json:"key"`
	Total   []bool   `json:"total"`
	Labels  []string `json:"labels"`
	Items   int      `json:"items"`
	Values  []any    `json:"values"`
	Display []string `json:"display"`
}

// NewDocument converts a grid into its JSON document form.
func NewDocument[T any](g *engine.Grid[T]) Document {
	doc := Document{Request: g.Request(), Axes: make([][]string, g.Axes())}
	for i := range doc.Axes {
		for _, c := range g.AxisValues(i) {
			doc.Axes[i] = append(doc.Axes[i], g.GroupLabel(i, c))
		}
	}

	for _, a := range g.Cells() {
		cell := CellDocument{
			Key:     make([]any, a.Key.Len()),
			Total:   make([]bool, a.Key.Len()),
			Labels:  make([]string, a.Key.Len()),
			Items:   len(a.Items),
			Values:  a.Reduced,
			Display: make([]string, len(a.Reduced)),
		}
		for i := range cell.Key {
			c := a.Key.At(i)
			cell.Key[i] = c.Value()
			cell.Total[i] = c.IsTotal()
			cell.Labels[i] = g.GroupLabel(i, c)
		}
		for j, v := range a.Reduced {
			cell.Display[j] = g.ReducedLabel(j, v)
		}
		doc.Cells = append(doc.Cells, cell)
	}
	return doc
}

// WriteJSON writes the grid as an indented JSON document.
func WriteJSON[T any](w io.Writer, g *engine.Grid[T]) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(g))
}

// ============================================================================
// DISPATCH
// ============================================================================

// Write renders g in the given format. opts and style apply to table formats.
func Write[T any](w io.Writer, g *engine.Grid[T], format Format, opts Options, style table.Style) error {
	if format == FormatJSON {
		return WriteJSON(w, g)
	}

	td := BuildTable(g, opts)
	switch format {
	case FormatTable:
		return WriteText(w, td, style)
	case FormatMarkdown:
		return WriteMarkdown(w, td)
	case FormatHTML:
		return WriteHTML(w, td)
	case FormatCSV:
		return WriteCSV(w, td)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}
