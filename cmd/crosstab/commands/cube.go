package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/spektr-org/crosstab/dataset"
	"github.com/spektr-org/crosstab/engine"
	"github.com/spektr-org/crosstab/render"
	"github.com/spektr-org/crosstab/schema"
)

// CubeCommand holds the flags for the cube command.
type CubeCommand struct {
	app *App

	file       string
	schemaPath string
	request    requestFlags
	filters    []string
	format     string
	style      string
	output     string
	title      string
	detailOnly bool
	workers    int
	metrics    bool
	trace      bool
}

// NewCubeCommand creates and configures the cube command.
func NewCubeCommand(app *App) *cobra.Command {
	c := &CubeCommand{app: app}

	cobraCmd := &cobra.Command{
		Use:   "cube",
		Short: "Build a cube from a CSV file and render it",
		Long: `Build every subtotal of a grouping over a CSV file.

The request comes from --request (a YAML or JSON file), --name (a request
saved in the schema) or the --group/--map/--reduce flags. Without --schema
the schema is discovered from the data.`,
		Example: `  crosstab cube --file invoices.csv --group date_year,type --reduce count
  crosstab cube --file invoices.csv --group date_year --map amount --reduce sum,average --format markdown
  crosstab cube --file invoices.csv --schema invoices.yaml --name yearly --filter type=SalesInvoice`,
		RunE: c.Run,
	}

	flags := cobraCmd.Flags()
	flags.StringVarP(&c.file, "file", "f", "", "CSV data file (required)")
	flags.StringVarP(&c.schemaPath, "schema", "s", "", "schema file (default: discover from data)")
	flags.StringVarP(&c.request.file, "request", "r", "", "request file")
	flags.StringVarP(&c.request.name, "name", "n", "", "saved request name from the schema")
	flags.StringSliceVarP(&c.request.group, "group", "g", nil, "grouping dimensions (comma-separated)")
	flags.StringSliceVarP(&c.request.mapTo, "map", "m", nil, "value extractors, one per reducer")
	flags.StringSliceVar(&c.request.reduce, "reduce", nil, "reducers, one per value extractor")
	flags.StringArrayVar(&c.filters, "filter", nil, "keep records where key=v1,v2 (repeatable)")
	flags.StringVar(&c.format, "format", "", "output format: table, markdown, html, csv or json (default from config)")
	flags.StringVar(&c.style, "style", "", "table style: default, light, rounded, bold, double or colored")
	flags.StringVarP(&c.output, "out", "o", "", "output file (default: stdout)")
	flags.StringVar(&c.title, "title", "", "table title (default: schema name)")
	flags.BoolVar(&c.detailOnly, "detail", false, "drop subtotal rows, keep the grand total")
	flags.IntVarP(&c.workers, "workers", "w", -1, "patterns built concurrently (default from config)")
	flags.BoolVar(&c.metrics, "metrics", false, "print build metrics to stderr")
	flags.BoolVar(&c.trace, "trace", false, "print build spans to stderr")

	return cobraCmd
}

// Run executes the cube command.
func (c *CubeCommand) Run(cmd *cobra.Command, _ []string) error {
	cfg := c.app.Config
	logger := c.app.Logger
	stderr := cmd.ErrOrStderr()

	format, style, err := c.outputSettings()
	if err != nil {
		return err
	}

	maxSize, err := cfg.Input.MaxSizeBytes()
	if err != nil {
		return err
	}
	data, err := readInput(c.file, maxSize)
	if err != nil {
		return err
	}

	sch, err := c.loadSchema(data)
	if err != nil {
		return err
	}

	parsed, err := dataset.ParseCSV(bytes.NewReader(data), *sch)
	if err != nil {
		return err
	}
	if parsed.Skipped > 0 {
		warn(stderr, "Skipped %s malformed rows", humanize.Comma(int64(parsed.Skipped)))
	}
	records := parsed.Records

	filters, err := dataset.ParseFilters(c.filters)
	if err != nil {
		return err
	}
	if !filters.IsEmpty() {
		records = dataset.ApplyFilters(records, filters)
		logger.Debug("filters applied", "filters", filters.String(), "kept", len(records), "parsed", len(parsed.Records))
	}

	reg := engine.NewRegistry[dataset.Record]()
	if err := engine.RegisterBuiltins(reg); err != nil {
		return err
	}
	if err := dataset.RegisterSchema(reg, *sch); err != nil {
		return err
	}

	req, err := resolveRequest(c.request, sch, reg)
	if err != nil {
		return err
	}

	opts := []engine.Option{engine.WithLogger(logger), engine.WithWorkers(c.workerCount())}

	promReg := prometheus.NewRegistry()
	if c.metrics {
		m, err := engine.NewMetrics(promReg)
		if err != nil {
			return err
		}
		opts = append(opts, engine.WithMetrics(m))
	}

	var spans *tracetest.InMemoryExporter
	if c.trace {
		spans = tracetest.NewInMemoryExporter()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
		defer func() { _ = tp.Shutdown(cmd.Context()) }()
		opts = append(opts, engine.WithTracerProvider(tp))
	}

	factory, err := reg.Build(req, opts...)
	if err != nil {
		return err
	}

	start := time.Now()
	grid, err := factory.GridContext(cmd.Context(), reg, records)
	if err != nil {
		return err
	}
	status(stderr, "Built %s cells from %s records in %s",
		humanize.Comma(int64(grid.Len())), humanize.Comma(int64(len(records))), time.Since(start).Round(time.Microsecond))

	if c.metrics {
		if err := writeMetrics(stderr, promReg); err != nil {
			return err
		}
	}
	if spans != nil {
		writeSpans(stderr, spans.GetSpans())
	}

	return c.write(cmd.OutOrStdout(), grid, sch, format, style)
}

func (c *CubeCommand) outputSettings() (render.Format, string, error) {
	out := c.app.Config.Output

	name := c.format
	if name == "" {
		name = out.Format
	}
	format, err := render.ParseFormat(name)
	if err != nil {
		return "", "", err
	}

	style := c.style
	if style == "" {
		style = out.Style
	}
	if _, err := render.Style(style); err != nil {
		return "", "", err
	}
	return format, style, nil
}

func (c *CubeCommand) workerCount() int {
	if c.workers >= 0 {
		return c.workers
	}
	return c.app.Config.Cube.Workers
}

func (c *CubeCommand) loadSchema(data []byte) (*schema.Config, error) {
	if c.schemaPath != "" {
		sch, err := schema.Load(c.schemaPath)
		if err != nil {
			return nil, err
		}
		c.app.Logger.Debug("schema loaded", "path", c.schemaPath, "dimensions", len(sch.Dimensions), "measures", len(sch.Measures))
		return sch, nil
	}

	opts := schema.DefaultDiscoverOptions()
	opts.SampleSize = c.app.Config.Discover.SampleSize
	sch, err := schema.DiscoverFromCSV(data, opts)
	if err != nil {
		return nil, err
	}
	c.app.Logger.Debug("schema discovered", "dimensions", sch.DimensionKeys(), "measures", sch.MeasureKeys())
	return sch, nil
}

func (c *CubeCommand) write(stdout io.Writer, grid *engine.Grid[dataset.Record], sch *schema.Config, format render.Format, styleName string) (err error) {
	w := stdout
	if c.output != "" {
		f, createErr := os.Create(c.output)
		if createErr != nil {
			return fmt.Errorf("create output: %w", createErr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	style, err := render.Style(styleName)
	if err != nil {
		return err
	}

	title := c.title
	if title == "" && format != render.FormatCSV {
		title = sch.Name
	}

	opts := render.Options{
		Title:       title,
		DisplayName: sch.DisplayName,
		DetailOnly:  c.detailOnly || c.app.Config.Output.DetailOnly,
	}
	return render.Write(w, grid, format, opts, style)
}

// writeMetrics prints counters and histogram totals, one line per series.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			series := mf.GetName()
			if len(labels) > 0 {
				series += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %g\n", series, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%s count=%d sum=%g\n", series, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return nil
}

// writeSpans prints one line per finished span, oldest end first.
func writeSpans(w io.Writer, spans tracetest.SpanStubs) {
	for _, s := range spans {
		name := s.Name
		for _, kv := range s.Attributes {
			if kv.Key == "crosstab.pattern" {
				name += " " + kv.Value.AsString()
			}
		}
		fmt.Fprintf(w, "%-32s %s\n", name, s.EndTime.Sub(s.StartTime).Round(time.Microsecond))
	}
}
