package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/crosstab/schema"
)

// DiscoverCommand holds the flags for the discover command.
type DiscoverCommand struct {
	app *App

	file      string
	output    string
	format    string
	name      string
	recovered []string
}

// NewDiscoverCommand creates and configures the discover command.
func NewDiscoverCommand(app *App) *cobra.Command {
	c := &DiscoverCommand{app: app}

	cobraCmd := &cobra.Command{
		Use:   "discover",
		Short: "Infer a schema from a CSV file",
		Long: `Inspect a CSV file and print the schema crosstab infers from it: which
columns are dimensions, which are measures, and which are skipped.

Edit the result and pass it to "crosstab cube --schema".`,
		Example: `  crosstab discover --file invoices.csv
  crosstab discover --file invoices.csv --out invoices.yaml
  crosstab discover --file tickets.csv --recover summary --format json`,
		RunE: c.Run,
	}

	cobraCmd.Flags().StringVarP(&c.file, "file", "f", "", "CSV data file (required)")
	cobraCmd.Flags().StringVarP(&c.output, "out", "o", "", "schema output file (default: stdout)")
	cobraCmd.Flags().StringVar(&c.format, "format", "", "yaml or json (default: from --out extension, else yaml)")
	cobraCmd.Flags().StringVar(&c.name, "name", "", "dataset name")
	cobraCmd.Flags().StringSliceVar(&c.recovered, "recover", nil, "skipped columns to keep as dimensions")

	return cobraCmd
}

// Run executes the discover command.
func (c *DiscoverCommand) Run(cmd *cobra.Command, _ []string) error {
	cfg := c.app.Config

	maxSize, err := cfg.Input.MaxSizeBytes()
	if err != nil {
		return err
	}
	data, err := readInput(c.file, maxSize)
	if err != nil {
		return err
	}

	opts := schema.DefaultDiscoverOptions()
	opts.SampleSize = cfg.Discover.SampleSize
	opts.Name = c.name
	opts.RecoverColumns = c.recovered

	sch, err := schema.DiscoverFromCSV(data, opts)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	status(stderr, "Discovered %d dimensions and %d measures", len(sch.Dimensions), len(sch.Measures))
	for _, s := range sch.SkippedColumns {
		hint := ""
		if s.Recoverable {
			hint = " (use --recover to keep)"
		}
		warn(stderr, "  skipped %s: %s%s", s.Column, s.Reason, hint)
	}

	format, err := c.outputFormat()
	if err != nil {
		return err
	}

	if c.output != "" && c.format == "" {
		if err := schema.Save(c.output, sch); err != nil {
			return err
		}
		status(stderr, "Schema written to %s", c.output)
		return nil
	}

	out, err := schema.Marshal(sch, format)
	if err != nil {
		return err
	}
	if c.output != "" {
		if err := os.WriteFile(c.output, out, 0o644); err != nil {
			return fmt.Errorf("write schema: %w", err)
		}
		status(stderr, "Schema written to %s", c.output)
		return nil
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
	return err
}

func (c *DiscoverCommand) outputFormat() (schema.Format, error) {
	if c.format != "" {
		return schema.ParseFormat(strings.TrimSpace(c.format))
	}
	if c.output != "" {
		return schema.FormatFromPath(c.output), nil
	}
	return schema.FormatYAML, nil
}
