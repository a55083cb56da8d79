// Package commands implements the crosstab CLI commands.
package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/spektr-org/crosstab/config"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// App is the state shared by every command once flags are parsed.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	configPath string
	verbose    bool
}

// NewRootCommand builds the crosstab command tree.
func NewRootCommand() *cobra.Command {
	app := &App{}

	rootCmd := &cobra.Command{
		Use:   "crosstab",
		Short: "Multi-dimensional aggregation cubes over tabular data",
		Long: `crosstab groups records along several dimensions at once and computes every
subtotal and the grand total in one pass.

Commands:
  cube      Build a cube from a CSV file and render it
  discover  Infer a schema from a CSV file`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.init(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default: .crosstab.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(NewCubeCommand(app))
	rootCmd.AddCommand(NewDiscoverCommand(app))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func (a *App) init(logOut io.Writer) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := config.NewLogger(cfg.Logging, logOut)
	if err != nil {
		return err
	}

	a.Config = cfg
	a.Logger = logger
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crosstab %s\n", Version)
		},
	}
}

// status prints a green progress line to w.
func status(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}

// warn prints a yellow warning line to w.
func warn(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, format+"\n", args...)
}
