package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is an explicit config file; otherwise htsql.yaml is
	// discovered from the working directory.
	Config string

	// Overrides of the config file.
	Catalog string
	Dialect string
	Engine  string
	DSN     string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the htsql CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "htsql",
		Short: "htsql - a query language for relational databases",
		Long: `Translate HTSQL queries into the SQL of a database dialect and run them.

Queries are bound against a catalog read from a YAML or CUE file, or
introspected from the configured database. Settings come from htsql.yaml,
HTSQL_* environment variables and the flags below, in increasing order
of precedence.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Config, "config", "", "config file (default: discover htsql.yaml)")
	flags.StringVar(&opts.Catalog, "catalog", "", "catalog file (.yaml or .cue)")
	flags.StringVar(&opts.Dialect, "dialect", "", "SQL dialect (sqlite|pgsql|mysql|mssql)")
	flags.StringVar(&opts.Engine, "engine", "", "database engine (sqlite|pgsql|postgres|mysql|mssql)")
	flags.StringVar(&opts.DSN, "db", "", "database connection string or SQLite file")

	// Add subcommands
	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewTranslateCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter returns the output formatter of a command.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
