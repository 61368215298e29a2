package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/prometheusresearch/htsql-sub004/internal/product"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Output string // product format: json, csv, txt or sql
	Params map[string]string
}

// productWriters render a product per output format.
var productWriters = map[string]func(io.Writer, *product.Product) error{
	"json": product.WriteJSON,
	"csv":  product.WriteCSV,
	"txt":  product.WriteText,
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Run a query against the database",
		Long: `Translate a query, run it against the configured database and print
the product.

The product format is taken from the query pipe (/:csv), else from
--output, else from the format setting of htsql.yaml. The sql format
prints the statements without running them. The global --format flag
only applies to error reports.

Exit codes:
  0 - Query succeeded
  1 - Query failed (syntax, binding, compilation or database error)
  2 - Command error (config, catalog or database unavailable)

Examples:
  htsql query --db school.db "/school{code, count(department)}"
  htsql query --db school.db "/school?campus='old'/:csv"
  htsql query --db school.db -o txt "/department.sort(name)"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "product format (json|csv|txt|sql)")
	cmd.Flags().StringToStringVarP(&opts.Params, "param", "p", nil, "query parameter name=value (repeatable)")

	return cmd
}

func runQuery(opts *QueryOptions, query string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	env, err := loadEnvironment(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), true)
	if err != nil {
		return f.Fail(ExitCommandError, err)
	}
	defer env.Close()
	f.VerboseLog("running with %s", describeEnvironment(env))

	plan, err := env.engine.Translate(query, parseParams(opts.Params))
	if err != nil {
		return f.Fail(ExitFailure, err)
	}

	format := plan.Format
	if format == "" {
		format = opts.Output
	}
	if format == "" {
		format = env.cfg.Format
	}
	if format == "sql" {
		return writePlan(&OutputFormatter{Format: "text", Writer: cmd.OutOrStdout()}, plan)
	}
	write, ok := productWriters[format]
	if !ok {
		return f.Fail(ExitCommandError, commandError(ErrCodeConfig,
			fmt.Sprintf("unknown output format %q (supported: %v)", format, outputFormats()), nil))
	}

	p, err := env.engine.Execute(cmd.Context(), plan)
	if err != nil {
		return f.Fail(ExitFailure, err)
	}
	if err := write(cmd.OutOrStdout(), p); err != nil {
		return f.Fail(ExitFailure, err)
	}
	return nil
}

func outputFormats() []string {
	formats := []string{"sql"}
	for name := range productWriters {
		formats = append(formats, name)
	}
	slices.Sort(formats)
	return formats
}
