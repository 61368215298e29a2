package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prometheusresearch/htsql-sub004/internal/engine"
)

// TranslateOptions holds flags for the translate command.
type TranslateOptions struct {
	*RootOptions
	Params map[string]string
}

// TranslateResult is the JSON payload of the translate command.
type TranslateResult struct {
	Plan    string   `json:"plan"`
	Query   string   `json:"query"`
	Dialect string   `json:"dialect"`
	Title   string   `json:"title"`
	SQL     []string `json:"sql"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranslateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "translate <query>",
		Short: "Translate a query into SQL",
		Long: `Translate a query into the SQL of the configured dialect without
running it. A query with nested segments becomes several statements,
parent first.

Examples:
  htsql translate --catalog school.yaml "/school{code, /department{name}}"
  htsql translate --catalog school.yaml --dialect mssql "/school.limit(5)"
  htsql translate --catalog school.yaml -p c=old "/school?campus=\$c"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringToStringVarP(&opts.Params, "param", "p", nil, "query parameter name=value (repeatable)")

	return cmd
}

func runTranslate(opts *TranslateOptions, query string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	env, err := loadEnvironment(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), false)
	if err != nil {
		return f.Fail(ExitCommandError, err)
	}
	defer env.Close()
	f.VerboseLog("translating with %s", describeEnvironment(env))

	plan, err := env.engine.Translate(query, parseParams(opts.Params))
	if err != nil {
		return f.Fail(ExitFailure, err)
	}
	return writePlan(f, plan)
}

// writePlan prints the statements of a plan, each terminated by a
// semicolon and separated by a blank line.
func writePlan(f *OutputFormatter, plan *engine.Plan) error {
	if f.Format == "json" {
		return f.Success(TranslateResult{
			Plan:    plan.ID,
			Query:   plan.Query,
			Dialect: plan.Dialect,
			Title:   plan.Title,
			SQL:     plan.SQL,
		})
	}
	for i, sql := range plan.SQL {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		fmt.Fprintf(f.Writer, "%s;\n", sql)
	}
	return nil
}
