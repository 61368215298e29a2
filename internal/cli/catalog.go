package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Introspect bool // read the catalog from the database even if a file is configured
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the catalog queries are bound against",
		Long: `Print the catalog as a YAML catalog file, or as JSON with --format json.

The catalog comes from the configured catalog file or, with --introspect
or when no file is configured, from the database. The output of an
introspected catalog can be saved and used as a catalog file.

Examples:
  htsql catalog --catalog school.cue
  htsql catalog --db school.db --introspect > school.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Introspect, "introspect", false, "introspect the catalog from the database")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)

	env, err := loadEnvironment(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), opts.Introspect)
	if err != nil {
		return f.Fail(ExitCommandError, err)
	}
	defer env.Close()
	if opts.Introspect && env.cfg.Catalog != "" {
		if env.catalog, err = env.store.Introspect(cmd.Context()); err != nil {
			return f.Fail(ExitCommandError, commandError(ErrCodeCatalog, "failed to introspect catalog", err))
		}
	}

	def := catalog.Export(env.catalog)
	if opts.Format == "json" {
		return f.Success(def)
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(def); err != nil {
		return f.Fail(ExitFailure, err)
	}
	return enc.Close()
}
