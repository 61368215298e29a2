// Command htsql translates HTSQL queries into SQL and runs them.
//
// Usage:
//
//	htsql [flags] <command>
//
// Commands that run queries (query, catalog --introspect) need a database:
// --db, HTSQL_DATABASE_DSN or the database section of htsql.yaml. Commands
// that only translate (parse, translate) work from a catalog file alone.
package main

import (
	"fmt"
	"os"

	"github.com/prometheusresearch/htsql-sub004/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
