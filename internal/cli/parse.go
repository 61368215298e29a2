package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prometheusresearch/htsql-sub004/internal/syntax"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Tokens bool // print the token stream instead of the tree
}

// ParseResult is the JSON payload of the parse command.
type ParseResult struct {
	Query  string   `json:"query"`
	Tree   string   `json:"tree,omitempty"`
	Tokens []string `json:"tokens,omitempty"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a query and print its syntax tree",
		Long: `Decode, scan and parse a query without a catalog.

The syntax tree is printed in its canonical query form; with --tokens the
token stream is printed instead, one token per line.

Examples:
  htsql parse "/school{code, count(department)}"
  htsql parse --tokens "/school?campus='old'"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Tokens, "tokens", false, "print the token stream")

	return cmd
}

func runParse(opts *ParseOptions, query string, cmd *cobra.Command) error {
	f := formatter(opts.RootOptions, cmd)
	result := ParseResult{Query: query}

	if opts.Tokens {
		text, err := syntax.Decode(query)
		if err != nil {
			return f.Fail(ExitFailure, err)
		}
		tokens, err := syntax.Scan(text)
		if err != nil {
			return f.Fail(ExitFailure, err)
		}
		for _, tok := range tokens {
			result.Tokens = append(result.Tokens, tok.String())
		}
	} else {
		node, err := syntax.Parse(query)
		if err != nil {
			return f.Fail(ExitFailure, err)
		}
		result.Tree = node.String()
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	w := cmd.OutOrStdout()
	if opts.Tokens {
		fmt.Fprintln(w, strings.Join(result.Tokens, "\n"))
		return nil
	}
	fmt.Fprintln(w, result.Tree)
	return nil
}
