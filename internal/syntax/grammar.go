package syntax

import "github.com/prometheusresearch/htsql-sub004/internal/memo"

// Grammar holds the operator tables that drive the parser.
type Grammar struct {
	comparison     map[string]bool
	addition       map[string]bool
	multiplication map[string]bool
	unary          map[string]bool
}

func set(symbols ...string) map[string]bool {
	m := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		m[s] = true
	}
	return m
}

func buildGrammar() (*Grammar, error) {
	return &Grammar{
		comparison:     set("~", "!~", "<=", "<", ">=", ">", "==", "=", "!==", "!="),
		addition:       set("+", "-"),
		multiplication: set("*", "/"),
		unary:          set("+", "-"),
	}, nil
}

// LoadGrammar returns the process-wide grammar, building it on first use.
func LoadGrammar() (*Grammar, error) {
	return memo.Of(memo.Process(), "syntax.grammar", buildGrammar)
}
