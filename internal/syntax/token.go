package syntax

import (
	"fmt"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
)

// TokenCode classifies a token.
type TokenCode string

const (
	EndToken     TokenCode = ""
	NameToken    TokenCode = "NAME"
	LabelToken   TokenCode = "LABEL"
	StringToken  TokenCode = "STRING"
	IntegerToken TokenCode = "INTEGER"
	DecimalToken TokenCode = "DECIMAL"
	FloatToken   TokenCode = "FLOAT"
	SymbolToken  TokenCode = "SYMBOL"

	// DirSignal precedes a '+' or '-' that marks a sort direction.
	DirSignal TokenCode = "DIRSIG"
	// PipeSignal precedes a '/' that opens a query pipe ("/:fmt").
	PipeSignal TokenCode = "PIPESIG"
	// LHSSignal precedes the left-hand side of an assignment.
	LHSSignal TokenCode = "LHSSIG"
)

// Token is a lexical unit. For strings, Text holds the unescaped value.
type Token struct {
	Code TokenCode
	Text string
	Mark diag.Mark
}

// Is reports whether the token is the given symbol.
func (t Token) Is(symbol string) bool {
	return t.Code == SymbolToken && t.Text == symbol
}

// IsSignal reports whether the token is one of the injected signals.
func (t Token) IsSignal() bool {
	return t.Code == DirSignal || t.Code == PipeSignal || t.Code == LHSSignal
}

func (t Token) String() string {
	switch t.Code {
	case EndToken:
		return "end of input"
	case SymbolToken:
		return fmt.Sprintf("'%s'", t.Text)
	case StringToken:
		return quote(t.Text)
	case DirSignal, PipeSignal, LHSSignal:
		return string(t.Code)
	}
	return fmt.Sprintf("%s %s", t.Code, t.Text)
}
