package syntax

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
)

type scanContext int

const (
	queryContext scanContext = iota
	identityContext
)

// Multi-character symbols must precede their prefixes.
var querySymbols = []string{
	"!==", "!=", "!~", "==", "<=", ">=", ":=", "->",
	"~", "<", ">", "=", "!", "&", "|", "?", ".", ",", ":", "*", "^",
	"/", "+", "-", "(", ")", "[", "]", "{", "}", "@", "$",
}

var identitySymbols = []string{".", "(", ")", "[", "]", "$"}

type frame struct {
	context scanContext
	closer  string
	opener  Token
}

type scanner struct {
	input  string
	pos    int
	stack  []frame
	tokens []Token
}

// Scan splits decoded query text into tokens and injects the signal tokens.
// The result always ends with an EndToken.
func Scan(input string) ([]Token, error) {
	s := &scanner{input: input}
	if err := s.run(); err != nil {
		return nil, err
	}
	return injectSignals(s.tokens), nil
}

func (s *scanner) context() scanContext {
	if len(s.stack) == 0 {
		return queryContext
	}
	return s.stack[len(s.stack)-1].context
}

func (s *scanner) mark(start, end int) diag.Mark {
	return diag.NewMark(s.input, start, end)
}

func (s *scanner) emit(code TokenCode, text string, start int) Token {
	tok := Token{Code: code, Text: text, Mark: s.mark(start, s.pos)}
	s.tokens = append(s.tokens, tok)
	return tok
}

func (s *scanner) peek() rune {
	if s.pos >= len(s.input) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(s.input[s.pos:])
	return r
}

func (s *scanner) peekAt(offset int) rune {
	i := s.pos
	for ; offset > 0 && i < len(s.input); offset-- {
		_, size := utf8.DecodeRuneInString(s.input[i:])
		i += size
	}
	if i >= len(s.input) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(s.input[i:])
	return r
}

func (s *scanner) advance() rune {
	r, size := utf8.DecodeRuneInString(s.input[s.pos:])
	s.pos += size
	return r
}

func (s *scanner) run() error {
	for {
		s.skipJunk()
		if s.pos >= len(s.input) {
			break
		}
		var err error
		if s.context() == identityContext {
			err = s.scanIdentity()
		} else {
			err = s.scanQuery()
		}
		if err != nil {
			return err
		}
	}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if f := s.stack[i]; f.closer == "]" {
			return diag.Errorf(diag.KindScan, f.opener.Mark, "unmatched '['")
		}
	}
	s.tokens = append(s.tokens, Token{Code: EndToken, Mark: s.mark(len(s.input), len(s.input))})
	return nil
}

// skipJunk consumes whitespace and '#' comments.
func (s *scanner) skipJunk() {
	for s.pos < len(s.input) {
		r := s.peek()
		switch {
		case unicode.IsSpace(r):
			s.advance()
		case r == '#':
			for s.pos < len(s.input) && s.peek() != '\n' {
				s.advance()
			}
		default:
			return
		}
	}
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func (s *scanner) scanQuery() error {
	start := s.pos
	r := s.peek()
	switch {
	case isNameStart(r):
		for isNameChar(s.peek()) {
			s.advance()
		}
		s.emit(NameToken, s.input[start:s.pos], start)
		return nil
	case isDigit(r) || r == '.' && isDigit(s.peekAt(1)):
		s.scanNumber()
		return nil
	case r == '\'':
		return s.scanString()
	}
	return s.scanSymbol(querySymbols)
}

func (s *scanner) scanIdentity() error {
	start := s.pos
	r := s.peek()
	switch {
	case isNameChar(r) || r == '-':
		for isNameChar(s.peek()) || s.peek() == '-' {
			s.advance()
		}
		s.emit(LabelToken, s.input[start:s.pos], start)
		return nil
	case r == '\'':
		return s.scanString()
	}
	return s.scanSymbol(identitySymbols)
}

func (s *scanner) scanNumber() {
	start := s.pos
	code := IntegerToken
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		code = DecimalToken
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	if r := s.peek(); r == 'e' || r == 'E' {
		next := s.peekAt(1)
		if isDigit(next) || (next == '+' || next == '-') && isDigit(s.peekAt(2)) {
			code = FloatToken
			s.advance()
			if next == '+' || next == '-' {
				s.advance()
			}
			for isDigit(s.peek()) {
				s.advance()
			}
		}
	}
	s.emit(code, s.input[start:s.pos], start)
}

func (s *scanner) scanString() error {
	start := s.pos
	s.advance()
	var b strings.Builder
	for {
		if s.pos >= len(s.input) {
			return diag.Errorf(diag.KindScan, s.mark(start, s.pos), "unterminated string literal")
		}
		r := s.advance()
		if r != '\'' {
			b.WriteRune(r)
			continue
		}
		if s.peek() == '\'' {
			s.advance()
			b.WriteByte('\'')
			continue
		}
		break
	}
	s.emit(StringToken, b.String(), start)
	return nil
}

func (s *scanner) scanSymbol(symbols []string) error {
	start := s.pos
	rest := s.input[s.pos:]
	for _, sym := range symbols {
		if !strings.HasPrefix(rest, sym) {
			continue
		}
		s.pos += len(sym)
		tok := s.emit(SymbolToken, sym, start)
		return s.track(tok)
	}
	s.advance()
	return diag.Errorf(diag.KindScan, s.mark(start, s.pos), "unexpected character %q", s.input[start:s.pos])
}

// track maintains the bracket stack that selects the scanning context.
func (s *scanner) track(tok Token) error {
	switch tok.Text {
	case "[":
		s.stack = append(s.stack, frame{context: identityContext, closer: "]", opener: tok})
	case "(":
		s.stack = append(s.stack, frame{context: s.context(), closer: ")", opener: tok})
	case "{":
		s.stack = append(s.stack, frame{context: queryContext, closer: "}", opener: tok})
	case "]", ")", "}":
		if n := len(s.stack); n > 0 && s.stack[n-1].closer == tok.Text {
			s.stack = s.stack[:n-1]
			return nil
		}
		if tok.Text == "]" || s.context() == identityContext {
			return diag.Errorf(diag.KindScan, tok.Mark, "unmatched '%s'", tok.Text)
		}
		// Unbalanced parentheses and braces are reported by the parser.
	}
	return nil
}
