package syntax

// Signals resolve the few places where the grammar needs more than one token
// of lookahead. Each is decided by inspecting a bounded window of the tokens
// that follow, never by re-parsing.

// Tokens that may follow a direction indicator.
var directionFollowers = map[string]bool{",": true, ")": true, "}": true, ":": true}

// Tokens after which an assignment may begin.
var assignmentOpeners = map[string]bool{"(": true, ",": true, "{": true, "/": true}

func injectSignals(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens)+4)
	for i, tok := range tokens {
		switch {
		case tok.Is("+") || tok.Is("-"):
			if isDirection(tokens, i) {
				out = append(out, signal(DirSignal, tok))
			}
		case tok.Is("/"):
			if i+1 < len(tokens) && tokens[i+1].Is(":") {
				out = append(out, signal(PipeSignal, tok))
			}
		case tok.Code == NameToken || tok.Is("$"):
			if startsAssignment(tokens, i) {
				out = append(out, signal(LHSSignal, tok))
			}
		}
		out = append(out, tok)
	}
	return out
}

func signal(code TokenCode, at Token) Token {
	return Token{Code: code, Mark: at.Mark}
}

// isDirection reports whether the '+' or '-' at i is a postfix direction
// indicator: it must follow an operand and precede a closing token.
func isDirection(tokens []Token, i int) bool {
	if i == 0 || !endsOperand(tokens[i-1]) {
		return false
	}
	next := tokens[i+1]
	return next.Code == EndToken || next.Code == SymbolToken && directionFollowers[next.Text]
}

func endsOperand(tok Token) bool {
	switch tok.Code {
	case NameToken, StringToken, IntegerToken, DecimalToken, FloatToken:
		return true
	case SymbolToken:
		return tok.Text == ")" || tok.Text == "]" || tok.Text == "}" || tok.Text == "*"
	}
	return false
}

// startsAssignment reports whether the tokens at i match
//
//	( NAME | '$' NAME ) ( '.' NAME )* [ '(' [ '$' NAME ( ',' '$' NAME )* ] ')' ] ':='
//
// and are preceded by the start of input or an opening token.
func startsAssignment(tokens []Token, i int) bool {
	if i > 0 {
		prev := tokens[i-1]
		if prev.Code != SymbolToken || !assignmentOpeners[prev.Text] {
			return false
		}
	}
	j := i
	if tokens[j].Is("$") {
		j++
	}
	if tokens[j].Code != NameToken {
		return false
	}
	j++
	for tokens[j].Is(".") && tokens[j+1].Code == NameToken {
		j += 2
	}
	if tokens[j].Is("(") {
		j++
		for tokens[j].Is("$") && tokens[j+1].Code == NameToken {
			j += 2
			if tokens[j].Is(",") {
				j++
			}
		}
		if !tokens[j].Is(")") {
			return false
		}
		j++
	}
	return tokens[j].Is(":=")
}
