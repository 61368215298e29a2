package syntax

import (
	"fmt"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
)

type parser struct {
	grammar *Grammar
	input   string
	tokens  []Token
	pos     int
}

// Parse decodes, scans and parses a raw query.
func Parse(raw string) (*QueryNode, error) {
	text, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return ParseText(text)
}

// ParseText scans and parses already decoded query text.
func ParseText(text string) (*QueryNode, error) {
	tokens, err := Scan(text)
	if err != nil {
		return nil, err
	}
	g, err := LoadGrammar()
	if err != nil {
		return nil, err
	}
	p := &parser{grammar: g, input: text, tokens: tokens}
	return p.query()
}

// Rule selects the production ParseRule starts from.
type Rule int

const (
	// QueryRule parses a complete query starting with '/'.
	QueryRule Rule = iota
	// SegmentRule parses a bare expression, as used in parameters and
	// catalog-defined calculations.
	SegmentRule
	// IdentityRule parses the inside of an identity literal, e.g. "art.bus".
	IdentityRule
)

// ParseRule parses decoded text starting from the given production.
func ParseRule(text string, rule Rule) (Node, error) {
	switch rule {
	case QueryRule:
		return ParseText(text)
	case IdentityRule:
		text = "/[" + text + "]"
	default:
		text = "/" + text
	}
	q, err := ParseText(text)
	if err != nil {
		return nil, err
	}
	if rule == IdentityRule {
		id, ok := q.Segment.(*IdentityNode)
		if !ok {
			return nil, diag.Errorf(diag.KindParse, q.Segment.Mark(), "expected an identity")
		}
		return id, nil
	}
	return q.Segment, nil
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Code != EndToken {
		p.pos++
	}
	return tok
}

func (p *parser) accept(symbol string) (Token, bool) {
	if tok := p.peek(); tok.Is(symbol) {
		p.pos++
		return tok, true
	}
	return Token{}, false
}

func (p *parser) acceptCode(code TokenCode) (Token, bool) {
	if tok := p.peek(); tok.Code == code {
		p.pos++
		return tok, true
	}
	return Token{}, false
}

func (p *parser) expect(symbol string) (Token, error) {
	if tok, ok := p.accept(symbol); ok {
		return tok, nil
	}
	return Token{}, p.unexpected(fmt.Sprintf("'%s'", symbol))
}

func (p *parser) expectCode(code TokenCode, what string) (Token, error) {
	if tok, ok := p.acceptCode(code); ok {
		return tok, nil
	}
	return Token{}, p.unexpected(what)
}

func (p *parser) unexpected(want string) error {
	i := p.pos
	for p.tokens[i].IsSignal() {
		i++
	}
	tok := p.tokens[i]
	if want == "" {
		return diag.Errorf(diag.KindParse, tok.Mark, "unexpected %s", tok)
	}
	return diag.Errorf(diag.KindParse, tok.Mark, "expected %s, got %s", want, tok)
}

func (p *parser) span(start diag.Mark, end diag.Mark) base {
	return base{mark: diag.Union(start, end)}
}

// query := '/' [ segment ] END
func (p *parser) query() (*QueryNode, error) {
	slash, err := p.expect("/")
	if err != nil {
		return nil, err
	}
	var seg Node = &SkipNode{base{slash.Mark}}
	if p.peek().Code != EndToken {
		if seg, err = p.segment(); err != nil {
			return nil, err
		}
	}
	if p.peek().Code != EndToken {
		return nil, p.unexpected("")
	}
	return &QueryNode{base: p.span(slash.Mark, seg.Mark()), Segment: seg}, nil
}

// segment := LHSSIG specify ':=' segment | pipe
func (p *parser) segment() (Node, error) {
	if _, ok := p.acceptCode(LHSSignal); !ok {
		return p.pipe()
	}
	lhs, err := p.specify()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":="); err != nil {
		return nil, err
	}
	rhs, err := p.segment()
	if err != nil {
		return nil, err
	}
	return &AssignNode{base: p.span(lhs.Mark(), rhs.Mark()), LHS: lhs, RHS: rhs}, nil
}

// specify := [ '$' ] NAME ( '.' NAME )* [ '(' [ '$' NAME ( ',' '$' NAME )* ] ')' ]
func (p *parser) specify() (*SpecifyNode, error) {
	start := p.peek().Mark
	node := &SpecifyNode{}
	if _, ok := p.accept("$"); ok {
		node.Reference = true
	}
	name, err := p.expectCode(NameToken, "a name")
	if err != nil {
		return nil, err
	}
	node.Path = []string{name.Text}
	end := name.Mark
	for p.peek().Is(".") {
		p.next()
		name, err := p.expectCode(NameToken, "a name")
		if err != nil {
			return nil, err
		}
		node.Path = append(node.Path, name.Text)
		end = name.Mark
	}
	if _, ok := p.accept("("); ok {
		node.HasParams = true
		for !p.peek().Is(")") {
			if len(node.Params) > 0 {
				if _, err := p.expect(","); err != nil {
					return nil, err
				}
			}
			if _, err := p.expect("$"); err != nil {
				return nil, err
			}
			param, err := p.expectCode(NameToken, "a parameter name")
			if err != nil {
				return nil, err
			}
			node.Params = append(node.Params, param.Text)
		}
		end = p.next().Mark
	}
	node.base = p.span(start, end)
	return node, nil
}

// pipe := flowPipe ( PIPESIG '/' ':' NAME [ call ] )*
func (p *parser) pipe() (Node, error) {
	node, err := p.flowPipe()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptCode(PipeSignal); !ok {
			return node, nil
		}
		p.next() // '/'
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		if node, err = p.pipeCall(node, false); err != nil {
			return nil, err
		}
	}
}

// flowPipe := flow ( ':' NAME [ call ] )*
func (p *parser) flowPipe() (Node, error) {
	node, err := p.flow()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(":"); !ok {
			return node, nil
		}
		if node, err = p.pipeCall(node, true); err != nil {
			return nil, err
		}
	}
}

func (p *parser) pipeCall(larm Node, isFlow bool) (Node, error) {
	name, err := p.expectCode(NameToken, "a function name")
	if err != nil {
		return nil, err
	}
	node := &PipeNode{Name: name.Text, Larm: larm, IsFlow: isFlow}
	end := name.Mark
	if p.peek().Is("(") {
		args, closing, err := p.arguments()
		if err != nil {
			return nil, err
		}
		node.Args, node.HasCall, end = args, true, closing
	}
	node.base = p.span(larm.Mark(), end)
	return node, nil
}

// arguments := '(' [ segment ( ',' segment )* [ ',' ] ] ')'
func (p *parser) arguments() ([]Node, diag.Mark, error) {
	if _, err := p.expect("("); err != nil {
		return nil, diag.Mark{}, err
	}
	args, err := p.items(")")
	if err != nil {
		return nil, diag.Mark{}, err
	}
	closing, err := p.expect(")")
	if err != nil {
		return nil, diag.Mark{}, err
	}
	return args, closing.Mark, nil
}

// items parses comma-separated segments up to, not including, closer.
func (p *parser) items(closer string) ([]Node, error) {
	var items []Node
	for !p.peek().Is(closer) {
		item, err := p.segment()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if _, ok := p.accept(","); !ok {
			break
		}
	}
	if !p.peek().Is(closer) {
		return nil, p.unexpected(fmt.Sprintf("',' or '%s'", closer))
	}
	return items, nil
}

// flow := disjunction ( '?' disjunction | '^' disjunction | record ( '.' location )* )* [ DIRSIG ( '+' | '-' ) ]
func (p *parser) flow() (Node, error) {
	node, err := p.disjunction()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch {
		case tok.Is("?"):
			p.next()
			rarm, err := p.disjunction()
			if err != nil {
				return nil, err
			}
			node = &FilterNode{base: p.span(node.Mark(), rarm.Mark()), Larm: node, Rarm: rarm}
		case tok.Is("^"):
			p.next()
			rarm, err := p.disjunction()
			if err != nil {
				return nil, err
			}
			node = &ProjectNode{base: p.span(node.Mark(), rarm.Mark()), Larm: node, Rarm: rarm}
		case tok.Is("{"):
			rec, err := p.record()
			if err != nil {
				return nil, err
			}
			node = &SelectNode{base: p.span(node.Mark(), rec.Mark()), Larm: node, Rarm: rec}
			for p.peek().Is(".") {
				p.next()
				rarm, err := p.location()
				if err != nil {
					return nil, err
				}
				node = &ComposeNode{base: p.span(node.Mark(), rarm.Mark()), Larm: node, Rarm: rarm}
			}
		case tok.Code == DirSignal:
			p.next()
			dir := p.next()
			return &DirectNode{base: p.span(node.Mark(), dir.Mark), Symbol: dir.Text, Arm: node}, nil
		default:
			return node, nil
		}
	}
}

// disjunction := conjunction ( '|' conjunction )*
func (p *parser) disjunction() (Node, error) {
	return p.leftAssoc(p.conjunction, func(t Token) bool { return t.Is("|") })
}

// conjunction := negation ( '&' negation )*
func (p *parser) conjunction() (Node, error) {
	return p.leftAssoc(p.negation, func(t Token) bool { return t.Is("&") })
}

// negation := '!' negation | comparison
func (p *parser) negation() (Node, error) {
	if tok, ok := p.accept("!"); ok {
		arm, err := p.negation()
		if err != nil {
			return nil, err
		}
		return &PrefixNode{base: p.span(tok.Mark, arm.Mark()), Symbol: "!", Arm: arm}, nil
	}
	return p.comparison()
}

// comparison := addition [ op addition ]
func (p *parser) comparison() (Node, error) {
	larm, err := p.addition()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.Code != SymbolToken || !p.grammar.comparison[tok.Text] {
		return larm, nil
	}
	p.next()
	rarm, err := p.addition()
	if err != nil {
		return nil, err
	}
	return &OperatorNode{base: p.span(larm.Mark(), rarm.Mark()), Symbol: tok.Text, Larm: larm, Rarm: rarm}, nil
}

// addition := multiplication ( ( '+' | '-' ) multiplication )*
func (p *parser) addition() (Node, error) {
	return p.leftAssoc(p.multiplication, func(t Token) bool {
		return t.Code == SymbolToken && p.grammar.addition[t.Text]
	})
}

// multiplication := unary ( ( '*' | '/' ) unary )*
func (p *parser) multiplication() (Node, error) {
	return p.leftAssoc(p.unary, func(t Token) bool {
		return t.Code == SymbolToken && p.grammar.multiplication[t.Text]
	})
}

func (p *parser) leftAssoc(operand func() (Node, error), isOp func(Token) bool) (Node, error) {
	node, err := operand()
	if err != nil {
		return nil, err
	}
	for isOp(p.peek()) {
		op := p.next()
		rarm, err := operand()
		if err != nil {
			return nil, err
		}
		node = &OperatorNode{base: p.span(node.Mark(), rarm.Mark()), Symbol: op.Text, Larm: node, Rarm: rarm}
	}
	return node, nil
}

// unary := ( '+' | '-' ) unary | linking
func (p *parser) unary() (Node, error) {
	tok := p.peek()
	if tok.Code == SymbolToken && p.grammar.unary[tok.Text] {
		p.next()
		arm, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &PrefixNode{base: p.span(tok.Mark, arm.Mark()), Symbol: tok.Text, Arm: arm}, nil
	}
	return p.linking()
}

// linking := composition [ '->' composition ]
func (p *parser) linking() (Node, error) {
	larm, err := p.composition()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept("->"); !ok {
		return larm, nil
	}
	rarm, err := p.composition()
	if err != nil {
		return nil, err
	}
	return &LinkNode{base: p.span(larm.Mark(), rarm.Mark()), Larm: larm, Rarm: rarm}, nil
}

// composition := location ( '.' location )*
func (p *parser) composition() (Node, error) {
	node, err := p.location()
	if err != nil {
		return nil, err
	}
	for p.peek().Is(".") {
		p.next()
		rarm, err := p.location()
		if err != nil {
			return nil, err
		}
		node = &ComposeNode{base: p.span(node.Mark(), rarm.Mark()), Larm: node, Rarm: rarm}
	}
	return node, nil
}

// location := attachment [ '[' identity ']' ]
func (p *parser) location() (Node, error) {
	node, err := p.attachment()
	if err != nil {
		return nil, err
	}
	if !p.peek().Is("[") {
		return node, nil
	}
	id, err := p.identity()
	if err != nil {
		return nil, err
	}
	return &LocateNode{base: p.span(node.Mark(), id.Mark()), Larm: node, Rarm: id}, nil
}

// attachment := atom [ '@' atom ]
func (p *parser) attachment() (Node, error) {
	larm, err := p.atom()
	if err != nil {
		return nil, err
	}
	if _, ok := p.accept("@"); !ok {
		return larm, nil
	}
	rarm, err := p.atom()
	if err != nil {
		return nil, err
	}
	return &AttachNode{base: p.span(larm.Mark(), rarm.Mark()), Larm: larm, Rarm: rarm}, nil
}

// startsOperand reports whether tok can begin an expression.
func startsOperand(tok Token) bool {
	switch tok.Code {
	case NameToken, StringToken, IntegerToken, DecimalToken, FloatToken, LHSSignal:
		return true
	case SymbolToken:
		switch tok.Text {
		case "/", "(", "{", "[", "$", "*", "^", "!", "+", "-":
			return true
		}
	}
	return false
}

func (p *parser) atom() (Node, error) {
	tok := p.peek()
	switch tok.Code {
	case NameToken:
		p.next()
		if !p.peek().Is("(") {
			return &IdentifierNode{base{tok.Mark}, tok.Text}, nil
		}
		args, closing, err := p.arguments()
		if err != nil {
			return nil, err
		}
		return &FunctionNode{base: p.span(tok.Mark, closing), Name: tok.Text, Args: args}, nil
	case StringToken:
		p.next()
		return &StringNode{base{tok.Mark}, tok.Text}, nil
	case IntegerToken:
		p.next()
		return &IntegerNode{base{tok.Mark}, tok.Text}, nil
	case DecimalToken:
		p.next()
		return &DecimalNode{base{tok.Mark}, tok.Text}, nil
	case FloatToken:
		p.next()
		return &FloatNode{base{tok.Mark}, tok.Text}, nil
	case SymbolToken:
		switch tok.Text {
		case "/":
			return p.collect()
		case "(":
			return p.group()
		case "{":
			return p.record()
		case "[":
			return p.identity()
		case "$":
			p.next()
			name, err := p.expectCode(NameToken, "a reference name")
			if err != nil {
				return nil, err
			}
			return &ReferenceNode{base: p.span(tok.Mark, name.Mark), Name: name.Text}, nil
		case "*":
			p.next()
			if idx, ok := p.acceptCode(IntegerToken); ok {
				return &WildcardNode{base: p.span(tok.Mark, idx.Mark), Index: idx.Text}, nil
			}
			return &WildcardNode{base: base{tok.Mark}}, nil
		case "^":
			p.next()
			return &ComplementNode{base{tok.Mark}}, nil
		}
	}
	return nil, p.unexpected("")
}

// collect := '/' [ flowPipe ]
func (p *parser) collect() (Node, error) {
	slash := p.next()
	if !startsOperand(p.peek()) {
		return &SkipNode{base{slash.Mark}}, nil
	}
	arm, err := p.flowPipe()
	if err != nil {
		return nil, err
	}
	return &CollectNode{base: p.span(slash.Mark, arm.Mark()), Arm: arm}, nil
}

// group := '(' ')' | '(' segment ')' | '(' segment ( ',' segment )+ [ ',' ] ')'
func (p *parser) group() (Node, error) {
	open := p.next()
	items, err := p.items(")")
	if err != nil {
		return nil, err
	}
	trailing := len(items) > 0 && p.tokens[p.pos-1].Is(",")
	closing := p.next()
	b := p.span(open.Mark, closing.Mark)
	switch {
	case len(items) == 0:
		return &GroupNode{base: b, Arm: &SkipNode{base{closing.Mark}}}, nil
	case len(items) == 1 && !trailing:
		return &GroupNode{base: b, Arm: items[0]}, nil
	}
	return &ListNode{base: b, Arms: items}, nil
}

// record := '{' [ segment ( ',' segment )* [ ',' ] ] '}'
func (p *parser) record() (*RecordNode, error) {
	open := p.next()
	items, err := p.items("}")
	if err != nil {
		return nil, err
	}
	closing := p.next()
	return &RecordNode{base: p.span(open.Mark, closing.Mark), Arms: items}, nil
}

// identity := '[' label ( '.' label )* ']'
func (p *parser) identity() (*IdentityNode, error) {
	return p.identityGroup("[", "]", true)
}

func (p *parser) identityGroup(opener, closer string, hard bool) (*IdentityNode, error) {
	open, err := p.expect(opener)
	if err != nil {
		return nil, err
	}
	var arms []Node
	for {
		arm, err := p.label()
		if err != nil {
			return nil, err
		}
		arms = append(arms, arm)
		if _, ok := p.accept("."); !ok {
			break
		}
	}
	closing, err := p.expect(closer)
	if err != nil {
		return nil, err
	}
	return &IdentityNode{base: p.span(open.Mark, closing.Mark), Arms: arms, IsHard: hard}, nil
}

// label := LABEL | STRING | '$' LABEL | '(' identity ')' | '[' identity ']'
func (p *parser) label() (Node, error) {
	tok := p.peek()
	switch {
	case tok.Code == LabelToken:
		p.next()
		return &LabelNode{base{tok.Mark}, tok.Text}, nil
	case tok.Code == StringToken:
		p.next()
		return &StringNode{base{tok.Mark}, tok.Text}, nil
	case tok.Is("$"):
		p.next()
		name, err := p.expectCode(LabelToken, "a reference name")
		if err != nil {
			return nil, err
		}
		return &ReferenceNode{base: p.span(tok.Mark, name.Mark), Name: name.Text}, nil
	case tok.Is("("):
		return p.identityGroup("(", ")", false)
	case tok.Is("["):
		return p.identityGroup("[", "]", true)
	}
	return nil, p.unexpected("an identity label")
}
