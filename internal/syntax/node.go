package syntax

import (
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/diag"
)

// Node is a syntax tree node. String renders the node back to query text;
// rendering a parsed tree and parsing the result yields an equal tree.
type Node interface {
	Mark() diag.Mark
	String() string
	node()
}

type base struct {
	mark diag.Mark
}

func (b base) Mark() diag.Mark { return b.mark }
func (base) node()             {}

// QueryNode is the root: '/' followed by an optional segment.
type QueryNode struct {
	base
	Segment Node // SkipNode when the query is a bare '/'
}

// SkipNode is the empty expression: a bare '/' or the inside of '()'.
type SkipNode struct{ base }

// CollectNode is a nested segment: '/x'.
type CollectNode struct {
	base
	Arm Node
}

// GroupNode is a parenthesized expression.
type GroupNode struct {
	base
	Arm Node
}

// ListNode is a parenthesized comma-separated list of two or more items.
type ListNode struct {
	base
	Arms []Node
}

// RecordNode is a selector: '{a, b}'.
type RecordNode struct {
	base
	Arms []Node
}

// SpecifyNode is the left-hand side of an assignment.
type SpecifyNode struct {
	base
	Path      []string // dotted attribute path; a single element for plain names
	Reference bool     // the target is a reference '$name'
	Params    []string // reference parameters of a calculated attribute
	HasParams bool     // parentheses are present, possibly empty
}

// AssignNode is 'lhs := rhs'.
type AssignNode struct {
	base
	LHS *SpecifyNode
	RHS Node
}

// FunctionNode is a call 'f(a, b)'.
type FunctionNode struct {
	base
	Name string
	Args []Node
}

// PipeNode is 'x :f(a)' (flow pipe) or 'x/:f(a)' (query pipe).
type PipeNode struct {
	base
	Name    string
	Larm    Node
	Args    []Node
	IsFlow  bool
	HasCall bool // the function name is followed by parentheses
}

// OperatorNode is a binary operator.
type OperatorNode struct {
	base
	Symbol string
	Larm   Node
	Rarm   Node
}

// PrefixNode is a unary operator: '+x', '-x', '!x'.
type PrefixNode struct {
	base
	Symbol string
	Arm    Node
}

// FilterNode is 'x ? y'.
type FilterNode struct {
	base
	Larm Node
	Rarm Node
}

// ProjectNode is 'x ^ y'.
type ProjectNode struct {
	base
	Larm Node
	Rarm Node
}

// SelectNode is 'x{...}'.
type SelectNode struct {
	base
	Larm Node
	Rarm *RecordNode
}

// ComposeNode is 'x.y'.
type ComposeNode struct {
	base
	Larm Node
	Rarm Node
}

// LocateNode is 'x[id]'.
type LocateNode struct {
	base
	Larm Node
	Rarm *IdentityNode
}

// LinkNode is 'x -> y'.
type LinkNode struct {
	base
	Larm Node
	Rarm Node
}

// AttachNode is 'x @ y'.
type AttachNode struct {
	base
	Larm Node
	Rarm Node
}

// DirectNode is a sort direction: 'x+' or 'x-'.
type DirectNode struct {
	base
	Symbol string
	Arm    Node
}

// IdentityNode is a bracketed identity: '[a.b]' (hard) or '(a.b)' (soft,
// nested in another identity).
type IdentityNode struct {
	base
	Arms   []Node
	IsHard bool
}

// LabelNode is a bare label inside an identity.
type LabelNode struct {
	base
	Text string
}

// ReferenceNode is '$name'.
type ReferenceNode struct {
	base
	Name string
}

// IdentifierNode is a bare name.
type IdentifierNode struct {
	base
	Name string
}

// WildcardNode is '*' or '*N'.
type WildcardNode struct {
	base
	Index string // empty for a plain '*'
}

// ComplementNode is a bare '^'.
type ComplementNode struct{ base }

// StringNode is a quoted literal. Text holds the unescaped value.
type StringNode struct {
	base
	Text string
}

// IntegerNode is an integer literal.
type IntegerNode struct {
	base
	Text string
}

// DecimalNode is a decimal literal.
type DecimalNode struct {
	base
	Text string
}

// FloatNode is a literal in exponent notation.
type FloatNode struct {
	base
	Text string
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ",")
}

func (n *QueryNode) String() string {
	if _, ok := n.Segment.(*SkipNode); ok {
		return "/"
	}
	return "/" + n.Segment.String()
}

func (n *SkipNode) String() string    { return "" }
func (n *CollectNode) String() string { return "/" + n.Arm.String() }
func (n *GroupNode) String() string   { return "(" + n.Arm.String() + ")" }
func (n *ListNode) String() string    { return "(" + joinNodes(n.Arms) + ")" }
func (n *RecordNode) String() string  { return "{" + joinNodes(n.Arms) + "}" }

func (n *SpecifyNode) String() string {
	var b strings.Builder
	if n.Reference {
		b.WriteByte('$')
	}
	b.WriteString(strings.Join(n.Path, "."))
	if n.HasParams {
		b.WriteByte('(')
		for i, p := range n.Params {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString("$" + p)
		}
		b.WriteByte(')')
	}
	return b.String()
}

func (n *AssignNode) String() string { return n.LHS.String() + ":=" + n.RHS.String() }

func (n *FunctionNode) String() string {
	return n.Name + "(" + joinNodes(n.Args) + ")"
}

func (n *PipeNode) String() string {
	sep := "/:"
	if n.IsFlow {
		sep = ":"
	}
	s := n.Larm.String() + sep + n.Name
	if n.HasCall {
		s += "(" + joinNodes(n.Args) + ")"
	}
	return s
}

func (n *OperatorNode) String() string {
	return n.Larm.String() + n.Symbol + n.Rarm.String()
}

func (n *PrefixNode) String() string  { return n.Symbol + n.Arm.String() }
func (n *FilterNode) String() string  { return n.Larm.String() + "?" + n.Rarm.String() }
func (n *ProjectNode) String() string { return n.Larm.String() + "^" + n.Rarm.String() }
func (n *SelectNode) String() string  { return n.Larm.String() + n.Rarm.String() }
func (n *ComposeNode) String() string { return n.Larm.String() + "." + n.Rarm.String() }
func (n *LocateNode) String() string  { return n.Larm.String() + n.Rarm.String() }
func (n *LinkNode) String() string    { return n.Larm.String() + "->" + n.Rarm.String() }
func (n *AttachNode) String() string  { return n.Larm.String() + "@" + n.Rarm.String() }
func (n *DirectNode) String() string  { return n.Arm.String() + n.Symbol }

func (n *IdentityNode) String() string {
	parts := make([]string, len(n.Arms))
	for i, a := range n.Arms {
		parts[i] = a.String()
	}
	if n.IsHard {
		return "[" + strings.Join(parts, ".") + "]"
	}
	return "(" + strings.Join(parts, ".") + ")"
}

func (n *LabelNode) String() string      { return n.Text }
func (n *ReferenceNode) String() string  { return "$" + n.Name }
func (n *IdentifierNode) String() string { return n.Name }
func (n *WildcardNode) String() string   { return "*" + n.Index }
func (n *ComplementNode) String() string { return "^" }
func (n *StringNode) String() string     { return quote(n.Text) }
func (n *IntegerNode) String() string    { return n.Text }
func (n *DecimalNode) String() string    { return n.Text }
func (n *FloatNode) String() string      { return n.Text }
