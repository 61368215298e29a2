package flow

import (
	"fmt"
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/binding"
	"github.com/prometheusresearch/htsql-sub004/internal/catalog"
	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// Code is a typed expression evaluated against a flow.
type Code interface {
	Domain() domain.Domain
	Key() Key
	// Units lists the leaves of the expression that read from a flow.
	Units() []Unit
	String() string
	code()
}

// Unit is a code that pulls a value out of a flow.
type Unit interface {
	Code
	Flow() Flow
}

type codeNode struct {
	key Key
	dom domain.Domain
}

func (c *codeNode) Key() Key              { return c.key }
func (c *codeNode) Domain() domain.Domain { return c.dom }
func (*codeNode) code()                   {}

// Literal is a constant value; nil is NULL.
type Literal struct {
	codeNode
	Value any
}

// Cast converts its argument to the code's domain.
type Cast struct {
	codeNode
	Arm Code
}

// Formula applies a scalar signature.
type Formula struct {
	codeNode
	Sig  *binding.Signature
	Args []Code
}

// Composite is a tuple of codes: the identity of a row.
type Composite struct {
	codeNode
	Elements []Code
}

// ColumnUnit is a column of the table behind its flow.
type ColumnUnit struct {
	codeNode
	Column   catalog.ColumnID
	Name     string
	Nullable bool
	flow     Flow
}

// KernelUnit is the value of a quotient kernel, read from the quotient.
type KernelUnit struct {
	codeNode
	Quotient *Quotient
	Index    int
}

// AggregateUnit folds Plural into a single value per row of its flow.
// Arg is nil when rows are counted.
type AggregateUnit struct {
	codeNode
	Sig    *binding.Signature
	Arg    Code
	Plural Flow
	flow   Flow
}

// NewLiteral returns a constant of domain d.
func NewLiteral(v any, d domain.Domain) *Literal {
	key := newKey(domainCode, "literal").str(d.String()).str(literalText(v, d)).sum()
	return &Literal{codeNode: codeNode{key: key, dom: d}, Value: v}
}

func literalText(v any, d domain.Domain) string {
	if v == nil {
		return "\x00null"
	}
	return domain.Format(d, v)
}

// NewCast converts arm to d.
func NewCast(arm Code, d domain.Domain) *Cast {
	key := newKey(domainCode, "cast").str(d.String()).key(arm.Key()).sum()
	return &Cast{codeNode: codeNode{key: key, dom: d}, Arm: arm}
}

// NewFormula applies sig to args.
func NewFormula(sig *binding.Signature, args []Code, d domain.Domain) *Formula {
	kb := newKey(domainCode, "formula").str(sig.String()).str(d.String())
	for _, a := range args {
		kb.key(a.Key())
	}
	return &Formula{codeNode: codeNode{key: kb.sum(), dom: d}, Sig: sig, Args: args}
}

// NewComposite returns the tuple of elements.
func NewComposite(elements []Code, d domain.Domain) *Composite {
	kb := newKey(domainCode, "composite")
	for _, e := range elements {
		kb.key(e.Key())
	}
	return &Composite{codeNode: codeNode{key: kb.sum(), dom: d}, Elements: elements}
}

// NewColumnUnit returns column col of the table behind f.
func NewColumnUnit(cat *catalog.Catalog, col catalog.ColumnID, f Flow) *ColumnUnit {
	c := cat.Column(col)
	key := newKey(domainCode, "column").key(f.Key()).int(int64(col)).sum()
	return &ColumnUnit{
		codeNode: codeNode{key: key, dom: c.Domain},
		Column:   col,
		Name:     c.Name,
		Nullable: c.Nullable,
		flow:     f,
	}
}

// NewKernelUnit returns kernel i of q.
func NewKernelUnit(q *Quotient, i int) *KernelUnit {
	key := newKey(domainCode, "kernel").key(q.Key()).int(int64(i)).sum()
	return &KernelUnit{codeNode: codeNode{key: key, dom: q.Kernels[i].Domain()}, Quotient: q, Index: i}
}

// NewAggregateUnit folds arg over plural, once per row of f.
func NewAggregateUnit(sig *binding.Signature, arg Code, plural, f Flow, d domain.Domain) *AggregateUnit {
	kb := newKey(domainCode, "aggregate").str(sig.String()).key(plural.Key()).key(f.Key())
	if arg != nil {
		kb.key(arg.Key())
	}
	return &AggregateUnit{
		codeNode: codeNode{key: kb.sum(), dom: d},
		Sig:      sig,
		Arg:      arg,
		Plural:   plural,
		flow:     f,
	}
}

func (c *ColumnUnit) Flow() Flow    { return c.flow }
func (c *KernelUnit) Flow() Flow    { return c.Quotient }
func (c *AggregateUnit) Flow() Flow { return c.flow }

func (c *Literal) Units() []Unit       { return nil }
func (c *Cast) Units() []Unit          { return c.Arm.Units() }
func (c *Formula) Units() []Unit       { return unitsOf(c.Args) }
func (c *Composite) Units() []Unit     { return unitsOf(c.Elements) }
func (c *ColumnUnit) Units() []Unit    { return []Unit{c} }
func (c *KernelUnit) Units() []Unit    { return []Unit{c} }
func (c *AggregateUnit) Units() []Unit { return []Unit{c} }

func unitsOf(codes []Code) []Unit {
	var out []Unit
	seen := make(map[Key]bool)
	for _, c := range codes {
		for _, u := range c.Units() {
			if !seen[u.Key()] {
				seen[u.Key()] = true
				out = append(out, u)
			}
		}
	}
	return out
}

// UnitsOf returns the distinct units of codes in first-use order.
func UnitsOf(codes ...Code) []Unit {
	return unitsOf(codes)
}

func (c *Literal) String() string {
	if c.Value == nil {
		return "null()"
	}
	if c.dom.Kind() == domain.TextKind || c.dom.Kind() == domain.EnumKind || c.dom.Kind() == domain.UntypedKind {
		return "'" + strings.ReplaceAll(domain.Format(c.dom, c.Value), "'", "''") + "'"
	}
	return domain.Format(c.dom, c.Value)
}

func (c *Cast) String() string { return fmt.Sprintf("%s(%s)", c.dom, c.Arm) }

func (c *Formula) String() string {
	return fmt.Sprintf("%s(%s)", c.Sig.Name, joinCodes(c.Args))
}

func (c *Composite) String() string { return "[" + joinCodes(c.Elements) + "]" }

func (c *ColumnUnit) String() string { return c.Name }

func (c *KernelUnit) String() string { return fmt.Sprintf("kernel(%d)", c.Index) }

func (c *AggregateUnit) String() string {
	if c.Arg == nil {
		return fmt.Sprintf("%s(%s)", c.Sig.Name, c.Plural)
	}
	return fmt.Sprintf("%s(%s)", c.Sig.Name, c.Arg)
}

func joinCodes(codes []Code) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}
