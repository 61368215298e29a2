package binding

import (
	"fmt"
	"slices"
	"strings"

	"github.com/prometheusresearch/htsql-sub004/internal/domain"
)

// Signature is one overload of a function or operator.
//
// Params lists the accepted argument kinds; AnyKind accepts every scalar and
// unifies all AnyKind arguments to their common domain. A Result of AnyKind
// means "the common domain of the AnyKind arguments".
type Signature struct {
	Name      string
	Construct string // key of the dump rule
	Params    []domain.Kind
	Result    domain.Kind
	Aggregate bool
	Index     int // declaration order within the registry
}

func (s *Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("%s(%s) -> %s", s.Name, strings.Join(parts, ", "), s.Result)
}

// Registry holds the signatures available to queries for one dialect.
type Registry struct {
	byName map[string][]*Signature
	count  int
}

// NewRegistry validates and indexes signatures. Two overloads of one name
// with the same parameter kinds are rejected.
func NewRegistry(sigs []Signature) (*Registry, error) {
	r := &Registry{byName: make(map[string][]*Signature)}
	for i := range sigs {
		sig := sigs[i]
		for _, other := range r.byName[sig.Name] {
			if slices.Equal(other.Params, sig.Params) {
				return nil, fmt.Errorf("duplicate signature %s", sig.String())
			}
		}
		sig.Index = r.count
		r.count++
		r.byName[sig.Name] = append(r.byName[sig.Name], &sig)
	}
	return r, nil
}

// Has reports whether any overload of name is registered.
func (r *Registry) Has(name string) bool {
	return len(r.byName[name]) > 0
}

// Overloads returns the overloads of name in declaration order.
func (r *Registry) Overloads(name string) []*Signature {
	return r.byName[name]
}

// Resolution is the outcome of overload resolution.
type Resolution struct {
	Sig    *Signature
	Params []domain.Domain // the domain each argument converts to
	Result domain.Domain
}

// Resolve picks the overload of name that accepts args with the least
// implicit conversion.
//
// Candidates are ranked by the sum of argument distances, then by the
// distance vector compared left to right, then by declaration order.
// It returns nil when no overload applies.
func (r *Registry) Resolve(name string, args []domain.Domain) *Resolution {
	var best *Resolution
	var bestDist []int
	bestTotal := -1
	for _, sig := range r.byName[name] {
		res, dist, ok := match(sig, args)
		if !ok {
			continue
		}
		total := 0
		for _, d := range dist {
			total += d
		}
		better := best == nil || total < bestTotal ||
			total == bestTotal && slices.Compare(dist, bestDist) < 0
		if better {
			best, bestDist, bestTotal = res, dist, total
		}
	}
	return best
}

func match(sig *Signature, args []domain.Domain) (*Resolution, []int, bool) {
	if len(sig.Params) != len(args) {
		return nil, nil, false
	}
	var common domain.Domain = domain.Untyped{}
	hasAny := false
	for i, p := range sig.Params {
		if p != domain.AnyKind {
			continue
		}
		hasAny = true
		if !domain.IsScalar(args[i]) {
			return nil, nil, false
		}
		var ok bool
		if common, ok = domain.Coerce(common, args[i]); !ok {
			return nil, nil, false
		}
	}
	if hasAny && common.Kind() == domain.UntypedKind {
		common = domain.Text{}
	}

	res := &Resolution{Sig: sig, Params: make([]domain.Domain, len(args))}
	dist := make([]int, len(args))
	for i, p := range sig.Params {
		if p == domain.AnyKind {
			dist[i] = domain.Distance(args[i], domain.AnyKind)
			res.Params[i] = common
			continue
		}
		d := domain.Distance(args[i], p)
		if d < 0 {
			return nil, nil, false
		}
		dist[i] = d
		if args[i].Kind() == p {
			res.Params[i] = args[i]
		} else {
			res.Params[i], _ = domain.FromKind(p)
		}
	}
	switch {
	case sig.Result == domain.AnyKind:
		res.Result = common
	case sig.Result == domain.UntypedKind:
		res.Result = domain.Untyped{}
	default:
		res.Result, _ = domain.FromKind(sig.Result)
	}
	return res, dist, true
}
