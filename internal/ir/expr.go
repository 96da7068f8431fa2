package ir

// ExprKind is the closed tagged-union discriminator for numeric expressions.
type ExprKind string

const (
	ExprConstNumber ExprKind = "const_number"
	ExprPropNumber  ExprKind = "prop_number"
	ExprAdd         ExprKind = "add"
	ExprSub         ExprKind = "sub"
)

// Ref selects which bound object a PropNumber or FilterSelector predicate
// reads from: "self" is the component owning the rule context, "it" is
// rebound per-candidate while evaluating a selector, anything else is a
// binding name introduced by an enclosing for_each or trigger match.
type Ref string

const (
	RefSelf Ref = "self"
	RefIt   Ref = "it"
)

// Expr is a numeric expression node. Only fields relevant to Kind are set.
type Expr struct {
	Kind ExprKind `json:"kind"`

	// const_number
	Value int64 `json:"value,omitempty"`

	// prop_number
	Ref   Ref    `json:"ref,omitempty"`
	Field string `json:"field,omitempty"`

	// add / sub
	Left  *Expr `json:"left,omitempty"`
	Right *Expr `json:"right,omitempty"`
}

// Dependency is a (component-or-zone, field) pair an expression or
// selector reads, reported so the engine can memoize or invalidate
// derived values without re-walking the whole ruleset.
type Dependency struct {
	Scope string `json:"scope"` // ref name, or a zone id for selectors
	Field string `json:"field"`
}

// Deps returns the dependency set of this expression.
func (e Expr) Deps() []Dependency {
	switch e.Kind {
	case ExprConstNumber:
		return nil
	case ExprPropNumber:
		return []Dependency{{Scope: string(e.Ref), Field: e.Field}}
	case ExprAdd, ExprSub:
		var out []Dependency
		if e.Left != nil {
			out = append(out, e.Left.Deps()...)
		}
		if e.Right != nil {
			out = append(out, e.Right.Deps()...)
		}
		return out
	default:
		return nil
	}
}

// PredicateKind is the closed tagged-union discriminator for boolean predicates.
type PredicateKind string

const (
	PredGt  PredicateKind = "gt"
	PredAnd PredicateKind = "and"
)

// Predicate is a boolean expression node.
type Predicate struct {
	Kind PredicateKind `json:"kind"`

	// gt
	Left  *Expr `json:"left,omitempty"`
	Right *Expr `json:"right,omitempty"`

	// and
	Terms []Predicate `json:"terms,omitempty"`
}

// Deps returns the dependency set of this predicate.
func (p Predicate) Deps() []Dependency {
	switch p.Kind {
	case PredGt:
		var out []Dependency
		if p.Left != nil {
			out = append(out, p.Left.Deps()...)
		}
		if p.Right != nil {
			out = append(out, p.Right.Deps()...)
		}
		return out
	case PredAnd:
		var out []Dependency
		for _, t := range p.Terms {
			out = append(out, t.Deps()...)
		}
		return out
	default:
		return nil
	}
}

// SelectorKind is the closed tagged-union discriminator for component selectors.
type SelectorKind string

const (
	SelectorZone   SelectorKind = "zone"
	SelectorFilter SelectorKind = "filter"
	SelectorUnion  SelectorKind = "union"
)

// Selector is a candidate-set query node. Zone selects every component in
// a zone; Filter narrows an inner selector's candidates by a predicate
// (rebinding "it" to each candidate in turn); Union merges candidate sets.
type Selector struct {
	Kind SelectorKind `json:"kind"`

	// zone
	ZoneID string `json:"zone_id,omitempty"`

	// filter
	Inner     *Selector  `json:"inner,omitempty"`
	Predicate *Predicate `json:"predicate,omitempty"`

	// union
	Of []Selector `json:"of,omitempty"`
}

// Deps returns the dependency set of this selector.
func (s Selector) Deps() []Dependency {
	switch s.Kind {
	case SelectorZone:
		return []Dependency{{Scope: s.ZoneID, Field: "*"}}
	case SelectorFilter:
		var out []Dependency
		if s.Inner != nil {
			out = append(out, s.Inner.Deps()...)
		}
		if s.Predicate != nil {
			out = append(out, s.Predicate.Deps()...)
		}
		return out
	case SelectorUnion:
		var out []Dependency
		for _, inner := range s.Of {
			out = append(out, inner.Deps()...)
		}
		return out
	default:
		return nil
	}
}
