// Package expr evaluates the expression, predicate, and selector
// tagged unions defined in internal/ir against live component state.
//
// Grounded on expression_model.py: ConstNumber/PropNumber/Add/Sub for
// numeric expressions, Gt/And for predicates, and Zone/Filter/Union for
// selectors, with "self" and "it" rebinding - "self" is fixed for the
// duration of one evaluation (the component whose rule triggered this
// expression), "it" is rebound to each candidate in turn while a Filter
// selector walks its inner selector's output.
package expr

import (
	"fmt"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/ir"
)

// Context carries the bindings an expression, predicate, or selector is
// evaluated against: the component manager to query zones against, and
// a set of named bindings ("self", "it", and any binding introduced by
// an enclosing for_each or trigger match).
type Context struct {
	Components *component.Manager
	Bindings   map[ir.Ref]*component.Component
}

// NewContext creates an evaluation context bound to self.
func NewContext(mgr *component.Manager, self *component.Component) *Context {
	return &Context{
		Components: mgr,
		Bindings:   map[ir.Ref]*component.Component{ir.RefSelf: self},
	}
}

// WithIt returns a copy of ctx with "it" rebound to candidate, used while
// a Filter selector walks candidates or a for_each effect iterates them.
func (c *Context) WithIt(candidate *component.Component) *Context {
	next := &Context{Components: c.Components, Bindings: make(map[ir.Ref]*component.Component, len(c.Bindings)+1)}
	for k, v := range c.Bindings {
		next.Bindings[k] = v
	}
	next.Bindings[ir.RefIt] = candidate
	return next
}

func (c *Context) resolve(ref ir.Ref) (*component.Component, error) {
	comp, ok := c.Bindings[ref]
	if !ok || comp == nil {
		return nil, fmt.Errorf("expr: unbound reference %q", ref)
	}
	return comp, nil
}

// ResolveTarget resolves a modify_state effect's Target string ("self",
// "it", or an enclosing for_each/trigger binding name) to its bound
// component.
func (c *Context) ResolveTarget(target string) (*component.Component, error) {
	return c.resolve(ir.Ref(target))
}

// EvalExpr evaluates a numeric expression.
func EvalExpr(ctx *Context, e ir.Expr) (int64, error) {
	switch e.Kind {
	case ir.ExprConstNumber:
		return e.Value, nil
	case ir.ExprPropNumber:
		comp, err := ctx.resolve(e.Ref)
		if err != nil {
			return 0, err
		}
		return propNumber(comp, e.Field)
	case ir.ExprAdd:
		l, err := evalOperand(ctx, e.Left)
		if err != nil {
			return 0, err
		}
		r, err := evalOperand(ctx, e.Right)
		if err != nil {
			return 0, err
		}
		return l + r, nil
	case ir.ExprSub:
		l, err := evalOperand(ctx, e.Left)
		if err != nil {
			return 0, err
		}
		r, err := evalOperand(ctx, e.Right)
		if err != nil {
			return 0, err
		}
		return l - r, nil
	default:
		return 0, fmt.Errorf("expr: unknown expression kind %q", e.Kind)
	}
}

func evalOperand(ctx *Context, e *ir.Expr) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("expr: missing operand")
	}
	return EvalExpr(ctx, *e)
}

// propNumber reads a numeric property off a component: first its
// instance properties, falling back to summing any resource instances
// whose schema name matches the field (so "power" resolves whether it
// was set as a property or modeled as a resource).
func propNumber(comp *component.Component, field string) (int64, error) {
	if comp == nil {
		return 0, fmt.Errorf("expr: prop_number on nil component")
	}
	if v, ok := comp.Properties[field]; ok {
		if n, ok := v.(ir.IRInt); ok {
			return int64(n), nil
		}
		return 0, fmt.Errorf("expr: property %q is not numeric", field)
	}
	var total int64
	found := false
	for _, instID := range comp.ResourceInstances(field) {
		r, ok := comp.Resource(instID)
		if !ok {
			continue
		}
		total += r.CurrentAmount
		found = true
	}
	if !found {
		return 0, fmt.Errorf("expr: unknown field %q", field)
	}
	return total, nil
}

// EvalPredicate evaluates a boolean predicate.
func EvalPredicate(ctx *Context, p ir.Predicate) (bool, error) {
	switch p.Kind {
	case ir.PredGt:
		l, err := evalOperand(ctx, p.Left)
		if err != nil {
			return false, err
		}
		r, err := evalOperand(ctx, p.Right)
		if err != nil {
			return false, err
		}
		return l > r, nil
	case ir.PredAnd:
		for _, term := range p.Terms {
			ok, err := EvalPredicate(ctx, term)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("expr: unknown predicate kind %q", p.Kind)
	}
}

// EvalSelector evaluates a selector into its candidate component set.
func EvalSelector(ctx *Context, s ir.Selector) ([]*component.Component, error) {
	switch s.Kind {
	case ir.SelectorZone:
		return ctx.Components.ByZone(s.ZoneID), nil
	case ir.SelectorFilter:
		if s.Inner == nil || s.Predicate == nil {
			return nil, fmt.Errorf("expr: filter selector missing inner or predicate")
		}
		candidates, err := EvalSelector(ctx, *s.Inner)
		if err != nil {
			return nil, err
		}
		out := make([]*component.Component, 0, len(candidates))
		for _, cand := range candidates {
			keep, err := EvalPredicate(ctx.WithIt(cand), *s.Predicate)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, cand)
			}
		}
		return out, nil
	case ir.SelectorUnion:
		seen := make(map[component.ID]bool)
		var out []*component.Component
		for _, inner := range s.Of {
			candidates, err := EvalSelector(ctx, inner)
			if err != nil {
				return nil, err
			}
			for _, cand := range candidates {
				if !seen[cand.ID] {
					seen[cand.ID] = true
					out = append(out, cand)
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expr: unknown selector kind %q", s.Kind)
	}
}
