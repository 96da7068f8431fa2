package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teapot-games/matchcore/internal/component"
	"github.com/teapot-games/matchcore/internal/ir"
)

func TestEvalExprConstNumber(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	ctx := NewContext(mgr, self)

	v, err := EvalExpr(ctx, ir.Expr{Kind: ir.ExprConstNumber, Value: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestEvalExprPropNumberReadsProperty(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", map[string]ir.IRValue{"power": ir.IRInt(5)}, nil)
	ctx := NewContext(mgr, self)

	v, err := EvalExpr(ctx, ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.RefSelf, Field: "power"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestEvalExprPropNumberSumsResourceInstances(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	self.AddResourceInstance(ir.ResourceSchema{Name: "charge", Kind: ir.ResourceTracked}, nil)
	id2 := self.AddResourceInstance(ir.ResourceSchema{Name: "charge", Kind: ir.ResourceTracked}, nil)
	r2, _ := self.Resource(id2)
	r2.Gain(4)
	ctx := NewContext(mgr, self)

	v, err := EvalExpr(ctx, ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.RefSelf, Field: "charge"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
}

func TestEvalExprPropNumberUnknownFieldErrors(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	ctx := NewContext(mgr, self)

	_, err := EvalExpr(ctx, ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.RefSelf, Field: "nonexistent"})
	assert.Error(t, err)
}

func TestEvalExprAddAndSub(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	ctx := NewContext(mgr, self)

	add, err := EvalExpr(ctx, ir.Expr{
		Kind:  ir.ExprAdd,
		Left:  &ir.Expr{Kind: ir.ExprConstNumber, Value: 3},
		Right: &ir.Expr{Kind: ir.ExprConstNumber, Value: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), add)

	sub, err := EvalExpr(ctx, ir.Expr{
		Kind:  ir.ExprSub,
		Left:  &ir.Expr{Kind: ir.ExprConstNumber, Value: 10},
		Right: &ir.Expr{Kind: ir.ExprConstNumber, Value: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), sub)
}

func TestEvalPredicateGt(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	ctx := NewContext(mgr, self)

	ok, err := EvalPredicate(ctx, ir.Predicate{
		Kind:  ir.PredGt,
		Left:  &ir.Expr{Kind: ir.ExprConstNumber, Value: 5},
		Right: &ir.Expr{Kind: ir.ExprConstNumber, Value: 3},
	})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalPredicateAndShortCircuitsOnFirstFalse(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	ctx := NewContext(mgr, self)

	truePred := ir.Predicate{Kind: ir.PredGt, Left: &ir.Expr{Kind: ir.ExprConstNumber, Value: 1}, Right: &ir.Expr{Kind: ir.ExprConstNumber, Value: 0}}
	falsePred := ir.Predicate{Kind: ir.PredGt, Left: &ir.Expr{Kind: ir.ExprConstNumber, Value: 0}, Right: &ir.Expr{Kind: ir.ExprConstNumber, Value: 1}}

	ok, err := EvalPredicate(ctx, ir.Predicate{Kind: ir.PredAnd, Terms: []ir.Predicate{truePred, falsePred}})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EvalPredicate(ctx, ir.Predicate{Kind: ir.PredAnd, Terms: []ir.Predicate{truePred, truePred}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithItRebindsItWithoutMutatingParent(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	candidate := mgr.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", map[string]ir.IRValue{"power": ir.IRInt(2)}, nil)
	ctx := NewContext(mgr, self)

	itCtx := ctx.WithIt(candidate)
	v, err := EvalExpr(itCtx, ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.RefIt, Field: "power"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	_, err = EvalExpr(ctx, ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.RefIt, Field: "power"})
	assert.Error(t, err, "the original context must not gain an it binding")
}

func TestEvalSelectorZoneReturnsZoneContents(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	mgr.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", nil, nil)
	mgr.Create(ir.ComponentDef{Name: "Creature"}, "hand", "p1", nil, nil)
	ctx := NewContext(mgr, self)

	out, err := EvalSelector(ctx, ir.Selector{Kind: ir.SelectorZone, ZoneID: "battlefield"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestEvalSelectorFilterNarrowsByPredicate(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	mgr.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", map[string]ir.IRValue{"power": ir.IRInt(1)}, nil)
	big := mgr.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", map[string]ir.IRValue{"power": ir.IRInt(9)}, nil)
	ctx := NewContext(mgr, self)

	strong := ir.Predicate{Kind: ir.PredGt, Left: &ir.Expr{Kind: ir.ExprPropNumber, Ref: ir.RefIt, Field: "power"}, Right: &ir.Expr{Kind: ir.ExprConstNumber, Value: 5}}
	out, err := EvalSelector(ctx, ir.Selector{
		Kind:      ir.SelectorFilter,
		Inner:     &ir.Selector{Kind: ir.SelectorZone, ZoneID: "battlefield"},
		Predicate: &strong,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, big.ID, out[0].ID)
}

func TestEvalSelectorUnionMergesWithoutDuplicates(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	mgr.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", nil, nil)
	mgr.Create(ir.ComponentDef{Name: "Creature"}, "hand", "p1", nil, nil)
	ctx := NewContext(mgr, self)

	out, err := EvalSelector(ctx, ir.Selector{
		Kind: ir.SelectorUnion,
		Of: []ir.Selector{
			{Kind: ir.SelectorZone, ZoneID: "battlefield"},
			{Kind: ir.SelectorZone, ZoneID: "hand"},
			{Kind: ir.SelectorZone, ZoneID: "battlefield"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestResolveTargetResolvesBindingByName(t *testing.T) {
	mgr := component.NewManager()
	self := mgr.Create(ir.ComponentDef{Name: "Player"}, "", "p1", nil, nil)
	ctx := NewContext(mgr, self)

	got, err := ctx.ResolveTarget("self")
	require.NoError(t, err)
	assert.Equal(t, self.ID, got.ID)

	_, err = ctx.ResolveTarget("unbound")
	assert.Error(t, err)
}
