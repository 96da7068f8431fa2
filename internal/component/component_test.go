package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teapot-games/matchcore/internal/ir"
)

func TestManagerCreateIndexesByDefinitionZoneController(t *testing.T) {
	m := NewManager()
	def := ir.ComponentDef{Name: "Creature"}
	c := m.Create(def, "battlefield", "p1", nil, nil)

	assert.Equal(t, ID(1), c.ID)
	assert.Len(t, m.ByDefinition("Creature"), 1)
	assert.Len(t, m.ByZone("battlefield"), 1)
	assert.Len(t, m.ByController("p1"), 1)
}

func TestManagerMoveUpdatesZoneIndex(t *testing.T) {
	m := NewManager()
	c := m.Create(ir.ComponentDef{Name: "Creature"}, "hand", "p1", nil, nil)

	ok := m.Move(c.ID, "battlefield", "")
	require.True(t, ok)
	assert.Empty(t, m.ByZone("hand"))
	assert.Len(t, m.ByZone("battlefield"), 1)
	assert.Equal(t, "p1", c.ControllerID, "move without new controller keeps old controller")
}

func TestManagerRemove(t *testing.T) {
	m := NewManager()
	c := m.Create(ir.ComponentDef{Name: "Creature"}, "battlefield", "p1", nil, nil)
	assert.True(t, m.Remove(c.ID))
	assert.False(t, m.Remove(c.ID), "removing twice reports not found")
	assert.Empty(t, m.ByZone("battlefield"))
	assert.Equal(t, 0, m.Count())
}

func TestComponentTriggersAreCopiedNotShared(t *testing.T) {
	m := NewManager()
	triggers := []ir.TriggerDef{{ID: "t1"}}
	c := m.Create(ir.ComponentDef{Name: "Creature"}, "", "", nil, triggers)
	triggers[0].ID = "mutated"
	assert.Equal(t, "t1", c.Triggers[0].ID, "instance triggers must not alias the definition's slice")
}

func TestResourceInstanceSpendAndGain(t *testing.T) {
	c := &Component{}
	schema := ir.ResourceSchema{Name: "mana", Kind: ir.ResourceTracked, Default: 0}
	id := c.AddResourceInstance(schema, nil)

	r, ok := c.Resource(id)
	require.True(t, ok)
	r.Gain(3)
	assert.Equal(t, int64(3), r.CurrentAmount)

	assert.True(t, r.Spend(2))
	assert.Equal(t, int64(1), r.CurrentAmount)
	assert.False(t, r.Spend(5), "cannot overspend")
}

func TestResourceBinarySpend(t *testing.T) {
	r := &ResourceInstance{Def: ir.ResourceSchema{Kind: ir.ResourceBinary}, CurrentAmount: 1}
	assert.True(t, r.Spend(1))
	assert.Equal(t, int64(0), r.CurrentAmount)
	assert.False(t, r.Spend(1), "binary resource already spent")
}

func TestResourceResetTurnConsumableResetsToDefault(t *testing.T) {
	r := &ResourceInstance{Def: ir.ResourceSchema{Kind: ir.ResourceConsumable, Default: 2}, CurrentAmount: 0, SpentThisTurn: 2}
	r.ResetTurn()
	assert.Equal(t, int64(2), r.CurrentAmount)
	assert.Equal(t, int64(0), r.SpentThisTurn)
}

func TestResourceResetTurnAccumulatingKeepsTotal(t *testing.T) {
	r := &ResourceInstance{Def: ir.ResourceSchema{Kind: ir.ResourceAccumulating, Default: 0}, CurrentAmount: 5}
	r.ResetTurn()
	assert.Equal(t, int64(5), r.CurrentAmount)
}

func TestMultipleResourceInstancesOfSameDef(t *testing.T) {
	c := &Component{}
	schema := ir.ResourceSchema{Name: "charge", Kind: ir.ResourceTracked}
	id1 := c.AddResourceInstance(schema, nil)
	id2 := c.AddResourceInstance(schema, nil)
	assert.NotEqual(t, id1, id2)
	assert.ElementsMatch(t, []ResourceInstanceID{id1, id2}, c.ResourceInstances("charge"))
}
