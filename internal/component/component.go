// Package component manages component instances: creation, resource
// attachment, and indexed lookup by type, zone, and controller.
//
// Grounded on component.py's Component/ComponentManager: instances are
// created from an ir.ComponentDef, triggers are copied onto the
// instance at creation time (so later edits to the definition don't
// retroactively change instances already in play), and the manager
// keeps three parallel indices (by definition name, by zone, by
// controller) for O(1) selector evaluation instead of scanning every
// component on every query.
package component

import "github.com/teapot-games/matchcore/internal/ir"

// Status is the lifecycle state of a component instance.
type Status int

const (
	StatusActive Status = iota
	StatusInactive
	StatusDestroyed
)

// ID is a match-local component instance identifier.
type ID int64

// ResourceInstanceID identifies one resource instance on a component.
type ResourceInstanceID int64

// ResourceInstance is a live resource slot on a component instance.
type ResourceInstance struct {
	Def            ir.ResourceSchema
	CurrentAmount  int64
	SpentThisTurn  int64
	GainedThisTurn int64
}

// Gain increases the resource by amount, respecting accumulating vs.
// per-turn-only semantics (accumulating carries over; others just add
// to the running total, reset happens on turn boundaries elsewhere).
func (r *ResourceInstance) Gain(amount int64) {
	r.CurrentAmount += amount
	r.GainedThisTurn += amount
}

// Spend attempts to deduct amount. Returns false without modifying state
// if the resource would go negative.
func (r *ResourceInstance) Spend(amount int64) bool {
	if r.Def.Kind == ir.ResourceBinary {
		if r.CurrentAmount == 0 {
			return false
		}
		r.CurrentAmount = 0
		r.SpentThisTurn += amount
		return true
	}
	if r.CurrentAmount < amount {
		return false
	}
	r.CurrentAmount -= amount
	r.SpentThisTurn += amount
	return true
}

// ResetTurn clears per-turn counters. Consumable resources additionally
// reset to their definition default; tracked and accumulating resources
// keep their running total.
func (r *ResourceInstance) ResetTurn() {
	r.SpentThisTurn = 0
	r.GainedThisTurn = 0
	if r.Def.Kind == ir.ResourceConsumable {
		r.CurrentAmount = r.Def.Default
	}
}

// Component is one instance of a component definition in play.
type Component struct {
	ID             ID
	DefinitionName string
	Name           string

	Properties map[string]ir.IRValue
	Status     Status

	Zone         string
	ControllerID string

	Triggers []ir.TriggerDef
	Metadata map[string]string

	resourcesByInstance   map[ResourceInstanceID]*ResourceInstance
	instancesByDefName    map[string][]ResourceInstanceID
	nextResourceInstance  ResourceInstanceID
}

// IsActive reports whether the component is in play and not destroyed.
func (c *Component) IsActive() bool {
	return c.Status == StatusActive
}

// AddResourceInstance attaches a new resource instance for the given
// schema and returns its instance id. Starting amount defaults to the
// schema default when startingAmount is nil.
func (c *Component) AddResourceInstance(schema ir.ResourceSchema, startingAmount *int64) ResourceInstanceID {
	if c.resourcesByInstance == nil {
		c.resourcesByInstance = make(map[ResourceInstanceID]*ResourceInstance)
		c.instancesByDefName = make(map[string][]ResourceInstanceID)
	}
	c.nextResourceInstance++
	id := c.nextResourceInstance
	amount := schema.Default
	if startingAmount != nil {
		amount = *startingAmount
	}
	c.resourcesByInstance[id] = &ResourceInstance{Def: schema, CurrentAmount: amount}
	c.instancesByDefName[schema.Name] = append(c.instancesByDefName[schema.Name], id)
	return id
}

// ResourceInstances returns every instance id attached for a resource
// definition name (a component may have more than one instance of the
// same resource kind, e.g. two independent counters).
func (c *Component) ResourceInstances(defName string) []ResourceInstanceID {
	return append([]ResourceInstanceID(nil), c.instancesByDefName[defName]...)
}

// Resource looks up a resource instance by its instance id.
func (c *Component) Resource(id ResourceInstanceID) (*ResourceInstance, bool) {
	r, ok := c.resourcesByInstance[id]
	return r, ok
}

// AllResourceInstances returns every resource instance attached to this
// component, in no particular order.
func (c *Component) AllResourceInstances() []*ResourceInstance {
	out := make([]*ResourceInstance, 0, len(c.resourcesByInstance))
	for _, r := range c.resourcesByInstance {
		out = append(out, r)
	}
	return out
}

// Trigger looks up a copied trigger by id.
func (c *Component) Trigger(triggerID string) (ir.TriggerDef, bool) {
	for _, t := range c.Triggers {
		if t.ID == triggerID {
			return t, true
		}
	}
	return ir.TriggerDef{}, false
}

// RemoveTrigger removes a copied trigger by id, returning whether it was found.
func (c *Component) RemoveTrigger(triggerID string) bool {
	for i, t := range c.Triggers {
		if t.ID == triggerID {
			c.Triggers = append(c.Triggers[:i], c.Triggers[i+1:]...)
			return true
		}
	}
	return false
}

// Manager creates, indexes, and looks up component instances for one match.
type Manager struct {
	components       map[ID]*Component
	nextID           ID
	byDefinitionName map[string][]ID
	byZone           map[string][]ID
	byController     map[string][]ID
}

// NewManager creates an empty component manager.
func NewManager() *Manager {
	return &Manager{
		components:       make(map[ID]*Component),
		byDefinitionName: make(map[string][]ID),
		byZone:           make(map[string][]ID),
		byController:     make(map[string][]ID),
	}
}

// Create instantiates a new component from a definition, copying its
// trigger list onto the instance.
func (m *Manager) Create(def ir.ComponentDef, zone, controllerID string, props map[string]ir.IRValue, triggers []ir.TriggerDef) *Component {
	m.nextID++
	c := &Component{
		ID:             m.nextID,
		DefinitionName: def.Name,
		Name:           def.Name,
		Properties:     props,
		Status:         StatusActive,
		Zone:           zone,
		ControllerID:   controllerID,
		Triggers:       append([]ir.TriggerDef(nil), triggers...),
		Metadata:       make(map[string]string),
	}
	m.components[c.ID] = c
	m.index(c)
	return c
}

// Get retrieves a component by id.
func (m *Manager) Get(id ID) (*Component, bool) {
	c, ok := m.components[id]
	return c, ok
}

// Remove deletes a component instance and its index entries.
func (m *Manager) Remove(id ID) bool {
	c, ok := m.components[id]
	if !ok {
		return false
	}
	m.unindex(c)
	delete(m.components, id)
	return true
}

// ByDefinition returns every live instance of a component definition.
func (m *Manager) ByDefinition(defName string) []*Component {
	return m.resolve(m.byDefinitionName[defName])
}

// ByZone returns every live component currently in a zone.
func (m *Manager) ByZone(zone string) []*Component {
	return m.resolve(m.byZone[zone])
}

// ByController returns every live component controlled by a player.
func (m *Manager) ByController(controllerID string) []*Component {
	return m.resolve(m.byController[controllerID])
}

// Move relocates a component to a new zone, optionally changing controller.
func (m *Manager) Move(id ID, newZone, newController string) bool {
	c, ok := m.components[id]
	if !ok {
		return false
	}
	oldZone := c.Zone
	c.Zone = newZone
	if newController != "" {
		c.ControllerID = newController
	}
	m.byZone[oldZone] = removeID(m.byZone[oldZone], id)
	m.byZone[newZone] = append(m.byZone[newZone], id)
	return true
}

// All returns every live component instance.
func (m *Manager) All() []*Component {
	out := make([]*Component, 0, len(m.components))
	for _, c := range m.components {
		out = append(out, c)
	}
	return out
}

// Count returns the total number of live component instances.
func (m *Manager) Count() int {
	return len(m.components)
}

func (m *Manager) resolve(ids []ID) []*Component {
	out := make([]*Component, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.components[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (m *Manager) index(c *Component) {
	m.byDefinitionName[c.DefinitionName] = append(m.byDefinitionName[c.DefinitionName], c.ID)
	if c.Zone != "" {
		m.byZone[c.Zone] = append(m.byZone[c.Zone], c.ID)
	}
	if c.ControllerID != "" {
		m.byController[c.ControllerID] = append(m.byController[c.ControllerID], c.ID)
	}
}

func (m *Manager) unindex(c *Component) {
	m.byDefinitionName[c.DefinitionName] = removeID(m.byDefinitionName[c.DefinitionName], c.ID)
	if c.Zone != "" {
		m.byZone[c.Zone] = removeID(m.byZone[c.Zone], c.ID)
	}
	if c.ControllerID != "" {
		m.byController[c.ControllerID] = removeID(m.byController[c.ControllerID], c.ID)
	}
}

func removeID(ids []ID, target ID) []ID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
