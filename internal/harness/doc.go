// Package harness provides conformance testing for compiled rulesets.
//
// The harness loads a ruleset, sets up a board of components, drives it
// through a sequence of actions and submitted inputs against a
// internal/match Actor, and validates the resulting event log and final
// state against assertions declared alongside the scenario.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	ruleset: path/to/ruleset.json
//	players: [p1, p2]
//	seed: 1
//	setup:
//	  - bind: hero
//	    component: Creature
//	    zone: battlefield
//	    controller: p1
//	    props: { power: 3 }
//	flow:
//	  - action: attack
//	    player: p1
//	    targets: { defender: [hero] }
//	assertions:
//	  - type: event_occurs
//	    event_type: ResourceChanged
//	  - type: final_resource
//	    bind: hero
//	    resource: power
//	    amount: 3
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - event_occurs: verifies an event of the given type appears in the log
//   - event_order: verifies event types appear in the given relative order
//   - event_count: verifies an event type appears exactly N times
//   - final_phase: verifies the match's current phase at the end of the run
//   - final_resource: verifies a bound component's resource amount
//   - final_zone: verifies a bound component's zone
//   - ended: verifies whether the match reached a terminal outcome
package harness
