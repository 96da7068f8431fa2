// Package compiler turns an authored CUE ruleset document into the
// compiled internal/ir.Ruleset the match actor executes against.
//
// Grounded on concept.go's CompileConcept: required top-level fields are
// extracted by hand via LookupPath so a missing purpose/action (here:
// name/components/turn_structure) produces a CompileError carrying CUE
// source position, while the bulk of the nested tagged-union trees
// (predicates, selectors, effect pipelines) are populated by CUE's own
// Decode against internal/ir's existing json tags - the IR was designed
// for this compiler from the start, so a field-by-field manual walk
// would just restate the tags already on every ir type.
package compiler

import (
	"cuelang.org/go/cue"

	"github.com/teapot-games/matchcore/internal/ir"
)

// CompileRuleset parses a CUE value into a compiled Ruleset.
//
// The CUE value should be the top-level ruleset struct, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileBytes(source)
//	rs, err := compiler.CompileRuleset(v.LookupPath(cue.ParsePath("ruleset")))
func CompileRuleset(v cue.Value) (*ir.Ruleset, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: "name", Message: "name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	componentsVal := v.LookupPath(cue.ParsePath("components"))
	if !componentsVal.Exists() {
		return nil, &CompileError{Field: "components", Message: "at least one component is required", Pos: v.Pos()}
	}

	turnVal := v.LookupPath(cue.ParsePath("turn_structure"))
	if !turnVal.Exists() {
		return nil, &CompileError{Field: "turn_structure", Message: "turn_structure is required", Pos: v.Pos()}
	}

	rs := &ir.Ruleset{Name: name}
	if err := v.Decode(rs); err != nil {
		return nil, formatCUEError(err)
	}
	rs.Name = name // Decode would repopulate this too, but keep the validated copy.

	if len(rs.Components) == 0 {
		return nil, &CompileError{Field: "components", Message: "at least one component is required", Pos: componentsVal.Pos()}
	}
	if len(rs.TurnStructure.Phases) == 0 {
		return nil, &CompileError{Field: "turn_structure.phases", Message: "at least one phase is required", Pos: turnVal.Pos()}
	}

	return rs, nil
}
