package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/teapot-games/matchcore/internal/compiler"
	"github.com/teapot-games/matchcore/internal/ir"
)

// LoadError represents an error that occurred while loading or
// compiling a CUE ruleset source file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants shared across the compile/validate commands.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // file write error
)

// LoadCUERuleset reads a CUE source file, looks up its top-level
// "ruleset" value, and compiles it to an ir.Ruleset via
// internal/compiler.CompileRuleset.
func LoadCUERuleset(path string) (*ir.Ruleset, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("ruleset file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s is a directory, expected a .cue file", path)}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	rulesetVal := v.LookupPath(cue.ParsePath("ruleset"))
	if !rulesetVal.Exists() {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s has no top-level \"ruleset\" value", path)}
	}

	rs, err := compiler.CompileRuleset(rulesetVal)
	if err != nil {
		var compileErr *compiler.CompileError
		if ok := asCompileError(err, &compileErr); ok {
			return nil, &LoadError{Code: MapFieldToErrorCode(compileErr.Field), Message: compileErr.Message, Pos: compileErr.Pos}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
	}
	return rs, nil
}

func asCompileError(err error, target **compiler.CompileError) bool {
	ce, ok := err.(*compiler.CompileError)
	if !ok {
		return false
	}
	*target = ce
	return true
}

// MapFieldToErrorCode maps a compiler error field to a stable CLI error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "name":
		return "E101"
	case "components":
		return "E102"
	case "turn_structure", "turn_structure.phases":
		return "E103"
	default:
		return ErrCodeGeneric
	}
}

// LoadJSONRuleset reads a compiled ruleset JSON file (the wire IR, as
// produced by `matchcore compile`).
func LoadJSONRuleset(path string) (*ir.Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("ruleset file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}
	rs, err := ir.RulesetFromJSON(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("decoding %s: %v", path, err)}
	}
	return rs, nil
}
