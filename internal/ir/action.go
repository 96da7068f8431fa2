package ir

import "fmt"

// ValidTypes defines the allowed type strings for rule parameters.
// NO "float" - floats are forbidden since they break deterministic replay.
var ValidTypes = map[string]bool{
	"string": true,
	"int":    true,
	"bool":   true,
	"array":  true,
	"object": true,
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks an ActionDef against schema rules. Returns all errors
// (not fail-fast) for better developer experience when authoring rulesets.
func (a *ActionDef) Validate() []ValidationError {
	var errs []ValidationError

	if a.ID == "" {
		errs = append(errs, ValidationError{Field: "id", Message: "action id is required"})
	}
	if a.Timing != TimingStack && a.Timing != TimingInstant {
		errs = append(errs, ValidationError{
			Field:   "timing",
			Message: fmt.Sprintf("invalid timing %q, must be %q or %q", a.Timing, TimingStack, TimingInstant),
		})
	}
	if len(a.ExecuteRuleIDs) == 0 {
		errs = append(errs, ValidationError{Field: "execute_rule_ids", Message: "at least one execute rule is required"})
	}
	for i, t := range a.Targets {
		if t.Count <= 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("targets[%d].count", i),
				Message: "target count must be positive",
			})
		}
	}
	return errs
}

// Validate checks a RuleDef's parameter types.
func (r *RuleDef) Validate() []ValidationError {
	var errs []ValidationError
	if len(r.Effects) == 0 {
		errs = append(errs, ValidationError{Field: "effects", Message: "rule must have at least one effect"})
	}
	for i, p := range r.Parameters {
		if !ValidTypes[p.Type] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("parameters[%d].type", i),
				Message: fmt.Sprintf("invalid type %q for parameter %q", p.Type, p.Name),
			})
		}
	}
	return errs
}

// Validate checks a TriggerDef's required fields.
func (t *TriggerDef) Validate() []ValidationError {
	var errs []ValidationError
	if t.Kind == TriggerState {
		if t.Condition == nil {
			errs = append(errs, ValidationError{Field: "condition", Message: "state-based trigger requires a standing condition"})
		}
	} else if t.EventType == "" {
		errs = append(errs, ValidationError{Field: "event_type", Message: "event_type is required (use \"*\" for all)"})
	}
	if !ValidScopeModes[t.Scope.Mode] {
		errs = append(errs, ValidationError{
			Field:   "scope.mode",
			Message: fmt.Sprintf("invalid scope mode %q", t.Scope.Mode),
		})
	}
	if t.Scope.Mode == ScopeKeyed && t.Scope.Key == "" {
		errs = append(errs, ValidationError{Field: "scope.key", Message: "keyed scope requires a key field"})
	}
	if len(t.Effects) == 0 {
		errs = append(errs, ValidationError{Field: "effects", Message: "trigger must have at least one effect"})
	}
	return errs
}
