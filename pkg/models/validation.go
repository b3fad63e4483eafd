package models

import "fmt"

// Validate checks rule field sizes against limits and requires a formula
// for expression rules. No write path in this module calls it.
func (r Rule) Validate(limits RuleLimits) error {
	if limits.MaxKeyLength > 0 && len(r.Key) > limits.MaxKeyLength {
		return fmt.Errorf("models: rule key exceeds limit of %d bytes", limits.MaxKeyLength)
	}
	if limits.MaxFormulaLength > 0 && len(r.Formula) > limits.MaxFormulaLength {
		return fmt.Errorf("models: rule formula exceeds limit of %d bytes", limits.MaxFormulaLength)
	}
	if limits.MaxLifetimeSpec > 0 && len(r.LifetimeSpec) > limits.MaxLifetimeSpec {
		return fmt.Errorf("models: rule lifetime spec exceeds limit of %d bytes", limits.MaxLifetimeSpec)
	}
	if r.EvalType == EvalExpression && r.Formula == "" {
		return fmt.Errorf("models: expression rule requires a non-empty formula")
	}
	return nil
}

// ConditionLimits bounds the sizes of condition fields checked by
// Condition.Validate, which the admin API does not call.
type ConditionLimits struct {
	MaxMacroLength int
	MaxValueLength int
}

// Validate checks a condition's field sizes and operator against the
// given limits.
func (c Condition) Validate(limits ConditionLimits) error {
	if c.Macro == "" {
		return fmt.Errorf("models: condition macro must not be empty")
	}
	if limits.MaxMacroLength > 0 && len(c.Macro) > limits.MaxMacroLength {
		return fmt.Errorf("models: condition macro exceeds limit of %d bytes", limits.MaxMacroLength)
	}
	if limits.MaxValueLength > 0 && len(c.Value) > limits.MaxValueLength {
		return fmt.Errorf("models: condition value exceeds limit of %d bytes", limits.MaxValueLength)
	}
	if _, ok := ParseOperator(c.Operator.String()); !ok {
		return fmt.Errorf("models: condition has unknown operator")
	}
	return nil
}

// Validate checks that a macro path names a macro and carries a non-empty
// path expression.
func (p MacroPath) Validate() error {
	if p.Macro == "" {
		return fmt.Errorf("models: macro path entry must name a macro")
	}
	if p.Path == "" {
		return fmt.Errorf("models: macro path entry for %q must not be empty", p.Macro)
	}
	return nil
}
