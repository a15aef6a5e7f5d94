package observer

import (
	"reflect"
	"sort"
	"strings"
)

// CheckFunc is a Go predicate backing a validation rule. It returns true when
// the rule passes. Returning an error marks the rule evaluation itself as
// broken (a programmer error), distinct from a failing rule.
type CheckFunc func(ctx RuleContext) (bool, error)

// Rule is one declarative validation rule attached to a property. Exactly one
// of Check or Expr should be set; expression rules are executed through the
// configured Evaluator with the entity snapshot, candidate value, and property
// name bound into the environment.
type Rule struct {
	Property string
	Message  string
	Required bool
	Check    CheckFunc
	Expr     string
}

// Required builds a rule that fails when the candidate value is nil, zero, or
// a blank string. Required rules also participate in the Required validation
// scope, which re-checks them without disturbing other error entries.
func Required(property, message string) Rule {
	return Rule{
		Property: property,
		Message:  message,
		Required: true,
		Check: func(ctx RuleContext) (bool, error) {
			return !isBlank(ctx.Value), nil
		},
	}
}

// ExprRule builds a rule evaluated as an expression that must yield a boolean.
func ExprRule(property, expression, message string) Rule {
	return Rule{
		Property: property,
		Message:  message,
		Expr:     expression,
	}
}

// CheckRule builds a rule backed by a Go predicate.
func CheckRule(property, message string, fn CheckFunc) Rule {
	return Rule{
		Property: property,
		Message:  message,
		Check:    fn,
	}
}

// RuleSet is the per-type rule table: property name to the ordered rules
// declared for it. It is constructed once and consumed by the validation
// adapter; it performs no evaluation itself.
type RuleSet struct {
	rules map[string][]Rule
}

// NewRuleSet builds a rule table from the supplied rules, preserving
// declaration order per property. Rules without a property name are dropped.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{rules: map[string][]Rule{}}
	rs.Add(rules...)
	return rs
}

// Add appends rules to the table.
func (rs *RuleSet) Add(rules ...Rule) *RuleSet {
	if rs.rules == nil {
		rs.rules = map[string][]Rule{}
	}
	for _, rule := range rules {
		if rule.Property == "" {
			continue
		}
		rs.rules[rule.Property] = append(rs.rules[rule.Property], rule)
	}
	return rs
}

// Rules returns the rules declared for property.
func (rs *RuleSet) Rules(property string) []Rule {
	if rs == nil {
		return nil
	}
	rules := rs.rules[property]
	if len(rules) == 0 {
		return nil
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Properties returns the property names carrying rules, sorted for
// deterministic validation passes.
func (rs *RuleSet) Properties() []string {
	if rs == nil {
		return nil
	}
	names := make([]string, 0, len(rs.rules))
	for name := range rs.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasRequired reports whether property carries at least one required rule.
func (rs *RuleSet) HasRequired(property string) bool {
	if rs == nil {
		return false
	}
	for _, rule := range rs.rules[property] {
		if rule.Required {
			return true
		}
	}
	return false
}

func (rs *RuleSet) requiredRules(property string) []Rule {
	if rs == nil {
		return nil
	}
	var out []Rule
	for _, rule := range rs.rules[property] {
		if rule.Required {
			out = append(out, rule)
		}
	}
	return out
}

func isBlank(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
