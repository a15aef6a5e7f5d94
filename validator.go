package observer

import (
	"fmt"
	"sort"
	"time"
)

// Scope selects how much of the rule table a validation pass covers.
type Scope int

const (
	// ScopeNone performs no validation.
	ScopeNone Scope = iota
	// ScopeObject validates every declared rule against current state,
	// replacing the full error map.
	ScopeObject
	// ScopeProperty validates only the rules attached to one named property
	// against a supplied candidate value, replacing that property's entries.
	ScopeProperty
	// ScopeRequired re-checks only required rules, leaving error entries owned
	// by other rules untouched.
	ScopeRequired
)

func (s Scope) String() string {
	switch s {
	case ScopeNone:
		return "none"
	case ScopeObject:
		return "object"
	case ScopeProperty:
		return "property"
	case ScopeRequired:
		return "required"
	default:
		return "unknown"
	}
}

// ErrNoEvaluator indicates an expression rule was declared but no evaluator
// could be resolved.
var ErrNoEvaluator = fmt.Errorf("observer: evaluator not configured")

// Validate runs every declared rule against the entity's current state,
// replacing the full error map. Repeated calls without intervening mutation
// are idempotent.
func (w *Wrapper[T]) Validate() error {
	return w.runValidation(ScopeObject, "", nil)
}

// ValidateRequired re-checks only rules marked required, leaving other error
// entries untouched.
func (w *Wrapper[T]) ValidateRequired() error {
	return w.runValidation(ScopeRequired, "", nil)
}

// ValidateProperty validates the rules attached to name against a candidate
// value. The name must be non-empty, and the value must be non-nil when the
// property carries a required rule; both violations are programmer errors.
func (w *Wrapper[T]) ValidateProperty(name string, value any) error {
	if name == "" {
		return wrapPropertyError("validate", w.objectType, name, ErrPropertyNameRequired)
	}
	if value == nil && w.cfg.rules.HasRequired(name) {
		return wrapPropertyError("validate", w.objectType, name, ErrValueRequired)
	}
	return w.runValidation(ScopeProperty, name, value)
}

// ValidateScope dispatches a validation pass for scope. Property scope needs a
// name and candidate value and must go through ValidateProperty.
func (w *Wrapper[T]) ValidateScope(scope Scope) error {
	switch scope {
	case ScopeNone:
		return nil
	case ScopeObject:
		return w.Validate()
	case ScopeRequired:
		return w.ValidateRequired()
	case ScopeProperty:
		return wrapPropertyError("validate", w.objectType, "", fmt.Errorf("%w: property scope needs a name and value", ErrPropertyNameRequired))
	default:
		return fmt.Errorf("observer: unknown validation scope %d", scope)
	}
}

// runValidation computes the next error map for scope and applies it,
// emitting one errors-changed notification per property whose list changed
// and a HasErrors property-changed notification when the aggregate flips.
// The Set path calls this directly, skipping ValidateProperty's argument
// guards: there a nil candidate simply fails the required rule.
func (w *Wrapper[T]) runValidation(scope Scope, name string, value any) error {
	if scope == ScopeNone || w.cfg.rules == nil {
		return nil
	}

	env, err := w.encoder.Encode(w.entity)
	if err != nil {
		return err
	}

	next, err := w.nextErrors(scope, name, value, env)
	if err != nil {
		return err
	}
	w.applyErrors(next)
	return nil
}

func (w *Wrapper[T]) nextErrors(scope Scope, name string, value any, env map[string]any) (map[string][]string, error) {
	switch scope {
	case ScopeObject:
		next := map[string][]string{}
		for _, property := range w.cfg.rules.Properties() {
			current, err := w.Get(property)
			if err != nil {
				return nil, err
			}
			failures, err := w.evalRules(w.cfg.rules.Rules(property), property, current, env)
			if err != nil {
				return nil, err
			}
			if len(failures) > 0 {
				next[property] = failures
			}
		}
		return next, nil

	case ScopeProperty:
		next := cloneErrors(w.errors)
		// Expressions must see the candidate value, which may not have been
		// applied to the entity yet.
		scoped := make(map[string]any, len(env)+1)
		for key, val := range env {
			scoped[key] = val
		}
		scoped[name] = value
		failures, err := w.evalRules(w.cfg.rules.Rules(name), name, value, scoped)
		if err != nil {
			return nil, err
		}
		if len(failures) > 0 {
			next[name] = failures
		} else {
			delete(next, name)
		}
		return next, nil

	case ScopeRequired:
		next := cloneErrors(w.errors)
		for _, property := range w.cfg.rules.Properties() {
			required := w.cfg.rules.requiredRules(property)
			if len(required) == 0 {
				continue
			}
			current, err := w.Get(property)
			if err != nil {
				return nil, err
			}
			failures, err := w.evalRules(required, property, current, env)
			if err != nil {
				return nil, err
			}
			owned := map[string]struct{}{}
			for _, rule := range required {
				owned[rule.Message] = struct{}{}
			}
			var kept []string
			for _, message := range next[property] {
				if _, ok := owned[message]; !ok {
					kept = append(kept, message)
				}
			}
			kept = append(kept, failures...)
			if len(kept) > 0 {
				next[property] = kept
			} else {
				delete(next, property)
			}
		}
		return next, nil

	default:
		return cloneErrors(w.errors), nil
	}
}

func (w *Wrapper[T]) evalRules(rules []Rule, property string, value any, env map[string]any) ([]string, error) {
	var failures []string
	for _, rule := range rules {
		ctx := RuleContext{
			Entity:   w.entity,
			Snapshot: env,
			Property: property,
			Value:    value,
		}
		pass, err := w.evalRule(rule, ctx)
		if err != nil {
			return nil, err
		}
		if !pass {
			message := rule.Message
			if message == "" {
				message = fmt.Sprintf("%s is invalid", property)
			}
			failures = append(failures, message)
		}
	}
	return failures, nil
}

func (w *Wrapper[T]) evalRule(rule Rule, ctx RuleContext) (bool, error) {
	if rule.Check != nil {
		return rule.Check(ctx.withDefaults())
	}
	if rule.Expr == "" {
		return true, nil
	}
	evaluator, err := w.resolveEvaluator()
	if err != nil {
		return false, err
	}
	start := time.Now()
	result, evalErr := evaluator.Evaluate(ctx, rule.Expr)
	evalErr = wrapEvaluationError(evaluatorEngineName(evaluator), rule.Expr, ctx.propertyLabel(), evalErr)
	w.changeLogger().LogChange(ChangeLogEvent{
		Op:       "validate",
		Property: ctx.Property,
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		return false, evalErr
	}
	pass, ok := result.(bool)
	if !ok {
		return false, wrapEvaluationError(evaluatorEngineName(evaluator), rule.Expr, ctx.propertyLabel(),
			fmt.Errorf("expression must evaluate to bool, got %T", result))
	}
	return pass, nil
}

// applyErrors swaps in the next error map, notifying per changed property and
// for the aggregate HasErrors flag when it flips.
func (w *Wrapper[T]) applyErrors(next map[string][]string) {
	before := w.HasErrors()

	changed := map[string]struct{}{}
	for property, messages := range next {
		if !equalMessages(w.errors[property], messages) {
			changed[property] = struct{}{}
		}
	}
	for property := range w.errors {
		if _, ok := next[property]; !ok {
			changed[property] = struct{}{}
		}
	}

	w.errors = next

	names := make([]string, 0, len(changed))
	for property := range changed {
		names = append(names, property)
	}
	sort.Strings(names)
	for _, property := range names {
		w.raiseErrorsChanged(property)
	}
	if after := w.HasErrors(); after != before {
		w.raisePropertyChanged(PropertyHasErrors)
	}
}

func (w *Wrapper[T]) resolveEvaluator() (Evaluator, error) {
	if w.cfg.evaluator != nil {
		return w.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := w.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := w.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	w.cfg.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*observer.exprEvaluator":
		return "expr"
	case "*observer.celEvaluator":
		return "cel"
	case "*observer.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}

func cloneErrors(src map[string][]string) map[string][]string {
	out := make(map[string][]string, len(src))
	for property, messages := range src {
		copied := make([]string, len(messages))
		copy(copied, messages)
		out[property] = copied
	}
	return out
}

func equalMessages(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
