package observer

import (
	"time"

	"github.com/goliatone/go-observer/pkg/audit"
)

// Well-known property names raised for aggregate flag changes. Subscribers
// interested in dirtiness or validity listen for these; an empty property name
// signals a full refresh.
const (
	PropertyIsChanged = "IsChanged"
	PropertyHasErrors = "HasErrors"
)

// Observer is the capability set every trackable wrapper exposes. Both the
// scalar Wrapper and the Collection wrapper implement it, which is what allows
// arbitrarily deep composition: a parent aggregates its children purely
// through this contract.
type Observer interface {
	IsChanged() bool
	HasErrors() bool
	AcceptChanges()
	RejectChanges()
	OnPropertyChanged(fn func(property string)) (unsubscribe func())
	OnErrorsChanged(fn func(property string)) (unsubscribe func())
}

// Member constrains collection elements to observers usable as identity keys.
type Member interface {
	Observer
	comparable
}

// RuleContext carries inputs needed when evaluating a validation rule.
type RuleContext struct {
	Entity   any
	Snapshot any
	Property string
	Value    any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) propertyLabel() string {
	if ctx.Property != "" {
		return ctx.Property
	}
	return "object"
}

// Evaluator executes rule expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// ChangeFunc observes a successful property mutation on the wrapper.
type ChangeFunc func(property string, previous, current any)

type Option func(*wrapperConfig)

type wrapperConfig struct {
	rules        *RuleSet
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       ChangeLogger
	emitter      *audit.Emitter
	objectID     string
	objectType   string
	onChanged    ChangeFunc
	overrides    map[string]Accessor
}

func applyOptions(opts []Option) wrapperConfig {
	cfg := wrapperConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithRules attaches the declarative rule table consumed during validation.
func WithRules(rules *RuleSet) Option {
	return func(cfg *wrapperConfig) {
		cfg.rules = rules
	}
}

// WithEvaluator configures the expression engine used by expression rules.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *wrapperConfig) {
		cfg.evaluator = e
	}
}

// WithOnChanged registers a callback invoked after every applied mutation.
func WithOnChanged(fn ChangeFunc) Option {
	return func(cfg *wrapperConfig) {
		cfg.onChanged = fn
	}
}

// WithObjectID overrides the generated identity used for audit events.
func WithObjectID(id string) Option {
	return func(cfg *wrapperConfig) {
		cfg.objectID = id
	}
}

// WithObjectType overrides the audit object type derived from the entity type.
func WithObjectType(objectType string) Option {
	return func(cfg *wrapperConfig) {
		cfg.objectType = objectType
	}
}

// WithAuditEmitter attaches an audit emitter notified on mutations, commits,
// and rollbacks.
func WithAuditEmitter(emitter *audit.Emitter) Option {
	return func(cfg *wrapperConfig) {
		cfg.emitter = emitter
	}
}

// WithAccessor overrides property resolution for name with a direct
// getter/setter pair, bypassing the reflective table for that property.
func WithAccessor(name string, get Getter, set Setter) Option {
	return func(cfg *wrapperConfig) {
		if name == "" {
			return
		}
		if cfg.overrides == nil {
			cfg.overrides = map[string]Accessor{}
		}
		cfg.overrides[name] = Accessor{Get: get, Set: set}
	}
}
