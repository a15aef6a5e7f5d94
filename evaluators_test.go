package observer

import (
	"strings"
	"sync"
	"testing"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

type countingCache struct {
	mu      sync.Mutex
	entries map[string]any
	gets    int
	sets    int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: map[string]any{}}
}

func (c *countingCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	value, ok := c.entries[key]
	return value, ok
}

func (c *countingCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[key] = value
}

func testRuleContext() RuleContext {
	return RuleContext{
		Snapshot: map[string]any{"City": "Brooklyn", "Zip": "11201"},
		Property: "City",
		Value:    "Brooklyn",
	}
}

func TestEvaluatorsBindContext(t *testing.T) {
	cases := []struct {
		name string
		expr string
		want bool
	}{
		{"snapshot variable", `City == "Brooklyn"`, true},
		{"snapshot variable mismatch", `Zip == "99999"`, false},
		{"candidate value", `value == "Brooklyn"`, true},
		{"property name", `property == "City"`, true},
	}

	for _, factory := range evaluatorFactories {
		evaluator := factory.new(nil, nil)
		if evaluator == nil {
			// The js engine is only present behind its build tag.
			if factory.name != "js" || jsEvaluatorAvailable() {
				t.Fatalf("%s: expected evaluator", factory.name)
			}
			continue
		}
		for _, tc := range cases {
			t.Run(factory.name+"/"+tc.name, func(t *testing.T) {
				result, err := evaluator.Evaluate(testRuleContext(), tc.expr)
				if err != nil {
					t.Fatalf("evaluate: %v", err)
				}
				got, ok := result.(bool)
				if !ok {
					t.Fatalf("expected bool, got %T", result)
				}
				if got != tc.want {
					t.Fatalf("expected %t, got %t", tc.want, got)
				}
			})
		}
	}
}

func TestEvaluatorsRejectEmptyExpression(t *testing.T) {
	for _, factory := range evaluatorFactories {
		evaluator := factory.new(nil, nil)
		if evaluator == nil {
			continue
		}
		t.Run(factory.name, func(t *testing.T) {
			if _, err := evaluator.Evaluate(testRuleContext(), ""); err == nil {
				t.Fatalf("expected error for empty expression")
			}
			if _, err := evaluator.Compile(""); err == nil {
				t.Fatalf("expected error for empty compile")
			}
		})
	}
}

func TestEvaluatorsSurfaceEngineErrors(t *testing.T) {
	for _, factory := range evaluatorFactories {
		evaluator := factory.new(nil, nil)
		if evaluator == nil {
			continue
		}
		t.Run(factory.name, func(t *testing.T) {
			_, err := evaluator.Evaluate(testRuleContext(), `this is (( not an expression`)
			if err == nil {
				t.Fatalf("expected engine error")
			}
			if !strings.HasPrefix(err.Error(), "observer:") {
				t.Fatalf("expected observer-prefixed error, got %q", err.Error())
			}
		})
	}
}

func TestEvaluatorsCallRegistryFunctions(t *testing.T) {
	for _, factory := range evaluatorFactories {
		registry := NewFunctionRegistry()
		if err := registry.Register("double", func(args ...any) (any, error) {
			// Engines deliver integers as different Go types.
			switch n := args[0].(type) {
			case int:
				return n * 2, nil
			case int64:
				return n * 2, nil
			case float64:
				return n * 2, nil
			default:
				return nil, nil
			}
		}); err != nil {
			t.Fatalf("register: %v", err)
		}

		evaluator := factory.new(nil, registry)
		if evaluator == nil {
			continue
		}
		t.Run(factory.name, func(t *testing.T) {
			result, err := evaluator.Evaluate(testRuleContext(), `call("double", 21)`)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			switch got := result.(type) {
			case int:
				if got != 42 {
					t.Fatalf("expected 42, got %d", got)
				}
			case int64:
				if got != 42 {
					t.Fatalf("expected 42, got %d", got)
				}
			case float64:
				if got != 42 {
					t.Fatalf("expected 42, got %v", got)
				}
			default:
				t.Fatalf("unexpected result type %T", result)
			}
		})
	}
}

func TestEvaluatorsUseProgramCache(t *testing.T) {
	for _, factory := range evaluatorFactories {
		cache := newCountingCache()
		evaluator := factory.new(cache, nil)
		if evaluator == nil {
			continue
		}
		t.Run(factory.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				if _, err := evaluator.Evaluate(testRuleContext(), `value == "Brooklyn"`); err != nil {
					t.Fatalf("evaluate: %v", err)
				}
			}
			if cache.sets != 1 {
				t.Fatalf("expected 1 compile, got %d sets", cache.sets)
			}
			if cache.gets < 3 {
				t.Fatalf("expected cache lookups, got %d", cache.gets)
			}
		})
	}
}

func TestCompiledRulesEvaluate(t *testing.T) {
	for _, factory := range evaluatorFactories {
		evaluator := factory.new(newCountingCache(), nil)
		if evaluator == nil {
			continue
		}
		t.Run(factory.name, func(t *testing.T) {
			compiled, err := evaluator.Compile(`value == "Brooklyn"`)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			result, err := compiled.Evaluate(testRuleContext())
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if result != true {
				t.Fatalf("expected true, got %v", result)
			}
		})
	}
}

func TestWrapperWithCELEvaluator(t *testing.T) {
	rules := NewRuleSet(ExprRule("Zip", `value == "" || Zip.size() == 5`, "zip must be 5 characters"))
	w := mustWrap(t, &address{},
		WithRules(rules),
		WithEvaluator(NewCELEvaluator()),
	)

	mustSet(t, w, "Zip", "112")
	if got := w.GetErrors("Zip"); len(got) != 1 {
		t.Fatalf("expected cel rule failure, got %v", got)
	}
	mustSet(t, w, "Zip", "11201")
	if w.HasErrors() {
		t.Fatalf("expected clean wrapper, got %v", w.GetErrors(""))
	}
}

func TestWrapperWithCustomFunctionRule(t *testing.T) {
	rules := NewRuleSet(ExprRule("City", `call("allowed", City)`, "city not allowed"))
	w := mustWrap(t, &address{},
		WithRules(rules),
		WithCustomFunction("allowed", func(args ...any) (any, error) {
			city, _ := args[0].(string)
			return city != "Gotham", nil
		}),
	)

	mustSet(t, w, "City", "Gotham")
	if got := w.GetErrors("City"); len(got) != 1 || got[0] != "city not allowed" {
		t.Fatalf("expected rule failure, got %v", got)
	}

	mustSet(t, w, "City", "Brooklyn")
	if w.HasErrors() {
		t.Fatalf("expected clean wrapper, got %v", w.GetErrors(""))
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("Upper", func(args ...any) (any, error) {
		s, _ := args[0].(string)
		return strings.ToUpper(s), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Names are case-insensitive.
	if _, err := registry.Call("upper", "a"); err != nil {
		t.Fatalf("call: %v", err)
	}
	if err := registry.Register("UPPER", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register("", func(...any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected empty-name error")
	}
	if err := registry.Register("nilfn", nil); err == nil {
		t.Fatalf("expected nil-function error")
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected unknown-function error")
	}

	clone := registry.Clone()
	if err := clone.Register("extra", func(...any) (any, error) { return nil, nil }); err != nil {
		t.Fatalf("register on clone: %v", err)
	}
	if _, err := registry.Call("extra"); err == nil {
		t.Fatalf("clone registrations must not leak back")
	}
	if got := clone.Names(); len(got) != 2 || got[0] != "extra" || got[1] != "upper" {
		t.Fatalf("unexpected names: %v", got)
	}
}
