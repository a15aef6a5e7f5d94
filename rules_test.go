package observer

import (
	"testing"
)

func TestIsBlank(t *testing.T) {
	cases := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"empty string", "", true},
		{"whitespace string", "   \t", true},
		{"non-empty string", "x", false},
		{"zero int", 0, true},
		{"non-zero int", 7, false},
		{"empty slice", []string{}, true},
		{"non-empty slice", []string{"a"}, false},
		{"empty map", map[string]int{}, true},
		{"non-empty map", map[string]int{"a": 1}, false},
		{"zero struct", struct{ A int }{}, true},
		{"non-zero struct", struct{ A int }{A: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isBlank(tc.value); got != tc.want {
				t.Fatalf("isBlank(%v) = %t, want %t", tc.value, got, tc.want)
			}
		})
	}
}

func TestRuleSetDropsUnnamedRules(t *testing.T) {
	rs := NewRuleSet(Rule{Message: "orphan"})
	if got := rs.Properties(); len(got) != 0 {
		t.Fatalf("expected empty rule set, got %v", got)
	}
}

func TestRuleSetPropertiesAreSorted(t *testing.T) {
	rs := NewRuleSet(
		Required("Zip", "zip"),
		Required("City", "city"),
		Required("State", "state"),
	)
	got := rs.Properties()
	want := []string{"City", "State", "Zip"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRuleSetPreservesDeclarationOrderPerProperty(t *testing.T) {
	rs := NewRuleSet(
		Required("City", "first"),
		ExprRule("City", "true", "second"),
	)
	rules := rs.Rules("City")
	if len(rules) != 2 || rules[0].Message != "first" || rules[1].Message != "second" {
		t.Fatalf("unexpected rule order: %+v", rules)
	}
}

func TestRuleSetHasRequired(t *testing.T) {
	rs := NewRuleSet(
		Required("City", "city"),
		ExprRule("Zip", "true", "zip"),
	)
	if !rs.HasRequired("City") {
		t.Fatalf("expected City to carry a required rule")
	}
	if rs.HasRequired("Zip") {
		t.Fatalf("expected Zip to carry no required rule")
	}

	var nilSet *RuleSet
	if nilSet.HasRequired("City") {
		t.Fatalf("nil rule set must report no required rules")
	}
	if nilSet.Rules("City") != nil || nilSet.Properties() != nil {
		t.Fatalf("nil rule set must report no rules")
	}
}

func TestRequiredRuleChecksBlankness(t *testing.T) {
	rule := Required("City", "city is required")
	if !rule.Required || rule.Check == nil {
		t.Fatalf("unexpected rule shape: %+v", rule)
	}

	pass, err := rule.Check(RuleContext{Value: "Brooklyn"}.withDefaults())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !pass {
		t.Fatalf("expected non-blank value to pass")
	}

	pass, err = rule.Check(RuleContext{Value: "  "}.withDefaults())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if pass {
		t.Fatalf("expected blank value to fail")
	}
}
