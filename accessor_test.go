package observer

import (
	"errors"
	"reflect"
	"testing"
)

type vehicle struct {
	Make  string
	Year  int
	Miles float64

	hidden string
}

func TestTableForCaches(t *testing.T) {
	first, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	second, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached table instance")
	}
}

func TestBuildTableSkipsUnexportedFields(t *testing.T) {
	table, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if table.has("hidden", nil) {
		t.Fatalf("unexported fields must not be addressable")
	}
	want := []string{"Make", "Year", "Miles"}
	if len(table.order) != len(want) {
		t.Fatalf("expected %v, got %v", want, table.order)
	}
	for i := range want {
		if table.order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, table.order)
		}
	}
}

func TestBuildTableRejectsNonStruct(t *testing.T) {
	if _, err := tableFor(reflect.TypeOf(0)); !errors.Is(err, ErrNotStruct) {
		t.Fatalf("expected ErrNotStruct, got %v", err)
	}
}

func TestAccessorRoundTrip(t *testing.T) {
	table, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	entity := &vehicle{Make: "saab"}

	accessor, err := table.resolve("Make", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := accessor.Get(entity); got != "saab" {
		t.Fatalf("expected saab, got %v", got)
	}
	if err := accessor.Set(entity, "volvo"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if entity.Make != "volvo" {
		t.Fatalf("expected volvo, got %q", entity.Make)
	}
}

func TestAccessorSetNilZeroesField(t *testing.T) {
	table, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	entity := &vehicle{Year: 1999}

	accessor, err := table.resolve("Year", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := accessor.Set(entity, nil); err != nil {
		t.Fatalf("set nil: %v", err)
	}
	if entity.Year != 0 {
		t.Fatalf("expected zeroed field, got %d", entity.Year)
	}
}

func TestAccessorSetConvertsCompatibleTypes(t *testing.T) {
	table, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	entity := &vehicle{}

	accessor, err := table.resolve("Miles", nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := accessor.Set(entity, 42); err != nil {
		t.Fatalf("set convertible: %v", err)
	}
	if entity.Miles != 42 {
		t.Fatalf("expected converted value, got %v", entity.Miles)
	}

	if err := accessor.Set(entity, "not a number"); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}

func TestResolveErrors(t *testing.T) {
	table, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if _, err := table.resolve("", nil); !errors.Is(err, ErrPropertyNameRequired) {
		t.Fatalf("expected ErrPropertyNameRequired, got %v", err)
	}
	if _, err := table.resolve("Nope", nil); !errors.Is(err, ErrUnknownProperty) {
		t.Fatalf("expected ErrUnknownProperty, got %v", err)
	}
}

func TestResolvePrefersOverrides(t *testing.T) {
	table, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	overrides := map[string]Accessor{
		"Make": {Get: func(any) any { return "override" }},
	}

	accessor, err := table.resolve("Make", overrides)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := accessor.Get(&vehicle{Make: "saab"}); got != "override" {
		t.Fatalf("expected override getter, got %v", got)
	}
	// The base setter survives a getter-only override.
	entity := &vehicle{}
	if err := accessor.Set(entity, "volvo"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if entity.Make != "volvo" {
		t.Fatalf("expected base setter, got %q", entity.Make)
	}
}

func TestResolveOneSidedOverrideOnVirtualProperty(t *testing.T) {
	table, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	overrides := map[string]Accessor{
		"Virtual": {Get: func(any) any { return "virtual" }},
	}

	accessor, err := table.resolve("Virtual", overrides)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := accessor.Get(&vehicle{}); got != "virtual" {
		t.Fatalf("expected override getter, got %v", got)
	}
	if accessor.Set != nil {
		t.Fatalf("expected no setter half for a get-only virtual property")
	}
}

func TestResolveRejectsEmptyOverride(t *testing.T) {
	table, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	overrides := map[string]Accessor{"Virtual": {}}
	if _, err := table.resolve("Virtual", overrides); !errors.Is(err, ErrAccessorIncomplete) {
		t.Fatalf("expected ErrAccessorIncomplete, got %v", err)
	}
}

func TestPropertiesIncludesOverrideOnlyNames(t *testing.T) {
	table, err := tableFor(reflect.TypeOf(vehicle{}))
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	overrides := map[string]Accessor{
		"Virtual": {Get: func(any) any { return nil }},
	}
	names := table.properties(overrides)
	want := []string{"Make", "Year", "Miles", "Virtual"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}
