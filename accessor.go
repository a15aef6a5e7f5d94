package observer

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Getter reads the named property from an entity instance.
type Getter func(entity any) any

// Setter writes value into the named property of an entity instance.
type Setter func(entity any, value any) error

// Accessor is a direct getter/setter pair supplied as an override for one
// property, bypassing the reflective table.
type Accessor struct {
	Get Getter
	Set Setter
}

func missingHalf(a Accessor) string {
	if a.Get == nil {
		return "getter"
	}
	return "setter"
}

// accessorTable maps property names to typed getter/setter pairs for one
// entity type. Tables are built once per reflect.Type and cached, so runtime
// resolution is a map lookup rather than per-call introspection.
type accessorTable struct {
	typ    reflect.Type
	fields map[string]Accessor
	order  []string
	types  map[string]reflect.Type
}

var accessorTables sync.Map // reflect.Type -> *accessorTable

func tableFor(t reflect.Type) (*accessorTable, error) {
	if cached, ok := accessorTables.Load(t); ok {
		return cached.(*accessorTable), nil
	}
	table, err := buildTable(t)
	if err != nil {
		return nil, err
	}
	cached, _ := accessorTables.LoadOrStore(t, table)
	return cached.(*accessorTable), nil
}

func buildTable(t reflect.Type) (*accessorTable, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}
	table := &accessorTable{
		typ:    t,
		fields: map[string]Accessor{},
		types:  map[string]reflect.Type{},
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Anonymous {
			continue
		}
		index := field.Index
		fieldType := field.Type
		table.order = append(table.order, field.Name)
		table.types[field.Name] = fieldType
		table.fields[field.Name] = Accessor{
			Get: func(entity any) any {
				return reflect.ValueOf(entity).Elem().FieldByIndex(index).Interface()
			},
			Set: func(entity any, value any) error {
				target := reflect.ValueOf(entity).Elem().FieldByIndex(index)
				if value == nil {
					target.Set(reflect.Zero(fieldType))
					return nil
				}
				v := reflect.ValueOf(value)
				switch {
				case v.Type().AssignableTo(fieldType):
					target.Set(v)
				case v.Type().ConvertibleTo(fieldType):
					target.Set(v.Convert(fieldType))
				default:
					return fmt.Errorf("%w: %T", ErrInvalidValue, value)
				}
				return nil
			},
		}
	}
	return table, nil
}

// resolve returns the accessor for name, preferring caller overrides. Unknown
// names fail loudly to guard against refactoring typos.
func (t *accessorTable) resolve(name string, overrides map[string]Accessor) (Accessor, error) {
	if name == "" {
		return Accessor{}, ErrPropertyNameRequired
	}
	if override, ok := overrides[name]; ok {
		merged := override
		if base, known := t.fields[name]; known {
			if merged.Get == nil {
				merged.Get = base.Get
			}
			if merged.Set == nil {
				merged.Set = base.Set
			}
		}
		if merged.Get == nil && merged.Set == nil {
			return Accessor{}, fmt.Errorf("%w: %s", ErrAccessorIncomplete, name)
		}
		// A one-sided override still resolves; the caller errors on the
		// missing half only when that half is exercised.
		return merged, nil
	}
	if accessor, ok := t.fields[name]; ok {
		return accessor, nil
	}
	return Accessor{}, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
}

func (t *accessorTable) has(name string, overrides map[string]Accessor) bool {
	if _, ok := overrides[name]; ok {
		return true
	}
	_, ok := t.fields[name]
	return ok
}

// properties returns the declared property names in field order, with
// override-only properties appended in sorted order.
func (t *accessorTable) properties(overrides map[string]Accessor) []string {
	names := make([]string, 0, len(t.order)+len(overrides))
	names = append(names, t.order...)
	extra := make([]string, 0, len(overrides))
	for name := range overrides {
		if _, known := t.fields[name]; !known {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(names, extra...)
}
