package observer

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/goliatone/go-observer/deep"
	"github.com/goliatone/go-observer/internal/snapshot"
	"github.com/goliatone/go-observer/pkg/audit"
	"github.com/google/uuid"
)

// Wrapper tracks changes and validation state for exactly one entity instance.
// The entity is owned by the caller and mutated in place; the wrapper holds a
// non-owning reference fixed at construction. All operations are synchronous
// and single-threaded.
type Wrapper[T any] struct {
	notifier

	entity  *T
	table   *accessorTable
	cfg     wrapperConfig
	encoder *snapshot.Encoder[*T]

	objectID   string
	objectType string

	// originalValues holds the last-committed value for each property that
	// currently differs from it. Absence of a key means "unchanged".
	originalValues map[string]any
	errors         map[string][]string

	children []Observer
	childSet map[Observer]struct{}
}

// New constructs a Wrapper around entity. The entity must be a non-nil pointer
// to a struct; its exported fields become the wrapper's named properties.
func New[T any](entity *T, opts ...Option) (*Wrapper[T], error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	table, err := tableFor(reflect.TypeOf(*entity))
	if err != nil {
		return nil, err
	}
	cfg := applyOptions(opts)
	w := &Wrapper[T]{
		entity:         entity,
		table:          table,
		cfg:            cfg,
		encoder:        snapshot.NewEncoder[*T](),
		objectID:       cfg.objectID,
		objectType:     cfg.objectType,
		originalValues: map[string]any{},
		errors:         map[string][]string{},
		childSet:       map[Observer]struct{}{},
	}
	if w.objectID == "" {
		w.objectID = uuid.NewString()
	}
	if w.objectType == "" {
		w.objectType = table.typ.Name()
	}
	return w, nil
}

// Entity returns the wrapped entity instance.
func (w *Wrapper[T]) Entity() *T {
	return w.entity
}

// ObjectID returns the wrapper's audit identity.
func (w *Wrapper[T]) ObjectID() string {
	return w.objectID
}

// Get reads the live value of the named property from the entity.
func (w *Wrapper[T]) Get(name string) (any, error) {
	accessor, err := w.table.resolve(name, w.cfg.overrides)
	if err != nil {
		return nil, wrapPropertyError("get", w.objectType, name, err)
	}
	if accessor.Get == nil {
		return nil, wrapPropertyError("get", w.objectType, name, fmt.Errorf("%w: no getter for %s", ErrAccessorIncomplete, name))
	}
	return accessor.Get(w.entity), nil
}

// Set applies value to the named property, returning whether a change
// occurred. Setting a property back to its original value clears its
// dirtiness, no matter how many intermediate edits happened. A successful set
// runs property-scope validation and raises change notifications; validation
// failures are data, never errors, so Set completes even when new errors are
// recorded.
func (w *Wrapper[T]) Set(name string, value any) (bool, error) {
	start := time.Now()
	changed, err := w.applySet(name, value)
	w.changeLogger().LogChange(ChangeLogEvent{
		Op:       "set",
		Property: name,
		Current:  value,
		Changed:  changed,
		Duration: time.Since(start),
		Err:      err,
	})
	return changed, err
}

func (w *Wrapper[T]) applySet(name string, value any) (bool, error) {
	accessor, err := w.table.resolve(name, w.cfg.overrides)
	if err != nil {
		return false, wrapPropertyError("set", w.objectType, name, err)
	}
	if accessor.Get == nil || accessor.Set == nil {
		return false, wrapPropertyError("set", w.objectType, name, fmt.Errorf("%w: no %s for %s", ErrAccessorIncomplete, missingHalf(accessor), name))
	}
	current := accessor.Get(w.entity)
	if deep.Equal(current, value) {
		return false, nil
	}
	if err := accessor.Set(w.entity, value); err != nil {
		return false, wrapPropertyError("set", w.objectType, name, err)
	}

	if original, tracked := w.originalValues[name]; tracked {
		if deep.Equal(original, value) {
			delete(w.originalValues, name)
		}
	} else {
		w.originalValues[name] = deep.Clone(current)
	}

	if w.cfg.onChanged != nil {
		w.cfg.onChanged(name, current, value)
	}
	if err := w.runValidation(ScopeProperty, name, value); err != nil {
		// Rule-engine failures must not abort a completed mutation; they are
		// surfaced through the change logger instead.
		w.changeLogger().LogChange(ChangeLogEvent{Op: "validate", Property: name, Err: err})
	}
	w.emit(audit.BuildPropertyChangedEvent(audit.EventInput{
		ObjectType: w.objectType,
		ObjectID:   w.objectID,
		Property:   name,
		OldValue:   current,
		NewValue:   value,
	}))
	w.raisePropertyChanged(name)
	w.raisePropertyChanged(PropertyIsChanged)
	return true, nil
}

// GetOriginalValue returns the value the named property held at the last
// commit point, falling back to the live value when the property is clean.
func (w *Wrapper[T]) GetOriginalValue(name string) (any, error) {
	if !w.table.has(name, w.cfg.overrides) {
		return nil, wrapPropertyError("original", w.objectType, name, fmt.Errorf("%w: %s", ErrUnknownProperty, name))
	}
	if original, tracked := w.originalValues[name]; tracked {
		return deep.Clone(original), nil
	}
	return w.Get(name)
}

// GetIsChanged reports whether the named property differs from its
// last-committed value.
func (w *Wrapper[T]) GetIsChanged(name string) (bool, error) {
	if !w.table.has(name, w.cfg.overrides) {
		return false, wrapPropertyError("changed", w.objectType, name, fmt.Errorf("%w: %s", ErrUnknownProperty, name))
	}
	_, tracked := w.originalValues[name]
	return tracked, nil
}

// IsChanged reports whether the wrapper or any registered child holds pending
// edits.
func (w *Wrapper[T]) IsChanged() bool {
	if len(w.originalValues) > 0 {
		return true
	}
	for _, child := range w.children {
		if child.IsChanged() {
			return true
		}
	}
	return false
}

// HasErrors reports whether the wrapper or any registered child holds
// validation errors.
func (w *Wrapper[T]) HasErrors() bool {
	if len(w.errors) > 0 {
		return true
	}
	for _, child := range w.children {
		if child.HasErrors() {
			return true
		}
	}
	return false
}

// IsValid reports the inverse of HasErrors.
func (w *Wrapper[T]) IsValid() bool {
	return !w.HasErrors()
}

// GetErrors returns the error messages recorded for the named property, or
// every recorded message (sorted by property) when name is empty.
func (w *Wrapper[T]) GetErrors(name string) []string {
	if name != "" {
		messages := w.errors[name]
		if len(messages) == 0 {
			return nil
		}
		out := make([]string, len(messages))
		copy(out, messages)
		return out
	}
	names := make([]string, 0, len(w.errors))
	for property := range w.errors {
		names = append(names, property)
	}
	sort.Strings(names)
	var out []string
	for _, property := range names {
		out = append(out, w.errors[property]...)
	}
	return out
}

// AcceptChanges commits every pending edit: original-value bookkeeping is
// discarded, every registered child commits recursively, and listeners receive
// a full refresh. Calling it twice is harmless.
func (w *Wrapper[T]) AcceptChanges() {
	w.originalValues = map[string]any{}
	for _, child := range w.children {
		child.AcceptChanges()
	}
	w.emit(audit.BuildChangesAcceptedEvent(audit.EventInput{
		ObjectType: w.objectType,
		ObjectID:   w.objectID,
	}))
	w.raisePropertyChanged("")
}

// RejectChanges restores every tracked property to its last-committed value,
// rolls back every registered child, re-runs whole-object validation, and
// raises a full refresh. Restores flow through the same path as user edits, so
// each one re-triggers validation and notification; the loop iterates a
// snapshot of the tracked map taken before any restore runs.
func (w *Wrapper[T]) RejectChanges() {
	pending := make(map[string]any, len(w.originalValues))
	for name, original := range w.originalValues {
		pending[name] = original
	}
	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := w.Set(name, pending[name]); err != nil {
			w.changeLogger().LogChange(ChangeLogEvent{Op: "reject", Property: name, Err: err})
		}
	}
	w.originalValues = map[string]any{}

	for _, child := range w.children {
		child.RejectChanges()
	}
	if err := w.runValidation(ScopeObject, "", nil); err != nil {
		w.changeLogger().LogChange(ChangeLogEvent{Op: "validate", Err: err})
	}
	w.emit(audit.BuildChangesRejectedEvent(audit.EventInput{
		ObjectType: w.objectType,
		ObjectID:   w.objectID,
	}))
	w.raisePropertyChanged("")
}

// RegisterChild adds a nested wrapper to the aggregation tree. Registration is
// identity-deduplicated; re-registering the same instance is a no-op. The
// parent re-emits its own aggregate flags whenever the child's flags change.
func (w *Wrapper[T]) RegisterChild(child Observer) error {
	if child == nil || isNilObserver(child) {
		return ErrNilChild
	}
	if _, registered := w.childSet[child]; registered {
		return nil
	}
	w.children = append(w.children, child)
	w.childSet[child] = struct{}{}

	child.OnPropertyChanged(func(property string) {
		if property == "" || property == PropertyIsChanged {
			w.raisePropertyChanged(PropertyIsChanged)
		}
		if property == "" || property == PropertyHasErrors {
			w.raisePropertyChanged(PropertyHasErrors)
		}
	})
	child.OnErrorsChanged(func(property string) {
		w.raisePropertyChanged(PropertyHasErrors)
		w.raiseErrorsChanged(property)
	})
	w.raisePropertyChanged(PropertyIsChanged)
	w.raisePropertyChanged(PropertyHasErrors)
	return nil
}

func (w *Wrapper[T]) changeLogger() ChangeLogger {
	if w.cfg.logger != nil {
		return w.cfg.logger
	}
	return noopChangeLogger{}
}

func (w *Wrapper[T]) emit(event audit.Event) {
	if w.cfg.emitter == nil {
		return
	}
	if err := w.cfg.emitter.Emit(context.Background(), event); err != nil {
		w.changeLogger().LogChange(ChangeLogEvent{Op: "audit", Property: event.Property, Err: err})
	}
}

func isNilObserver(child Observer) bool {
	v := reflect.ValueOf(child)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

// Value reads the named property as V, failing when the live value is not of
// that type.
func Value[V any, T any](w *Wrapper[T], name string) (V, error) {
	var zero V
	raw, err := w.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := raw.(V)
	if !ok {
		return zero, wrapPropertyError("get", w.objectType, name, fmt.Errorf("%w: have %T, want %T", ErrInvalidValue, raw, zero))
	}
	return typed, nil
}

// Original reads the named property's last-committed value as V.
func Original[V any, T any](w *Wrapper[T], name string) (V, error) {
	var zero V
	raw, err := w.GetOriginalValue(name)
	if err != nil {
		return zero, err
	}
	typed, ok := raw.(V)
	if !ok {
		return zero, wrapPropertyError("original", w.objectType, name, fmt.Errorf("%w: have %T, want %T", ErrInvalidValue, raw, zero))
	}
	return typed, nil
}
