package observer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNilEntity indicates a wrapper was constructed without an entity.
	ErrNilEntity = errors.New("observer: entity must not be nil")
	// ErrNotStruct indicates the wrapped entity is not a struct type.
	ErrNotStruct = errors.New("observer: entity must be a struct")
	// ErrNilChild indicates a nil observer was registered as a child.
	ErrNilChild = errors.New("observer: child observer must not be nil")
	// ErrPropertyNameRequired indicates an empty name was passed where a
	// property name is required.
	ErrPropertyNameRequired = errors.New("observer: property name must not be empty")
	// ErrValueRequired indicates a nil candidate value was supplied for a
	// property carrying a required rule.
	ErrValueRequired = errors.New("observer: value must not be nil for required property")
	// ErrUnknownProperty indicates name-based resolution failed against the
	// wrapped entity type.
	ErrUnknownProperty = errors.New("observer: unknown property")
	// ErrAccessorIncomplete indicates a caller-supplied accessor override lacks
	// the getter or setter half needed by the attempted operation.
	ErrAccessorIncomplete = errors.New("observer: accessor override is incomplete")
	// ErrInvalidValue indicates a value could not be assigned to the resolved
	// entity property.
	ErrInvalidValue = errors.New("observer: value is not assignable to property")
)

// PropertyError decorates a failure with the operation, entity type, and
// property it occurred on. Resolution failures are programmer errors and must
// surface loudly at the call site.
type PropertyError struct {
	Op       string
	Type     string
	Property string
	Err      error
}

func (e *PropertyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("observer: %s %s.%s: %v", e.Op, e.Type, e.Property, trimPrefix(e.Err))
}

func (e *PropertyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapPropertyError(op, entityType, property string, err error) error {
	if err == nil {
		return nil
	}
	var propErr *PropertyError
	if errors.As(err, &propErr) {
		return err
	}
	return &PropertyError{
		Op:       op,
		Type:     entityType,
		Property: property,
		Err:      err,
	}
}

func trimPrefix(err error) string {
	if err == nil {
		return "<nil>"
	}
	return strings.TrimPrefix(err.Error(), "observer: ")
}
